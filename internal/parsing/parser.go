// Package parsing validates uploaded resume documents and extracts their
// text through the AI provider.
package parsing

import (
	"context"

	"go.uber.org/zap"

	"github.com/jonathan/talent-pipeline/internal/ai"
)

// SupportedMimeTypes lists the document types the pipeline accepts.
var SupportedMimeTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
}

// Parser validates and extracts uploaded documents.
type Parser struct {
	provider ai.Provider
	maxBytes int64
	log      *zap.Logger
}

// NewParser creates a parser with the given size cap.
func NewParser(provider ai.Provider, maxBytes int64, log *zap.Logger) *Parser {
	return &Parser{provider: provider, maxBytes: maxBytes, log: log}
}

// ValidateUpload checks MIME type and size without touching the provider.
// The orchestrator calls this before creating any resume row.
func (p *Parser) ValidateUpload(mimeType string, size int64) error {
	if !isSupported(mimeType) {
		return &ErrUnsupportedFileType{MimeType: mimeType, Supported: SupportedMimeTypes}
	}
	if size > p.maxBytes {
		return &ErrFileTooLarge{Size: size, MaxBytes: p.maxBytes}
	}
	return nil
}

// Parse validates the document and delegates extraction to the provider.
func (p *Parser) Parse(ctx context.Context, data []byte, fileName, mimeType string) (*ai.ParsedDocument, error) {
	if err := p.ValidateUpload(mimeType, int64(len(data))); err != nil {
		return nil, err
	}

	doc, err := p.provider.ParseDocument(ctx, data, fileName, mimeType)
	if err != nil {
		return nil, err
	}

	p.log.Debug("document parsed",
		zap.String("file", fileName),
		zap.Int("pages", doc.PageCount),
		zap.Float64("confidence", doc.Confidence))
	return doc, nil
}

func isSupported(mimeType string) bool {
	for _, t := range SupportedMimeTypes {
		if t == mimeType {
			return true
		}
	}
	return false
}
