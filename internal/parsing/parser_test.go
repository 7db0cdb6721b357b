package parsing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/jonathan/talent-pipeline/internal/ai"
)

func newTestParser(maxBytes int64) *Parser {
	return NewParser(ai.NewMockProvider(0), maxBytes, zap.NewNop())
}

func TestValidateUploadUnsupportedType(t *testing.T) {
	p := newTestParser(1024)

	err := p.ValidateUpload("image/png", 100)
	var unsupported *ErrUnsupportedFileType
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected ErrUnsupportedFileType, got %v", err)
	}
	// The message must name the supported types so clients can correct.
	for _, want := range []string{"application/pdf", "text/plain"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not name supported type %s", err.Error(), want)
		}
	}
}

func TestValidateUploadTooLarge(t *testing.T) {
	p := newTestParser(10)

	err := p.ValidateUpload("text/plain", 11)
	var tooLarge *ErrFileTooLarge
	if !errors.As(err, &tooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if tooLarge.MaxBytes != 10 {
		t.Errorf("MaxBytes = %d, want 10", tooLarge.MaxBytes)
	}

	// At the limit is fine.
	if err := p.ValidateUpload("text/plain", 10); err != nil {
		t.Errorf("expected size at limit to pass, got %v", err)
	}
}

func TestParse(t *testing.T) {
	p := newTestParser(1 << 20)

	doc, err := p.Parse(context.Background(), []byte("John Doe\njohn@example.com\nGo engineer"), "resume.txt", "text/plain")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !strings.Contains(doc.Text, "Go engineer") {
		t.Errorf("unexpected text: %q", doc.Text)
	}
}

func TestParseRejectsBeforeProvider(t *testing.T) {
	p := newTestParser(1 << 20)

	if _, err := p.Parse(context.Background(), []byte("data"), "resume.bin", "application/octet-stream"); err == nil {
		t.Fatal("expected unsupported type error")
	}
}
