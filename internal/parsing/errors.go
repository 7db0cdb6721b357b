package parsing

import (
	"fmt"
	"strings"
)

// ErrUnsupportedFileType indicates the uploaded MIME type is not accepted.
// Surfaced synchronously to the uploader and never retried.
type ErrUnsupportedFileType struct {
	MimeType  string
	Supported []string
}

func (e *ErrUnsupportedFileType) Error() string {
	return fmt.Sprintf("unsupported file type %s: supported types are %s",
		e.MimeType, strings.Join(e.Supported, ", "))
}

// ErrFileTooLarge indicates the upload exceeds the configured size cap.
type ErrFileTooLarge struct {
	Size     int64
	MaxBytes int64
}

func (e *ErrFileTooLarge) Error() string {
	return fmt.Sprintf("file size %d exceeds the %d byte limit", e.Size, e.MaxBytes)
}
