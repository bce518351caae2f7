package docforge

import (
	"errors"
	"fmt"
)

// Sentinel errors for common document editing and export failure conditions.
var (
	ErrUnknownDocumentType = errors.New("docforge: unknown document type")
	ErrComponentNotFound   = errors.New("docforge: component not found")
	ErrContentMismatch     = errors.New("docforge: content does not match component type")
	ErrInvalidColor        = errors.New("docforge: invalid color")
	ErrInvalidChannel      = errors.New("docforge: invalid color channel")
	ErrUnsupportedFont     = errors.New("docforge: unsupported font")
	ErrUnsupportedImage    = errors.New("docforge: unsupported image")
	ErrUnknownFormat       = errors.New("docforge: unknown export format")
	ErrExportInProgress    = errors.New("docforge: export already in progress")
)

// ExportError represents a failure while serializing a document.
// It wraps the underlying error and records the output format and the
// step that failed.
type ExportError struct {
	Format Format // output format, e.g. FormatPDF
	Op     string // step name, e.g. "logo", "output"
	Err    error  // underlying error
}

func (e *ExportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("docforge: export %s: %s: %v", e.Format, e.Op, e.Err)
	}
	return fmt.Sprintf("docforge: export %s: %s: unknown error", e.Format, e.Op)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// NewExportError creates a new ExportError wrapping err with format and step context.
func NewExportError(format Format, op string, err error) *ExportError {
	return &ExportError{Format: format, Op: op, Err: err}
}
