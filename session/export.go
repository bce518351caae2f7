package session

import (
	"context"
	"fmt"

	"github.com/lvillar/docforge"
)

// ExportResult is the outcome of an asynchronous export.
type ExportResult struct {
	Format docforge.Format
	Data   []byte
	Err    error
}

// Export serializes the document in the background. The components and theme
// are captured when Export is called; later edits do not affect it. The
// returned channel delivers exactly one result and is then closed.
//
// While an export of a format is outstanding, another export of the same
// format fails with docforge.ErrExportInProgress.
func (s *Session) Export(ctx context.Context, format docforge.Format) (<-chan ExportResult, error) {
	if _, err := docforge.ParseFormat(string(format)); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.exporting[format] {
		s.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", format, docforge.ErrExportInProgress)
	}
	s.exporting[format] = true
	components, theme := s.doc.Components.Clone(), s.doc.Theme
	s.mu.Unlock()

	ch := make(chan ExportResult, 1)
	go func() {
		defer close(ch)
		data, err := s.exporter.Export(ctx, format, components, theme)

		s.mu.Lock()
		delete(s.exporting, format)
		s.mu.Unlock()

		ch <- ExportResult{Format: format, Data: data, Err: err}
	}()
	return ch, nil
}

// Exporting reports whether an export of format is outstanding.
func (s *Session) Exporting(format docforge.Format) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exporting[format]
}
