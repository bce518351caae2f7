// Package export serializes a component list and theme into the two supported
// output formats, PDF and DOCX.
//
// PDF and DOCX are pure functions of their input: identical components, theme
// and clock produce byte-identical output. Exporter adds format dispatch,
// logging and metrics on top of them.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/lvillar/docforge"
)

// Export results reported to Metrics.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics records the outcome of each export.
type Metrics interface {
	ObserveExport(format docforge.Format, result string, elapsed time.Duration, size int)
}

// Exporter runs exports and reports on them.
type Exporter struct {
	logger  *zap.Logger
	metrics Metrics
	opts    []Option
}

// NewExporter returns an Exporter applying opts to every export. metrics may
// be nil.
func NewExporter(logger *zap.Logger, metrics Metrics, opts ...Option) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		logger:  logger.With(zap.String("service", "export")),
		metrics: metrics,
		opts:    opts,
	}
}

// Export serializes components and theme in the given format and returns the
// complete file. It either returns the whole output or fails; partial output
// is never returned.
//
// ctx is only checked before work starts; an export in progress runs to
// completion.
func (e *Exporter) Export(ctx context.Context, format docforge.Format, components docforge.List, theme docforge.Theme) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	render, err := renderer(format)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var buf bytes.Buffer
	err = render(&buf, components, theme, e.opts...)
	elapsed := time.Since(start)

	if err != nil {
		var exportErr *docforge.ExportError
		if !errors.As(err, &exportErr) {
			err = docforge.NewExportError(format, "render", err)
		}
		e.observe(format, ResultFailure, elapsed, 0)
		e.logger.Error("export failed",
			zap.String("format", string(format)),
			zap.Int("components", len(components)),
			zap.Error(err),
		)
		return nil, err
	}

	e.observe(format, ResultSuccess, elapsed, buf.Len())
	e.logger.Info("document exported",
		zap.String("format", string(format)),
		zap.Int("components", len(components)),
		zap.Int("bytes", buf.Len()),
		zap.Duration("elapsed", elapsed),
	)
	return buf.Bytes(), nil
}

func (e *Exporter) observe(format docforge.Format, result string, elapsed time.Duration, size int) {
	if e.metrics != nil {
		e.metrics.ObserveExport(format, result, elapsed, size)
	}
}

type renderFunc func(w io.Writer, components docforge.List, theme docforge.Theme, opts ...Option) error

func renderer(format docforge.Format) (renderFunc, error) {
	switch format {
	case docforge.FormatPDF:
		return PDF, nil
	case docforge.FormatDOCX:
		return DOCX, nil
	}
	return nil, fmt.Errorf("export %q: %w", format, docforge.ErrUnknownFormat)
}
