package export

import (
	"fmt"
	"strings"
	"time"
)

// DefaultCompanyName is the name printed in the DOCX copyright footer when
// none is configured.
const DefaultCompanyName = "Your Company"

// Option is a functional option for configuring an export.
type Option func(*config)

type config struct {
	now      func() time.Time
	company  string
	compress bool
	pageSize string
}

func newConfig(opts []Option) config {
	cfg := config{
		now:      time.Now,
		company:  DefaultCompanyName,
		compress: true,
		pageSize: "A4",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithClock sets the clock used for the PDF creation date, the DOCX header
// date and footer year, and the DOCX package timestamps. Two exports of the
// same input with the same clock reading are byte-identical.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// WithCompanyName sets the company named in the DOCX copyright footer.
func WithCompanyName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.company = name
		}
	}
}

// WithCompression enables or disables PDF stream compression. Compression is
// on by default.
func WithCompression(on bool) Option {
	return func(c *config) {
		c.compress = on
	}
}

// WithPageSize selects the paper size: "A4" (default), "Letter" or "Legal".
func WithPageSize(size string) Option {
	return func(c *config) {
		c.pageSize = size
	}
}

type pageSize struct {
	name string
	// DOCX page dimensions in twentieths of a point
	twipsW, twipsH int
}

var pageSizes = map[string]pageSize{
	"a4":     {"A4", 11906, 16838},
	"letter": {"Letter", 12240, 15840},
	"legal":  {"Legal", 12240, 20160},
}

// PageSizes returns the accepted page size names.
func PageSizes() []string {
	return []string{"A4", "Letter", "Legal"}
}

func lookupPageSize(name string) (pageSize, error) {
	ps, ok := pageSizes[strings.ToLower(name)]
	if !ok {
		return pageSize{}, fmt.Errorf("unsupported page size %q", name)
	}
	return ps, nil
}
