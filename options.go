package docforge

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
)

// Option is a functional option for configuring a new Document via NewDocument.
type Option func(*documentConfig)

type documentConfig struct {
	id    string
	title string
	theme Theme
	now   func() time.Time
}

// WithID sets the document identifier instead of generating one.
func WithID(id string) Option {
	return func(c *documentConfig) {
		c.id = id
	}
}

// WithTitle sets the document title. The template name is used otherwise.
func WithTitle(title string) Option {
	return func(c *documentConfig) {
		c.title = title
	}
}

// WithTheme sets the initial branding theme.
func WithTheme(theme Theme) Option {
	return func(c *documentConfig) {
		c.theme = theme
	}
}

// WithClock sets the clock used for the creation timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *documentConfig) {
		c.now = now
	}
}

// NewDocument creates an empty document of the given type using functional options.
// If no options are specified, the document gets a fresh xid, a title derived
// from its type and the default theme.
//
// Example:
//
//	doc, err := docforge.NewDocument(docforge.TypeNDA,
//	    docforge.WithTitle("Mutual NDA"),
//	    docforge.WithTheme(docforge.DefaultTheme()),
//	)
func NewDocument(t DocumentType, opts ...Option) (*Document, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%q: %w", t, ErrUnknownDocumentType)
	}

	cfg := &documentConfig{
		theme: DefaultTheme(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.id == "" {
		cfg.id = xid.New().String()
	}
	if cfg.title == "" {
		cfg.title = t.Title()
	}

	return &Document{
		ID:         cfg.id,
		Type:       t,
		Title:      cfg.title,
		CreatedAt:  cfg.now().UTC(),
		Theme:      cfg.theme,
		Components: List{},
	}, nil
}

// Title returns the display title of the document type, e.g. "SocialMedia"
// for socialMedia.
func (t DocumentType) Title() string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}
