// Package session owns the state of one document editing session: the chosen
// template, the form being filled in, the component list, the theme and the
// exports in flight.
//
// A Session is the single owner of that state. Every change goes through one
// of its methods, which serialize on a mutex, so the HTTP and MCP surfaces
// can share a session across goroutines.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/lvillar/docforge"
	"github.com/lvillar/docforge/export"
	"github.com/lvillar/docforge/form"
	"github.com/lvillar/docforge/media"
	"github.com/lvillar/docforge/templates"
)

var (
	// ErrNoTemplate is returned by form operations before a template is selected.
	ErrNoTemplate = errors.New("session: no template selected")
	// ErrDuplicateComponent is returned when adding a block whose id is taken.
	ErrDuplicateComponent = errors.New("session: duplicate component id")
)

// Exporter serializes a component list and theme.
type Exporter interface {
	Export(ctx context.Context, format docforge.Format, components docforge.List, theme docforge.Theme) ([]byte, error)
}

// ImageLoader reads an image asynchronously, delivering exactly one result.
type ImageLoader interface {
	Load(ctx context.Context, r io.Reader) <-chan media.Result
}

// Option is a functional option for configuring a new Session.
type Option func(*Session)

// WithID sets the session id instead of generating one.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithClock sets the clock used for creation and activity timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithExporter sets the exporter used by Export.
func WithExporter(e Exporter) Option {
	return func(s *Session) { s.exporter = e }
}

// WithImageLoader sets the loader used for logo and image uploads.
func WithImageLoader(l ImageLoader) Option {
	return func(s *Session) { s.loader = l }
}

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

type changeFunc func(id string, t docforge.DocumentType, at time.Time)

// Session is one editing session.
type Session struct {
	// id never changes after New and is read without the lock.
	id string

	mu        sync.Mutex
	doc       docforge.Document
	fields    []docforge.FormField
	collector *form.Collector
	updatedAt time.Time
	exporting map[docforge.Format]bool

	exporter Exporter
	loader   ImageLoader
	logger   *zap.Logger
	now      func() time.Time
	onChange changeFunc
}

// New returns a session with no template selected and the default theme.
func New(opts ...Option) *Session {
	s := &Session{
		doc: docforge.Document{
			Theme:      docforge.DefaultTheme(),
			Components: docforge.List{},
		},
		exporting: make(map[docforge.Format]bool),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = xid.New().String()
	}
	s.doc.ID = s.id
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.exporter == nil {
		s.exporter = export.NewExporter(s.logger, nil)
	}
	if s.loader == nil {
		s.loader = media.NewLoader(0, s.logger)
	}
	s.logger = s.logger.With(zap.String("service", "session"), zap.String("session", s.id))
	s.doc.CreatedAt = s.now().UTC()
	s.updatedAt = s.doc.CreatedAt
	return s
}

// ID returns the session id, which is also the id of its document.
func (s *Session) ID() string {
	return s.id
}

// Type returns the selected document type, or "" before SelectTemplate.
func (s *Session) Type() docforge.DocumentType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Type
}

// UpdatedAt returns the time of the last successful change.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// update runs fn under the session lock and records the change if fn succeeds.
func (s *Session) update(fn func() error) error {
	s.mu.Lock()
	err := fn()
	if err == nil {
		s.updatedAt = s.now().UTC()
	}
	id, t, at := s.id, s.doc.Type, s.updatedAt
	s.mu.Unlock()

	if err == nil && s.onChange != nil {
		s.onChange(id, t, at)
	}
	return err
}

// SelectTemplate starts a new document of type t. The form starts blank and
// the component list empty; the theme is kept.
func (s *Session) SelectTemplate(t docforge.DocumentType) error {
	tpl, err := templates.Lookup(t)
	if err != nil {
		return err
	}
	return s.update(func() error {
		doc, err := docforge.NewDocument(t,
			docforge.WithID(s.id),
			docforge.WithTitle(tpl.Name),
			docforge.WithTheme(s.doc.Theme),
			docforge.WithClock(s.now),
		)
		if err != nil {
			return err
		}
		s.doc = *doc
		s.fields = tpl.Fields
		s.collector = form.New(tpl.Fields)
		s.logger.Debug("template selected", zap.String("type", string(t)))
		return nil
	})
}

// Form returns the current form inputs.
func (s *Session) Form() ([]form.Input, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collector == nil {
		return nil, ErrNoTemplate
	}
	return s.collector.Render(), nil
}

// RenderForm writes the current form as an HTML fragment.
func (s *Session) RenderForm(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collector == nil {
		return ErrNoTemplate
	}
	return s.collector.RenderHTML(w)
}

// UpdateField records one form value.
func (s *Session) UpdateField(id, value string) error {
	return s.update(func() error {
		if s.collector == nil {
			return ErrNoTemplate
		}
		s.collector.UpdateField(id, value)
		return nil
	})
}

// Submit turns the accumulated form record into the document's components,
// replacing any existing ones. Blank required fields do not block submission.
func (s *Session) Submit() (docforge.List, error) {
	var list docforge.List
	err := s.update(func() error {
		if s.collector == nil {
			return ErrNoTemplate
		}
		if missing := s.collector.Missing(); len(missing) > 0 {
			s.logger.Info("form submitted with blank required fields", zap.Strings("fields", missing))
		}
		rec := s.collector.Submit()
		s.doc.Components = docforge.BuildFromFormData(rec.Values(), s.fields)
		list = s.doc.Components.Clone()
		return nil
	})
	return list, err
}

// Components returns the current component list.
func (s *Session) Components() docforge.List {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Components.Clone()
}

// Reorder moves component activeID to the position of overID. An unknown id
// leaves the list unchanged and is logged.
func (s *Session) Reorder(activeID, overID string) error {
	return s.update(func() error {
		list, err := s.doc.Components.Reorder(activeID, overID)
		if err != nil {
			s.logger.Warn("reorder ignored", zap.Error(err))
			return err
		}
		s.doc.Components = list
		return nil
	})
}

// Edit replaces the content of component id.
func (s *Session) Edit(id string, content docforge.Content) error {
	return s.update(func() error {
		return s.edit(id, content)
	})
}

func (s *Session) edit(id string, content docforge.Content) error {
	list, err := s.doc.Components.Edit(id, content)
	if err != nil {
		s.logger.Warn("edit ignored", zap.String("component", id), zap.Error(err))
		return err
	}
	s.doc.Components = list
	return nil
}

// EditText replaces the text of a heading or text component.
func (s *Session) EditText(id, text string) error {
	return s.update(func() error {
		c, ok := s.doc.Components.Get(id)
		if !ok {
			return s.edit(id, docforge.Text(text))
		}
		switch c.Type() {
		case docforge.BlockHeading:
			return s.edit(id, docforge.Heading(text))
		case docforge.BlockText:
			return s.edit(id, docforge.Text(text))
		}
		return fmt.Errorf("edit %q: %s block: %w", id, c.Type(), docforge.ErrContentMismatch)
	})
}

// ReplaceImage reads an image from r in the background and, once it is
// decoded, makes it the content of image component id. The returned channel
// delivers exactly one error (nil on success) and is then closed.
func (s *Session) ReplaceImage(ctx context.Context, id string, r io.Reader) <-chan error {
	return s.loadImage(ctx, r, func(img *docforge.Image) error {
		return s.edit(id, img)
	})
}

// AppendImage reads an image from r in the background and adds it as a new
// image component at the end of the list.
func (s *Session) AppendImage(ctx context.Context, id string, r io.Reader) <-chan error {
	return s.loadImage(ctx, r, func(img *docforge.Image) error {
		if s.doc.Components.Index(id) >= 0 {
			return fmt.Errorf("%q: %w", id, ErrDuplicateComponent)
		}
		list := append(s.doc.Components.Clone(), docforge.Component{
			ID:      id,
			Order:   len(s.doc.Components),
			Content: img,
		})
		s.doc.Components = list
		return nil
	})
}

// SetLogo reads a logo from r in the background and puts it on the theme.
func (s *Session) SetLogo(ctx context.Context, r io.Reader) <-chan error {
	return s.loadImage(ctx, r, func(img *docforge.Image) error {
		s.doc.Theme = s.doc.Theme.WithLogo(img)
		return nil
	})
}

// loadImage applies the decoded image under the session lock, exactly once.
func (s *Session) loadImage(ctx context.Context, r io.Reader, apply func(*docforge.Image) error) <-chan error {
	done := make(chan error, 1)
	results := s.loader.Load(ctx, r)
	go func() {
		defer close(done)
		res := <-results
		if res.Err != nil {
			s.logger.Warn("image upload failed", zap.Error(res.Err))
			done <- res.Err
			return
		}
		done <- s.update(func() error { return apply(res.Image) })
	}()
	return done
}

// RemoveLogo clears the theme logo.
func (s *Session) RemoveLogo() {
	_ = s.update(func() error {
		s.doc.Theme = s.doc.Theme.WithLogo(nil)
		return nil
	})
}

// SetColor replaces one of the theme colors.
func (s *Session) SetColor(ch docforge.Channel, c docforge.Color) error {
	return s.update(func() error {
		theme, err := s.doc.Theme.WithColor(ch, c)
		if err != nil {
			return err
		}
		s.doc.Theme = theme
		return nil
	})
}

// SetFont replaces the theme font.
func (s *Session) SetFont(f docforge.Font) error {
	return s.update(func() error {
		theme, err := s.doc.Theme.WithFont(f)
		if err != nil {
			return err
		}
		s.doc.Theme = theme
		return nil
	})
}

// SetWatermark sets the PDF watermark label. An empty label removes it.
func (s *Session) SetWatermark(label string) {
	_ = s.update(func() error {
		s.doc.Theme = s.doc.Theme.WithWatermark(label)
		return nil
	})
}

// Theme returns the current theme.
func (s *Session) Theme() docforge.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Theme
}

// Snapshot returns a copy of the session's document.
func (s *Session) Snapshot() *docforge.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.doc
	doc.Components = s.doc.Components.Clone()
	return &doc
}
