package session_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lvillar/docforge"
	"github.com/lvillar/docforge/export"
	"github.com/lvillar/docforge/media"
	"github.com/lvillar/docforge/session"
)

var fixedNow = func() time.Time { return time.Date(2026, 10, 17, 14, 5, 0, 0, time.UTC) }

type blockingExporter struct {
	release chan struct{}
	calls   chan docforge.List
	err     error
}

func newBlockingExporter() *blockingExporter {
	return &blockingExporter{release: make(chan struct{}), calls: make(chan docforge.List, 4)}
}

func (e *blockingExporter) Export(_ context.Context, format docforge.Format, components docforge.List, _ docforge.Theme) ([]byte, error) {
	e.calls <- components
	<-e.release
	if e.err != nil {
		return nil, e.err
	}
	var buf bytes.Buffer
	buf.WriteString(string(format))
	for _, c := range components {
		buf.WriteString(":" + c.String())
	}
	return buf.Bytes(), nil
}

type stubLoader struct {
	res media.Result
}

func (l stubLoader) Load(context.Context, io.Reader) <-chan media.Result {
	ch := make(chan media.Result, 1)
	ch <- l.res
	close(ch)
	return ch
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newInvoice(t *testing.T, opts ...session.Option) *session.Session {
	t.Helper()
	s := session.New(append([]session.Option{session.WithClock(fixedNow)}, opts...)...)
	require.NoError(t, s.SelectTemplate(docforge.TypeInvoice))
	return s
}

func TestSelectTemplate(t *testing.T) {
	s := session.New(session.WithID("s1"), session.WithClock(fixedNow))
	assert.Equal(t, "s1", s.ID())
	assert.Equal(t, docforge.DocumentType(""), s.Type())

	_, err := s.Form()
	assert.ErrorIs(t, err, session.ErrNoTemplate)
	assert.ErrorIs(t, s.UpdateField("clientName", "Acme"), session.ErrNoTemplate)
	_, err = s.Submit()
	assert.ErrorIs(t, err, session.ErrNoTemplate)

	assert.ErrorIs(t, s.SelectTemplate("memo"), docforge.ErrUnknownDocumentType)

	require.NoError(t, s.SetFont(docforge.FontPlayfair))
	require.NoError(t, s.SelectTemplate(docforge.TypeNDA))
	assert.Equal(t, docforge.TypeNDA, s.Type())

	doc := s.Snapshot()
	assert.Equal(t, "s1", doc.ID)
	assert.Equal(t, "NDA", doc.Title)
	assert.Equal(t, docforge.FontPlayfair, doc.Theme.FontFamily)
	assert.Empty(t, doc.Components)

	inputs, err := s.Form()
	require.NoError(t, err)
	require.Len(t, inputs, 4)
	assert.Equal(t, "partyOne", inputs[0].Field.ID)
	assert.Empty(t, inputs[0].Value)
}

func TestIDIsStableWhileTemplateChanges(t *testing.T) {
	s := session.New(session.WithID("doc-1"))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			assert.NoError(t, s.SelectTemplate(docforge.TypeInvoice))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			assert.Equal(t, "doc-1", s.ID())
		}
	}()
	wg.Wait()

	assert.Equal(t, "doc-1", s.Snapshot().ID)
}

func TestSelectTemplateResetsDocument(t *testing.T) {
	s := newInvoice(t)
	require.NoError(t, s.UpdateField("clientName", "Acme"))
	_, err := s.Submit()
	require.NoError(t, err)
	require.Len(t, s.Components(), 1)

	require.NoError(t, s.SelectTemplate(docforge.TypeContract))
	assert.Empty(t, s.Components())
	inputs, err := s.Form()
	require.NoError(t, err)
	for _, in := range inputs {
		assert.Empty(t, in.Value)
	}
}

func TestSubmit(t *testing.T) {
	s := newInvoice(t)
	require.NoError(t, s.UpdateField("description", "Consulting\nservices"))
	require.NoError(t, s.UpdateField("clientName", "Acme"))
	require.NoError(t, s.UpdateField("description", "Consulting"))

	list, err := s.Submit()
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "description", list[0].ID)
	assert.Equal(t, docforge.Text("Consulting"), list[0].Content)
	assert.Equal(t, "clientName", list[1].ID)
	assert.Equal(t, docforge.Heading("Acme"), list[1].Content)

	// the returned list is a copy
	list[0].Content = docforge.Text("changed")
	assert.Equal(t, docforge.Text("Consulting"), s.Components()[0].Content)

	var html strings.Builder
	require.NoError(t, s.RenderForm(&html))
	assert.Contains(t, html.String(), "Generate Document")
}

func TestReorderAndEdit(t *testing.T) {
	s := newInvoice(t)
	for _, id := range []string{"invoiceNumber", "clientName", "description"} {
		require.NoError(t, s.UpdateField(id, id))
	}
	_, err := s.Submit()
	require.NoError(t, err)

	require.NoError(t, s.Reorder("description", "invoiceNumber"))
	assert.Equal(t, "description", s.Components()[0].ID)

	assert.ErrorIs(t, s.Reorder("nope", "clientName"), docforge.ErrComponentNotFound)
	assert.Equal(t, "description", s.Components()[0].ID)

	require.NoError(t, s.EditText("clientName", "Globex"))
	c, ok := s.Components().Get("clientName")
	require.True(t, ok)
	assert.Equal(t, docforge.Heading("Globex"), c.Content)

	require.NoError(t, s.EditText("description", "Line"))
	c, _ = s.Components().Get("description")
	assert.Equal(t, docforge.Text("Line"), c.Content)

	assert.ErrorIs(t, s.Edit("description", docforge.Heading("x")), docforge.ErrContentMismatch)
	assert.ErrorIs(t, s.EditText("missing", "x"), docforge.ErrComponentNotFound)
}

func TestImages(t *testing.T) {
	data := pngBytes(t)
	s := newInvoice(t, session.WithImageLoader(media.NewLoader(0, nil)))

	require.NoError(t, <-s.AppendImage(context.Background(), "photo", bytes.NewReader(data)))
	list := s.Components()
	require.Len(t, list, 1)
	assert.Equal(t, docforge.BlockImage, list[0].Type())

	err := <-s.AppendImage(context.Background(), "photo", bytes.NewReader(data))
	assert.ErrorIs(t, err, session.ErrDuplicateComponent)

	require.NoError(t, <-s.ReplaceImage(context.Background(), "photo", bytes.NewReader(data)))

	require.NoError(t, <-s.SetLogo(context.Background(), bytes.NewReader(data)))
	require.NotNil(t, s.Theme().Logo)
	assert.Equal(t, "image/png", s.Theme().Logo.MIME)

	s.RemoveLogo()
	assert.Nil(t, s.Theme().Logo)
}

func TestImageLoadFailureLeavesState(t *testing.T) {
	loadErr := errors.New("unreadable")
	s := newInvoice(t, session.WithImageLoader(stubLoader{res: media.Result{Err: loadErr}}))

	errs := s.SetLogo(context.Background(), strings.NewReader("junk"))
	assert.ErrorIs(t, <-errs, loadErr)
	_, open := <-errs
	assert.False(t, open)
	assert.Nil(t, s.Theme().Logo)
}

func TestThemeSetters(t *testing.T) {
	s := session.New()
	red := docforge.MustParseColor("#ff0000")

	require.NoError(t, s.SetColor(docforge.ChannelPrimary, red))
	assert.Equal(t, red, s.Theme().PrimaryColor)
	assert.ErrorIs(t, s.SetColor("tertiary", red), docforge.ErrInvalidChannel)

	assert.ErrorIs(t, s.SetFont("Comic Sans"), docforge.ErrUnsupportedFont)
	require.NoError(t, s.SetFont(docforge.FontMontserrat))
	assert.Equal(t, docforge.FontMontserrat, s.Theme().FontFamily)

	s.SetWatermark("DRAFT")
	assert.Equal(t, "DRAFT", s.Theme().Watermark)
	s.SetWatermark("")
	assert.Empty(t, s.Theme().Watermark)
}

func TestExportSnapshotsAndGuards(t *testing.T) {
	exp := newBlockingExporter()
	s := newInvoice(t, session.WithExporter(exp))
	require.NoError(t, s.UpdateField("clientName", "Acme"))
	_, err := s.Submit()
	require.NoError(t, err)

	results, err := s.Export(context.Background(), docforge.FormatPDF)
	require.NoError(t, err)
	captured := <-exp.calls
	assert.True(t, s.Exporting(docforge.FormatPDF))

	_, err = s.Export(context.Background(), docforge.FormatPDF)
	assert.ErrorIs(t, err, docforge.ErrExportInProgress)

	// edits made during the export do not reach it
	require.NoError(t, s.EditText("clientName", "Globex"))
	assert.Equal(t, docforge.Heading("Acme"), captured[0].Content)

	close(exp.release)
	res := <-results
	require.NoError(t, res.Err)
	assert.Equal(t, docforge.FormatPDF, res.Format)
	assert.Contains(t, string(res.Data), "Acme")
	assert.False(t, s.Exporting(docforge.FormatPDF))

	// the guard is released, so a second export can start
	results, err = s.Export(context.Background(), docforge.FormatPDF)
	require.NoError(t, err)
	<-exp.calls
	assert.NoError(t, (<-results).Err)

	_, err = s.Export(context.Background(), "odt")
	assert.ErrorIs(t, err, docforge.ErrUnknownFormat)
}

func TestExportFailure(t *testing.T) {
	exp := newBlockingExporter()
	exp.err = docforge.NewExportError(docforge.FormatDOCX, "output", errors.New("disk full"))
	close(exp.release)
	s := newInvoice(t, session.WithExporter(exp))

	results, err := s.Export(context.Background(), docforge.FormatDOCX)
	require.NoError(t, err)
	res := <-results

	var exportErr *docforge.ExportError
	require.ErrorAs(t, res.Err, &exportErr)
	assert.Nil(t, res.Data)
	assert.False(t, s.Exporting(docforge.FormatDOCX))
}

func TestExportFailureIsLoggedOnce(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	s := newInvoice(t,
		session.WithLogger(logger),
		session.WithExporter(export.NewExporter(logger, nil, export.WithPageSize("A7"))),
	)

	results, err := s.Export(context.Background(), docforge.FormatPDF)
	require.NoError(t, err)
	res := <-results
	require.Error(t, res.Err)

	assert.Equal(t, 1, logs.FilterLevelExact(zap.ErrorLevel).Len())
}

func TestExportWithDefaultExporter(t *testing.T) {
	s := newInvoice(t)
	require.NoError(t, s.UpdateField("clientName", "Acme"))
	_, err := s.Submit()
	require.NoError(t, err)

	results, err := s.Export(context.Background(), docforge.FormatPDF)
	require.NoError(t, err)
	res := <-results
	require.NoError(t, res.Err)
	assert.True(t, bytes.HasPrefix(res.Data, []byte("%PDF-")))
}
