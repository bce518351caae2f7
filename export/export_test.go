package export

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/docforge"
)

var fixedNow = time.Date(2026, 10, 17, 14, 5, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

var pageObject = regexp.MustCompile(`/Type /Page\b`)

func pngLogo(t *testing.T) *docforge.Image {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 79, G: 70, B: 229, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &docforge.Image{MIME: "image/png", Data: buf.Bytes()}
}

func headings(n int) docforge.List {
	list := make(docforge.List, n)
	for i := range list {
		list[i] = docforge.Component{
			ID:      fmt.Sprintf("h%d", i),
			Order:   i,
			Content: docforge.Heading(fmt.Sprintf("Heading %d", i)),
		}
	}
	return list
}

func renderPDF(t *testing.T, list docforge.List, theme docforge.Theme, opts ...Option) []byte {
	t.Helper()
	var buf bytes.Buffer
	opts = append([]Option{WithClock(fixedClock), WithCompression(false)}, opts...)
	require.NoError(t, PDF(&buf, list, theme, opts...))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")), "output is not a PDF")
	return buf.Bytes()
}

func TestPDFEmptyListIsOnePage(t *testing.T) {
	out := renderPDF(t, nil, docforge.DefaultTheme())

	assert.Len(t, pageObject.FindAll(out, -1), 1)
	assert.Contains(t, string(out), "(Page 1 of 1) Tj")
}

func TestPDFPaginatesWithTrueTotal(t *testing.T) {
	out := renderPDF(t, headings(30), docforge.DefaultTheme())

	assert.Len(t, pageObject.FindAll(out, -1), 3)
	for i := 1; i <= 3; i++ {
		assert.Contains(t, string(out), fmt.Sprintf("(Page %d of 3) Tj", i))
	}
	assert.NotContains(t, string(out), "{nb}")
}

func TestPDFLongTextBreaksAcrossPages(t *testing.T) {
	long := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 200)
	list := docforge.List{{ID: "body", Content: docforge.Text(long)}}

	out := renderPDF(t, list, docforge.DefaultTheme())

	pages := len(pageObject.FindAll(out, -1))
	assert.Greater(t, pages, 1)
	assert.Contains(t, string(out), fmt.Sprintf("(Page %d of %d) Tj", pages, pages))
}

func baseline(t *testing.T, out []byte, text string) float64 {
	t.Helper()
	re := regexp.MustCompile(`BT [0-9.]+ ([0-9.]+) Td \(` + regexp.QuoteMeta(text) + `\) Tj`)
	m := re.FindSubmatch(out)
	require.NotNil(t, m, "no text operator for %q", text)
	y, err := strconv.ParseFloat(string(m[1]), 64)
	require.NoError(t, err)
	return y
}

func TestPDFTextLineAdvance(t *testing.T) {
	list := docforge.List{{ID: "body", Content: docforge.Text("First line\nSecond line")}}
	out := renderPDF(t, list, docforge.DefaultTheme())

	// 10mm in points
	gap := baseline(t, out, "First line") - baseline(t, out, "Second line")
	assert.InDelta(t, 10*72/25.4, gap, 0.02)
}

func TestPDFIsDeterministic(t *testing.T) {
	theme := docforge.DefaultTheme().WithLogo(pngLogo(t)).WithWatermark("DRAFT")
	list := append(headings(3),
		docforge.Component{ID: "body", Order: 3, Content: docforge.Text("Payment due within 30 days.")},
		docforge.Component{ID: "photo", Order: 4, Content: pngLogo(t)},
		docforge.Component{ID: "grid", Order: 5, Content: docforge.Table{}},
	)

	var a, b bytes.Buffer
	require.NoError(t, PDF(&a, list, theme, WithClock(fixedClock)))
	require.NoError(t, PDF(&b, list, theme, WithClock(fixedClock)))
	assert.True(t, bytes.Equal(a.Bytes(), b.Bytes()), "two exports of the same input differ")
}

func TestPDFThemeIsApplied(t *testing.T) {
	theme := docforge.DefaultTheme().WithLogo(pngLogo(t)).WithWatermark("CONFIDENTIAL")
	theme, err := theme.WithFont(docforge.FontPlayfair)
	require.NoError(t, err)

	out := string(renderPDF(t, headings(1), theme))

	assert.Contains(t, out, "/BaseFont /Times-Bold")
	assert.Contains(t, out, "/BaseFont /Times-Italic")
	assert.Contains(t, out, "(CONFIDENTIAL) Tj")
	assert.Contains(t, out, "/Subtype /Image")
	assert.Contains(t, out, "/Type /ExtGState")
}

func TestPDFErrors(t *testing.T) {
	var buf bytes.Buffer
	webp := &docforge.Image{MIME: "image/webp", Data: []byte{1}}

	err := PDF(&buf, nil, docforge.DefaultTheme().WithLogo(webp))
	assert.ErrorIs(t, err, docforge.ErrUnsupportedImage)
	var exportErr *docforge.ExportError
	require.ErrorAs(t, err, &exportErr)
	assert.Equal(t, docforge.FormatPDF, exportErr.Format)
	assert.Equal(t, "logo", exportErr.Op)

	err = PDF(&buf, nil, docforge.DefaultTheme(), WithPageSize("A7"))
	require.ErrorAs(t, err, &exportErr)
	assert.Equal(t, "setup", exportErr.Op)
}

func unzip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	parts := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		parts[f.Name] = string(body)
		assert.True(t, f.Modified.Equal(fixedNow), f.Name)
	}
	return parts
}

func renderDOCX(t *testing.T, list docforge.List, theme docforge.Theme, opts ...Option) map[string]string {
	t.Helper()
	var buf bytes.Buffer
	opts = append([]Option{WithClock(fixedClock)}, opts...)
	require.NoError(t, DOCX(&buf, list, theme, opts...))
	return unzip(t, buf.Bytes())
}

func TestDOCXPackageParts(t *testing.T) {
	parts := renderDOCX(t, nil, docforge.DefaultTheme())

	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"word/_rels/document.xml.rels",
		"word/styles.xml",
		"word/header1.xml",
		"word/footer1.xml",
		"word/document.xml",
	} {
		assert.Contains(t, parts, name)
	}
	assert.Contains(t, parts["word/styles.xml"], `w:ascii="Inter"`)
}

func TestDOCXHeaderAndFooter(t *testing.T) {
	parts := renderDOCX(t, headings(1), docforge.DefaultTheme(), WithCompanyName("Acme"))

	assert.Contains(t, parts["word/header1.xml"], `<w:jc w:val="right"/>`)
	assert.Contains(t, parts["word/header1.xml"], ">10/17/2026<")
	assert.Contains(t, parts["word/header1.xml"], `<w:color w:val="6366F1"/><w:sz w:val="20"/>`)
	assert.Contains(t, parts["word/footer1.xml"], `<w:jc w:val="center"/>`)
	assert.Contains(t, parts["word/footer1.xml"], ">© 2026 Acme<")

	parts = renderDOCX(t, nil, docforge.DefaultTheme())
	assert.Contains(t, parts["word/footer1.xml"], ">© 2026 Your Company<")
}

func TestDOCXBlocks(t *testing.T) {
	list := docforge.List{
		{ID: "title", Order: 0, Content: docforge.Heading("R&D <Team>")},
		{ID: "body", Order: 1, Content: docforge.Text("line one\nline two")},
		{ID: "grid", Order: 2, Content: docforge.Table{}},
		{ID: "sign", Order: 3, Content: docforge.Signature{}},
		{ID: "photo", Order: 4, Content: pngLogo(t)},
	}

	doc := renderDOCX(t, list, docforge.DefaultTheme())["word/document.xml"]

	assert.Equal(t, len(list), strings.Count(doc, "<w:p>"), "one paragraph per block")
	assert.Contains(t, doc, `<w:bottom w:val="single" w:sz="6" w:space="1" w:color="4F46E5"/>`)
	assert.Contains(t, doc, `<w:spacing w:before="400" w:after="200"/>`)
	assert.Contains(t, doc, `<w:b/><w:color w:val="4F46E5"/><w:sz w:val="36"/>`)
	assert.Contains(t, doc, ">R&amp;D &lt;Team&gt;<")
	assert.Contains(t, doc, `<w:spacing w:before="200" w:after="200"/>`)
	assert.Contains(t, doc, `<w:color w:val="6366F1"/><w:sz w:val="24"/>`)
	assert.Contains(t, doc, `line one</w:t><w:br/><w:t xml:space="preserve">line two`)
	assert.Equal(t, 3, strings.Count(doc, `<w:p><w:r><w:t xml:space="preserve"></w:t></w:r></w:p>`),
		"table, signature and image blocks leave empty paragraphs")
	assert.Contains(t, doc, `<w:pgSz w:w="11906" w:h="16838"/>`)
}

func TestDOCXIsDeterministic(t *testing.T) {
	list := headings(4)
	var a, b bytes.Buffer
	require.NoError(t, DOCX(&a, list, docforge.DefaultTheme(), WithClock(fixedClock)))
	require.NoError(t, DOCX(&b, list, docforge.DefaultTheme(), WithClock(fixedClock)))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestDOCXPageSize(t *testing.T) {
	doc := renderDOCX(t, nil, docforge.DefaultTheme(), WithPageSize("letter"))["word/document.xml"]
	assert.Contains(t, doc, `<w:pgSz w:w="12240" w:h="15840"/>`)
}

type recordedExport struct {
	format docforge.Format
	result string
	size   int
}

type fakeMetrics struct {
	mu      sync.Mutex
	exports []recordedExport
}

func (m *fakeMetrics) ObserveExport(format docforge.Format, result string, _ time.Duration, size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exports = append(m.exports, recordedExport{format, result, size})
}

func TestExporter(t *testing.T) {
	m := &fakeMetrics{}
	e := NewExporter(nil, m, WithClock(fixedClock))
	ctx := context.Background()

	pdf, err := e.Export(ctx, docforge.FormatPDF, headings(2), docforge.DefaultTheme())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	docx, err := e.Export(ctx, docforge.FormatDOCX, headings(2), docforge.DefaultTheme())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(docx, []byte("PK")))

	_, err = e.Export(ctx, "odt", nil, docforge.DefaultTheme())
	assert.ErrorIs(t, err, docforge.ErrUnknownFormat)

	bad := docforge.DefaultTheme().WithLogo(&docforge.Image{MIME: "image/webp", Data: []byte{1}})
	_, err = e.Export(ctx, docforge.FormatPDF, nil, bad)
	var exportErr *docforge.ExportError
	assert.ErrorAs(t, err, &exportErr)

	require.Len(t, m.exports, 3)
	assert.Equal(t, recordedExport{docforge.FormatPDF, ResultSuccess, len(pdf)}, m.exports[0])
	assert.Equal(t, recordedExport{docforge.FormatDOCX, ResultSuccess, len(docx)}, m.exports[1])
	assert.Equal(t, recordedExport{docforge.FormatPDF, ResultFailure, 0}, m.exports[2])

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = e.Export(cancelled, docforge.FormatPDF, nil, docforge.DefaultTheme())
	assert.ErrorIs(t, err, context.Canceled)
}
