package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/lvillar/docforge"
)

// Page geometry in millimetres.
const (
	marginX      = 20.0
	marginTop    = 20.0
	contentW     = 170.0
	ruleEndX     = marginX + contentW
	breakY       = 270.0 // cursor threshold for a new page
	footerY      = 290.0
	logoSize     = 40.0
	logoAdvance  = 50.0
	ruleAdvance  = 10.0
	blockSpacing = 5.0

	headingSize    = 24.0
	headingAdvance = 15.0
	textSize       = 12.0
	textLine       = 10.0
	imageW         = contentW
	imageH         = 100.0
	imageAdvance   = 110.0
	footerSize     = 10.0
	footerGray     = 150
)

// PDF lays out components top to bottom on A4 (or the configured page size)
// pages and writes the result to w.
//
// An optional logo opens the first page, followed by a rule in the primary
// color. Headings are set large and bold in the primary color, text blocks
// wrap to the content width in the secondary color and images fill a fixed
// box. Table and signature blocks are skipped. Every page carries a
// "Page i of N" footer and, when the theme has one, a diagonal watermark.
func PDF(w io.Writer, components docforge.List, theme docforge.Theme, opts ...Option) error {
	cfg := newConfig(opts)
	ps, err := lookupPageSize(cfg.pageSize)
	if err != nil {
		return docforge.NewExportError(docforge.FormatPDF, "setup", err)
	}

	pdf := gofpdf.New("P", "mm", ps.name, "")
	pdf.SetCompression(cfg.compress)
	pdf.SetCreationDate(cfg.now())
	pdf.SetCatalogSort(true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(marginX, marginTop, marginX)
	pdf.AliasNbPages("")

	l := &layout{
		pdf:    pdf,
		theme:  theme,
		family: coreFont(theme.FontFamily),
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
	}
	pdf.SetFooterFunc(l.footer)

	pdf.AddPage()
	l.y = marginTop

	if !theme.Logo.Empty() {
		if err := l.image("logo", theme.Logo, marginX, l.y, logoSize, logoSize); err != nil {
			return docforge.NewExportError(docforge.FormatPDF, "logo", err)
		}
		l.y += logoAdvance
	}

	pdf.SetDrawColor(theme.PrimaryColor.RGB())
	pdf.SetLineWidth(0.5)
	pdf.Line(marginX, l.y, ruleEndX, l.y)
	l.y += ruleAdvance

	for _, c := range components {
		if err := l.block(c); err != nil {
			return docforge.NewExportError(docforge.FormatPDF, "block "+c.ID, err)
		}
		l.y += blockSpacing
		if l.y > breakY {
			l.newPage()
		}
	}

	if pdf.Err() {
		return docforge.NewExportError(docforge.FormatPDF, "layout", pdf.Error())
	}
	if err := pdf.Output(w); err != nil {
		return docforge.NewExportError(docforge.FormatPDF, "output", err)
	}
	return nil
}

// coreFont maps a brand font onto the closest built-in PDF font.
func coreFont(f docforge.Font) string {
	if f.Serif() {
		return "Times"
	}
	return "Helvetica"
}

type layout struct {
	pdf    *gofpdf.Fpdf
	theme  docforge.Theme
	family string
	tr     func(string) string
	y      float64
}

func (l *layout) newPage() {
	l.pdf.AddPage()
	l.y = marginTop
}

func (l *layout) block(c docforge.Component) error {
	pdf := l.pdf
	switch v := c.Content.(type) {
	case docforge.Heading:
		pdf.SetFont(l.family, "B", headingSize)
		pdf.SetTextColor(l.theme.PrimaryColor.RGB())
		pdf.Text(marginX, l.y, l.tr(string(v)))
		l.y += headingAdvance

	case docforge.Text:
		pdf.SetFont(l.family, "", textSize)
		pdf.SetTextColor(l.theme.SecondaryColor.RGB())
		lines := pdf.SplitLines([]byte(l.tr(string(v))), contentW)
		if len(lines) == 0 {
			l.y += textLine
			break
		}
		for _, line := range lines {
			if l.y > breakY {
				l.newPage()
				pdf.SetFont(l.family, "", textSize)
				pdf.SetTextColor(l.theme.SecondaryColor.RGB())
			}
			pdf.Text(marginX, l.y, string(line))
			l.y += textLine
		}

	case *docforge.Image:
		if l.y+imageH > breakY {
			l.newPage()
		}
		if !v.Empty() {
			if err := l.image("block:"+c.ID, v, marginX, l.y, imageW, imageH); err != nil {
				return err
			}
		}
		l.y += imageAdvance
	}
	return nil
}

func (l *layout) image(name string, img *docforge.Image, x, y, w, h float64) error {
	typ := img.ImageType()
	if typ == "" {
		return fmt.Errorf("%s: %w", img.MIME, docforge.ErrUnsupportedImage)
	}
	opt := gofpdf.ImageOptions{ImageType: typ}
	l.pdf.RegisterImageOptionsReader(name, opt, bytes.NewReader(img.Data))
	if l.pdf.Err() {
		return l.pdf.Error()
	}
	l.pdf.ImageOptions(name, x, y, w, h, false, opt, 0, "")
	return l.pdf.Error()
}

// footer runs once per page when the page is closed. The total page count is
// written as an alias and resolved when the document is output.
func (l *layout) footer() {
	if l.theme.Watermark != "" {
		l.watermark(l.theme.Watermark)
	}

	pdf := l.pdf
	pdf.SetFont(l.family, "", footerSize)
	pdf.SetTextColor(footerGray, footerGray, footerGray)
	pdf.Text(marginX, footerY, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()))
}
