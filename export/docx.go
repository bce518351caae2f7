package export

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lvillar/docforge"
)

// Run sizes are in half-points, spacing in twentieths of a point.
const (
	docxHeaderSize    = 20
	docxHeadingSize   = 36
	docxTextSize      = 24
	docxHeadingBefore = 400
	docxHeadingAfter  = 200
	docxTextBefore    = 200
	docxTextAfter     = 200
	docxBorderSize    = 6
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
  <Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
  <Override PartName="/word/header1.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.header+xml"/>
  <Override PartName="/word/footer1.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
  <Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/header" Target="header1.xml"/>
  <Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer" Target="footer1.xml"/>
</Relationships>`

const (
	xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
	nsW       = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`
	nsR       = `xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`
)

// DOCX writes components as a WordprocessingML package to w.
//
// Every page carries a header with the export date, right-aligned, and a
// centered copyright footer. Headings become bold paragraphs in the primary
// color with a bottom border; text blocks become paragraphs in the secondary
// color. Any other block becomes an empty paragraph so the block keeps its
// place in the document.
func DOCX(w io.Writer, components docforge.List, theme docforge.Theme, opts ...Option) error {
	cfg := newConfig(opts)
	ps, err := lookupPageSize(cfg.pageSize)
	if err != nil {
		return docforge.NewExportError(docforge.FormatDOCX, "setup", err)
	}
	now := cfg.now()

	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/_rels/document.xml.rels", documentRelsXML},
		{"word/styles.xml", stylesXML(theme.FontFamily)},
		{"word/header1.xml", headerXML(now, theme)},
		{"word/footer1.xml", footerXML(now, cfg.company, theme)},
		{"word/document.xml", documentXML(components, theme, ps)},
	}

	zw := zip.NewWriter(w)
	for _, p := range parts {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     p.name,
			Method:   zip.Deflate,
			Modified: now,
		})
		if err != nil {
			return docforge.NewExportError(docforge.FormatDOCX, p.name, err)
		}
		if _, err := io.WriteString(fw, p.body); err != nil {
			return docforge.NewExportError(docforge.FormatDOCX, p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return docforge.NewExportError(docforge.FormatDOCX, "output", err)
	}
	return nil
}

func stylesXML(font docforge.Font) string {
	f := escape(string(font))
	return xmlHeader + `<w:styles ` + nsW + `>` +
		`<w:docDefaults><w:rPrDefault><w:rPr>` +
		`<w:rFonts w:ascii="` + f + `" w:hAnsi="` + f + `" w:cs="` + f + `"/>` +
		`</w:rPr></w:rPrDefault></w:docDefaults>` +
		`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:qFormat/></w:style>` +
		`</w:styles>`
}

func headerXML(now time.Time, theme docforge.Theme) string {
	return xmlHeader + `<w:hdr ` + nsW + `>` +
		`<w:p><w:pPr><w:jc w:val="right"/></w:pPr>` +
		run(now.Format("1/2/2006"), runStyle{color: theme.SecondaryColor, size: docxHeaderSize}) +
		`</w:p></w:hdr>`
}

func footerXML(now time.Time, company string, theme docforge.Theme) string {
	text := fmt.Sprintf("© %d %s", now.Year(), company)
	return xmlHeader + `<w:ftr ` + nsW + `>` +
		`<w:p><w:pPr><w:jc w:val="center"/></w:pPr>` +
		run(text, runStyle{color: theme.SecondaryColor, size: docxHeaderSize}) +
		`</w:p></w:ftr>`
}

func documentXML(components docforge.List, theme docforge.Theme, ps pageSize) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<w:document ` + nsW + ` ` + nsR + `><w:body>`)

	for _, c := range components {
		b.WriteString(paragraph(c, theme))
	}

	fmt.Fprintf(&b, `<w:sectPr>`+
		`<w:headerReference w:type="default" r:id="rId2"/>`+
		`<w:footerReference w:type="default" r:id="rId3"/>`+
		`<w:pgSz w:w="%d" w:h="%d"/>`+
		`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="708" w:footer="708" w:gutter="0"/>`+
		`</w:sectPr>`, ps.twipsW, ps.twipsH)
	b.WriteString(`</w:body></w:document>`)
	return b.String()
}

func paragraph(c docforge.Component, theme docforge.Theme) string {
	switch v := c.Content.(type) {
	case docforge.Heading:
		color := docxColor(theme.PrimaryColor)
		return `<w:p><w:pPr>` +
			fmt.Sprintf(`<w:pBdr><w:bottom w:val="single" w:sz="%d" w:space="1" w:color="%s"/></w:pBdr>`, docxBorderSize, color) +
			fmt.Sprintf(`<w:spacing w:before="%d" w:after="%d"/>`, docxHeadingBefore, docxHeadingAfter) +
			`</w:pPr>` +
			run(string(v), runStyle{bold: true, color: theme.PrimaryColor, size: docxHeadingSize}) +
			`</w:p>`

	case docforge.Text:
		return `<w:p><w:pPr>` +
			fmt.Sprintf(`<w:spacing w:before="%d" w:after="%d"/>`, docxTextBefore, docxTextAfter) +
			`</w:pPr>` +
			run(string(v), runStyle{color: theme.SecondaryColor, size: docxTextSize}) +
			`</w:p>`
	}
	return `<w:p><w:r><w:t xml:space="preserve"></w:t></w:r></w:p>`
}

type runStyle struct {
	bold  bool
	color docforge.Color
	size  int
}

// run renders text as a single run. Line breaks in text become <w:br/>.
func run(text string, st runStyle) string {
	var b strings.Builder
	b.WriteString(`<w:r><w:rPr>`)
	if st.bold {
		b.WriteString(`<w:b/>`)
	}
	fmt.Fprintf(&b, `<w:color w:val="%s"/><w:sz w:val="%d"/><w:szCs w:val="%d"/>`, docxColor(st.color), st.size, st.size)
	b.WriteString(`</w:rPr>`)
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteString(`<w:br/>`)
		}
		b.WriteString(`<w:t xml:space="preserve">` + escape(line) + `</w:t>`)
	}
	b.WriteString(`</w:r>`)
	return b.String()
}

func docxColor(c docforge.Color) string {
	return strings.ToUpper(strings.TrimPrefix(c.Hex(), "#"))
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
