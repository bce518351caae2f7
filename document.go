// Package docforge holds the in-memory document model shared by every part of
// the document generator: document types, content blocks, branding themes and
// the form field descriptors that templates are built from.
//
// A Document is created once a template type is chosen and its form submitted.
// It lives only as long as the editing session that owns it; nothing in this
// package persists state.
//
//	doc, err := docforge.NewDocument(docforge.TypeInvoice,
//	    docforge.WithTitle("Invoice #1234"),
//	)
//	doc.Components = docforge.BuildFromFormData(values, fields)
//	doc.Components, _ = doc.Components.Reorder("description", "invoiceNumber")
package docforge

import (
	"fmt"
	"strings"
	"time"
)

// DocumentType identifies one of the fixed document templates.
type DocumentType string

// Supported document types.
const (
	TypeInvoice      DocumentType = "invoice"
	TypeContract     DocumentType = "contract"
	TypeNDA          DocumentType = "nda"
	TypeProposal     DocumentType = "proposal"
	TypeSocialMedia  DocumentType = "socialMedia"
	TypePricing      DocumentType = "pricing"
	TypeBusinessPlan DocumentType = "businessPlan"
)

var documentTypes = []DocumentType{
	TypeInvoice,
	TypeContract,
	TypeNDA,
	TypeProposal,
	TypeSocialMedia,
	TypePricing,
	TypeBusinessPlan,
}

// DocumentTypes returns every supported document type in display order.
func DocumentTypes() []DocumentType {
	types := make([]DocumentType, len(documentTypes))
	copy(types, documentTypes)
	return types
}

// Valid reports whether t is one of the supported document types.
func (t DocumentType) Valid() bool {
	for _, dt := range documentTypes {
		if dt == t {
			return true
		}
	}
	return false
}

// ParseDocumentType converts s into a DocumentType.
func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%q: %w", s, ErrUnknownDocumentType)
	}
	return t, nil
}

// Document is the root of one editing session: its identity, the template it
// was built from, the branding theme and the ordered content blocks.
type Document struct {
	ID         string       `json:"id"`
	Type       DocumentType `json:"type"`
	Title      string       `json:"title"`
	CreatedAt  time.Time    `json:"createdAt"`
	Theme      Theme        `json:"theme"`
	Components List         `json:"components"`
}

// Format is an export output format.
type Format string

// Supported export formats.
const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// ParseFormat converts s into a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatPDF, FormatDOCX:
		return f, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownFormat)
}

// Filename returns the download name for an exported document.
func (f Format) Filename() string {
	return "document." + string(f)
}

// MIMEType returns the content type of an exported document.
func (f Format) MIMEType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	return "application/octet-stream"
}
