// Package templates is the registry of built-in document templates. Each
// template pairs a document type with the ordered form fields a user fills in
// to generate it.
//
// The registry is loaded once from an embedded YAML table and is read-only
// afterwards; callers receive copies and can never change a registered field.
package templates

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v2"

	"github.com/lvillar/docforge"
)

//go:embed templates.yaml
var builtin []byte

// Template describes one document type offered to the user.
type Template struct {
	Type        docforge.DocumentType `json:"type" yaml:"type"`
	Name        string                `json:"name" yaml:"name"`
	Description string                `json:"description" yaml:"description"`
	Fields      []docforge.FormField  `json:"fields" yaml:"fields"`
}

var registry = mustLoad(builtin)

func mustLoad(data []byte) []Template {
	tpls, err := load(data)
	if err != nil {
		panic(err)
	}
	return tpls
}

func load(data []byte) ([]Template, error) {
	var tpls []Template
	if err := yaml.UnmarshalStrict(data, &tpls); err != nil {
		return nil, fmt.Errorf("templates: parsing registry: %w", err)
	}

	seen := make(map[docforge.DocumentType]bool, len(tpls))
	for _, t := range tpls {
		if !t.Type.Valid() {
			return nil, fmt.Errorf("templates: %q: %w", t.Type, docforge.ErrUnknownDocumentType)
		}
		if seen[t.Type] {
			return nil, fmt.Errorf("templates: duplicate template %q", t.Type)
		}
		seen[t.Type] = true
	}
	return tpls, nil
}

// All returns every registered template in display order.
func All() []Template {
	out := make([]Template, len(registry))
	for i, t := range registry {
		out[i] = t.clone()
	}
	return out
}

// Lookup returns the template registered for t.
func Lookup(t docforge.DocumentType) (Template, error) {
	for _, tpl := range registry {
		if tpl.Type == t {
			return tpl.clone(), nil
		}
	}
	return Template{}, fmt.Errorf("templates: %q: %w", t, docforge.ErrUnknownDocumentType)
}

// Fields returns the ordered form fields of the template registered for t.
func Fields(t docforge.DocumentType) ([]docforge.FormField, error) {
	tpl, err := Lookup(t)
	if err != nil {
		return nil, err
	}
	return tpl.Fields, nil
}

func (t Template) clone() Template {
	fields := make([]docforge.FormField, len(t.Fields))
	copy(fields, t.Fields)
	t.Fields = fields
	return t
}
