// Package form collects user input for a document template.
//
// A Collector renders one labeled input per template field, accumulates the
// values typed into them and hands the accumulated Record to the caller on
// submit. Submission is never blocked: required flags are advisory and
// Missing reports them for callers that want to warn.
package form

import (
	"strings"

	"github.com/lvillar/docforge"
)

// Input is one rendered form input: the field descriptor and its current value.
type Input struct {
	Field docforge.FormField
	Value string
}

// Multiline reports whether the input renders as a multi-line text area.
func (in Input) Multiline() bool {
	return in.Field.Kind == docforge.KindTextarea
}

// Collector accumulates form values for a fixed list of fields.
// It is not safe for concurrent use; callers serialize access.
type Collector struct {
	fields []docforge.FormField
	record *Record
}

// New returns a collector for fields with no values entered.
func New(fields []docforge.FormField) *Collector {
	fs := make([]docforge.FormField, len(fields))
	copy(fs, fields)
	return &Collector{fields: fs, record: &Record{}}
}

// Fields returns the field descriptors in render order.
func (c *Collector) Fields() []docforge.FormField {
	out := make([]docforge.FormField, len(c.fields))
	copy(out, c.fields)
	return out
}

// Render returns one input per field, in field order, pre-populated with the
// value entered so far or blank.
func (c *Collector) Render() []Input {
	inputs := make([]Input, len(c.fields))
	for i, f := range c.fields {
		v, _ := c.record.Get(f.ID)
		inputs[i] = Input{Field: f, Value: v}
	}
	return inputs
}

// UpdateField merges one value into the accumulated record. Other keys are
// left untouched. A key seen for the first time is appended; a key already
// present keeps its position.
func (c *Collector) UpdateField(id, value string) {
	c.record.Set(id, value)
}

// Submit returns a copy of the accumulated record. Keys appear in the order
// they were first edited; fields never touched are absent.
func (c *Collector) Submit() *Record {
	return c.record.Clone()
}

// Missing returns the ids of required fields that are absent or blank.
func (c *Collector) Missing() []string {
	var missing []string
	for _, f := range c.fields {
		if !f.Required {
			continue
		}
		if v, _ := c.record.Get(f.ID); strings.TrimSpace(v) == "" {
			missing = append(missing, f.ID)
		}
	}
	return missing
}
