package docforge

// FieldKind specifies the input widget of a form field.
type FieldKind string

const (
	KindText     FieldKind = "text"     // single-line text input
	KindNumber   FieldKind = "number"   // numeric input
	KindDate     FieldKind = "date"     // date picker
	KindTextarea FieldKind = "textarea" // multi-line text input
)

// FormField describes one input of a template form.
type FormField struct {
	ID          string    `json:"id" yaml:"id"`
	Label       string    `json:"label" yaml:"label"`
	Kind        FieldKind `json:"type" yaml:"type"`
	Placeholder string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty"`
}

// FormValue is one submitted form entry.
type FormValue struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}
