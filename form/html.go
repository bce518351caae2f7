package form

import (
	"html/template"
	"io"
)

var formTemplate = template.Must(template.New("form").Parse(`<form class="document-form" method="post">
{{- range .}}
  <div class="field">
    <label for="{{.Field.ID}}">{{.Field.Label}}</label>
    {{- if .Multiline}}
    <textarea id="{{.Field.ID}}" name="{{.Field.ID}}"{{with .Field.Placeholder}} placeholder="{{.}}"{{end}}{{if .Field.Required}} required{{end}}>{{.Value}}</textarea>
    {{- else}}
    <input type="{{.Field.Kind}}" id="{{.Field.ID}}" name="{{.Field.ID}}" value="{{.Value}}"{{with .Field.Placeholder}} placeholder="{{.}}"{{end}}{{if .Field.Required}} required{{end}}>
    {{- end}}
  </div>
{{- end}}
  <button type="submit">Generate Document</button>
</form>
`))

// RenderHTML writes the inputs returned by Render as an HTML form fragment.
func (c *Collector) RenderHTML(w io.Writer) error {
	return formTemplate.Execute(w, c.Render())
}
