package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lvillar/docforge"
	"github.com/lvillar/docforge/session"
	"github.com/lvillar/docforge/templates"
)

// RegisterDefaultTools adds every document editing tool to the server. The
// tools operate on sessions held by store.
func RegisterDefaultTools(s *Server, store *session.Store) {
	s.AddTool(listTemplatesTool())
	s.AddTool(createDocumentTool(store))
	s.AddTool(selectTemplateTool(store))
	s.AddTool(updateFieldTool(store))
	s.AddTool(submitFormTool(store))
	s.AddTool(reorderComponentsTool(store))
	s.AddTool(editComponentTool(store))
	s.AddTool(addImageTool(store))
	s.AddTool(setThemeTool(store))
	s.AddTool(exportDocumentTool(store))
	s.AddTool(deleteDocumentTool(store))
}

func schema(required []string, props map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}

func enumProp(description string, values ...string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description, "enum": values}
}

func stringArg(args map[string]interface{}, name string) (string, error) {
	v, ok := args[name].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("missing '%s' argument", name)
	}
	return v, nil
}

func optionalString(args map[string]interface{}, name string) (string, bool) {
	v, ok := args[name].(string)
	return v, ok
}

func sessionArg(store *session.Store, args map[string]interface{}) (*session.Session, error) {
	id, err := stringArg(args, "documentId")
	if err != nil {
		return nil, err
	}
	return store.Get(id)
}

func textResult(format string, a ...interface{}) ToolResult {
	return ToolResult{Content: []ContentBlock{{Type: "text", Text: fmt.Sprintf(format, a...)}}}
}

func jsonResult(summary string, v interface{}) (ToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ToolResult{}, fmt.Errorf("encoding result: %w", err)
	}
	return ToolResult{Content: []ContentBlock{
		{Type: "text", Text: summary},
		{Type: "text", Text: string(data), MIMEType: "application/json"},
	}}, nil
}

var documentIDProp = prop("string", "Document id returned by create_document")

func documentTypeNames() []string {
	types := docforge.DocumentTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}

func listTemplatesTool() Tool {
	return Tool{
		Name:        "list_templates",
		Description: "List the document templates (invoice, contract, NDA, ...) with their form fields.",
		InputSchema: schema(nil, map[string]interface{}{}),
		Handler: func(context.Context, map[string]interface{}) (ToolResult, error) {
			all := templates.All()
			return jsonResult(fmt.Sprintf("%d templates available", len(all)), all)
		},
	}
}

func createDocumentTool(store *session.Store) Tool {
	return Tool{
		Name:        "create_document",
		Description: "Start a new document. If a template type is given its form is ready to be filled in with update_field.",
		InputSchema: schema(nil, map[string]interface{}{
			"type": enumProp("Template type", documentTypeNames()...),
		}),
		Handler: func(_ context.Context, args map[string]interface{}) (ToolResult, error) {
			var t docforge.DocumentType
			if raw, ok := optionalString(args, "type"); ok && raw != "" {
				parsed, err := docforge.ParseDocumentType(raw)
				if err != nil {
					return ToolResult{}, err
				}
				t = parsed
			}
			sess, err := store.Create()
			if err != nil {
				return ToolResult{}, err
			}
			if t != "" {
				if err := sess.SelectTemplate(t); err != nil {
					return ToolResult{}, err
				}
			}
			return jsonResult(fmt.Sprintf("Document created: %s", sess.ID()), sess.Snapshot())
		},
	}
}

func selectTemplateTool(store *session.Store) Tool {
	return Tool{
		Name:        "select_template",
		Description: "Switch a document to another template. The form and the content are reset; branding is kept.",
		InputSchema: schema([]string{"documentId", "type"}, map[string]interface{}{
			"documentId": documentIDProp,
			"type":       enumProp("Template type", documentTypeNames()...),
		}),
		Handler: func(_ context.Context, args map[string]interface{}) (ToolResult, error) {
			sess, err := sessionArg(store, args)
			if err != nil {
				return ToolResult{}, err
			}
			raw, err := stringArg(args, "type")
			if err != nil {
				return ToolResult{}, err
			}
			if err := sess.SelectTemplate(docforge.DocumentType(raw)); err != nil {
				return ToolResult{}, err
			}
			inputs, err := sess.Form()
			if err != nil {
				return ToolResult{}, err
			}
			fields := make([]docforge.FormField, len(inputs))
			for i, in := range inputs {
				fields[i] = in.Field
			}
			return jsonResult(fmt.Sprintf("Template %s selected", raw), fields)
		},
	}
}

func updateFieldTool(store *session.Store) Tool {
	return Tool{
		Name:        "update_field",
		Description: "Set the value of one form field of a document.",
		InputSchema: schema([]string{"documentId", "field", "value"}, map[string]interface{}{
			"documentId": documentIDProp,
			"field":      prop("string", "Field id, e.g. clientName"),
			"value":      prop("string", "Field value"),
		}),
		Handler: func(_ context.Context, args map[string]interface{}) (ToolResult, error) {
			sess, err := sessionArg(store, args)
			if err != nil {
				return ToolResult{}, err
			}
			field, err := stringArg(args, "field")
			if err != nil {
				return ToolResult{}, err
			}
			value, ok := optionalString(args, "value")
			if !ok {
				return ToolResult{}, fmt.Errorf("missing 'value' argument")
			}
			if err := sess.UpdateField(field, value); err != nil {
				return ToolResult{}, err
			}
			return textResult("Field %s updated", field), nil
		},
	}
}

func submitFormTool(store *session.Store) Tool {
	return Tool{
		Name:        "submit_form",
		Description: "Turn the filled-in form into the document's content blocks, replacing any existing ones.",
		InputSchema: schema([]string{"documentId"}, map[string]interface{}{
			"documentId": documentIDProp,
		}),
		Handler: func(_ context.Context, args map[string]interface{}) (ToolResult, error) {
			sess, err := sessionArg(store, args)
			if err != nil {
				return ToolResult{}, err
			}
			list, err := sess.Submit()
			if err != nil {
				return ToolResult{}, err
			}
			return jsonResult(fmt.Sprintf("%d components created", len(list)), list)
		},
	}
}

func reorderComponentsTool(store *session.Store) Tool {
	return Tool{
		Name:        "reorder_components",
		Description: "Move a content block to the position of another block.",
		InputSchema: schema([]string{"documentId", "activeId", "overId"}, map[string]interface{}{
			"documentId": documentIDProp,
			"activeId":   prop("string", "Id of the block to move"),
			"overId":     prop("string", "Id of the block whose position it takes"),
		}),
		Handler: func(_ context.Context, args map[string]interface{}) (ToolResult, error) {
			sess, err := sessionArg(store, args)
			if err != nil {
				return ToolResult{}, err
			}
			active, err := stringArg(args, "activeId")
			if err != nil {
				return ToolResult{}, err
			}
			over, err := stringArg(args, "overId")
			if err != nil {
				return ToolResult{}, err
			}
			if err := sess.Reorder(active, over); err != nil {
				return ToolResult{}, err
			}
			return jsonResult("Components reordered", sess.Components())
		},
	}
}

func editComponentTool(store *session.Store) Tool {
	return Tool{
		Name:        "edit_component",
		Description: "Replace the text of a heading or text block.",
		InputSchema: schema([]string{"documentId", "componentId", "text"}, map[string]interface{}{
			"documentId":  documentIDProp,
			"componentId": prop("string", "Id of the block to edit"),
			"text":        prop("string", "New text"),
		}),
		Handler: func(_ context.Context, args map[string]interface{}) (ToolResult, error) {
			sess, err := sessionArg(store, args)
			if err != nil {
				return ToolResult{}, err
			}
			id, err := stringArg(args, "componentId")
			if err != nil {
				return ToolResult{}, err
			}
			text, ok := optionalString(args, "text")
			if !ok {
				return ToolResult{}, fmt.Errorf("missing 'text' argument")
			}
			if err := sess.EditText(id, text); err != nil {
				return ToolResult{}, err
			}
			return textResult("Component %s updated", id), nil
		},
	}
}

func addImageTool(store *session.Store) Tool {
	return Tool{
		Name:        "add_image",
		Description: "Add an image block read from a local file at the end of the document, or replace the image of an existing image block.",
		InputSchema: schema([]string{"documentId", "componentId", "path"}, map[string]interface{}{
			"documentId":  documentIDProp,
			"componentId": prop("string", "Id of the image block"),
			"path":        prop("string", "Path to a PNG, JPEG, GIF, BMP, TIFF or WebP file"),
			"replace":     prop("boolean", "Replace an existing image block instead of adding one"),
		}),
		Handler: func(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
			sess, err := sessionArg(store, args)
			if err != nil {
				return ToolResult{}, err
			}
			id, err := stringArg(args, "componentId")
			if err != nil {
				return ToolResult{}, err
			}
			path, err := stringArg(args, "path")
			if err != nil {
				return ToolResult{}, err
			}
			f, err := os.Open(path)
			if err != nil {
				return ToolResult{}, fmt.Errorf("opening image: %w", err)
			}
			defer f.Close()

			replace, _ := args["replace"].(bool)
			var done <-chan error
			if replace {
				done = sess.ReplaceImage(ctx, id, f)
			} else {
				done = sess.AppendImage(ctx, id, f)
			}
			if err := <-done; err != nil {
				return ToolResult{}, err
			}
			return textResult("Image %s loaded from %s", id, path), nil
		},
	}
}

func setThemeTool(store *session.Store) Tool {
	return Tool{
		Name:        "set_theme",
		Description: "Change the branding of a document. Only the given settings change. An empty watermark removes it; an empty logoPath removes the logo.",
		InputSchema: schema([]string{"documentId"}, map[string]interface{}{
			"documentId":     documentIDProp,
			"primaryColor":   prop("string", "Primary color as #rrggbb"),
			"secondaryColor": prop("string", "Secondary color as #rrggbb"),
			"font":           enumProp("Font family", fontNames()...),
			"watermark":      prop("string", "Diagonal label stamped on PDF pages"),
			"logoPath":       prop("string", "Path to a logo image file"),
		}),
		Handler: func(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
			sess, err := sessionArg(store, args)
			if err != nil {
				return ToolResult{}, err
			}

			// validate everything before changing anything
			colors := make(map[docforge.Channel]docforge.Color, 2)
			for ch, key := range map[docforge.Channel]string{
				docforge.ChannelPrimary:   "primaryColor",
				docforge.ChannelSecondary: "secondaryColor",
			} {
				if raw, ok := optionalString(args, key); ok {
					c, err := docforge.ParseColor(raw)
					if err != nil {
						return ToolResult{}, err
					}
					colors[ch] = c
				}
			}
			font, hasFont := optionalString(args, "font")
			if hasFont && !docforge.Font(font).Valid() {
				return ToolResult{}, fmt.Errorf("%q: %w", font, docforge.ErrUnsupportedFont)
			}

			if logoPath, ok := optionalString(args, "logoPath"); ok {
				if logoPath == "" {
					sess.RemoveLogo()
				} else {
					f, err := os.Open(logoPath)
					if err != nil {
						return ToolResult{}, fmt.Errorf("opening logo: %w", err)
					}
					err = <-sess.SetLogo(ctx, f)
					f.Close()
					if err != nil {
						return ToolResult{}, err
					}
				}
			}
			for ch, c := range colors {
				if err := sess.SetColor(ch, c); err != nil {
					return ToolResult{}, err
				}
			}
			if hasFont {
				if err := sess.SetFont(docforge.Font(font)); err != nil {
					return ToolResult{}, err
				}
			}
			if label, ok := optionalString(args, "watermark"); ok {
				sess.SetWatermark(label)
			}
			return jsonResult("Theme updated", sess.Theme())
		},
	}
}

func fontNames() []string {
	fonts := docforge.Fonts()
	names := make([]string, len(fonts))
	for i, f := range fonts {
		names[i] = string(f)
	}
	return names
}

func exportDocumentTool(store *session.Store) Tool {
	return Tool{
		Name:        "export_document",
		Description: "Export a document as PDF or DOCX. Returns the file as base64 unless outputPath is given.",
		InputSchema: schema([]string{"documentId", "format"}, map[string]interface{}{
			"documentId": documentIDProp,
			"format":     enumProp("Output format", string(docforge.FormatPDF), string(docforge.FormatDOCX)),
			"outputPath": prop("string", "Optional file path to save the document. If omitted, returns base64."),
		}),
		Handler: func(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
			sess, err := sessionArg(store, args)
			if err != nil {
				return ToolResult{}, err
			}
			raw, err := stringArg(args, "format")
			if err != nil {
				return ToolResult{}, err
			}
			format, err := docforge.ParseFormat(raw)
			if err != nil {
				return ToolResult{}, err
			}

			results, err := sess.Export(ctx, format)
			if err != nil {
				return ToolResult{}, err
			}
			res := <-results
			if res.Err != nil {
				return ToolResult{}, res.Err
			}

			if outputPath, ok := optionalString(args, "outputPath"); ok && outputPath != "" {
				if err := os.WriteFile(outputPath, res.Data, 0o644); err != nil {
					return ToolResult{}, fmt.Errorf("writing file: %w", err)
				}
				return textResult("Document exported successfully: %s (%d bytes)", outputPath, len(res.Data)), nil
			}

			return ToolResult{Content: []ContentBlock{
				{Type: "text", Text: fmt.Sprintf("Document exported successfully as %s (%d bytes)", format.Filename(), len(res.Data))},
				{Type: "resource", MIMEType: format.MIMEType(), Data: base64.StdEncoding.EncodeToString(res.Data)},
			}}, nil
		},
	}
}

func deleteDocumentTool(store *session.Store) Tool {
	return Tool{
		Name:        "delete_document",
		Description: "Discard a document and its editing session.",
		InputSchema: schema([]string{"documentId"}, map[string]interface{}{
			"documentId": documentIDProp,
		}),
		Handler: func(_ context.Context, args map[string]interface{}) (ToolResult, error) {
			id, err := stringArg(args, "documentId")
			if err != nil {
				return ToolResult{}, err
			}
			if err := store.Delete(id); err != nil {
				return ToolResult{}, err
			}
			return textResult("Document %s deleted", id), nil
		},
	}
}
