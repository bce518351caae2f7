package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/lvillar/docforge"
	"github.com/lvillar/docforge/templates"
)

func newTemplatesCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "templates [type]",
		Short: "List the document templates, or the fields of one template",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if len(args) == 0 {
				return printTemplates(w, templates.All(), output)
			}
			tpl, err := templates.Lookup(docforge.DocumentType(args[0]))
			if err != nil {
				return err
			}
			return printFields(w, tpl, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "One of 'json'")
	return cmd
}

func newTableWriter() table.Writer {
	tw := table.NewWriter()
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateColumns = false
	tw.Style().Options.SeparateFooter = false
	tw.Style().Options.SeparateHeader = false
	tw.Style().Options.SeparateRows = false
	return tw
}

func printJSON(w io.Writer, v interface{}) error {
	marshalled, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.New("failed to marshal JSON")
	}
	_, err = fmt.Fprintln(w, string(marshalled))
	return err
}

func printTemplates(w io.Writer, tpls []templates.Template, output string) error {
	switch output {
	case "json":
		return printJSON(w, tpls)
	case "":
	default:
		return errors.New(`unknown output format, use "json"`)
	}

	tw := newTableWriter()
	tw.AppendHeader(table.Row{"TYPE", "NAME", "FIELDS", "DESCRIPTION"})
	for _, t := range tpls {
		tw.AppendRow(table.Row{t.Type, t.Name, len(t.Fields), t.Description})
	}
	_, err := fmt.Fprintf(w, "%s\n", tw.Render())
	return err
}

func printFields(w io.Writer, tpl templates.Template, output string) error {
	switch output {
	case "json":
		return printJSON(w, tpl)
	case "":
	default:
		return errors.New(`unknown output format, use "json"`)
	}

	tw := newTableWriter()
	tw.AppendHeader(table.Row{"ID", "LABEL", "TYPE", "REQUIRED"})
	for _, f := range tpl.Fields {
		tw.AppendRow(table.Row{f.ID, f.Label, f.Kind, f.Required})
	}
	_, err := fmt.Fprintf(w, "%s\n", tw.Render())
	return err
}
