package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/lvillar/docforge"
	"github.com/lvillar/docforge/config"
	"github.com/lvillar/docforge/export"
	"github.com/lvillar/docforge/form"
	"github.com/lvillar/docforge/media"
	"github.com/lvillar/docforge/session"
)

// exportParams describes one non-interactive export.
type exportParams struct {
	Type           string
	DataPath       string
	Format         string
	OutputPath     string
	PrimaryColor   string
	SecondaryColor string
	Font           string
	Watermark      string
	LogoPath       string
}

func newExportCmd() *cobra.Command {
	var p exportParams
	cmd := &cobra.Command{
		Use:   "export --type <type> --data <file>",
		Short: "Fill a template from a YAML or JSON data file and export it",
		Example: `  docforge export --type invoice --data invoice.yaml --format pdf
  docforge export --type nda --data nda.json --format docx --font "Playfair Display" -o nda.docx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(conf)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			if p.OutputPath == "" {
				format, err := docforge.ParseFormat(p.Format)
				if err != nil {
					return err
				}
				p.OutputPath = format.Filename()
			}

			data, err := runExport(cmd.Context(), conf, logger, p)
			if err != nil {
				return err
			}
			if err := os.WriteFile(p.OutputPath, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", p.OutputPath, err)
			}
			cmd.Printf("%s written (%d bytes)\n", p.OutputPath, len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&p.Type, "type", "t", "", "Template type, see 'docforge templates'")
	cmd.Flags().StringVarP(&p.DataPath, "data", "d", "", "YAML or JSON file mapping field ids to values")
	cmd.Flags().StringVarP(&p.Format, "format", "f", string(docforge.FormatPDF), "Output format: pdf or docx")
	cmd.Flags().StringVarP(&p.OutputPath, "output", "o", "", "Output file (default document.<format>)")
	cmd.Flags().StringVar(&p.PrimaryColor, "primary-color", "", "Primary brand color as #rrggbb")
	cmd.Flags().StringVar(&p.SecondaryColor, "secondary-color", "", "Secondary brand color as #rrggbb")
	cmd.Flags().StringVar(&p.Font, "font", "", "Brand font: Inter, Roboto, Playfair Display or Montserrat")
	cmd.Flags().StringVar(&p.Watermark, "watermark", "", "Diagonal label stamped on PDF pages")
	cmd.Flags().StringVar(&p.LogoPath, "logo", "", "Logo image file")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

// readRecord reads the form data file. Field order in the file becomes the
// order of the content blocks.
func readRecord(path string) (*form.Record, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}

	rec := form.NewRecord()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, rec)
	} else {
		err = yaml.Unmarshal(data, rec)
	}
	if err != nil {
		return nil, fmt.Errorf("parse data file %s: %w", path, err)
	}
	return rec, nil
}

// runExport drives a session through the whole workflow and returns the
// exported file.
func runExport(ctx context.Context, conf *config.Config, logger *zap.Logger, p exportParams) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	format, err := docforge.ParseFormat(p.Format)
	if err != nil {
		return nil, err
	}
	rec, err := readRecord(p.DataPath)
	if err != nil {
		return nil, err
	}

	sess := session.New(
		session.WithExporter(export.NewExporter(logger, nil, conf.ExportOptions()...)),
		session.WithImageLoader(media.NewLoader(conf.Server.MaxUploadBytes, logger)),
		session.WithLogger(logger),
	)
	if err := sess.SelectTemplate(docforge.DocumentType(p.Type)); err != nil {
		return nil, err
	}
	for _, v := range rec.Values() {
		if err := sess.UpdateField(v.ID, v.Value); err != nil {
			return nil, err
		}
	}
	if _, err := sess.Submit(); err != nil {
		return nil, err
	}

	if err := applyTheme(ctx, sess, p); err != nil {
		return nil, err
	}

	results, err := sess.Export(ctx, format)
	if err != nil {
		return nil, err
	}
	res := <-results
	return res.Data, res.Err
}

func applyTheme(ctx context.Context, sess *session.Session, p exportParams) error {
	for ch, raw := range map[docforge.Channel]string{
		docforge.ChannelPrimary:   p.PrimaryColor,
		docforge.ChannelSecondary: p.SecondaryColor,
	} {
		if raw == "" {
			continue
		}
		c, err := docforge.ParseColor(raw)
		if err != nil {
			return err
		}
		if err := sess.SetColor(ch, c); err != nil {
			return err
		}
	}
	if p.Font != "" {
		if err := sess.SetFont(docforge.Font(p.Font)); err != nil {
			return err
		}
	}
	sess.SetWatermark(p.Watermark)

	if p.LogoPath == "" {
		return nil
	}
	f, err := os.Open(filepath.Clean(p.LogoPath))
	if err != nil {
		return fmt.Errorf("open logo: %w", err)
	}
	defer f.Close()
	return <-sess.SetLogo(ctx, f)
}
