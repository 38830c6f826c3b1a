/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: writer.go
Description: Report writer. Renders reports as text, JSON, YAML, CSV, HTML or PDF into any
io.Writer, or into files on an afero filesystem.
*/

package reporting

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/flosch/pongo2/v5"
	"github.com/kleascm/gcode-analyzer/pkg/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Config holds the report output settings
type Config struct {
	OutputDir    string        `json:"output_dir" mapstructure:"output_dir"`       // Destination for WriteFile
	Title        string        `json:"title" mapstructure:"title"`                 // Report heading
	TextTemplate string        `json:"text_template" mapstructure:"text_template"` // pongo2 template file replacing the built-in text summary
	PDFTimeout   time.Duration `json:"pdf_timeout" mapstructure:"pdf_timeout"`     // Upper bound on browser rendering
}

// DefaultConfig returns the report defaults
func DefaultConfig() Config {
	return Config{
		OutputDir:  "reports",
		Title:      "G-code Analysis",
		PDFTimeout: 30 * time.Second,
	}
}

// kindCount is one line of the warning tally in the text summary
type kindCount struct {
	Kind  string
	Count int
}

// layerHeader is the CSV column order
var layerHeader = []string{
	"index", "z", "thickness", "command_count", "extrusion_volume", "travel_distance",
	"print_time", "extrusion_distance", "extrusion_time", "travel_time", "extrusion_moves",
	"travel_moves", "arc_moves", "retractions", "filament_length", "infill_volume",
	"pattern", "pattern_confidence", "infill_density", "anomalous", "indeterminate_time",
}

// Writer renders reports. It is safe for concurrent use.
type Writer struct {
	fs       afero.Fs
	config   Config
	logger   logrus.FieldLogger
	html     *template.Template
	text     *pongo2.Template
	renderer Renderer
}

// NewWriter parses the templates and returns a writer. A nil logger discards output.
func NewWriter(fs afero.Fs, config Config, logger logrus.FieldLogger) (*Writer, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	html, err := template.New("report").Funcs(template.FuncMap{
		"f1":  func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) },
		"f2":  func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
		"f3":  func(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) },
		"pct": func(v float64) string { return strconv.FormatFloat(v*100, 'f', 0, 64) + "%" },
	}).Parse(htmlTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html template: %w", err)
	}

	source := textTemplate
	if config.TextTemplate != "" {
		data, err := afero.ReadFile(fs, config.TextTemplate)
		if err != nil {
			return nil, fmt.Errorf("failed to read text template: %w", err)
		}
		source = string(data)
	}
	text, err := pongo2.FromString(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse text template: %w", err)
	}

	return &Writer{
		fs:       fs,
		config:   config,
		logger:   logger,
		html:     html,
		text:     text,
		renderer: NewChromeRenderer(config.PDFTimeout),
	}, nil
}

// SetRenderer replaces the PDF renderer
func (w *Writer) SetRenderer(r Renderer) {
	w.renderer = r
}

// Render writes the report in the given format
func (w *Writer) Render(ctx context.Context, out io.Writer, report *Report, format Format) error {
	switch format {
	case FormatText:
		return w.renderText(out, report)
	case FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case FormatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case FormatCSV:
		return w.renderCSV(out, report)
	case FormatHTML:
		return w.html.Execute(out, report)
	case FormatPDF:
		return w.renderPDF(ctx, out, report)
	default:
		return fmt.Errorf("unsupported output format: %q", format)
	}
}

// WriteFile renders the report into OutputDir and returns the file path
func (w *Writer) WriteFile(ctx context.Context, report *Report, format Format) (string, error) {
	if err := w.fs.MkdirAll(w.config.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(w.config.OutputDir, FileName(report, format))
	var buf bytes.Buffer
	if err := w.Render(ctx, &buf, report, format); err != nil {
		return "", fmt.Errorf("failed to render %s report: %w", format, err)
	}
	if err := afero.WriteFile(w.fs, path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	w.logger.WithFields(logrus.Fields{
		"path":   path,
		"format": format,
		"bytes":  buf.Len(),
	}).Info("Report written")
	return path, nil
}

// FileName derives "<source base>-<short id>.<ext>" for a report
func FileName(report *Report, format Format) string {
	base := strings.TrimSuffix(filepath.Base(report.Source), filepath.Ext(report.Source))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "report"
	}
	id := report.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s-%s%s", base, id, format.Extension())
}

func (w *Writer) renderText(out io.Writer, report *Report) error {
	kinds := make([]kindCount, 0, len(report.Summary.WarningCounts))
	for _, k := range report.Summary.WarningKinds() {
		kinds = append(kinds, kindCount{Kind: k, Count: report.Summary.WarningCounts[k]})
	}

	return w.text.ExecuteWriter(pongo2.Context{
		"report":        report,
		"summary":       report.Summary,
		"suggestions":   report.Suggestions(),
		"warning_kinds": kinds,
	}, out)
}

// renderCSV writes one row per layer
func (w *Writer) renderCSV(out io.Writer, report *Report) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(layerHeader); err != nil {
		return err
	}

	if report.Result != nil && report.Result.Analysis != nil {
		f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
		for _, l := range report.Result.Analysis.Layers {
			row := []string{
				strconv.Itoa(l.Index), f(l.Z), f(l.Thickness), strconv.Itoa(l.CommandCount),
				f(l.ExtrusionVolume), f(l.TravelDistance), f(l.PrintTime), f(l.ExtrusionDistance),
				f(l.ExtrusionTime), f(l.TravelTime), strconv.Itoa(l.ExtrusionMoves),
				strconv.Itoa(l.TravelMoves), strconv.Itoa(l.ArcMoves), strconv.Itoa(l.Retractions),
				f(l.FilamentLength), f(l.InfillVolume), l.Pattern.String(), f(l.PatternConfidence),
				f(l.InfillDensity), strconv.FormatBool(l.Anomalous), strconv.FormatBool(l.IndeterminateTime),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func (w *Writer) renderPDF(ctx context.Context, out io.Writer, report *Report) error {
	if w.renderer == nil {
		return fmt.Errorf("no pdf renderer configured")
	}
	var html bytes.Buffer
	if err := w.html.Execute(&html, report); err != nil {
		return fmt.Errorf("failed to render html: %w", err)
	}
	pdf, err := w.renderer.RenderPDF(ctx, html.Bytes())
	if err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	_, err = out.Write(pdf)
	return err
}
