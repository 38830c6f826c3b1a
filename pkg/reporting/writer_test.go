/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: writer_test.go
Description: Tests for report rendering in every output format.
*/

package reporting

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/kleascm/gcode-analyzer/pkg/analysis"
	"github.com/kleascm/gcode-analyzer/pkg/core"
	"github.com/kleascm/gcode-analyzer/pkg/gcode"
	"github.com/kleascm/gcode-analyzer/pkg/metadata"
	"github.com/kleascm/gcode-analyzer/pkg/optimize"
	"github.com/kleascm/gcode-analyzer/pkg/pattern"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleResult() *core.Result {
	return &core.Result{
		ID:       "0123456789abcdef",
		Source:   "/prints/benchy.gcode",
		Lines:    120,
		Commands: 100,
		Score:    90,
		Analysis: &analysis.Analysis{
			Layers: []analysis.LayerInfo{
				{Index: 0, Z: 0.2, Thickness: 0.2, CommandCount: 40, ExtrusionVolume: 12.5, Pattern: pattern.Rectilinear, InfillDensity: 20},
				{Index: 1, Z: 0.4, Thickness: 0.2, CommandCount: 35, ExtrusionVolume: 10, Pattern: pattern.Rectilinear, InfillDensity: 20},
				{Index: 2, Z: 0.3, Thickness: -0.1, CommandCount: 25, Anomalous: true},
			},
			TotalVolume:            1000,
			EstimatedPrintTime:     3723,
			TravelDistance:         30,
			ExtrusionDistance:      70,
			BoundingBox:            analysis.BoundingBox{0, 0, 0.2, 20, 10, 0.6},
			InferredPattern:        pattern.Rectilinear,
			PatternConfidence:      0.9,
			InferredLayerHeight:    0.2,
			InferredExtrusionWidth: 0.45,
			InferredNozzleDiameter: 0.4,
			Warnings: []gcode.Warning{
				{Kind: gcode.WarnLayerAnomaly, Line: 50, Layer: 2, Message: "layer Z 0.300 is below previous layer Z 0.400"},
				{Kind: gcode.WarnIndeterminateTime, Layer: 1, Message: "move without feed rate"},
			},
		},
		Metadata: metadata.SlicerMetadata{
			Name:        "PrusaSlicer",
			Version:     "2.6.0",
			LayerHeight: metadata.Some(0.2),
		},
		Suggestions: []optimize.Suggestion{{
			Category:            optimize.CategoryPathOptimization,
			Description:         "Travel makes up 30% of toolhead distance",
			PotentialTimeSaving: 2.5,
			Implementation:      "Enable travel path optimization",
			Impact:              optimize.ImpactMedium,
		}},
	}
}

func newTestWriter(t *testing.T, fs afero.Fs, mutate func(*Config)) *Writer {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	w, err := NewWriter(fs, cfg, nil)
	require.NoError(t, err)
	return w
}

func render(t *testing.T, w *Writer, report *Report, format Format) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, w.Render(context.Background(), &buf, report, format))
	return buf.Bytes()
}

// fakeRenderer stands in for headless Chrome
type fakeRenderer struct {
	html []byte
	err  error
}

func (f *fakeRenderer) RenderPDF(_ context.Context, html []byte) ([]byte, error) {
	f.html = html
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.4 test"), nil
}

// TestSummary tests derived summary figures
func TestSummary(t *testing.T) {
	s := NewReport(sampleResult(), "").Summary

	assert.Equal(t, "PrusaSlicer 2.6.0", s.Slicer)
	assert.Equal(t, 3, s.Layers)
	assert.InDelta(t, 1.24, s.FilamentWeight, 1e-9)
	assert.Equal(t, "1h 02m 03s", s.PrintTime)
	assert.InDelta(t, 0.3, s.TravelRatio, 1e-9)
	assert.Equal(t, "RECTILINEAR", s.Pattern)
	assert.InDelta(t, 0.4, s.SizeZ, 1e-9)
	assert.Equal(t, 2, s.Warnings)
	assert.Equal(t, []string{"indeterminate-time", "layer-z-decrease"}, s.WarningKinds())
	assert.Equal(t, 2.5, s.TimeSaving)

	empty := NewReport(&core.Result{ID: "x"}, "")
	assert.Equal(t, "G-code Analysis", empty.Title)
	assert.Zero(t, empty.Summary.Layers)
}

// TestFormatDuration tests human readable durations
func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", FormatDuration(0))
	assert.Equal(t, "42s", FormatDuration(42.2))
	assert.Equal(t, "1m 00s", FormatDuration(59.6))
	assert.Equal(t, "1h 02m 03s", FormatDuration(3723))
}

// TestParseFormat tests format names and extensions
func TestParseFormat(t *testing.T) {
	for _, f := range Formats() {
		parsed, err := ParseFormat(string(f))
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
	}
	f, err := ParseFormat(" YML ")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("docx")
	assert.Error(t, err)

	assert.Equal(t, ".txt", FormatText.Extension())
	assert.Equal(t, ".pdf", FormatPDF.Extension())
	assert.True(t, FormatPDF.Binary())
}

// TestRenderJSON tests stable snake_case field names
func TestRenderJSON(t *testing.T) {
	w := newTestWriter(t, afero.NewMemMapFs(), nil)
	out := render(t, w, NewReport(sampleResult(), ""), FormatJSON)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &doc))

	summary := doc["summary"].(map[string]interface{})
	assert.Equal(t, 3.0, summary["layers"])
	assert.Equal(t, "RECTILINEAR", summary["pattern"])

	result := doc["result"].(map[string]interface{})
	a := result["analysis"].(map[string]interface{})
	assert.Len(t, a["layers"], 3)
	assert.Equal(t, "RECTILINEAR", a["inferred_pattern"])

	md := result["metadata"].(map[string]interface{})
	assert.Equal(t, 0.2, md["layer_height"])
	assert.Nil(t, md["nozzle_temp"])
}

// TestRenderYAML tests YAML output
func TestRenderYAML(t *testing.T) {
	w := newTestWriter(t, afero.NewMemMapFs(), nil)
	out := render(t, w, NewReport(sampleResult(), ""), FormatYAML)

	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal(out, &doc))
	summary := doc["summary"].(map[string]interface{})
	assert.Equal(t, 3, summary["layers"])
	assert.Equal(t, "PrusaSlicer 2.6.0", summary["slicer"])
}

// TestRenderCSV tests one row per layer
func TestRenderCSV(t *testing.T) {
	w := newTestWriter(t, afero.NewMemMapFs(), nil)
	out := render(t, w, NewReport(sampleResult(), ""), FormatCSV)

	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, layerHeader, rows[0])
	assert.Equal(t, []string{"0", "0.2", "0.2", "40", "12.5"}, rows[1][:5])
	assert.Equal(t, "RECTILINEAR", rows[1][16])
	assert.Equal(t, "true", rows[3][19])

	out = render(t, w, NewReport(&core.Result{ID: "x"}, ""), FormatCSV)
	rows, err = csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

// TestRenderHTML tests the HTML report structure
func TestRenderHTML(t *testing.T) {
	w := newTestWriter(t, afero.NewMemMapFs(), nil)
	out := render(t, w, NewReport(sampleResult(), "Benchy"), FormatHTML)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(out))
	require.NoError(t, err)

	assert.Equal(t, "Benchy - /prints/benchy.gcode", doc.Find("title").Text())
	assert.Equal(t, "90", doc.Find("#score").Text())
	assert.Equal(t, "3", doc.Find("#layer-count").Text())
	assert.Equal(t, "RECTILINEAR", doc.Find("#pattern").Text())
	assert.Equal(t, 3, doc.Find("#layers tbody tr").Length())
	assert.Equal(t, 1, doc.Find("#layers tr.anomalous").Length())
	assert.Equal(t, 2, doc.Find("#warnings .warning").Length())

	suggestion := doc.Find("#suggestions .suggestion")
	require.Equal(t, 1, suggestion.Length())
	category, ok := suggestion.Attr("data-category")
	assert.True(t, ok)
	assert.Equal(t, optimize.CategoryPathOptimization, category)
	assert.Equal(t, 1, suggestion.Find(".impact-medium").Length())
}

// TestRenderHTMLEscapes tests that source text is escaped
func TestRenderHTMLEscapes(t *testing.T) {
	r := sampleResult()
	r.Source = `<script>alert(1)</script>.gcode`
	r.Suggestions = nil

	w := newTestWriter(t, afero.NewMemMapFs(), nil)
	out := render(t, w, NewReport(r, ""), FormatHTML)
	assert.NotContains(t, string(out), "<script>alert(1)</script>")

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, `<script>alert(1)</script>.gcode`, doc.Find("#source").Text())
	assert.Equal(t, 1, doc.Find("#suggestions .empty").Length())
}

// TestRenderText tests the built-in pongo2 summary
func TestRenderText(t *testing.T) {
	w := newTestWriter(t, afero.NewMemMapFs(), nil)
	text := string(render(t, w, NewReport(sampleResult(), ""), FormatText))

	assert.Contains(t, text, "G-code Analysis: /prints/benchy.gcode")
	assert.Contains(t, text, "Slicer:          PrusaSlicer 2.6.0")
	assert.Contains(t, text, "Score:           90/100")
	assert.Contains(t, text, "1h 02m 03s")
	assert.Contains(t, text, "1.24 g")
	assert.Contains(t, text, "layer-z-decrease: 1")
	assert.Contains(t, text, "[medium] path-optimization")
}

// TestCustomTextTemplate tests loading a user template from the filesystem
func TestCustomTextTemplate(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/tpl/summary.txt",
		[]byte("{{ summary.Layers }} layers, {{ suggestions|length }} suggestions"), 0o644))

	w := newTestWriter(t, fs, func(c *Config) { c.TextTemplate = "/tpl/summary.txt" })
	assert.Equal(t, "3 layers, 1 suggestions", string(render(t, w, NewReport(sampleResult(), ""), FormatText)))

	_, err := NewWriter(fs, Config{TextTemplate: "/tpl/missing.txt"}, nil)
	assert.Error(t, err)
}

// TestRenderPDF tests that the HTML report is handed to the renderer
func TestRenderPDF(t *testing.T) {
	fake := &fakeRenderer{}
	w := newTestWriter(t, afero.NewMemMapFs(), nil)
	w.SetRenderer(fake)

	out := render(t, w, NewReport(sampleResult(), ""), FormatPDF)
	assert.Equal(t, "%PDF-1.4 test", string(out))
	assert.Contains(t, string(fake.html), `id="layers"`)

	fake.err = errors.New("no browser")
	err := w.Render(context.Background(), &bytes.Buffer{}, NewReport(sampleResult(), ""), FormatPDF)
	assert.ErrorContains(t, err, "no browser")
}

// TestWriteFile tests file output on an in-memory filesystem
func TestWriteFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := newTestWriter(t, fs, func(c *Config) { c.OutputDir = "/out" })

	report := NewReport(sampleResult(), "")
	path, err := w.WriteFile(context.Background(), report, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "/out/benchy-01234567.json", path)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	_, err = w.WriteFile(context.Background(), report, Format("docx"))
	assert.Error(t, err)
}
