/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: report.go
Description: Report document built from a pipeline result. Adds a flat summary block
with derived figures (filament weight, print time, part size) used by every output format.
*/

package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kleascm/gcode-analyzer/pkg/core"
	"github.com/kleascm/gcode-analyzer/pkg/optimize"
)

// Version is stamped into every report
const Version = "1.0.0"

// defaultFilamentDensity is PLA in g/cm³, used when the slicer declares nothing
const defaultFilamentDensity = 1.24

// Report is one analyzed stream ready for output
type Report struct {
	ID          string       `json:"id" yaml:"id"`
	Title       string       `json:"title" yaml:"title"`
	Source      string       `json:"source" yaml:"source"`
	Version     string       `json:"version" yaml:"version"`
	GeneratedAt time.Time    `json:"generated_at" yaml:"generated_at"`
	Summary     Summary      `json:"summary" yaml:"summary"`
	Result      *core.Result `json:"result" yaml:"result"`
}

// Summary holds the headline figures of a report
type Summary struct {
	Slicer             string         `json:"slicer" yaml:"slicer"`
	Layers             int            `json:"layers" yaml:"layers"`
	Lines              int            `json:"lines" yaml:"lines"`
	Commands           int            `json:"commands" yaml:"commands"`
	TotalVolume        float64        `json:"total_volume" yaml:"total_volume"`       // mm³
	FilamentLength     float64        `json:"filament_length" yaml:"filament_length"` // mm
	FilamentWeight     float64        `json:"filament_weight" yaml:"filament_weight"` // g
	EstimatedPrintTime float64        `json:"estimated_print_time" yaml:"estimated_print_time"`
	PrintTime          string         `json:"print_time" yaml:"print_time"` // Human readable
	TravelRatio        float64        `json:"travel_ratio" yaml:"travel_ratio"`
	Pattern            string         `json:"pattern" yaml:"pattern"`
	PatternConfidence  float64        `json:"pattern_confidence" yaml:"pattern_confidence"`
	InfillDensity      float64        `json:"infill_density" yaml:"infill_density"`
	LayerHeight        float64        `json:"layer_height" yaml:"layer_height"`
	ExtrusionWidth     float64        `json:"extrusion_width" yaml:"extrusion_width"`
	NozzleDiameter     float64        `json:"nozzle_diameter" yaml:"nozzle_diameter"`
	SizeX              float64        `json:"size_x" yaml:"size_x"`
	SizeY              float64        `json:"size_y" yaml:"size_y"`
	SizeZ              float64        `json:"size_z" yaml:"size_z"`
	Score              int            `json:"score" yaml:"score"`
	Warnings           int            `json:"warnings" yaml:"warnings"`
	WarningCounts      map[string]int `json:"warning_counts" yaml:"warning_counts"`
	Suggestions        int            `json:"suggestions" yaml:"suggestions"`
	TimeSaving         float64        `json:"time_saving" yaml:"time_saving"`         // minutes, all suggestions
	MaterialSaving     float64        `json:"material_saving" yaml:"material_saving"` // grams, all suggestions
}

// NewReport builds a report from a pipeline result
func NewReport(result *core.Result, title string) *Report {
	if title == "" {
		title = "G-code Analysis"
	}
	return &Report{
		ID:          result.ID,
		Title:       title,
		Source:      result.Source,
		Version:     Version,
		GeneratedAt: time.Now(),
		Summary:     summarize(result),
		Result:      result,
	}
}

func summarize(r *core.Result) Summary {
	a := r.Analysis
	s := Summary{
		Slicer:        strings.TrimSpace(r.Metadata.Name + " " + r.Metadata.Version),
		Lines:         r.Lines,
		Commands:      r.Commands,
		Score:         r.Score,
		Suggestions:   len(r.Suggestions),
		WarningCounts: make(map[string]int),
	}
	for _, sg := range r.Suggestions {
		s.TimeSaving += sg.PotentialTimeSaving
		s.MaterialSaving += sg.PotentialMaterialSaving
	}
	if a == nil {
		return s
	}

	s.Layers = len(a.Layers)
	s.TotalVolume = a.TotalVolume
	s.FilamentLength = a.FilamentLength
	density := r.Metadata.FilamentDensity.OrElse(defaultFilamentDensity)
	s.FilamentWeight = a.TotalVolume / 1000 * density
	s.EstimatedPrintTime = a.EstimatedPrintTime
	s.PrintTime = FormatDuration(a.EstimatedPrintTime)
	s.TravelRatio = a.TravelRatio()
	s.Pattern = a.InferredPattern.String()
	s.PatternConfidence = a.PatternConfidence
	s.InfillDensity = a.InfillDensity
	s.LayerHeight = a.InferredLayerHeight
	s.ExtrusionWidth = a.InferredExtrusionWidth
	s.NozzleDiameter = a.InferredNozzleDiameter
	s.SizeX, s.SizeY, s.SizeZ = a.BoundingBox.Size()
	s.Warnings = len(a.Warnings)
	for _, w := range a.Warnings {
		s.WarningCounts[string(w.Kind)]++
	}
	return s
}

// WarningKinds returns the warning kinds in sorted order
func (s Summary) WarningKinds() []string {
	kinds := make([]string, 0, len(s.WarningCounts))
	for k := range s.WarningCounts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Suggestions returns the ranked suggestions, nil when none
func (r *Report) Suggestions() []optimize.Suggestion {
	if r.Result == nil {
		return nil
	}
	return r.Result.Suggestions
}

// FormatDuration renders seconds as "1h 02m 03s"
func FormatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	sec := int(d % time.Minute / time.Second)
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm %02ds", h, m, sec)
	case m > 0:
		return fmt.Sprintf("%dm %02ds", m, sec)
	default:
		return fmt.Sprintf("%ds", sec)
	}
}
