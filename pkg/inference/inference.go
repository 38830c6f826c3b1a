/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: inference.go
Description: Slicer parameter inference. Estimates layer height, extrusion width and
nozzle diameter from the geometry of an analyzed print. The results are advisory
estimates and never override declared slicer settings.
*/

package inference

import (
	"fmt"
	"math"
	"sort"

	"github.com/kleascm/gcode-analyzer/pkg/analysis"
)

// Config holds the inference settings
type Config struct {
	WidthNozzleRatio float64   `json:"width_nozzle_ratio" mapstructure:"width_nozzle_ratio"` // Typical extrusion width / nozzle diameter
	NozzleSizes      []float64 `json:"nozzle_sizes" mapstructure:"nozzle_sizes"`             // Standard nozzle diameters (mm)
	SnapTolerance    float64   `json:"snap_tolerance" mapstructure:"snap_tolerance"`         // Max distance (mm) to snap to a standard size
	MinSegmentLength float64   `json:"min_segment_length" mapstructure:"min_segment_length"` // Shorter extrusions are ignored for width
}

// DefaultConfig returns the inference defaults
func DefaultConfig() Config {
	return Config{
		WidthNozzleRatio: 1.125,
		NozzleSizes:      []float64{0.2, 0.25, 0.3, 0.4, 0.5, 0.6, 0.8, 1.0},
		SnapTolerance:    0.05,
		MinSegmentLength: 0,
	}
}

// Validate checks the configuration for invalid values
func (c Config) Validate() error {
	if c.WidthNozzleRatio <= 0 {
		return fmt.Errorf("width_nozzle_ratio must be positive")
	}
	if c.SnapTolerance < 0 {
		return fmt.Errorf("snap_tolerance must not be negative")
	}
	for _, s := range c.NozzleSizes {
		if s <= 0 {
			return fmt.Errorf("nozzle sizes must be positive, got %v", s)
		}
	}
	return nil
}

// Parameters are the inferred slicer settings
type Parameters struct {
	LayerHeight    float64 `json:"layer_height" yaml:"layer_height"`       // mm
	ExtrusionWidth float64 `json:"extrusion_width" yaml:"extrusion_width"` // mm
	NozzleDiameter float64 `json:"nozzle_diameter" yaml:"nozzle_diameter"` // mm
	NozzleSnapped  bool    `json:"nozzle_snapped" yaml:"nozzle_snapped"`   // NozzleDiameter is a standard size
	Segments       int     `json:"segments" yaml:"segments"`               // Extruding segments used for the width estimate
}

// Engine infers parameters from an Analysis. It is stateless and safe for
// concurrent use.
type Engine struct {
	config Config
}

// NewEngine creates an inference engine. A zero ratio falls back to the defaults.
func NewEngine(config Config) *Engine {
	if config.WidthNozzleRatio <= 0 {
		config.WidthNozzleRatio = DefaultConfig().WidthNozzleRatio
	}
	if config.NozzleSizes == nil {
		config.NozzleSizes = DefaultConfig().NozzleSizes
	}
	return &Engine{config: config}
}

// Infer estimates layer height, extrusion width and nozzle diameter
func (e *Engine) Infer(a *analysis.Analysis) Parameters {
	var p Parameters
	if a == nil || len(a.Layers) == 0 {
		return p
	}

	p.LayerHeight = LayerHeight(a.Layers)
	if p.LayerHeight <= 0 {
		return p
	}

	var sum float64
	for _, layer := range a.Layers {
		for _, x := range layer.Extrusions {
			if x.Length <= e.config.MinSegmentLength || x.Length <= 0 || x.Volume <= 0 {
				continue
			}
			sum += x.Volume / (x.Length * p.LayerHeight)
			p.Segments++
		}
	}
	if p.Segments == 0 {
		return p
	}

	p.ExtrusionWidth = sum / float64(p.Segments)
	p.NozzleDiameter, p.NozzleSnapped = e.snap(p.ExtrusionWidth / e.config.WidthNozzleRatio)
	return p
}

// Enrich returns a copy of the analysis carrying the inferred parameters
func (e *Engine) Enrich(a *analysis.Analysis) (*analysis.Analysis, Parameters) {
	p := e.Infer(a)
	return a.WithParameters(p.LayerHeight, p.ExtrusionWidth, p.NozzleDiameter), p
}

// snap returns the nearest standard nozzle size when within tolerance
func (e *Engine) snap(raw float64) (float64, bool) {
	best, bestDist := raw, math.Inf(1)
	for _, s := range e.config.NozzleSizes {
		if d := math.Abs(s - raw); d < bestDist {
			best, bestDist = s, d
		}
	}
	if bestDist <= e.config.SnapTolerance {
		return best, true
	}
	return raw, false
}

// LayerHeight returns the median of positive consecutive-layer Z deltas. A single
// layer, or a stream whose layers never rise, yields the first layer's Z.
func LayerHeight(layers []analysis.LayerInfo) float64 {
	if len(layers) == 0 {
		return 0
	}
	deltas := make([]float64, 0, len(layers)-1)
	for i := 1; i < len(layers); i++ {
		if d := layers[i].Z - layers[i-1].Z; d > 0 {
			deltas = append(deltas, d)
		}
	}
	if len(deltas) == 0 {
		return layers[0].Z
	}
	return Median(deltas)
}

// Median returns the median of values without modifying them
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
