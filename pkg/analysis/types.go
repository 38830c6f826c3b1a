/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types.go
Description: Result types for the geometric analyzer. LayerInfo carries per-layer metrics
and Analysis the aggregate view of a whole stream, including the inferred parameters and
infill pattern filled in by later enrichment stages.
*/

package analysis

import (
	"github.com/kleascm/gcode-analyzer/pkg/gcode"
	"github.com/kleascm/gcode-analyzer/pkg/geometry"
	"github.com/kleascm/gcode-analyzer/pkg/pattern"
)

// Extrusion is one extruding XY move within a layer
type Extrusion struct {
	Segment geometry.Segment `json:"segment"`
	Length  float64          `json:"length"`  // Toolhead path length (mm)
	Volume  float64          `json:"volume"`  // Deposited volume (mm³)
	Feature string           `json:"feature"` // Slicer ;TYPE: tag in effect, empty when untagged
	Line    int              `json:"line"`
	Infill  bool             `json:"infill"`
}

// LayerInfo holds the metrics of one committed layer
type LayerInfo struct {
	Index             int     `json:"index" yaml:"index"`
	Z                 float64 `json:"z" yaml:"z"`                 // mm
	Thickness         float64 `json:"thickness" yaml:"thickness"` // Z minus the previous layer's Z
	CommandCount      int     `json:"command_count" yaml:"command_count"`
	ExtrusionVolume   float64 `json:"extrusion_volume" yaml:"extrusion_volume"` // mm³
	TravelDistance    float64 `json:"travel_distance" yaml:"travel_distance"`   // XY mm of non-extruding moves
	PrintTime         float64 `json:"print_time" yaml:"print_time"`             // seconds
	ExtrusionDistance float64 `json:"extrusion_distance" yaml:"extrusion_distance"`
	ExtrusionTime     float64 `json:"extrusion_time" yaml:"extrusion_time"`
	TravelTime        float64 `json:"travel_time" yaml:"travel_time"`
	ExtrusionMoves    int     `json:"extrusion_moves" yaml:"extrusion_moves"`
	TravelMoves       int     `json:"travel_moves" yaml:"travel_moves"`
	ArcMoves          int     `json:"arc_moves" yaml:"arc_moves"`
	Retractions       int     `json:"retractions" yaml:"retractions"`
	FilamentLength    float64 `json:"filament_length" yaml:"filament_length"` // mm of filament fed
	InfillVolume      float64 `json:"infill_volume" yaml:"infill_volume"`
	IndeterminateTime bool    `json:"indeterminate_time" yaml:"indeterminate_time"` // A move had no usable feed rate
	Anomalous         bool    `json:"anomalous" yaml:"anomalous"`                   // Z below the previous layer

	Pattern           pattern.Pattern `json:"pattern" yaml:"pattern"`
	PatternConfidence float64         `json:"pattern_confidence" yaml:"pattern_confidence"`
	InfillDensity     float64         `json:"infill_density" yaml:"infill_density"` // percent

	Extrusions []Extrusion `json:"-" yaml:"-"`
	FirstLine  int         `json:"first_line" yaml:"first_line"`
	LastLine   int         `json:"last_line" yaml:"last_line"`
}

// InfillSegments returns the segments the pattern recognizer should look at:
// infill-tagged extrusions when the slicer tagged any, all extrusions otherwise
func (l LayerInfo) InfillSegments() []geometry.Segment {
	tagged := false
	for _, e := range l.Extrusions {
		if e.Infill {
			tagged = true
			break
		}
	}
	segs := make([]geometry.Segment, 0, len(l.Extrusions))
	for _, e := range l.Extrusions {
		if !tagged || e.Infill {
			segs = append(segs, e.Segment)
		}
	}
	return segs
}

// Bounds returns the XY bounds of every extrusion in the layer
func (l LayerInfo) Bounds() geometry.Bounds {
	var b geometry.Bounds
	for _, e := range l.Extrusions {
		b.Extend(e.Segment.A)
		b.Extend(e.Segment.B)
	}
	return b
}

// BoundingBox holds minX, minY, minZ, maxX, maxY, maxZ in mm
type BoundingBox [6]float64

func (b BoundingBox) MinX() float64 { return b[0] }
func (b BoundingBox) MinY() float64 { return b[1] }
func (b BoundingBox) MinZ() float64 { return b[2] }
func (b BoundingBox) MaxX() float64 { return b[3] }
func (b BoundingBox) MaxY() float64 { return b[4] }
func (b BoundingBox) MaxZ() float64 { return b[5] }

// Size returns the X, Y and Z extents
func (b BoundingBox) Size() (float64, float64, float64) {
	return b[3] - b[0], b[4] - b[1], b[5] - b[2]
}

// Analysis is the aggregate result of analyzing one stream. It is built once per
// parse; enrichment stages return modified copies.
type Analysis struct {
	Layers             []LayerInfo `json:"layers" yaml:"layers"`
	TotalVolume        float64     `json:"total_volume" yaml:"total_volume"` // mm³
	BoundingBox        BoundingBox `json:"bounding_box" yaml:"bounding_box"`
	EstimatedPrintTime float64     `json:"estimated_print_time" yaml:"estimated_print_time"` // seconds

	TravelDistance    float64 `json:"travel_distance" yaml:"travel_distance"`
	TravelTime        float64 `json:"travel_time" yaml:"travel_time"`
	ExtrusionDistance float64 `json:"extrusion_distance" yaml:"extrusion_distance"`
	ExtrusionTime     float64 `json:"extrusion_time" yaml:"extrusion_time"`
	FilamentLength    float64 `json:"filament_length" yaml:"filament_length"`
	FilamentDiameter  float64 `json:"filament_diameter" yaml:"filament_diameter"`
	InfillVolume      float64 `json:"infill_volume" yaml:"infill_volume"`
	CommandCount      int     `json:"command_count" yaml:"command_count"`
	ArcMoves          int     `json:"arc_moves" yaml:"arc_moves"`
	Retractions       int     `json:"retractions" yaml:"retractions"`
	AnomalousLayers   int     `json:"anomalous_layers" yaml:"anomalous_layers"`

	InferredLayerHeight    float64         `json:"inferred_layer_height" yaml:"inferred_layer_height"`
	InferredNozzleDiameter float64         `json:"inferred_nozzle_diameter" yaml:"inferred_nozzle_diameter"`
	InferredExtrusionWidth float64         `json:"inferred_extrusion_width" yaml:"inferred_extrusion_width"`
	InferredPattern        pattern.Pattern `json:"inferred_pattern" yaml:"inferred_pattern"`
	PatternConfidence      float64         `json:"pattern_confidence" yaml:"pattern_confidence"`
	InfillDensity          float64         `json:"infill_density" yaml:"infill_density"` // percent, mean over interior layers

	Warnings []gcode.Warning `json:"warnings" yaml:"warnings"`
}

// TravelRatio returns travel / (travel + extruding distance), zero for an empty stream
func (a *Analysis) TravelRatio() float64 {
	total := a.TravelDistance + a.ExtrusionDistance
	if total <= 0 {
		return 0
	}
	return a.TravelDistance / total
}

// Clone returns a deep copy so enrichment never mutates the original
func (a *Analysis) Clone() *Analysis {
	c := *a
	c.Layers = make([]LayerInfo, len(a.Layers))
	copy(c.Layers, a.Layers)
	c.Warnings = append([]gcode.Warning(nil), a.Warnings...)
	return &c
}

// WithParameters returns a copy carrying inferred slicer parameters
func (a *Analysis) WithParameters(layerHeight, extrusionWidth, nozzleDiameter float64) *Analysis {
	c := a.Clone()
	c.InferredLayerHeight = layerHeight
	c.InferredExtrusionWidth = extrusionWidth
	c.InferredNozzleDiameter = nozzleDiameter
	return c
}

// LayerPattern is the classification of one layer
type LayerPattern struct {
	Pattern    pattern.Pattern
	Confidence float64
	Density    float64
}

// WithPatterns returns a copy carrying per-layer and overall infill classification.
// perLayer must be in layer order.
func (a *Analysis) WithPatterns(perLayer []LayerPattern, overall pattern.Classification, density float64) *Analysis {
	c := a.Clone()
	for i := range c.Layers {
		if i >= len(perLayer) {
			break
		}
		c.Layers[i].Pattern = perLayer[i].Pattern
		c.Layers[i].PatternConfidence = perLayer[i].Confidence
		c.Layers[i].InfillDensity = perLayer[i].Density
	}
	c.InferredPattern = overall.Pattern
	c.PatternConfidence = overall.Confidence
	c.InfillDensity = density
	return c
}

// InteriorLayers returns every layer except the first and last
func (a *Analysis) InteriorLayers() []LayerInfo {
	if len(a.Layers) <= 2 {
		return nil
	}
	return a.Layers[1 : len(a.Layers)-1]
}
