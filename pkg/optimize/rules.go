/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: rules.go
Description: Optimization rules. Each rule inspects the aggregate analysis and the
declared slicer metadata and contributes at most one suggestion.
*/

package optimize

import (
	"fmt"
	"math"

	"github.com/kleascm/gcode-analyzer/pkg/analysis"
	"github.com/kleascm/gcode-analyzer/pkg/metadata"
	"github.com/kleascm/gcode-analyzer/pkg/pattern"
)

// Rule is one independent optimization heuristic
type Rule interface {
	Name() string
	Description() string
	Evaluate(a *analysis.Analysis, md metadata.SlicerMetadata) (Suggestion, bool)
}

// Rule names
const (
	CategoryPathOptimization    = "path-optimization"
	CategoryLayerHeight         = "layer-height"
	CategoryInfillDensity       = "infill-density"
	CategoryTravelCombing       = "travel-combing"
	CategoryMetadataConsistency = "metadata-consistency"
)

// DefaultRules returns the built-in rules bound to a configuration
func DefaultRules(config Config) []Rule {
	return []Rule{
		&PathRule{config: config},
		&LayerHeightRule{config: config},
		&InfillDensityRule{config: config},
		&CombingRule{config: config},
		&ConsistencyRule{config: config},
	}
}

// PathRule flags prints whose toolhead spends too much distance travelling
type PathRule struct {
	config Config
}

func (r *PathRule) Name() string { return CategoryPathOptimization }

func (r *PathRule) Description() string {
	return "Travel distance share above the configured threshold"
}

func (r *PathRule) Evaluate(a *analysis.Analysis, _ metadata.SlicerMetadata) (Suggestion, bool) {
	ratio := a.TravelRatio()
	threshold := r.config.TravelRatioThreshold
	if ratio <= threshold {
		return Suggestion{}, false
	}

	travelTime := a.TravelTime
	if travelTime <= 0 {
		travelTime = a.TravelDistance / r.config.FallbackTravelSpeed
	}
	// Share of travel that would have to go to bring the ratio down to the threshold
	excess := (ratio - threshold) / ratio
	saving := travelTime * excess / 60

	return Suggestion{
		Category: CategoryPathOptimization,
		Description: fmt.Sprintf("Travel makes up %.0f%% of toolhead distance (threshold %.0f%%)",
			ratio*100, threshold*100),
		PotentialTimeSaving: saving,
		Implementation:      "Enable travel path optimization and island ordering in the slicer, and avoid crossing perimeters between parts",
		Impact:              impactOf(saving),
	}, true
}

// LayerHeightRule checks layer height against the nozzle diameter
type LayerHeightRule struct {
	config Config
}

func (r *LayerHeightRule) Name() string { return CategoryLayerHeight }

func (r *LayerHeightRule) Description() string {
	return "Layer height outside the recommended fraction of nozzle diameter"
}

func (r *LayerHeightRule) Evaluate(a *analysis.Analysis, _ metadata.SlicerMetadata) (Suggestion, bool) {
	lh, nozzle := a.InferredLayerHeight, a.InferredNozzleDiameter
	if lh <= 0 || nozzle <= 0 {
		return Suggestion{}, false
	}
	ratio := lh / nozzle
	if ratio >= r.config.MinLayerRatio && ratio <= r.config.MaxLayerRatio {
		return Suggestion{}, false
	}

	target := nozzle * r.config.TargetLayerRatio
	s := Suggestion{
		Category: CategoryLayerHeight,
		Implementation: fmt.Sprintf("Set the slicer layer height to about %.2f mm for a %.2f mm nozzle",
			target, nozzle),
	}
	if ratio < r.config.MinLayerRatio {
		// Print time scales with layer count
		s.PotentialTimeSaving = a.EstimatedPrintTime * (1 - lh/target) / 60
		s.Description = fmt.Sprintf("Layer height %.2f mm is only %.0f%% of the nozzle diameter; thicker layers print faster",
			lh, ratio*100)
		s.Impact = impactOf(s.PotentialTimeSaving)
	} else {
		s.Description = fmt.Sprintf("Layer height %.2f mm is %.0f%% of the nozzle diameter; layer adhesion will suffer",
			lh, ratio*100)
		s.Impact = ImpactHigh
	}
	return s, true
}

// InfillDensityRule flags infill denser than the pattern needs
type InfillDensityRule struct {
	config Config
}

func (r *InfillDensityRule) Name() string { return CategoryInfillDensity }

func (r *InfillDensityRule) Description() string {
	return "Infill density above what the detected pattern needs for typical strength"
}

func (r *InfillDensityRule) Evaluate(a *analysis.Analysis, md metadata.SlicerMetadata) (Suggestion, bool) {
	density := a.InfillDensity
	if density <= 0 {
		density = md.InfillDensity.OrElse(0)
	}
	p := a.InferredPattern
	if p == pattern.Unknown {
		if name, ok := md.InfillPattern.Get(); ok {
			if parsed, err := pattern.Parse(name); err == nil {
				p = parsed
			}
		}
	}
	limit := r.config.maxInfill(p)
	if density <= limit {
		return Suggestion{}, false
	}

	excess := (density - limit) / density
	var grams, minutes float64
	if a.InfillVolume > 0 {
		gPerMM3 := r.filamentDensity(md) / 1000
		grams = a.InfillVolume * excess * gPerMM3
		if a.TotalVolume > 0 {
			minutes = a.ExtrusionTime * (a.InfillVolume / a.TotalVolume) * excess / 60
		}
	}

	return Suggestion{
		Category: CategoryInfillDensity,
		Description: fmt.Sprintf("%s infill at %.0f%% is denser than the %.0f%% it typically needs",
			patternLabel(p), density, limit),
		PotentialTimeSaving:     minutes,
		PotentialMaterialSaving: grams,
		Implementation:          fmt.Sprintf("Reduce infill density to %.0f%%, or use a stronger pattern such as gyroid", limit),
		Impact:                  impactOf(minutes + grams),
	}, true
}

// filamentDensity prefers the declared density, then the declared material
func (r *InfillDensityRule) filamentDensity(md metadata.SlicerMetadata) float64 {
	if v, ok := md.FilamentDensity.Get(); ok && v > 0 {
		return v
	}
	return r.config.filamentDensity(md.FilamentType.OrElse(""))
}

func patternLabel(p pattern.Pattern) string {
	if p == pattern.Unknown {
		return "Unclassified"
	}
	return p.String()
}

// CombingRule looks for layers where travel takes longer than printing
type CombingRule struct {
	config Config
}

func (r *CombingRule) Name() string { return CategoryTravelCombing }

func (r *CombingRule) Description() string {
	return "Layers dominated by travel time relative to extrusion time"
}

func (r *CombingRule) Evaluate(a *analysis.Analysis, _ metadata.SlicerMetadata) (Suggestion, bool) {
	if len(a.Layers) == 0 {
		return Suggestion{}, false
	}

	dominated := 0
	var travel float64
	for _, l := range a.Layers {
		if l.TravelMoves == 0 || l.TravelTime <= 0 {
			continue
		}
		if l.TravelTime > l.ExtrusionTime*r.config.TravelDominance {
			dominated++
			travel += l.TravelTime
		}
	}
	share := float64(dominated) / float64(len(a.Layers))
	if dominated == 0 || share < r.config.TravelDominatedShare {
		return Suggestion{}, false
	}

	saving := travel * r.config.CombingSaving / 60
	impl := "Enable combing (travel within infill) and retract only when crossing perimeters"
	if a.ArcMoves == 0 {
		impl += "; enable arc fitting (G2/G3) to shorten small curved paths"
	}
	return Suggestion{
		Category:            CategoryTravelCombing,
		Description:         fmt.Sprintf("%d of %d layers spend more time travelling than printing", dominated, len(a.Layers)),
		PotentialTimeSaving: saving,
		Implementation:      impl,
		Impact:              impactOf(saving),
	}, true
}

// ConsistencyRule compares the declared layer height with the measured one
type ConsistencyRule struct {
	config Config
}

func (r *ConsistencyRule) Name() string { return CategoryMetadataConsistency }

func (r *ConsistencyRule) Description() string {
	return "Declared slicer layer height disagrees with the layer height measured from the moves"
}

func (r *ConsistencyRule) Evaluate(a *analysis.Analysis, md metadata.SlicerMetadata) (Suggestion, bool) {
	declared, ok := md.LayerHeight.Get()
	if !ok || declared <= 0 || a.InferredLayerHeight <= 0 {
		return Suggestion{}, false
	}
	if math.Abs(declared-a.InferredLayerHeight) <= r.config.LayerHeightTolerance {
		return Suggestion{}, false
	}
	return Suggestion{
		Category: CategoryMetadataConsistency,
		Description: fmt.Sprintf("Slicer declares %.2f mm layers but the moves step %.2f mm",
			declared, a.InferredLayerHeight),
		Implementation: "Check for variable layer height, post-processing scripts or a stale settings header",
		Impact:         ImpactLow,
	}, true
}
