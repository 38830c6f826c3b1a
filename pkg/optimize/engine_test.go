/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine_test.go
Description: Tests for the optimization rules and suggestion ranking.
*/

package optimize

import (
	"testing"

	"github.com/kleascm/gcode-analyzer/pkg/analysis"
	"github.com/kleascm/gcode-analyzer/pkg/metadata"
	"github.com/kleascm/gcode-analyzer/pkg/pattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// balanced returns an analysis that triggers no rule
func balanced() *analysis.Analysis {
	layers := make([]analysis.LayerInfo, 10)
	for i := range layers {
		layers[i] = analysis.LayerInfo{
			Index:         i,
			Z:             0.2 * float64(i+1),
			TravelMoves:   2,
			TravelTime:    1,
			ExtrusionTime: 10,
		}
	}
	return &analysis.Analysis{
		Layers:                 layers,
		TravelDistance:         100,
		TravelTime:             10,
		ExtrusionDistance:      900,
		ExtrusionTime:          100,
		EstimatedPrintTime:     110,
		InferredLayerHeight:    0.2,
		InferredNozzleDiameter: 0.4,
		InferredPattern:        pattern.Gyroid,
		InfillDensity:          15,
		InfillVolume:           500,
		TotalVolume:            2000,
	}
}

func categories(suggestions []Suggestion) []string {
	out := make([]string, len(suggestions))
	for i, s := range suggestions {
		out[i] = s.Category
	}
	return out
}

// TestNoSuggestions tests that a well-tuned print yields nothing
func TestNoSuggestions(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	assert.Empty(t, engine.Evaluate(balanced(), metadata.SlicerMetadata{}))
	assert.Nil(t, engine.Evaluate(nil, metadata.SlicerMetadata{}))
}

// TestPathOptimization tests the travel ratio threshold
func TestPathOptimization(t *testing.T) {
	a := balanced()
	a.TravelDistance, a.ExtrusionDistance = 600, 400
	a.TravelTime = 240

	out := NewEngine(DefaultConfig()).Evaluate(a, metadata.SlicerMetadata{})
	require.Len(t, out, 1)
	s := out[0]
	assert.Equal(t, CategoryPathOptimization, s.Category)
	assert.Greater(t, s.PotentialTimeSaving, 0.0)
	// A third of the travel has to go to reach 0.4
	assert.InDelta(t, 240.0/3/60, s.PotentialTimeSaving, 1e-9)
	assert.Zero(t, s.PotentialMaterialSaving)

	t.Run("IndeterminateTravelTime", func(t *testing.T) {
		a.TravelTime = 0
		out := NewEngine(DefaultConfig()).Evaluate(a, metadata.SlicerMetadata{})
		require.Len(t, out, 1)
		assert.Greater(t, out[0].PotentialTimeSaving, 0.0)
	})

	t.Run("AtThreshold", func(t *testing.T) {
		a := balanced()
		a.TravelDistance, a.ExtrusionDistance = 400, 600
		assert.Empty(t, NewEngine(DefaultConfig()).Evaluate(a, metadata.SlicerMetadata{}))
	})
}

// TestLayerHeightBand tests both sides of the layer height band
func TestLayerHeightBand(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	t.Run("TooThin", func(t *testing.T) {
		a := balanced()
		a.InferredLayerHeight = 0.08
		out := engine.Evaluate(a, metadata.SlicerMetadata{})
		require.Len(t, out, 1)
		assert.Equal(t, CategoryLayerHeight, out[0].Category)
		// 0.08 mm against a 0.2 mm target removes 60% of the layers
		assert.InDelta(t, 110*0.6/60, out[0].PotentialTimeSaving, 1e-9)
		assert.Contains(t, out[0].Implementation, "0.20 mm")
	})

	t.Run("TooThick", func(t *testing.T) {
		a := balanced()
		a.InferredLayerHeight = 0.36
		out := engine.Evaluate(a, metadata.SlicerMetadata{})
		require.Len(t, out, 1)
		assert.Equal(t, CategoryLayerHeight, out[0].Category)
		assert.Zero(t, out[0].PotentialTimeSaving)
		assert.Equal(t, ImpactHigh, out[0].Impact)
	})

	t.Run("MissingNozzle", func(t *testing.T) {
		a := balanced()
		a.InferredNozzleDiameter = 0
		a.InferredLayerHeight = 0.01
		assert.Empty(t, engine.Evaluate(a, metadata.SlicerMetadata{}))
	})
}

// TestInfillDensity tests per-pattern density ceilings and material saving
func TestInfillDensity(t *testing.T) {
	a := balanced()
	a.InfillDensity = 30

	md := metadata.SlicerMetadata{FilamentType: metadata.Some("PETG")}
	out := NewEngine(DefaultConfig()).Evaluate(a, md)
	require.Len(t, out, 1)
	s := out[0]
	assert.Equal(t, CategoryInfillDensity, s.Category)
	// Half of 500 mm³ of PETG
	assert.InDelta(t, 250*1.27/1000, s.PotentialMaterialSaving, 1e-9)
	assert.InDelta(t, 100*0.25*0.5/60, s.PotentialTimeSaving, 1e-9)
	assert.Contains(t, s.Description, "GYROID")

	t.Run("DeclaredDensity", func(t *testing.T) {
		a := balanced()
		a.InfillDensity = 0
		a.InferredPattern = pattern.Unknown
		md := metadata.SlicerMetadata{
			InfillDensity: metadata.Some(40.0),
			InfillPattern: metadata.Some("grid"),
		}
		out := NewEngine(DefaultConfig()).Evaluate(a, md)
		require.Len(t, out, 1)
		assert.Contains(t, out[0].Description, "GRID")
		assert.Contains(t, out[0].Implementation, "25%")
	})

	t.Run("WithinLimit", func(t *testing.T) {
		a := balanced()
		a.InferredPattern = pattern.Rectilinear
		a.InfillDensity = 25
		assert.Empty(t, NewEngine(DefaultConfig()).Evaluate(a, metadata.SlicerMetadata{}))
	})
}

// TestTravelCombing tests travel-dominated layers
func TestTravelCombing(t *testing.T) {
	a := balanced()
	for i := 0; i < 3; i++ {
		a.Layers[i].TravelTime = 20
	}

	out := NewEngine(DefaultConfig()).Evaluate(a, metadata.SlicerMetadata{})
	require.Len(t, out, 1)
	assert.Equal(t, CategoryTravelCombing, out[0].Category)
	assert.InDelta(t, 60*0.3/60, out[0].PotentialTimeSaving, 1e-9)
	assert.Contains(t, out[0].Implementation, "arc fitting")
	assert.Contains(t, out[0].Description, "3 of 10")

	a.Layers[0].TravelTime = 1
	a.Layers[1].TravelTime = 1
	assert.Empty(t, NewEngine(DefaultConfig()).Evaluate(a, metadata.SlicerMetadata{}))
}

// TestMetadataConsistency tests the declared layer height check
func TestMetadataConsistency(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	a := balanced()

	assert.Empty(t, engine.Evaluate(a, metadata.SlicerMetadata{}))
	assert.Empty(t, engine.Evaluate(a, metadata.SlicerMetadata{LayerHeight: metadata.Some(0.21)}))

	out := engine.Evaluate(a, metadata.SlicerMetadata{LayerHeight: metadata.Some(0.3)})
	require.Len(t, out, 1)
	assert.Equal(t, CategoryMetadataConsistency, out[0].Category)
	assert.Equal(t, ImpactLow, out[0].Impact)
}

// TestRanking tests descending order by combined saving
func TestRanking(t *testing.T) {
	a := balanced()
	a.TravelDistance, a.ExtrusionDistance = 600, 400
	a.TravelTime = 6000
	a.InfillDensity = 30
	md := metadata.SlicerMetadata{LayerHeight: metadata.Some(0.3)}

	out := NewEngine(DefaultConfig()).Evaluate(a, md)
	assert.Equal(t, []string{CategoryPathOptimization, CategoryInfillDensity, CategoryMetadataConsistency}, categories(out))
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i-1].Score(), out[i].Score())
	}
}

// TestDisabledRules tests rule filtering
func TestDisabledRules(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Disabled = []string{CategoryPathOptimization}
	engine := NewEngine(cfg)

	assert.Len(t, engine.Rules(), 4)
	a := balanced()
	a.TravelDistance, a.ExtrusionDistance = 600, 400
	assert.Empty(t, engine.Evaluate(a, metadata.SlicerMetadata{}))
}

// TestEvaluateDoesNotMutate tests that inputs are read-only
func TestEvaluateDoesNotMutate(t *testing.T) {
	a := balanced()
	a.InfillDensity = 50
	before := *a.Clone()
	md := metadata.SlicerMetadata{LayerHeight: metadata.Some(0.3), Settings: map[string]string{"layer_height": "0.3"}}

	NewEngine(DefaultConfig()).Evaluate(a, md)
	assert.Equal(t, before, *a)
	assert.Equal(t, map[string]string{"layer_height": "0.3"}, md.Settings)
}

// TestConfigValidate tests configuration validation
func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.MinLayerRatio = 0.8
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxInfillDensity["LINES"] = 20
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxInfillDensity = map[string]float64{"gyroid": 12}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 12.0, cfg.maxInfill(pattern.Gyroid))
	assert.Equal(t, 30.0, cfg.maxInfill(pattern.Grid))
	assert.Equal(t, 1.27, cfg.filamentDensity("petg"))
	assert.Equal(t, 1.24, cfg.filamentDensity("unobtainium"))
}
