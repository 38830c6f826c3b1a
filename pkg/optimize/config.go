/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config.go
Description: Thresholds for the optimization rules.
*/

package optimize

import (
	"fmt"
	"strings"

	"github.com/kleascm/gcode-analyzer/pkg/pattern"
)

// Config holds the rule thresholds
type Config struct {
	TravelRatioThreshold float64 `json:"travel_ratio_threshold" mapstructure:"travel_ratio_threshold"` // travel / (travel + extrusion) distance
	FallbackTravelSpeed  float64 `json:"fallback_travel_speed" mapstructure:"fallback_travel_speed"`   // mm/s, used when travel time is indeterminate

	MinLayerRatio    float64 `json:"min_layer_ratio" mapstructure:"min_layer_ratio"` // layer height / nozzle diameter band
	MaxLayerRatio    float64 `json:"max_layer_ratio" mapstructure:"max_layer_ratio"`
	TargetLayerRatio float64 `json:"target_layer_ratio" mapstructure:"target_layer_ratio"`

	MaxInfillDensity        map[string]float64 `json:"max_infill_density" mapstructure:"max_infill_density"` // percent, keyed by pattern name
	DefaultMaxInfillDensity float64            `json:"default_max_infill_density" mapstructure:"default_max_infill_density"`
	FilamentDensities       map[string]float64 `json:"filament_densities" mapstructure:"filament_densities"` // g/cm³, keyed by upper-case material
	DefaultFilamentDensity  float64            `json:"default_filament_density" mapstructure:"default_filament_density"`

	TravelDominance      float64 `json:"travel_dominance" mapstructure:"travel_dominance"`             // Layer travel time / extrusion time counted as travel dominated
	TravelDominatedShare float64 `json:"travel_dominated_share" mapstructure:"travel_dominated_share"` // Share of layers that triggers travel-combing
	CombingSaving        float64 `json:"combing_saving" mapstructure:"combing_saving"`                 // Expected travel time reduction from combing

	LayerHeightTolerance float64 `json:"layer_height_tolerance" mapstructure:"layer_height_tolerance"` // mm

	Disabled []string `json:"disabled" mapstructure:"disabled"` // Rule names to skip
}

// DefaultConfig returns the rule defaults
func DefaultConfig() Config {
	return Config{
		TravelRatioThreshold: 0.4,
		FallbackTravelSpeed:  150,
		MinLayerRatio:        0.25,
		MaxLayerRatio:        0.75,
		TargetLayerRatio:     0.5,
		MaxInfillDensity: map[string]float64{
			pattern.Rectilinear.String(): 25,
			pattern.Grid.String():        25,
			pattern.Triangles.String():   20,
			pattern.Honeycomb.String():   20,
			pattern.Gyroid.String():      15,
			pattern.Concentric.String():  20,
		},
		DefaultMaxInfillDensity: 30,
		FilamentDensities: map[string]float64{
			"PLA":   1.24,
			"PETG":  1.27,
			"ABS":   1.04,
			"ASA":   1.07,
			"TPU":   1.21,
			"PA":    1.14,
			"NYLON": 1.14,
			"PC":    1.20,
		},
		DefaultFilamentDensity: 1.24,
		TravelDominance:        1.0,
		TravelDominatedShare:   0.2,
		CombingSaving:          0.3,
		LayerHeightTolerance:   0.02,
	}
}

// Validate checks the configuration for invalid values
func (c Config) Validate() error {
	if c.TravelRatioThreshold <= 0 || c.TravelRatioThreshold >= 1 {
		return fmt.Errorf("travel_ratio_threshold must be in (0, 1)")
	}
	if c.FallbackTravelSpeed <= 0 {
		return fmt.Errorf("fallback_travel_speed must be positive")
	}
	if c.MinLayerRatio <= 0 || c.MinLayerRatio >= c.MaxLayerRatio {
		return fmt.Errorf("layer ratio band must satisfy 0 < min < max")
	}
	if c.TargetLayerRatio < c.MinLayerRatio || c.TargetLayerRatio > c.MaxLayerRatio {
		return fmt.Errorf("target_layer_ratio must lie within the layer ratio band")
	}
	for name, v := range c.MaxInfillDensity {
		if _, err := pattern.Parse(name); err != nil {
			return fmt.Errorf("max_infill_density: %w", err)
		}
		if v <= 0 || v > 100 {
			return fmt.Errorf("max_infill_density[%s] must be in (0, 100]", name)
		}
	}
	if c.DefaultMaxInfillDensity <= 0 || c.DefaultMaxInfillDensity > 100 {
		return fmt.Errorf("default_max_infill_density must be in (0, 100]")
	}
	if c.DefaultFilamentDensity <= 0 {
		return fmt.Errorf("default_filament_density must be positive")
	}
	if c.TravelDominance <= 0 {
		return fmt.Errorf("travel_dominance must be positive")
	}
	if c.TravelDominatedShare <= 0 || c.TravelDominatedShare > 1 {
		return fmt.Errorf("travel_dominated_share must be in (0, 1]")
	}
	if c.CombingSaving < 0 || c.CombingSaving > 1 {
		return fmt.Errorf("combing_saving must be in [0, 1]")
	}
	if c.LayerHeightTolerance < 0 {
		return fmt.Errorf("layer_height_tolerance must not be negative")
	}
	return nil
}

// maxInfill returns the structural density ceiling for a pattern
func (c Config) maxInfill(p pattern.Pattern) float64 {
	if v, ok := c.MaxInfillDensity[p.String()]; ok {
		return v
	}
	// Keys may arrive lower-cased from viper
	if v, ok := c.MaxInfillDensity[strings.ToLower(p.String())]; ok {
		return v
	}
	return c.DefaultMaxInfillDensity
}

// filamentDensity returns the density for a material name
func (c Config) filamentDensity(material string) float64 {
	key := strings.ToUpper(strings.TrimSpace(material))
	for name, v := range c.FilamentDensities {
		if strings.ToUpper(name) == key {
			return v
		}
	}
	return c.DefaultFilamentDensity
}
