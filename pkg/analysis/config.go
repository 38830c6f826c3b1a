/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config.go
Description: Configuration for the geometric analyzer. Holds filament geometry, layer
segmentation tolerances and the worker count used for per-layer metric computation.
*/

package analysis

import (
	"fmt"
	"runtime"
)

// Config holds the geometric analyzer settings
type Config struct {
	FilamentDiameter float64  `json:"filament_diameter" mapstructure:"filament_diameter"` // mm
	DeclaredFilament bool     `json:"declared_filament" mapstructure:"declared_filament"` // Prefer the filament diameter the file declares
	LayerEpsilon     float64  `json:"layer_epsilon" mapstructure:"layer_epsilon"`         // Z change (mm) that counts as a new layer
	ZHopFilter       bool     `json:"zhop_filter" mapstructure:"zhop_filter"`             // Require extrusion before a Z band becomes a layer
	InfillFeatures   []string `json:"infill_features" mapstructure:"infill_features"`     // ;TYPE: values treated as infill
	Workers          int      `json:"workers" mapstructure:"workers"`                     // Per-layer workers, 0 = NumCPU
}

// DefaultConfig returns the analyzer defaults
func DefaultConfig() Config {
	return Config{
		FilamentDiameter: 1.75,
		DeclaredFilament: true,
		LayerEpsilon:     0.001,
		ZHopFilter:       true,
		InfillFeatures:   []string{"FILL", "INFILL", "SPARSE INFILL", "INTERNAL INFILL", "SOLID INFILL", "INTERNAL SOLID INFILL"},
		Workers:          0,
	}
}

// Validate checks the configuration for invalid values
func (c Config) Validate() error {
	if c.FilamentDiameter <= 0 {
		return fmt.Errorf("filament_diameter must be positive")
	}
	if c.LayerEpsilon <= 0 {
		return fmt.Errorf("layer_epsilon must be positive")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}
