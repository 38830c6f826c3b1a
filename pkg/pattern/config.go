/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config.go
Description: Tunable thresholds for infill pattern recognition.
*/

package pattern

import "fmt"

// Config holds the recognizer thresholds. Angles are in degrees, shares are
// fractions of total segment length.
type Config struct {
	BinWidth             float64 `json:"bin_width" mapstructure:"bin_width"`                         // Direction histogram bin width
	AngleTolerance       float64 `json:"angle_tolerance" mapstructure:"angle_tolerance"`             // Allowed deviation from 90°/60° peak spacing and hex turns
	ConfidenceThreshold  float64 `json:"confidence_threshold" mapstructure:"confidence_threshold"`   // Below this the layer is UNKNOWN
	MinPeakShare         float64 `json:"min_peak_share" mapstructure:"min_peak_share"`               // Share a direction cluster needs to count as a peak
	BalanceRatio         float64 `json:"balance_ratio" mapstructure:"balance_ratio"`                 // Minimum smaller/larger weight for two-peak patterns
	AlternationThreshold float64 `json:"alternation_threshold" mapstructure:"alternation_threshold"` // Direction switch rate separating RECTILINEAR from GRID
	HexTurnShare         float64 `json:"hex_turn_share" mapstructure:"hex_turn_share"`               // Share of joined turns at ±60°/±120° for HONEYCOMB
	CurvatureShare       float64 `json:"curvature_share" mapstructure:"curvature_share"`             // Share of joined turns that are small and non-zero for GYROID
	MaxSmoothTurn        float64 `json:"max_smooth_turn" mapstructure:"max_smooth_turn"`             // Largest turn still counted as smooth curvature
	ConcentricShare      float64 `json:"concentric_share" mapstructure:"concentric_share"`           // Share of length in closed nested loops for CONCENTRIC
	JoinTolerance        float64 `json:"join_tolerance" mapstructure:"join_tolerance"`               // mm gap still treated as a continuous path
	MinSegments          int     `json:"min_segments" mapstructure:"min_segments"`
}

// DefaultConfig returns the recognizer defaults
func DefaultConfig() Config {
	return Config{
		BinWidth:             5,
		AngleTolerance:       10,
		ConfidenceThreshold:  0.6,
		MinPeakShare:         0.15,
		BalanceRatio:         0.5,
		AlternationThreshold: 0.5,
		HexTurnShare:         0.6,
		CurvatureShare:       0.7,
		MaxSmoothTurn:        30,
		ConcentricShare:      0.8,
		JoinTolerance:        0.05,
		MinSegments:          4,
	}
}

// Validate checks the configuration for invalid values
func (c Config) Validate() error {
	if c.BinWidth <= 0 || c.BinWidth > 45 {
		return fmt.Errorf("bin_width must be in (0, 45]")
	}
	if c.AngleTolerance <= 0 || c.AngleTolerance >= 30 {
		return fmt.Errorf("angle_tolerance must be in (0, 30)")
	}
	for name, v := range map[string]float64{
		"confidence_threshold":  c.ConfidenceThreshold,
		"min_peak_share":        c.MinPeakShare,
		"balance_ratio":         c.BalanceRatio,
		"alternation_threshold": c.AlternationThreshold,
		"hex_turn_share":        c.HexTurnShare,
		"curvature_share":       c.CurvatureShare,
		"concentric_share":      c.ConcentricShare,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0, 1]", name)
		}
	}
	if c.MaxSmoothTurn <= 0 || c.MaxSmoothTurn >= 60-c.AngleTolerance {
		return fmt.Errorf("max_smooth_turn must be positive and below the hex turn window")
	}
	if c.JoinTolerance < 0 {
		return fmt.Errorf("join_tolerance must not be negative")
	}
	if c.MinSegments < 2 {
		return fmt.Errorf("min_segments must be at least 2")
	}
	return nil
}

// withDefaults replaces unset or out of range fields with their defaults
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BinWidth <= 0 || c.BinWidth > 45 {
		c.BinWidth = d.BinWidth
	}
	if c.AngleTolerance <= 0 || c.AngleTolerance >= 30 {
		c.AngleTolerance = d.AngleTolerance
	}
	for _, f := range []struct {
		v   *float64
		def float64
	}{
		{&c.ConfidenceThreshold, d.ConfidenceThreshold},
		{&c.MinPeakShare, d.MinPeakShare},
		{&c.BalanceRatio, d.BalanceRatio},
		{&c.AlternationThreshold, d.AlternationThreshold},
		{&c.HexTurnShare, d.HexTurnShare},
		{&c.CurvatureShare, d.CurvatureShare},
		{&c.ConcentricShare, d.ConcentricShare},
	} {
		if *f.v <= 0 || *f.v > 1 {
			*f.v = f.def
		}
	}
	if c.MaxSmoothTurn <= 0 || c.MaxSmoothTurn >= 60-c.AngleTolerance {
		c.MaxSmoothTurn = min(d.MaxSmoothTurn, (60-c.AngleTolerance)/2)
	}
	if c.JoinTolerance < 0 {
		c.JoinTolerance = d.JoinTolerance
	}
	if c.MinSegments < 2 {
		c.MinSegments = d.MinSegments
	}
	return c
}
