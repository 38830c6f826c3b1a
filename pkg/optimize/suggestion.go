/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: suggestion.go
Description: Improvement suggestion produced by the optimization rules.
*/

package optimize

// Impact is a coarse ranking of how much a suggestion matters
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// Suggestion is one actionable improvement for a print
type Suggestion struct {
	Category                string  `json:"category" yaml:"category"`
	Description             string  `json:"description" yaml:"description"`
	PotentialTimeSaving     float64 `json:"potential_time_saving" yaml:"potential_time_saving"`         // minutes
	PotentialMaterialSaving float64 `json:"potential_material_saving" yaml:"potential_material_saving"` // grams
	Implementation          string  `json:"implementation" yaml:"implementation"`
	Impact                  Impact  `json:"impact" yaml:"impact"`
}

// Score is the ranking key: time plus material saving
func (s Suggestion) Score() float64 {
	return s.PotentialTimeSaving + s.PotentialMaterialSaving
}

// impactOf grades a combined saving
func impactOf(score float64) Impact {
	switch {
	case score >= 10:
		return ImpactHigh
	case score >= 1:
		return ImpactMedium
	default:
		return ImpactLow
	}
}
