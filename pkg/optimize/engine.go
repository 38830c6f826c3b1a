/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine.go
Description: Optimization engine. Runs every enabled rule against an enriched analysis
and ranks the resulting suggestions by combined time and material saving. The engine is
a pure function of its inputs.
*/

package optimize

import (
	"sort"

	"github.com/kleascm/gcode-analyzer/pkg/analysis"
	"github.com/kleascm/gcode-analyzer/pkg/metadata"
)

// Engine evaluates a fixed rule set
type Engine struct {
	config Config
	rules  []Rule
}

// NewEngine creates an engine with the built-in rules plus any extra rules.
// Rules named in config.Disabled are skipped.
func NewEngine(config Config, extra ...Rule) *Engine {
	disabled := make(map[string]bool, len(config.Disabled))
	for _, name := range config.Disabled {
		disabled[name] = true
	}

	var rules []Rule
	for _, r := range append(DefaultRules(config), extra...) {
		if !disabled[r.Name()] {
			rules = append(rules, r)
		}
	}
	return &Engine{config: config, rules: rules}
}

// Rules returns the enabled rules in evaluation order
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Evaluate returns suggestions sorted by descending time plus material saving.
// Ties keep category order.
func (e *Engine) Evaluate(a *analysis.Analysis, md metadata.SlicerMetadata) []Suggestion {
	if a == nil {
		return nil
	}

	var out []Suggestion
	for _, r := range e.rules {
		if s, ok := r.Evaluate(a, md); ok {
			out = append(out, s)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		si, sj := out[i].Score(), out[j].Score()
		if si != sj {
			return si > sj
		}
		return out[i].Category < out[j].Category
	})
	return out
}
