/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: analyze.go
Description: Analyze, layers and suggest commands. Run the pipeline over the given files
and print reports, layer tables or ranked suggestions.
*/

package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kleascm/gcode-analyzer/pkg/core"
	"github.com/kleascm/gcode-analyzer/pkg/gcode"
	"github.com/kleascm/gcode-analyzer/pkg/optimize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunAnalyze analyzes every file argument and emits one report per file
func RunAnalyze(cmd *cobra.Command, args []string) error {
	format, err := reportFormat()
	if err != nil {
		return err
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext()
	defer cancel()

	out := cmd.OutOrStdout()
	failed := 0
	for _, br := range s.engine.AnalyzeBatch(ctx, args) {
		if br.Result == nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %v\n", badStyle.Render("✗"), br.Source, br.Err)
			continue
		}
		warnPartial(cmd, br)
		if err := s.emit(ctx, out, br.Result, format); err != nil {
			return fmt.Errorf("failed to report %s: %w", br.Source, err)
		}
	}

	stats := s.engine.Stats()
	s.logger.Info("Batch complete", map[string]interface{}{
		"files":       stats.Files,
		"failures":    stats.Failures,
		"layers":      stats.Layers,
		"suggestions": stats.Suggestions,
	})

	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be analyzed", failed, len(args))
	}
	return nil
}

// RunLayers prints the per-layer table of one file
func RunLayers(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext()
	defer cancel()

	result, err := s.engine.AnalyzeFile(ctx, args[0])
	if result == nil {
		return err
	}
	warnPartial(cmd, core.BatchResult{Source: args[0], Result: result, Err: err})

	fmt.Fprint(cmd.OutOrStdout(), RenderLayers(result))
	return nil
}

// RunSuggest prints ranked suggestions for every file argument
func RunSuggest(cmd *cobra.Command, args []string) error {
	minImpact, err := parseImpact(viper.GetString("suggest.min_impact"))
	if err != nil {
		return err
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext()
	defer cancel()

	failed := 0
	for _, br := range s.engine.AnalyzeBatch(ctx, args) {
		if br.Result == nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %v\n", badStyle.Render("✗"), br.Source, br.Err)
			continue
		}
		warnPartial(cmd, br)
		fmt.Fprintln(cmd.OutOrStdout(), RenderSuggestions(br.Source, br.Result.Suggestions, minImpact))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be analyzed", failed, len(args))
	}
	return nil
}

// warnPartial notes results cut short by the malformed line budget
func warnPartial(cmd *cobra.Command, br core.BatchResult) {
	var budget *gcode.BudgetError
	if errors.As(br.Err, &budget) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %v (partial analysis)\n", warnStyle.Render("!"), br.Source, budget)
	}
}

func parseImpact(name string) (optimize.Impact, error) {
	switch impact := optimize.Impact(strings.ToLower(strings.TrimSpace(name))); impact {
	case "":
		return optimize.ImpactLow, nil
	case optimize.ImpactLow, optimize.ImpactMedium, optimize.ImpactHigh:
		return impact, nil
	default:
		return "", fmt.Errorf("unknown impact %q (low, medium, high)", name)
	}
}
