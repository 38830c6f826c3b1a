/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utilities.go
Description: Utility commands for the analyzer. Provides list-patterns, list-rules and the
self-check used to validate configuration and output before batch runs.
*/

package commands

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/kleascm/gcode-analyzer/pkg/core"
	"github.com/kleascm/gcode-analyzer/pkg/optimize"
	"github.com/kleascm/gcode-analyzer/pkg/pattern"
	"github.com/kleascm/gcode-analyzer/pkg/reporting"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// patternDescriptions explains each recognized infill
var patternDescriptions = map[pattern.Pattern]string{
	pattern.Rectilinear: "Parallel lines whose direction alternates 90° between layers",
	pattern.Grid:        "Two perpendicular line sets printed in the same layer",
	pattern.Triangles:   "Three line sets 60° apart forming a triangular lattice",
	pattern.Honeycomb:   "Zig-zag paths turning at ±60°/±120° that tile hexagons",
	pattern.Gyroid:      "Smoothly curving paths with small, continuous turns",
	pattern.Concentric:  "Nested closed loops following the part outline",
	pattern.Unknown:     "Too few segments or no pattern above the confidence threshold",
}

// ListPatterns lists the infill patterns the recognizer can report
func ListPatterns(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("Recognized infill patterns"))
	fmt.Fprintln(out)

	for i, p := range pattern.All() {
		fmt.Fprintf(out, "%d. %s\n", i+1, headerStyle.Render(p.String()))
		fmt.Fprintf(out, "   %s\n", patternDescriptions[p])
	}
}

// ListRules lists the optimization rules and whether configuration disables them
func ListRules(cmd *cobra.Command, args []string) error {
	config, err := LoadConfig()
	if err != nil {
		return err
	}

	enabled := make(map[string]bool)
	for _, r := range optimize.NewEngine(config.Optimize).Rules() {
		enabled[r.Name()] = true
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("Optimization rules"))
	fmt.Fprintln(out)
	for i, r := range optimize.DefaultRules(config.Optimize) {
		state := okStyle.Render("enabled")
		if !enabled[r.Name()] {
			state = dimStyle.Render("disabled")
		}
		fmt.Fprintf(out, "%d. %s (%s)\n", i+1, headerStyle.Render(r.Name()), state)
		fmt.Fprintf(out, "   %s\n", r.Description())
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, dimStyle.Render("Use --disable-rule to skip a rule"))
	return nil
}

// selfCheckGCode is a two layer print used to exercise the pipeline
const selfCheckGCode = `; generated by PrusaSlicer 2.6.0
G21
G90
M83
G1 Z0.2 F600
G1 X0 Y0 F3000
G1 X20 Y0 E0.75 F1200
G1 X20 Y20 E0.75
G1 Z0.4 F600
G1 X0 Y20 E0.75 F1200
G1 X0 Y0 E0.75
; layer_height = 0.2
`

// selfCheck is one named validation step
type selfCheck struct {
	name     string
	optional bool
	run      func() error
}

// PerformSelfCheck validates configuration, directories, templates and the pipeline
func PerformSelfCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("G-code analyzer self-check"))
	fmt.Fprintln(out)

	config, configErr := LoadConfig()
	report, reportErr := LoadReportConfig()
	fs := afero.NewOsFs()

	loaded := func() error {
		if configErr != nil {
			return configErr
		}
		return reportErr
	}

	checks := []selfCheck{
		{name: "Configuration Validation", run: loaded},
		{name: "Log Directory", run: func() error {
			if err := loaded(); err != nil {
				return err
			}
			return checkWritable(fs, config.Logging.OutputDir)
		}},
		{name: "Report Directory", run: func() error {
			if err := loaded(); err != nil {
				return err
			}
			return checkWritable(fs, report.OutputDir)
		}},
		{name: "Report Templates", run: func() error {
			if err := loaded(); err != nil {
				return err
			}
			_, err := reporting.NewWriter(fs, report, nil)
			return err
		}},
		{name: "Pipeline Sample", run: func() error {
			if err := loaded(); err != nil {
				return err
			}
			return checkPipeline(config)
		}},
		{name: "PDF Renderer", optional: true, run: checkChrome},
	}

	passed, required := 0, 0
	for _, check := range checks {
		if !check.optional {
			required++
		}
		fmt.Fprintf(out, "%-26s ", check.name)
		err := check.run()
		switch {
		case err == nil:
			fmt.Fprintln(out, okStyle.Render("PASSED"))
			if !check.optional {
				passed++
			}
		case check.optional:
			fmt.Fprintf(out, "%s %v\n", warnStyle.Render("SKIPPED"), err)
		default:
			fmt.Fprintf(out, "%s %v\n", badStyle.Render("FAILED"), err)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Results: %d/%d checks passed\n", passed, required)
	if passed < required {
		return fmt.Errorf("%d/%d checks failed", required-passed, required)
	}
	return nil
}

// checkWritable creates dir when needed and writes a probe file into it. An empty
// dir means the output is disabled.
func checkWritable(fs afero.Fs, dir string) error {
	if dir == "" {
		return nil
	}
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}
	f, err := afero.TempFile(fs, dir, ".check-*")
	if err != nil {
		return fmt.Errorf("cannot write to %s: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return fs.Remove(name)
}

// checkPipeline analyzes the built-in sample and checks its layer count
func checkPipeline(config *core.Config) error {
	engine, err := core.NewEngine(config, nil)
	if err != nil {
		return err
	}
	result, err := engine.AnalyzeString(context.Background(), selfCheckGCode, "self-check")
	if err != nil {
		return err
	}
	if n := len(result.Analysis.Layers); n != 2 {
		return fmt.Errorf("expected 2 layers in the sample, got %d", n)
	}
	return nil
}

// chromeBinaries are the executables chromedp can drive
var chromeBinaries = []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell", "chrome"}

func checkChrome() error {
	for _, name := range chromeBinaries {
		if _, err := exec.LookPath(name); err == nil {
			return nil
		}
	}
	return fmt.Errorf("no Chrome or Chromium found, pdf output unavailable")
}
