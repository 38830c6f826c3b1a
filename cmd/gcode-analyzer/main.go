/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Command-line interface for the G-code analyzer. Wires flags, configuration
files and environment variables into the analysis pipeline and exposes analysis, layer,
suggestion, watch and self-check commands.
*/

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kleascm/gcode-analyzer/cmd/gcode-analyzer/commands"
	"github.com/kleascm/gcode-analyzer/pkg/core"
	"github.com/kleascm/gcode-analyzer/pkg/reporting"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func main() {
	defaults := core.DefaultConfig()

	// Create root command
	rootCmd := &cobra.Command{
		Use:   "gcode-analyzer",
		Short: "G-code analyzer - layer metrics, infill recognition and print optimization",
		Long: `gcode-analyzer interprets G-code produced by 3D printer slicers, measures every
layer (volume, travel, print time), infers the slicer parameters that produced it,
recognizes the infill pattern and ranks suggestions that would shorten the print or
save material.`,
		Version:       reporting.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// An explicit diameter wins over the one declared in the file
			f := cmd.Flags()
			if f.Changed("filament-diameter") && !f.Changed("declared-filament") {
				viper.Set("analysis.declared_filament", false)
			}
		},
	}

	// Add persistent flags
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Configuration file path (yaml, toml or json)")
	flags.String("log-level", string(defaults.Logging.Level), "Logging level (debug, info, warn, error)")
	flags.String("log-format", string(defaults.Logging.Format), "Log format (text, json, custom)")
	flags.String("log-dir", "", "Log output directory (empty logs to stderr only)")
	flags.Int("workers", defaults.Analysis.Workers, "Per-layer workers (0 = auto-detect)")
	flags.Int("batch-workers", defaults.BatchWorkers, "Files analyzed concurrently (0 = auto-detect)")
	flags.Int("max-malformed", defaults.Interpreter.MaxMalformedLines, "Malformed lines tolerated before stopping (0 = unlimited)")
	flags.Float64("filament-diameter", defaults.Analysis.FilamentDiameter, "Filament diameter in mm")
	flags.Bool("declared-filament", defaults.Analysis.DeclaredFilament, "Measure with the filament diameter the file declares, when present")
	flags.Bool("zhop-filter", defaults.Analysis.ZHopFilter, "Fold Z-hops into the surrounding layer")
	flags.StringSlice("disable-rule", nil, "Optimization rules to skip (see list-rules)")

	// Bind flags to viper
	if err := bindFlags(flags, map[string]string{
		"config":                          "config",
		"logging.level":                   "log-level",
		"logging.format":                  "log-format",
		"logging.output_dir":              "log-dir",
		"analysis.workers":                "workers",
		"batch_workers":                   "batch-workers",
		"interpreter.max_malformed_lines": "max-malformed",
		"analysis.filament_diameter":      "filament-diameter",
		"analysis.declared_filament":      "declared-filament",
		"analysis.zhop_filter":            "zhop-filter",
		"optimize.disabled":               "disable-rule",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Add analyze command
	analyzeCmd := &cobra.Command{
		Use:   "analyze <file>...",
		Short: "Analyze G-code files and print or write reports",
		Long: `Analyze one or more G-code files concurrently. Reports are printed to the terminal
or, with --output-dir, written as files in text, json, yaml, csv, html or pdf format.`,
		Args: cobra.MinimumNArgs(1),
		RunE: commands.RunAnalyze,
	}
	addReportFlags(analyzeCmd)
	rootCmd.AddCommand(analyzeCmd)

	// Add layers command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "layers <file>",
		Short: "Print the per-layer metrics table",
		Args:  cobra.ExactArgs(1),
		RunE:  commands.RunLayers,
	})

	// Add suggest command
	suggestCmd := &cobra.Command{
		Use:   "suggest <file>...",
		Short: "Print ranked optimization suggestions",
		Args:  cobra.MinimumNArgs(1),
		RunE:  commands.RunSuggest,
	}
	suggestCmd.Flags().String("min-impact", "low", "Hide suggestions below this impact (low, medium, high)")
	suggestCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd.Flags(), map[string]string{"suggest.min_impact": "min-impact"})
	}
	rootCmd.AddCommand(suggestCmd)

	// Add watch command
	watchCmd := &cobra.Command{
		Use:   "watch [dir]...",
		Short: "Analyze G-code files as they appear in watched directories",
		Long: `Watch directories for new or rewritten G-code files. Each file is analyzed once it
has stopped changing for the settle period; reports are written when --output-dir is set.`,
		RunE: commands.RunWatch,
	}
	addReportFlags(watchCmd)
	watchCmd.Flags().Duration("settle", 500*time.Millisecond, "Quiet period before a changed file is analyzed")
	bindReport := watchCmd.PreRunE
	watchCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if err := bindReport(cmd, args); err != nil {
			return err
		}
		return bindFlags(cmd.Flags(), map[string]string{"watch.settle": "settle"})
	}
	rootCmd.AddCommand(watchCmd)

	// Add check command for built-in self-checks
	rootCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Perform built-in self-checks for configuration and output",
		Long: `Validate the configuration, log and report directories, the text template and the
PDF renderer, then run the pipeline on a built-in sample. Useful in CI before batch runs.`,
		RunE: commands.PerformSelfCheck,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list-patterns",
		Short: "List recognized infill patterns",
		Run:   commands.ListPatterns,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list-rules",
		Short: "List optimization rules and whether they are enabled",
		RunE:  commands.ListRules,
	})

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// addReportFlags registers the report output flags. Flags are bound when the
// command runs so analyze and watch do not overwrite each other's bindings.
func addReportFlags(cmd *cobra.Command) {
	defaults := reporting.DefaultConfig()
	cmd.Flags().StringP("format", "f", string(reporting.FormatText), "Report format (text, json, yaml, csv, html, pdf)")
	cmd.Flags().StringP("output-dir", "o", "", "Write reports into this directory instead of stdout")
	cmd.Flags().String("title", defaults.Title, "Report title")
	cmd.Flags().String("template", "", "pongo2 template replacing the built-in text report")
	cmd.Flags().Duration("pdf-timeout", defaults.PDFTimeout, "Upper bound on PDF rendering")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd.Flags(), map[string]string{
			"format":               "format",
			"report.output_dir":    "output-dir",
			"report.title":         "title",
			"report.text_template": "template",
			"report.pdf_timeout":   "pdf-timeout",
		})
	}
}

// bindFlags binds each viper key to the named flag
func bindFlags(flags *pflag.FlagSet, bindings map[string]string) error {
	for key, name := range bindings {
		flag := flags.Lookup(name)
		if flag == nil {
			return fmt.Errorf("unknown flag --%s for %s", name, key)
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", name, err)
		}
	}
	return nil
}
