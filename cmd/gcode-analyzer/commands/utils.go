/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared utilities for the analyzer commands. Loads configuration from files,
flags and environment, sets up logging and builds the engine and report writer.
*/

package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-viper/mapstructure/v2"
	"github.com/kleascm/gcode-analyzer/pkg/core"
	"github.com/kleascm/gcode-analyzer/pkg/logging"
	"github.com/kleascm/gcode-analyzer/pkg/reporting"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. GCODE_ANALYZER_LOGGING_LEVEL
const EnvPrefix = "GCODE_ANALYZER"

// gcodeExtensions are the file suffixes treated as G-code
var gcodeExtensions = map[string]bool{".gcode": true, ".gco": true, ".g": true}

// IsGCode reports whether a path looks like a G-code file
func IsGCode(path string) bool {
	return gcodeExtensions[strings.ToLower(filepath.Ext(path))]
}

func decodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

// LoadConfig reads the optional config file and environment, then decodes the
// pipeline configuration over the defaults
func LoadConfig() (*core.Config, error) {
	// Set config file if specified
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Set environment variable prefix
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	if err := registerDefaults(); err != nil {
		return nil, err
	}

	config := core.DefaultConfig()
	if err := viper.Unmarshal(config, decodeHook()); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// registerDefaults exposes every pipeline setting to viper so environment
// variables can override keys that have no flag
func registerDefaults() error {
	var defaults map[string]interface{}
	if err := mapstructure.Decode(core.DefaultConfig(), &defaults); err != nil {
		return fmt.Errorf("failed to encode defaults: %w", err)
	}
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
	return nil
}

// LoadReportConfig decodes the report section over the report defaults
func LoadReportConfig() (reporting.Config, error) {
	doc := struct {
		Report reporting.Config `mapstructure:"report"`
	}{Report: reporting.DefaultConfig()}

	if err := viper.Unmarshal(&doc, decodeHook()); err != nil {
		return doc.Report, fmt.Errorf("failed to decode report config: %w", err)
	}
	if doc.Report.OutputDir == "" {
		if format, err := reportFormat(); err == nil && format.Binary() {
			doc.Report.OutputDir = reporting.DefaultConfig().OutputDir
		}
	}
	return doc.Report, nil
}

// SetupLogging creates the analyzer logger from the logging section
func SetupLogging(config *core.Config) (*logging.Logger, error) {
	logger, err := logging.NewLogger(&config.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	return logger, nil
}

// session bundles everything a command needs to analyze and report
type session struct {
	config *core.Config
	report reporting.Config
	logger *logging.Logger
	engine *core.Engine
	writer *reporting.Writer
	fs     afero.Fs
}

// newSession loads configuration and builds the engine and writer
func newSession() (*session, error) {
	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	report, err := LoadReportConfig()
	if err != nil {
		return nil, err
	}
	logger, err := SetupLogging(config)
	if err != nil {
		return nil, err
	}

	engine, err := core.NewEngine(config, logger.GetLogger())
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	engine.AddReporter(core.NewLoggerReporter(logger))

	fs := afero.NewOsFs()
	writer, err := reporting.NewWriter(fs, report, logger.GetLogger())
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("failed to create report writer: %w", err)
	}

	return &session{
		config: config,
		report: report,
		logger: logger,
		engine: engine,
		writer: writer,
		fs:     fs,
	}, nil
}

// Close releases the log file
func (s *session) Close() error {
	return s.logger.Close()
}

// emit prints a report to out, or writes it into the output directory when one is
// configured. Binary formats always have a directory, see LoadReportConfig.
func (s *session) emit(ctx context.Context, out io.Writer, result *core.Result, format reporting.Format) error {
	report := reporting.NewReport(result, s.report.Title)

	if s.report.OutputDir == "" {
		if format == reporting.FormatText {
			fmt.Fprintln(out, RenderSummary(report))
		}
		return s.writer.Render(ctx, out, report, format)
	}

	path, err := s.writer.WriteFile(ctx, report, format)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s -> %s\n", okStyle.Render("✓"), result.Source, path)
	return nil
}

// reportFormat returns the --format value
func reportFormat() (reporting.Format, error) {
	return reporting.ParseFormat(viper.GetString("format"))
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nReceived shutdown signal, stopping...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
