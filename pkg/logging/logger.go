/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logger.go
Description: Logging system for the G-code analyzer. Wraps logrus with timestamped log
files, selectable output formats, rotation by size and cleanup of old files, plus
analysis-specific helpers for parse, layer, warning and suggestion events.
*/

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warn"
	LogLevelError   LogLevel = "error"
)

// LogFormat represents the logging format
type LogFormat string

const (
	LogFormatJSON   LogFormat = "json"
	LogFormatText   LogFormat = "text"
	LogFormatCustom LogFormat = "custom"
)

const filePrefix = "gcode-analyzer_"

// LoggerConfig holds the configuration for the logger
type LoggerConfig struct {
	Level     LogLevel  `json:"level" mapstructure:"level"`
	Format    LogFormat `json:"format" mapstructure:"format"`
	OutputDir string    `json:"output_dir" mapstructure:"output_dir"` // Empty disables file output
	MaxFiles  int       `json:"max_files" mapstructure:"max_files"`
	MaxSize   int64     `json:"max_size" mapstructure:"max_size"` // in bytes
	Timestamp bool      `json:"timestamp" mapstructure:"timestamp"`
	Caller    bool      `json:"caller" mapstructure:"caller"`
	Colors    bool      `json:"colors" mapstructure:"colors"`
	Console   io.Writer `json:"-" mapstructure:"-"` // Defaults to stderr
}

// DefaultLoggerConfig returns the console-only defaults used by the CLI
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:     LogLevelInfo,
		Format:    LogFormatCustom,
		MaxFiles:  10,
		MaxSize:   50 * 1024 * 1024, // 50MB
		Timestamp: true,
		Colors:    true,
	}
}

// Validate checks the LoggerConfig for invalid or missing values
func (c *LoggerConfig) Validate() error {
	if c.OutputDir != "" {
		if c.MaxFiles <= 0 {
			return fmt.Errorf("max_files must be positive")
		}
		if c.MaxSize <= 0 {
			return fmt.Errorf("max_size must be positive")
		}
	}
	switch c.Format {
	case LogFormatJSON, LogFormatText, LogFormatCustom:
	default:
		return fmt.Errorf("unsupported log format: %s", c.Format)
	}
	switch c.Level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
	default:
		return fmt.Errorf("unsupported log level: %s", c.Level)
	}
	return nil
}

// Logger provides analyzer logging on top of logrus
type Logger struct {
	config     *LoggerConfig
	logger     *logrus.Logger
	fileHandle *os.File
	filePath   string
	startTime  time.Time
	mu         sync.Mutex
}

// NewLogger creates a new logger instance. A nil config uses DefaultLoggerConfig.
func NewLogger(config *LoggerConfig) (*Logger, error) {
	if config == nil {
		config = DefaultLoggerConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger config: %w", err)
	}

	l := &Logger{
		config:    config,
		logger:    logrus.New(),
		startTime: time.Now(),
	}

	if err := l.setup(); err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	return l, nil
}

// Discard returns a logger that drops every entry. Library components use it
// when the caller does not supply one.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}

func (l *Logger) setup() error {
	level, err := logrus.ParseLevel(string(l.config.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.logger.SetLevel(level)
	l.logger.SetReportCaller(l.config.Caller)

	if err := l.setFormatter(); err != nil {
		return err
	}
	return l.setupOutput()
}

func (l *Logger) setFormatter() error {
	prettyCaller := func(f *runtime.Frame) (string, string) {
		return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
	}

	switch l.config.Format {
	case LogFormatJSON:
		l.logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:  time.RFC3339,
			CallerPrettyfier: prettyCaller,
		})
	case LogFormatText:
		l.logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    l.config.Timestamp,
			TimestampFormat:  time.RFC3339,
			ForceColors:      l.config.Colors,
			DisableColors:    !l.config.Colors,
			CallerPrettyfier: prettyCaller,
		})
	case LogFormatCustom:
		l.logger.SetFormatter(&AnalyzerFormatter{
			CustomFormatter: CustomFormatter{
				Timestamp: l.config.Timestamp,
				Caller:    l.config.Caller,
				Colors:    l.config.Colors,
			},
		})
	default:
		return fmt.Errorf("unsupported log format: %s", l.config.Format)
	}
	return nil
}

// setupOutput writes to the console and, when configured, a timestamped log file
func (l *Logger) setupOutput() error {
	console := l.config.Console
	if console == nil {
		console = os.Stderr
	}
	if l.config.OutputDir == "" {
		l.logger.SetOutput(console)
		return nil
	}

	if err := os.MkdirAll(l.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	name := fmt.Sprintf("%s%s.log", filePrefix, time.Now().Format("2006-01-02_15-04-05.000"))
	path := filepath.Join(l.config.OutputDir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.fileHandle = file
	l.filePath = path
	l.logger.SetOutput(io.MultiWriter(console, file))

	l.logger.WithFields(logrus.Fields{
		"start_time": l.startTime.Format(time.RFC3339),
		"log_file":   path,
		"level":      l.config.Level,
		"format":     l.config.Format,
	}).Debug("G-code analyzer logging initialized")

	return nil
}

// Rotate starts a new log file when the current one exceeds MaxSize and removes
// files beyond MaxFiles
func (l *Logger) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileHandle == nil {
		return nil
	}
	stat, err := l.fileHandle.Stat()
	if err != nil {
		return err
	}
	if stat.Size() < l.config.MaxSize {
		return nil
	}

	l.fileHandle.Close()
	if err := l.setupOutput(); err != nil {
		return err
	}
	return l.cleanup()
}

// cleanup removes the oldest log files beyond MaxFiles
func (l *Logger) cleanup() error {
	if l.config.OutputDir == "" {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(l.config.OutputDir, filePrefix+"*.log"))
	if err != nil {
		return err
	}
	if len(files) <= l.config.MaxFiles {
		return nil
	}

	// Names embed the creation timestamp, so lexical order is age order
	sort.Strings(files)
	for _, f := range files[:len(files)-l.config.MaxFiles] {
		if f == l.filePath {
			continue
		}
		os.Remove(f)
	}
	return nil
}

// Close closes the log file and removes files beyond MaxFiles
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileHandle != nil {
		l.fileHandle.Close()
		l.fileHandle = nil
	}
	if err := l.cleanup(); err != nil {
		return fmt.Errorf("failed to cleanup log files: %w", err)
	}
	return nil
}

// GetLogger returns the underlying logrus logger
func (l *Logger) GetLogger() *logrus.Logger {
	return l.logger
}

// FilePath returns the current log file path, empty when logging to console only
func (l *Logger) FilePath() string {
	return l.filePath
}

// Analyzer-specific logging methods

// LogParse logs the outcome of interpreting one stream
func (l *Logger) LogParse(source string, lines, commands, warnings int, duration time.Duration) {
	l.logger.WithFields(logrus.Fields{
		"source":   source,
		"lines":    lines,
		"commands": commands,
		"warnings": warnings,
		"duration": duration,
	}).Info("Stream parsed")
}

// LogLayer logs per-layer metrics at debug level
func (l *Logger) LogLayer(source string, index int, z, volume, printTime float64, pattern string) {
	l.logger.WithFields(logrus.Fields{
		"source":     source,
		"layer":      index,
		"z":          z,
		"volume_mm3": volume,
		"time_s":     printTime,
		"pattern":    pattern,
	}).Debug("Layer analyzed")
}

// LogWarning logs a recoverable condition
func (l *Logger) LogWarning(source, kind string, line int, message string) {
	l.logger.WithFields(logrus.Fields{
		"source": source,
		"kind":   kind,
		"line":   line,
	}).Warn(message)
}

// LogSuggestion logs one optimization suggestion
func (l *Logger) LogSuggestion(source, category string, timeSaving, materialSaving float64) {
	l.logger.WithFields(logrus.Fields{
		"source":          source,
		"category":        category,
		"time_saving_min": timeSaving,
		"material_saving": materialSaving,
	}).Info("Suggestion generated")
}

// LogSummary logs the aggregate result of one analysis
func (l *Logger) LogSummary(source string, layers int, volume, printTime float64, pattern string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["source"] = source
	fields["layers"] = layers
	fields["volume_mm3"] = volume
	fields["time_s"] = printTime
	fields["pattern"] = pattern
	fields["uptime"] = time.Since(l.startTime)

	l.logger.WithFields(fields).Info("Analysis complete")
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.logger.WithFields(fields).Debug(msg)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.logger.WithFields(fields).Info(msg)
}

// Warning logs a warning message
func (l *Logger) Warning(msg string, fields map[string]interface{}) {
	l.logger.WithFields(fields).Warn(msg)
}

// Error logs an error message
func (l *Logger) Error(msg string, fields map[string]interface{}) {
	l.logger.WithFields(fields).Error(msg)
}
