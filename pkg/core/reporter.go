/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: reporter.go
Description: Reporter interface and implementations for pipeline events. Lets the CLI
and watchers observe finished analyses and failures as they happen.
*/

package core

import (
	"sync"

	"github.com/kleascm/gcode-analyzer/pkg/gcode"
	"github.com/kleascm/gcode-analyzer/pkg/logging"
)

// Reporter defines the interface for pipeline event hooks
type Reporter interface {
	// OnResult is called after a stream has been analyzed
	OnResult(result *Result)
	// OnFailure is called when a stream could not be analyzed
	OnFailure(source string, err error)
}

// LoggerReporter logs results through the analyzer logger
type LoggerReporter struct {
	logger *logging.Logger
}

// NewLoggerReporter creates a new LoggerReporter
func NewLoggerReporter(logger *logging.Logger) *LoggerReporter {
	return &LoggerReporter{logger: logger}
}

// OnResult logs the parse, per-layer metrics, warning tallies, suggestions and summary
func (r *LoggerReporter) OnResult(result *Result) {
	a := result.Analysis
	r.logger.LogParse(result.Source, result.Lines, result.Commands, len(a.Warnings), result.Duration)

	for _, l := range a.Layers {
		r.logger.LogLayer(result.Source, l.Index, l.Z, l.ExtrusionVolume, l.PrintTime, l.Pattern.String())
	}

	if len(a.Warnings) > 0 {
		fields := map[string]interface{}{"source": result.Source}
		for kind, n := range gcode.CountWarnings(a.Warnings) {
			fields[string(kind)] = n
		}
		r.logger.Warning("Warnings recorded", fields)
	}
	if result.Stopped {
		r.logger.LogWarning(result.Source, string(gcode.WarnMalformedLine), result.Lines, result.StopReason)
	}

	for _, s := range result.Suggestions {
		r.logger.LogSuggestion(result.Source, s.Category, s.PotentialTimeSaving, s.PotentialMaterialSaving)
	}

	r.logger.LogSummary(result.Source, len(a.Layers), a.TotalVolume, a.EstimatedPrintTime, a.InferredPattern.String(),
		map[string]interface{}{"score": result.Score, "id": result.ID})
}

// OnFailure logs an analysis failure
func (r *LoggerReporter) OnFailure(source string, err error) {
	r.logger.Error("Analysis failed", map[string]interface{}{"source": source, "error": err.Error()})
}

// CollectingReporter keeps every event in memory
type CollectingReporter struct {
	mu       sync.Mutex
	Results  []*Result
	Failures map[string]error
}

// NewCollectingReporter creates an empty CollectingReporter
func NewCollectingReporter() *CollectingReporter {
	return &CollectingReporter{Failures: make(map[string]error)}
}

func (r *CollectingReporter) OnResult(result *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Results = append(r.Results, result)
}

func (r *CollectingReporter) OnFailure(source string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failures[source] = err
}
