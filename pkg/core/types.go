/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types.go
Description: Result and statistics types for the analysis pipeline.
*/

package core

import (
	"sync/atomic"
	"time"

	"github.com/kleascm/gcode-analyzer/pkg/analysis"
	"github.com/kleascm/gcode-analyzer/pkg/inference"
	"github.com/kleascm/gcode-analyzer/pkg/metadata"
	"github.com/kleascm/gcode-analyzer/pkg/optimize"
)

// Result is the complete outcome of analyzing one G-code stream
type Result struct {
	ID          string                  `json:"id" yaml:"id"`         // Unique identifier for this run
	Source      string                  `json:"source" yaml:"source"` // File path or stream label
	Size        int64                   `json:"size" yaml:"size"`     // Bytes, zero when unknown
	StartedAt   time.Time               `json:"started_at" yaml:"started_at"`
	Duration    time.Duration           `json:"duration" yaml:"duration"`
	Lines       int                     `json:"lines" yaml:"lines"`
	Commands    int                     `json:"commands" yaml:"commands"`
	Stopped     bool                    `json:"stopped" yaml:"stopped"` // Interpretation hit the malformed line budget
	StopReason  string                  `json:"stop_reason,omitempty" yaml:"stop_reason,omitempty"`
	Analysis    *analysis.Analysis      `json:"analysis" yaml:"analysis"`
	Parameters  inference.Parameters    `json:"parameters" yaml:"parameters"`
	Metadata    metadata.SlicerMetadata `json:"metadata" yaml:"metadata"`
	Suggestions []optimize.Suggestion   `json:"suggestions" yaml:"suggestions"`
	Score       int                     `json:"score" yaml:"score"` // 60..100 print-profile score
}

// BatchResult pairs a source with its result or failure
type BatchResult struct {
	Source string
	Result *Result
	Err    error
}

// Stats tracks engine totals across runs
// Uses atomic operations for thread-safe updates
type Stats struct {
	Files       int64     `json:"files"`       // Streams analyzed successfully
	Failures    int64     `json:"failures"`    // Streams that could not be analyzed
	Layers      int64     `json:"layers"`      // Layers across all streams
	Warnings    int64     `json:"warnings"`    // Warnings across all streams
	Suggestions int64     `json:"suggestions"` // Suggestions across all streams
	StartTime   time.Time `json:"start_time"`  // When the engine was created
}

// record atomically adds one successful result
func (s *Stats) record(r *Result) {
	atomic.AddInt64(&s.Files, 1)
	atomic.AddInt64(&s.Suggestions, int64(len(r.Suggestions)))
	if r.Analysis != nil {
		atomic.AddInt64(&s.Layers, int64(len(r.Analysis.Layers)))
		atomic.AddInt64(&s.Warnings, int64(len(r.Analysis.Warnings)))
	}
}

// IncrementFailures atomically increments the failure counter
func (s *Stats) IncrementFailures() {
	atomic.AddInt64(&s.Failures, 1)
}

// Snapshot returns a consistent copy of the counters
func (s *Stats) Snapshot() Stats {
	return Stats{
		Files:       atomic.LoadInt64(&s.Files),
		Failures:    atomic.LoadInt64(&s.Failures),
		Layers:      atomic.LoadInt64(&s.Layers),
		Warnings:    atomic.LoadInt64(&s.Warnings),
		Suggestions: atomic.LoadInt64(&s.Suggestions),
		StartTime:   s.StartTime,
	}
}
