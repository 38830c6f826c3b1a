/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine.go
Description: Analysis pipeline engine. Interprets a G-code stream, measures its layers,
infers slicer parameters, classifies infill, scrapes slicer metadata and ranks
optimization suggestions. Batches of files are analyzed on a bounded worker pool.
*/

package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kleascm/gcode-analyzer/pkg/analysis"
	"github.com/kleascm/gcode-analyzer/pkg/gcode"
	"github.com/kleascm/gcode-analyzer/pkg/geometry"
	"github.com/kleascm/gcode-analyzer/pkg/inference"
	"github.com/kleascm/gcode-analyzer/pkg/logging"
	"github.com/kleascm/gcode-analyzer/pkg/metadata"
	"github.com/kleascm/gcode-analyzer/pkg/optimize"
	"github.com/kleascm/gcode-analyzer/pkg/pattern"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
)

// solidDensity marks layers that are solid rather than sparse infill (percent)
const solidDensity = 95.0

// Engine runs the full analysis pipeline. Stages hold no per-stream state, so one
// Engine may analyze many streams concurrently.
type Engine struct {
	config *Config
	logger logrus.FieldLogger
	fs     afero.Fs

	// Pipeline stages
	interpreter *gcode.Interpreter
	analyzer    *analysis.Analyzer
	inference   *inference.Engine
	recognizer  *pattern.Recognizer
	optimizer   *optimize.Engine

	reporters []Reporter
	stats     *Stats
	mu        sync.RWMutex
}

// NewEngine creates an engine from a validated configuration. A nil config uses
// DefaultConfig and a nil logger discards output.
func NewEngine(config *Config, logger logrus.FieldLogger) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = logging.Discard()
	}

	return &Engine{
		config:      config,
		logger:      logger,
		fs:          afero.NewOsFs(),
		interpreter: gcode.NewInterpreter(config.Interpreter, logger),
		analyzer:    analysis.NewAnalyzer(config.Analysis, logger),
		inference:   inference.NewEngine(config.Inference),
		recognizer:  pattern.NewRecognizer(config.Pattern),
		optimizer:   optimize.NewEngine(config.Optimize),
		stats:       &Stats{StartTime: time.Now()},
	}, nil
}

// SetFs replaces the filesystem used by AnalyzeFile
func (e *Engine) SetFs(fs afero.Fs) {
	e.fs = fs
}

// AddReporter registers a reporter for result and failure events
func (e *Engine) AddReporter(r Reporter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reporters = append(e.reporters, r)
}

// Config returns the engine configuration
func (e *Engine) Config() *Config {
	return e.config
}

// Rules returns the enabled optimization rules
func (e *Engine) Rules() []optimize.Rule {
	return e.optimizer.Rules()
}

// Stats returns a snapshot of the engine counters
func (e *Engine) Stats() Stats {
	return e.stats.Snapshot()
}

// AnalyzeString analyzes G-code held in memory
func (e *Engine) AnalyzeString(ctx context.Context, text, source string) (*Result, error) {
	return e.AnalyzeReader(ctx, strings.NewReader(text), source)
}

// AnalyzeFile opens and analyzes one file
func (e *Engine) AnalyzeFile(ctx context.Context, path string) (*Result, error) {
	f, err := e.fs.Open(path)
	if err != nil {
		e.fail(path, err)
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	result, err := e.AnalyzeReader(ctx, f, path)
	if result != nil {
		if info, statErr := f.Stat(); statErr == nil {
			result.Size = info.Size()
		}
	}
	return result, err
}

// AnalyzeBatch analyzes files concurrently, at most BatchWorkers at a time.
// Results keep the order of paths.
func (e *Engine) AnalyzeBatch(ctx context.Context, paths []string) []BatchResult {
	results := make([]BatchResult, len(paths))

	p := pool.New().WithMaxGoroutines(e.config.batchWorkers())
	for i, path := range paths {
		i, path := i, path
		p.Go(func() {
			r, err := e.AnalyzeFile(ctx, path)
			results[i] = BatchResult{Source: path, Result: r, Err: err}
		})
	}
	p.Wait()

	return results
}

// AnalyzeReader runs the pipeline on one stream. When the malformed line budget is
// exceeded the partial result is returned together with the *gcode.BudgetError.
func (e *Engine) AnalyzeReader(ctx context.Context, r io.Reader, source string) (*Result, error) {
	result := &Result{
		ID:        uuid.New().String(),
		Source:    source,
		StartedAt: time.Now(),
	}

	prog, stopErr := e.interpret(ctx, r, source, result)
	if prog == nil {
		e.fail(source, stopErr)
		return nil, stopErr
	}

	result.Metadata = metadata.Extract(prog.Commands)

	a, err := e.analyzerFor(result.Metadata, source).Analyze(ctx, prog)
	if err != nil {
		err = fmt.Errorf("analyze %s: %w", source, err)
		e.fail(source, err)
		return nil, err
	}

	a, result.Parameters = e.inference.Enrich(a)

	if err := ctx.Err(); err != nil {
		e.fail(source, err)
		return nil, err
	}
	a = e.classify(a, result.Parameters.ExtrusionWidth)

	result.Suggestions = e.optimizer.Evaluate(a, result.Metadata)
	result.Analysis = a
	result.Score = Score(a, result.Metadata)
	result.Duration = time.Since(result.StartedAt)

	e.logger.WithFields(logrus.Fields{
		"source":      source,
		"layers":      len(a.Layers),
		"pattern":     a.InferredPattern,
		"suggestions": len(result.Suggestions),
		"duration":    result.Duration,
	}).Debug("Pipeline complete")

	e.stats.record(result)
	e.notify(func(rep Reporter) { rep.OnResult(result) })
	return result, stopErr
}

// analyzerFor returns the analyzer for one stream. When enabled, a positive filament
// diameter declared by the slicer replaces the configured one.
func (e *Engine) analyzerFor(md metadata.SlicerMetadata, source string) *analysis.Analyzer {
	cfg := e.config.Analysis
	declared, ok := md.FilamentDiameter.Get()
	if !cfg.DeclaredFilament || !ok || declared <= 0 || declared == cfg.FilamentDiameter {
		return e.analyzer
	}

	e.logger.WithFields(logrus.Fields{
		"source":     source,
		"configured": cfg.FilamentDiameter,
		"declared":   declared,
	}).Debug("Using declared filament diameter")

	cfg.FilamentDiameter = declared
	return analysis.NewAnalyzer(cfg, e.logger)
}

// interpret runs the interpreter, tolerating a budget stop. It returns a nil
// program on fatal errors.
func (e *Engine) interpret(ctx context.Context, r io.Reader, source string, result *Result) (*gcode.Program, error) {
	prog, err := e.interpreter.Interpret(contextReader{ctx: ctx, r: r})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	var budget *gcode.BudgetError
	switch {
	case err == nil:
	case errors.As(err, &budget):
		result.Stopped = true
		result.StopReason = budget.Error()
	default:
		return nil, fmt.Errorf("interpret %s: %w", source, err)
	}

	result.Lines = prog.Lines
	result.Commands = len(prog.Commands)
	return prog, err
}

// classify labels every layer's infill and votes on the overall pattern
func (e *Engine) classify(a *analysis.Analysis, width float64) *analysis.Analysis {
	segs := make([][]geometry.Segment, len(a.Layers))
	for i, l := range a.Layers {
		segs[i] = l.InfillSegments()
	}
	classes := e.recognizer.ClassifyAll(segs, e.config.layerWorkers())

	perLayer := make([]analysis.LayerPattern, len(classes))
	for i, c := range classes {
		perLayer[i] = analysis.LayerPattern{
			Pattern:    c.Pattern,
			Confidence: c.Confidence,
			Density:    pattern.CalculateInfillDensity(segs[i], width, a.Layers[i].Bounds().Area()),
		}
	}

	return a.WithPatterns(perLayer, pattern.Vote(classes), sparseDensity(perLayer))
}

// sparseDensity averages the positive, non-solid densities of the interior layers
func sparseDensity(perLayer []analysis.LayerPattern) float64 {
	if len(perLayer) > 2 {
		perLayer = perLayer[1 : len(perLayer)-1]
	}
	var sum float64
	n := 0
	for _, p := range perLayer {
		if p.Density > 0 && p.Density < solidDensity {
			sum += p.Density
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func (e *Engine) fail(source string, err error) {
	e.stats.IncrementFailures()
	e.notify(func(rep Reporter) { rep.OnFailure(source, err) })
}

func (e *Engine) notify(fn func(Reporter)) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, r := range e.reporters {
		fn(r)
	}
}

// contextReader stops reading once the context is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
