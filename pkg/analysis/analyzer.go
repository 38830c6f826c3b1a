/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: analyzer.go
Description: Geometric analyzer. Segments an interpreted program into layers in a single
sequential pass, then computes per-layer volume, travel and time metrics on a bounded
worker pool and reduces them into the aggregate Analysis.
*/

package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kleascm/gcode-analyzer/pkg/gcode"
	"github.com/kleascm/gcode-analyzer/pkg/geometry"
	"github.com/kleascm/gcode-analyzer/pkg/logging"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
)

// Analyzer computes layer and aggregate metrics from an interpreted program.
// It holds no per-stream state and may be shared between goroutines.
type Analyzer struct {
	config Config
	infill map[string]bool
	logger logrus.FieldLogger
}

// NewAnalyzer creates an analyzer. A nil logger discards output.
func NewAnalyzer(config Config, logger logrus.FieldLogger) *Analyzer {
	if config.FilamentDiameter <= 0 {
		config.FilamentDiameter = DefaultConfig().FilamentDiameter
	}
	if config.LayerEpsilon <= 0 {
		config.LayerEpsilon = DefaultConfig().LayerEpsilon
	}
	if logger == nil {
		logger = logging.Discard()
	}

	infill := make(map[string]bool, len(config.InfillFeatures))
	for _, f := range config.InfillFeatures {
		infill[strings.ToUpper(strings.TrimSpace(f))] = true
	}

	return &Analyzer{config: config, infill: infill, logger: logger}
}

// Config returns the analyzer configuration
func (a *Analyzer) Config() Config {
	return a.config
}

// FilamentArea returns the filament cross-section in mm²
func (a *Analyzer) FilamentArea() float64 {
	r := a.config.FilamentDiameter / 2
	return math.Pi * r * r
}

// Analyze segments the program into layers and computes all metrics
func (a *Analyzer) Analyze(ctx context.Context, prog *gcode.Program) (*Analysis, error) {
	if prog == nil {
		return nil, fmt.Errorf("nil program")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	seg := a.segment(prog)

	layers := make([]LayerInfo, len(seg.spans))
	warnings := make([][]gcode.Warning, len(seg.spans))

	p := pool.New().WithMaxGoroutines(a.config.workers()).WithContext(ctx)
	for i := range seg.spans {
		i := i
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			layers[i], warnings[i] = a.measure(prog, seg, i)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("layer metrics: %w", err)
	}

	result := &Analysis{
		Layers:           layers,
		BoundingBox:      boundingBox(prog),
		FilamentDiameter: a.config.FilamentDiameter,
		Warnings:         a.programWarnings(prog, seg),
	}

	for i, l := range layers {
		result.TotalVolume += l.ExtrusionVolume
		result.EstimatedPrintTime += l.PrintTime
		result.TravelDistance += l.TravelDistance
		result.TravelTime += l.TravelTime
		result.ExtrusionDistance += l.ExtrusionDistance
		result.ExtrusionTime += l.ExtrusionTime
		result.FilamentLength += l.FilamentLength
		result.InfillVolume += l.InfillVolume
		result.ArcMoves += l.ArcMoves
		result.Retractions += l.Retractions
		if l.Anomalous {
			result.AnomalousLayers++
			result.Warnings = append(result.Warnings, gcode.Warning{
				Kind:    gcode.WarnLayerAnomaly,
				Line:    l.FirstLine,
				Layer:   l.Index,
				Message: fmt.Sprintf("layer Z %.3f is below previous layer Z %.3f", l.Z, l.Z-l.Thickness),
			})
		}
		result.Warnings = append(result.Warnings, warnings[i]...)
	}

	for _, cmd := range prog.Commands {
		if !cmd.IsComment() {
			result.CommandCount++
		}
	}

	a.logger.WithFields(logrus.Fields{
		"layers":     len(layers),
		"volume_mm3": result.TotalVolume,
		"time_s":     result.EstimatedPrintTime,
		"warnings":   len(result.Warnings),
		"duration":   time.Since(start),
	}).Debug("Layer segmentation complete")

	return result, nil
}

// measure computes the metrics of one layer span
func (a *Analyzer) measure(prog *gcode.Program, seg *segmentation, idx int) (LayerInfo, []gcode.Warning) {
	span := seg.spans[idx]
	area := a.FilamentArea()

	info := LayerInfo{
		Index:     idx,
		Z:         span.z,
		Thickness: span.z,
		Anomalous: span.anomalous,
	}
	if idx > 0 {
		info.Thickness = span.z - seg.spans[idx-1].z
	}

	var indeterminate, firstIndeterminate int
	for _, ci := range span.commands {
		cmd := prog.Commands[ci]
		if info.FirstLine == 0 {
			info.FirstLine = cmd.LineNumber
		}
		info.LastLine = cmd.LineNumber
		if cmd.IsComment() {
			continue
		}
		info.CommandCount++

		step := prog.Steps[ci]
		if !step.Motion {
			continue
		}
		if step.Arc {
			info.ArcMoves++
		}

		e := step.Extrusion()
		length := step.Length()

		moveTime := 0.0
		if length > 0 {
			if step.FeedRate > 0 {
				moveTime = length / step.FeedRate * 60
			} else {
				info.IndeterminateTime = true
				if indeterminate == 0 {
					firstIndeterminate = cmd.LineNumber
				}
				indeterminate++
			}
		}
		info.PrintTime += moveTime

		switch {
		case e > 0:
			volume := area * e
			feature := seg.features[ci]
			isInfill := a.infill[feature]

			info.ExtrusionVolume += volume
			info.FilamentLength += e
			info.ExtrusionDistance += length
			info.ExtrusionTime += moveTime
			info.ExtrusionMoves++
			if isInfill {
				info.InfillVolume += volume
			}
			if step.PathXY > 0 {
				info.Extrusions = append(info.Extrusions, Extrusion{
					Segment: geometry.Segment{
						A: geometry.Vec2{X: step.From.X, Y: step.From.Y},
						B: geometry.Vec2{X: step.To.X, Y: step.To.Y},
					},
					Length:  length,
					Volume:  volume,
					Feature: feature,
					Line:    cmd.LineNumber,
					Infill:  isInfill,
				})
			}
		case step.PathXY > 0:
			info.TravelDistance += step.PathXY
			info.TravelTime += moveTime
			info.TravelMoves++
			if e < 0 {
				info.Retractions++
			}
		case e < 0:
			info.Retractions++
		}
	}

	var warnings []gcode.Warning
	if indeterminate > 0 {
		warnings = append(warnings, gcode.Warning{
			Kind:    gcode.WarnIndeterminateTime,
			Line:    firstIndeterminate,
			Layer:   idx,
			Message: fmt.Sprintf("%d move(s) without a feed rate contribute no time", indeterminate),
		})
	}
	return info, warnings
}

// programWarnings copies the interpreter warnings, attributing each to its layer
func (a *Analyzer) programWarnings(prog *gcode.Program, seg *segmentation) []gcode.Warning {
	out := make([]gcode.Warning, len(prog.Warnings))
	for i, w := range prog.Warnings {
		if layer, ok := seg.lineLayer[w.Line]; ok && w.Layer < 0 {
			w.Layer = layer
		}
		out[i] = w
	}
	return out
}

// boundingBox covers every resolved position: move targets, homed axes and G92 resets
func boundingBox(prog *gcode.Program) BoundingBox {
	var box BoundingBox
	seen := false
	for _, step := range prog.Steps {
		if !step.Resolved {
			continue
		}
		p := step.To
		if !seen {
			box = BoundingBox{p.X, p.Y, p.Z, p.X, p.Y, p.Z}
			seen = true
			continue
		}
		box[0] = math.Min(box[0], p.X)
		box[1] = math.Min(box[1], p.Y)
		box[2] = math.Min(box[2], p.Z)
		box[3] = math.Max(box[3], p.X)
		box[4] = math.Max(box[4], p.Y)
		box[5] = math.Max(box[5], p.Z)
	}
	return box
}
