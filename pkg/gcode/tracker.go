/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: tracker.go
Description: Position and modal-state tracking. Resolves absolute/relative coordinate
and extrusion modes, modal feed rate and unit selection as each command is consumed.
The state is an explicit value threaded through interpretation so independent streams
can be processed concurrently.
*/

package gcode

import (
	"fmt"
	"math"
)

const inchToMM = 25.4

// Axis indexes the four tracked axes
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
	AxisE
)

var axisLetters = [4]rune{'X', 'Y', 'Z', 'E'}

// Letter returns the G-code parameter letter of the axis
func (a Axis) Letter() rune {
	return axisLetters[a]
}

// Position is an absolute machine position in millimeters
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
	E float64 `json:"e" yaml:"e"`
}

// Get returns the value of one axis
func (p Position) Get(a Axis) float64 {
	switch a {
	case AxisX:
		return p.X
	case AxisY:
		return p.Y
	case AxisZ:
		return p.Z
	default:
		return p.E
	}
}

// With returns a copy of the position with one axis replaced
func (p Position) With(a Axis, v float64) Position {
	switch a {
	case AxisX:
		p.X = v
	case AxisY:
		p.Y = v
	case AxisZ:
		p.Z = v
	default:
		p.E = v
	}
	return p
}

// ModalState is the parser context that persists across commands until changed.
// The zero value is the stream start state: absolute positioning, absolute
// extrusion, millimeters, origin position and no feed rate.
type ModalState struct {
	Position          Position `json:"position"`           // Last known value of every axis
	RelativePosition  bool     `json:"relative_position"`  // G91 active for X/Y/Z
	RelativeExtrusion bool     `json:"relative_extrusion"` // M83 active for E
	FeedRate          float64  `json:"feed_rate"`          // Modal feed rate in mm/min
	Inches            bool     `json:"inches"`             // G20 active
	Referenced        [3]bool  `json:"referenced"`         // X/Y/Z have an established absolute reference
}

// Step is the resolved effect of one command on the machine position
type Step struct {
	From     Position `json:"from"`      // Position before the command
	To       Position `json:"to"`        // Resolved absolute position after the command
	FeedRate float64  `json:"feed_rate"` // Feed rate in effect for the command (mm/min)
	Motion   bool     `json:"motion"`    // Command was a G0-G3 move
	Arc      bool     `json:"arc"`       // Command was a G2/G3 arc
	Resolved bool     `json:"resolved"`  // Command established X/Y/Z (move, G28 homing, G92 on a linear axis)
	PathXY   float64  `json:"path_xy"`   // XY path length in mm (arc length for arcs)
}

// Extrusion returns the filament fed by a motion step. Non-motion steps such as
// G92 resets never extrude.
func (s Step) Extrusion() float64 {
	if !s.Motion {
		return 0
	}
	return s.To.E - s.From.E
}

// Length returns the toolhead path length including Z travel. Extruder-only moves
// (retractions, primes) use the filament distance.
func (s Step) Length() float64 {
	if !s.Motion {
		return 0
	}
	dz := s.To.Z - s.From.Z
	length := math.Hypot(s.PathXY, dz)
	if length == 0 {
		length = math.Abs(s.To.E - s.From.E)
	}
	return length
}

// Advance applies one command to the state. It returns the updated state, the
// resolved step and any recoverable warnings. Unknown command families and codes
// leave the position untouched.
func Advance(state ModalState, cmd Command) (ModalState, Step, []Warning) {
	next := state
	step := Step{From: state.Position, FeedRate: state.FeedRate}
	var warnings []Warning

	if cmd.Malformed || cmd.IsComment() || cmd.Macro != "" {
		step.To = state.Position
		return next, step, nil
	}

	switch cmd.Type {
	case TypeG:
		switch cmd.Code {
		case 0, 1, 2, 3:
			warnings = next.move(cmd, &step)
			step.Resolved = true
		case 20:
			next.Inches = true
		case 21:
			next.Inches = false
		case 28:
			next.home(cmd)
			step.Resolved = true
		case 90:
			next.RelativePosition = false
		case 91:
			next.RelativePosition = true
		case 92:
			step.Resolved = next.setPosition(cmd)
		}
	case TypeM:
		switch cmd.Code {
		case 82:
			next.RelativeExtrusion = false
		case 83:
			next.RelativeExtrusion = true
		}
	}

	for i := range warnings {
		warnings[i].Line = cmd.LineNumber
	}

	step.To = next.Position
	step.FeedRate = next.FeedRate
	return next, step, warnings
}

func (s *ModalState) unitScale() float64 {
	if s.Inches {
		return inchToMM
	}
	return 1
}

// move resolves a G0-G3 target. Omitted axes keep their last known value.
func (s *ModalState) move(cmd Command, step *Step) []Warning {
	var warnings []Warning
	scale := s.unitScale()

	if f, ok := cmd.Get('F'); ok && f >= 0 {
		s.FeedRate = f * scale
	}

	target := s.Position
	for _, axis := range []Axis{AxisX, AxisY, AxisZ} {
		v, ok := cmd.Get(axis.Letter())
		if !ok {
			continue
		}
		v *= scale
		if s.RelativePosition {
			if !s.Referenced[axis] {
				warnings = append(warnings, Warning{
					Kind:    WarnMissingReference,
					Layer:   -1,
					Message: fmt.Sprintf("relative %c move before an absolute reference, assuming origin", axis.Letter()),
				})
				s.Referenced[axis] = true
			}
			target = target.With(axis, target.Get(axis)+v)
		} else {
			target = target.With(axis, v)
			s.Referenced[axis] = true
		}
	}

	if e, ok := cmd.Get('E'); ok {
		e *= scale
		if s.RelativeExtrusion {
			target.E += e
		} else {
			target.E = e
		}
	}

	step.Motion = true
	step.Arc = cmd.IsArc()
	if step.Arc {
		step.PathXY = arcLength(s.Position, target, cmd, scale)
	} else {
		step.PathXY = math.Hypot(target.X-s.Position.X, target.Y-s.Position.Y)
	}

	s.Position = target
	return warnings
}

// home handles G28. Named axes (or all of X/Y/Z when none are named) return to zero.
func (s *ModalState) home(cmd Command) {
	axes := []Axis{AxisX, AxisY, AxisZ}
	named := make([]Axis, 0, 3)
	for _, a := range axes {
		if cmd.Has(a.Letter()) {
			named = append(named, a)
		}
	}
	if len(named) == 0 {
		named = axes
	}
	for _, a := range named {
		s.Position = s.Position.With(a, 0)
		s.Referenced[a] = true
	}
}

// setPosition handles G92. Named axes take the given values; a bare G92 zeroes all axes.
// It reports whether any of X/Y/Z was set.
func (s *ModalState) setPosition(cmd Command) bool {
	scale := s.unitScale()
	axes := []Axis{AxisX, AxisY, AxisZ, AxisE}
	explicit, linear := false, false
	for _, a := range axes {
		if v, ok := cmd.Get(a.Letter()); ok {
			s.Position = s.Position.With(a, v*scale)
			if a != AxisE {
				s.Referenced[a] = true
				linear = true
			}
			explicit = true
		}
	}
	if !explicit {
		s.Position = Position{}
		s.Referenced = [3]bool{true, true, true}
		return true
	}
	return linear
}

// arcLength returns the XY length of a G2/G3 arc from its I/J centre offsets or R
// radius. Degenerate arcs fall back to the chord.
func arcLength(from, to Position, cmd Command, scale float64) float64 {
	chord := math.Hypot(to.X-from.X, to.Y-from.Y)
	clockwise := cmd.Is(TypeG, 2)

	i, hasI := cmd.Get('I')
	j, hasJ := cmd.Get('J')
	if hasI || hasJ {
		cx := from.X + i*scale
		cy := from.Y + j*scale
		r := math.Hypot(from.X-cx, from.Y-cy)
		if r == 0 {
			return chord
		}
		a0 := math.Atan2(from.Y-cy, from.X-cx)
		a1 := math.Atan2(to.Y-cy, to.X-cx)
		var sweep float64
		if clockwise {
			sweep = a0 - a1
		} else {
			sweep = a1 - a0
		}
		if sweep <= 1e-9 {
			sweep += 2 * math.Pi
		}
		return r * sweep
	}

	if rv, ok := cmd.Get('R'); ok && rv != 0 {
		r := math.Abs(rv * scale)
		if chord == 0 || chord > 2*r {
			return chord
		}
		sweep := 2 * math.Asin(chord/(2*r))
		if rv < 0 {
			sweep = 2*math.Pi - sweep
		}
		return r * sweep
	}

	return chord
}
