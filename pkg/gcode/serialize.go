/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: serialize.go
Description: Re-serialization of resolved positions. Emits a Program as absolute,
millimeter G-code so that reparsing it reproduces the same final modal state.
*/

package gcode

import (
	"fmt"
	"io"
	"strings"
)

// Serialize writes the program's resolved motion as absolute G-code. Relative
// moves, arcs and inch units are flattened to absolute millimeter G1 moves; the
// final positioning, extrusion and unit modes are restored at the end.
func Serialize(w io.Writer, prog *Program) error {
	ew := &errWriter{w: w}
	ew.line("G21")
	ew.line("G90")
	ew.line("M82")

	var state ModalState
	for i, cmd := range prog.Commands {
		next, _, _ := Advance(state, cmd)
		step := prog.Steps[i]

		switch {
		case cmd.IsMotion():
			var b strings.Builder
			b.WriteString("G1")
			for _, a := range []Axis{AxisX, AxisY, AxisZ} {
				if next.Referenced[a] {
					fmt.Fprintf(&b, " %c%s", a.Letter(), formatFloat(step.To.Get(a)))
				}
			}
			fmt.Fprintf(&b, " E%s", formatFloat(step.To.E))
			if next.FeedRate != state.FeedRate || cmd.Has('F') {
				fmt.Fprintf(&b, " F%s", formatFloat(next.FeedRate))
			}
			ew.line(b.String())
		case cmd.Is(TypeG, 28):
			var b strings.Builder
			b.WriteString("G28")
			for _, a := range []Axis{AxisX, AxisY, AxisZ} {
				if cmd.Has(a.Letter()) {
					fmt.Fprintf(&b, " %c", a.Letter())
				}
			}
			ew.line(b.String())
		case cmd.Is(TypeG, 92):
			var b strings.Builder
			b.WriteString("G92")
			named := false
			for _, a := range []Axis{AxisX, AxisY, AxisZ, AxisE} {
				if cmd.Has(a.Letter()) {
					fmt.Fprintf(&b, " %c%s", a.Letter(), formatFloat(step.To.Get(a)))
					named = true
				}
			}
			if !named {
				b.WriteString(" X0 Y0 Z0 E0")
			}
			ew.line(b.String())
		}
		state = next
	}

	if prog.Final.RelativePosition {
		ew.line("G91")
	}
	if prog.Final.RelativeExtrusion {
		ew.line("M83")
	}
	if prog.Final.Inches {
		ew.line("G20")
	}
	return ew.err
}

// SerializeString returns the serialized program as a string
func SerializeString(prog *Program) string {
	var b strings.Builder
	_ = Serialize(&b, prog)
	return b.String()
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) line(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = io.WriteString(ew.w, s+"\n")
}
