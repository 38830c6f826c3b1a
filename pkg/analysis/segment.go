/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: segment.go
Description: Layer segmentation. A single sequential pass assigns every command to a
layer. With the Z-hop filter on, a Z band only becomes a layer once something is
extruded at it; lifts that return to the current layer fold back into it.
*/

package analysis

import (
	"math"
	"strings"

	"github.com/kleascm/gcode-analyzer/pkg/gcode"
)

// span is one committed layer: its Z and the indexes of the commands it owns
type span struct {
	z         float64
	anomalous bool
	commands  []int
}

// segmentation is the output of the sequential pass
type segmentation struct {
	spans     []span
	features  []string    // ;TYPE: tag in effect for each command
	lineLayer map[int]int // Source line to layer index
	eps       float64
}

func (s *segmentation) commit(z float64, commands []int) {
	sp := span{z: z, commands: commands}
	if n := len(s.spans); n > 0 && z < s.spans[n-1].z-s.eps {
		sp.anomalous = true
	}
	s.spans = append(s.spans, sp)
}

func (s *segmentation) fold(commands ...int) {
	last := &s.spans[len(s.spans)-1]
	last.commands = append(last.commands, commands...)
}

// atCurrent reports whether z lies within epsilon of the last committed layer
func (s *segmentation) atCurrent(z float64) bool {
	n := len(s.spans)
	return n > 0 && math.Abs(z-s.spans[n-1].z) <= s.eps
}

func extruding(step gcode.Step) bool {
	return step.Motion && step.Extrusion() > 0
}

// segment runs the sequential pass over the program
func (a *Analyzer) segment(prog *gcode.Program) *segmentation {
	seg := &segmentation{
		features:  make([]string, len(prog.Commands)),
		lineLayer: make(map[int]int),
		eps:       a.config.LayerEpsilon,
	}

	feature := ""
	extrudes := false
	for i, cmd := range prog.Commands {
		if cmd.IsComment() {
			if f, ok := featureTag(cmd.Comment); ok {
				feature = f
			}
		}
		seg.features[i] = feature
		if extruding(prog.Steps[i]) {
			extrudes = true
		}
	}

	if a.config.ZHopFilter && extrudes {
		seg.byExtrusion(prog)
	} else {
		seg.byZ(prog)
	}

	for li, sp := range seg.spans {
		for _, ci := range sp.commands {
			seg.lineLayer[prog.Commands[ci].LineNumber] = li
		}
	}
	return seg
}

// byExtrusion commits a layer at the first extruding move of each new Z band.
// Commands seen in between are held until the band is either confirmed or left.
func (s *segmentation) byExtrusion(prog *gcode.Program) {
	var pending []int
	for i, step := range prog.Steps {
		switch {
		case s.atCurrent(step.To.Z):
			s.fold(append(pending, i)...)
			pending = nil
		case extruding(step):
			s.commit(step.To.Z, append(pending, i))
			pending = nil
		default:
			pending = append(pending, i)
		}
	}
	if len(pending) > 0 {
		s.fold(pending...)
	}
}

// byZ commits a layer on every Z change of a motion command. Commands before the
// first motion lead into the first layer.
func (s *segmentation) byZ(prog *gcode.Program) {
	var pending []int
	for i, step := range prog.Steps {
		switch {
		case len(s.spans) == 0 && !step.Motion:
			pending = append(pending, i)
		case !step.Motion, s.atCurrent(step.To.Z):
			s.fold(i)
		default:
			s.commit(step.To.Z, append(pending, i))
			pending = nil
		}
	}
	if len(pending) > 0 {
		s.commit(prog.Steps[pending[0]].To.Z, pending)
	}
}

// featureTag extracts a slicer feature name from ";TYPE:Infill" (Prusa, Orca,
// Cura) or "; feature infill" (Simplify3D) comments
func featureTag(comment string) (string, bool) {
	c := strings.TrimSpace(comment)
	upper := strings.ToUpper(c)
	switch {
	case strings.HasPrefix(upper, "TYPE:"):
		return strings.TrimSpace(upper[len("TYPE:"):]), true
	case strings.HasPrefix(upper, "FEATURE "):
		return strings.TrimSpace(upper[len("FEATURE "):]), true
	}
	return "", false
}
