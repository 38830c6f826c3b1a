/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: interpreter_test.go
Description: Tests for the command interpreter. Covers the line grammar, malformed line
recovery, the malformed line budget, stream read failures and re-serialization.
*/

package gcode_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/kleascm/gcode-analyzer/pkg/gcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func interpret(t *testing.T, text string) *gcode.Program {
	t.Helper()
	prog, err := gcode.NewInterpreter(gcode.DefaultOptions(), nil).InterpretString(text)
	require.NoError(t, err)
	return prog
}

func warningsOf(prog *gcode.Program, kind gcode.WarningKind) []gcode.Warning {
	var out []gcode.Warning
	for _, w := range prog.Warnings {
		if w.Kind == kind {
			out = append(out, w)
		}
	}
	return out
}

// TestParseLine tests the per-line grammar
func TestParseLine(t *testing.T) {
	t.Run("BasicMove", func(t *testing.T) {
		cmd, ok, err := gcode.ParseLine("G1 X10.5 Y-2 E.4 F1800", 3)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, gcode.TypeG, cmd.Type)
		assert.Equal(t, 1, cmd.Code)
		assert.Equal(t, 3, cmd.LineNumber)
		assert.Equal(t, map[rune]float64{'X': 10.5, 'Y': -2, 'E': 0.4, 'F': 1800}, cmd.Parameters)
		assert.True(t, cmd.IsMotion())
	})

	t.Run("CaseInsensitiveWithoutSpaces", func(t *testing.T) {
		cmd, _, err := gcode.ParseLine("g1x1y2z0.3", 1)
		require.NoError(t, err)
		assert.Equal(t, "G1", cmd.Name())
		assert.Equal(t, 0.3, cmd.Parameters['Z'])
	})

	t.Run("LineNumberChecksumAndComment", func(t *testing.T) {
		cmd, _, err := gcode.ParseLine("N42 G1 X5*71 ; perimeter", 9)
		require.NoError(t, err)
		assert.Equal(t, "G1", cmd.Name())
		assert.Equal(t, 5.0, cmd.Parameters['X'])
		assert.Equal(t, "perimeter", cmd.Comment)
	})

	t.Run("RepeatedParameterLastWins", func(t *testing.T) {
		cmd, _, err := gcode.ParseLine("G1 X1 X7", 1)
		require.NoError(t, err)
		assert.Equal(t, 7.0, cmd.Parameters['X'])
	})

	t.Run("BareLetterFlag", func(t *testing.T) {
		cmd, _, err := gcode.ParseLine("G28 X Y", 1)
		require.NoError(t, err)
		assert.True(t, cmd.Has('X'))
		assert.True(t, cmd.Has('Y'))
		assert.False(t, cmd.Has('Z'))
	})

	t.Run("CommentOnly", func(t *testing.T) {
		cmd, ok, err := gcode.ParseLine("  ;LAYER:3", 1)
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, cmd.IsComment())
		assert.Equal(t, "LAYER:3", cmd.Comment)
	})

	t.Run("BlankLine", func(t *testing.T) {
		_, ok, err := gcode.ParseLine("   \t", 1)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("DisplayMessage", func(t *testing.T) {
		cmd, _, err := gcode.ParseLine("M117 Printing layer 2", 1)
		require.NoError(t, err)
		assert.Equal(t, "Printing layer 2", cmd.Argument)
		assert.Empty(t, cmd.Parameters)
	})

	t.Run("FirmwareMacro", func(t *testing.T) {
		cmd, _, err := gcode.ParseLine("PRINT_START BED=60 EXTRUDER=210", 1)
		require.NoError(t, err)
		assert.Equal(t, "PRINT_START", cmd.Macro)
		assert.Equal(t, "BED=60 EXTRUDER=210", cmd.Argument)
		assert.Zero(t, cmd.Type)
		assert.False(t, cmd.IsMotion())
		assert.False(t, cmd.IsSupported())

		cmd, _, err = gcode.ParseLine(`RESPOND MSG="layer done"`, 2)
		require.NoError(t, err)
		assert.Equal(t, "RESPOND", cmd.Macro)

		cmd, _, err = gcode.ParseLine("SET_FAN_SPEED fan at half", 2)
		require.Error(t, err)
		assert.True(t, cmd.Malformed)

		cmd, _, err = gcode.ParseLine("PAUSE", 3)
		require.NoError(t, err)
		assert.Equal(t, "PAUSE", cmd.Macro)
	})

	t.Run("FreeTextIsMalformed", func(t *testing.T) {
		for _, line := range []string{"this is junk", "hello world", "more junk here", "PRINTSTART", "print_start"} {
			cmd, ok, err := gcode.ParseLine(line, 7)
			require.True(t, ok, line)
			require.Error(t, err, line)
			assert.True(t, cmd.Malformed, line)
			assert.Empty(t, cmd.Macro, line)
			assert.Zero(t, cmd.Type, line)
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		for _, line := range []string{"G1 X1 ??", "G-1", "N10", "G1 X1.2.3", "?5"} {
			cmd, ok, err := gcode.ParseLine(line, 5)
			require.True(t, ok, line)
			require.Error(t, err, line)
			assert.True(t, cmd.Malformed, line)
			assert.Empty(t, cmd.Parameters, line)
			assert.GreaterOrEqual(t, cmd.Code, 0, line)
		}
	})
}

// TestInterpreterRelativePositioning checks mode switching mid-stream
func TestInterpreterRelativePositioning(t *testing.T) {
	prog := interpret(t, "G90\nG1 X10 Y10\nG91\nG1 X5\n")

	assert.Equal(t, 15.0, prog.Final.Position.X)
	assert.Equal(t, 10.0, prog.Final.Position.Y)
	assert.True(t, prog.Final.RelativePosition)
	assert.Empty(t, prog.Warnings)
}

// TestInterpreterExtrusionModesIndependent checks M83 does not affect XYZ and G91 does not affect E
func TestInterpreterExtrusionModesIndependent(t *testing.T) {
	prog := interpret(t, "G1 X10 E1\nM83\nG1 X20 E1\nG1 X30 E1\nG91\nM82\nG1 X1 E4\n")

	assert.Equal(t, 31.0, prog.Final.Position.X)
	assert.Equal(t, 4.0, prog.Final.Position.E)
	assert.False(t, prog.Final.RelativeExtrusion)
}

// TestInterpreterMalformedLinesContinue checks recovery from malformed input
func TestInterpreterMalformedLinesContinue(t *testing.T) {
	prog := interpret(t, "G1 X1\nG1 X?\n\nG1 X3\nQ5 R1\n")

	require.Len(t, prog.Commands, 4)
	assert.Equal(t, 5, prog.Lines)
	assert.Equal(t, 3.0, prog.Final.Position.X)

	malformed := warningsOf(prog, gcode.WarnMalformedLine)
	require.Len(t, malformed, 1)
	assert.Equal(t, 2, malformed[0].Line)

	unsupported := warningsOf(prog, gcode.WarnUnsupportedCommand)
	require.Len(t, unsupported, 1)
	assert.Equal(t, 5, unsupported[0].Line)
	assert.Equal(t, 'Q', prog.Commands[3].Type)
}

// TestInterpreterMissingReference checks relative moves before any absolute reference
func TestInterpreterMissingReference(t *testing.T) {
	prog := interpret(t, "G91\nG1 X5\nG1 X5\nG1 Y2\n")

	assert.Equal(t, 10.0, prog.Final.Position.X)
	assert.Equal(t, 2.0, prog.Final.Position.Y)
	missing := warningsOf(prog, gcode.WarnMissingReference)
	require.Len(t, missing, 2)
	assert.Equal(t, 2, missing[0].Line)
	assert.Equal(t, 4, missing[1].Line)
}

// TestInterpreterMalformedBudget checks that exceeding the budget stops interpretation
func TestInterpreterMalformedBudget(t *testing.T) {
	in := gcode.NewInterpreter(gcode.Options{MaxMalformedLines: 2}, nil)
	prog, err := in.InterpretString("G1 X1\n?1\n?2\nG1 X2\n?3\nG1 X9\n")

	require.Error(t, err)
	assert.True(t, errors.Is(err, gcode.ErrMalformedBudget))

	var budget *gcode.BudgetError
	require.True(t, errors.As(err, &budget))
	assert.Equal(t, 2, budget.Limit)
	assert.Equal(t, 5, budget.LastLine)
	assert.Contains(t, err.Error(), "3 malformed lines")

	require.NotNil(t, prog)
	assert.True(t, prog.Stopped)
	assert.Equal(t, 2.0, prog.Final.Position.X)
}

// TestInterpreterFreeTextBudget checks that free text lines count against the budget
func TestInterpreterFreeTextBudget(t *testing.T) {
	in := gcode.NewInterpreter(gcode.Options{MaxMalformedLines: 1}, nil)
	prog, err := in.InterpretString("G1 X1\nthis is junk\nmore junk here\nagain junk\nG1 X2\n")

	var budget *gcode.BudgetError
	require.True(t, errors.As(err, &budget))
	assert.Equal(t, 3, budget.LastLine)

	require.NotNil(t, prog)
	assert.True(t, prog.Stopped)
	assert.Len(t, prog.Commands, 3)
	assert.Equal(t, 1.0, prog.Final.Position.X)
	assert.Len(t, warningsOf(prog, gcode.WarnMalformedLine), 2)
	assert.Empty(t, warningsOf(prog, gcode.WarnUnsupportedCommand))
}

// TestInterpreterOversizedLine checks that an over-long line is recorded as malformed
func TestInterpreterOversizedLine(t *testing.T) {
	in := gcode.NewInterpreter(gcode.Options{MaxLineLength: 256}, nil)
	prog, err := in.InterpretString("G1 X1\n;" + strings.Repeat("x", 200000) + "\nG1 X2\n")

	require.NoError(t, err)
	require.NotNil(t, prog)
	assert.Equal(t, 3, prog.Lines)
	require.Len(t, prog.Commands, 3)
	assert.True(t, prog.Commands[1].Malformed)
	assert.Len(t, prog.Commands[1].Raw, 64)
	assert.Equal(t, 2.0, prog.Final.Position.X)

	malformed := warningsOf(prog, gcode.WarnMalformedLine)
	require.Len(t, malformed, 1)
	assert.Equal(t, 2, malformed[0].Line)
}

type failingReader struct{ sent bool }

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		return copy(p, "G1 X1\n"), nil
	}
	return 0, errors.New("device removed")
}

// TestInterpreterUnreadableStream checks that read failures are fatal
func TestInterpreterUnreadableStream(t *testing.T) {
	prog, err := gcode.NewInterpreter(gcode.DefaultOptions(), nil).Interpret(&failingReader{})

	require.Error(t, err)
	assert.Nil(t, prog)
	assert.True(t, errors.Is(err, gcode.ErrStreamUnreadable))
	assert.Contains(t, err.Error(), "device removed")
}

// TestSerializeIdempotent checks that reparsing serialized output reproduces the final state
func TestSerializeIdempotent(t *testing.T) {
	sources := map[string]string{
		"absolute": "G21\nG90\nM82\nG28\nG1 Z0.2 F3000\nG1 X10 Y10 E1 F1200\nG1 X20 E2\nG92 E0\nG1 Y20 E0.5\n",
		"relative": "G28\nG91\nM83\nG1 X5 Y5 E0.2 F900\nG1 X-2 E0.1\nG1 Z0.4\n",
		"inches":   "G20\nG90\nG1 X1 Y1 F10\nG91\nG1 X0.5\n",
		"arcs":     "G90\nG1 X0 Y0\nG2 X10 Y0 I5 J0 E1 F600\nG3 X0 Y0 R5 E2\n",
		"bare g92": "G1 X4 Y4 Z1 E3\nG92\nG1 X1 E1\n",
	}

	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			first := interpret(t, src)
			text := gcode.SerializeString(first)
			second := interpret(t, text)

			assert.Equal(t, first.Final, second.Final)
			assert.Equal(t, text, gcode.SerializeString(second))
		})
	}
}

// TestCommandString checks rendering with sorted parameters
func TestCommandString(t *testing.T) {
	cmd, _, err := gcode.ParseLine("g1 y2 x1 ; move", 1)
	require.NoError(t, err)
	assert.Equal(t, "G1 X1 Y2 ;move", cmd.String())
	w := gcode.Warning{Kind: gcode.WarnMalformedLine, Line: 4, Layer: -1, Message: "bad token"}
	assert.True(t, strings.HasPrefix(w.String(), "[malformed-line] line 4"))
}
