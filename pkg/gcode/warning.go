/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: warning.go
Description: Recoverable condition reporting. Every recoverable problem found while
interpreting or analyzing a stream is recorded as a Warning so no data is dropped
without a retrievable signal.
*/

package gcode

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// WarningKind classifies a recoverable condition
type WarningKind string

const (
	WarnMalformedLine      WarningKind = "malformed-line"
	WarnUnsupportedCommand WarningKind = "unsupported-command"
	WarnMissingReference   WarningKind = "missing-reference"
	WarnIndeterminateTime  WarningKind = "indeterminate-time"
	WarnLayerAnomaly       WarningKind = "layer-z-decrease"
)

// Warning is a recoverable condition attached to an interpretation or analysis result
type Warning struct {
	Kind    WarningKind `json:"kind" yaml:"kind"`       // Warning classification
	Line    int         `json:"line" yaml:"line"`       // Source line number (0 when not line-specific)
	Layer   int         `json:"layer" yaml:"layer"`     // Layer index, -1 when not layer-specific
	Message string      `json:"message" yaml:"message"` // Human readable description
}

// String formats the warning for logs and terminal output
func (w Warning) String() string {
	switch {
	case w.Line > 0:
		return fmt.Sprintf("[%s] line %d: %s", w.Kind, w.Line, w.Message)
	case w.Layer >= 0:
		return fmt.Sprintf("[%s] layer %d: %s", w.Kind, w.Layer, w.Message)
	default:
		return fmt.Sprintf("[%s] %s", w.Kind, w.Message)
	}
}

// CountWarnings tallies warnings by kind
func CountWarnings(warnings []Warning) map[WarningKind]int {
	counts := make(map[WarningKind]int)
	for _, w := range warnings {
		counts[w.Kind]++
	}
	return counts
}

// ErrStreamUnreadable is returned when the input stream cannot be read.
// It is the only condition that aborts interpretation outright.
var ErrStreamUnreadable = errors.New("gcode stream unreadable")

// ErrMalformedBudget is matched by errors.Is on a BudgetError
var ErrMalformedBudget = errors.New("malformed line budget exceeded")

// BudgetError reports that interpretation stopped after too many malformed lines.
// The partial Program is still returned alongside it.
type BudgetError struct {
	Limit    int   // Configured malformed line budget
	LastLine int   // Line number at which interpretation stopped
	Lines    error // Combined per-line errors
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("stopped at line %d after %d malformed lines: %v",
		e.LastLine, len(multierr.Errors(e.Lines)), e.Lines)
}

// Is allows errors.Is(err, ErrMalformedBudget)
func (e *BudgetError) Is(target error) bool {
	return target == ErrMalformedBudget
}

// Unwrap exposes the individual line errors
func (e *BudgetError) Unwrap() []error {
	return multierr.Errors(e.Lines)
}
