/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: command.go
Description: Structured G-code command representation. Defines the command families the
analyzer understands, parameter access helpers, and the naming used across warnings,
exports and logs.
*/

package gcode

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Command families recognized by the interpreter
const (
	TypeG       rune = 'G' // Motion and coordinate commands
	TypeM       rune = 'M' // Machine/miscellaneous commands
	TypeT       rune = 'T' // Tool selection
	TypeComment rune = ';' // Comment-only line
)

// Command is a single interpreted line of G-code.
// Commands are immutable once produced by the interpreter.
type Command struct {
	Type       rune             `json:"type"`        // Command family letter (G, M, T) or ';' for comments
	Code       int              `json:"code"`        // Command number, always >= 0
	Parameters map[rune]float64 `json:"parameters"`  // Parameter letter to value, last occurrence wins
	Comment    string           `json:"comment"`     // Trailing or full-line comment text
	LineNumber int              `json:"line_number"` // 1-based line number in the source stream
	Argument   string           `json:"argument"`    // Free text argument (M117 messages, macro arguments)
	Macro      string           `json:"macro"`       // Firmware macro name for extended commands such as PRINT_START
	Malformed  bool             `json:"malformed"`   // Line could not be parsed; parameters are empty
	Raw        string           `json:"raw"`         // Original line text
}

// IsRecognized reports whether the command family is one the analyzer understands
func IsRecognized(family rune) bool {
	switch family {
	case TypeG, TypeM, TypeT, TypeComment:
		return true
	}
	return false
}

// Name returns the canonical command name, e.g. "G1" or "M104"
func (c Command) Name() string {
	if c.Type == TypeComment {
		return ";"
	}
	if c.Macro != "" {
		return c.Macro
	}
	if c.Type == 0 {
		return "?"
	}
	return string(c.Type) + strconv.Itoa(c.Code)
}

// Is reports whether the command is the given family and code
func (c Command) Is(family rune, code int) bool {
	return c.Type == family && c.Code == code && !c.Malformed && c.Macro == ""
}

// IsSupported reports whether the command belongs to a recognized family and is
// not a firmware macro
func (c Command) IsSupported() bool {
	return IsRecognized(c.Type) && c.Macro == ""
}

// IsComment reports whether the command is a comment-only line
func (c Command) IsComment() bool {
	return c.Type == TypeComment
}

// IsMotion reports whether the command is a linear or arc move
func (c Command) IsMotion() bool {
	if c.Type != TypeG || c.Malformed || c.Macro != "" {
		return false
	}
	switch c.Code {
	case 0, 1, 2, 3:
		return true
	}
	return false
}

// IsArc reports whether the command is a G2/G3 arc move
func (c Command) IsArc() bool {
	return c.Is(TypeG, 2) || c.Is(TypeG, 3)
}

// Has reports whether the parameter letter was present on the line
func (c Command) Has(letter rune) bool {
	_, ok := c.Parameters[letter]
	return ok
}

// Get returns a parameter value and whether it was present
func (c Command) Get(letter rune) (float64, bool) {
	v, ok := c.Parameters[letter]
	return v, ok
}

// String renders the command back to G-code text with parameters in sorted order
func (c Command) String() string {
	if c.Type == TypeComment {
		return ";" + c.Comment
	}
	if c.Malformed || c.Macro != "" {
		return strings.TrimSpace(c.Raw)
	}

	var b strings.Builder
	b.WriteString(c.Name())

	letters := make([]rune, 0, len(c.Parameters))
	for l := range c.Parameters {
		letters = append(letters, l)
	}
	sort.Slice(letters, func(i, j int) bool { return letters[i] < letters[j] })

	for _, l := range letters {
		fmt.Fprintf(&b, " %c%s", l, formatFloat(c.Parameters[l]))
	}
	if c.Argument != "" {
		b.WriteString(" ")
		b.WriteString(c.Argument)
	}
	if c.Comment != "" {
		b.WriteString(" ;")
		b.WriteString(c.Comment)
	}
	return b.String()
}

// formatFloat renders a float with the shortest exact representation
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
