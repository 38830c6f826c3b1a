/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: pattern.go
Description: Infill pattern enumeration. A closed set of recognized infill styles with an
explicit Unknown member for layers that cannot be classified with enough confidence.
*/

package pattern

import (
	"fmt"
	"strings"
)

// Pattern is a recognized infill style
type Pattern int

const (
	Unknown Pattern = iota
	Rectilinear
	Grid
	Triangles
	Honeycomb
	Gyroid
	Concentric
)

var names = map[Pattern]string{
	Unknown:     "UNKNOWN",
	Rectilinear: "RECTILINEAR",
	Grid:        "GRID",
	Triangles:   "TRIANGLES",
	Honeycomb:   "HONEYCOMB",
	Gyroid:      "GYROID",
	Concentric:  "CONCENTRIC",
}

// All returns every recognizable pattern followed by Unknown
func All() []Pattern {
	return []Pattern{Rectilinear, Grid, Triangles, Honeycomb, Gyroid, Concentric, Unknown}
}

// String returns the upper-case pattern name
func (p Pattern) String() string {
	if n, ok := names[p]; ok {
		return n
	}
	return fmt.Sprintf("Pattern(%d)", int(p))
}

// Parse returns the pattern with the given name, case-insensitive
func Parse(name string) (Pattern, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for p, n := range names {
		if n == upper {
			return p, nil
		}
	}
	return Unknown, fmt.Errorf("unknown infill pattern: %q", name)
}

// MarshalText encodes the pattern by name for JSON, YAML and CSV output
func (p Pattern) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a pattern name
func (p *Pattern) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Classification is the result of classifying one layer
type Classification struct {
	Pattern    Pattern `json:"pattern" yaml:"pattern"`
	Confidence float64 `json:"confidence" yaml:"confidence"` // Share of segment length supporting the pattern, 0..1
}
