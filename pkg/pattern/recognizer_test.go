/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: recognizer_test.go
Description: Tests for infill pattern recognition on synthetic layers, density
estimation and the cross-layer vote.
*/

package pattern

import (
	"math"
	"math/rand"
	"testing"

	"github.com/kleascm/gcode-analyzer/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seg(ax, ay, bx, by float64) geometry.Segment {
	return geometry.Segment{A: geometry.Vec2{X: ax, Y: ay}, B: geometry.Vec2{X: bx, Y: by}}
}

// path turns a polyline into connected segments
func path(points ...geometry.Vec2) []geometry.Segment {
	segs := make([]geometry.Segment, 0, len(points))
	for i := 1; i < len(points); i++ {
		segs = append(segs, geometry.Segment{A: points[i-1], B: points[i]})
	}
	return segs
}

// headings builds a connected path of equal-length segments with the given headings in degrees
func headings(length float64, degs ...float64) []geometry.Segment {
	p := geometry.Vec2{}
	points := []geometry.Vec2{p}
	for _, d := range degs {
		rad := d * math.Pi / 180
		p = geometry.Vec2{X: p.X + length*math.Cos(rad), Y: p.Y + length*math.Sin(rad)}
		points = append(points, p)
	}
	return path(points...)
}

func classify(segs []geometry.Segment) Classification {
	return NewRecognizer(DefaultConfig()).Classify(segs)
}

// TestClassifyRectilinearAlternating tests strict 0°/90° alternation
func TestClassifyRectilinearAlternating(t *testing.T) {
	var degs []float64
	for i := 0; i < 20; i++ {
		degs = append(degs, 0, 90)
	}
	c := classify(headings(5, degs...))

	assert.Equal(t, Rectilinear, c.Pattern)
	assert.GreaterOrEqual(t, c.Confidence, DefaultConfig().ConfidenceThreshold)
}

// TestClassifyRectilinearSingleDirection tests zigzag lines with short connectors
func TestClassifyRectilinearSingleDirection(t *testing.T) {
	var points []geometry.Vec2
	for row := 0; row < 12; row++ {
		y := float64(row) * 2
		if row%2 == 0 {
			points = append(points, geometry.Vec2{X: 0, Y: y}, geometry.Vec2{X: 40, Y: y})
		} else {
			points = append(points, geometry.Vec2{X: 40, Y: y}, geometry.Vec2{X: 0, Y: y})
		}
	}
	c := classify(path(points...))

	assert.Equal(t, Rectilinear, c.Pattern)
	assert.Greater(t, c.Confidence, 0.9)
}

// TestClassifyRandomUnknown tests that uniformly random directions stay unclassified
func TestClassifyRandomUnknown(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	segs := make([]geometry.Segment, 0, 500)
	for i := 0; i < 500; i++ {
		x, y := rng.Float64()*100, rng.Float64()*100
		angle := rng.Float64() * 2 * math.Pi
		l := 1 + rng.Float64()*9
		segs = append(segs, seg(x, y, x+l*math.Cos(angle), y+l*math.Sin(angle)))
	}
	c := classify(segs)

	assert.Equal(t, Unknown, c.Pattern)
	assert.Less(t, c.Confidence, DefaultConfig().ConfidenceThreshold)
}

// TestClassifyGrid tests both directions printed as separate passes
func TestClassifyGrid(t *testing.T) {
	var segs []geometry.Segment
	for i := 0; i < 10; i++ {
		y := float64(i) * 5
		segs = append(segs, seg(0, y, 50, y))
	}
	for i := 0; i < 10; i++ {
		x := float64(i) * 5
		segs = append(segs, seg(x, 0, x, 50))
	}
	c := classify(segs)

	assert.Equal(t, Grid, c.Pattern)
	assert.InDelta(t, 1.0, c.Confidence, 1e-9)
}

// TestClassifyTriangles tests three line families 60° apart
func TestClassifyTriangles(t *testing.T) {
	var segs []geometry.Segment
	for _, deg := range []float64{0, 60, 120} {
		rad := deg * math.Pi / 180
		for i := 0; i < 5; i++ {
			off := float64(i) * 6
			x, y := -off*math.Sin(rad), off*math.Cos(rad)
			segs = append(segs, seg(x, y, x+40*math.Cos(rad), y+40*math.Sin(rad)))
		}
	}
	c := classify(segs)

	assert.Equal(t, Triangles, c.Pattern)
}

// TestClassifyHoneycomb tests a path of hexagonal turns
func TestClassifyHoneycomb(t *testing.T) {
	var degs []float64
	for i := 0; i < 10; i++ {
		degs = append(degs, 0, 60, 0, -60)
	}
	c := classify(headings(3, degs...))

	assert.Equal(t, Honeycomb, c.Pattern)
	assert.GreaterOrEqual(t, c.Confidence, DefaultConfig().ConfidenceThreshold)
}

// TestClassifyGyroid tests a smoothly curving wave
func TestClassifyGyroid(t *testing.T) {
	var points []geometry.Vec2
	for x := 0.0; x <= 60; x += 0.5 {
		points = append(points, geometry.Vec2{X: x, Y: 2 * math.Sin(x/2)})
	}
	c := classify(path(points...))

	assert.Equal(t, Gyroid, c.Pattern)
}

// TestClassifyConcentric tests closed nested loops
func TestClassifyConcentric(t *testing.T) {
	var segs []geometry.Segment
	for i := 0; i < 5; i++ {
		lo, hi := float64(i)*4, 50-float64(i)*4
		segs = append(segs, path(
			geometry.Vec2{X: lo, Y: lo},
			geometry.Vec2{X: hi, Y: lo},
			geometry.Vec2{X: hi, Y: hi},
			geometry.Vec2{X: lo, Y: hi},
			geometry.Vec2{X: lo, Y: lo},
		)...)
	}
	c := classify(segs)

	assert.Equal(t, Concentric, c.Pattern)
	assert.InDelta(t, 1.0, c.Confidence, 1e-9)
}

// TestClassifyTooFewSegments tests the minimum segment count
func TestClassifyTooFewSegments(t *testing.T) {
	c := classify([]geometry.Segment{seg(0, 0, 10, 0), seg(10, 0, 10, 10)})
	assert.Equal(t, Unknown, c.Pattern)
	assert.Zero(t, c.Confidence)
}

// TestNewRecognizerPartialConfig tests per-field defaults for partial configs
func TestNewRecognizerPartialConfig(t *testing.T) {
	r := NewRecognizer(Config{AngleTolerance: 8, MinSegments: 6})
	cfg := r.Config()

	assert.Equal(t, 8.0, cfg.AngleTolerance)
	assert.Equal(t, 6, cfg.MinSegments)
	assert.Equal(t, DefaultConfig().BinWidth, cfg.BinWidth)
	assert.Equal(t, DefaultConfig().ConfidenceThreshold, cfg.ConfidenceThreshold)
	require.NoError(t, cfg.Validate())

	var degs []float64
	for i := 0; i < 20; i++ {
		degs = append(degs, 0, 90)
	}
	assert.NotPanics(t, func() {
		assert.Equal(t, Rectilinear, r.Classify(headings(5, degs...)).Pattern)
	})

	assert.Equal(t, DefaultConfig(), NewRecognizer(Config{}).Config())
	assert.Equal(t, DefaultConfig().BinWidth, NewRecognizer(Config{BinWidth: -1}).Config().BinWidth)
}

// TestClassifyAllPreservesOrder tests parallel classification
func TestClassifyAllPreservesOrder(t *testing.T) {
	rect := headings(5, 0, 90, 0, 90, 0, 90, 0, 90)
	layers := [][]geometry.Segment{rect, nil, rect}

	out := NewRecognizer(Config{}).ClassifyAll(layers, 2)
	require.Len(t, out, 3)
	assert.Equal(t, Rectilinear, out[0].Pattern)
	assert.Equal(t, Unknown, out[1].Pattern)
	assert.Equal(t, Rectilinear, out[2].Pattern)
}

// TestCalculateInfillDensity tests density and its cap
func TestCalculateInfillDensity(t *testing.T) {
	segs := []geometry.Segment{seg(0, 0, 100, 0), seg(0, 10, 100, 10)}

	assert.InDelta(t, 8.0, CalculateInfillDensity(segs, 0.4, 1000), 1e-9)
	assert.Equal(t, 100.0, CalculateInfillDensity(segs, 0.4, 10))
	assert.Zero(t, CalculateInfillDensity(segs, 0.4, 0))
}

// TestVote tests the interior-layer majority
func TestVote(t *testing.T) {
	t.Run("ExcludesFirstAndLast", func(t *testing.T) {
		v := Vote([]Classification{
			{Pattern: Concentric, Confidence: 1},
			{Pattern: Gyroid, Confidence: 0.8},
			{Pattern: Gyroid, Confidence: 0.9},
			{Pattern: Rectilinear, Confidence: 0.7},
			{Pattern: Concentric, Confidence: 1},
		})
		assert.Equal(t, Gyroid, v.Pattern)
		assert.InDelta(t, 0.85, v.Confidence, 1e-9)
	})

	t.Run("UnknownDoesNotVote", func(t *testing.T) {
		v := Vote([]Classification{
			{Pattern: Rectilinear, Confidence: 1},
			{Pattern: Unknown}, {Pattern: Unknown}, {Pattern: Grid, Confidence: 0.7},
			{Pattern: Rectilinear, Confidence: 1},
		})
		assert.Equal(t, Grid, v.Pattern)
	})

	t.Run("TieBreaksOnConfidence", func(t *testing.T) {
		v := Vote([]Classification{
			{}, {Pattern: Grid, Confidence: 0.7}, {Pattern: Triangles, Confidence: 0.9}, {},
		})
		assert.Equal(t, Triangles, v.Pattern)
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Equal(t, Unknown, Vote(nil).Pattern)
	})
}

// TestPatternText tests name encoding
func TestPatternText(t *testing.T) {
	b, err := Honeycomb.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "HONEYCOMB", string(b))

	var p Pattern
	require.NoError(t, p.UnmarshalText([]byte("gyroid")))
	assert.Equal(t, Gyroid, p)
	assert.Error(t, p.UnmarshalText([]byte("voronoi")))
}
