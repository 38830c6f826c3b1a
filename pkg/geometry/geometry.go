/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: geometry.go
Description: Planar vector math used by the analyzer and the infill pattern recognizer.
Provides points, segments, axis-aligned bounds and direction arithmetic on undirected
line orientations.
*/

package geometry

import "math"

// Vec2 is a point or direction in the XY plane
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns v - o
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Add returns v + o
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Len returns the Euclidean length
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Dist returns the distance between two points
func (v Vec2) Dist(o Vec2) float64 { return v.Sub(o).Len() }

// Segment is a straight XY move
type Segment struct {
	A Vec2 `json:"a"`
	B Vec2 `json:"b"`
}

// Length returns the segment length
func (s Segment) Length() float64 { return s.A.Dist(s.B) }

// Heading returns the travel direction in degrees, [0, 360)
func (s Segment) Heading() float64 {
	d := s.B.Sub(s.A)
	deg := math.Atan2(d.Y, d.X) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Orientation returns the undirected line angle in degrees, [0, 180)
func (s Segment) Orientation() float64 {
	return NormalizeOrientation(s.Heading())
}

// NormalizeOrientation folds any angle in degrees into [0, 180)
func NormalizeOrientation(deg float64) float64 {
	deg = math.Mod(deg, 180)
	if deg < 0 {
		deg += 180
	}
	if deg >= 180 {
		deg -= 180
	}
	return deg
}

// OrientationDiff returns the smallest difference between two undirected
// orientations in degrees, [0, 90]
func OrientationDiff(a, b float64) float64 {
	d := math.Abs(NormalizeOrientation(a) - NormalizeOrientation(b))
	if d > 90 {
		d = 180 - d
	}
	return d
}

// Turn returns the signed heading change from s to next in degrees, (-180, 180]
func Turn(s, next Segment) float64 {
	d := next.Heading() - s.Heading()
	for d > 180 {
		d -= 360
	}
	for d <= -180 {
		d += 360
	}
	return d
}

// Bounds is an axis-aligned XY rectangle. The zero value is empty.
type Bounds struct {
	Min   Vec2 `json:"min"`
	Max   Vec2 `json:"max"`
	valid bool
}

// Extend grows the bounds to include p
func (b *Bounds) Extend(p Vec2) {
	if !b.valid {
		b.Min, b.Max, b.valid = p, p, true
		return
	}
	b.Min.X = math.Min(b.Min.X, p.X)
	b.Min.Y = math.Min(b.Min.Y, p.Y)
	b.Max.X = math.Max(b.Max.X, p.X)
	b.Max.Y = math.Max(b.Max.Y, p.Y)
}

// Empty reports whether no point has been added
func (b Bounds) Empty() bool { return !b.valid }

// Width returns the X extent
func (b Bounds) Width() float64 { return b.Max.X - b.Min.X }

// Height returns the Y extent
func (b Bounds) Height() float64 { return b.Max.Y - b.Min.Y }

// Area returns the rectangle area, zero when empty
func (b Bounds) Area() float64 {
	if !b.valid {
		return 0
	}
	return b.Width() * b.Height()
}

// StrictlyContains reports whether o lies inside b with a margin greater than tol on every side
func (b Bounds) StrictlyContains(o Bounds, tol float64) bool {
	if !b.valid || !o.valid {
		return false
	}
	return o.Min.X > b.Min.X+tol && o.Min.Y > b.Min.Y+tol &&
		o.Max.X < b.Max.X-tol && o.Max.Y < b.Max.Y-tol
}

// SegmentBounds returns the bounds of a set of segments
func SegmentBounds(segs []Segment) Bounds {
	var b Bounds
	for _, s := range segs {
		b.Extend(s.A)
		b.Extend(s.B)
	}
	return b
}
