/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: recognizer.go
Description: Infill pattern recognizer. Classifies the extrusion segments of a layer from
a length-weighted direction histogram, closed-loop nesting and the turn signature of
connected paths. Also provides infill density estimation and the cross-layer vote.
*/

package pattern

import (
	"math"

	"github.com/kleascm/gcode-analyzer/pkg/geometry"
	"github.com/sourcegraph/conc/iter"
)

// Recognizer classifies layers. It is stateless beyond its configuration and
// safe for concurrent use.
type Recognizer struct {
	config Config
}

// NewRecognizer creates a recognizer. Unset or out of range fields take their
// DefaultConfig values.
func NewRecognizer(config Config) *Recognizer {
	return &Recognizer{config: config.withDefaults()}
}

// Config returns the recognizer configuration
func (r *Recognizer) Config() Config {
	return r.config
}

// peak is a dominant direction cluster
type peak struct {
	angle float64 // Mean orientation in degrees, [0, 180)
	share float64 // Fraction of total segment length
}

// turnStats summarizes heading changes between connected segments
type turnStats struct {
	joined   int
	hex      float64 // Share of turns near ±60° or ±120°
	smooth   float64 // Share of small non-zero turns
	bothWays bool    // Small turns occur in both directions
}

// Classify determines the infill pattern of one layer's extrusion segments
func (r *Recognizer) Classify(segs []geometry.Segment) Classification {
	segs = nonDegenerate(segs)
	if len(segs) < r.config.MinSegments {
		return Classification{Pattern: Unknown}
	}

	total := 0.0
	for _, s := range segs {
		total += s.Length()
	}

	if share, ok := r.concentric(segs, total); ok {
		return Classification{Pattern: Concentric, Confidence: share}
	}

	peaks := r.peaks(segs, total)
	turns := r.turns(segs)

	top := 0.0
	if len(peaks) > 0 {
		top = peaks[0].share
	}

	if turns.smooth >= r.config.CurvatureShare && turns.bothWays && top < r.config.ConfidenceThreshold {
		return Classification{Pattern: Gyroid, Confidence: turns.smooth}
	}

	if c, ok := r.fromPeaks(segs, peaks, turns); ok {
		return c
	}

	if turns.hex >= r.config.HexTurnShare && turns.hex >= r.config.ConfidenceThreshold {
		return Classification{Pattern: Honeycomb, Confidence: turns.hex}
	}

	return Classification{Pattern: Unknown, Confidence: math.Max(top, math.Max(turns.hex, turns.smooth))}
}

// ClassifyAll classifies many layers on a bounded worker pool, preserving order
func (r *Recognizer) ClassifyAll(layers [][]geometry.Segment, workers int) []Classification {
	mapper := iter.Mapper[[]geometry.Segment, Classification]{MaxGoroutines: workers}
	return mapper.Map(layers, func(segs *[]geometry.Segment) Classification {
		return r.Classify(*segs)
	})
}

// fromPeaks applies the histogram rules: three peaks 60° apart, two balanced
// peaks 90° apart, or a single dominant direction
func (r *Recognizer) fromPeaks(segs []geometry.Segment, peaks []peak, turns turnStats) (Classification, bool) {
	threshold := r.config.ConfidenceThreshold

	if len(peaks) >= 3 {
		a, b, c := peaks[0], peaks[1], peaks[2]
		if r.spaced(a, b, 60) && r.spaced(b, c, 60) && r.spaced(a, c, 60) {
			if conf := a.share + b.share + c.share; conf >= threshold {
				if turns.hex >= r.config.HexTurnShare {
					return Classification{Pattern: Honeycomb, Confidence: conf}, true
				}
				return Classification{Pattern: Triangles, Confidence: conf}, true
			}
		}
	}

	if len(peaks) >= 2 {
		a, b := peaks[0], peaks[1]
		if r.spaced(a, b, 90) && b.share/a.share >= r.config.BalanceRatio {
			if conf := a.share + b.share; conf >= threshold {
				if r.alternation(segs, a, b) >= r.config.AlternationThreshold {
					return Classification{Pattern: Rectilinear, Confidence: conf}, true
				}
				return Classification{Pattern: Grid, Confidence: conf}, true
			}
		}
	}

	if len(peaks) >= 1 && peaks[0].share >= threshold {
		return Classification{Pattern: Rectilinear, Confidence: peaks[0].share}, true
	}

	return Classification{}, false
}

func (r *Recognizer) spaced(a, b peak, target float64) bool {
	return math.Abs(geometry.OrientationDiff(a.angle, b.angle)-target) <= r.config.AngleTolerance
}

// peaks extracts up to four dominant direction clusters from a length-weighted
// histogram smoothed over neighbouring bins
func (r *Recognizer) peaks(segs []geometry.Segment, total float64) []peak {
	n := int(math.Round(180 / r.config.BinWidth))
	width := 180 / float64(n)

	weight := make([]float64, n)
	sin2 := make([]float64, n)
	cos2 := make([]float64, n)
	for _, s := range segs {
		l := s.Length()
		o := s.Orientation()
		b := int(o/width) % n
		weight[b] += l
		rad := 2 * o * math.Pi / 180
		sin2[b] += l * math.Sin(rad)
		cos2[b] += l * math.Cos(rad)
	}

	smoothed := make([]float64, n)
	for i := range weight {
		smoothed[i] = weight[(i-1+n)%n] + weight[i] + weight[(i+1)%n]
	}

	var found []peak
	for len(found) < 4 {
		best := -1
		for i, v := range smoothed {
			if v > 0 && (best < 0 || v > smoothed[best]) {
				best = i
			}
		}
		if best < 0 || smoothed[best]/total < r.config.MinPeakShare {
			break
		}

		// Doubled-angle mean keeps clusters that straddle 0°/180° together
		var s, c float64
		for d := -1; d <= 1; d++ {
			j := (best + d + n) % n
			s += sin2[j]
			c += cos2[j]
		}
		angle := geometry.NormalizeOrientation(math.Atan2(s, c) * 90 / math.Pi)
		found = append(found, peak{angle: angle, share: smoothed[best] / total})

		for i := range smoothed {
			center := (float64(i) + 0.5) * width
			if geometry.OrientationDiff(center, angle) <= 2*r.config.AngleTolerance {
				smoothed[i] = 0
			}
		}
		smoothed[best] = 0
	}
	return found
}

// alternation returns the rate at which consecutive segments of the two peak
// directions switch between them
func (r *Recognizer) alternation(segs []geometry.Segment, a, b peak) float64 {
	prev := -1
	pairs, switches := 0, 0
	for _, s := range segs {
		o := s.Orientation()
		label := -1
		switch {
		case geometry.OrientationDiff(o, a.angle) <= r.config.AngleTolerance:
			label = 0
		case geometry.OrientationDiff(o, b.angle) <= r.config.AngleTolerance:
			label = 1
		}
		if label < 0 {
			continue
		}
		if prev >= 0 {
			pairs++
			if label != prev {
				switches++
			}
		}
		prev = label
	}
	if pairs == 0 {
		return 1
	}
	return float64(switches) / float64(pairs)
}

// turns measures the heading changes between segments that join end to start
func (r *Recognizer) turns(segs []geometry.Segment) turnStats {
	var st turnStats
	var hex, smooth int
	var left, right bool
	tol := r.config.AngleTolerance

	for i := 1; i < len(segs); i++ {
		if segs[i-1].B.Dist(segs[i].A) > r.config.JoinTolerance {
			continue
		}
		st.joined++
		turn := geometry.Turn(segs[i-1], segs[i])
		abs := math.Abs(turn)
		switch {
		case math.Abs(abs-60) <= tol, math.Abs(abs-120) <= tol:
			hex++
		case abs > 0.5 && abs <= r.config.MaxSmoothTurn:
			smooth++
			if turn > 0 {
				left = true
			} else {
				right = true
			}
		}
	}

	if st.joined > 0 {
		st.hex = float64(hex) / float64(st.joined)
		st.smooth = float64(smooth) / float64(st.joined)
	}
	st.bothWays = left && right
	return st
}

// concentric detects closed loops whose bounds nest one inside the next
func (r *Recognizer) concentric(segs []geometry.Segment, total float64) (float64, bool) {
	var loops []geometry.Bounds
	loopLength := 0.0

	start := 0
	for i := 1; i <= len(segs); i++ {
		if i < len(segs) && segs[i-1].B.Dist(segs[i].A) <= r.config.JoinTolerance {
			continue
		}
		chain := segs[start:i]
		start = i
		if len(chain) < 3 || chain[len(chain)-1].B.Dist(chain[0].A) > r.config.JoinTolerance {
			continue
		}
		loops = append(loops, geometry.SegmentBounds(chain))
		for _, s := range chain {
			loopLength += s.Length()
		}
	}

	if len(loops) < 2 {
		return 0, false
	}
	for i := 1; i < len(loops); i++ {
		if !loops[i-1].StrictlyContains(loops[i], 0) && !loops[i].StrictlyContains(loops[i-1], 0) {
			return 0, false
		}
	}

	share := loopLength / total
	return share, share >= r.config.ConcentricShare && share >= r.config.ConfidenceThreshold
}

func nonDegenerate(segs []geometry.Segment) []geometry.Segment {
	out := make([]geometry.Segment, 0, len(segs))
	for _, s := range segs {
		if s.Length() > 1e-9 {
			out = append(out, s)
		}
	}
	return out
}

// CalculateInfillDensity estimates infill density in percent as deposited line
// area over the enclosing area, capped at 100
func CalculateInfillDensity(segs []geometry.Segment, extrusionWidth, boundingArea float64) float64 {
	if boundingArea <= 0 || extrusionWidth <= 0 {
		return 0
	}
	length := 0.0
	for _, s := range segs {
		length += s.Length()
	}
	return math.Min(100, length*extrusionWidth/boundingArea*100)
}

// Vote returns the majority pattern over interior layers. The first and last
// layers are excluded when there are more than two. Unknown layers do not vote;
// ties go to the higher summed confidence, then to enumeration order.
func Vote(layers []Classification) Classification {
	considered := layers
	if len(layers) > 2 {
		considered = layers[1 : len(layers)-1]
	}

	counts := make(map[Pattern]int)
	confidence := make(map[Pattern]float64)
	for _, c := range considered {
		if c.Pattern == Unknown {
			continue
		}
		counts[c.Pattern]++
		confidence[c.Pattern] += c.Confidence
	}

	best := Unknown
	for _, p := range All() {
		if p == Unknown || counts[p] == 0 {
			continue
		}
		if best == Unknown || counts[p] > counts[best] ||
			(counts[p] == counts[best] && confidence[p] > confidence[best]) {
			best = p
		}
	}
	if best == Unknown {
		return Classification{Pattern: Unknown}
	}
	return Classification{Pattern: best, Confidence: confidence[best] / float64(counts[best])}
}
