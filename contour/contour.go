package contour

import (
	"errors"
	"log"
	"math"

	"github.com/cwbudde/algo-peakfit/grid"
)

// Errors returned by contour functions.
var (
	ErrNotTwoDimensional  = errors.New("contour: grid must be two-dimensional")
	ErrLevelsNotMonotonic = errors.New("contour: levels must be monotonically increasing or decreasing")
)

const defaultMergeTolerance = 1e-9

// Config holds tracing parameters. The zero value uses defaults.
type Config struct {
	// MergeTolerance is the index-space distance within which two segment
	// endpoints are considered the same vertex. Defaults to 1e-9.
	MergeTolerance float64

	// Logger, when set, receives a single notice per call if the grid
	// contains non-finite samples.
	Logger *log.Logger
}

func (c Config) withDefaults() Config {
	if c.MergeTolerance <= 0 {
		c.MergeTolerance = defaultMergeTolerance
	}
	return c
}

// Point is a 2D physical coordinate. X runs along axis 1 of the grid
// (columns), Y along axis 0 (rows).
type Point struct {
	X, Y float64
}

// Segment is one traced polyline. Closed segments form a loop; the first
// point is not repeated at the end.
type Segment struct {
	Points []Point
	Closed bool
}

// Result holds the outcome of tracing one level.
type Result struct {
	Level    float64
	Segments []Segment

	// NonFiniteSamples counts NaN/Inf grid samples, which were treated as
	// below the level.
	NonFiniteSamples int
}

// edge identifiers within a cell.
const (
	edgeBottom = 0 // between (y, x) and (y, x+1)
	edgeRight  = 1 // between (y, x+1) and (y+1, x+1)
	edgeTop    = 2 // between (y+1, x) and (y+1, x+1)
	edgeLeft   = 3 // between (y, x) and (y+1, x)
)

type edgePair struct{ a, b int }

// cellSegments maps the 4-bit corner pattern to the edge pairs crossed by
// the contour. Bit 0 = (y,x), bit 1 = (y,x+1), bit 2 = (y+1,x+1),
// bit 3 = (y+1,x); a set bit means the corner is >= level. The saddle
// patterns 5 and 10 are resolved separately.
var cellSegments = [16][]edgePair{
	0:  nil,
	1:  {{edgeLeft, edgeBottom}},
	2:  {{edgeBottom, edgeRight}},
	3:  {{edgeLeft, edgeRight}},
	4:  {{edgeRight, edgeTop}},
	5:  nil, // saddle
	6:  {{edgeBottom, edgeTop}},
	7:  {{edgeLeft, edgeTop}},
	8:  {{edgeTop, edgeLeft}},
	9:  {{edgeBottom, edgeTop}},
	10: nil, // saddle
	11: {{edgeRight, edgeTop}},
	12: {{edgeRight, edgeLeft}},
	13: {{edgeBottom, edgeRight}},
	14: {{edgeLeft, edgeBottom}},
	15: nil,
}

// Saddle resolutions: the contour either isolates the two below-level
// corners (centre above) or the two above-level corners (centre below).
var (
	saddle5CentreAbove  = []edgePair{{edgeLeft, edgeTop}, {edgeBottom, edgeRight}}
	saddle5CentreBelow  = []edgePair{{edgeLeft, edgeBottom}, {edgeRight, edgeTop}}
	saddle10CentreAbove = []edgePair{{edgeLeft, edgeBottom}, {edgeRight, edgeTop}}
	saddle10CentreBelow = []edgePair{{edgeBottom, edgeRight}, {edgeTop, edgeLeft}}
)

// rawSegment is a single-cell crossing in index space, prior to merging.
type rawSegment struct {
	p, q Point
}

// Trace generates the contour polylines of g at the given level.
//
// A grid with fewer than two samples on either axis yields an empty Result
// and no error. Rank other than 2 is a caller bug and returns
// ErrNotTwoDimensional.
func Trace(g grid.Grid, level float64, cfg Config) (Result, error) {
	if g.Rank() != 2 {
		return Result{}, ErrNotTwoDimensional
	}

	cfg = cfg.withDefaults()

	res := Result{Level: level}

	res.NonFiniteSamples = g.CountNonFinite()
	if res.NonFiniteSamples > 0 && cfg.Logger != nil {
		cfg.Logger.Printf("contour: %d non-finite samples treated as below level %g", res.NonFiniteSamples, level)
	}

	rows, cols := g.Size(0), g.Size(1)
	if rows < 2 || cols < 2 {
		return res, nil
	}

	raw := traceCells(g, level)
	res.Segments = mergeSegments(raw, cfg.MergeTolerance)

	// Map merged index-space vertices into physical coordinates last, so
	// endpoint matching is independent of axis scaling.
	for si := range res.Segments {
		pts := res.Segments[si].Points
		for pi := range pts {
			pts[pi] = Point{
				X: g.Coord(1, pts[pi].X),
				Y: g.Coord(0, pts[pi].Y),
			}
		}
	}

	return res, nil
}

// TraceLevels traces several levels in one call. Levels must be either
// monotonically increasing or decreasing, matching the convention for
// positive and negative contour ladders.
func TraceLevels(g grid.Grid, levels []float64, cfg Config) ([]Result, error) {
	if err := checkMonotonic(levels); err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(levels))
	for _, level := range levels {
		res, err := Trace(g, level, cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}

	return out, nil
}

func checkMonotonic(levels []float64) error {
	if len(levels) < 3 {
		return nil
	}

	increasing := levels[0] <= levels[1]
	for i := 2; i < len(levels); i++ {
		if increasing && levels[i-1] > levels[i] {
			return ErrLevelsNotMonotonic
		}
		if !increasing && levels[i-1] < levels[i] {
			return ErrLevelsNotMonotonic
		}
	}

	return nil
}

// above reports whether a sample counts as at-or-above the level.
// Non-finite samples land below every level.
func above(v, level float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= level
}

func traceCells(g grid.Grid, level float64) []rawSegment {
	rows, cols := g.Size(0), g.Size(1)
	raw := make([]rawSegment, 0, 64)

	for y := 0; y < rows-1; y++ {
		for x := 0; x < cols-1; x++ {
			v00 := g.At(y, x)
			v10 := g.At(y, x+1)
			v11 := g.At(y+1, x+1)
			v01 := g.At(y+1, x)

			pattern := 0
			if above(v00, level) {
				pattern |= 1
			}
			if above(v10, level) {
				pattern |= 2
			}
			if above(v11, level) {
				pattern |= 4
			}
			if above(v01, level) {
				pattern |= 8
			}

			if pattern == 0 || pattern == 15 {
				continue
			}

			pairs := cellSegments[pattern]
			if pattern == 5 || pattern == 10 {
				pairs = resolveSaddle(pattern, v00, v10, v11, v01, level)
			}

			for _, pr := range pairs {
				pa, oka := edgeCrossing(x, y, pr.a, v00, v10, v11, v01, level)
				pb, okb := edgeCrossing(x, y, pr.b, v00, v10, v11, v01, level)
				if oka && okb {
					raw = append(raw, rawSegment{p: pa, q: pb})
				}
			}
		}
	}

	return raw
}

func resolveSaddle(pattern int, v00, v10, v11, v01, level float64) []edgePair {
	avg := 0.25 * (v00 + v10 + v11 + v01)
	centreAbove := above(avg, level)

	if pattern == 5 {
		if centreAbove {
			return saddle5CentreAbove
		}
		return saddle5CentreBelow
	}

	if centreAbove {
		return saddle10CentreAbove
	}
	return saddle10CentreBelow
}

// edgeCrossing interpolates the level crossing on one edge of the cell at
// (x, y), returning the vertex in index space. ok is false when neither
// endpoint brackets the level, which only happens for non-finite corners.
func edgeCrossing(x, y, edge int, v00, v10, v11, v01, level float64) (Point, bool) {
	switch edge {
	case edgeBottom:
		t, ok := crossingFraction(v00, v10, level)
		return Point{X: float64(x) + t, Y: float64(y)}, ok
	case edgeRight:
		t, ok := crossingFraction(v10, v11, level)
		return Point{X: float64(x) + 1, Y: float64(y) + t}, ok
	case edgeTop:
		t, ok := crossingFraction(v01, v11, level)
		return Point{X: float64(x) + t, Y: float64(y) + 1}, ok
	default: // edgeLeft
		t, ok := crossingFraction(v00, v01, level)
		return Point{X: float64(x), Y: float64(y) + t}, ok
	}
}

// crossingFraction returns the linear fraction in [0, 1] at which the field
// crosses level between v1 and v2. An edge whose endpoints coincide uses the
// midpoint so the vertex stays on the edge.
func crossingFraction(v1, v2, level float64) (float64, bool) {
	if math.IsNaN(v1) || math.IsNaN(v2) || math.IsInf(v1, 0) || math.IsInf(v2, 0) {
		return 0, false
	}

	d := v2 - v1
	if d == 0 {
		return 0.5, true
	}

	t := (level - v1) / d
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}

	return t, true
}
