package pick

import (
	"errors"
	"math"

	"github.com/cwbudde/algo-peakfit/grid"
)

// Errors returned by the picking functions.
var (
	ErrAtBoundary    = errors.New("pick: point touches the grid boundary")
	ErrFlatParabola  = errors.New("pick: samples too flat for a parabola")
	ErrBadHalfMax    = errors.New("pick: no half-maximum crossing exists")
	ErrIndexRank     = errors.New("pick: index rank does not match grid rank")
	ErrAxisOutOfGrid = errors.New("pick: axis out of range")
)

// Mode selects the neighbourhood used for the extremum test.
type Mode int

const (
	// ModeAdjacent compares against the 2N axis-aligned neighbours.
	ModeAdjacent Mode = iota
	// ModeFull compares against the full 3^N-1 neighbourhood.
	ModeFull
)

// Config holds picking parameters. The zero value picks maxima above zero
// using the adjacent neighbourhood.
type Config struct {
	// FindMaxima and FindMinima select the extremum polarity. When both are
	// false, maxima are searched.
	FindMaxima bool
	FindMinima bool

	// Threshold is the level a maximum must exceed.
	Threshold float64

	// NegThreshold is the level a minimum must fall below.
	NegThreshold float64

	// Mode selects the neighbourhood shape.
	Mode Mode

	// BoundaryWidth excludes picks within this many points of any edge.
	BoundaryWidth int
}

func (c Config) withDefaults() Config {
	if !c.FindMaxima && !c.FindMinima {
		c.FindMaxima = true
	}
	return c
}

// Found is one picked extremum.
type Found struct {
	// Index is the grid index of the extremum.
	Index []int

	// Value is the sample value there.
	Value float64

	// Maximum is false for a picked minimum.
	Maximum bool
}

// Find scans the grid for local extrema per cfg and returns them in
// row-major scan order. Non-finite samples are never picked and never block
// a neighbour from being one.
func Find(g grid.Grid, cfg Config) []Found {
	cfg = cfg.withDefaults()

	var out []Found
	g.EachIndex(func(idx []int, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return
		}
		if tooCloseToEdge(g, idx, cfg.BoundaryWidth) {
			return
		}

		if cfg.FindMaxima && v > cfg.Threshold && isExtremum(g, idx, v, true, cfg.Mode) {
			out = append(out, Found{
				Index:   append([]int(nil), idx...),
				Value:   v,
				Maximum: true,
			})
			return
		}
		if cfg.FindMinima && v < cfg.NegThreshold && isExtremum(g, idx, v, false, cfg.Mode) {
			out = append(out, Found{
				Index: append([]int(nil), idx...),
				Value: v,
			})
		}
	})

	return out
}

func tooCloseToEdge(g grid.Grid, idx []int, width int) bool {
	for a, i := range idx {
		if i < width || i >= g.Size(a)-width {
			return true
		}
	}
	return false
}

// isExtremum reports whether the sample at idx is at least as extreme as
// every in-bounds neighbour. Ties pass, so plateau points pick on both sides.
func isExtremum(g grid.Grid, idx []int, v float64, maximum bool, mode Mode) bool {
	beats := func(other float64) bool {
		if math.IsNaN(other) || math.IsInf(other, 0) {
			return true
		}
		if maximum {
			return other <= v
		}
		return other >= v
	}

	if mode == ModeAdjacent {
		nb := append([]int(nil), idx...)
		for a := range idx {
			for _, d := range [2]int{-1, 1} {
				nb[a] = idx[a] + d
				if nb[a] >= 0 && nb[a] < g.Size(a) && !beats(g.At(nb...)) {
					return false
				}
			}
			nb[a] = idx[a]
		}
		return true
	}

	// Full neighbourhood: walk the 3^N offset box with an odometer.
	off := make([]int, len(idx))
	for i := range off {
		off[i] = -1
	}
	nb := make([]int, len(idx))
	for {
		zero := true
		inBounds := true
		for a := range idx {
			if off[a] != 0 {
				zero = false
			}
			nb[a] = idx[a] + off[a]
			if nb[a] < 0 || nb[a] >= g.Size(a) {
				inBounds = false
			}
		}
		if !zero && inBounds && !beats(g.At(nb...)) {
			return false
		}

		a := 0
		for ; a < len(off); a++ {
			off[a]++
			if off[a] <= 1 {
				break
			}
			off[a] = -1
		}
		if a == len(off) {
			return true
		}
	}
}

// Refined is a sub-sample estimate of an extremum from per-axis parabolas.
type Refined struct {
	// Position is the fractional grid index of the refined extremum.
	Position []float64

	// Height is the interpolated sample value at the refined position.
	Height float64

	// Widths holds the per-axis FWHM of the fitted parabola, in grid points.
	Widths []float64
}

// RefineParabolic fits a 3-point parabola through p and its axis-aligned
// neighbours on every axis and returns the sub-sample position, interpolated
// height and parabolic FWHM. The point must be at least one sample away from
// every edge.
func RefineParabolic(g grid.Grid, p []int) (Refined, error) {
	if len(p) != g.Rank() {
		return Refined{}, ErrIndexRank
	}
	for a, i := range p {
		if i < 1 || i > g.Size(a)-2 {
			return Refined{}, ErrAtBoundary
		}
	}

	r := Refined{
		Position: make([]float64, g.Rank()),
		Widths:   make([]float64, g.Rank()),
		Height:   g.At(p...),
	}

	nb := append([]int(nil), p...)
	for a := range p {
		nb[a] = p[a] - 1
		left := g.At(nb...)
		nb[a] = p[a] + 1
		right := g.At(nb...)
		nb[a] = p[a]

		offset, height, width, err := parabola(left, g.At(p...), right)
		if err != nil {
			return Refined{}, err
		}

		r.Position[a] = float64(p[a]) + offset
		r.Widths[a] = width
		r.Height = height
	}

	return r, nil
}

// parabola fits y = a x^2 + b x + c through (-1, left), (0, mid), (1, right)
// and returns the vertex offset, vertex height and the FWHM of the parabola.
func parabola(left, mid, right float64) (offset, height, width float64, err error) {
	c := mid
	a := 0.5 * (left + right - 2*mid)
	if math.Abs(a) < 1e-6 {
		return 0, 0, 0, ErrFlatParabola
	}
	b := 0.5 * (right - left)

	offset = -b / (2 * a)
	height = a*offset*offset + b*offset + c

	disc := b*b - 4*a*(c-0.5*height)
	if disc <= 0 {
		return 0, 0, 0, ErrBadHalfMax
	}
	halfX := (math.Sqrt(disc) - b) / (2 * a)
	width = 2 * math.Abs(offset-halfX)

	return offset, height, width, nil
}

// LinewidthAt walks outward from p along the axis until the samples drop
// through half the peak value on each side and returns the distance between
// the two linearly interpolated crossings, in grid points. A side that never
// crosses is truncated at the grid edge. Negative peaks measure the rise
// through half the (negative) peak value.
func LinewidthAt(g grid.Grid, p []int, axis int) (float64, error) {
	if len(p) != g.Rank() {
		return 0, ErrIndexRank
	}
	if axis < 0 || axis >= g.Rank() {
		return 0, ErrAxisOutOfGrid
	}

	vPeak := g.At(p...)
	if math.IsNaN(vPeak) || vPeak == 0 {
		return 0, ErrBadHalfMax
	}
	maximum := vPeak > 0

	hi := halfMaxPosition(g, p, axis, 1, vPeak, maximum)
	lo := halfMaxPosition(g, p, axis, -1, vPeak, maximum)

	return hi - lo, nil
}

func halfMaxPosition(g grid.Grid, p []int, axis, dir int, vPeak float64, maximum bool) float64 {
	vHalf := 0.5 * vPeak
	vPrev := vPeak

	nb := append([]int(nil), p...)
	for i := p[axis] + dir; i >= 0 && i < g.Size(axis); i += dir {
		nb[axis] = i
		v := g.At(nb...)

		crossed := v < vHalf
		if !maximum {
			crossed = v > vHalf
		}
		if crossed {
			return float64(i) - float64(dir)*(vHalf-v)/(vPrev-v)
		}
		vPrev = v
	}

	if dir > 0 {
		return float64(g.Size(axis) - 1)
	}
	return 0
}
