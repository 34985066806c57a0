package grid

import (
	"errors"
	"fmt"
	"math"
)

// Errors returned by grid constructors and accessors.
var (
	ErrBadShape    = errors.New("grid: shape must have at least one positive axis")
	ErrDataLength  = errors.New("grid: data length does not match shape")
	ErrBadSpacing  = errors.New("grid: spacing must be non-zero on every axis")
	ErrAxisCount   = errors.New("grid: origin/spacing length does not match shape")
	ErrBadWindow   = errors.New("grid: window bounds out of range")
	ErrIndexRank   = errors.New("grid: index rank does not match grid rank")
	ErrOutOfBounds = errors.New("grid: index out of bounds")
)

// Grid is an immutable regular N-dimensional lattice of intensity samples.
// Data is stored row-major (last axis fastest). Origin and Spacing define
// the affine map from array indices to physical coordinates per axis.
type Grid struct {
	shape   []int
	stride  []int
	data    []float64
	origin  []float64
	spacing []float64
}

// Option configures a Grid at construction time.
type Option func(*Grid) error

// WithOrigin sets the physical coordinate of index 0 on each axis.
func WithOrigin(origin ...float64) Option {
	return func(g *Grid) error {
		if len(origin) != len(g.shape) {
			return ErrAxisCount
		}
		g.origin = append([]float64(nil), origin...)
		return nil
	}
}

// WithSpacing sets the physical step per index increment on each axis.
// Spacing may be negative (descending axes) but never zero.
func WithSpacing(spacing ...float64) Option {
	return func(g *Grid) error {
		if len(spacing) != len(g.shape) {
			return ErrAxisCount
		}
		for _, s := range spacing {
			if s == 0 {
				return ErrBadSpacing
			}
		}
		g.spacing = append([]float64(nil), spacing...)
		return nil
	}
}

// New constructs a Grid over data with the given shape. The data slice is
// copied so later caller mutations cannot alias the grid. Origin defaults
// to zero and spacing to one on every axis.
func New(shape []int, data []float64, opts ...Option) (Grid, error) {
	if len(shape) == 0 {
		return Grid{}, ErrBadShape
	}

	n := 1
	for _, s := range shape {
		if s <= 0 {
			return Grid{}, ErrBadShape
		}
		n *= s
	}

	if len(data) != n {
		return Grid{}, fmt.Errorf("%w: have %d samples, shape wants %d", ErrDataLength, len(data), n)
	}

	g := Grid{
		shape:   append([]int(nil), shape...),
		data:    append([]float64(nil), data...),
		origin:  make([]float64, len(shape)),
		spacing: make([]float64, len(shape)),
	}
	for i := range g.spacing {
		g.spacing[i] = 1
	}

	g.stride = make([]int, len(shape))
	g.stride[len(shape)-1] = 1
	for i := len(shape) - 2; i >= 0; i-- {
		g.stride[i] = g.stride[i+1] * g.shape[i+1]
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&g); err != nil {
			return Grid{}, err
		}
	}

	return g, nil
}

// Zeros constructs an all-zero Grid with the given shape.
func Zeros(shape []int, opts ...Option) (Grid, error) {
	n := 1
	for _, s := range shape {
		if s <= 0 {
			return Grid{}, ErrBadShape
		}
		n *= s
	}

	return New(shape, make([]float64, n), opts...)
}

// Rank returns the number of axes.
func (g Grid) Rank() int { return len(g.shape) }

// Size returns the number of samples along axis.
func (g Grid) Size(axis int) int { return g.shape[axis] }

// Shape returns a copy of the per-axis sample counts.
func (g Grid) Shape() []int { return append([]int(nil), g.shape...) }

// Len returns the total number of samples.
func (g Grid) Len() int { return len(g.data) }

// At returns the sample at the given index, one component per axis.
func (g Grid) At(idx ...int) float64 {
	off, err := g.offset(idx)
	if err != nil {
		panic(err)
	}
	return g.data[off]
}

// Value is the checked variant of At.
func (g Grid) Value(idx []int) (float64, error) {
	off, err := g.offset(idx)
	if err != nil {
		return 0, err
	}
	return g.data[off], nil
}

// Flat returns the sample at row-major offset i.
func (g Grid) Flat(i int) float64 { return g.data[i] }

// Origin returns the physical coordinate of index 0 on axis.
func (g Grid) Origin(axis int) float64 { return g.origin[axis] }

// Spacing returns the physical step per index on axis.
func (g Grid) Spacing(axis int) float64 { return g.spacing[axis] }

// Coord maps a (possibly fractional) index on axis to a physical coordinate.
func (g Grid) Coord(axis int, index float64) float64 {
	return g.origin[axis] + g.spacing[axis]*index
}

// Index maps a physical coordinate on axis back to a fractional index.
func (g Grid) Index(axis int, coord float64) float64 {
	return (coord - g.origin[axis]) / g.spacing[axis]
}

// SubGrid copies the half-open window [lo, hi) into a new Grid. The window
// keeps the physical coordinate system of the parent: its origin is the
// parent coordinate of lo on each axis.
func (g Grid) SubGrid(lo, hi []int) (Grid, error) {
	if len(lo) != len(g.shape) || len(hi) != len(g.shape) {
		return Grid{}, ErrIndexRank
	}

	shape := make([]int, len(g.shape))
	for i := range g.shape {
		if lo[i] < 0 || hi[i] > g.shape[i] || lo[i] >= hi[i] {
			return Grid{}, fmt.Errorf("%w: axis %d window [%d,%d) of %d", ErrBadWindow, i, lo[i], hi[i], g.shape[i])
		}
		shape[i] = hi[i] - lo[i]
	}

	n := 1
	for _, s := range shape {
		n *= s
	}

	data := make([]float64, 0, n)
	idx := append([]int(nil), lo...)
	for {
		off, _ := g.offset(idx)
		data = append(data, g.data[off])

		axis := len(idx) - 1
		for axis >= 0 {
			idx[axis]++
			if idx[axis] < hi[axis] {
				break
			}
			idx[axis] = lo[axis]
			axis--
		}
		if axis < 0 {
			break
		}
	}

	origin := make([]float64, len(g.shape))
	for i := range origin {
		origin[i] = g.Coord(i, float64(lo[i]))
	}

	return New(shape, data, WithOrigin(origin...), WithSpacing(g.spacing...))
}

// CountNonFinite returns the number of NaN or Inf samples.
func (g Grid) CountNonFinite() int {
	n := 0
	for _, v := range g.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			n++
		}
	}
	return n
}

// EachIndex calls fn for every index in row-major order. The index slice is
// reused between calls; fn must copy it if it retains it.
func (g Grid) EachIndex(fn func(idx []int, v float64)) {
	idx := make([]int, len(g.shape))
	for off := range g.data {
		fn(idx, g.data[off])

		axis := len(idx) - 1
		for axis >= 0 {
			idx[axis]++
			if idx[axis] < g.shape[axis] {
				break
			}
			idx[axis] = 0
			axis--
		}
	}
}

func (g Grid) offset(idx []int) (int, error) {
	if len(idx) != len(g.shape) {
		return 0, ErrIndexRank
	}

	off := 0
	for i, x := range idx {
		if x < 0 || x >= g.shape[i] {
			return 0, fmt.Errorf("%w: axis %d index %d of %d", ErrOutOfBounds, i, x, g.shape[i])
		}
		off += x * g.stride[i]
	}

	return off, nil
}
