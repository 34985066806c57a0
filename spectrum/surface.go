package spectrum

import (
	"fmt"

	"github.com/cwbudde/algo-peakfit/grid"
	"github.com/cwbudde/algo-peakfit/peak"
)

// Surface builds a 2D grid containing the sum of the given peaks, evaluated
// in grid-point coordinates. It is the shared source of plane data for
// contour and fit examples.
func Surface(ny, nx int, peaks []peak.Peak, opts ...grid.Option) (grid.Grid, error) {
	g, err := grid.Zeros([]int{ny, nx}, opts...)
	if err != nil {
		return grid.Grid{}, err
	}

	for i, p := range peaks {
		if p.Model.Rank() != 2 {
			return grid.Grid{}, fmt.Errorf("spectrum: surface peak %d has rank %d, want 2",
				i, p.Model.Rank())
		}
		if err := p.Validate(); err != nil {
			return grid.Grid{}, fmt.Errorf("spectrum: surface peak %d: %w", i, err)
		}
	}

	data := make([]float64, g.Len())
	x := make([]float64, 2)
	i := 0
	g.EachIndex(func(idx []int, _ float64) {
		x[0] = g.Coord(0, float64(idx[0]))
		x[1] = g.Coord(1, float64(idx[1]))
		for _, p := range peaks {
			v, err := p.Value(x)
			if err != nil {
				// Validated above; Value only fails on rank mismatch.
				panic(err)
			}
			data[i] += v
		}
		i++
	})

	return grid.New([]int{ny, nx}, data, opts...)
}
