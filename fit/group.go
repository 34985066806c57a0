package fit

import "github.com/cwbudde/algo-peakfit/peak"

// footprint is the per-axis index-space extent a peak is assumed to
// influence: centre ± overlapWidths·width, intersected with the window.
type footprint struct {
	lo, hi []float64
}

func peakFootprint(p peak.Peak, overlapWidths float64, shape []int) footprint {
	n := len(p.Centers)
	f := footprint{lo: make([]float64, n), hi: make([]float64, n)}

	for i := range p.Centers {
		r := overlapWidths * p.Widths[i]
		f.lo[i] = p.Centers[i] - r
		f.hi[i] = p.Centers[i] + r

		if f.lo[i] < 0 {
			f.lo[i] = 0
		}
		if max := float64(shape[i] - 1); f.hi[i] > max {
			f.hi[i] = max
		}
	}

	return f
}

func (f footprint) intersects(g footprint) bool {
	for i := range f.lo {
		if f.hi[i] < g.lo[i] || g.hi[i] < f.lo[i] {
			return false
		}
	}
	return true
}

// groupPeaks partitions peak indices into jointly-fit groups: the connected
// components of the pairwise footprint-intersection relation. Group order
// and the order within each group follow the input order, so results stay
// deterministic.
func groupPeaks(peaks []peak.Peak, overlapWidths float64, shape []int) [][]int {
	n := len(peaks)
	if n == 0 {
		return nil
	}

	feet := make([]footprint, n)
	for i, p := range peaks {
		feet[i] = peakFootprint(p, overlapWidths, shape)
	}

	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}

	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			if ra > rb {
				ra, rb = rb, ra
			}
			parent[rb] = ra
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if feet[i].intersects(feet[j]) {
				union(i, j)
			}
		}
	}

	members := make(map[int][]int, n)
	order := make([]int, 0, n)
	for i := 0; i < n; i++ {
		root := find(i)
		if _, seen := members[root]; !seen {
			order = append(order, root)
		}
		members[root] = append(members[root], i)
	}

	groups := make([][]int, 0, len(order))
	for _, root := range order {
		groups = append(groups, members[root])
	}

	return groups
}
