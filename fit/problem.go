package fit

import (
	"math"

	"github.com/cwbudde/algo-peakfit/grid"
	"github.com/cwbudde/algo-peakfit/peak"
	"gonum.org/v1/gonum/mat"
)

// groupProblem adapts one jointly-fit peak group to solver.Problem. Sample
// coordinates are index-space positions of the finite window samples; NaN
// and Inf samples are simply absent from the residual vector.
type groupProblem struct {
	coords   [][]float64
	values   []float64
	models   []peak.Model
	baseline bool
}

func newGroupProblem(window grid.Grid, models []peak.Model, baseline bool) *groupProblem {
	p := &groupProblem{models: models, baseline: baseline}

	window.EachIndex(func(idx []int, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return
		}

		coord := make([]float64, len(idx))
		for i, x := range idx {
			coord[i] = float64(x)
		}
		p.coords = append(p.coords, coord)
		p.values = append(p.values, v)
	})

	return p
}

// numParams is the length of the group's flat parameter vector.
func (p *groupProblem) numParams() int {
	n := 0
	for _, m := range p.models {
		n += m.NumParams()
	}
	if p.baseline {
		n++
	}
	return n
}

func (p *groupProblem) NumResiduals() int { return len(p.values) }

// peaksFrom rebuilds the group's peaks from the flat vector. The trailing
// baseline parameter, when present, is returned separately.
func (p *groupProblem) peaksFrom(params []float64) ([]peak.Peak, float64) {
	peaks := make([]peak.Peak, 0, len(p.models))
	rest := params
	for _, m := range p.models {
		pk, r, err := peak.FromParams(m, rest)
		if err != nil {
			// Parameter layout is fixed at construction; a short vector
			// here is a solver bug, not a data condition.
			panic(err)
		}
		peaks = append(peaks, pk)
		rest = r
	}

	baseline := 0.0
	if p.baseline {
		baseline = rest[0]
	}

	return peaks, baseline
}

func (p *groupProblem) Residuals(dst, params []float64) {
	peaks, baseline := p.peaksFrom(params)

	for i, x := range p.coords {
		model := baseline
		for _, pk := range peaks {
			v, _ := pk.Value(x)
			model += v
		}
		dst[i] = p.values[i] - model
	}
}

// Jacobian writes ∂residual/∂param rows using the analytic peak gradients.
// Residual = observed − model, so every entry is the negated model
// derivative.
func (p *groupProblem) Jacobian(dst *mat.Dense, params []float64) {
	peaks, _ := p.peaksFrom(params)

	grads := make([][]float64, len(peaks))
	offsets := make([]int, len(peaks))
	off := 0
	for k, pk := range peaks {
		grads[k] = make([]float64, pk.NumParams())
		offsets[k] = off
		off += pk.NumParams()
	}

	for i, x := range p.coords {
		for k, pk := range peaks {
			if err := pk.Gradient(grads[k], x); err != nil {
				panic(err)
			}
			for j, g := range grads[k] {
				dst.Set(i, offsets[k]+j, -g)
			}
		}

		if p.baseline {
			dst.Set(i, off, -1)
		}
	}
}
