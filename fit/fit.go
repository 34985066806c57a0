package fit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/cwbudde/algo-peakfit/grid"
	"github.com/cwbudde/algo-peakfit/peak"
	"github.com/cwbudde/algo-peakfit/solver"
)

// Errors returned by Peaks for caller bugs. Data-quality conditions are
// reported per result instead.
var (
	ErrRankMismatch = errors.New("fit: peak rank does not match window rank")
	ErrBadPeak      = errors.New("fit: invalid initial peak")
)

// Defaults for Config fields left at zero.
const (
	DefaultOverlapWidths = 3.0
	DefaultMinWidth      = 1e-3
)

// Config holds fitting parameters. The zero value uses defaults.
type Config struct {
	// Tolerance, StepTolerance and MaxIterations are passed through to the
	// solver; zero values use the solver defaults.
	Tolerance     float64
	StepTolerance float64
	MaxIterations int

	// NumericalJacobian forces central differences instead of the analytic
	// peak gradients.
	NumericalJacobian bool

	// AllowNegativeAmplitude permits an amplitude to cross zero during the
	// fit, e.g. for anti-phase multiplets. When false, amplitudes are held
	// on the side of their initial sign.
	AllowNegativeAmplitude bool

	// OverlapWidths is the footprint half-extent in multiples of the peak
	// width used to decide joint fitting. Defaults to 3.
	OverlapWidths float64

	// MinWidth is the positive floor, in grid points, that widths are
	// clamped to during iteration. Defaults to 1e-3.
	MinWidth float64

	// FitBaseline adds one shared constant offset parameter per group.
	FitBaseline bool

	// Parallel is the maximum number of peak groups fitted concurrently.
	// Values below 2 run serially.
	Parallel int

	// Logger, when set, receives a single notice per call if the window
	// contains non-finite samples.
	Logger *log.Logger
}

func (c Config) withDefaults() Config {
	if c.OverlapWidths <= 0 {
		c.OverlapWidths = DefaultOverlapWidths
	}
	if c.MinWidth <= 0 {
		c.MinWidth = DefaultMinWidth
	}
	return c
}

// Status describes the outcome of one peak's fit.
type Status int

const (
	StatusConverged Status = iota
	StatusIterLimit
	StatusStalled
	StatusCancelled
	StatusUnderdetermined
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusConverged:
		return "converged"
	case StatusIterLimit:
		return "iteration-limit"
	case StatusStalled:
		return "stalled"
	case StatusCancelled:
		return "cancelled"
	case StatusUnderdetermined:
		return "underdetermined"
	default:
		return "unknown"
	}
}

// ParamErrors holds per-parameter standard errors in the same layout and
// physical units as the refined peak.
type ParamErrors struct {
	Amplitude float64
	Centers   []float64
	Widths    []float64
	Fractions []float64
	Baseline  float64
}

// Result is the outcome for one input peak. Peaks fitted jointly share the
// group's residual statistics.
type Result struct {
	// Peak holds the refined parameters in physical coordinates. For
	// non-numeric statuses (underdetermined) it repeats the input estimate.
	Peak peak.Peak

	// Errors holds standard errors from the covariance diagonal, nil when
	// the covariance was unavailable.
	Errors *ParamErrors

	// Baseline is the group's shared constant offset (zero unless
	// Config.FitBaseline).
	Baseline float64

	// RSS is the group's residual sum of squares at termination.
	RSS float64

	Iterations int
	Status     Status

	// WidthClamped reports that at least one width finished on the
	// MinWidth floor, i.e. the fitted width is a bound, not an estimate.
	WidthClamped bool

	// CovarianceOK mirrors Errors != nil.
	CovarianceOK bool
}

// Peaks fits the initial peak estimates against the window, jointly for
// overlapping peaks, and returns one result per input peak in input order.
//
// Initial estimates are given in the window's physical coordinates; results
// are returned in the same frame. The context is checked once per solver
// iteration.
func Peaks(ctx context.Context, window grid.Grid, initial []peak.Peak, cfg Config) ([]Result, error) {
	cfg = cfg.withDefaults()

	if len(initial) == 0 {
		return nil, nil
	}

	for i, p := range initial {
		if p.Model.Rank() != window.Rank() {
			return nil, fmt.Errorf("%w: peak %d has rank %d, window rank %d",
				ErrRankMismatch, i, p.Model.Rank(), window.Rank())
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%w %d: %v", ErrBadPeak, i, err)
		}
	}

	if n := window.CountNonFinite(); n > 0 && cfg.Logger != nil {
		cfg.Logger.Printf("fit: %d non-finite samples excluded from the residuals", n)
	}

	// Work in index space throughout; convert back at the end.
	indexPeaks := make([]peak.Peak, len(initial))
	for i, p := range initial {
		indexPeaks[i] = toIndexSpace(window, p)
	}

	groups := groupPeaks(indexPeaks, cfg.OverlapWidths, window.Shape())

	results := make([]Result, len(initial))

	fitGroup := func(group []int) {
		members := make([]peak.Peak, len(group))
		models := make([]peak.Model, len(group))
		for i, idx := range group {
			members[i] = indexPeaks[idx]
			models[i] = members[i].Model
		}

		groupResults := solveGroup(ctx, window, members, models, cfg)
		for i, idx := range group {
			results[idx] = groupResults[i]
		}
	}

	if cfg.Parallel > 1 && len(groups) > 1 {
		sem := make(chan struct{}, cfg.Parallel)
		var wg sync.WaitGroup
		for _, group := range groups {
			wg.Add(1)
			sem <- struct{}{}
			go func(g []int) {
				defer wg.Done()
				defer func() { <-sem }()
				fitGroup(g)
			}(group)
		}
		wg.Wait()
	} else {
		for _, group := range groups {
			fitGroup(group)
		}
	}

	// Convert refined peaks (and their errors) back to physical units.
	for i := range results {
		results[i].Peak = toPhysical(window, results[i].Peak)
		if results[i].Errors != nil {
			scaleErrors(window, results[i].Errors)
		}
	}

	return results, nil
}

// solveGroup runs one joint fit and expands the solver result into
// per-member results. Peaks are in index space here.
func solveGroup(ctx context.Context, window grid.Grid, members []peak.Peak, models []peak.Model, cfg Config) []Result {
	problem := newGroupProblem(window, models, cfg.FitBaseline)

	params := make([]float64, 0, problem.numParams())
	for _, p := range members {
		params = p.AppendParams(params)
	}
	if cfg.FitBaseline {
		params = append(params, 0)
	}

	out := make([]Result, len(members))

	if problem.NumResiduals() < len(params) {
		for i := range out {
			out[i] = Result{Peak: members[i], Status: StatusUnderdetermined}
		}
		return out
	}

	solverCfg := solver.Config{
		Tolerance:         cfg.Tolerance,
		StepTolerance:     cfg.StepTolerance,
		MaxIterations:     cfg.MaxIterations,
		NumericalJacobian: cfg.NumericalJacobian,
		Clamp:             clampFor(members, cfg),
	}

	res, err := solver.Solve(ctx, problem, params, solverCfg)
	if err != nil {
		// Entry conditions were checked above; treat a residual blow-up at
		// the initial point as a stalled fit on the input estimate.
		for i := range out {
			out[i] = Result{Peak: members[i], Status: StatusStalled}
		}
		return out
	}

	peaks, baseline := problem.peaksFrom(res.Params)
	status := statusFrom(res.Status)
	stdErrs := res.StdErrors()

	off := 0
	for i, pk := range peaks {
		r := Result{
			Peak:         pk,
			Baseline:     baseline,
			RSS:          res.RSS,
			Iterations:   res.Iterations,
			Status:       status,
			CovarianceOK: res.CovarianceOK,
		}

		for _, w := range pk.Widths {
			if w <= cfg.MinWidth*(1+1e-9) {
				r.WidthClamped = true
			}
		}

		if stdErrs != nil {
			r.Errors = sliceErrors(pk, stdErrs[off:off+pk.NumParams()])
			if cfg.FitBaseline {
				r.Errors.Baseline = stdErrs[len(stdErrs)-1]
			}
		}

		off += pk.NumParams()
		out[i] = r
	}

	return out
}

// clampFor builds the solver clamp hook for a group: width floors, fraction
// bounds and, unless negative amplitudes are allowed, the initial amplitude
// sign.
func clampFor(members []peak.Peak, cfg Config) func([]float64) {
	type block struct {
		ampIdx     int
		widthIdx   []int
		fracIdx    []int
		ampSign    float64
		honourSign bool
	}

	blocks := make([]block, len(members))
	off := 0
	for i, p := range members {
		n := p.Model.Rank()

		b := block{
			ampIdx:     off,
			ampSign:    math.Copysign(1, p.Amplitude),
			honourSign: !cfg.AllowNegativeAmplitude,
		}
		for a := 0; a < n; a++ {
			b.widthIdx = append(b.widthIdx, off+1+n+a)
		}

		fi := off + 1 + 2*n
		for _, s := range p.Model.Shapes {
			if prof, err := peak.ProfileFor(s); err == nil && prof.HasFraction() {
				b.fracIdx = append(b.fracIdx, fi)
				fi++
			}
		}

		blocks[i] = b
		off += p.NumParams()
	}

	return func(params []float64) {
		for _, b := range blocks {
			if b.honourSign && params[b.ampIdx]*b.ampSign < 0 {
				params[b.ampIdx] = 0
			}
			for _, wi := range b.widthIdx {
				if params[wi] < cfg.MinWidth {
					params[wi] = cfg.MinWidth
				}
			}
			for _, fi := range b.fracIdx {
				if params[fi] < 0 {
					params[fi] = 0
				}
				if params[fi] > 1 {
					params[fi] = 1
				}
			}
		}
	}
}

func statusFrom(s solver.Status) Status {
	switch s {
	case solver.StatusConverged:
		return StatusConverged
	case solver.StatusIterLimit:
		return StatusIterLimit
	case solver.StatusCancelled:
		return StatusCancelled
	default:
		return StatusStalled
	}
}

func toIndexSpace(window grid.Grid, p peak.Peak) peak.Peak {
	out := p
	out.Centers = make([]float64, len(p.Centers))
	out.Widths = make([]float64, len(p.Widths))
	if p.Fractions != nil {
		out.Fractions = append([]float64(nil), p.Fractions...)
	}

	for i := range p.Centers {
		out.Centers[i] = window.Index(i, p.Centers[i])
		out.Widths[i] = p.Widths[i] / math.Abs(window.Spacing(i))
	}

	return out
}

func toPhysical(window grid.Grid, p peak.Peak) peak.Peak {
	out := p
	out.Centers = make([]float64, len(p.Centers))
	out.Widths = make([]float64, len(p.Widths))

	for i := range p.Centers {
		out.Centers[i] = window.Coord(i, p.Centers[i])
		out.Widths[i] = p.Widths[i] * math.Abs(window.Spacing(i))
	}

	return out
}

func scaleErrors(window grid.Grid, e *ParamErrors) {
	for i := range e.Centers {
		e.Centers[i] *= math.Abs(window.Spacing(i))
	}
	for i := range e.Widths {
		e.Widths[i] *= math.Abs(window.Spacing(i))
	}
}

// sliceErrors maps one peak's slice of the flat std-error vector back into
// named fields.
func sliceErrors(p peak.Peak, se []float64) *ParamErrors {
	n := p.Model.Rank()

	e := &ParamErrors{
		Amplitude: se[0],
		Centers:   append([]float64(nil), se[1:1+n]...),
		Widths:    append([]float64(nil), se[1+n:1+2*n]...),
	}

	fi := 1 + 2*n
	for _, s := range p.Model.Shapes {
		if prof, err := peak.ProfileFor(s); err == nil && prof.HasFraction() {
			if e.Fractions == nil {
				e.Fractions = make([]float64, 0, n)
			}
			e.Fractions = append(e.Fractions, se[fi])
			fi++
		}
	}

	return e
}
