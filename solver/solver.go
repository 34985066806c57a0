package solver

import (
	"context"
	"errors"
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/mat"
)

// Errors returned by Solve. Numerical trouble during iteration is reported
// through the result status instead.
var (
	ErrNoParameters      = errors.New("solver: initial parameter vector is empty")
	ErrUnderdetermined   = errors.New("solver: fewer residuals than free parameters")
	ErrNonFiniteResidual = errors.New("solver: residuals are non-finite at the initial point")
)

// Problem is the capability a model must provide to be solvable.
type Problem interface {
	// NumResiduals returns the length of the residual vector.
	NumResiduals() int

	// Residuals writes observed − model into dst, len(dst) == NumResiduals().
	Residuals(dst, params []float64)
}

// JacobianProblem is implemented by problems with analytic derivatives.
// Jacobian writes ∂residual_i/∂param_j into dst (rows = residuals).
type JacobianProblem interface {
	Problem
	Jacobian(dst *mat.Dense, params []float64)
}

// Status describes how the solver terminated.
type Status int

const (
	StatusConverged Status = iota
	StatusIterLimit
	StatusStalled
	StatusCancelled
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
	default:
		return "unknown"
	}
}

// Defaults for Config fields left at zero.
const (
	DefaultTolerance     = 1e-6
	DefaultStepTolerance = 1e-10
	DefaultMaxIterations = 100
	DefaultInitialLambda = 1e-3
	defaultLambdaUp      = 10.0
	defaultLambdaDown    = 0.1
	maxLambda            = 1e12
)

// Config holds solver parameters. The zero value uses defaults.
type Config struct {
	// Tolerance is the relative sum-of-squares reduction below which an
	// accepted iteration counts as converged.
	Tolerance float64

	// StepTolerance terminates when the max-norm of the proposed step
	// falls below it.
	StepTolerance float64

	// MaxIterations caps the number of accepted or rejected LM iterations.
	MaxIterations int

	// InitialLambda is the starting damping factor.
	InitialLambda float64

	// LambdaUp and LambdaDown scale the damping factor after a rejected
	// and an accepted step respectively.
	LambdaUp, LambdaDown float64

	// NumericalJacobian forces central differences even when the problem
	// provides an analytic Jacobian.
	NumericalJacobian bool

	// Clamp, when set, is applied to candidate parameters before they are
	// evaluated, e.g. to keep widths above a positive floor.
	Clamp func(params []float64)
}

func (c Config) withDefaults() Config {
	if c.Tolerance <= 0 {
		c.Tolerance = DefaultTolerance
	}
	if c.StepTolerance <= 0 {
		c.StepTolerance = DefaultStepTolerance
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.InitialLambda <= 0 {
		c.InitialLambda = DefaultInitialLambda
	}
	if c.LambdaUp <= 1 {
		c.LambdaUp = defaultLambdaUp
	}
	if c.LambdaDown <= 0 || c.LambdaDown >= 1 {
		c.LambdaDown = defaultLambdaDown
	}
	return c
}

// Result is the terminal state of one solve. It is only produced once the
// solver has stopped; there is no partial/in-progress variant.
type Result struct {
	Params     []float64
	RSS        float64
	Iterations int
	Status     Status

	// Covariance is σ²(JᵀJ)⁻¹ at the final point. CovarianceOK is false
	// when the normal matrix was singular or the fit had no spare degrees
	// of freedom; Covariance is nil in that case.
	Covariance   *mat.SymDense
	CovarianceOK bool
}

// StdErrors returns the per-parameter standard errors from the covariance
// diagonal, or nil when the covariance is unavailable.
func (r Result) StdErrors() []float64 {
	if !r.CovarianceOK {
		return nil
	}

	out := make([]float64, len(r.Params))
	for i := range out {
		v := r.Covariance.At(i, i)
		if v > 0 {
			out[i] = math.Sqrt(v)
		}
	}
	return out
}

// Solve runs Levenberg–Marquardt from initial. The context is checked once
// per iteration; on cancellation the best-so-far parameters are returned
// with StatusCancelled.
func Solve(ctx context.Context, p Problem, initial []float64, cfg Config) (Result, error) {
	cfg = cfg.withDefaults()

	n := len(initial)
	if n == 0 {
		return Result{}, ErrNoParameters
	}

	m := p.NumResiduals()
	if m < n {
		return Result{}, ErrUnderdetermined
	}

	params := append([]float64(nil), initial...)
	if cfg.Clamp != nil {
		cfg.Clamp(params)
	}

	r := make([]float64, m)
	p.Residuals(r, params)

	ssq := vecmath.DotProduct(r, r)
	if math.IsNaN(ssq) || math.IsInf(ssq, 0) {
		return Result{}, ErrNonFiniteResidual
	}

	jac := mat.NewDense(m, n, nil)
	lambda := cfg.InitialLambda

	res := Result{Params: params, RSS: ssq}

	trial := make([]float64, n)
	rTrial := make([]float64, m)

	for iter := 1; iter <= cfg.MaxIterations; iter++ {
		res.Iterations = iter

		if ctx != nil && ctx.Err() != nil {
			res.Status = StatusCancelled
			finishCovariance(&res, p, jac, cfg, m, n)
			return res, nil
		}

		buildJacobian(p, jac, params, cfg)

		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)

		grad := make([]float64, n) // Jᵀr
		for j := 0; j < n; j++ {
			col := mat.Col(nil, j, jac)
			grad[j] = vecmath.DotProduct(col, r)
		}

		accepted := false
		for lambda <= maxLambda {
			delta, ok := dampedStep(&jtj, grad, lambda)
			if !ok {
				lambda *= cfg.LambdaUp
				continue
			}

			if vecmath.MaxAbs(delta) < cfg.StepTolerance {
				res.Status = StatusConverged
				finishCovariance(&res, p, jac, cfg, m, n)
				return res, nil
			}

			vecmath.AddBlock(trial, params, delta)
			if cfg.Clamp != nil {
				cfg.Clamp(trial)
			}

			p.Residuals(rTrial, trial)
			trialSSQ := vecmath.DotProduct(rTrial, rTrial)

			if trialSSQ < ssq && !math.IsNaN(trialSSQ) {
				copy(params, trial)
				copy(r, rTrial)

				reduction := (ssq - trialSSQ) / ssq
				ssq = trialSSQ
				res.Params = params
				res.RSS = ssq
				lambda *= cfg.LambdaDown
				accepted = true

				if reduction < cfg.Tolerance {
					res.Status = StatusConverged
					finishCovariance(&res, p, jac, cfg, m, n)
					return res, nil
				}
				break
			}

			lambda *= cfg.LambdaUp
		}

		if !accepted {
			res.Status = StatusStalled
			finishCovariance(&res, p, jac, cfg, m, n)
			return res, nil
		}
	}

	res.Status = StatusIterLimit
	finishCovariance(&res, p, jac, cfg, m, n)
	return res, nil
}

// dampedStep solves (JᵀJ + λ·diag(JᵀJ))Δ = −grad. ok is false when the
// damped normal matrix could not be factorized.
func dampedStep(jtj *mat.Dense, grad []float64, lambda float64) ([]float64, bool) {
	n := len(grad)

	damped := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		d := jtj.At(i, i)
		if d <= 0 {
			// A flat direction still needs a positive damping term.
			d = 1
		}
		for j := i; j < n; j++ {
			v := (jtj.At(i, j) + jtj.At(j, i)) / 2
			if i == j {
				v += lambda * d
			}
			damped.SetSym(i, j, v)
		}
	}

	rhs := mat.NewVecDense(n, nil)
	for i, g := range grad {
		rhs.SetVec(i, -g)
	}

	var chol mat.Cholesky
	delta := mat.NewVecDense(n, nil)

	if chol.Factorize(damped) {
		if err := chol.SolveVecTo(delta, rhs); err == nil {
			return delta.RawVector().Data, true
		}
	}

	// Not positive definite at this damping: fall back to LU.
	var lu mat.LU
	lu.Factorize(damped)
	if err := lu.SolveVecTo(delta, false, rhs); err != nil {
		return nil, false
	}

	out := delta.RawVector().Data
	for _, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
	}

	return out, true
}

func buildJacobian(p Problem, jac *mat.Dense, params []float64, cfg Config) {
	if jp, ok := p.(JacobianProblem); ok && !cfg.NumericalJacobian {
		jp.Jacobian(jac, params)
		return
	}

	numericalJacobian(p, jac, params)
}

// numericalJacobian fills jac with central differences of the residuals.
func numericalJacobian(p Problem, jac *mat.Dense, params []float64) {
	m, n := jac.Dims()

	up := make([]float64, m)
	dn := make([]float64, m)
	work := append([]float64(nil), params...)

	for j := 0; j < n; j++ {
		h := 1e-6 * math.Abs(params[j])
		if h < 1e-6 {
			h = 1e-6
		}

		orig := work[j]

		work[j] = orig + h
		p.Residuals(up, work)

		work[j] = orig - h
		p.Residuals(dn, work)

		work[j] = orig

		inv := 1 / (2 * h)
		for i := 0; i < m; i++ {
			jac.Set(i, j, (up[i]-dn[i])*inv)
		}
	}
}

// finishCovariance estimates σ²(JᵀJ)⁻¹ at the final parameters. A singular
// normal matrix or zero spare degrees of freedom leaves CovarianceOK false
// rather than failing the solve.
func finishCovariance(res *Result, p Problem, jac *mat.Dense, cfg Config, m, n int) {
	if m <= n {
		return
	}

	buildJacobian(p, jac, res.Params, cfg)

	jtjDense := mat.NewDense(n, n, nil)
	jtjDense.Mul(jac.T(), jac)

	jtj := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			jtj.SetSym(i, j, (jtjDense.At(i, j)+jtjDense.At(j, i))/2)
		}
	}

	var chol mat.Cholesky
	if !chol.Factorize(jtj) {
		return
	}

	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return
	}

	sigma2 := res.RSS / float64(m-n)
	inv.ScaleSym(sigma2, &inv)

	res.Covariance = &inv
	res.CovarianceOK = true
}
