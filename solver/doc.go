// Package solver implements a damped least-squares (Levenberg–Marquardt)
// engine over an abstract residual problem.
//
// The solver knows nothing about peaks or grids: a Problem exposes its
// residual vector and, optionally, an analytic Jacobian. Problems without
// one get a central-difference Jacobian. Each iteration solves the damped
// normal equations
//
//	(JᵀJ + λ·diag(JᵀJ)) Δ = −Jᵀr
//
// by Cholesky factorization with an LU fallback, accepts Δ only when it
// reduces the residual sum of squares, and adapts λ up on rejection and down
// on acceptance.
//
// Termination is always reported as a status, never as an error: converged,
// iteration limit, stalled, or cancelled via the context. The returned
// parameters are the best visited point in every case.
package solver
