// Package fit refines initial peak estimates against a local window of
// spectral data by nonlinear least squares.
//
// Peaks whose model footprints overlap inside the window are fitted jointly
// as one group sharing a residual vector; disjoint groups are independent
// and may run concurrently. Each group is handed to the Levenberg–Marquardt
// engine in package solver with analytic derivatives from package peak.
//
// Degraded outcomes are reported, never invented: an underdetermined group
// is tagged StatusUnderdetermined with no numeric result, a singular
// covariance leaves the standard errors absent, and a width that had to be
// held at the positive floor is flagged on the result.
package fit
