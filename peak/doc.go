// Package peak defines the parametric line-shape models fitted to spectral
// data: Gaussian, Lorentzian and pseudo-Voigt profiles, combined per axis
// into separable N-dimensional peaks.
//
// A peak over N axes is the product of one 1D profile per axis scaled by a
// single amplitude. Widths are full width at half maximum throughout:
//
//	Gaussian:    exp(-4 ln2 · dx²/w²)
//	Lorentzian:  w² / (w² + 4 dx²)
//	PseudoVoigt: f·Lorentzian + (1−f)·Gaussian
//
// Shapes are looked up in a registry of Profile entries carrying the value
// function and its analytic partial derivatives, so additional shapes plug
// into the fitting machinery without touching the solver.
package peak
