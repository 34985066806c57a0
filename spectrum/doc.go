// Package spectrum synthesizes NMR-like test data: free induction decays
// built from damped complex oscillations, their frequency-domain magnitude
// spectra, and 2D peak surfaces for the contour and fit packages.
package spectrum
