// Package stats computes summary statistics over spectrum intensities and
// estimates the noise floor, from which picking thresholds and contour level
// ladders are derived.
package stats
