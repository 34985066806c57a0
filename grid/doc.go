// Package grid provides the shared lattice type consumed by the contour,
// fit and pick packages: an immutable N-dimensional array of float64
// intensity samples with a per-axis affine map from array indices to
// physical coordinates (e.g. ppm).
//
// A Grid is a value object. It is never mutated after construction, so a
// single Grid may be shared freely across concurrent calls.
package grid
