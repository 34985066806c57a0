// Package contour traces iso-intensity lines through a 2D grid using the
// marching-squares algorithm.
//
// Each unit cell of four neighbouring samples is classified by comparing its
// corners against the requested level, yielding one of 16 configurations
// looked up in a fixed table. Crossing points are placed on cell edges by
// linear interpolation and stitched into polylines by endpoint matching.
// Chains that meet themselves are tagged closed; chains that end on the grid
// boundary stay open.
//
// Two policies keep the output deterministic:
//
//   - A corner exactly equal to the level counts as above it, so shared
//     edges are classified consistently and never double-counted.
//   - The two ambiguous saddle configurations are resolved by comparing the
//     average of the four corner values against the level. This matches the
//     upstream convention; it is a reproducible tie-break, not the only
//     defensible geometry.
//
// Non-finite samples are classified as below every level and excluded from
// the geometry.
package contour
