// Package pick locates candidate peaks on a grid by local-extremum search
// and refines their positions by parabolic interpolation. Picks are intended
// as initial estimates for the fit package.
package pick
