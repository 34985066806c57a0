package stats

import (
	"errors"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-peakfit/grid"
)

// Errors returned by the noise estimator.
var (
	ErrEmptyGrid   = errors.New("stats: grid has no finite samples")
	ErrBadLadder   = errors.New("stats: ladder needs base > 0, factor > 1 and n >= 1")
	ErrBadSampling = errors.New("stats: sample and subset counts must be positive")
)

// Defaults for NoiseConfig fields left at zero.
const (
	DefaultSamples     = 1000
	DefaultSubsets     = 10
	DefaultFraction    = 0.1
	DefaultLevelFactor = 3.5
)

// NoiseConfig controls the random-sampling noise estimator. The zero value
// uses defaults.
type NoiseConfig struct {
	// Samples is the number of random grid points drawn.
	Samples int

	// Subsets is how many random subsets are tried; the one with the
	// lowest spread wins, so isolated strong peaks do not bias the floor.
	Subsets int

	// Fraction is the share of the drawn samples in each subset.
	Fraction float64

	// LevelFactor scales the standard deviation into the noise level:
	// Level = |mean| + LevelFactor * SD.
	LevelFactor float64

	// Seed makes the estimate deterministic. Zero uses seed 1.
	Seed int64
}

func (c NoiseConfig) withDefaults() NoiseConfig {
	if c.Samples == 0 {
		c.Samples = DefaultSamples
	}
	if c.Subsets == 0 {
		c.Subsets = DefaultSubsets
	}
	if c.Fraction <= 0 || c.Fraction > 1 {
		c.Fraction = DefaultFraction
	}
	if c.LevelFactor <= 0 {
		c.LevelFactor = DefaultLevelFactor
	}
	if c.Seed == 0 {
		c.Seed = 1
	}
	return c
}

// NoiseEstimate describes the estimated noise floor of a spectrum.
type NoiseEstimate struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64

	// Level is the suggested signal threshold: |mean| + LevelFactor * SD
	// of the quietest subset.
	Level float64
}

// EstimateNoise estimates the noise floor by drawing random samples from the
// grid and keeping the statistics of the quietest subset. Non-finite samples
// are discarded.
func EstimateNoise(g grid.Grid, cfg NoiseConfig) (NoiseEstimate, error) {
	cfg = cfg.withDefaults()
	if cfg.Samples < 1 || cfg.Subsets < 1 {
		return NoiseEstimate{}, ErrBadSampling
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	values := make([]float64, 0, cfg.Samples)
	for i := 0; i < cfg.Samples; i++ {
		v := g.Flat(rng.Intn(g.Len()))
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return NoiseEstimate{}, ErrEmptyGrid
	}

	m := int(float64(len(values)) * cfg.Fraction)
	if m < 1 {
		m = 1
	}

	subset := make([]float64, m)
	var best Summary
	bestSet := false
	for s := 0; s < cfg.Subsets; s++ {
		for i := range subset {
			subset[i] = values[rng.Intn(len(values))]
		}
		sum := Calculate(subset)
		if !bestSet || sum.StdDev < best.StdDev {
			best = sum
			bestSet = true
		}
	}

	return NoiseEstimate{
		Mean:   best.Mean,
		StdDev: best.StdDev,
		Min:    best.Min,
		Max:    best.Max,
		Level:  math.Abs(best.Mean) + cfg.LevelFactor*best.StdDev,
	}, nil
}

// Ladder returns n geometrically spaced contour levels starting at base.
func Ladder(base, factor float64, n int) ([]float64, error) {
	if base <= 0 || factor <= 1 || n < 1 {
		return nil, ErrBadLadder
	}
	out := make([]float64, n)
	level := base
	for i := range out {
		out[i] = level
		level *= factor
	}
	return out, nil
}
