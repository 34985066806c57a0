package stats

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-peakfit/grid"
	"github.com/cwbudde/algo-peakfit/internal/testutil"
)

func noisyPeakGrid(t *testing.T) grid.Grid {
	t.Helper()

	const ny, nx = 64, 64
	data := testutil.GaussianSurface(100, 32, 32, 4, 4, ny, nx)
	noise := testutil.DeterministicNoise(3, 1, ny*nx)
	for i := range data {
		data[i] += noise[i]
	}

	g, err := grid.New([]int{ny, nx}, data)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestEstimateNoiseSeparatesFloorFromPeak(t *testing.T) {
	g := noisyPeakGrid(t)

	est, err := EstimateNoise(g, NoiseConfig{Seed: 11})
	if err != nil {
		t.Fatal(err)
	}

	// Uniform noise in [-1, 1]: SD about 0.58; the level must sit well
	// above the floor and far below the 100-high peak.
	if est.Level < 0.5 || est.Level > 10 {
		t.Fatalf("noise level %v outside the plausible floor range", est.Level)
	}
	if est.StdDev <= 0 {
		t.Fatalf("zero spread from a noisy grid")
	}
}

func TestEstimateNoiseSubsetSizeIsolatesFloor(t *testing.T) {
	g := noisyPeakGrid(t)

	quiet, err := EstimateNoise(g, NoiseConfig{Seed: 11})
	if err != nil {
		t.Fatal(err)
	}

	// One subset spanning every drawn sample cannot dodge the peak
	// region, so its spread is dominated by signal.
	whole, err := EstimateNoise(g, NoiseConfig{Samples: 1000, Subsets: 1, Fraction: 1, Seed: 11})
	if err != nil {
		t.Fatal(err)
	}

	if whole.Level < 2*quiet.Level {
		t.Fatalf("peak-contaminated level %v not clearly above floor level %v", whole.Level, quiet.Level)
	}
}

func TestEstimateNoiseDeterministic(t *testing.T) {
	g := noisyPeakGrid(t)

	a, err := EstimateNoise(g, NoiseConfig{Seed: 5})
	if err != nil {
		t.Fatal(err)
	}
	b, err := EstimateNoise(g, NoiseConfig{Seed: 5})
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("same seed produced different estimates: %+v vs %+v", a, b)
	}
}

func TestEstimateNoiseAllNonFinite(t *testing.T) {
	data := []float64{math.NaN(), math.Inf(1), math.NaN(), math.Inf(-1)}
	g, err := grid.New([]int{4}, data)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := EstimateNoise(g, NoiseConfig{}); !errors.Is(err, ErrEmptyGrid) {
		t.Fatalf("got %v, want ErrEmptyGrid", err)
	}
}

func TestLadder(t *testing.T) {
	levels, err := Ladder(0.5, 2, 4)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, levels, []float64{0.5, 1, 2, 4}, 1e-15)

	if _, err := Ladder(0, 2, 4); !errors.Is(err, ErrBadLadder) {
		t.Fatalf("zero base accepted")
	}
	if _, err := Ladder(1, 1, 4); !errors.Is(err, ErrBadLadder) {
		t.Fatalf("unit factor accepted")
	}
	if _, err := Ladder(1, 2, 0); !errors.Is(err, ErrBadLadder) {
		t.Fatalf("zero count accepted")
	}
}
