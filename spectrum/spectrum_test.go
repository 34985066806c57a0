package spectrum

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-peakfit/internal/testutil"
	"github.com/cwbudde/algo-peakfit/peak"
)

func TestSynthesizeSingleLine(t *testing.T) {
	f := FID{
		Lines:      []Line{{Frequency: 100, Decay: 5, Amplitude: 2}},
		SweepWidth: 1000,
		Size:       256,
	}

	fid, err := f.Synthesize()
	if err != nil {
		t.Fatal(err)
	}
	if len(fid) != 256 {
		t.Fatalf("got %d points, want 256", len(fid))
	}

	// t = 0: amplitude at zero phase.
	if math.Abs(real(fid[0])-2) > 1e-12 || math.Abs(imag(fid[0])) > 1e-12 {
		t.Fatalf("fid[0] = %v, want (2, 0)", fid[0])
	}

	// The envelope decays monotonically.
	if m0, m1 := cmplxAbs(fid[0]), cmplxAbs(fid[100]); m1 >= m0 {
		t.Fatalf("no decay: |fid[0]| = %v, |fid[100]| = %v", m0, m1)
	}
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

func TestTransformPeaksAtLineFrequency(t *testing.T) {
	const (
		freq  = 125.0
		sweep = 1000.0
		size  = 512
	)
	f := FID{
		Lines:      []Line{{Frequency: freq, Decay: 10, Amplitude: 1}},
		SweepWidth: sweep,
		Size:       size,
	}

	fid, err := f.Synthesize()
	if err != nil {
		t.Fatal(err)
	}
	mag, err := Transform(fid)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireFinite(t, mag)

	maxBin := 0
	for i, v := range mag {
		if v > mag[maxBin] {
			maxBin = i
		}
	}

	if want := Bin(freq, sweep, size); maxBin != want {
		t.Fatalf("spectrum peaks at bin %d, want %d", maxBin, want)
	}
}

func TestTransformNegativeFrequency(t *testing.T) {
	f := FID{
		Lines:      []Line{{Frequency: -200, Decay: 10, Amplitude: 1}},
		SweepWidth: 1000,
		Size:       256,
	}

	fid, err := f.Synthesize()
	if err != nil {
		t.Fatal(err)
	}
	mag, err := Transform(fid)
	if err != nil {
		t.Fatal(err)
	}

	maxBin := 0
	for i, v := range mag {
		if v > mag[maxBin] {
			maxBin = i
		}
	}

	want := Bin(-200, 1000, 256)
	if want >= len(mag)/2 {
		t.Fatalf("negative frequency mapped to bin %d in the upper half", want)
	}
	if maxBin != want {
		t.Fatalf("spectrum peaks at bin %d, want %d", maxBin, want)
	}
}

func TestApodizeBroadensAndDecays(t *testing.T) {
	fid := make([]complex128, 64)
	for i := range fid {
		fid[i] = 1
	}

	if err := Apodize(fid, 10, 1000); err != nil {
		t.Fatal(err)
	}

	if fid[0] != 1 {
		t.Fatalf("apodization must not touch the first point: %v", fid[0])
	}
	for i := 1; i < len(fid); i++ {
		if cmplxAbs(fid[i]) >= cmplxAbs(fid[i-1]) {
			t.Fatalf("window not monotonically decaying at %d", i)
		}
	}

	if err := Apodize(fid, -1, 1000); err == nil {
		t.Fatalf("negative broadening accepted")
	}
}

func TestSynthesizeNoiseDeterministic(t *testing.T) {
	f := FID{
		Lines:      []Line{{Frequency: 50, Decay: 5, Amplitude: 1}},
		SweepWidth: 500,
		Size:       64,
		Noise:      0.1,
		Seed:       42,
	}

	a, err := f.Synthesize()
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.Synthesize()
	if err != nil {
		t.Fatal(err)
	}

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed produced different noise at %d", i)
		}
	}
}

func TestSynthesizeValidation(t *testing.T) {
	if _, err := (FID{SweepWidth: 100}).Synthesize(); err == nil {
		t.Fatalf("zero size accepted")
	}
	if _, err := (FID{Size: 16}).Synthesize(); err == nil {
		t.Fatalf("zero sweep width accepted")
	}
	bad := FID{Size: 16, SweepWidth: 100, Lines: []Line{{Decay: -1}}}
	if _, err := bad.Synthesize(); err == nil {
		t.Fatalf("negative decay accepted")
	}
}

func TestSurfaceSumsPeaks(t *testing.T) {
	p := peak.Peak{
		Model:     peak.Uniform(peak.Gaussian, 2),
		Amplitude: 4,
		Centers:   []float64{5, 7},
		Widths:    []float64{3, 3},
	}

	g, err := Surface(11, 15, []peak.Peak{p, p})
	if err != nil {
		t.Fatal(err)
	}

	if got := g.At(5, 7); math.Abs(got-8) > 1e-12 {
		t.Fatalf("surface apex %v, want 8", got)
	}

	bad := p
	bad.Model = peak.Uniform(peak.Gaussian, 1)
	bad.Centers = []float64{5}
	bad.Widths = []float64{3}
	if _, err := Surface(11, 15, []peak.Peak{bad}); err == nil {
		t.Fatalf("rank-1 peak accepted for a 2D surface")
	}
}
