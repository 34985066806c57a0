package testutil

import (
	"math"
	"testing"
)

func TestGaussianLine(t *testing.T) {
	s := GaussianLine(2.0, 10, 4, 21)
	if len(s) != 21 {
		t.Fatalf("len = %d, want 21", len(s))
	}
	if math.Abs(s[10]-2.0) > 1e-15 {
		t.Fatalf("apex %v, want 2", s[10])
	}
	// Half maximum at center +/- fwhm/2.
	if math.Abs(s[8]-1.0) > 1e-12 || math.Abs(s[12]-1.0) > 1e-12 {
		t.Fatalf("half max: s[8] = %v, s[12] = %v, want 1", s[8], s[12])
	}
}

func TestGaussianSurfaceSeparable(t *testing.T) {
	s := GaussianSurface(3.0, 5, 7, 4, 6, 11, 15)
	if math.Abs(s[5*15+7]-3.0) > 1e-15 {
		t.Fatalf("apex %v, want 3", s[5*15+7])
	}
	// Separable product: value at (7, 10) is the product of the per-axis
	// factors.
	wantY := math.Exp(-4 * math.Ln2 * 4 / 16)
	wantX := math.Exp(-4 * math.Ln2 * 9 / 36)
	if got := s[7*15+10]; math.Abs(got-3*wantY*wantX) > 1e-12 {
		t.Fatalf("got %v, want %v", got, 3*wantY*wantX)
	}
}

func TestDeterministicNoiseReproducible(t *testing.T) {
	a := DeterministicNoise(7, 0.5, 64)
	b := DeterministicNoise(7, 0.5, 64)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic at index %d", i)
		}
		if a[i] < -0.5 || a[i] > 0.5 {
			t.Fatalf("sample %d = %v out of range", i, a[i])
		}
	}
}

func TestPlane(t *testing.T) {
	p := Plane(1, 2, 3, 4, 5)
	if got := p[0]; got != 1 {
		t.Fatalf("p[0,0] = %v, want 1", got)
	}
	if got := p[2*5+3]; got != 14 {
		t.Fatalf("p[2,3] = %v, want 14", got)
	}
}
