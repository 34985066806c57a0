package testutil

import (
	"math"
	"math/rand"
)

// GaussianLine samples a 1D Gaussian of the given FWHM on n points.
func GaussianLine(amplitude, center, fwhm float64, n int) []float64 {
	out := make([]float64, n)
	k := 4 * math.Ln2 / (fwhm * fwhm)
	for i := range out {
		d := float64(i) - center
		out[i] = amplitude * math.Exp(-k*d*d)
	}
	return out
}

// GaussianSurface samples a 2D Gaussian on an ny x nx row-major plane.
func GaussianSurface(amplitude, cy, cx, fwhmY, fwhmX float64, ny, nx int) []float64 {
	out := make([]float64, ny*nx)
	ky := 4 * math.Ln2 / (fwhmY * fwhmY)
	kx := 4 * math.Ln2 / (fwhmX * fwhmX)
	for y := 0; y < ny; y++ {
		dy := float64(y) - cy
		row := amplitude * math.Exp(-ky*dy*dy)
		for x := 0; x < nx; x++ {
			dx := float64(x) - cx
			out[y*nx+x] = row * math.Exp(-kx*dx*dx)
		}
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Plane generates a tilted plane a + b*y + c*x on an ny x nx row-major grid,
// useful as a peak-free background.
func Plane(a, b, c float64, ny, nx int) []float64 {
	out := make([]float64, ny*nx)
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			out[y*nx+x] = a + b*float64(y) + c*float64(x)
		}
	}
	return out
}
