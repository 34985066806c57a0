package spectrum

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"

	algofft "github.com/cwbudde/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

// Line describes one resonance contributing to a synthetic FID.
type Line struct {
	// Frequency is the offset from the carrier in Hz, within
	// [-SweepWidth/2, SweepWidth/2).
	Frequency float64

	// Decay is the exponential decay rate in 1/s. Larger values give
	// broader lines; the Lorentzian FWHM is Decay/pi Hz.
	Decay float64

	// Amplitude scales the line's contribution.
	Amplitude float64

	// Phase is the zero-time phase in radians.
	Phase float64
}

// FID describes a synthetic free induction decay.
type FID struct {
	Lines []Line

	// SweepWidth is the spectral width in Hz, i.e. the complex sampling
	// rate of the decay.
	SweepWidth float64

	// Size is the number of complex points.
	Size int

	// Noise is the standard deviation of Gaussian noise added to each
	// quadrature channel. Zero keeps the decay noiseless.
	Noise float64

	// Seed makes the noise deterministic. Zero uses seed 1.
	Seed int64
}

// Synthesize generates the complex time-domain decay: the sum over lines of
// amplitude * exp(i*(2*pi*f*t + phase)) * exp(-decay*t).
func (f FID) Synthesize() ([]complex128, error) {
	if f.Size <= 0 {
		return nil, fmt.Errorf("spectrum: fid size must be > 0: %d", f.Size)
	}
	if f.SweepWidth <= 0 {
		return nil, fmt.Errorf("spectrum: sweep width must be > 0: %f", f.SweepWidth)
	}
	for i, l := range f.Lines {
		if l.Decay < 0 {
			return nil, fmt.Errorf("spectrum: line %d decay must be >= 0: %f", i, l.Decay)
		}
	}

	out := make([]complex128, f.Size)
	dt := 1 / f.SweepWidth

	for _, l := range f.Lines {
		for n := range out {
			t := float64(n) * dt
			phase := 2*math.Pi*l.Frequency*t + l.Phase
			out[n] += complex(l.Amplitude*math.Exp(-l.Decay*t), 0) *
				cmplx.Exp(complex(0, phase))
		}
	}

	if f.Noise > 0 {
		seed := f.Seed
		if seed == 0 {
			seed = 1
		}
		rng := rand.New(rand.NewSource(seed))
		for n := range out {
			out[n] += complex(rng.NormFloat64()*f.Noise, rng.NormFloat64()*f.Noise)
		}
	}

	return out, nil
}

// Apodize multiplies the decay in place by an exponential window, the usual
// line-broadening apodization. The broadening is in Hz of added Lorentzian
// width; sweepWidth must match the FID's.
func Apodize(fid []complex128, lineBroadeningHz, sweepWidth float64) error {
	if sweepWidth <= 0 {
		return fmt.Errorf("spectrum: sweep width must be > 0: %f", sweepWidth)
	}
	if lineBroadeningHz < 0 {
		return fmt.Errorf("spectrum: line broadening must be >= 0: %f", lineBroadeningHz)
	}

	decay := math.Pi * lineBroadeningHz
	dt := 1 / sweepWidth
	for n := range fid {
		fid[n] *= complex(math.Exp(-decay*float64(n)*dt), 0)
	}
	return nil
}

// Transform computes the magnitude spectrum of the decay. The output is
// fftshifted so bin i corresponds to frequency (i - len/2) * SweepWidth/len,
// negative frequencies first. The input length must be a power of two.
func Transform(fid []complex128) ([]float64, error) {
	if len(fid) == 0 {
		return nil, fmt.Errorf("spectrum: empty fid")
	}

	plan, err := algofft.NewPlan64(len(fid))
	if err != nil {
		return nil, fmt.Errorf("spectrum: fft plan: %w", err)
	}

	freq := make([]complex128, len(fid))
	if err := plan.Forward(freq, fid); err != nil {
		return nil, fmt.Errorf("spectrum: forward fft: %w", err)
	}

	re := make([]float64, len(freq))
	im := make([]float64, len(freq))
	for i, c := range freq {
		re[i] = real(c)
		im[i] = imag(c)
	}

	mag := make([]float64, len(freq))
	vecmath.Magnitude(mag, re, im)

	return fftshift(mag), nil
}

// fftshift rotates the spectrum so the zero-frequency bin sits at len/2.
func fftshift(in []float64) []float64 {
	n := len(in)
	half := (n + 1) / 2
	out := make([]float64, n)
	copy(out, in[half:])
	copy(out[n-half:], in[:half])
	return out
}

// Bin returns the fftshifted bin index closest to the given frequency for a
// spectrum of n points over the sweep width.
func Bin(freq, sweepWidth float64, n int) int {
	i := n/2 + int(math.Round(freq/sweepWidth*float64(n)))
	if i < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	return i
}
