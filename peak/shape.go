package peak

import (
	"fmt"
	"math"
)

// Shape identifies a 1D line-shape profile.
type Shape int

const (
	Gaussian Shape = iota
	Lorentzian
	PseudoVoigt
)

// String returns the shape name.
func (s Shape) String() string {
	switch s {
	case Gaussian:
		return "gaussian"
	case Lorentzian:
		return "lorentzian"
	case PseudoVoigt:
		return "pseudo-voigt"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// ln16 = 4·ln2, the FWHM constant of the Gaussian profile.
var ln16 = 4 * math.Log(2)

// Profile describes one axis line shape: its value at offset dx from the
// centre for width w (FWHM) and mixing fraction f, plus analytic partial
// derivatives. DFraction is nil for shapes without a fraction parameter.
type Profile struct {
	Value     func(dx, w, f float64) float64
	DCenter   func(dx, w, f float64) float64
	DWidth    func(dx, w, f float64) float64
	DFraction func(dx, w, f float64) float64
}

// HasFraction reports whether the profile carries a mixing-fraction
// parameter.
func (p Profile) HasFraction() bool { return p.DFraction != nil }

var shapeRegistry = map[Shape]Profile{
	Gaussian: {
		Value:   gaussValue,
		DCenter: gaussDCenter,
		DWidth:  gaussDWidth,
	},
	Lorentzian: {
		Value:   lorentzValue,
		DCenter: lorentzDCenter,
		DWidth:  lorentzDWidth,
	},
	PseudoVoigt: {
		Value: func(dx, w, f float64) float64 {
			return f*lorentzValue(dx, w, 0) + (1-f)*gaussValue(dx, w, 0)
		},
		DCenter: func(dx, w, f float64) float64 {
			return f*lorentzDCenter(dx, w, 0) + (1-f)*gaussDCenter(dx, w, 0)
		},
		DWidth: func(dx, w, f float64) float64 {
			return f*lorentzDWidth(dx, w, 0) + (1-f)*gaussDWidth(dx, w, 0)
		},
		DFraction: func(dx, w, f float64) float64 {
			return lorentzValue(dx, w, 0) - gaussValue(dx, w, 0)
		},
	},
}

// Register adds or replaces the profile for a shape. Built-in shapes may be
// overridden; callers defining new shapes should use values well above the
// built-in constants.
func Register(s Shape, p Profile) {
	if p.Value == nil || p.DCenter == nil || p.DWidth == nil {
		panic("peak: Register requires Value, DCenter and DWidth")
	}
	shapeRegistry[s] = p
}

// ProfileFor returns the registered profile for s.
func ProfileFor(s Shape) (Profile, error) {
	p, ok := shapeRegistry[s]
	if !ok {
		return Profile{}, fmt.Errorf("peak: unregistered shape %v", s)
	}
	return p, nil
}

func gaussValue(dx, w, _ float64) float64 {
	r := dx / w
	return math.Exp(-ln16 * r * r)
}

func gaussDCenter(dx, w, _ float64) float64 {
	g := gaussValue(dx, w, 0)
	return g * 2 * ln16 * dx / (w * w)
}

func gaussDWidth(dx, w, _ float64) float64 {
	g := gaussValue(dx, w, 0)
	return g * 2 * ln16 * dx * dx / (w * w * w)
}

func lorentzValue(dx, w, _ float64) float64 {
	w2 := w * w
	return w2 / (w2 + 4*dx*dx)
}

func lorentzDCenter(dx, w, _ float64) float64 {
	l := lorentzValue(dx, w, 0)
	return l * 8 * dx / (w*w + 4*dx*dx)
}

func lorentzDWidth(dx, w, _ float64) float64 {
	d := w*w + 4*dx*dx
	l := w * w / d
	return l * 8 * dx * dx / (w * d)
}
