package peak

import (
	"errors"
	"fmt"
)

// Errors returned by model and peak operations.
var (
	ErrRankMismatch   = errors.New("peak: parameter slice lengths do not match model rank")
	ErrNonPositive    = errors.New("peak: width must be strictly positive")
	ErrBadFraction    = errors.New("peak: mixing fraction must be in [0, 1]")
	ErrShortParams    = errors.New("peak: parameter vector too short for model")
	ErrEmptyModel     = errors.New("peak: model needs at least one axis")
	ErrUnknownShape   = errors.New("peak: unregistered shape")
	ErrWrongPointRank = errors.New("peak: evaluation point rank does not match model")
)

// Model assigns one line shape per spectral axis.
type Model struct {
	Shapes []Shape
}

// Uniform builds a model using the same shape on every axis.
func Uniform(s Shape, ndim int) Model {
	shapes := make([]Shape, ndim)
	for i := range shapes {
		shapes[i] = s
	}
	return Model{Shapes: shapes}
}

// Rank returns the number of axes.
func (m Model) Rank() int { return len(m.Shapes) }

// NumParams returns the length of the flat parameter vector for one peak of
// this model: amplitude, per-axis centre and width, and one fraction per
// axis whose shape mixes profiles.
func (m Model) NumParams() int {
	n := 1 + 2*len(m.Shapes)
	for _, s := range m.Shapes {
		if p, err := ProfileFor(s); err == nil && p.HasFraction() {
			n++
		}
	}
	return n
}

// profiles resolves the registry entry for every axis.
func (m Model) profiles() ([]Profile, error) {
	if len(m.Shapes) == 0 {
		return nil, ErrEmptyModel
	}

	out := make([]Profile, len(m.Shapes))
	for i, s := range m.Shapes {
		p, err := ProfileFor(s)
		if err != nil {
			return nil, fmt.Errorf("%w: axis %d: %v", ErrUnknownShape, i, s)
		}
		out[i] = p
	}
	return out, nil
}

// Peak is one parametrized peak: a model plus its current parameter values.
// Widths are FWHM in the same units as Centers (grid points during fitting,
// physical units in returned results).
type Peak struct {
	Model     Model
	Amplitude float64
	Centers   []float64
	Widths    []float64
	// Fractions holds the per-axis Lorentzian mixing fraction. Entries on
	// axes without a fraction parameter are ignored. May be nil when no
	// axis needs one.
	Fractions []float64
}

// NumParams returns the free-parameter count of the peak.
func (p Peak) NumParams() int { return p.Model.NumParams() }

// Validate checks structural and numeric invariants.
func (p Peak) Validate() error {
	n := p.Model.Rank()
	if n == 0 {
		return ErrEmptyModel
	}
	if len(p.Centers) != n || len(p.Widths) != n {
		return ErrRankMismatch
	}

	needFractions := false
	for _, s := range p.Model.Shapes {
		prof, err := ProfileFor(s)
		if err != nil {
			return err
		}
		if prof.HasFraction() {
			needFractions = true
		}
	}
	if needFractions && len(p.Fractions) != n {
		return ErrRankMismatch
	}

	for i, w := range p.Widths {
		if !(w > 0) {
			return fmt.Errorf("%w: axis %d width %v", ErrNonPositive, i, w)
		}
	}
	for i, f := range p.Fractions {
		if f < 0 || f > 1 {
			return fmt.Errorf("%w: axis %d fraction %v", ErrBadFraction, i, f)
		}
	}

	return nil
}

// Value evaluates the peak at x (one coordinate per axis).
func (p Peak) Value(x []float64) (float64, error) {
	profs, err := p.Model.profiles()
	if err != nil {
		return 0, err
	}
	if len(x) != len(profs) {
		return 0, ErrWrongPointRank
	}

	v := p.Amplitude
	for i, prof := range profs {
		v *= prof.Value(x[i]-p.Centers[i], p.Widths[i], p.fraction(i))
	}
	return v, nil
}

// Gradient writes the partial derivatives of Value(x) with respect to the
// flat parameter vector into dst, which must have length NumParams().
// Layout matches AppendParams: amplitude, centres, widths, fractions.
func (p Peak) Gradient(dst, x []float64) error {
	profs, err := p.Model.profiles()
	if err != nil {
		return err
	}
	if len(x) != len(profs) {
		return ErrWrongPointRank
	}
	if len(dst) != p.NumParams() {
		return ErrShortParams
	}

	n := len(profs)
	values := make([]float64, n)
	prod := 1.0
	for i, prof := range profs {
		values[i] = prof.Value(x[i]-p.Centers[i], p.Widths[i], p.fraction(i))
		prod *= values[i]
	}

	dst[0] = prod // d/d(amplitude)

	fi := 1 + 2*n
	for i, prof := range profs {
		// Product of the other axes times the amplitude.
		rest := p.Amplitude
		for j := range profs {
			if j != i {
				rest *= values[j]
			}
		}

		dx := x[i] - p.Centers[i]
		w := p.Widths[i]
		f := p.fraction(i)

		dst[1+i] = rest * prof.DCenter(dx, w, f)
		dst[1+n+i] = rest * prof.DWidth(dx, w, f)

		if prof.HasFraction() {
			dst[fi] = rest * prof.DFraction(dx, w, f)
			fi++
		}
	}

	return nil
}

// AppendParams appends the flat parameter vector to dst:
// [amplitude, c_0..c_{n-1}, w_0..w_{n-1}, fractions...].
func (p Peak) AppendParams(dst []float64) []float64 {
	dst = append(dst, p.Amplitude)
	dst = append(dst, p.Centers...)
	dst = append(dst, p.Widths...)

	for i, s := range p.Model.Shapes {
		if prof, err := ProfileFor(s); err == nil && prof.HasFraction() {
			dst = append(dst, p.fraction(i))
		}
	}

	return dst
}

// FromParams rebuilds a peak of model m from the front of params and returns
// the remaining slice, so group parameter vectors can be consumed peak by
// peak.
func FromParams(m Model, params []float64) (Peak, []float64, error) {
	need := m.NumParams()
	if len(params) < need {
		return Peak{}, nil, ErrShortParams
	}

	n := m.Rank()
	p := Peak{
		Model:     m,
		Amplitude: params[0],
		Centers:   append([]float64(nil), params[1:1+n]...),
		Widths:    append([]float64(nil), params[1+n:1+2*n]...),
	}

	fi := 1 + 2*n
	for i, s := range m.Shapes {
		prof, err := ProfileFor(s)
		if err != nil {
			return Peak{}, nil, err
		}
		if prof.HasFraction() {
			if p.Fractions == nil {
				p.Fractions = make([]float64, n)
			}
			p.Fractions[i] = params[fi]
			fi++
		}
	}

	return p, params[need:], nil
}

func (p Peak) fraction(axis int) float64 {
	if axis < len(p.Fractions) {
		return p.Fractions[axis]
	}
	return 0
}
