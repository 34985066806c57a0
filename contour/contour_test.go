package contour

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-peakfit/grid"
)

func mustGrid(t *testing.T, shape []int, data []float64, opts ...grid.Option) grid.Grid {
	t.Helper()

	g, err := grid.New(shape, data, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// gaussianHill builds a size x size grid with a unit Gaussian bump centred
// in the middle.
func gaussianHill(t *testing.T, size int, sigma float64) grid.Grid {
	t.Helper()

	data := make([]float64, size*size)
	c := float64(size-1) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := float64(x) - c
			dy := float64(y) - c
			data[y*size+x] = math.Exp(-(dx*dx + dy*dy) / (2 * sigma * sigma))
		}
	}

	return mustGrid(t, []int{size, size}, data)
}

func TestTraceRejectsWrongRank(t *testing.T) {
	g := mustGrid(t, []int{4}, make([]float64, 4))

	if _, err := Trace(g, 0.5, Config{}); !errors.Is(err, ErrNotTwoDimensional) {
		t.Fatalf("got %v, want ErrNotTwoDimensional", err)
	}
}

func TestTraceConstantBelowLevelIsEmpty(t *testing.T) {
	data := make([]float64, 64)
	for i := range data {
		data[i] = 0.2
	}

	res, err := Trace(mustGrid(t, []int{8, 8}, data), 0.5, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Segments) != 0 {
		t.Fatalf("constant grid below level: got %d segments, want 0", len(res.Segments))
	}
}

func TestTraceDegenerateGridIsEmptyNotError(t *testing.T) {
	res, err := Trace(mustGrid(t, []int{1, 5}, make([]float64, 5)), 0.5, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Segments) != 0 {
		t.Fatalf("degenerate grid: got %d segments, want 0", len(res.Segments))
	}
}

func TestTraceSingleHotSampleClosedLoop(t *testing.T) {
	data := make([]float64, 100)
	data[4*10+5] = 1.0 // sample (y=4, x=5)

	res, err := Trace(mustGrid(t, []int{10, 10}, data), 0.5, Config{})
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(res.Segments))
	}

	seg := res.Segments[0]
	if !seg.Closed {
		t.Fatalf("segment should be closed")
	}
	if len(seg.Points) != 4 {
		t.Fatalf("diamond around one sample: got %d points, want 4", len(seg.Points))
	}

	// Every vertex sits half a cell from the hot sample.
	for _, p := range seg.Points {
		d := math.Abs(p.X-5) + math.Abs(p.Y-4)
		if math.Abs(d-0.5) > 1e-12 {
			t.Fatalf("vertex (%v,%v) not on the half-crossing diamond", p.X, p.Y)
		}
	}
}

// TestTracePointsInterpolateToLevel checks that every returned vertex lies
// on a cell edge and that the linearly interpolated field value there equals
// the requested level.
func TestTracePointsInterpolateToLevel(t *testing.T) {
	g := gaussianHill(t, 21, 3.5)
	const level = 0.4

	res, err := Trace(g, level, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Segments) == 0 {
		t.Fatalf("expected contours on a gaussian hill")
	}

	for _, seg := range res.Segments {
		for _, p := range seg.Points {
			xFrac := p.X - math.Floor(p.X)
			yFrac := p.Y - math.Floor(p.Y)

			onVertical := math.Abs(xFrac) < 1e-9 || math.Abs(xFrac-1) < 1e-9
			onHorizontal := math.Abs(yFrac) < 1e-9 || math.Abs(yFrac-1) < 1e-9
			if !onVertical && !onHorizontal {
				t.Fatalf("vertex (%v,%v) not on a cell edge", p.X, p.Y)
			}

			var v float64
			switch {
			case onVertical && onHorizontal:
				v = g.At(int(math.Round(p.Y)), int(math.Round(p.X)))
			case onVertical:
				x := int(math.Round(p.X))
				y0 := int(math.Floor(p.Y))
				v = g.At(y0, x) + yFrac*(g.At(y0+1, x)-g.At(y0, x))
			default:
				y := int(math.Round(p.Y))
				x0 := int(math.Floor(p.X))
				v = g.At(y, x0) + xFrac*(g.At(y, x0+1)-g.At(y, x0))
			}

			if math.Abs(v-level) > 1e-9 {
				t.Fatalf("interpolated field %v at (%v,%v), want level %v", v, p.X, p.Y, level)
			}
		}
	}
}

// TestTraceScaleEquivariance: scaling the grid and the level by the same
// positive constant must not change the geometry.
func TestTraceScaleEquivariance(t *testing.T) {
	g := gaussianHill(t, 15, 2.5)

	const scale = 137.5

	scaled := make([]float64, g.Len())
	for i := range scaled {
		scaled[i] = scale * g.Flat(i)
	}
	gs := mustGrid(t, []int{15, 15}, scaled)

	a, err := Trace(g, 0.3, Config{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Trace(gs, 0.3*scale, Config{})
	if err != nil {
		t.Fatal(err)
	}

	if len(a.Segments) != len(b.Segments) {
		t.Fatalf("segment count changed under scaling: %d vs %d", len(a.Segments), len(b.Segments))
	}

	for i := range a.Segments {
		pa, pb := a.Segments[i].Points, b.Segments[i].Points
		if len(pa) != len(pb) {
			t.Fatalf("segment %d point count changed: %d vs %d", i, len(pa), len(pb))
		}
		for j := range pa {
			if math.Abs(pa[j].X-pb[j].X) > 1e-9 || math.Abs(pa[j].Y-pb[j].Y) > 1e-9 {
				t.Fatalf("segment %d vertex %d moved: (%v,%v) vs (%v,%v)",
					i, j, pa[j].X, pa[j].Y, pb[j].X, pb[j].Y)
			}
		}
	}
}

func TestTraceNegativeLevel(t *testing.T) {
	data := make([]float64, 100)
	data[5*10+5] = -1.0

	res, err := Trace(mustGrid(t, []int{10, 10}, data), -0.5, Config{})
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Segments) != 1 || !res.Segments[0].Closed {
		t.Fatalf("negative well should trace one closed loop, got %+v", res.Segments)
	}
}

func TestTraceOpenSegmentAtBoundary(t *testing.T) {
	// A vertical ridge spanning the full grid height: the contour lines run
	// top to bottom and terminate on the boundary, so they stay open.
	data := make([]float64, 8*8)
	for y := 0; y < 8; y++ {
		data[y*8+4] = 1.0
	}

	res, err := Trace(mustGrid(t, []int{8, 8}, data), 0.5, Config{})
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Segments) != 2 {
		t.Fatalf("ridge should produce two flanking lines, got %d", len(res.Segments))
	}
	for _, seg := range res.Segments {
		if seg.Closed {
			t.Fatalf("boundary-terminated segment tagged closed")
		}
	}
}

func TestTraceNonFiniteSamplesExcluded(t *testing.T) {
	data := make([]float64, 100)
	data[4*10+5] = 1.0
	data[0] = math.NaN()
	data[1] = math.Inf(1)

	res, err := Trace(mustGrid(t, []int{10, 10}, data), 0.5, Config{})
	if err != nil {
		t.Fatal(err)
	}

	if res.NonFiniteSamples != 2 {
		t.Fatalf("NonFiniteSamples: got %d, want 2", res.NonFiniteSamples)
	}

	// The +Inf sample must not spawn geometry of its own.
	if len(res.Segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(res.Segments))
	}
}

func TestTracePhysicalCoordinates(t *testing.T) {
	data := make([]float64, 100)
	data[4*10+5] = 1.0

	g := mustGrid(t, []int{10, 10}, data,
		grid.WithOrigin(120.0, 9.5), // axis 0 (Y), axis 1 (X)
		grid.WithSpacing(-0.5, 0.1))

	res, err := Trace(g, 0.5, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(res.Segments))
	}

	// The diamond centre maps to the physical position of sample (4, 5).
	cx, cy := 0.0, 0.0
	for _, p := range res.Segments[0].Points {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(res.Segments[0].Points))
	cy /= float64(len(res.Segments[0].Points))

	if math.Abs(cx-(9.5+0.1*5)) > 1e-12 {
		t.Fatalf("centre X: got %v, want %v", cx, 9.5+0.1*5)
	}
	if math.Abs(cy-(120.0-0.5*4)) > 1e-12 {
		t.Fatalf("centre Y: got %v, want %v", cy, 120.0-0.5*4)
	}
}

func TestTraceLevelsMonotonicity(t *testing.T) {
	g := gaussianHill(t, 9, 2)

	if _, err := TraceLevels(g, []float64{0.1, 0.5, 0.3}, Config{}); !errors.Is(err, ErrLevelsNotMonotonic) {
		t.Fatalf("got %v, want ErrLevelsNotMonotonic", err)
	}

	out, err := TraceLevels(g, []float64{0.2, 0.4, 0.8}, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d results, want 3", len(out))
	}

	// Decreasing ladders are the convention for negative spectra.
	if _, err := TraceLevels(g, []float64{0.8, 0.4, 0.2}, Config{}); err != nil {
		t.Fatalf("decreasing ladder rejected: %v", err)
	}
}

// TestSaddleResolution pins the average-of-corners policy on a single
// ambiguous cell: pattern 5 (bottom-left and top-right above).
func TestSaddleResolution(t *testing.T) {
	// Corner layout: v00=1, v10=0, v11=1, v01=0. Average 0.5.
	g := mustGrid(t, []int{2, 2}, []float64{1, 0, 0, 1})

	// Level 0.4: average 0.5 >= 0.4, centre above -> the two below-level
	// corners are isolated -> two open segments.
	res, err := Trace(g, 0.4, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("centre-above saddle: got %d segments, want 2", len(res.Segments))
	}

	// Level 0.6: average below -> the two above-level corners are isolated.
	res2, err := Trace(g, 0.6, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res2.Segments) != 2 {
		t.Fatalf("centre-below saddle: got %d segments, want 2", len(res2.Segments))
	}

	// The two policies pick different edge pairings; the midpoints of the
	// segments must differ between the two levels.
	mid := func(s Segment) Point {
		return Point{
			X: (s.Points[0].X + s.Points[len(s.Points)-1].X) / 2,
			Y: (s.Points[0].Y + s.Points[len(s.Points)-1].Y) / 2,
		}
	}

	m1, m2 := mid(res.Segments[0]), mid(res2.Segments[0])
	if m1 == m2 {
		t.Fatalf("saddle policy did not switch with the corner average")
	}
}
