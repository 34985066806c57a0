// Command contourmap synthesizes a 2D spectrum, traces a ladder of contour
// levels over it, refines the visible peaks and renders the map to an image.
//
// Usage:
//
//	contourmap [flags]
//
// Examples:
//
//	contourmap -o contours.png
//	contourmap -rows 256 -cols 256 -levels 8 -factor 1.6
//	contourmap -noise 0.05 -seed 7 -fit
package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"math"
	"math/rand"
	"os"
	"text/tabwriter"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/cwbudde/algo-peakfit/contour"
	"github.com/cwbudde/algo-peakfit/fit"
	"github.com/cwbudde/algo-peakfit/grid"
	"github.com/cwbudde/algo-peakfit/peak"
	"github.com/cwbudde/algo-peakfit/pick"
	"github.com/cwbudde/algo-peakfit/spectrum"
	"github.com/cwbudde/algo-peakfit/stats"
)

func main() {
	rows := flag.Int("rows", 128, "grid rows")
	cols := flag.Int("cols", 128, "grid columns")
	nLevels := flag.Int("levels", 6, "number of contour levels")
	base := flag.Float64("base", 0, "lowest contour level; 0 derives it from the noise floor")
	factor := flag.Float64("factor", 1.8, "geometric ratio between levels")
	noise := flag.Float64("noise", 0, "uniform noise amplitude added to the surface")
	seed := flag.Int64("seed", 1, "noise seed")
	doFit := flag.Bool("fit", false, "pick and fit the peaks, print refined parameters")
	out := flag.String("o", "contourmap.png", "output image file (.png, .svg, .pdf)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: contourmap [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Traces contour levels over a synthetic 2D spectrum.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(*rows, *cols, *nLevels, *base, *factor, *noise, *seed, *doFit, *out); err != nil {
		fmt.Fprintf(os.Stderr, "contourmap: %v\n", err)
		os.Exit(1)
	}
}

// demoPeaks places three overlapping peaks scaled to the grid size.
func demoPeaks(rows, cols int) []peak.Peak {
	ry, rx := float64(rows), float64(cols)
	mk := func(shape peak.Shape, amp, cy, cx, wy, wx float64) peak.Peak {
		p := peak.Peak{
			Model:     peak.Uniform(shape, 2),
			Amplitude: amp,
			Centers:   []float64{cy * ry, cx * rx},
			Widths:    []float64{wy * ry, wx * rx},
		}
		if shape == peak.PseudoVoigt {
			p.Fractions = []float64{0.5, 0.5}
		}
		return p
	}
	return []peak.Peak{
		mk(peak.Gaussian, 10, 0.35, 0.30, 0.06, 0.05),
		mk(peak.Lorentzian, 6, 0.42, 0.40, 0.05, 0.07),
		mk(peak.PseudoVoigt, 8, 0.68, 0.65, 0.08, 0.06),
	}
}

func run(rows, cols, nLevels int, base, factor, noise float64, seed int64, doFit bool, out string) error {
	truth := demoPeaks(rows, cols)
	surface, err := spectrum.Surface(rows, cols, truth)
	if err != nil {
		return err
	}
	if noise > 0 {
		surface, err = addNoise(surface, noise, seed)
		if err != nil {
			return err
		}
	}

	est, err := stats.EstimateNoise(surface, stats.NoiseConfig{Seed: seed})
	if err != nil {
		return err
	}
	if base <= 0 {
		base = math.Max(est.Level, 1e-3)
		fmt.Printf("noise level %.4g, contour base %.4g\n", est.Level, base)
	}

	levels, err := stats.Ladder(base, factor, nLevels)
	if err != nil {
		return err
	}

	results, err := contour.TraceLevels(surface, levels, contour.Config{})
	if err != nil {
		return err
	}

	printSummary(results)

	if doFit {
		if err := pickAndFit(surface, est.Level); err != nil {
			return err
		}
	}

	return render(results, levels, out)
}

func addNoise(g grid.Grid, amplitude float64, seed int64) (grid.Grid, error) {
	data := make([]float64, g.Len())
	rng := rand.New(rand.NewSource(seed))
	for i := range data {
		data[i] = g.Flat(i) + (rng.Float64()*2-1)*amplitude
	}

	shape := g.Shape()
	origin := make([]float64, len(shape))
	spacing := make([]float64, len(shape))
	for i := range shape {
		origin[i] = g.Origin(i)
		spacing[i] = g.Spacing(i)
	}
	return grid.New(shape, data, grid.WithOrigin(origin...), grid.WithSpacing(spacing...))
}

func printSummary(results []contour.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LEVEL\tSEGMENTS\tCLOSED\tOPEN\tPOINTS")
	for _, r := range results {
		closed, open, points := 0, 0, 0
		for _, s := range r.Segments {
			if s.Closed {
				closed++
			} else {
				open++
			}
			points += len(s.Points)
		}
		fmt.Fprintf(w, "%.4g\t%d\t%d\t%d\t%d\n", r.Level, len(r.Segments), closed, open, points)
	}
	w.Flush()
}

func pickAndFit(surface grid.Grid, threshold float64) error {
	found := pick.Find(surface, pick.Config{Threshold: threshold, BoundaryWidth: 2})

	initial := make([]peak.Peak, 0, len(found))
	for _, f := range found {
		refined, err := pick.RefineParabolic(surface, f.Index)
		if err != nil {
			continue
		}
		initial = append(initial, peak.Peak{
			Model:     peak.Uniform(peak.Gaussian, 2),
			Amplitude: refined.Height,
			Centers:   refined.Position,
			Widths:    refined.Widths,
		})
	}
	if len(initial) == 0 {
		fmt.Println("no peaks picked")
		return nil
	}

	results, err := fit.Peaks(context.Background(), surface, initial, fit.Config{})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PEAK\tSTATUS\tAMPLITUDE\tCENTER\tWIDTH\tITER")
	for i, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%.4g\t(%.2f, %.2f)\t(%.2f, %.2f)\t%d\n",
			i, r.Status, r.Peak.Amplitude,
			r.Peak.Centers[0], r.Peak.Centers[1],
			r.Peak.Widths[0], r.Peak.Widths[1],
			r.Iterations)
	}
	return w.Flush()
}

func render(results []contour.Result, levels []float64, out string) error {
	p := plot.New()
	p.Title.Text = "contour map"
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	for i, r := range results {
		col := levelColor(i, len(levels))
		for _, s := range r.Segments {
			pts := make(plotter.XYs, 0, len(s.Points)+1)
			for _, pt := range s.Points {
				pts = append(pts, plotter.XY{X: pt.X, Y: pt.Y})
			}
			if s.Closed && len(s.Points) > 0 {
				pts = append(pts, plotter.XY{X: s.Points[0].X, Y: s.Points[0].Y})
			}

			line, err := plotter.NewLine(pts)
			if err != nil {
				return err
			}
			line.Width = vg.Points(1)
			line.Color = col
			p.Add(line)
		}
	}

	if err := p.Save(8*vg.Inch, 8*vg.Inch, out); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", out)
	return nil
}

// levelColor fades from blue (low levels) to red (high levels).
func levelColor(i, n int) color.Color {
	t := 0.0
	if n > 1 {
		t = float64(i) / float64(n-1)
	}
	return color.RGBA{
		R: uint8(60 + 180*t),
		G: 60,
		B: uint8(240 - 180*t),
		A: 255,
	}
}
