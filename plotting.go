package blaster

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotProfile renders the GSO profile (log R[i,i] against i) of a reduced
// basis's R-factor as a PNG, for diagnosing reduction quality visually
// (spec §4.H, expansion). It is never called from Reduce/BKZReduce
// themselves; callers opt in explicitly when Options.Verbose requests a
// diagnostic artifact.
func PlotProfile(r *mat.Dense, w io.Writer) error {
	n, _ := r.Dims()
	pts := make(plotter.XYs, n)
	for i := 0; i < n; i++ {
		pts[i].X = float64(i)
		pts[i].Y = math.Log(r.At(i, i))
	}

	p := plot.New()
	p.Title.Text = "GSO profile"
	p.X.Label.Text = "index"
	p.Y.Label.Text = "log R[i,i]"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return wrapError(NumericalFailure, err, "plotting: build line")
	}
	p.Add(line)

	wt, err := p.WriterTo(6*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return wrapError(NumericalFailure, err, "plotting: render")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return wrapError(NumericalFailure, err, fmt.Sprintf("plotting: write to %T", w))
	}
	return nil
}
