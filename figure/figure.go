/*
Package figure renders the validation figures of the corrections.
*/
package figure

import (
	"fmt"
	"math"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"bitbucket.org/Davydov/lprcorr/correct"
	"bitbucket.org/Davydov/lprcorr/dist"
	"bitbucket.org/Davydov/lprcorr/empirical"
	"bitbucket.org/Davydov/lprcorr/lpr"
)

var log = logging.MustGetLogger("figure")

// Points is the number of points in every line.
var Points = 200

// Default figure size.
var (
	Width  = 5 * vg.Inch
	Height = 4 * vg.Inch
)

// line samples f at n evenly spaced points of [from, to].
func line(f func(float64) float64, from, to float64, n int) plotter.XYs {
	xs := floats.Span(make([]float64, n), from, to)
	pts := make(plotter.XYs, 0, n)
	for _, x := range xs {
		y := f(x)
		if math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: x, Y: y})
	}
	return pts
}

func newPlot(title, x, y string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = x
	p.Y.Label.Text = y
	p.Legend.Top = true
	return p
}

// CCDFComparison plots the tail probability of a density estimate,
// its correction and, if reference is not nil, the tail of reference.
func CCDFComparison(est *empirical.DensityEstimate, params lpr.Params, reference dist.Distribution) (*plot.Plot, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	p := newPlot("Tail probability", "x", "P(X > x)")
	lo, hi := est.SampleRange()
	corrected := func(x float64) float64 {
		return est.CorrectedCCDF(x, params)
	}
	lines := []interface{}{
		"estimate", line(est.CCDF, lo, hi, Points),
		"corrected", line(corrected, lo, hi, Points),
	}
	if reference != nil {
		ccdf := func(x float64) float64 {
			return dist.CCDF(reference, x)
		}
		lines = append(lines, "closed form", line(ccdf, lo, hi, Points))
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return nil, errors.Wrap(err, "ccdf comparison")
	}
	return p, nil
}

// QuantileComparison plots the quantile function of a density
// estimate and the quantile functions of its left and right tail
// corrections.
func QuantileComparison(est *empirical.DensityEstimate, params lpr.Params) (*plot.Plot, error) {
	left, err := est.CorrectedQuantile(params, lpr.Left)
	if err != nil {
		return nil, err
	}
	right, err := est.CorrectedQuantile(params, lpr.Right)
	if err != nil {
		return nil, err
	}
	p := newPlot("Quantile functions", "p", "x")
	const eps = 1e-3
	err = plotutil.AddLines(p,
		"estimate", line(est.Quantile, eps, 1-eps, Points),
		"left corrected", line(left.At, eps, 1-eps, Points),
		"right corrected", line(right.At, eps, 1-eps, Points))
	if err != nil {
		return nil, errors.Wrap(err, "quantile comparison")
	}
	return p, nil
}

// Sweep plots the errors of skew-normal fits: the fitted mode minus
// the requested one and the fitted tail probability minus the
// target, against the requested mode.
func Sweep(fits []*correct.Fit) (*plot.Plot, error) {
	if len(fits) == 0 {
		return nil, errors.New("no fits to plot")
	}
	p := newPlot("Skew-normal fit errors", "mode", "error")
	modes := make(plotter.XYs, len(fits))
	tails := make(plotter.XYs, len(fits))
	for i, f := range fits {
		modes[i] = plotter.XY{X: f.Mu, Y: f.Mode - f.Mu}
		tails[i] = plotter.XY{X: f.Mu, Y: f.Tail - f.TargetTail}
	}
	if err := plotutil.AddLinePoints(p, "mode", modes, "tail", tails); err != nil {
		return nil, errors.Wrap(err, "sweep")
	}
	return p, nil
}

// Densities plots the densities of the fitted skew-normal
// distributions.
func Densities(fits []*correct.Fit) (*plot.Plot, error) {
	if len(fits) == 0 {
		return nil, errors.New("no fits to plot")
	}
	p := newPlot("Corrected distributions", "x", "density")
	var lines []interface{}
	for _, f := range fits {
		sn := f.SkewNormal
		lo, hi := sn.Mean()-4*sn.Sigma, sn.Mean()+4*sn.Sigma
		lines = append(lines, fmt.Sprintf("mode %.3g", f.Mu), line(sn.PDF, lo, hi, Points))
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return nil, errors.Wrap(err, "densities")
	}
	return p, nil
}

// Save writes the plot to path; the format is chosen by the file
// extension.
func Save(p *plot.Plot, path string) error {
	if err := p.Save(Width, Height, path); err != nil {
		return errors.Wrapf(err, "saving %s", path)
	}
	log.Infof("Saved %s", path)
	return nil
}
