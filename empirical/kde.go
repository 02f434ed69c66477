/*
Package empirical corrects a distribution known only through a sample.

The sample is smoothed with a Gaussian kernel density estimate on a
grid which extends past the sample range, so that the cumulative
distribution stays strictly inside (0, 1) where it matters and the
probit transform stays finite. The correction is then applied to the
CDF grid:

	est, err := empirical.Build(samples, empirical.DefaultOptions())
	q, err := est.CorrectedQuantile(lpr.Example, lpr.Right)
	x := q.At(0.9)
*/
package empirical

import (
	"math"
	"math/rand"

	mstats "github.com/aclements/go-moremath/stats"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

var log = logging.MustGetLogger("empirical")

// Point is a grid point of a density estimate.
type Point struct {
	X     float64 `json:"x"`
	Value float64 `json:"v"`
}

// DensityEstimate is a kernel density estimate sampled on an evenly
// spaced grid. It is immutable once built.
type DensityEstimate struct {
	opts Options

	// grid, density and normalized cumulative sum of the density
	xs      []float64
	density []float64
	cdf     []float64

	bandwidth float64
	min, max  float64
	n         int

	// cell edges and the CDF at the edges
	edges  []float64
	ecdf   []float64
	interp interp.FritschButland
	pdf    interp.PiecewiseLinear
}

// BuildDensityEstimate builds a density estimate with the default
// options except cut and adjust. cut widens the grid beyond the
// sample range in bandwidth units, adjust scales the bandwidth.
func BuildDensityEstimate(samples []float64, cut, adjust float64) (*DensityEstimate, error) {
	opts := DefaultOptions()
	opts.Cut = cut
	opts.Adjust = adjust
	return Build(samples, opts)
}

// Build builds a Gaussian kernel density estimate of samples. The
// grid spans [min - Cut·h, max + Cut·h] where h is the adjusted
// bandwidth. Building twice from the same input gives identical
// estimates.
func Build(samples []float64, opts Options) (*DensityEstimate, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if len(samples) < 2 {
		return nil, errors.Errorf("at least two samples are required, got %d", len(samples))
	}
	for _, x := range samples {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, errors.Errorf("sample contains non-finite value %v", x)
		}
	}

	h, err := opts.Bandwidth(samples)
	if err != nil {
		return nil, err
	}
	h *= opts.Adjust
	if !(h > 0) || math.IsInf(h, 0) {
		return nil, errors.Errorf("bandwidth must be positive, got %v (constant sample?)", h)
	}

	est := &DensityEstimate{
		opts:      opts,
		bandwidth: h,
		min:       floats.Min(samples),
		max:       floats.Max(samples),
		n:         len(samples),
	}
	lo, hi := est.min-opts.Cut*h, est.max+opts.Cut*h
	if lo == hi {
		return nil, errors.New("empty grid, cut must be > 0 for this sample")
	}
	est.xs = floats.Span(make([]float64, opts.GridSize), lo, hi)
	est.density = kernelDensity(est.xs, samples, h)

	est.cdf = floats.CumSum(make([]float64, len(est.density)), est.density)
	total := est.cdf[len(est.cdf)-1]
	if !(total > 0) {
		return nil, errors.New("density estimate vanishes on the grid")
	}
	floats.Scale(1/total, est.cdf)
	est.cdf[len(est.cdf)-1] = 1

	// The cumulative sum at i is the mass of cells 0..i, the CDF
	// is interpolated through the right edges of the cells.
	dx := est.xs[1] - est.xs[0]
	est.edges = make([]float64, len(est.xs)+1)
	est.ecdf = make([]float64, len(est.xs)+1)
	est.edges[0] = est.xs[0] - dx/2
	for i, x := range est.xs {
		est.edges[i+1] = x + dx/2
		est.ecdf[i+1] = est.cdf[i]
	}
	if err := est.interp.Fit(est.edges, est.ecdf); err != nil {
		return nil, errors.Wrap(err, "cdf interpolation")
	}
	if err := est.pdf.Fit(est.xs, est.density); err != nil {
		return nil, errors.Wrap(err, "density interpolation")
	}

	log.Debugf("density estimate: n=%d, bandwidth=%g, grid=[%g, %g] (%d points)",
		est.n, h, lo, hi, len(est.xs))
	if err := est.CheckSupport(); err != nil {
		log.Warning(err)
	}
	return est, nil
}

// kernelDensity evaluates a Gaussian kernel density estimate with
// bandwidth h at every point of xs.
func kernelDensity(xs, samples []float64, h float64) []float64 {
	kde := &mstats.KDE{Sample: mstats.Sample{Xs: samples}, Kernel: mstats.GaussianKernel, Bandwidth: h}
	density := make([]float64, len(xs))
	for i, x := range xs {
		density[i] = kde.PDF(x)
	}
	return density
}

// Grid returns the grid points.
func (e *DensityEstimate) Grid() []float64 {
	return e.xs
}

// Densities returns the density at the grid points.
func (e *DensityEstimate) Densities() []float64 {
	return e.density
}

// CDFGrid returns the normalized cumulative sum of the density.
// The last value is exactly 1.
func (e *DensityEstimate) CDFGrid() []float64 {
	return e.cdf
}

// Bandwidth returns the adjusted kernel bandwidth.
func (e *DensityEstimate) Bandwidth() float64 {
	return e.bandwidth
}

// SampleRange returns the smallest and largest sample.
func (e *DensityEstimate) SampleRange() (float64, float64) {
	return e.min, e.max
}

// Bounds returns the extent of the estimate's domain.
func (e *DensityEstimate) Bounds() (float64, float64) {
	return e.edges[0], e.edges[len(e.edges)-1]
}

// Options returns the options the estimate was built with.
func (e *DensityEstimate) Options() Options {
	return e.opts
}

// Points returns (x, density) pairs.
func (e *DensityEstimate) Points() []Point {
	ps := make([]Point, len(e.xs))
	for i := range e.xs {
		ps[i] = Point{e.xs[i], e.density[i]}
	}
	return ps
}

// Mode returns the grid point with the highest density.
func (e *DensityEstimate) Mode() float64 {
	return e.xs[floats.MaxIdx(e.density)]
}

// PDF returns the density at x, linearly interpolated between grid
// points and 0 outside of the grid.
func (e *DensityEstimate) PDF(x float64) float64 {
	if math.IsNaN(x) {
		return math.NaN()
	}
	if x < e.xs[0] || x > e.xs[len(e.xs)-1] {
		return 0
	}
	return e.pdf.Predict(x)
}

// CDF returns the estimated P(X <= x). It is non-decreasing, 0 below
// the domain and 1 above it.
func (e *DensityEstimate) CDF(x float64) float64 {
	lo, hi := e.Bounds()
	switch {
	case math.IsNaN(x):
		return math.NaN()
	case x <= lo:
		return 0
	case x >= hi:
		return 1
	}
	return math.Max(0, math.Min(1, e.interp.Predict(x)))
}

// CCDF returns the estimated P(X > x).
func (e *DensityEstimate) CCDF(x float64) float64 {
	return 1 - e.CDF(x)
}

// Quantile returns the inverse of CDF, found by bisection on the
// domain of the estimate.
func (e *DensityEstimate) Quantile(p float64) float64 {
	lo, hi := e.Bounds()
	switch {
	case math.IsNaN(p) || p < 0 || p > 1:
		return math.NaN()
	case p == 0:
		return lo
	case p == 1:
		return hi
	}
	for hi-lo > 1e-12*(math.Abs(lo)+math.Abs(hi)) {
		mid := (lo + hi) / 2
		if mid == lo || mid == hi {
			break
		}
		if e.CDF(mid) < p {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

// Rand draws a value from the estimate by inversion.
func (e *DensityEstimate) Rand(rng *rand.Rand) float64 {
	return e.Quantile(rng.Float64())
}
