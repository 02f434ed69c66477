package empirical

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/pkg/errors"

	"bitbucket.org/Davydov/lprcorr/lpr"
)

// InsufficientSupportError reports that the domain of a density
// estimate does not extend far enough past the sample range: the tail
// mass beyond the sample extreme is below the tolerance, so the
// corrected distribution saturates to exactly 0 or 1 there. It is a
// warning; the estimate remains usable.
type InsufficientSupportError struct {
	// Tail is the side of the sample range which is affected.
	Tail lpr.Tail
	// X is the sample extreme.
	X float64
	// Mass is the estimated probability beyond X.
	Mass      float64
	Tolerance float64
}

func (e *InsufficientSupportError) Error() string {
	return fmt.Sprintf("insufficient support in the %v tail: mass beyond %g is %g < %g, increase cut",
		e.Tail, e.X, e.Mass, e.Tolerance)
}

// CheckSupport returns an *InsufficientSupportError if the estimated
// mass below the smallest sample or above the largest sample is less
// than the Tolerance option.
func (e *DensityEstimate) CheckSupport() error {
	tol := e.opts.Tolerance
	if m := e.CDF(e.min); m < tol {
		return &InsufficientSupportError{Tail: lpr.Left, X: e.min, Mass: m, Tolerance: tol}
	}
	if m := e.CCDF(e.max); m < tol {
		return &InsufficientSupportError{Tail: lpr.Right, X: e.max, Mass: m, Tolerance: tol}
	}
	return nil
}

// CorrectedCCDF returns inv_lpr(CCDF(x)), the right tail probability
// which is perceived as the estimated one.
func (e *DensityEstimate) CorrectedCCDF(x float64, params lpr.Params) float64 {
	return params.Invert(e.CCDF(x))
}

// CorrectedCDF returns the corrected distribution function for the
// given tail: inv_lpr(CDF(x)) for the left tail and
// 1 - inv_lpr(CCDF(x)) for the right tail.
func (e *DensityEstimate) CorrectedCDF(x float64, params lpr.Params, tail lpr.Tail) float64 {
	if tail == lpr.Left {
		return params.Invert(e.CDF(x))
	}
	return 1 - params.Invert(e.CCDF(x))
}

// correctedGrid returns the corrected CDF at the grid points.
func (e *DensityEstimate) correctedGrid(params lpr.Params, tail lpr.Tail) ([]float64, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	c := make([]float64, len(e.cdf))
	switch tail {
	case lpr.Left:
		params.InvertEach(e.cdf, c)
	case lpr.Right:
		for i, p := range e.cdf {
			c[i] = 1 - params.Invert(1-p)
		}
	default:
		return nil, errors.Errorf("unknown tail %v", tail)
	}
	return c, nil
}

// CorrectedWeights returns the probability of every grid point under
// the corrected distribution: the first differences of the corrected
// CDF grid with an implicit 0 before the first point. The weights are
// non-negative and sum to 1.
func (e *DensityEstimate) CorrectedWeights(params lpr.Params, tail lpr.Tail) ([]float64, error) {
	c, err := e.correctedGrid(params, tail)
	if err != nil {
		return nil, err
	}
	w := make([]float64, len(c))
	prev := 0.0
	for i, v := range c {
		// rounding in the transform must not produce negative mass
		w[i] = math.Max(0, v-prev)
		prev = math.Max(prev, v)
	}
	return w, nil
}

// CorrectedQuantile returns the quantile function of the corrected
// distribution.
func (e *DensityEstimate) CorrectedQuantile(params lpr.Params, tail lpr.Tail) (*WeightedQuantile, error) {
	w, err := e.CorrectedWeights(params, tail)
	if err != nil {
		return nil, errors.Wrapf(err, "corrected %v tail quantile", tail)
	}
	return NewWeightedQuantile(e.xs, w)
}

// CorrectedQuantileFunction is CorrectedQuantile in functional form.
func CorrectedQuantileFunction(est *DensityEstimate, alpha, beta float64, tail lpr.Tail) (func(float64) float64, error) {
	q, err := est.CorrectedQuantile(lpr.Params{Alpha: alpha, Beta: beta}, tail)
	if err != nil {
		return nil, err
	}
	return q.At, nil
}

// WeightedQuantile is the quantile function of weighted points,
// linearly interpolated between cumulative weights.
type WeightedQuantile struct {
	xs  []float64
	cum []float64
}

// NewWeightedQuantile creates a quantile function for points xs (in
// increasing order) with non-negative weights. The weights are
// normalized to sum to 1.
func NewWeightedQuantile(xs, weights []float64) (*WeightedQuantile, error) {
	if len(xs) != len(weights) {
		return nil, errors.Errorf("len(xs)=%d != len(weights)=%d", len(xs), len(weights))
	}
	if len(xs) == 0 {
		return nil, errors.New("no points")
	}
	cum := make([]float64, len(weights))
	sum := 0.0
	for i, w := range weights {
		if !(w >= 0) || math.IsInf(w, 0) {
			return nil, errors.Errorf("weight %d is invalid: %v", i, w)
		}
		if i > 0 && !(xs[i] > xs[i-1]) {
			return nil, errors.Errorf("points are not increasing at %d", i)
		}
		sum += w
		cum[i] = sum
	}
	if !(sum > 0) {
		return nil, errors.New("weights sum to zero")
	}
	for i := range cum {
		cum[i] /= sum
	}
	cum[len(cum)-1] = 1
	return &WeightedQuantile{xs: xs, cum: cum}, nil
}

// At returns the p-quantile. It is non-decreasing in p; p outside
// [0, 1] gives NaN.
func (q *WeightedQuantile) At(p float64) float64 {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return math.NaN()
	}
	i := sort.SearchFloat64s(q.cum, p)
	switch {
	case i == 0:
		return q.xs[0]
	case i == len(q.cum):
		return q.xs[len(q.xs)-1]
	}
	c0, c1 := q.cum[i-1], q.cum[i]
	t := (p - c0) / (c1 - c0)
	return q.xs[i-1] + t*(q.xs[i]-q.xs[i-1])
}

// AtEach returns At(ps[i]) for each i.
func (q *WeightedQuantile) AtEach(ps []float64) []float64 {
	res := make([]float64, len(ps))
	for i, p := range ps {
		res[i] = q.At(p)
	}
	return res
}

// Rand draws a value from the corrected distribution.
func (q *WeightedQuantile) Rand(rng *rand.Rand) float64 {
	return q.At(rng.Float64())
}

// Cumulative returns the normalized cumulative weights.
func (q *WeightedQuantile) Cumulative() []float64 {
	return q.cum
}
