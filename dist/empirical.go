package dist

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Empirical is the empirical distribution of a sample. Its CDF is a
// step function, so it saturates at exactly 0 and 1 outside of the
// sample range; use package empirical for a smooth estimate.
type Empirical struct {
	xs []float64
}

// NewEmpirical creates an empirical distribution from a copy of xs.
func NewEmpirical(xs []float64) *Empirical {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	return &Empirical{xs: sorted}
}

// Xs returns the sorted sample.
func (e *Empirical) Xs() []float64 {
	return e.xs
}

func (e *Empirical) CDF(x float64) float64 {
	if len(e.xs) == 0 {
		return math.NaN()
	}
	// number of values <= x
	i := sort.Search(len(e.xs), func(i int) bool { return e.xs[i] > x })
	return float64(i) / float64(len(e.xs))
}

func (e *Empirical) Quantile(p float64) float64 {
	if !inUnit(p) || len(e.xs) == 0 {
		return math.NaN()
	}
	return stat.Quantile(p, stat.Empirical, e.xs, nil)
}

func (e *Empirical) Rand(rng *rand.Rand) float64 {
	return e.xs[rng.Intn(len(e.xs))]
}
