package dist

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// Distribution is a continuous univariate distribution.
type Distribution interface {
	// CDF returns P(X <= x).
	CDF(x float64) float64
	// Quantile returns the inverse of CDF. p must be in [0, 1],
	// otherwise NaN is returned.
	Quantile(p float64) float64
	// Rand draws a random value using rng.
	Rand(rng *rand.Rand) float64
}

// Survivor is implemented by distributions that compute P(X > x)
// directly, keeping the precision of the right tail.
type Survivor interface {
	Survival(x float64) float64
}

// CCDF returns P(X > x) for d. It uses Survival if d has one.
func CCDF(d Distribution, x float64) float64 {
	if s, ok := d.(Survivor); ok {
		return s.Survival(x)
	}
	return 1 - d.CDF(x)
}

// Sample draws n values from d.
func Sample(d Distribution, n int, rng *rand.Rand) []float64 {
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = d.Rand(rng)
	}
	return xs
}

// inUnit checks that p is a probability.
func inUnit(p float64) bool {
	return p >= 0 && p <= 1
}

// Normal is a normal distribution with mean Mu and standard deviation
// Sigma.
type Normal struct {
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
}

// StdNormal is the standard normal distribution.
var StdNormal = Normal{0, 1}

func (n Normal) distuv() distuv.Normal {
	return distuv.Normal{Mu: n.Mu, Sigma: n.Sigma}
}

func (n Normal) PDF(x float64) float64 {
	return n.distuv().Prob(x)
}

func (n Normal) CDF(x float64) float64 {
	return n.distuv().CDF(x)
}

func (n Normal) Survival(x float64) float64 {
	return n.distuv().Survival(x)
}

func (n Normal) Quantile(p float64) float64 {
	if !inUnit(p) {
		return math.NaN()
	}
	return n.distuv().Quantile(p)
}

func (n Normal) Rand(rng *rand.Rand) float64 {
	return rng.NormFloat64()*n.Sigma + n.Mu
}

// Mode of a normal distribution is its mean.
func (n Normal) Mode() float64 {
	return n.Mu
}
