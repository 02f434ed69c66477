/*
Package correct computes distributions whose displayed tail
probabilities are perceived as the true ones.

For a normal distribution the correction has a closed form (Normal).
Any distribution with a quantile function can be corrected through
Tail, and a skew-normal distribution keeping the mode of the original
one is fitted numerically by FitSkewNormal.
*/
package correct

import (
	"math"
	"math/rand"

	"github.com/op/go-logging"

	"bitbucket.org/Davydov/lprcorr/dist"
	"bitbucket.org/Davydov/lprcorr/lpr"
)

var log = logging.MustGetLogger("correct")

// Normal returns the corrected distribution of N(mu, sigma): the
// normal distribution with mean mu - alpha·sigma and standard
// deviation beta·sigma. Its right tail probabilities are perceived
// as those of N(mu, sigma).
func Normal(mu, sigma float64, params lpr.Params) (dist.Normal, error) {
	if err := params.Validate(); err != nil {
		return dist.Normal{}, err
	}
	if err := checkMoments(mu, sigma); err != nil {
		return dist.Normal{}, err
	}
	return dist.Normal{
		Mu:    mu - params.Alpha*sigma,
		Sigma: params.Beta * sigma,
	}, nil
}

func checkMoments(mu, sigma float64) error {
	if math.IsNaN(mu) || math.IsInf(mu, 0) {
		return &lpr.DomainError{Param: "mu", Value: mu, Reason: "must be finite"}
	}
	if !(sigma > 0) || math.IsInf(sigma, 0) {
		return &lpr.DomainError{Param: "sigma", Value: sigma, Reason: "must be finite and > 0"}
	}
	return nil
}

// Corrected is a distribution corrected in one tail. For the right
// tail P*(X > x) = inv_lpr(P(X > x)), for the left tail
// P*(X <= x) = inv_lpr(P(X <= x)).
type Corrected struct {
	Base   dist.Distribution
	Params lpr.Params
	Tail   lpr.Tail
}

// Tail returns the correction of d in the given tail.
func Tail(d dist.Distribution, params lpr.Params, tail lpr.Tail) (*Corrected, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if tail != lpr.Left && tail != lpr.Right {
		return nil, &lpr.DomainError{Param: "tail", Value: float64(tail), Reason: "must be left or right"}
	}
	return &Corrected{Base: d, Params: params, Tail: tail}, nil
}

func (c *Corrected) CDF(x float64) float64 {
	if c.Tail == lpr.Left {
		return c.Params.Invert(c.Base.CDF(x))
	}
	return 1 - c.Params.Invert(dist.CCDF(c.Base, x))
}

// CCDF returns P*(X > x).
func (c *Corrected) CCDF(x float64) float64 {
	if c.Tail == lpr.Left {
		return 1 - c.Params.Invert(c.Base.CDF(x))
	}
	return c.Params.Invert(dist.CCDF(c.Base, x))
}

// Survival is CCDF, which does not lose the right tail.
func (c *Corrected) Survival(x float64) float64 {
	return c.CCDF(x)
}

// Quantile maps p back through the perception transform and the
// quantile function of the base distribution.
func (c *Corrected) Quantile(p float64) float64 {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return math.NaN()
	}
	if c.Tail == lpr.Left {
		return c.Base.Quantile(c.Params.Apply(p))
	}
	return c.Base.Quantile(1 - c.Params.Apply(1-p))
}

func (c *Corrected) Rand(rng *rand.Rand) float64 {
	return c.Quantile(rng.Float64())
}
