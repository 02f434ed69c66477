package lpr

import (
	"math"

	"bitbucket.org/Davydov/lprcorr/dist"
)

// Phi is the standard normal cumulative distribution function.
func Phi(z float64) float64 {
	return dist.CDFNormal(z)
}

// Probit is the standard normal quantile function. Probit(0) is -Inf,
// Probit(1) is +Inf and p outside [0, 1] gives NaN.
func Probit(p float64) float64 {
	switch {
	case math.IsNaN(p) || p < 0 || p > 1:
		return math.NaN()
	case p == 0:
		return math.Inf(-1)
	case p == 1:
		return math.Inf(+1)
	}
	return dist.QuantileNormal(p)
}
