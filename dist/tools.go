// Package dist implements continuous distributions used by the
// probability correction: normal, skew-normal (parameterized by the
// standard deviation) and empirical.
package dist

import (
	"math"

	"github.com/gonum/mathext"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

var log = logging.MustGetLogger("dist")

// 1/sqrt(2*pi)
const invSqrt2Pi = 0.39894228040143267793994605993438186847585863116493465766592583

// log(sqrt(2*pi))
const logSqrt2Pi = 0.91893853320467274178032973640561763986139747363778341281715154

// below this value normal tail functions switch to asymptotic
// expansions.
const tailCutoff = -30

// QuantileNormal returns quantile for the standard normal
// distribution. prob must be in (0, 1).
func QuantileNormal(prob float64) float64 {
	return mathext.NormalQuantile(prob)
}

// CDFNormal returns the standard normal distribution function.
func CDFNormal(z float64) float64 {
	return 0.5 * math.Erfc(-z/math.Sqrt2)
}

// PDFNormal returns the standard normal density.
func PDFNormal(z float64) float64 {
	return math.Exp(-z*z/2) * invSqrt2Pi
}

// logCDFNormal returns log(Φ(z)) without underflow for very negative
// z.
func logCDFNormal(z float64) float64 {
	if z > tailCutoff {
		return math.Log(CDFNormal(z))
	}
	// Φ(z) ~ φ(z)/(-z) (1 - 1/z²)
	return -z*z/2 - logSqrt2Pi - math.Log(-z) + math.Log1p(-1/(z*z))
}

// millsRatio returns φ(z)/Φ(z).
func millsRatio(z float64) float64 {
	if z > tailCutoff {
		return PDFNormal(z) / CDFNormal(z)
	}
	return -z / (1 - 1/(z*z))
}

// bisect returns an x in [low, high] such that |f(x)| <= tolerance
// or the bracket has shrunk to xtol.
//
// f(low) and f(high) must have opposite signs.
func bisect(f func(float64) float64, low, high, tolerance, xtol float64) (float64, error) {
	flow, fhigh := f(low), f(high)
	if math.Abs(flow) <= tolerance {
		return low, nil
	}
	if math.Abs(fhigh) <= tolerance {
		return high, nil
	}
	if math.IsNaN(flow) || math.IsNaN(fhigh) || (flow < 0) == (fhigh < 0) {
		return math.NaN(), errors.Errorf("root of f is not bracketed by [%g, %g]: f(low)=%g, f(high)=%g", low, high, flow, fhigh)
	}
	for {
		mid := (high + low) / 2
		fmid := f(mid)
		if math.Abs(fmid) <= tolerance || high-low <= xtol || mid == high || mid == low {
			return mid, nil
		}
		if (fmid < 0) == (flow < 0) {
			low = mid
			flow = fmid
		} else {
			high = mid
		}
	}
}

// bracket widens [low, high] around a root of the non-decreasing
// function f. It gives up after a fixed number of doublings.
func bracket(f func(float64) float64, low, high float64) (float64, float64, bool) {
	const maxDoublings = 64
	for i := 0; f(low) > 0; i++ {
		if i == maxDoublings {
			return low, high, false
		}
		low -= high - low
	}
	for i := 0; f(high) < 0; i++ {
		if i == maxDoublings {
			return low, high, false
		}
		high += high - low
	}
	return low, high, true
}
