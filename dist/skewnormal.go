package dist

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/optimize"
)

// SkewNormal is a skew-normal distribution parameterized by the
// location Xi, the standard deviation Sigma and the shape Alpha.
//
// The usual scale parameter is derived from Sigma:
//
//	δ = α / sqrt(1 + α²)
//	ω = σ / sqrt(1 - 2δ²/π)
type SkewNormal struct {
	Xi    float64 `json:"xi"`
	Sigma float64 `json:"sigma"`
	Alpha float64 `json:"alphaSN"`
}

// Delta returns α / sqrt(1 + α²).
func (s SkewNormal) Delta() float64 {
	return s.Alpha / math.Sqrt(1+s.Alpha*s.Alpha)
}

// Omega returns the scale parameter.
func (s SkewNormal) Omega() float64 {
	d := s.Delta()
	return s.Sigma / math.Sqrt(1-2*d*d/math.Pi)
}

// Mean returns the mean of the distribution.
func (s SkewNormal) Mean() float64 {
	return s.Xi + s.Omega()*s.Delta()*math.Sqrt(2/math.Pi)
}

// standardize returns (x - ξ)/ω and ω.
func (s SkewNormal) standardize(x float64) (float64, float64) {
	omega := s.Omega()
	return (x - s.Xi) / omega, omega
}

func (s SkewNormal) PDF(x float64) float64 {
	z, omega := s.standardize(x)
	return 2 / omega * PDFNormal(z) * CDFNormal(s.Alpha*z)
}

// LogPDF returns the logarithm of the density at x.
func (s SkewNormal) LogPDF(x float64) float64 {
	z, omega := s.standardize(x)
	return math.Ln2 - math.Log(omega) - z*z/2 - logSqrt2Pi + logCDFNormal(s.Alpha*z)
}

// dLogPDF returns the derivative of LogPDF at x.
func (s SkewNormal) dLogPDF(x float64) float64 {
	z, omega := s.standardize(x)
	return (-z + s.Alpha*millsRatio(s.Alpha*z)) / omega
}

func (s SkewNormal) CDF(x float64) float64 {
	z, _ := s.standardize(x)
	switch {
	case math.IsInf(z, -1):
		return 0
	case math.IsInf(z, +1):
		return 1
	}
	p := CDFNormal(z) - 2*OwensT(z, s.Alpha)
	// integration error must not leave [0, 1]
	return math.Max(0, math.Min(1, p))
}

// Survival returns P(X > x) as Φ(-z) + 2·T(z, α).
func (s SkewNormal) Survival(x float64) float64 {
	z, _ := s.standardize(x)
	switch {
	case math.IsInf(z, -1):
		return 1
	case math.IsInf(z, +1):
		return 0
	}
	p := CDFNormal(-z) + 2*OwensT(z, s.Alpha)
	return math.Max(0, math.Min(1, p))
}

// Quantile inverts CDF by bisection, starting from a bracket around
// the mean.
func (s SkewNormal) Quantile(p float64) float64 {
	switch {
	case !inUnit(p):
		return math.NaN()
	case p == 0:
		return math.Inf(-1)
	case p == 1:
		return math.Inf(+1)
	}
	f := func(x float64) float64 { return s.CDF(x) - p }
	mean := s.Mean()
	z := QuantileNormal(p)
	low, high := mean+(z-1)*s.Sigma, mean+(z+1)*s.Sigma
	low, high, ok := bracket(f, low, high)
	if !ok {
		log.Warningf("could not bracket quantile %v of %+v", p, s)
		return math.NaN()
	}
	x, err := bisect(f, low, high, 1e-14, 1e-12*s.Sigma)
	if err != nil {
		log.Warning(err)
		return math.NaN()
	}
	return x
}

// Median returns Quantile(0.5).
func (s SkewNormal) Median() float64 {
	return s.Quantile(0.5)
}

// Rand uses the representation ξ + ω(δ|U₀| + sqrt(1-δ²)U₁) with
// independent standard normal U₀ and U₁.
func (s SkewNormal) Rand(rng *rand.Rand) float64 {
	d := s.Delta()
	u0, u1 := rng.NormFloat64(), rng.NormFloat64()
	return s.Xi + s.Omega()*(d*math.Abs(u0)+math.Sqrt(1-d*d)*u1)
}

// Mode returns the value maximizing the density. There is no closed
// form, the density is maximized numerically starting at the median.
func (s SkewNormal) Mode() float64 {
	x, _ := s.FindMode(s.Median())
	return x
}

// FindMode maximizes the log-density starting at x0. If the optimizer
// fails, the best point found and the error are returned.
func (s SkewNormal) FindMode(x0 float64) (float64, error) {
	if s.Alpha == 0 {
		return s.Xi, nil
	}
	if math.IsNaN(x0) || math.IsInf(x0, 0) {
		x0 = s.Mean()
	}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return -s.LogPDF(x[0])
		},
		Grad: func(grad, x []float64) {
			grad[0] = -s.dLogPDF(x[0])
		},
	}
	settings := &optimize.Settings{
		MajorIterations:   modeIterations,
		GradientThreshold: 1e-10 / s.Omega(),
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-14,
			Iterations: 20,
		},
	}
	res, err := optimize.Minimize(problem, []float64{x0}, settings, &optimize.BFGS{})
	if res == nil || math.IsNaN(res.X[0]) {
		log.Debugf("mode search for %+v failed: %v", s, err)
		return x0, err
	}
	if err != nil {
		log.Debugf("mode search for %+v: %v (status %v)", s, err, res.Status)
	}
	return res.X[0], err
}

// modeIterations bounds the number of BFGS iterations in FindMode.
const modeIterations = 200
