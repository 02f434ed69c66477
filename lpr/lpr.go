/*
Package lpr implements the linear-in-probit (LPR) probability
transform.

LPR models how a probability p is perceived: the perceived value is
linear in probit space,

	lpr(p) = Φ(α + β·Φ⁻¹(p))

and the inverse transform maps a desired perceived probability back
to the value which has to be displayed,

	inv_lpr(p) = Φ((Φ⁻¹(p) - α) / β).
*/
package lpr

import (
	"math"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("lpr")

// Params are the parameters of the linear-in-probit transform.
type Params struct {
	// Alpha is the intercept (bias) in probit space.
	Alpha float64 `json:"alpha" yaml:"alpha"`
	// Beta is the slope (scale) in probit space, Beta > 0.
	Beta float64 `json:"beta" yaml:"beta"`
}

// Example holds the parameter values used in the demonstrations.
var Example = Params{Alpha: -0.33, Beta: 2}

// Identity is the transform which leaves probabilities unchanged.
var Identity = Params{Alpha: 0, Beta: 1}

// NewParams creates validated transform parameters.
func NewParams(alpha, beta float64) (Params, error) {
	p := Params{Alpha: alpha, Beta: beta}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate returns a *DomainError if the parameters do not define a
// transform.
func (p Params) Validate() error {
	if math.IsNaN(p.Alpha) || math.IsInf(p.Alpha, 0) {
		return &DomainError{Param: "alpha", Value: p.Alpha, Reason: "must be finite"}
	}
	if math.IsNaN(p.Beta) || math.IsInf(p.Beta, 0) {
		return &DomainError{Param: "beta", Value: p.Beta, Reason: "must be finite"}
	}
	if p.Beta <= 0 {
		return &DomainError{Param: "beta", Value: p.Beta, Reason: "must be > 0"}
	}
	return nil
}

// Apply returns the perceived probability lpr(x). The parameters are
// not checked, and values of x outside [0, 1] give NaN. x of exactly
// 0 or 1 is mapped to 0 or 1. Near 1 the result saturates: once
// alpha + beta·Φ⁻¹(x) exceeds about 8.3, lpr(x) rounds to exactly 1
// and Invert cannot recover x.
func (p Params) Apply(x float64) float64 {
	return Phi(p.Alpha + p.Beta*Probit(x))
}

// Invert returns inv_lpr(x), the probability which is perceived as
// x. The same conventions as for Apply hold, and Invert saturates to
// 1 once (Φ⁻¹(x) - alpha)/beta exceeds about 8.3. The lower tail does
// not saturate until Φ underflows.
func (p Params) Invert(x float64) float64 {
	return Phi((Probit(x) - p.Alpha) / p.Beta)
}

// ApplyEach returns Apply(xs[i]) for each i. If res is nil, a new
// slice is allocated.
func (p Params) ApplyEach(xs, res []float64) []float64 {
	if res == nil {
		res = make([]float64, len(xs))
	}
	for i, x := range xs {
		res[i] = p.Apply(x)
	}
	return res
}

// InvertEach returns Invert(xs[i]) for each i. If res is nil, a new
// slice is allocated.
func (p Params) InvertEach(xs, res []float64) []float64 {
	if res == nil {
		res = make([]float64, len(xs))
	}
	for i, x := range xs {
		res[i] = p.Invert(x)
	}
	return res
}

// LPR computes Φ(alpha + beta·Φ⁻¹(p)).
func LPR(p, alpha, beta float64) (float64, error) {
	par, err := checked(p, alpha, beta)
	if err != nil {
		return math.NaN(), err
	}
	return par.Apply(p), nil
}

// InvLPR computes Φ((Φ⁻¹(p) - alpha) / beta). For any valid alpha and
// beta InvLPR(LPR(p)) == p up to rounding.
func InvLPR(p, alpha, beta float64) (float64, error) {
	par, err := checked(p, alpha, beta)
	if err != nil {
		return math.NaN(), err
	}
	return par.Invert(p), nil
}

// checked validates both the parameters and the probability.
func checked(p, alpha, beta float64) (Params, error) {
	par := Params{Alpha: alpha, Beta: beta}
	if err := par.Validate(); err != nil {
		return par, err
	}
	if err := CheckProbability(p); err != nil {
		return par, err
	}
	if p == 0 || p == 1 {
		log.Debugf("probability %v is on the boundary, probit is infinite", p)
	}
	return par, nil
}

// CheckProbability returns a *DomainError if p is not in [0, 1].
func CheckProbability(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return &DomainError{Param: "p", Value: p, Reason: "must be in [0, 1]"}
	}
	return nil
}
