package dist

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// number of Gauss-Legendre nodes used for the Owen's T integral.
const owensNodes = 64

// OwensT returns Owen's T function
//
//	T(h, a) = 1/(2π) ∫₀ᵃ exp(-h²(1+x²)/2) / (1+x²) dx.
//
// The integral is evaluated numerically for |a| <= 1, larger |a| are
// reduced to this case with the identity
//
//	T(h, a) = ½Φ(h)Q(ah) + ½Φ(ah)Q(h) - T(ah, 1/a),  h >= 0, a > 1,
//
// where Q = 1 - Φ.
func OwensT(h, a float64) float64 {
	switch {
	case a == 0:
		return 0
	case a < 0:
		return -OwensT(h, -a)
	case h == 0:
		return math.Atan(a) / (2 * math.Pi)
	}
	h = math.Abs(h)
	if a <= 1 {
		return owensT(h, a)
	}
	ah := a * h
	ph, pah := CDFNormal(h), CDFNormal(ah)
	qh, qah := CDFNormal(-h), CDFNormal(-ah)
	return 0.5*(ph*qah+pah*qh) - owensT(ah, 1/a)
}

// owensT integrates the defining integral directly.
func owensT(h, a float64) float64 {
	hh := h * h / 2
	f := func(x float64) float64 {
		y := 1 + x*x
		return math.Exp(-hh*y) / y
	}
	return quad.Fixed(f, 0, a, owensNodes, nil, 0) / (2 * math.Pi)
}
