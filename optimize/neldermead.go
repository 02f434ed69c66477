package optimize

import (
	opt "gonum.org/v1/gonum/optimize"
)

// NelderMead is the gonum implementation of the simplex method. It
// differs from DS in the simplex update rules and has no restart.
type NelderMead struct {
	BaseOptimizer
	delta float64
	ftol  float64
	atol  float64
}

// NewNelderMead creates a gonum Nelder-Mead optimizer.
func NewNelderMead() *NelderMead {
	return &NelderMead{
		BaseOptimizer: newBaseOptimizer("neldermead"),
		delta:         1,
		ftol:          TINY,
		atol:          TINY * TINY,
	}
}

func (n *NelderMead) Run(iterations int) {
	problem := opt.Problem{
		Func: n.evaluate,
	}
	settings := &opt.Settings{
		Converger: &opt.FunctionConverge{
			Absolute:   n.atol,
			Relative:   n.ftol,
			Iterations: 50,
		},
	}
	n.minimizeGonum(problem, &opt.NelderMead{SimplexSize: n.delta}, settings, iterations)
}
