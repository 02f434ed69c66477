package optimize

import "github.com/pkg/errors"

// Methods lists the names accepted by NewOptimizer.
var Methods = []string{"simplex", "neldermead", "bfgs", "lbfgsb", "none"}

// NewOptimizer returns an optimizer by method name.
func NewOptimizer(method string) (Optimizer, error) {
	switch method {
	case "simplex":
		return NewDS(), nil
	case "neldermead":
		return NewNelderMead(), nil
	case "bfgs":
		return NewBFGS(), nil
	case "lbfgsb":
		return NewLBFGSB(), nil
	case "none":
		return NewNone(), nil
	}
	return nil, errors.Errorf("unknown optimization method: %s", method)
}
