package optimize

import (
	"math"

	lbfgsb "github.com/idavydov/go-lbfgsb"
	"gonum.org/v1/gonum/diff/fd"
)

// LBFGSB is the limited memory BFGS minimizer with box constraints.
// The gradient is approximated by central finite differences.
type LBFGSB struct {
	BaseOptimizer
	dH         float64
	grad       []float64
	iterations int
	stopped    bool
}

// NewLBFGSB creates an L-BFGS-B optimizer.
func NewLBFGSB() (l *LBFGSB) {
	l = &LBFGSB{
		BaseOptimizer: newBaseOptimizer("lbfgsb"),
		dH:            1e-6,
	}
	return
}

// Logger is called by L-BFGS-B after every iteration.
func (l *LBFGSB) Logger(info *lbfgsb.OptimizationIterationInformation) {
	l.i = info.Iteration
	l.PrintLine(info.F, info.X)
	if l.i >= l.iterations || l.signalled() {
		// the driver has no iteration limit, a zero gradient
		// makes it stop at the next evaluation
		l.stopped = true
	}
}

func (l *LBFGSB) EvaluateFunction(x []float64) float64 {
	if l.stopped {
		return l.minF
	}
	return l.evaluate(x)
}

func (l *LBFGSB) EvaluateGradient(x []float64) (grad []float64) {
	if l.grad == nil || len(l.grad) != len(x) {
		l.grad = make([]float64, len(x))
	}
	grad = l.grad
	if l.stopped {
		for i := range grad {
			grad[i] = 0
		}
		return
	}
	fd.Gradient(grad, l.evaluate, x, &fd.Settings{
		Formula: fd.Central,
		Step:    l.dH,
	})
	for i, g := range grad {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			grad[i] = 0
		}
	}
	return
}

func (l *LBFGSB) Run(iterations int) {
	l.reset()
	l.stopped = false
	l.iterations = iterations
	l.PrintHeader()
	if len(l.parameters) == 0 || iterations <= 0 {
		l.evaluateOnly(len(l.parameters) == 0)
		return
	}

	// bounds in scaled coordinates, slightly inside to keep
	// finite differences feasible
	bounds := make([][2]float64, len(l.parameters))
	for i, par := range l.parameters {
		bounds[i][0] = par.GetMin()/par.Step() + l.dH*10
		bounds[i][1] = par.GetMax()/par.Step() - l.dH*10
	}

	opt := new(lbfgsb.Lbfgsb)
	opt.SetApproximationSize(10)
	opt.SetFTolerance(1e-12)
	opt.SetGTolerance(1e-9)
	opt.SetBounds(bounds)
	opt.SetLogger(l.Logger)

	_, exitStatus := opt.Minimize(l, l.parameters.Scaled(nil))
	log.Debugf("Exit status: %v", exitStatus)

	switch {
	case l.status != "":
	case l.stopped:
		l.status = "iteration limit"
	case exitStatus.Code == lbfgsb.SUCCESS:
		l.converged = true
	default:
		l.status = exitStatus.Message
	}
	l.finish()
}
