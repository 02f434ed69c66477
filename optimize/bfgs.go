package optimize

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	opt "gonum.org/v1/gonum/optimize"
)

// BFGS is the gonum quasi-Newton minimizer. The gradient is
// approximated by central finite differences.
type BFGS struct {
	BaseOptimizer
	dH   float64
	gtol float64
}

// NewBFGS creates a BFGS optimizer.
func NewBFGS() (bfgs *BFGS) {
	bfgs = &BFGS{
		BaseOptimizer: newBaseOptimizer("bfgs"),
		dH:            1e-6,
		gtol:          1e-8,
	}
	return
}

// SetGradientThreshold sets the gradient norm (in scaled coordinates)
// below which the minimization stops.
func (b *BFGS) SetGradientThreshold(gtol float64) {
	b.gtol = gtol
}

// Grad computes the central difference gradient at the scaled point
// x.
func (b *BFGS) Grad(grad, x []float64) {
	fd.Gradient(grad, b.evaluate, x, &fd.Settings{
		Formula: fd.Central,
		Step:    b.dH,
	})
	for i, g := range grad {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			log.Debugf("non-finite gradient component %d at %v", i, x)
			grad[i] = 0
		}
	}
}

func (b *BFGS) Run(iterations int) {
	problem := opt.Problem{
		Func: b.evaluate,
		Grad: b.Grad,
	}
	settings := &opt.Settings{
		GradientThreshold: b.gtol,
		Converger: &opt.FunctionConverge{
			Absolute:   TINY * TINY,
			Relative:   TINY,
			Iterations: 20,
		},
	}
	b.minimizeGonum(problem, &opt.BFGS{}, settings, iterations)
}

// recorder reports gonum iterations and stops on signals.
type recorder struct {
	*BaseOptimizer
}

func (r recorder) Init() error {
	return nil
}

func (r recorder) Record(l *opt.Location, op opt.Operation, s *opt.Stats) error {
	if op&opt.MajorIteration != 0 {
		r.i = s.MajorIterations
		r.PrintLine(l.F, l.X)
	}
	if r.signalled() {
		return errors.New("exiting by signal")
	}
	return nil
}

// minimizeGonum runs a gonum method from the current parameter
// values.
func (o *BaseOptimizer) minimizeGonum(problem opt.Problem, method opt.Method, settings *opt.Settings, iterations int) {
	o.reset()
	o.PrintHeader()
	if len(o.parameters) == 0 || iterations <= 0 {
		o.evaluateOnly(len(o.parameters) == 0)
		return
	}
	settings.MajorIterations = iterations
	settings.Recorder = recorder{o}

	res, err := opt.Minimize(problem, o.parameters.Scaled(nil), settings, method)
	if res != nil {
		o.i = res.Stats.MajorIterations
		o.converged = gonumConverged(res.Status)
		if o.status == "" {
			o.status = res.Status.String()
		}
	}
	if err != nil {
		log.Debugf("%s: %v", o.method, err)
		if o.status == "" {
			o.status = err.Error()
		}
	}
	o.finish()
}

// gonumConverged returns true for the statuses which mean
// convergence rather than a limit or a failure.
func gonumConverged(s opt.Status) bool {
	switch s {
	case opt.Success, opt.FunctionThreshold, opt.FunctionConvergence,
		opt.GradientThreshold, opt.StepConvergence, opt.MethodConverge:
		return true
	}
	return false
}
