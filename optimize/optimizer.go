/*
Package optimize minimizes functions of named float parameters.

All the optimizers share the same workflow:

	opt, err := optimize.NewOptimizer("simplex")
	opt.SetOptimizable(f)
	opt.Run(1000)
	s := opt.Summary()

Every optimizer works in scaled coordinates (value divided by the
parameter step), never evaluates the function outside of the
parameter bounds, is bounded by the number of iterations and leaves
the parameters at the best point found.
*/
package optimize

import (
	"math"
	"os"
	"os/signal"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("optimize")

// StatusInterrupted is the Summary status of a run stopped by a
// watched signal.
const StatusInterrupted = "interrupted"

// Optimizable is a function to minimize.
type Optimizable interface {
	// GetFloatParameters returns the parameters the function
	// depends on.
	GetFloatParameters() FloatParameters
	// Objective computes the function at the current parameter
	// values.
	Objective() float64
}

// Optimizer minimizes an Optimizable.
type Optimizer interface {
	SetOptimizable(Optimizable)
	WatchSignals(...os.Signal)
	StopWatching()
	SetReportPeriod(period int)
	Run(iterations int)
	Summary() Summary
}

// Summary describes an optimizer run.
type Summary struct {
	// Method is the optimization method name.
	Method string `json:"method"`
	// Iterations is the number of iterations performed.
	Iterations int `json:"iterations"`
	// Evaluations is the number of objective function calls.
	Evaluations int `json:"evaluations"`
	// Value is the minimal objective value found.
	Value float64 `json:"value"`
	// Parameters are the parameter values at the minimum.
	Parameters map[string]float64 `json:"parameters"`
	// Converged is true if a convergence criterion was met
	// before the iteration limit.
	Converged bool `json:"converged"`
	// Status is a human readable termination reason.
	Status string `json:"status"`
}

// BaseOptimizer holds the state and the bookkeeping common to all
// optimizers.
type BaseOptimizer struct {
	Optimizable
	parameters FloatParameters
	method     string
	i          int
	calls      int
	minF       float64
	minPar     []float64
	converged  bool
	status     string
	repPeriod  int
	sig        chan os.Signal
	values     []float64
}

func newBaseOptimizer(method string) BaseOptimizer {
	return BaseOptimizer{
		method:    method,
		repPeriod: 10,
		minF:      math.Inf(+1),
	}
}

func (o *BaseOptimizer) SetOptimizable(opt Optimizable) {
	o.Optimizable = opt
	o.parameters = opt.GetFloatParameters()
	o.minF = math.Inf(+1)
	o.minPar = nil
}

// WatchSignals stops the optimization early when one of sigs is
// received.
func (o *BaseOptimizer) WatchSignals(sigs ...os.Signal) {
	o.sig = make(chan os.Signal, 1)
	signal.Notify(o.sig, sigs...)
}

// StopWatching undoes WatchSignals.
func (o *BaseOptimizer) StopWatching() {
	if o.sig != nil {
		signal.Stop(o.sig)
		o.sig = nil
	}
}

func (o *BaseOptimizer) SetReportPeriod(period int) {
	o.repPeriod = period
}

// reset clears the state of a previous run.
func (o *BaseOptimizer) reset() {
	o.i = 0
	o.calls = 0
	o.converged = false
	o.status = ""
	o.minF = math.Inf(+1)
	o.minPar = nil
}

// signalled returns true if a watched signal was received.
func (o *BaseOptimizer) signalled() bool {
	select {
	case s := <-o.sig:
		log.Warningf("Received signal %v, exiting.", s)
		o.status = StatusInterrupted
		return true
	default:
	}
	return false
}

// evaluate computes the objective at the scaled point x. Points
// outside of the parameter bounds are +Inf. The best point is
// remembered.
func (o *BaseOptimizer) evaluate(x []float64) float64 {
	o.values = o.parameters.Unscale(x, o.values)
	if !o.parameters.ValuesInRange(o.values) {
		return math.Inf(+1)
	}
	o.parameters.SetValues(o.values)
	f := o.Objective()
	o.calls++
	if math.IsNaN(f) {
		return math.Inf(+1)
	}
	if f < o.minF {
		o.minF = f
		o.minPar = o.parameters.Values(o.minPar)
	}
	return f
}

// evaluateOnly computes the objective at the current point and
// finishes the run.
func (o *BaseOptimizer) evaluateOnly(converged bool) {
	o.evaluate(o.parameters.Scaled(nil))
	o.converged = converged
	if !converged {
		o.status = "not optimized"
	}
	o.finish()
}

func (o *BaseOptimizer) PrintHeader() {
	log.Debugf("iteration\tobjective\t%s", o.parameters.NamesString())
}

// PrintLine reports the current iteration every repPeriod
// iterations. x is in scaled coordinates.
func (o *BaseOptimizer) PrintLine(f float64, x []float64) {
	if o.repPeriod > 0 && o.i%o.repPeriod == 0 {
		log.Debugf("%d\t%g\t%v", o.i, f, o.parameters.Unscale(x, nil))
	}
}

// finish restores the best parameter values and logs the result.
func (o *BaseOptimizer) finish() {
	if o.minPar != nil {
		o.parameters.SetValues(o.minPar)
	}
	if o.status == "" {
		if o.converged {
			o.status = "converged"
		} else {
			o.status = "iteration limit"
		}
	}
	if !o.converged {
		log.Infof("%s did not converge after %d iterations (%s)", o.method, o.i, o.status)
	}
	log.Debugf("Finished %s: f=%g, %d evaluations", o.method, o.minF, o.calls)
	log.Debugf("Parameter  names: %v", o.parameters.NamesString())
	log.Debugf("Parameter values: %v", o.parameters.ValuesString())
}

func (o *BaseOptimizer) Summary() Summary {
	return Summary{
		Method:      o.method,
		Iterations:  o.i,
		Evaluations: o.calls,
		Value:       o.minF,
		Parameters:  o.parameters.Map(),
		Converged:   o.converged,
		Status:      o.status,
	}
}
