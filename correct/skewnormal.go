package correct

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"runtime"

	"github.com/pkg/errors"

	"bitbucket.org/Davydov/lprcorr/dist"
	"bitbucket.org/Davydov/lprcorr/lpr"
	"bitbucket.org/Davydov/lprcorr/optimize"
)

const (
	// DefaultScale multiplies the squared errors of the objective.
	DefaultScale = 10000
	// DefaultRef is the point at which the tail probability is
	// matched.
	DefaultRef = 0.5
	// DefaultIterations bounds the optimizer iterations per start.
	DefaultIterations = 1000
	// DefaultTolerance is the objective value below which a fit is
	// considered converged.
	DefaultTolerance = 1e-8
	// DefaultMethod is the optimization method.
	DefaultMethod = "simplex"
	// DefaultRestarts is the number of random starts tried after
	// both fixed starts failed.
	DefaultRestarts = 3
	// MaxShape bounds the absolute shape parameter of a fit.
	MaxShape = 50
	// xiRange bounds the location of a fit to the mode ± xiRange
	// standard deviations.
	xiRange = 20
)

// interruptSignals stop a running fit, which then returns the best
// point found.
var interruptSignals = []os.Signal{os.Interrupt}

// Options control the skew-normal fit.
type Options struct {
	// Method is an optimize method name.
	Method string `yaml:"method"`
	// Iterations bounds every optimizer run.
	Iterations int `yaml:"iterations"`
	// Scale multiplies the objective.
	Scale float64 `yaml:"scale"`
	// Ref is the reference point of the tail probability.
	Ref float64 `yaml:"ref"`
	// Tolerance is the largest objective value of a converged
	// fit.
	Tolerance float64 `yaml:"tolerance"`
	// Workers limits the number of concurrent fits in FitEach.
	Workers int `yaml:"workers"`
	// ReportPeriod is the optimizer report period, see
	// optimize.Optimizer.
	ReportPeriod int `yaml:"report"`
	// Restarts is the number of random starts, negative disables
	// them.
	Restarts int `yaml:"restarts"`
	// Seed initializes the random starts of every fit.
	Seed int64 `yaml:"seed"`
}

// DefaultOptions returns the default fit options.
func DefaultOptions() Options {
	return Options{
		Method:       DefaultMethod,
		Iterations:   DefaultIterations,
		Scale:        DefaultScale,
		Ref:          DefaultRef,
		Tolerance:    DefaultTolerance,
		Workers:      runtime.NumCPU(),
		ReportPeriod: 10,
		Restarts:     DefaultRestarts,
		Seed:         1,
	}
}

// withDefaults replaces zero values except Ref and Seed with
// defaults.
func (o Options) withDefaults() (Options, error) {
	if o.Method == "" {
		o.Method = DefaultMethod
	}
	if o.Iterations == 0 {
		o.Iterations = DefaultIterations
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Restarts == 0 {
		o.Restarts = DefaultRestarts
	}
	switch {
	case o.Iterations < 0:
		return o, errors.Errorf("iterations must be positive, got %d", o.Iterations)
	case !(o.Scale > 0) || math.IsInf(o.Scale, 0):
		return o, errors.Errorf("scale must be finite and > 0, got %v", o.Scale)
	case math.IsNaN(o.Ref) || math.IsInf(o.Ref, 0):
		return o, errors.Errorf("reference point must be finite, got %v", o.Ref)
	}
	if _, err := optimize.NewOptimizer(o.Method); err != nil {
		return o, err
	}
	return o, nil
}

// ConvergenceWarning is attached to a fit which did not reach the
// tolerance within the iteration budget. The fit is still the best
// point found.
type ConvergenceWarning struct {
	Mu, Sigma  float64
	Objective  float64
	Tolerance  float64
	Iterations int
	Status     string
}

func (w *ConvergenceWarning) Error() string {
	return fmt.Sprintf("skew-normal fit for mu=%g, sigma=%g did not converge: objective %g > %g after %d iterations (%s)",
		w.Mu, w.Sigma, w.Objective, w.Tolerance, w.Iterations, w.Status)
}

// Fit is the result of FitSkewNormal.
type Fit struct {
	// Mu and Sigma are the mean and the standard deviation of the
	// original normal distribution.
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
	// SkewNormal is the fitted corrected distribution.
	SkewNormal dist.SkewNormal `json:"skewNormal"`
	// Mode is the mode of SkewNormal.
	Mode float64 `json:"mode"`
	// Ref is the reference point, Tail = P*(X > Ref) and
	// TargetTail = inv_lpr(P(X > Ref)).
	Ref        float64 `json:"ref"`
	Tail       float64 `json:"tail"`
	TargetTail float64 `json:"targetTail"`
	// Objective is the minimized objective value.
	Objective float64 `json:"objective"`
	Converged bool    `json:"converged"`
	// Warning is set if the fit did not converge.
	Warning   *ConvergenceWarning `json:"-"`
	Optimizer optimize.Summary    `json:"optimizer"`
}

// skewFit is the objective of the fit: the scaled squared errors of
// the mode and the tail probability of a skew-normal distribution
// with a fixed standard deviation.
type skewFit struct {
	xi, shape float64
	sigma     float64
	mode      float64
	target    float64
	ref       float64
	scale     float64
	pars      optimize.FloatParameters
	// previous mode, the starting point of the next mode search
	lastMode float64
}

func newSkewFit(mode, sigma, target, ref, scale float64) *skewFit {
	f := &skewFit{
		sigma:    sigma,
		mode:     mode,
		target:   target,
		ref:      ref,
		scale:    scale,
		lastMode: math.NaN(),
	}
	xi := optimize.NewBasicFloatParameter(&f.xi, "xi")
	xi.SetStep(sigma)
	xi.SetMin(mode - xiRange*sigma)
	xi.SetMax(mode + xiRange*sigma)
	f.pars.Append(xi)
	shape := optimize.NewBasicFloatParameter(&f.shape, "alphaSN")
	shape.SetMin(-MaxShape)
	shape.SetMax(MaxShape)
	f.pars.Append(shape)
	return f
}

func (f *skewFit) GetFloatParameters() optimize.FloatParameters {
	return f.pars
}

func (f *skewFit) skewNormal() dist.SkewNormal {
	return dist.SkewNormal{Xi: f.xi, Sigma: f.sigma, Alpha: f.shape}
}

// findMode searches the mode starting at the previous one. The
// skew-normal density is log-concave, so the starting point only
// changes the number of iterations.
func (f *skewFit) findMode(sn dist.SkewNormal) float64 {
	x0 := f.lastMode
	if math.IsNaN(x0) {
		x0 = sn.Median()
	}
	m, _ := sn.FindMode(x0)
	f.lastMode = m
	return m
}

func (f *skewFit) evaluate(sn dist.SkewNormal) (mode, tail, obj float64) {
	mode = f.findMode(sn)
	tail = dist.CCDF(sn, f.ref)
	dm, dt := mode-f.mode, tail-f.target
	return mode, tail, f.scale * (dm*dm + dt*dt)
}

func (f *skewFit) Objective() float64 {
	_, _, obj := f.evaluate(f.skewNormal())
	return obj
}

// FitSkewNormal finds a skew-normal distribution with standard
// deviation beta·sigma, the mode mu and the tail probability above
// Ref equal to inv_lpr of the tail probability of N(mu, sigma).
//
// The search starts at xi = mu - alpha·sigma with the shape of the
// sign of mu - xi. If that does not converge, it is repeated with
// the opposite shape sign and then from opts.Restarts random points,
// keeping the best fit. An interrupt stops the search. A fit which
// did not converge is returned with Converged=false and a Warning.
// Errors are returned for invalid input only.
func FitSkewNormal(mu, sigma float64, params lpr.Params, opts Options) (*Fit, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := checkMoments(mu, sigma); err != nil {
		return nil, err
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	target := params.Invert(dist.CCDF(dist.Normal{Mu: mu, Sigma: sigma}, opts.Ref))
	sigmaT := params.Beta * sigma
	xi0 := mu - params.Alpha*sigma
	shape0 := 1.0
	if mu-xi0 < 0 {
		shape0 = -1
	}
	log.Debugf("fitting mu=%g, sigma=%g: target tail %g, xi0=%g, shape0=%g", mu, sigma, target, xi0, shape0)

	fit, err := fitFrom(mu, sigmaT, target, opts, startAt(xi0, shape0))
	if err != nil {
		return nil, err
	}
	starts := []func(*skewFit){startAt(xi0, -shape0)}
	if opts.Restarts > 0 {
		rng := rand.New(rand.NewSource(opts.Seed))
		for i := 0; i < opts.Restarts; i++ {
			starts = append(starts, startRandom(rng))
		}
	}
	for i, start := range starts {
		if !needsRestart(fit) {
			break
		}
		log.Debugf("restarting mu=%g, start %d", mu, i+2)
		alt, err := fitFrom(mu, sigmaT, target, opts, start)
		if err != nil {
			return nil, err
		}
		fit = better(fit, alt)
	}
	fit.Mu, fit.Sigma = mu, sigma
	if !fit.Converged {
		fit.Warning = fit.warning(opts.Tolerance)
		log.Warning(fit.Warning)
	}
	return fit, nil
}

// needsRestart reports whether another start should be tried.
func needsRestart(f *Fit) bool {
	return !f.Converged && f.Optimizer.Status != optimize.StatusInterrupted
}

// better returns the fit with the smaller objective, counting the
// work of both.
func better(a, b *Fit) *Fit {
	iters := a.Optimizer.Iterations + b.Optimizer.Iterations
	evals := a.Optimizer.Evaluations + b.Optimizer.Evaluations
	best := a
	if b.Objective < a.Objective {
		best = b
	}
	// an interrupt ends the search whichever fit is kept
	if b.Optimizer.Status == optimize.StatusInterrupted {
		best.Optimizer.Status = optimize.StatusInterrupted
	}
	best.Optimizer.Iterations, best.Optimizer.Evaluations = iters, evals
	return best
}

// startAt starts a fit at the given point.
func startAt(xi, shape float64) func(*skewFit) {
	return func(f *skewFit) {
		f.xi, f.shape = xi, shape
	}
}

// startRandom starts a fit at a random point within the parameter
// bounds.
func startRandom(rng *rand.Rand) func(*skewFit) {
	return func(f *skewFit) {
		f.pars.Randomize(rng)
	}
}

func (f *Fit) warning(tolerance float64) *ConvergenceWarning {
	return &ConvergenceWarning{
		Mu:         f.Mu,
		Sigma:      f.Sigma,
		Objective:  f.Objective,
		Tolerance:  tolerance,
		Iterations: f.Optimizer.Iterations,
		Status:     f.Optimizer.Status,
	}
}

// fitFrom runs one optimization from the point set by start.
func fitFrom(mode, sigma, target float64, opts Options, start func(*skewFit)) (*Fit, error) {
	f := newSkewFit(mode, sigma, target, opts.Ref, opts.Scale)
	start(f)

	o, err := optimize.NewOptimizer(opts.Method)
	if err != nil {
		return nil, err
	}
	o.SetReportPeriod(opts.ReportPeriod)
	o.SetOptimizable(f)
	o.WatchSignals(interruptSignals...)
	o.Run(opts.Iterations)
	o.StopWatching()
	s := o.Summary()

	// the optimizer leaves the parameters at the best point
	sn := f.skewNormal()
	f.lastMode = math.NaN()
	m, tail, obj := f.evaluate(sn)
	return &Fit{
		SkewNormal: sn,
		Mode:       m,
		Ref:        opts.Ref,
		Tail:       tail,
		TargetTail: target,
		Objective:  obj,
		Converged:  obj <= opts.Tolerance,
		Optimizer:  s,
	}, nil
}
