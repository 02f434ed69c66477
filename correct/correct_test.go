package correct

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"

	"bitbucket.org/Davydov/lprcorr/dist"
	"bitbucket.org/Davydov/lprcorr/lpr"
	"bitbucket.org/Davydov/lprcorr/optimize"
)

var params = lpr.Params{Alpha: -0.3, Beta: 2}

func aeq(expect, got, tol float64) bool {
	return math.Abs(expect-got) <= tol
}

func TestNormal(tst *testing.T) {
	mu, sigma := 0.52, 0.025
	n, err := Normal(mu, sigma, params)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if n.Mu != mu-params.Alpha*sigma || n.Sigma != params.Beta*sigma {
		tst.Errorf("Wrong correction: %+v", n)
	}
	if !aeq(n.Mu, 0.5275, 1e-15) || !aeq(n.Sigma, 0.05, 1e-15) {
		tst.Errorf("Expected N(0.5275, 0.05), got %+v", n)
	}
	// the perceived tail is the original one
	for x := 0.4; x < 0.65; x += 0.01 {
		got := params.Apply(dist.CCDF(n, x))
		want := dist.CCDF(dist.Normal{Mu: mu, Sigma: sigma}, x)
		if !aeq(want, got, 1e-12) {
			tst.Errorf("Perceived tail at %v is %v, expected %v", x, got, want)
		}
	}
}

func TestNormalErrors(tst *testing.T) {
	var de *lpr.DomainError
	if _, err := Normal(0, 1, lpr.Params{Alpha: 0, Beta: 0}); !errors.As(err, &de) || de.Param != "beta" {
		tst.Error("Expected a beta DomainError, got", err)
	}
	if _, err := Normal(0, 0, params); !errors.As(err, &de) || de.Param != "sigma" {
		tst.Error("Expected a sigma DomainError, got", err)
	}
	if _, err := Normal(math.Inf(1), 1, params); !errors.As(err, &de) || de.Param != "mu" {
		tst.Error("Expected a mu DomainError, got", err)
	}
}

func TestTailNormal(tst *testing.T) {
	base := dist.Normal{Mu: 0.52, Sigma: 0.025}
	right, err := Tail(base, params, lpr.Right)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	left, err := Tail(base, params, lpr.Left)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	closed, err := Normal(base.Mu, base.Sigma, params)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	leftClosed := dist.Normal{Mu: base.Mu + params.Alpha*base.Sigma, Sigma: params.Beta * base.Sigma}
	for x := 0.35; x < 0.7; x += 0.01 {
		if got, want := right.CDF(x), closed.CDF(x); !aeq(want, got, 1e-12) {
			tst.Errorf("right CDF(%v) = %v, expected %v", x, got, want)
		}
		if got, want := right.CCDF(x), dist.CCDF(closed, x); !aeq(want, got, 1e-12) {
			tst.Errorf("right CCDF(%v) = %v, expected %v", x, got, want)
		}
		if got, want := left.CDF(x), leftClosed.CDF(x); !aeq(want, got, 1e-12) {
			tst.Errorf("left CDF(%v) = %v, expected %v", x, got, want)
		}
	}
	for p := 0.05; p < 1; p += 0.05 {
		if got, want := right.Quantile(p), closed.Quantile(p); !aeq(want, got, 1e-9) {
			tst.Errorf("right Quantile(%v) = %v, expected %v", p, got, want)
		}
		if got, want := left.Quantile(p), leftClosed.Quantile(p); !aeq(want, got, 1e-9) {
			tst.Errorf("left Quantile(%v) = %v, expected %v", p, got, want)
		}
	}
	if !math.IsNaN(right.Quantile(1.1)) {
		tst.Error("Quantile(1.1) should be NaN")
	}
}

func TestTailSkewNormal(tst *testing.T) {
	base := dist.SkewNormal{Xi: 0, Sigma: 1, Alpha: 3}
	c, err := Tail(base, lpr.Example, lpr.Right)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	for _, x := range []float64{-1, 0, 0.5, 1, 2} {
		if got, want := c.CCDF(x), lpr.Example.Invert(dist.CCDF(base, x)); !aeq(want, got, 1e-12) {
			tst.Errorf("CCDF(%v) = %v, expected %v", x, got, want)
		}
	}
	for _, p := range []float64{0.1, 0.3, 0.5, 0.7, 0.9} {
		if got := c.CDF(c.Quantile(p)); !aeq(p, got, 1e-8) {
			tst.Errorf("CDF(Quantile(%v)) = %v", p, got)
		}
	}
	if _, err := Tail(base, lpr.Params{Beta: -1}, lpr.Right); err == nil {
		tst.Error("Expected an error for beta=-1")
	}
	if _, err := Tail(base, lpr.Example, lpr.Tail(5)); err == nil {
		tst.Error("Expected an error for an unknown tail")
	}
}

// checkFit verifies the mode and the tail probability of a fit.
func checkFit(tst *testing.T, fit *Fit, mu, sigma float64) {
	target, err := lpr.InvLPR(dist.CCDF(dist.Normal{Mu: mu, Sigma: sigma}, 0.5), params.Alpha, params.Beta)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if !fit.Converged || fit.Warning != nil {
		tst.Errorf("mu=%v: fit did not converge: %v", mu, fit.Warning)
	}
	if fit.Mu != mu || fit.Sigma != sigma {
		tst.Errorf("fit for mu=%v, sigma=%v reports %v, %v", mu, sigma, fit.Mu, fit.Sigma)
	}
	if fit.SkewNormal.Sigma != params.Beta*sigma {
		tst.Errorf("mu=%v: wrong standard deviation %v", mu, fit.SkewNormal.Sigma)
	}
	if m := fit.SkewNormal.Mode(); !aeq(mu, m, 0.001) {
		tst.Errorf("mu=%v: mode is %v", mu, m)
	}
	if tail := dist.CCDF(fit.SkewNormal, 0.5); !aeq(target, tail, 0.005) {
		tst.Errorf("mu=%v: P(X > 0.5) = %v, expected %v", mu, tail, target)
	}
	if !aeq(target, fit.TargetTail, 1e-12) {
		tst.Errorf("mu=%v: wrong target %v, expected %v", mu, fit.TargetTail, target)
	}
}

func TestFitSkewNormal(tst *testing.T) {
	fit, err := FitSkewNormal(0.52, 0.025, params, DefaultOptions())
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	checkFit(tst, fit, 0.52, 0.025)
	// the perceived tail is larger than the normal one, so the
	// distribution is skewed to the right
	if fit.SkewNormal.Alpha <= 0 {
		tst.Error("Expected a positive shape, got", fit.SkewNormal.Alpha)
	}
	if fit.Optimizer.Method != DefaultMethod || fit.Optimizer.Evaluations == 0 {
		tst.Errorf("Unexpected optimizer summary: %+v", fit.Optimizer)
	}
}

func TestFitNotConverged(tst *testing.T) {
	opts := DefaultOptions()
	opts.Method = "none"
	fit, err := FitSkewNormal(0.52, 0.025, params, opts)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if fit.Converged || fit.Warning == nil {
		tst.Fatal("Expected a convergence warning")
	}
	if fit.Warning.Mu != 0.52 || fit.Warning.Objective != fit.Objective {
		tst.Errorf("Wrong warning: %v", fit.Warning)
	}
	if fit.Warning.Error() == "" {
		tst.Error("Empty warning message")
	}
}

func TestFitRestarts(tst *testing.T) {
	opts := DefaultOptions()
	opts.Method = "none"
	opts.Restarts = -1
	fixed, err := FitSkewNormal(0.52, 0.025, params, opts)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if fixed.Optimizer.Evaluations != 2 {
		tst.Error("Expected two fixed starts, got", fixed.Optimizer.Evaluations)
	}

	opts.Restarts = 3
	fit, err := FitSkewNormal(0.52, 0.025, params, opts)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if fit.Optimizer.Evaluations != 5 {
		tst.Error("Expected five starts, got", fit.Optimizer.Evaluations)
	}
	if fit.Objective > fixed.Objective {
		tst.Errorf("Random starts made the fit worse: %v > %v", fit.Objective, fixed.Objective)
	}
	sn := fit.SkewNormal
	if math.Abs(sn.Alpha) > MaxShape || math.Abs(sn.Xi-0.52) > xiRange*params.Beta*0.025 {
		tst.Errorf("Start out of the parameter bounds: %+v", sn)
	}
	again, err := FitSkewNormal(0.52, 0.025, params, opts)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if again.SkewNormal != fit.SkewNormal {
		tst.Errorf("Random starts are not reproducible: %+v != %+v", again.SkewNormal, fit.SkewNormal)
	}
}

func TestNeedsRestart(tst *testing.T) {
	a := &Fit{Objective: 1, Optimizer: optimize.Summary{Iterations: 3, Evaluations: 10}}
	b := &Fit{Objective: 0.5, Optimizer: optimize.Summary{Iterations: 2, Evaluations: 4, Status: optimize.StatusInterrupted}}
	if !needsRestart(a) {
		tst.Error("A failed fit should be restarted")
	}
	if needsRestart(b) || needsRestart(&Fit{Converged: true}) {
		tst.Error("An interrupted or converged fit should not be restarted")
	}
	best := better(a, b)
	if best != b || best.Optimizer.Iterations != 5 || best.Optimizer.Evaluations != 14 {
		tst.Errorf("Wrong best fit: %+v", best)
	}
	c := &Fit{Objective: 2, Optimizer: optimize.Summary{Status: optimize.StatusInterrupted}}
	if best := better(a, c); best != a || needsRestart(best) {
		tst.Error("An interrupt must stop the restarts:", best.Optimizer.Status)
	}
}

func TestFitErrors(tst *testing.T) {
	var de *lpr.DomainError
	if _, err := FitSkewNormal(0.5, 0.1, lpr.Params{Alpha: 0, Beta: 0}, DefaultOptions()); !errors.As(err, &de) {
		tst.Error("Expected DomainError, got", err)
	}
	if _, err := FitSkewNormal(0.5, -0.1, params, DefaultOptions()); !errors.As(err, &de) {
		tst.Error("Expected DomainError, got", err)
	}
	opts := DefaultOptions()
	opts.Method = "annealing"
	if _, err := FitSkewNormal(0.5, 0.1, params, opts); err == nil {
		tst.Error("Expected an error for an unknown method")
	}
}

func TestFitEach(tst *testing.T) {
	mus := []float64{0.55, 0.5, 0.52}
	sigmas := []float64{0.025, 0.025, 0.025}
	opts := DefaultOptions()
	opts.Workers = 2
	fits, err := FitEach(context.Background(), mus, sigmas, params, opts)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if len(fits) != len(mus) {
		tst.Fatalf("Expected %d fits, got %d", len(mus), len(fits))
	}
	for i, fit := range fits {
		checkFit(tst, fit, mus[i], sigmas[i])
	}
	if nc := NotConverged(fits); len(nc) != 0 {
		tst.Error("Not converged:", nc)
	}

	if _, err := FitEach(context.Background(), mus, sigmas[:2], params, opts); err == nil {
		tst.Error("Expected an error for different lengths")
	}
	_, err = FitEach(context.Background(), []float64{0.5, 0.5}, []float64{0.1, -1}, params, opts)
	var de *lpr.DomainError
	if !errors.As(err, &de) || de.Param != "sigma" {
		tst.Error("Expected a sigma DomainError, got", err)
	}
}

func TestSweep(tst *testing.T) {
	if testing.Short() {
		tst.Skip("skipping the sweep in short mode")
	}
	var mus, sigmas []float64
	for mu := 0.4; mu <= 0.65; mu += 0.025 {
		mus = append(mus, mu)
		sigmas = append(sigmas, 0.025)
	}
	fits, err := FitEach(context.Background(), mus, sigmas, params, DefaultOptions())
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	for i, fit := range fits {
		checkFit(tst, fit, mus[i], sigmas[i])
	}
}

// mapCache is a Cache in memory.
type mapCache struct {
	mu    sync.Mutex
	fits  map[string][]byte
	loads int
}

func (c *mapCache) Load(key []byte, v interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.fits[string(key)]
	if !ok {
		return false, nil
	}
	c.loads++
	return true, json.Unmarshal(b, v)
}

func (c *mapCache) Save(key []byte, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fits[string(key)] = b
	return nil
}

func TestFitEachCached(tst *testing.T) {
	cache := &mapCache{fits: make(map[string][]byte)}
	mus := []float64{0.5, 0.55}
	sigmas := []float64{0.025, 0.025}
	fits, err := FitEachCached(context.Background(), mus, sigmas, params, DefaultOptions(), cache)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if len(cache.fits) != 2 || cache.loads != 0 {
		tst.Fatalf("Wrong cache state: %d fits, %d loads", len(cache.fits), cache.loads)
	}
	again, err := FitEachCached(context.Background(), mus, sigmas, params, DefaultOptions(), cache)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if cache.loads != 2 {
		tst.Error("Fits were not taken from the cache:", cache.loads)
	}
	for i := range fits {
		if again[i].SkewNormal != fits[i].SkewNormal || again[i].Mode != fits[i].Mode {
			tst.Errorf("Cached fit %d differs: %+v != %+v", i, again[i], fits[i])
		}
	}

	// other options give other keys
	opts := DefaultOptions()
	opts.Method = "none"
	fits, err = FitEachCached(context.Background(), mus[:1], sigmas[:1], params, opts, cache)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if len(cache.fits) != 3 || fits[0].Converged {
		tst.Error("Wrong fit for method none")
	}
	fits, err = FitEachCached(context.Background(), mus[:1], sigmas[:1], params, opts, cache)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if fits[0].Warning == nil {
		tst.Error("Cached fit lost the convergence warning")
	}
	if nc := NotConverged(fits); len(nc) != 1 {
		tst.Error("Wrong not converged list:", nc)
	}
}

func TestTailNormalFar(tst *testing.T) {
	right, err := Tail(dist.StdNormal, lpr.Example, lpr.Right)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	for _, x := range []float64{7, 8, 9, 10} {
		// closed form of inv_lpr(P(Z > x))
		want := dist.CDFNormal((-x - lpr.Example.Alpha) / lpr.Example.Beta)
		if got := right.CCDF(x); math.Abs(got/want-1) > 1e-9 {
			tst.Errorf("CCDF(%v) = %v, expected %v", x, got, want)
		}
		if got := dist.CCDF(right, x); got != right.CCDF(x) {
			tst.Errorf("dist.CCDF(%v) = %v, expected %v", x, got, right.CCDF(x))
		}
	}
	if got := right.CCDF(7); math.Abs(got-4.26497e-4) > 1e-8 {
		tst.Error("Wrong tail probability at 7:", got)
	}
}
