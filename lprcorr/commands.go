package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"

	"bitbucket.org/Davydov/lprcorr/checkpoint"
	"bitbucket.org/Davydov/lprcorr/correct"
	"bitbucket.org/Davydov/lprcorr/dist"
	"bitbucket.org/Davydov/lprcorr/empirical"
	"bitbucket.org/Davydov/lprcorr/figure"
	"bitbucket.org/Davydov/lprcorr/lpr"
	"bitbucket.org/Davydov/lprcorr/optimize"
)

// quantileProbs are the probabilities of the corrected quantile
// table.
var quantileProbs = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 0.75, 0.9, 0.95, 0.975, 0.99}

// transform prints lpr and inv_lpr of every probability.
func transform(w io.Writer, params lpr.Params, ps []float64) ([]TransformRow, error) {
	rows := make([]TransformRow, 0, len(ps))
	fmt.Fprintln(w, "p\tlpr\tinv_lpr")
	for _, p := range ps {
		if err := lpr.CheckProbability(p); err != nil {
			return nil, err
		}
		r := TransformRow{P: p, LPR: params.Apply(p), InvLPR: params.Invert(p)}
		fmt.Fprintf(w, "%g\t%g\t%g\n", r.P, r.LPR, r.InvLPR)
		rows = append(rows, r)
	}
	return rows, nil
}

// normal prints the closed form correction of N(mu, sigma).
func normal(w io.Writer, params lpr.Params, mu, sigma float64) (*NormalSummary, error) {
	c, err := correct.Normal(mu, sigma, params)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(w, "mu\tsigma")
	fmt.Fprintf(w, "%g\t%g\n", c.Mu, c.Sigma)
	return &NormalSummary{
		Original:  dist.Normal{Mu: mu, Sigma: sigma},
		Corrected: c,
	}, nil
}

func printFitHeader(w io.Writer) {
	fmt.Fprintln(w, "mu\tsigma\txi\tomega\talphaSN\tmode\ttail\ttarget\tobjective\tconverged")
}

func printFit(w io.Writer, f *correct.Fit) {
	sn := f.SkewNormal
	fmt.Fprintf(w, "%g\t%g\t%g\t%g\t%g\t%g\t%g\t%g\t%g\t%v\n",
		f.Mu, f.Sigma, sn.Xi, sn.Omega(), sn.Alpha, f.Mode, f.Tail, f.TargetTail, f.Objective, f.Converged)
}

// fit fits a single skew-normal distribution.
func fit(w io.Writer, s *settings, mu, sigma float64) (*correct.Fit, error) {
	f, err := correct.FitSkewNormal(mu, sigma, s.Params, s.Fit)
	if err != nil {
		return nil, err
	}
	printFitHeader(w)
	printFit(w, f)
	return f, nil
}

// modeRange returns from, from+step, ... up to to inclusive.
func modeRange(from, to, step float64) ([]float64, error) {
	if !(step > 0) || math.IsInf(step, 0) {
		return nil, errors.Errorf("step must be finite and > 0, got %v", step)
	}
	if !(to >= from) || math.IsInf(to-from, 0) {
		return nil, errors.Errorf("wrong range [%v, %v]", from, to)
	}
	n := int(math.Floor((to-from)/step+1e-9)) + 1
	mus := make([]float64, n)
	for i := range mus {
		mus[i] = from + float64(i)*step
	}
	return mus, nil
}

// runSweep fits skew-normal distributions for every mode of the
// range. It is cancelled by an interrupt. Fits are stored in the
// checkpoint file if it is set.
func runSweep(s *settings, mus []float64, sigma float64, checkpointFile string) ([]*correct.Fit, error) {
	sigmas := make([]float64, len(mus))
	for i := range sigmas {
		sigmas[i] = sigma
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	var cache correct.Cache
	if checkpointFile != "" {
		store, err := checkpoint.Open(checkpointFile)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		if n, err := store.Len(); err == nil && n > 0 {
			log.Noticef("Found %d stored values in the checkpoint", n)
		}
		cache = store
	}
	log.Noticef("Fitting %d skew-normal distributions", len(mus))
	return correct.FitEachCached(ctx, mus, sigmas, s.Params, s.Fit, cache)
}

// sweep fits skew-normal distributions over a range of modes.
func sweep(w io.Writer, s *settings, from, to, step, sigma float64, plotF string) (*SweepSummary, error) {
	mus, err := modeRange(from, to, step)
	if err != nil {
		return nil, err
	}
	fits, err := runSweep(s, mus, sigma, *checkpointF)
	if err != nil {
		return nil, err
	}
	printFitHeader(w)
	for _, f := range fits {
		printFit(w, f)
	}
	nc := correct.NotConverged(fits)
	if len(nc) > 0 {
		log.Warningf("%d of %d fits did not converge", len(nc), len(fits))
	}
	if plotF != "" {
		p, err := figure.Sweep(fits)
		if err != nil {
			return nil, err
		}
		if err := figure.Save(p, plotF); err != nil {
			return nil, err
		}
	}
	return &SweepSummary{Fits: fits, NotConverged: nc}, nil
}

// readSample reads whitespace separated numbers. Empty lines and
// lines starting with # are skipped.
func readSample(r io.Reader) ([]float64, error) {
	var xs []float64
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		t := strings.TrimSpace(scanner.Text())
		if t == "" || strings.HasPrefix(t, "#") {
			continue
		}
		v, err := optimize.ReadFloats(t)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		xs = append(xs, v...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(xs) == 0 {
		return nil, errors.New("empty sample")
	}
	return xs, nil
}

// loadSample reads the sample file or simulates a normal sample if
// fn is empty. The reference distribution is returned for simulated
// samples only.
func loadSample(fn string, n int, mu, sd float64, seed int64) ([]float64, dist.Distribution, error) {
	if fn != "" {
		f, err := os.Open(fn)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		xs, err := readSample(f)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "reading %s", fn)
		}
		log.Infof("Read %d values from %s", len(xs), fn)
		return xs, nil, nil
	}
	if n < 2 {
		return nil, nil, errors.Errorf("sample size must be at least 2, got %d", n)
	}
	if !(sd > 0) || math.IsInf(sd, 0) {
		return nil, nil, &lpr.DomainError{Param: "sd", Value: sd, Reason: "must be finite and > 0"}
	}
	ref := dist.Normal{Mu: mu, Sigma: sd}
	log.Infof("Simulating %d values from N(%g, %g)", n, mu, sd)
	rng := rand.New(rand.NewSource(seed))
	return dist.Sample(ref, n, rng), ref, nil
}

// summarize computes the sample statistics.
func summarize(xs []float64) (SampleSummary, error) {
	var s SampleSummary
	var err error
	s.N = len(xs)
	if s.Mean, err = stats.Mean(xs); err != nil {
		return s, err
	}
	if s.Median, err = stats.Median(xs); err != nil {
		return s, err
	}
	if s.StdDev, err = stats.StandardDeviationSample(xs); err != nil {
		return s, err
	}
	// order statistics of the sample itself
	e := dist.NewEmpirical(xs)
	sorted := e.Xs()
	s.Min, s.Max = sorted[0], sorted[len(sorted)-1]
	s.Q05, s.Q95 = e.Quantile(0.05), e.Quantile(0.95)
	return s, nil
}

// buildEstimate builds the density estimate of the sample and returns
// the support warning, if any.
func buildEstimate(s *settings, xs []float64) (*empirical.DensityEstimate, string, error) {
	opts, err := s.densityOptions()
	if err != nil {
		return nil, "", err
	}
	est, err := empirical.Build(xs, opts)
	if err != nil {
		return nil, "", err
	}
	log.Infof("Bandwidth=%g", est.Bandwidth())
	// Build has already logged the warning
	if err := est.CheckSupport(); err != nil {
		return est, err.Error(), nil
	}
	return est, "", nil
}

// empiricalCorrection prints the corrected probabilities of one tail
// and the corrected quantiles of a sample.
func empiricalCorrection(w io.Writer, s *settings, xs []float64, points int, tail lpr.Tail) (*EmpiricalSummary, error) {
	if points < 2 {
		return nil, errors.Errorf("number of points must be at least 2, got %d", points)
	}
	sample, err := summarize(xs)
	if err != nil {
		return nil, err
	}
	est, warning, err := buildEstimate(s, xs)
	if err != nil {
		return nil, err
	}
	sample.Bandwidth = est.Bandwidth()
	res := &EmpiricalSummary{Sample: sample, Support: warning, Side: tail.String()}

	lo, hi := est.SampleRange()
	switch tail {
	case lpr.Right:
		fmt.Fprintln(w, "x\tccdf\tcorrected")
	case lpr.Left:
		fmt.Fprintln(w, "x\tcdf\tcorrected")
	default:
		return nil, errors.Errorf("unknown tail %v", tail)
	}
	for _, x := range floats.Span(make([]float64, points), lo, hi) {
		r := TailRow{X: x}
		if tail == lpr.Left {
			r.P, r.Corrected = est.CDF(x), est.CorrectedCDF(x, s.Params, lpr.Left)
		} else {
			r.P, r.Corrected = est.CCDF(x), est.CorrectedCCDF(x, s.Params)
		}
		fmt.Fprintf(w, "%g\t%g\t%g\n", r.X, r.P, r.Corrected)
		res.Tail = append(res.Tail, r)
	}

	left, err := est.CorrectedQuantile(s.Params, lpr.Left)
	if err != nil {
		return nil, err
	}
	right, err := est.CorrectedQuantile(s.Params, lpr.Right)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "p\tleft\tright")
	for _, p := range quantileProbs {
		r := QuantileRow{P: p, Left: left.At(p), Right: right.At(p)}
		fmt.Fprintf(w, "%g\t%g\t%g\n", r.P, r.Left, r.Right)
		res.Quantiles = append(res.Quantiles, r)
	}
	return res, nil
}

// correctSample reads or simulates a sample and corrects it.
func correctSample(w io.Writer, s *settings, points int, side string) (*EmpiricalSummary, error) {
	tail, err := lpr.ParseTail(side)
	if err != nil {
		return nil, err
	}
	xs, _, err := loadSample(*sampleF, *simN, *simMu, *simSigma, *seed)
	if err != nil {
		return nil, err
	}
	return empiricalCorrection(w, s, xs, points, tail)
}

// saveFigure saves a plot into dir.
func saveFigure(p *plot.Plot, dir, name, format string) error {
	fn := filepath.Join(dir, name+"."+format)
	log.Infof("Writing %s", fn)
	return figure.Save(p, fn)
}

// renderFigures renders the figures of a sample and, if fits are
// given, of the skew-normal fits.
func renderFigures(s *settings, xs []float64, ref dist.Distribution, fits []*correct.Fit, dir, format string) error {
	est, _, err := buildEstimate(s, xs)
	if err != nil {
		return err
	}
	p, err := figure.CCDFComparison(est, s.Params, ref)
	if err != nil {
		return err
	}
	if err := saveFigure(p, dir, "ccdf", format); err != nil {
		return err
	}
	if p, err = figure.QuantileComparison(est, s.Params); err != nil {
		return err
	}
	if err := saveFigure(p, dir, "quantile", format); err != nil {
		return err
	}
	if len(fits) == 0 {
		return nil
	}
	if p, err = figure.Sweep(fits); err != nil {
		return err
	}
	if err := saveFigure(p, dir, "sweep", format); err != nil {
		return err
	}
	if p, err = figure.Densities(fits); err != nil {
		return err
	}
	return saveFigure(p, dir, "densities", format)
}

// Modes of the skew-normal fits rendered by the plot command.
const (
	plotFrom = 0.3
	plotTo   = 0.7
	plotStep = 0.025
)

// plotFigures renders all the figures into dir. The skew-normal fits
// use the standard deviation sigma.
func plotFigures(s *settings, dir, format string, withSweep bool, sigma float64) error {
	if err := os.MkdirAll(dir, 0777); err != nil {
		return errors.Wrap(err, "creating output directory")
	}
	xs, ref, err := loadSample(*sampleF, *simN, *simMu, *simSigma, *seed)
	if err != nil {
		return err
	}
	var fits []*correct.Fit
	if withSweep {
		mus, err := modeRange(plotFrom, plotTo, plotStep)
		if err != nil {
			return err
		}
		if fits, err = runSweep(s, mus, sigma, *checkpointF); err != nil {
			return err
		}
	}
	return renderFigures(s, xs, ref, fits, dir, format)
}
