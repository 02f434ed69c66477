package main

import (
	"bytes"
	"context"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/op/go-logging"

	"bitbucket.org/Davydov/lprcorr/correct"
	"bitbucket.org/Davydov/lprcorr/empirical"
	"bitbucket.org/Davydov/lprcorr/lpr"
)

func writeTemp(tst *testing.T, name, content string) string {
	fn := filepath.Join(tst.TempDir(), name)
	if err := ioutil.WriteFile(fn, []byte(content), 0666); err != nil {
		tst.Fatal("Error: ", err)
	}
	return fn
}

func TestReadSettings(tst *testing.T) {
	s, err := readSettings("")
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if s.Params != lpr.Example || s.Fit.Method != correct.DefaultMethod {
		tst.Errorf("Wrong default settings: %+v", s)
	}

	fn := writeTemp(tst, "lprcorr.yaml", `alpha: -0.3
beta: 2
fit:
  method: lbfgsb
  iterations: 50
density:
  cut: 5
  bandwidth: silverman
  tolerance: 1e-6
`)
	s, err = readSettings(fn)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if s.Alpha != -0.3 || s.Beta != 2 {
		tst.Errorf("Wrong params: %+v", s.Params)
	}
	if s.Fit.Method != "lbfgsb" || s.Fit.Iterations != 50 || s.Fit.Ref != correct.DefaultRef {
		tst.Errorf("Wrong fit options: %+v", s.Fit)
	}
	if s.Density.Cut != 5 || s.Density.Tolerance != 1e-6 || s.Density.GridSize != empirical.DefaultGridSize {
		tst.Errorf("Wrong density options: %+v", s.Density)
	}
	opts, err := s.densityOptions()
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if opts.Bandwidth == nil {
		tst.Error("Bandwidth rule is not set")
	}

	fn = writeTemp(tst, "bad.yaml", "gamma: 1\n")
	if _, err := readSettings(fn); err == nil {
		tst.Error("Expected an error for an unknown key")
	}
	s, err = readSettings(writeTemp(tst, "bw.yaml", "density:\n  bandwidth: wide\n"))
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if _, err := s.densityOptions(); err == nil {
		tst.Error("Expected an error for an unknown bandwidth rule")
	}
}

func TestApplyFlags(tst *testing.T) {
	defer func() {
		userSet = make(map[string]bool)
	}()
	*alpha, *method, *cut, *restarts = 0.1, "bfgs", 4, -1
	userSet["restarts"] = true
	userSet["alpha"] = true
	userSet["method"] = true
	userSet["cut"] = true
	s := defaultSettings()
	applyFlags(s)
	if s.Alpha != 0.1 || s.Beta != lpr.Example.Beta {
		tst.Errorf("Wrong params: %+v", s.Params)
	}
	if s.Fit.Method != "bfgs" || s.Density.Cut != 4 || s.Fit.Restarts != -1 {
		tst.Errorf("Flags were not applied: %+v", s)
	}
	if s.Fit.Iterations != correct.DefaultIterations {
		tst.Error("Iterations changed without a flag:", s.Fit.Iterations)
	}
}

func TestReadSample(tst *testing.T) {
	xs, err := readSample(strings.NewReader("# sample\n1 2\t3\n\n4.5\n"))
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if len(xs) != 4 || xs[3] != 4.5 {
		tst.Error("Wrong sample:", xs)
	}
	if _, err := readSample(strings.NewReader("1\nx\n")); err == nil || !strings.Contains(err.Error(), "line 2") {
		tst.Error("Expected an error on line 2, got", err)
	}
	if _, err := readSample(strings.NewReader("# nothing\n")); err == nil {
		tst.Error("Expected an error for an empty sample")
	}
}

func TestLoadSample(tst *testing.T) {
	xs, ref, err := loadSample("", 100, 2, 0.5, 1)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if len(xs) != 100 || ref == nil {
		tst.Error("Wrong simulated sample")
	}
	again, _, _ := loadSample("", 100, 2, 0.5, 1)
	if xs[0] != again[0] || xs[99] != again[99] {
		tst.Error("Simulation is not reproducible")
	}
	fn := writeTemp(tst, "sample.txt", "0.1 0.2\n0.3\n")
	xs, ref, err = loadSample(fn, 100, 2, 0.5, 1)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if len(xs) != 3 || ref != nil {
		tst.Error("Wrong sample from file:", xs)
	}
	if _, _, err := loadSample("", 100, 0, 0, 1); err == nil {
		tst.Error("Expected an error for sd=0")
	}
}

func TestSummarize(tst *testing.T) {
	xs := make([]float64, 100)
	for i := range xs {
		xs[99-i] = float64(i + 1)
	}
	s, err := summarize(xs)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if s.N != 100 || s.Min != 1 || s.Max != 100 || s.Mean != 50.5 || s.Median != 50.5 {
		tst.Errorf("Wrong summary: %+v", s)
	}
	if s.Q05 != 5 || s.Q95 != 95 {
		tst.Errorf("Wrong sample quantiles: %v, %v", s.Q05, s.Q95)
	}
	if xs[0] != 100 {
		tst.Error("The sample was modified")
	}
	if _, err := summarize(nil); err == nil {
		tst.Error("Expected an error for an empty sample")
	}
}

func TestModeRange(tst *testing.T) {
	mus, err := modeRange(0.3, 0.7, 0.1)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if len(mus) != 5 || math.Abs(mus[4]-0.7) > 1e-12 {
		tst.Error("Wrong range:", mus)
	}
	if mus, _ := modeRange(0.5, 0.5, 0.1); len(mus) != 1 {
		tst.Error("Wrong single point range:", mus)
	}
	if _, err := modeRange(0, 1, 0); err == nil {
		tst.Error("Expected an error for step=0")
	}
	if _, err := modeRange(1, 0, 0.1); err == nil {
		tst.Error("Expected an error for an inverted range")
	}
}

func TestTransform(tst *testing.T) {
	var buf bytes.Buffer
	rows, err := transform(&buf, lpr.Example, []float64{0.5, 0.05})
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if len(rows) != 2 || strings.Count(buf.String(), "\n") != 3 {
		tst.Errorf("Wrong output: %v\n%s", rows, buf.String())
	}
	for _, r := range rows {
		if math.Abs(lpr.Example.Apply(r.InvLPR)-r.P) > 1e-12 {
			tst.Errorf("inv_lpr is not the inverse at %v", r.P)
		}
	}
	if _, err := transform(&buf, lpr.Example, []float64{1.5}); err == nil {
		tst.Error("Expected an error for p=1.5")
	}
}

func TestNormalCommand(tst *testing.T) {
	var buf bytes.Buffer
	res, err := normal(&buf, lpr.Params{Alpha: -0.3, Beta: 2}, 0.52, 0.025)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if math.Abs(res.Corrected.Mu-0.5275) > 1e-12 || math.Abs(res.Corrected.Sigma-0.05) > 1e-12 {
		tst.Errorf("Wrong correction: %+v", res.Corrected)
	}
	if !strings.HasPrefix(buf.String(), "mu\tsigma\n") {
		tst.Error("Wrong output:", buf.String())
	}
}

func TestEmpiricalCorrection(tst *testing.T) {
	xs, _, err := loadSample("", 2000, 0, 1, 42)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	s := defaultSettings()
	var buf bytes.Buffer
	res, err := empiricalCorrection(&buf, s, xs, 10, lpr.Right)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if res.Sample.N != 2000 || res.Sample.Bandwidth <= 0 || res.Support != "" {
		tst.Errorf("Wrong sample summary: %+v (%s)", res.Sample, res.Support)
	}
	if len(res.Tail) != 10 || len(res.Quantiles) != len(quantileProbs) {
		tst.Fatalf("Wrong table sizes: %d, %d", len(res.Tail), len(res.Quantiles))
	}
	for i := 1; i < len(res.Tail); i++ {
		if res.Tail[i].Corrected > res.Tail[i-1].Corrected {
			tst.Error("Corrected tail is not monotone at", res.Tail[i].X)
		}
	}
	for i := 1; i < len(res.Quantiles); i++ {
		if res.Quantiles[i].Right < res.Quantiles[i-1].Right {
			tst.Error("Corrected quantiles are not monotone at", res.Quantiles[i].P)
		}
	}

	s.Density.Cut = 0
	s.Density.Tolerance = 1e-3
	res, err = empiricalCorrection(&buf, s, xs, 10, lpr.Right)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if res.Support == "" {
		tst.Error("Expected a support warning for cut=0")
	}
	if _, err := empiricalCorrection(&buf, s, xs, 1, lpr.Right); err == nil {
		tst.Error("Expected an error for one point")
	}
}

func TestEmpiricalLeftTail(tst *testing.T) {
	xs, _, err := loadSample("", 2000, 0, 1, 42)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	s := defaultSettings()
	var buf bytes.Buffer
	res, err := empiricalCorrection(&buf, s, xs, 10, lpr.Left)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if res.Side != "left" || !strings.HasPrefix(buf.String(), "x\tcdf\tcorrected\n") {
		tst.Errorf("Wrong left table header: %s", res.Side)
	}
	for i := 1; i < len(res.Tail); i++ {
		if res.Tail[i].P < res.Tail[i-1].P || res.Tail[i].Corrected < res.Tail[i-1].Corrected {
			tst.Error("Left tail is not monotone at", res.Tail[i].X)
		}
	}
	first := res.Tail[0]
	if want := s.Params.Invert(first.P); math.Abs(first.Corrected-want) > 1e-12 {
		tst.Errorf("Corrected(%v) = %v, expected %v", first.X, first.Corrected, want)
	}

	if _, err := correctSample(&buf, s, 10, "middle"); err == nil {
		tst.Error("Expected an error for an unknown tail")
	}
}

func TestSupportWarningLoggedOnce(tst *testing.T) {
	mem := logging.NewMemoryBackend(100)
	logging.SetBackend(mem)
	defer logging.SetBackend(logging.NewLogBackend(os.Stderr, "", 0))

	xs, _, err := loadSample("", 500, 0, 1, 7)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	s := defaultSettings()
	s.Density.Cut = 0
	s.Density.Tolerance = 1e-3
	_, warning, err := buildEstimate(s, xs)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if warning == "" {
		tst.Fatal("Expected a support warning for cut=0")
	}
	n := 0
	for node := mem.Head(); node != nil; node = node.Next() {
		if node.Record.Level == logging.WARNING && strings.Contains(node.Record.Message(), "insufficient support") {
			n++
		}
	}
	if n != 1 {
		tst.Errorf("Support warning logged %d times", n)
	}
}

func TestRenderFigures(tst *testing.T) {
	if testing.Short() {
		tst.Skip("skipping figures in short mode")
	}
	s := defaultSettings()
	xs, ref, err := loadSample("", 1000, 0.5, 0.025, 1)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	fits, err := correct.FitEach(context.Background(), []float64{0.5, 0.55}, []float64{0.025, 0.025}, s.Params, s.Fit)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	dir := tst.TempDir()
	if err := renderFigures(s, xs, ref, fits, dir, "svg"); err != nil {
		tst.Fatal("Error: ", err)
	}
	for _, name := range []string{"ccdf", "quantile", "sweep", "densities"} {
		if _, err := ioutil.ReadFile(filepath.Join(dir, name+".svg")); err != nil {
			tst.Error("Figure was not written:", err)
		}
	}
}

func TestSweepCheckpoint(tst *testing.T) {
	if testing.Short() {
		tst.Skip("skipping the sweep in short mode")
	}
	s := defaultSettings()
	fn := filepath.Join(tst.TempDir(), "sweep.db")
	mus := []float64{0.45, 0.55}
	fits, err := runSweep(s, mus, 0.025, fn)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	again, err := runSweep(s, mus, 0.025, fn)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	for i := range fits {
		if fits[i].SkewNormal != again[i].SkewNormal || !again[i].Converged {
			tst.Errorf("Stored fit %d differs: %+v != %+v", i, again[i], fits[i])
		}
		// evaluations are only counted by a real fit
		if again[i].Optimizer.Evaluations != fits[i].Optimizer.Evaluations {
			tst.Errorf("Optimizer summary was not stored for fit %d", i)
		}
	}
}
