/*

Lprcorr computes distributions whose displayed tail probabilities are
perceived correctly by a viewer with a linear-in-probit probability
perception.

Transform probabilities:

	lprcorr transform 0.05 0.5 0.95

Correct a normal distribution in closed form, or fit a skew-normal
distribution keeping its mode:

	lprcorr --alpha -0.3 --beta 2 normal 0.52 0.025
	lprcorr --alpha -0.3 --beta 2 fit 0.52 0.025

Correct a sample through a kernel density estimate:

	lprcorr empirical --sample mcmc.txt

To see all the options run:

	lprcorr --help

*/
package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/op/go-logging"
	"gopkg.in/alecthomas/kingpin.v2"

	"bitbucket.org/Davydov/lprcorr/optimize"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// Logger settings.
var log = logging.MustGetLogger("lprcorr")
var formatter = logging.MustStringFormatter(`%{message}`)

// modules are the loggers configured by --loglevel.
var modules = []string{"lprcorr", "lpr", "dist", "empirical", "optimize", "correct", "figure", "checkpoint"}

// userSet stores the names of the flags given on the command line.
var userSet = make(map[string]bool)

// mark records that a flag was given.
func mark(name string) kingpin.Action {
	return func(*kingpin.ParseContext) error {
		userSet[name] = true
		return nil
	}
}

// command-line options
var (
	// application
	app = kingpin.New("lprcorr", "probability perception correction").Version(version)

	// transform parameters
	alpha   = app.Flag("alpha", "LPR intercept (default -0.33)").Action(mark("alpha")).Float64()
	beta    = app.Flag("beta", "LPR slope (default 2)").Action(mark("beta")).Float64()
	configF = app.Flag("config", "read settings from a YAML file, flags override it").ExistingFile()

	// optimizer parameters
	iterations = app.Flag("iter", "number of iterations per optimizer run").Action(mark("iter")).Int()
	report     = app.Flag("report", "report every N iterations").Action(mark("report")).Int()
	restarts   = app.Flag("restarts", "number of random starts of a fit which did not converge").Action(mark("restarts")).Int()
	method     = app.Flag("method", "optimization method to use "+
		"(simplex: downhill simplex, "+
		"neldermead: Nelder-Mead from gonum, "+
		"bfgs: Broyden–Fletcher–Goldfarb–Shanno from gonum, "+
		"lbfgsb: limited-memory BFGS with bounding constraints, "+
		"none: just compute the objective, no optimization"+
		")").Action(mark("method")).Enum(optimize.Methods...)

	// density estimate parameters
	cut       = app.Flag("cut", "extend the density estimate by N bandwidths").Action(mark("cut")).Float64()
	adjust    = app.Flag("adjust", "bandwidth multiplier").Action(mark("adjust")).Float64()
	gridSize  = app.Flag("gridsize", "number of density estimate grid points").Action(mark("gridsize")).Int()
	bandwidth = app.Flag("bandwidth", "bandwidth rule (scott, silverman, robust) or value").Action(mark("bandwidth")).String()
	tolerance = app.Flag("tolerance", "minimum tail mass beyond the sample range").Action(mark("tolerance")).Float64()

	// samples
	sampleF  = app.Flag("sample", "read the sample from a file, by default a normal sample is simulated").ExistingFile()
	simN     = app.Flag("n", "simulated sample size").Default("10000").Int()
	simMu    = app.Flag("mu", "simulated sample mean").Default("0").Float64()
	simSigma = app.Flag("sd", "simulated sample standard deviation").Default("1").Float64()

	// technical
	nThreads    = app.Flag("nt", "number of threads to use").Action(mark("nt")).Int()
	seed        = app.Flag("seed", "random generator seed, default time based").Default("-1").Int64()
	cpuProfile  = app.Flag("cpuprofile", "write cpu profile to file").String()
	checkpointF = app.Flag("checkpoint", "store the skew-normal fits in a checkpoint file and reuse them").String()

	// output
	outLogF  = app.Flag("log", "write log to a file").String()
	logLevel = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")
	jsonF = app.Flag("json", "write json output to a file").String()

	// commands
	transformCmd = app.Command("transform", "print lpr and inv_lpr of probabilities")
	transformP   = transformCmd.Arg("p", "probabilities").Required().Float64List()

	normalCmd   = app.Command("normal", "closed form correction of a normal distribution")
	normalMu    = normalCmd.Arg("mu", "mean").Required().Float64()
	normalSigma = normalCmd.Arg("sigma", "standard deviation").Required().Float64()

	fitCmd   = app.Command("fit", "fit a skew-normal distribution keeping the mode")
	fitMu    = fitCmd.Arg("mu", "mean (and mode) of the normal distribution").Required().Float64()
	fitSigma = fitCmd.Arg("sigma", "standard deviation of the normal distribution").Required().Float64()

	sweepCmd   = app.Command("sweep", "fit skew-normal distributions over a range of modes")
	sweepFrom  = sweepCmd.Flag("from", "first mode").Default("0.3").Float64()
	sweepTo    = sweepCmd.Flag("to", "last mode").Default("0.7").Float64()
	sweepStep  = sweepCmd.Flag("step", "mode step").Default("0.01").Float64()
	sweepSigma = sweepCmd.Flag("sigma", "standard deviation").Default("0.025").Float64()
	sweepPlot  = sweepCmd.Flag("plot", "write the fit error figure to a file").String()

	empiricalCmd = app.Command("empirical", "correct a sample through a kernel density estimate")
	points       = empiricalCmd.Flag("points", "number of points in the tail table").Default("25").Int()
	tailSide     = empiricalCmd.Flag("tail", "tail of the probability table (left, right)").Default("right").String()

	plotCmd    = app.Command("plot", "render the validation figures")
	plotDir    = plotCmd.Flag("out", "output directory").Default(".").String()
	plotFormat = plotCmd.Flag("format", "figure format").Default("png").Enum("png", "svg", "pdf")
	plotSweep  = plotCmd.Flag("sweep", "also fit and plot skew-normal distributions").Bool()
	plotSigma  = plotCmd.Flag("sigma", "standard deviation of the fitted distributions").Default("0.025").Float64()
)

// applyFlags overrides settings by the flags given on the command
// line.
func applyFlags(s *settings) {
	if userSet["alpha"] {
		s.Alpha = *alpha
	}
	if userSet["beta"] {
		s.Beta = *beta
	}
	if userSet["iter"] {
		s.Fit.Iterations = *iterations
	}
	if userSet["report"] {
		s.Fit.ReportPeriod = *report
	}
	if userSet["restarts"] {
		s.Fit.Restarts = *restarts
	}
	if userSet["method"] {
		s.Fit.Method = *method
	}
	if userSet["nt"] {
		s.Fit.Workers = *nThreads
	}
	if userSet["cut"] {
		s.Density.Cut = *cut
	}
	if userSet["adjust"] {
		s.Density.Adjust = *adjust
	}
	if userSet["gridsize"] {
		s.Density.GridSize = *gridSize
	}
	if userSet["bandwidth"] {
		s.Density.BandwidthRule = *bandwidth
	}
	if userSet["tolerance"] {
		s.Density.Tolerance = *tolerance
	}
}

func main() {
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	// logging
	logging.SetFormatter(formatter)

	var backend *logging.LogBackend
	if *outLogF != "" {
		f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("Error creating log file:", err)
		}
		defer f.Close()
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	for _, module := range modules {
		logging.SetLevel(level, module)
	}

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	if *seed == -1 {
		*seed = time.Now().UnixNano()
		log.Debug("Random seed from time")
	}
	log.Infof("Random seed=%v", *seed)

	runtime.GOMAXPROCS(*nThreads)
	log.Infof("Using threads: %d.", runtime.GOMAXPROCS(0))

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	s, err := readSettings(*configF)
	if err != nil {
		log.Fatal(err)
	}
	applyFlags(s)
	if err := s.Params.Validate(); err != nil {
		log.Fatal(err)
	}
	log.Infof("alpha=%v, beta=%v", s.Alpha, s.Beta)

	startTime := time.Now()
	summary := &CallSummary{
		Version:     version,
		CommandLine: os.Args,
		Command:     cmd,
		Seed:        *seed,
		Params:      s.Params,
	}

	var result interface{}
	switch cmd {
	case transformCmd.FullCommand():
		result, err = transform(os.Stdout, s.Params, *transformP)
	case normalCmd.FullCommand():
		result, err = normal(os.Stdout, s.Params, *normalMu, *normalSigma)
	case fitCmd.FullCommand():
		result, err = fit(os.Stdout, s, *fitMu, *fitSigma)
	case sweepCmd.FullCommand():
		result, err = sweep(os.Stdout, s, *sweepFrom, *sweepTo, *sweepStep, *sweepSigma, *sweepPlot)
	case empiricalCmd.FullCommand():
		result, err = correctSample(os.Stdout, s, *points, *tailSide)
	case plotCmd.FullCommand():
		err = plotFigures(s, *plotDir, *plotFormat, *plotSweep, *plotSigma)
	}
	if err != nil {
		log.Fatal(err)
	}
	summary.Result = result

	deltaT := time.Since(startTime)
	log.Noticef("Running time: %v", deltaT)
	summary.TotalTime = deltaT.Seconds()

	// output summary in json format
	if *jsonF != "" {
		j, err := json.Marshal(summary)
		if err != nil {
			log.Error(err)
		} else {
			log.Debug(string(j))
			if err := ioutil.WriteFile(*jsonF, j, 0666); err != nil {
				log.Error("Error creating json output file:", err)
			}
		}
	}
}
