package main

import (
	"bitbucket.org/Davydov/lprcorr/correct"
	"bitbucket.org/Davydov/lprcorr/dist"
	"bitbucket.org/Davydov/lprcorr/lpr"
)

// CallSummary describes the program call.
type CallSummary struct {
	// Version stores lprcorr version.
	Version string `json:"version"`
	// CommandLine is an array storing binary name and all command-line parameters.
	CommandLine []string `json:"commandLine"`
	// Command is the subcommand which was run.
	Command string `json:"command"`
	// Seed is the seed used for random number generation initialization.
	Seed int64 `json:"seed,omitempty"`
	// Params are the transform parameters.
	Params lpr.Params `json:"params"`
	// Time is the computations time in seconds.
	TotalTime float64 `json:"time"`
	// Result is the command specific result.
	Result interface{} `json:"result,omitempty"`
}

// TransformRow is one probability transformed in both directions.
type TransformRow struct {
	P      float64 `json:"p"`
	LPR    float64 `json:"lpr"`
	InvLPR float64 `json:"invLpr"`
}

// NormalSummary is the result of the closed form correction.
type NormalSummary struct {
	Original  dist.Normal `json:"original"`
	Corrected dist.Normal `json:"corrected"`
}

// SweepSummary stores the fits of a sweep.
type SweepSummary struct {
	Fits         []*correct.Fit `json:"fits"`
	NotConverged []int          `json:"notConverged,omitempty"`
}

// SampleSummary describes a sample.
type SampleSummary struct {
	N         int     `json:"n"`
	Mean      float64 `json:"mean"`
	Median    float64 `json:"median"`
	StdDev    float64 `json:"sd"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Q05       float64 `json:"q05"`
	Q95       float64 `json:"q95"`
	Bandwidth float64 `json:"bandwidth"`
}

// TailRow is a point of the tail probability table.
// P is P(X > x) for the right tail and P(X <= x) for the left one.
type TailRow struct {
	X         float64 `json:"x"`
	P         float64 `json:"p"`
	Corrected float64 `json:"corrected"`
}

// QuantileRow is a point of the corrected quantile table.
type QuantileRow struct {
	P     float64 `json:"p"`
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// EmpiricalSummary is the result of the empirical correction.
type EmpiricalSummary struct {
	Sample    SampleSummary `json:"sample"`
	Support   string        `json:"supportWarning,omitempty"`
	Side      string        `json:"side"`
	Tail      []TailRow     `json:"tail"`
	Quantiles []QuantileRow `json:"quantiles"`
}
