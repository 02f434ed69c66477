package empirical

import (
	"math"
	"strconv"

	mstats "github.com/aclements/go-moremath/stats"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

const (
	// DefaultCut is the default domain extension in bandwidths.
	DefaultCut = 3
	// DefaultGridSize is the default number of grid points.
	DefaultGridSize = 1024
	// DefaultTolerance is the default minimum tail mass beyond the
	// sample range.
	DefaultTolerance = 1e-9
)

// BandwidthRule computes a kernel bandwidth from a sample.
type BandwidthRule func(xs []float64) (float64, error)

// Options configure a density estimate.
type Options struct {
	// Cut extends the grid beyond the sample minimum and maximum
	// by Cut bandwidths. The tails of the corrected distribution
	// saturate to exactly 0 or 1 when it is too small.
	Cut float64 `yaml:"cut"`
	// Adjust multiplies the bandwidth; zero means 1.
	Adjust float64 `yaml:"adjust"`
	// GridSize is the number of grid points; zero means
	// DefaultGridSize.
	GridSize int `yaml:"gridsize"`
	// Tolerance is the minimum probability mass the estimate must
	// keep below the sample minimum and above the sample maximum,
	// see CheckSupport. Zero means DefaultTolerance.
	Tolerance float64 `yaml:"tolerance"`
	// Bandwidth is the bandwidth rule, BandwidthScott if nil.
	Bandwidth BandwidthRule `yaml:"-"`
}

// DefaultOptions returns the options used by BuildDensityEstimate
// with Cut set to DefaultCut.
func DefaultOptions() Options {
	return Options{
		Cut:       DefaultCut,
		Adjust:    1,
		GridSize:  DefaultGridSize,
		Tolerance: DefaultTolerance,
		Bandwidth: BandwidthScott,
	}
}

// withDefaults fills zero fields and validates the options.
func (o Options) withDefaults() (Options, error) {
	if o.Adjust == 0 {
		o.Adjust = 1
	}
	if o.GridSize == 0 {
		o.GridSize = DefaultGridSize
	}
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.Bandwidth == nil {
		o.Bandwidth = BandwidthScott
	}
	switch {
	case !(o.Cut >= 0) || math.IsInf(o.Cut, 0):
		return o, errors.Errorf("cut must be finite and >= 0, got %v", o.Cut)
	case !(o.Adjust > 0) || math.IsInf(o.Adjust, 0):
		return o, errors.Errorf("adjust must be finite and > 0, got %v", o.Adjust)
	case o.GridSize < 3:
		return o, errors.Errorf("grid size must be at least 3, got %d", o.GridSize)
	case !(o.Tolerance > 0 && o.Tolerance < 0.5):
		return o, errors.Errorf("tolerance must be in (0, 0.5), got %v", o.Tolerance)
	}
	return o, nil
}

// BandwidthScott is Scott's rule: the sample standard deviation
// times n^(-1/5).
//
// Scott, D. W. (1992) Multivariate Density Estimation: Theory,
// Practice, and Visualization.
func BandwidthScott(xs []float64) (float64, error) {
	sd, err := stats.StandardDeviationSample(xs)
	if err != nil {
		return 0, errors.Wrap(err, "bandwidth")
	}
	return sd * math.Pow(float64(len(xs)), -1.0/5), nil
}

// BandwidthSilverman is Silverman's rule of thumb. It uses the
// smaller of the standard deviation and IQR/1.349, which makes it
// more robust to outliers than BandwidthScott.
//
// Silverman, B. W. (1986) Density Estimation.
func BandwidthSilverman(xs []float64) (float64, error) {
	sd, err := stats.StandardDeviationSample(xs)
	if err != nil {
		return 0, errors.Wrap(err, "bandwidth")
	}
	iqr, err := stats.InterQuartileRange(xs)
	if err != nil {
		return 0, errors.Wrap(err, "bandwidth")
	}
	a := sd
	if iqr > 0 && iqr/1.349 < sd {
		a = iqr / 1.349
	}
	return 0.9 * a * math.Pow(float64(len(xs)), -1.0/5), nil
}

// BandwidthRobust is the rule of thumb 1.06·min(sd, IQR/1.349)·n^(-1/5)
// from go-moremath, which is less sensitive to heavy tails.
func BandwidthRobust(xs []float64) (float64, error) {
	if len(xs) < 2 {
		return 0, errors.New("bandwidth: at least two samples are required")
	}
	return mstats.BandwidthScott(mstats.Sample{Xs: xs}), nil
}

// FixedBandwidth returns a rule which always gives h.
func FixedBandwidth(h float64) BandwidthRule {
	return func([]float64) (float64, error) {
		return h, nil
	}
}

// ParseBandwidth returns the rule named scott, silverman or robust, or a
// fixed bandwidth if s is a positive number. Empty s means scott.
func ParseBandwidth(s string) (BandwidthRule, error) {
	switch s {
	case "", "scott":
		return BandwidthScott, nil
	case "silverman":
		return BandwidthSilverman, nil
	case "robust":
		return BandwidthRobust, nil
	}
	h, err := strconv.ParseFloat(s, 64)
	if err != nil || !(h > 0) || math.IsInf(h, 0) {
		return nil, errors.Errorf("unknown bandwidth rule: %s", s)
	}
	return FixedBandwidth(h), nil
}
