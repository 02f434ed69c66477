package main

import (
	"io/ioutil"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"bitbucket.org/Davydov/lprcorr/correct"
	"bitbucket.org/Davydov/lprcorr/empirical"
	"bitbucket.org/Davydov/lprcorr/lpr"
)

// densitySettings are the density estimate options which can be
// stored in a configuration file.
type densitySettings struct {
	empirical.Options `yaml:",inline"`
	// BandwidthRule is scott, silverman or a number.
	BandwidthRule string `yaml:"bandwidth"`
}

// settings stores the configuration. It is read from a YAML file
// and then overridden by the command line flags.
type settings struct {
	lpr.Params `yaml:",inline"`
	Fit        correct.Options `yaml:"fit"`
	Density    densitySettings `yaml:"density"`
}

// defaultSettings returns settings with the example transform
// parameters and default options.
func defaultSettings() *settings {
	return &settings{
		Params: lpr.Example,
		Fit:    correct.DefaultOptions(),
		Density: densitySettings{
			Options:       empirical.DefaultOptions(),
			BandwidthRule: "scott",
		},
	}
}

// readSettings reads a YAML configuration file on top of the
// defaults.
func readSettings(fn string) (*settings, error) {
	s := defaultSettings()
	if fn == "" {
		return s, nil
	}
	b, err := ioutil.ReadFile(fn)
	if err != nil {
		return nil, errors.Wrap(err, "reading configuration")
	}
	if err := yaml.UnmarshalStrict(b, s); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", fn)
	}
	return s, nil
}

// densityOptions returns the density estimate options including the
// bandwidth rule.
func (s *settings) densityOptions() (empirical.Options, error) {
	opts := s.Density.Options
	rule, err := empirical.ParseBandwidth(s.Density.BandwidthRule)
	if err != nil {
		return opts, err
	}
	opts.Bandwidth = rule
	return opts, nil
}
