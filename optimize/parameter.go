package optimize

import (
	"math"
	"math/rand"
	"strconv"

	"github.com/pkg/errors"
)

const (
	// MIN and MAX limit the range used by Randomize for unbounded
	// parameters. A parameter bounded on one side only gets a range
	// of width MAX - MIN.
	MIN = -10
	MAX = +10
)

// FloatParameter is a named float64 value which an optimizer is
// allowed to change.
type FloatParameter interface {
	Name() string
	String() string
	SetMin(float64)
	SetMax(float64)
	GetMin() float64
	GetMax() float64
	// Step is the typical change of the parameter. Optimizers
	// work in units of Step.
	Step() float64
	SetStep(float64)
	Get() float64
	Set(float64)
	InRange() bool
	ValueInRange(float64) bool
}

// FloatParameters is an ordered set of parameters.
type FloatParameters []FloatParameter

// Append adds a parameter.
func (p *FloatParameters) Append(par FloatParameter) {
	*p = append(*p, par)
}

// Names returns parameter names. If is is not nil, it is reused.
func (p *FloatParameters) Names(is []string) (s []string) {
	if is == nil {
		s = make([]string, len(*p))
	} else {
		s = is
	}
	for i, par := range *p {
		s[i] = par.Name()
	}
	return
}

// Values returns parameter values. If iv is not nil, it is reused.
func (p *FloatParameters) Values(iv []float64) (v []float64) {
	if iv == nil {
		v = make([]float64, len(*p))
	} else {
		v = iv
	}
	for i, par := range *p {
		v[i] = par.Get()
	}
	return
}

// Map returns a name to value mapping.
func (p *FloatParameters) Map() map[string]float64 {
	m := make(map[string]float64, len(*p))
	for _, par := range *p {
		m[par.Name()] = par.Get()
	}
	return m
}

// ValuesInRange checks whether all the values are within parameter
// bounds.
func (p *FloatParameters) ValuesInRange(vals []float64) bool {
	if len(vals) != len(*p) {
		panic("Incorrect number of parameters")
	}
	for i, par := range *p {
		if !par.ValueInRange(vals[i]) {
			return false
		}
	}
	return true
}

// SetValues sets all the parameter values.
func (p *FloatParameters) SetValues(v []float64) error {
	if len(v) != len(*p) {
		return errors.Errorf("incorrect number of parameters: %d, expected %d", len(v), len(*p))
	}
	for i, par := range *p {
		par.Set(v[i])
	}
	return nil
}

// Scaled returns the values divided by the steps. If ix is not nil,
// it is reused.
func (p *FloatParameters) Scaled(ix []float64) []float64 {
	x := p.Values(ix)
	for i, par := range *p {
		x[i] /= par.Step()
	}
	return x
}

// Unscale converts scaled coordinates x to parameter values, storing
// them in v. If v is nil, a new slice is allocated.
func (p *FloatParameters) Unscale(x, v []float64) []float64 {
	if v == nil {
		v = make([]float64, len(x))
	}
	for i, par := range *p {
		v[i] = x[i] * par.Step()
	}
	return v
}

// Randomize sets every parameter to a uniform random value within
// its bounds. Infinite bounds are replaced using MIN and MAX.
func (p *FloatParameters) Randomize(rng *rand.Rand) {
	for _, par := range *p {
		min, max := par.GetMin(), par.GetMax()
		switch {
		case math.IsInf(min, -1) && math.IsInf(max, +1):
			min, max = MIN, MAX
		case math.IsInf(min, -1):
			min = max - (MAX - MIN)
		case math.IsInf(max, +1):
			max = min + (MAX - MIN)
		}
		par.Set(min + rng.Float64()*(max-min))
	}
}

// InRange checks whether all the parameters are within bounds.
func (p *FloatParameters) InRange() bool {
	for _, par := range *p {
		if !par.InRange() {
			return false
		}
	}
	return true
}

// NamesString returns tab-separated names.
func (p *FloatParameters) NamesString() (s string) {
	for i, par := range *p {
		if i != 0 {
			s += "\t"
		}
		s += par.Name()
	}
	return
}

// ValuesString returns tab-separated values.
func (p *FloatParameters) ValuesString() (s string) {
	for i, par := range *p {
		if i != 0 {
			s += "\t"
		}
		s += par.String()
	}
	return
}

// BasicFloatParameter is a FloatParameter stored in a variable.
type BasicFloatParameter struct {
	*float64
	name string
	step float64
	min  float64
	max  float64
}

// NewBasicFloatParameter creates an unbounded parameter with unit
// step, stored in par.
func NewBasicFloatParameter(par *float64, name string) *BasicFloatParameter {
	return &BasicFloatParameter{
		float64: par,
		name:    name,
		step:    1,
		min:     math.Inf(-1),
		max:     math.Inf(+1),
	}
}

func (p *BasicFloatParameter) SetMin(min float64) {
	p.min = min
}

func (p *BasicFloatParameter) SetMax(max float64) {
	p.max = max
}

func (p *BasicFloatParameter) Step() float64 {
	return p.step
}

// SetStep sets the typical change. Non-positive values are ignored.
func (p *BasicFloatParameter) SetStep(step float64) {
	if step > 0 {
		p.step = step
	}
}

func (p *BasicFloatParameter) Get() float64 {
	return *p.float64
}

func (p *BasicFloatParameter) Set(v float64) {
	*p.float64 = v
}

func (p *BasicFloatParameter) GetMin() float64 {
	return p.min
}

func (p *BasicFloatParameter) GetMax() float64 {
	return p.max
}

func (p *BasicFloatParameter) ValueInRange(v float64) bool {
	return v >= p.min && v <= p.max
}

func (p *BasicFloatParameter) InRange() bool {
	return p.ValueInRange(*p.float64)
}

func (p *BasicFloatParameter) Name() string {
	return p.name
}

func (p *BasicFloatParameter) String() string {
	return strconv.FormatFloat(*p.float64, 'f', 6, 64)
}
