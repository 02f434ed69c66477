package lpr

import "fmt"

// DomainError is returned when an input is outside of the domain of
// a transform: a probability outside [0, 1] or a non-positive slope.
// There is no meaningful result in this case.
type DomainError struct {
	Param  string
	Value  float64
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("domain error: %s=%v %s", e.Param, e.Value, e.Reason)
}
