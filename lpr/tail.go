package lpr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Tail selects which tail of a distribution is corrected.
type Tail int

const (
	// Right corrects P(X > x).
	Right Tail = iota
	// Left corrects P(X <= x).
	Left
)

func (t Tail) String() string {
	switch t {
	case Right:
		return "right"
	case Left:
		return "left"
	}
	return fmt.Sprintf("Tail(%d)", int(t))
}

// ParseTail converts "left" or "right" to a Tail.
func ParseTail(s string) (Tail, error) {
	switch s {
	case "right":
		return Right, nil
	case "left":
		return Left, nil
	}
	return Right, errors.Errorf("unknown tail: %s", s)
}
