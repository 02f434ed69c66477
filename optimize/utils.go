package optimize

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ReadFloats parses whitespace separated floats.
func ReadFloats(s string) ([]float64, error) {
	fields := strings.Fields(s)
	result := make([]float64, 0, len(fields))
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return result, errors.Wrapf(err, "value %d", i+1)
		}
		result = append(result, x)
	}
	return result, nil
}
