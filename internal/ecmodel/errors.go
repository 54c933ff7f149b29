package ecmodel

import (
	"errors"
	"fmt"
)

// ErrSimulation indicates the integrator failed or produced unusable output.
var ErrSimulation = errors.New("ecmodel: simulation failed")

// SimulationError wraps an integrator failure with the variant and the
// number of requested time points.
type SimulationError struct {
	Variant Variant
	Points  int
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("%v: %s over %d points: %v", ErrSimulation, e.Variant, e.Points, e.Wrapped)
}

// Unwrap exposes both ErrSimulation and the underlying cause.
func (e *SimulationError) Unwrap() []error {
	if e.Wrapped == nil {
		return []error{ErrSimulation}
	}
	return []error{ErrSimulation, e.Wrapped}
}
