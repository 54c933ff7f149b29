package nondim

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingParameter indicates a required dimensional key was not supplied.
	ErrMissingParameter = errors.New("nondim: missing parameter")

	// ErrUnknownParameter indicates a name outside the legal set of a model variant.
	ErrUnknownParameter = errors.New("nondim: unknown parameter")

	// ErrInvalidParameter indicates a physically meaningless value (zero scan rate, negative coverage, ...).
	ErrInvalidParameter = errors.New("nondim: invalid parameter")
)

// ParameterError ties one of the sentinel errors to the offending parameter name.
type ParameterError struct {
	Name   string
	Detail string
	Err    error
}

func (e *ParameterError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Name)
	}
	return fmt.Sprintf("%v: %s: %s", e.Err, e.Name, e.Detail)
}

func (e *ParameterError) Unwrap() error {
	return e.Err
}

func unknown(name string) error {
	return &ParameterError{Name: name, Err: ErrUnknownParameter}
}

func invalid(name, detail string) error {
	return &ParameterError{Name: name, Detail: detail, Err: ErrInvalidParameter}
}
