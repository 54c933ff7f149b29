package ecmodel

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"ecfit/internal/nondim"
)

// Invoker dispatches a State to the integrator bound to its variant kind.
// The zero value has no bindings; NewInvoker binds the reference
// integrators.
type Invoker struct {
	mu       sync.RWMutex
	bindings map[Kind]func(Variant) Integrator
}

// NewInvoker binds ImplicitDiffusion to the single transfer variant and
// SurfaceSequential to the sequential and pom variants.
func NewInvoker() *Invoker {
	inv := &Invoker{}
	inv.Bind(SingleTransfer, func(Variant) Integrator { return ImplicitDiffusion{} })
	sequential := func(v Variant) Integrator { return SurfaceSequential{Processes: v.Processes} }
	inv.Bind(SequentialTransfer, sequential)
	inv.Bind(FixedThreeProcess, sequential)
	return inv
}

// Bind registers the integrator factory used for kind, replacing any
// previous binding.
func (inv *Invoker) Bind(kind Kind, factory func(Variant) Integrator) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.bindings == nil {
		inv.bindings = make(map[Kind]func(Variant) Integrator)
	}
	inv.bindings[kind] = factory
}

func (inv *Invoker) integrator(v Variant) (Integrator, bool) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	factory, ok := inv.bindings[v.Kind]
	if !ok {
		return nil, false
	}
	return factory(v), true
}

// Simulate runs the bound integrator on the nondimensional parameters of
// state and returns one nondimensional current per time. The State is not
// modified.
func (inv *Invoker) Simulate(state *State, times []float64) ([]float64, error) {
	if state == nil {
		return nil, errors.New("ecmodel: nil state")
	}
	if err := ValidateTimes(times); err != nil {
		return nil, err
	}
	v := state.Variant()
	integrator, ok := inv.integrator(v)
	if !ok {
		return nil, &SimulationError{Variant: v, Points: len(times), Wrapped: fmt.Errorf("no integrator bound for %s", v.Kind)}
	}

	current := make([]float64, len(times))
	if err := integrator.Integrate(state.Nondimensional(), current, times); err != nil {
		return nil, &SimulationError{Variant: v, Points: len(times), Wrapped: err}
	}
	for i, c := range current {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, &SimulationError{Variant: v, Points: len(times), Wrapped: fmt.Errorf("non-finite current %v at index %d", c, i)}
		}
	}
	return current, nil
}

// ValidateTimes reports ErrInvalidParameter unless times is non-empty,
// finite and non-decreasing.
func ValidateTimes(times []float64) error {
	if len(times) == 0 {
		return &nondim.ParameterError{Name: "times", Detail: "empty", Err: nondim.ErrInvalidParameter}
	}
	for i, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return &nondim.ParameterError{Name: "times", Detail: fmt.Sprintf("non-finite value at index %d", i), Err: nondim.ErrInvalidParameter}
		}
		if i > 0 && t < times[i-1] {
			return &nondim.ParameterError{Name: "times", Detail: fmt.Sprintf("decreasing at index %d", i), Err: nondim.ErrInvalidParameter}
		}
	}
	return nil
}
