package ecmodel

import (
	"errors"
	"fmt"
)

// ForwardModel is the view of a simulator an estimation loop consumes: a
// fixed-length nondimensional parameter vector in, one current per time out.
type ForwardModel interface {
	NParameters() int
	NOutputs() int
	Simulate(params, times []float64) ([]float64, error)
}

// Adaptor binds a State and an Invoker to an ordered list of parameter
// names. Every call to Simulate writes the vector into the State; nothing
// is cached.
type Adaptor struct {
	state   *State
	invoker *Invoker
	names   []string
}

func NewForwardModel(state *State, invoker *Invoker, names []string) (*Adaptor, error) {
	if state == nil || invoker == nil {
		return nil, errors.New("ecmodel: forward model needs a state and an invoker")
	}
	if len(names) == 0 {
		return nil, errors.New("ecmodel: forward model needs at least one parameter name")
	}
	if _, err := state.Vector(names); err != nil {
		return nil, err
	}
	return &Adaptor{state: state, invoker: invoker, names: append([]string(nil), names...)}, nil
}

func (a *Adaptor) NParameters() int { return len(a.names) }

func (a *Adaptor) NOutputs() int { return 1 }

// Names returns the bound parameter names in vector order.
func (a *Adaptor) Names() []string { return append([]string(nil), a.names...) }

// State exposes the bound State, which reflects the last simulated vector.
func (a *Adaptor) State() *State { return a.state }

func (a *Adaptor) Simulate(params, times []float64) ([]float64, error) {
	if len(params) != len(a.names) {
		return nil, fmt.Errorf("forward model expects %d parameters, got %d", len(a.names), len(params))
	}
	if err := a.state.SetFromVector(params, a.names); err != nil {
		return nil, err
	}
	return a.invoker.Simulate(a.state, times)
}
