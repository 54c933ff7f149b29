package ecmodel

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"ecfit/internal/nondim"
)

// SuggestedPoints is the length of the default time grid from SuggestTimes.
const SuggestedPoints = 1000

// Parameters maps a parameter name to its value.
type Parameters map[string]float64

func (p Parameters) Clone() Parameters {
	out := make(Parameters, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Names returns the keys in sorted order.
func (p Parameters) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Config is everything New needs to build a State.
type Config struct {
	Variant  Variant
	Reversed bool
	Params   Parameters
}

// State owns the dimensional and nondimensional parameter mappings of one
// model together with their characteristic scales. It is not safe for
// concurrent use: SetFromVector updates both mappings one name at a time.
// Use Clone to give each worker its own State.
type State struct {
	variant  Variant
	reversed bool
	dim      Parameters
	params   Parameters
	scaler   *nondim.Scaler
	legal    []string
	legalSet map[string]struct{}
}

// New validates cfg, applies the reversal transform once (single transfer
// only), derives the characteristic scales and nondimensionalises every
// legal parameter.
func New(cfg Config) (*State, error) {
	if err := cfg.Variant.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", nondim.ErrInvalidParameter, err)
	}
	sc := cfg.Variant.schema()
	if cfg.Reversed && !sc.reversible {
		return nil, &nondim.ParameterError{
			Name:   "reversed",
			Detail: fmt.Sprintf("reversal is not defined for the %s variant", cfg.Variant),
			Err:    nondim.ErrInvalidParameter,
		}
	}

	dim := cfg.Params.Clone()
	for name, value := range sc.defaults {
		if _, ok := dim[name]; !ok {
			dim[name] = value
		}
	}
	var missing []string
	for _, name := range append(append([]string(nil), sc.legal...), sc.scaleKeys...) {
		if _, ok := dim[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &nondim.ParameterError{Name: strings.Join(missing, ","), Err: nondim.ErrMissingParameter}
	}

	if cfg.Reversed {
		reverse(dim)
	}

	in := nondim.Inputs{
		ScanRate:    dim["v"],
		Temperature: dim["T"],
		Area:        dim["a"],
		Basis:       sc.basis,
		Reversed:    cfg.Reversed,
	}
	switch sc.basis {
	case nondim.DiffusionBasis:
		in.Diffusion = dim["D"]
		in.Concentration = dim["c_inf"]
	case nondim.CoverageBasis:
		in.Coverage = dim["Gamma"]
	}
	scales, err := nondim.DeriveScales(in)
	if err != nil {
		return nil, err
	}
	table, err := nondim.NewRuleTable(sc.rate, sc.legal...)
	if err != nil {
		return nil, err
	}
	scaler, err := nondim.NewScaler(table, scales, dim["a"], dim["D"])
	if err != nil {
		return nil, err
	}

	s := &State{
		variant:  cfg.Variant,
		reversed: cfg.Reversed,
		dim:      dim,
		params:   make(Parameters, len(sc.legal)+len(sc.settings)),
		scaler:   scaler,
		legal:    append([]string(nil), sc.legal...),
		legalSet: make(map[string]struct{}, len(sc.legal)),
	}
	for _, name := range sc.legal {
		s.legalSet[name] = struct{}{}
		value, err := scaler.NonDimensionalise(dim[name], name)
		if err != nil {
			return nil, err
		}
		s.params[name] = value
	}
	for name, value := range sc.settings {
		s.params[name] = value
	}
	return s, nil
}

// reverse mirrors the potential window so a scan that starts at the upper
// potential is simulated as one that starts at the lower one.
func reverse(dim Parameters) {
	dim["E0"] = dim["Estart"] - (dim["E0"] - dim["Ereverse"])
	dim["Estart"], dim["Ereverse"] = dim["Ereverse"], dim["Estart"]
	dim["v"] = -dim["v"]
	dim["phase"] += math.Pi
}

func (s *State) Variant() Variant { return s.variant }

func (s *State) Reversed() bool { return s.reversed }

func (s *State) Scales() nondim.Scales { return s.scaler.Scales() }

// DriveFrequency is the dimensional drive frequency "omega" in Hz.
func (s *State) DriveFrequency() float64 { return s.dim["omega"] }

// LegalNames returns the names accepted by SetFromVector and Vector.
func (s *State) LegalNames() []string { return append([]string(nil), s.legal...) }

// Dimensional returns a copy of the dimensional mapping.
func (s *State) Dimensional() Parameters { return s.dim.Clone() }

// Nondimensional returns a copy of the nondimensional mapping, including the
// fixed integrator settings.
func (s *State) Nondimensional() Parameters { return s.params.Clone() }

func (s *State) NonDimensionalise(value float64, name string) (float64, error) {
	return s.scaler.NonDimensionalise(value, name)
}

func (s *State) Dimensionalise(value float64, name string) (float64, error) {
	return s.scaler.Dimensionalise(value, name)
}

// SetFromVector assigns nondimensional values by name, in order, and keeps
// the dimensional mapping in step. Names are validated before anything is
// written; a repeated name takes its last value.
func (s *State) SetFromVector(values []float64, names []string) error {
	if len(values) != len(names) {
		return fmt.Errorf("%w: %d values for %d names", nondim.ErrInvalidParameter, len(values), len(names))
	}
	for _, name := range names {
		if _, ok := s.legalSet[name]; !ok {
			return &nondim.ParameterError{Name: name, Detail: fmt.Sprintf("not settable on %s", s.variant), Err: nondim.ErrUnknownParameter}
		}
	}
	for i, name := range names {
		dimValue, err := s.scaler.Dimensionalise(values[i], name)
		if err != nil {
			return err
		}
		s.params[name] = values[i]
		s.dim[name] = dimValue
	}
	return nil
}

// Vector returns the nondimensional values of names in the given order.
func (s *State) Vector(names []string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, name := range names {
		if _, ok := s.legalSet[name]; !ok {
			return nil, &nondim.ParameterError{Name: name, Detail: fmt.Sprintf("not defined on %s", s.variant), Err: nondim.ErrUnknownParameter}
		}
		out[i] = s.params[name]
	}
	return out, nil
}

// SuggestTimes returns SuggestedPoints evenly spaced nondimensional times
// covering one sweep of the dc ramp, from 0 to |Ereverse-Estart|. The end
// point is the absolute window so a falling window (Ereverse below Estart)
// still yields an increasing grid of the same duration.
func (s *State) SuggestTimes() []float64 {
	final := math.Abs(s.params["Ereverse"] - s.params["Estart"])
	return floats.Span(make([]float64, SuggestedPoints), 0, final)
}

// Clone returns an independent State with the same mappings and scales.
func (s *State) Clone() *State {
	out := *s
	out.dim = s.dim.Clone()
	out.params = s.params.Clone()
	out.legal = append([]string(nil), s.legal...)
	return &out
}
