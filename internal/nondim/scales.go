package nondim

import (
	"fmt"
	"math"
)

// Basis selects how the length and current scales are derived.
type Basis int

const (
	// DiffusionBasis derives L0 and I0 from a bulk diffusion coefficient and concentration.
	DiffusionBasis Basis = iota
	// CoverageBasis derives I0 from a fixed surface coverage; there is no spatial scale.
	CoverageBasis
)

func (b Basis) String() string {
	switch b {
	case DiffusionBasis:
		return "diffusion"
	case CoverageBasis:
		return "coverage"
	default:
		return fmt.Sprintf("basis(%d)", int(b))
	}
}

// Inputs is the minimal set of dimensional quantities the scales depend on.
// Diffusion and Concentration are read for DiffusionBasis, Coverage for CoverageBasis.
type Inputs struct {
	ScanRate      float64 // V s-1
	Temperature   float64 // K
	Area          float64 // cm2
	Basis         Basis
	Diffusion     float64 // cm2 s-1
	Concentration float64 // mol cm-3
	Coverage      float64 // mol cm-2
	Reversed      bool
}

// Scales holds the characteristic potential, time, length and current.
type Scales struct {
	E0 float64 `json:"e0"`
	T0 float64 `json:"t0"`
	L0 float64 `json:"l0"`
	I0 float64 `json:"i0"`
}

// DeriveScales computes the characteristic scales. E0 and T0 are always
// positive; I0 is negative when a diffusion-basis model is reversed.
func DeriveScales(in Inputs) (Scales, error) {
	if err := checkFinite("v", in.ScanRate); err != nil {
		return Scales{}, err
	}
	if in.ScanRate == 0 {
		return Scales{}, invalid("v", "scan rate must be non-zero")
	}
	if err := checkPositive("T", in.Temperature); err != nil {
		return Scales{}, err
	}
	if err := checkPositive("a", in.Area); err != nil {
		return Scales{}, err
	}

	e0 := GasConstant * in.Temperature / Faraday
	t0 := math.Abs(e0 / in.ScanRate)

	switch in.Basis {
	case DiffusionBasis:
		if err := checkPositive("D", in.Diffusion); err != nil {
			return Scales{}, err
		}
		if err := checkPositive("c_inf", in.Concentration); err != nil {
			return Scales{}, err
		}
		l0 := math.Sqrt(in.Diffusion * t0)
		i0 := in.Diffusion * Faraday * in.Area * in.Concentration / l0
		if in.Reversed {
			i0 = -i0
		}
		return Scales{E0: e0, T0: t0, L0: l0, I0: i0}, nil
	case CoverageBasis:
		if err := checkPositive("Gamma", in.Coverage); err != nil {
			return Scales{}, err
		}
		return Scales{E0: e0, T0: t0, L0: 1, I0: Faraday * in.Area * in.Coverage / t0}, nil
	default:
		return Scales{}, fmt.Errorf("%w: unsupported scale basis %s", ErrInvalidParameter, in.Basis)
	}
}

func checkFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid(name, "value must be finite")
	}
	return nil
}

func checkPositive(name string, v float64) error {
	if err := checkFinite(name, v); err != nil {
		return err
	}
	if v <= 0 {
		return invalid(name, fmt.Sprintf("must be > 0, got %g", v))
	}
	return nil
}
