package ecmodel

import (
	"fmt"
	"strings"

	"ecfit/internal/nondim"
)

// Kind tags the structural family of a model.
type Kind int

const (
	SingleTransfer Kind = iota
	SequentialTransfer
	FixedThreeProcess
)

func (k Kind) String() string {
	switch k {
	case SingleTransfer:
		return "single"
	case SequentialTransfer:
		return "sequential"
	case FixedThreeProcess:
		return "pom"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Variant is a Kind plus its process count. Processes is always 1 for
// SingleTransfer and 3 for FixedThreeProcess.
type Variant struct {
	Kind      Kind `json:"kind"`
	Processes int  `json:"processes"`
}

func Single() Variant { return Variant{Kind: SingleTransfer, Processes: 1} }

func Sequential(n int) Variant { return Variant{Kind: SequentialTransfer, Processes: n} }

func POM() Variant { return Variant{Kind: FixedThreeProcess, Processes: 3} }

// ParseVariant accepts the names used in model config files.
func ParseVariant(name string, processes int) (Variant, error) {
	var v Variant
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "single", "ec", "single_transfer":
		v = Single()
	case "sequential", "seq", "sequential_transfer":
		v = Sequential(processes)
	case "pom", "fixed_three_process":
		v = POM()
	default:
		return Variant{}, fmt.Errorf("unsupported model variant: %s", name)
	}
	return v, v.Validate()
}

func (v Variant) Validate() error {
	switch v.Kind {
	case SingleTransfer:
		if v.Processes != 1 {
			return fmt.Errorf("single transfer variant has exactly 1 process, got %d", v.Processes)
		}
	case SequentialTransfer:
		if v.Processes < 1 || v.Processes > 3 {
			return fmt.Errorf("sequential transfer requires 1 <= processes <= 3, got %d", v.Processes)
		}
	case FixedThreeProcess:
		if v.Processes != 3 {
			return fmt.Errorf("pom variant has exactly 3 processes, got %d", v.Processes)
		}
	default:
		return fmt.Errorf("unsupported model kind: %s", v.Kind)
	}
	return nil
}

func (v Variant) String() string {
	if v.Kind == SequentialTransfer {
		return fmt.Sprintf("%s(%d)", v.Kind, v.Processes)
	}
	return v.Kind.String()
}

// schema describes the parameter shape of a variant.
type schema struct {
	legal      []string           // vector-settable names, canonical order
	scaleKeys  []string           // dimensional keys read only by the scale deriver
	defaults   map[string]float64 // dimensional defaults for optional legal names
	settings   map[string]float64 // fixed integrator settings
	rate       nondim.Kind
	basis      nondim.Basis
	reversible bool
}

func (v Variant) schema() schema {
	switch v.Kind {
	case SingleTransfer:
		return schema{
			legal:      []string{"Estart", "Ereverse", "omega", "phase", "dE", "k0", "alpha", "E0", "Ru", "Cdl"},
			scaleKeys:  []string{"v", "T", "a", "c_inf", "D"},
			settings:   map[string]float64{"Nx": 300, "Nt": 200, "startn": 0},
			rate:       nondim.DiffusiveRate,
			basis:      nondim.DiffusionBasis,
			reversible: true,
		}
	default:
		s := schema{
			legal:     sequentialNames(v.Processes),
			scaleKeys: []string{"v", "T", "a", "c_inf", "D"},
			defaults:  map[string]float64{"CdlE": 0, "CdlE2": 0, "CdlE3": 0, "gamma": 1},
			settings:  map[string]float64{"Nt": 600},
			rate:      nondim.InverseTime,
			basis:     nondim.DiffusionBasis,
		}
		if v.Kind == FixedThreeProcess {
			s.scaleKeys = []string{"v", "T", "a", "Gamma"}
			s.basis = nondim.CoverageBasis
		}
		return s
	}
}

// LegalNames lists the names accepted by SetFromVector and Vector.
func (v Variant) LegalNames() []string {
	return append([]string(nil), v.schema().legal...)
}

// transferNames returns the formal potential, rate constant and transfer
// coefficient names of electron transfer j (two per process).
func transferNames(j int) (e, k, alpha string) {
	p, n := j/2, j%2+1
	e = fmt.Sprintf("E%d%d", p, n)
	k = fmt.Sprintf("k%d%d", p, n)
	if p == 0 {
		alpha = fmt.Sprintf("alpha%d", n)
	} else {
		alpha = fmt.Sprintf("alpha%d%d", p, n)
	}
	return e, k, alpha
}

func sequentialNames(processes int) []string {
	names := []string{"Estart", "Ereverse", "omega", "phase", "dE"}
	var es, ks, alphas []string
	for j := 0; j < 2*processes; j++ {
		e, k, alpha := transferNames(j)
		es = append(es, e)
		ks = append(ks, k)
		alphas = append(alphas, alpha)
	}
	names = append(names, ks...)
	names = append(names, es...)
	names = append(names, alphas...)
	return append(names, "Ru", "Cdl", "CdlE", "CdlE2", "CdlE3", "gamma")
}
