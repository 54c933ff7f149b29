package nondim

import (
	"fmt"
	"math"
	"strings"
)

// Kind names a scaling rule. Every rule is a pure multiplication by a factor
// built from the characteristic scales, so the inverse is a division by the
// same factor.
type Kind int

const (
	Identity Kind = iota
	Potential
	DiffusiveRate
	InverseTime
	AngularFrequency
	Resistance
	Capacitance
	CapacitancePoly
)

func (k Kind) String() string {
	switch k {
	case Identity:
		return "identity"
	case Potential:
		return "potential"
	case DiffusiveRate:
		return "diffusive_rate"
	case InverseTime:
		return "inverse_time"
	case AngularFrequency:
		return "angular_frequency"
	case Resistance:
		return "resistance"
	case Capacitance:
		return "capacitance"
	case CapacitancePoly:
		return "capacitance_poly"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Rule is one entry of a RuleTable. Order is the power of E0 used by
// CapacitancePoly and is ignored otherwise.
type Rule struct {
	Kind  Kind
	Order int
}

// RuleTable maps a logical parameter name to its scaling rule.
type RuleTable map[string]Rule

// Classify resolves the rule for a parameter name. rate selects how rate
// constants ("k...") are scaled: DiffusiveRate or InverseTime.
func Classify(name string, rate Kind) (Rule, bool) {
	switch name {
	case "omega":
		return Rule{Kind: AngularFrequency}, true
	case "phase", "gamma":
		return Rule{Kind: Identity}, true
	case "dE":
		return Rule{Kind: Potential}, true
	case "Ru":
		return Rule{Kind: Resistance}, true
	case "Cdl":
		return Rule{Kind: Capacitance}, true
	case "CdlE":
		return Rule{Kind: CapacitancePoly, Order: 1}, true
	case "CdlE2":
		return Rule{Kind: CapacitancePoly, Order: 2}, true
	case "CdlE3":
		return Rule{Kind: CapacitancePoly, Order: 3}, true
	}
	switch {
	case strings.HasPrefix(name, "alpha"):
		return Rule{Kind: Identity}, true
	case strings.HasPrefix(name, "E"):
		return Rule{Kind: Potential}, true
	case strings.HasPrefix(name, "k"):
		if rate != DiffusiveRate && rate != InverseTime {
			return Rule{}, false
		}
		return Rule{Kind: rate}, true
	}
	return Rule{}, false
}

// NewRuleTable classifies every name up front so lookups never branch on
// string prefixes again.
func NewRuleTable(rate Kind, names ...string) (RuleTable, error) {
	table := make(RuleTable, len(names))
	for _, name := range names {
		rule, ok := Classify(name, rate)
		if !ok {
			return nil, unknown(name)
		}
		table[name] = rule
	}
	return table, nil
}

// Lookup returns the rule for name or ErrUnknownParameter.
func (t RuleTable) Lookup(name string) (Rule, error) {
	rule, ok := t[name]
	if !ok {
		return Rule{}, unknown(name)
	}
	return rule, nil
}

// Factor returns the forward (dimensional to nondimensional) multiplier of the
// rule. area and diffusion are the dimensional electrode area and diffusion
// coefficient; diffusion is only read by DiffusiveRate.
func (r Rule) Factor(s Scales, area, diffusion float64) float64 {
	switch r.Kind {
	case Potential:
		return 1 / s.E0
	case DiffusiveRate:
		return s.L0 / diffusion
	case InverseTime:
		return s.T0
	case AngularFrequency:
		return 2 * math.Pi * s.T0
	case Resistance:
		return math.Abs(s.I0) / s.E0
	case Capacitance:
		return area * s.E0 / (math.Abs(s.I0) * s.T0)
	case CapacitancePoly:
		return math.Pow(s.E0, float64(r.Order))
	default:
		return 1
	}
}

// Scaler converts values between the dimensional and nondimensional spaces
// of one model. Factors are resolved once at construction.
type Scaler struct {
	scales  Scales
	table   RuleTable
	factors map[string]float64
}

// NewScaler binds a rule table to a set of scales.
func NewScaler(table RuleTable, scales Scales, area, diffusion float64) (*Scaler, error) {
	factors := make(map[string]float64, len(table))
	for name, rule := range table {
		f := rule.Factor(scales, area, diffusion)
		if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, invalid(name, fmt.Sprintf("degenerate %s scale factor %g", rule.Kind, f))
		}
		factors[name] = f
	}
	return &Scaler{scales: scales, table: table, factors: factors}, nil
}

func (s *Scaler) Scales() Scales {
	return s.scales
}

func (s *Scaler) Table() RuleTable {
	return s.table
}

// NonDimensionalise maps a dimensional value of name into nondimensional units.
func (s *Scaler) NonDimensionalise(value float64, name string) (float64, error) {
	f, ok := s.factors[name]
	if !ok {
		return 0, unknown(name)
	}
	return value * f, nil
}

// Dimensionalise is the inverse of NonDimensionalise.
func (s *Scaler) Dimensionalise(value float64, name string) (float64, error) {
	f, ok := s.factors[name]
	if !ok {
		return 0, unknown(name)
	}
	return value / f, nil
}
