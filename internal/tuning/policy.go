package tuning

import (
	"fmt"
	"math"
)

// AttemptPolicy decides how many attempts a calibration round gets.
type AttemptPolicy interface {
	Name() string
	Attempts(baseAttempts, round, totalRounds, dims int) int
}

type FixedAttemptPolicy struct{}

func (FixedAttemptPolicy) Name() string { return "fixed" }

func (FixedAttemptPolicy) Attempts(baseAttempts, _round, _totalRounds, _dims int) int {
	if baseAttempts < 0 {
		return 0
	}
	return baseAttempts
}

type LinearDecayAttemptPolicy struct {
	MinAttempts int
}

func (LinearDecayAttemptPolicy) Name() string { return "linear_decay" }

func (p LinearDecayAttemptPolicy) Attempts(baseAttempts, round, totalRounds, _dims int) int {
	if baseAttempts <= 0 {
		return 0
	}
	if totalRounds <= 0 {
		return baseAttempts
	}
	remaining := totalRounds - round
	if remaining < 1 {
		remaining = 1
	}
	attempts := (baseAttempts * remaining) / totalRounds
	if attempts < p.MinAttempts {
		attempts = p.MinAttempts
	}
	if attempts < 0 {
		return 0
	}
	return attempts
}

// DimensionScaledAttemptPolicy grows attempts with the number of fitted
// parameters.
type DimensionScaledAttemptPolicy struct {
	Scale       float64
	MinAttempts int
	MaxAttempts int
}

func (DimensionScaledAttemptPolicy) Name() string { return "dimension_scaled" }

func (p DimensionScaledAttemptPolicy) Attempts(baseAttempts, _round, _totalRounds, dims int) int {
	if baseAttempts <= 0 {
		return 0
	}
	scale := p.Scale
	if scale <= 0 {
		scale = 1.0
	}
	attempts := int(float64(baseAttempts) * scale * (1.0 + float64(dims)/10.0))
	if attempts < p.MinAttempts {
		attempts = p.MinAttempts
	}
	if p.MaxAttempts > 0 && attempts > p.MaxAttempts {
		attempts = p.MaxAttempts
	}
	return attempts
}

// PowerAttemptPolicy is 10 + dims^Power, with the power term capped at 100.
type PowerAttemptPolicy struct {
	Power float64
}

func (PowerAttemptPolicy) Name() string { return "dimension_power" }

func (p PowerAttemptPolicy) Attempts(baseAttempts, _round, _totalRounds, dims int) int {
	if baseAttempts <= 0 {
		return 0
	}
	power := p.Power
	if power <= 0 {
		power = 1.0
	}
	scaled := satInt(int(math.Round(math.Pow(float64(dims), power))), 0, 100)
	return 10 + scaled
}

func AttemptPolicyFromConfig(name string, param float64) (AttemptPolicy, error) {
	switch NormalizeAttemptPolicyName(name) {
	case "fixed":
		return FixedAttemptPolicy{}, nil
	case "linear_decay":
		min := int(param)
		if min < 1 {
			min = 1
		}
		return LinearDecayAttemptPolicy{MinAttempts: min}, nil
	case "dimension_scaled":
		scale := param
		if scale <= 0 {
			scale = 1.0
		}
		return DimensionScaledAttemptPolicy{Scale: scale, MinAttempts: 1}, nil
	case "dimension_power":
		power := param
		if power <= 0 {
			power = 1.0
		}
		return PowerAttemptPolicy{Power: power}, nil
	default:
		return nil, fmt.Errorf("unsupported attempt policy: %s", name)
	}
}

func NormalizeAttemptPolicyName(name string) string {
	switch name {
	case "", "fixed", "const":
		return "fixed"
	case "scaled":
		return "dimension_scaled"
	case "power":
		return "dimension_power"
	default:
		return name
	}
}

func satInt(v, minV, maxV int) int {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}
