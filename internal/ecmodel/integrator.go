package ecmodel

import (
	"fmt"
	"math"
)

// Integrator computes the nondimensional current at each of times for a
// full nondimensional parameter mapping. It must be deterministic and write
// exactly len(times) values into current.
type Integrator interface {
	Integrate(params Parameters, current, times []float64) error
}

// IntegratorFunc adapts a function to Integrator.
type IntegratorFunc func(params Parameters, current, times []float64) error

func (f IntegratorFunc) Integrate(params Parameters, current, times []float64) error {
	return f(params, current, times)
}

const (
	secantTolerance = 1e-10
	secantMaxIter   = 50
)

// electrode is the per-model part of an implicit time step. trial solves the
// model for one step of length dt at effective potential eff and keeps the
// result pending; commit accepts the last trial.
type electrode interface {
	initialCurrent(eff float64) float64
	trial(eff, dt float64) (faradaic float64, err error)
	charging(eff, prev, dt float64) float64
	commit()
}

// march advances e from t=0 through every requested time, subdividing each
// interval into equal steps no longer than maxStep.
func march(e electrode, w Waveform, ru, maxStep float64, times, current []float64) error {
	t := 0.0
	prev := w.At(0)
	last := e.initialCurrent(prev)
	for k, target := range times {
		if target > t {
			span := target - t
			steps := int(math.Ceil(span / maxStep))
			if steps < 1 {
				steps = 1
			}
			dt := span / float64(steps)
			for n := 1; n <= steps; n++ {
				tn := t + span*float64(n)/float64(steps)
				eff, i, err := settle(e, w.At(tn), prev, dt, ru)
				if err != nil {
					return fmt.Errorf("t=%g: %w", tn, err)
				}
				e.commit()
				prev = eff
				last = i
			}
			t = target
		}
		current[k] = last
	}
	return nil
}

// settle finds the effective electrode potential eff = applied - Ru*I(eff)
// by secant iteration and returns it with the total current. The pending
// trial of e always corresponds to the returned potential.
func settle(e electrode, applied, prev, dt, ru float64) (float64, float64, error) {
	total := func(eff float64) (float64, error) {
		faradaic, err := e.trial(eff, dt)
		if err != nil {
			return 0, err
		}
		return faradaic + e.charging(eff, prev, dt), nil
	}
	if ru == 0 {
		i, err := total(applied)
		return applied, i, err
	}

	residual := func(eff float64) (float64, float64, error) {
		i, err := total(eff)
		if err != nil {
			return 0, 0, err
		}
		return eff + ru*i - applied, i, nil
	}

	a := prev
	if a == applied {
		a = applied - 1e-6
	}
	ga, _, err := residual(a)
	if err != nil {
		return 0, 0, err
	}
	b := applied
	gb, ib, err := residual(b)
	if err != nil {
		return 0, 0, err
	}
	for iter := 0; iter < secantMaxIter; iter++ {
		if gb == 0 {
			return b, ib, nil
		}
		denom := gb - ga
		if denom == 0 || math.IsNaN(denom) {
			break
		}
		c := b - gb*(b-a)/denom
		a, ga = b, gb
		b = c
		gb, ib, err = residual(b)
		if err != nil {
			return 0, 0, err
		}
		if math.Abs(b-a) <= secantTolerance*(1+math.Abs(b)) {
			return b, ib, nil
		}
	}
	return 0, 0, fmt.Errorf("effective potential did not converge (applied=%g, residual=%g)", applied, gb)
}

// stepLength picks the largest step: steps per drive period, or per unit
// time when there is no ac component.
func stepLength(w Waveform, stepsPerPeriod float64) float64 {
	if stepsPerPeriod < 1 {
		stepsPerPeriod = 1
	}
	period := w.Period()
	if period == 0 {
		period = 1
	}
	return period / stepsPerPeriod
}

func required(params Parameters, names ...string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, name := range names {
		v, ok := params[name]
		if !ok {
			return nil, fmt.Errorf("parameter %s is required by the integrator", name)
		}
		out[i] = v
	}
	return out, nil
}
