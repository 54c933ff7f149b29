package ecmodel

import "math"

// Waveform is the applied potential in nondimensional units: a triangular
// dc ramp at unit scan rate from Estart to Ereverse and back, plus a
// sinusoid of amplitude DE.
type Waveform struct {
	Estart    float64
	Ereverse  float64
	DE        float64
	Omega     float64
	Phase     float64
	treverse  float64
	direction float64
}

func NewWaveform(estart, ereverse, dE, omega, phase float64) Waveform {
	direction := -1.0
	if ereverse > estart {
		direction = 1
	}
	return Waveform{
		Estart:    estart,
		Ereverse:  ereverse,
		DE:        dE,
		Omega:     omega,
		Phase:     phase,
		treverse:  math.Abs(estart - ereverse),
		direction: direction,
	}
}

// DC is the ramp component at time t.
func (w Waveform) DC(t float64) float64 {
	if t < w.treverse {
		return w.Estart + w.direction*t
	}
	return w.Ereverse - w.direction*(t-w.treverse)
}

// At is the total applied potential at time t.
func (w Waveform) At(t float64) float64 {
	return w.DC(t) + w.DE*math.Sin(w.Omega*t+w.Phase)
}

// Rate is dE/dt at time t.
func (w Waveform) Rate(t float64) float64 {
	dc := w.direction
	if t > w.treverse {
		dc = -w.direction
	}
	return dc + w.Omega*w.DE*math.Cos(w.Omega*t+w.Phase)
}

// Period is the drive period, or 0 when there is no ac component.
func (w Waveform) Period() float64 {
	if w.Omega <= 0 {
		return 0
	}
	return 2 * math.Pi / w.Omega
}
