package ecmodel

import (
	"fmt"
	"math"
)

// SurfaceSequential integrates 2*Processes sequential one-electron
// transfers between adsorbed species. Species 0 starts at coverage gamma,
// every other species starts empty, and transfer j converts species j into
// species j+1 with Butler-Volmer kinetics. The double layer capacitance may
// vary with potential as a cubic.
type SurfaceSequential struct {
	Processes int
}

func (s SurfaceSequential) Integrate(params Parameters, current, times []float64) error {
	if s.Processes < 1 {
		return fmt.Errorf("surface model needs at least one process, got %d", s.Processes)
	}
	v, err := required(params, "Estart", "Ereverse", "dE", "omega", "phase", "Ru", "Cdl", "CdlE", "CdlE2", "CdlE3", "gamma", "Nt")
	if err != nil {
		return err
	}
	w := NewWaveform(v[0], v[1], v[2], v[3], v[4])

	transfers := 2 * s.Processes
	layer := &adsorbedLayer{
		cdl:   [4]float64{v[6], v[7], v[8], v[9]},
		e0:    make([]float64, transfers),
		k0:    make([]float64, transfers),
		alpha: make([]float64, transfers),
		kf:    make([]float64, transfers),
		kb:    make([]float64, transfers),
	}
	for j := 0; j < transfers; j++ {
		eName, kName, alphaName := transferNames(j)
		t, err := required(params, eName, kName, alphaName)
		if err != nil {
			return err
		}
		layer.e0[j], layer.k0[j], layer.alpha[j] = t[0], t[1], t[2]
	}

	species := transfers + 1
	layer.theta = make([]float64, species)
	layer.theta[0] = v[10]
	layer.pending = make([]float64, species)

	sys, err := newLinearSystem(species)
	if err != nil {
		return err
	}
	defer sys.destroy()
	sys.reserve()
	layer.sys = sys

	return march(layer, w, v[5], stepLength(w, v[11]), times, current)
}

type adsorbedLayer struct {
	cdl    [4]float64
	e0     []float64
	k0     []float64
	alpha  []float64
	kf, kb []float64

	theta   []float64
	pending []float64
	sys     *linearSystem
}

func (l *adsorbedLayer) rates(eff float64) {
	for j := range l.k0 {
		eta := eff - l.e0[j]
		l.kf[j] = l.k0[j] * math.Exp(-l.alpha[j]*eta)
		l.kb[j] = l.k0[j] * math.Exp((1-l.alpha[j])*eta)
	}
}

// faradaic is the anodic current of a coverage vector at the last rates.
func (l *adsorbedLayer) faradaic(theta []float64) float64 {
	total := 0.0
	for j := range l.kf {
		total += l.kf[j]*theta[j] - l.kb[j]*theta[j+1]
	}
	return -total
}

func (l *adsorbedLayer) initialCurrent(eff float64) float64 {
	l.rates(eff)
	return l.faradaic(l.theta)
}

func (l *adsorbedLayer) trial(eff, dt float64) (float64, error) {
	l.rates(eff)
	n := len(l.theta)
	sys := l.sys
	sys.clear()
	for i := 0; i < n; i++ {
		diag := 1.0
		if i > 0 {
			sys.add(i, i-1, -dt*l.kf[i-1])
			diag += dt * l.kb[i-1]
		}
		if i < n-1 {
			sys.add(i, i+1, -dt*l.kb[i])
			diag += dt * l.kf[i]
		}
		sys.add(i, i, diag)
		sys.addRHS(i, l.theta[i])
	}
	if err := sys.solve(); err != nil {
		return 0, err
	}
	sys.copyInto(l.pending)
	return l.faradaic(l.pending), nil
}

func (l *adsorbedLayer) charging(eff, prev, dt float64) float64 {
	c := l.cdl[0] * (1 + l.cdl[1]*eff + l.cdl[2]*eff*eff + l.cdl[3]*eff*eff*eff)
	return c * (eff - prev) / dt
}

func (l *adsorbedLayer) commit() {
	l.theta, l.pending = l.pending, l.theta
}
