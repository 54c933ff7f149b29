package ecmodel

import (
	"errors"
	"math"
)

const (
	meshGrowth     = 1.02
	meshDepthSigma = 6.0
)

// ImplicitDiffusion integrates a single solution-phase electron transfer
// A + e- <-> B with equal diffusion coefficients. Diffusion is stepped with
// backward Euler on an exponentially expanding mesh, the surface obeys
// Butler-Volmer kinetics and the uncompensated resistance couples the
// faradaic and charging currents through the effective potential.
type ImplicitDiffusion struct{}

func (ImplicitDiffusion) Integrate(params Parameters, current, times []float64) error {
	v, err := required(params, "Estart", "Ereverse", "dE", "omega", "phase", "k0", "alpha", "E0", "Ru", "Cdl", "Nx", "Nt")
	if err != nil {
		return err
	}
	if len(times) == 0 {
		return nil
	}
	w := NewWaveform(v[0], v[1], v[2], v[3], v[4])
	nx := int(v[10])
	if nx < 3 {
		return errors.New("diffusion mesh needs at least 3 points")
	}

	cell, err := newDiffusionCell(nx, times[len(times)-1], v[5], v[6], v[7], v[9])
	if err != nil {
		return err
	}
	defer cell.sys.destroy()

	return march(cell, w, v[8], stepLength(w, v[11]), times, current)
}

type diffusionCell struct {
	k0, alpha, e0, cdl float64

	h       []float64 // h[i] = x[i+1]-x[i]
	conc    []float64 // committed concentration of A
	pending []float64
	sys     *linearSystem
}

func newDiffusionCell(intervals int, tEnd, k0, alpha, e0, cdl float64) (*diffusionCell, error) {
	depth := meshDepthSigma * math.Sqrt(math.Max(tEnd, 1))
	h0 := depth * (meshGrowth - 1) / (math.Pow(meshGrowth, float64(intervals)) - 1)
	h := make([]float64, intervals)
	for i := range h {
		h[i] = h0 * math.Pow(meshGrowth, float64(i))
	}

	points := intervals + 1
	sys, err := newLinearSystem(points)
	if err != nil {
		return nil, err
	}
	sys.reserve()

	conc := make([]float64, points)
	for i := range conc {
		conc[i] = 1
	}
	return &diffusionCell{
		k0:      k0,
		alpha:   alpha,
		e0:      e0,
		cdl:     cdl,
		h:       h,
		conc:    conc,
		pending: make([]float64, points),
		sys:     sys,
	}, nil
}

func (c *diffusionCell) rates(eff float64) (kf, kb float64) {
	eta := eff - c.e0
	return c.k0 * math.Exp(-c.alpha*eta), c.k0 * math.Exp((1-c.alpha)*eta)
}

// flux is the anodic faradaic current for a concentration profile.
func (c *diffusionCell) flux(conc []float64) float64 {
	return -(conc[1] - conc[0]) / c.h[0]
}

func (c *diffusionCell) initialCurrent(float64) float64 {
	return c.flux(c.conc)
}

func (c *diffusionCell) trial(eff, dt float64) (float64, error) {
	kf, kb := c.rates(eff)
	n := len(c.conc)
	sys := c.sys
	sys.clear()

	// Surface: (c1-c0)/h0 = kf*c0 - kb*(1-c0).
	inv := 1 / c.h[0]
	sys.add(0, 0, -(inv + kf + kb))
	sys.add(0, 1, inv)
	sys.addRHS(0, -kb)

	for i := 1; i < n-1; i++ {
		hl, hr := c.h[i-1], c.h[i]
		a := 2 / (hl * (hl + hr))
		b := 2 / (hr * (hl + hr))
		sys.add(i, i-1, -dt*a)
		sys.add(i, i, 1+dt*(a+b))
		sys.add(i, i+1, -dt*b)
		sys.addRHS(i, c.conc[i])
	}

	// Bulk.
	sys.add(n-1, n-1, 1)
	sys.addRHS(n-1, 1)

	if err := sys.solve(); err != nil {
		return 0, err
	}
	sys.copyInto(c.pending)
	return c.flux(c.pending), nil
}

func (c *diffusionCell) charging(eff, prev, dt float64) float64 {
	return c.cdl * (eff - prev) / dt
}

func (c *diffusionCell) commit() {
	c.conc, c.pending = c.pending, c.conc
}
