package tuning

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// ErrorMeasure scores a simulated trace against a measured one.
type ErrorMeasure interface {
	Name() string
	Evaluate(simulated, measured []float64) (float64, error)
}

func checkLengths(simulated, measured []float64) error {
	if len(simulated) != len(measured) {
		return fmt.Errorf("trace length mismatch: simulated=%d measured=%d", len(simulated), len(measured))
	}
	if len(simulated) == 0 {
		return errors.New("empty traces")
	}
	return nil
}

// SumOfSquares is the squared Euclidean distance between the traces.
type SumOfSquares struct{}

func (SumOfSquares) Name() string { return "sum_of_squares" }

func (SumOfSquares) Evaluate(simulated, measured []float64) (float64, error) {
	if err := checkLengths(simulated, measured); err != nil {
		return 0, err
	}
	d := floats.Distance(simulated, measured, 2)
	return d * d, nil
}

// HarmonicError compares traces in the frequency domain, keeping only the
// bands around selected harmonics of the drive. Harmonic 0 is the dc band
// [0, Bandwidth/2]; harmonic h is h*Frequency ± Bandwidth/2. Frequencies are
// in cycles per unit of the time axis.
type HarmonicError struct {
	Frequency float64
	Dt        float64
	Harmonics []int
	Weights   []float64
	Bandwidth float64
}

// NewHarmonicError takes the sample spacing from the first two times and
// sets the bandwidth to a fifth of the drive frequency.
func NewHarmonicError(times []float64, frequency float64, harmonics []int) (*HarmonicError, error) {
	if len(times) < 2 {
		return nil, errors.New("harmonic error needs at least two times")
	}
	h := &HarmonicError{
		Frequency: frequency,
		Dt:        times[1] - times[0],
		Harmonics: append([]int(nil), harmonics...),
		Bandwidth: frequency / 5,
	}
	return h, h.validate()
}

func (h *HarmonicError) Name() string { return "harmonic" }

func (h *HarmonicError) validate() error {
	if !(h.Frequency > 0) || math.IsInf(h.Frequency, 0) {
		return fmt.Errorf("harmonic error frequency must be positive, got %v", h.Frequency)
	}
	if !(h.Dt > 0) {
		return fmt.Errorf("harmonic error sample spacing must be positive, got %v", h.Dt)
	}
	if len(h.Harmonics) == 0 {
		return errors.New("harmonic error needs at least one harmonic")
	}
	if h.Weights != nil && len(h.Weights) != len(h.Harmonics) {
		return fmt.Errorf("harmonic error has %d weights for %d harmonics", len(h.Weights), len(h.Harmonics))
	}
	for _, n := range h.Harmonics {
		if n < 0 {
			return fmt.Errorf("negative harmonic %d", n)
		}
	}
	return nil
}

// Response returns the band weight applied to each coefficient of an n
// sample real FFT.
func (h *HarmonicError) Response(n int) []float64 {
	fft := fourier.NewFFT(n)
	bw := h.Bandwidth
	if bw <= 0 {
		bw = h.Frequency / 5
	}
	out := make([]float64, n/2+1)
	for k := range out {
		f := fft.Freq(k) / h.Dt
		for i, harmonic := range h.Harmonics {
			w := 1.0
			if h.Weights != nil {
				w = h.Weights[i]
			}
			centre := float64(harmonic) * h.Frequency
			lo, hi := centre-bw/2, centre+bw/2
			if harmonic == 0 {
				lo, hi = 0, bw/2
			}
			if f >= lo && f <= hi {
				out[k] += w
			}
		}
	}
	return out
}

func (h *HarmonicError) Evaluate(simulated, measured []float64) (float64, error) {
	if err := checkLengths(simulated, measured); err != nil {
		return 0, err
	}
	if err := h.validate(); err != nil {
		return 0, err
	}
	residual := make([]float64, len(simulated))
	floats.SubTo(residual, simulated, measured)

	n := len(residual)
	coeffs := fourier.NewFFT(n).Coefficients(nil, residual)
	response := h.Response(n)
	total := 0.0
	for k, c := range coeffs {
		if response[k] == 0 {
			continue
		}
		a := cmplx.Abs(c)
		total += response[k] * a * a
	}
	return total / float64(n), nil
}
