package conditioning

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"ecfit/internal/nondim"
)

const snapTolerance = 1e-9

// Trim drops begin leading and end trailing samples.
func Trim(s Series, begin, end int) (Series, error) {
	if begin < 0 || end < 0 {
		return Series{}, fmt.Errorf("trim counts must be non-negative: begin=%d end=%d", begin, end)
	}
	n := s.Len()
	if begin+end > n {
		return Series{}, fmt.Errorf("%w: trimming %d+%d samples from %d", ErrInsufficientData, begin, end, n)
	}
	out := s.slice(begin, n-end)
	if out.Len() < 2 {
		return Series{}, fmt.Errorf("%w: %d samples left after trimming", ErrInsufficientData, out.Len())
	}
	return out, nil
}

// SamplesPerPeriod returns 1/(frequency*dt), with dt taken between samples
// probe-1 and probe (clamped to the series). A value within 1e-9 relative of
// an integer is snapped to it so float jitter in recorded times does not
// discard a whole period.
func SamplesPerPeriod(s Series, frequency float64, probe int) (float64, error) {
	n := s.Len()
	if n < 2 {
		return 0, fmt.Errorf("%w: %d samples", ErrInsufficientData, n)
	}
	if probe < 1 {
		probe = 1
	}
	if probe > n-1 {
		probe = n - 1
	}
	dt := s.Times[probe] - s.Times[probe-1]
	spp := 1 / (frequency * dt)
	if math.IsNaN(spp) || math.IsInf(spp, 0) || spp <= 0 {
		return 0, fmt.Errorf("%w: samples per period %v (frequency=%v dt=%v)", ErrInvalidFrequency, spp, frequency, dt)
	}
	if r := math.Round(spp); r > 0 && math.Abs(spp-r) <= snapTolerance*spp {
		spp = r
	}
	return spp, nil
}

// AlignToPeriods drops the int(len mod spp) trailing samples so the series
// covers whole drive periods, and returns how many were dropped.
func AlignToPeriods(s Series, spp float64) (Series, int, error) {
	if math.IsNaN(spp) || math.IsInf(spp, 0) || spp <= 0 {
		return Series{}, 0, fmt.Errorf("%w: samples per period %v", ErrInvalidFrequency, spp)
	}
	n := s.Len()
	discard := int(math.Mod(float64(n), spp))
	if n-discard < 2 {
		return Series{}, 0, fmt.Errorf("%w: %d samples is less than one period of %v", ErrInsufficientData, n, spp)
	}
	return s.slice(0, n-discard), discard, nil
}

// WindowSize is floor(spp/target), at least 1.
func WindowSize(spp float64, target int) int {
	if target < 1 {
		target = 1
	}
	w := int(math.Floor(spp / float64(target)))
	if w < 1 {
		return 1
	}
	return w
}

// Downsample replaces each consecutive window of samples with its mean. A
// short final window is averaged over the samples it has.
func Downsample(s Series, window int) Series {
	if window <= 1 {
		return s.Clone()
	}
	n := s.Len()
	m := (n + window - 1) / window
	out := Series{Times: make([]float64, m), Current: make([]float64, m)}
	for i := 0; i < m; i++ {
		from, to := i*window, (i+1)*window
		if to > n {
			to = n
		}
		out.Times[i] = stat.Mean(s.Times[from:to], nil)
		out.Current[i] = stat.Mean(s.Current[from:to], nil)
	}
	return out
}

// Rescale divides current by I0 and time by T0.
func Rescale(s Series, scales nondim.Scales) (Series, error) {
	if scales.I0 == 0 || scales.T0 == 0 {
		return Series{}, &nondim.ParameterError{Name: "scales", Detail: "zero current or time scale", Err: nondim.ErrInvalidParameter}
	}
	out := Series{Times: make([]float64, s.Len()), Current: make([]float64, s.Len())}
	for i := range s.Times {
		out.Times[i] = s.Times[i] / scales.T0
		out.Current[i] = s.Current[i] / scales.I0
	}
	return out, nil
}
