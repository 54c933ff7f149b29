package ecfit

import (
	"fmt"
	"math"

	"ecfit/internal/ecmodel"
	"ecfit/internal/model"
	"ecfit/internal/stats"
	"ecfit/internal/tuning"
)

const (
	MeasureSumOfSquares = "sum_of_squares"
	MeasureHarmonic     = "harmonic"
)

func applyFitDefaults(req *FitRequest) {
	if req.Rounds <= 0 {
		req.Rounds = 1
	}
	if req.Attempts <= 0 {
		req.Attempts = 20
	}
	if req.Steps <= 0 {
		req.Steps = 3
	}
	if req.StepSize <= 0 {
		req.StepSize = 0.1
	}
	if req.PerturbationRange <= 0 {
		req.PerturbationRange = 1
	}
	if req.AnnealingFactor <= 0 {
		req.AnnealingFactor = 0.9
	}
	if req.CandidateSelection == "" {
		req.CandidateSelection = tuning.CandidateSelectBestSoFar
	}
	if req.Measure == "" {
		req.Measure = MeasureSumOfSquares
	}
}

// buildMeasure picks the error measure. The harmonic measure works on the
// nondimensional time axis, where the drive completes omega*T0 cycles per
// unit time.
func buildMeasure(name string, harmonics []int, times []float64, state *ecmodel.State) (tuning.ErrorMeasure, error) {
	switch name {
	case "", MeasureSumOfSquares, "sse":
		return tuning.SumOfSquares{}, nil
	case MeasureHarmonic, "fourier":
		if len(harmonics) == 0 {
			harmonics = []int{3, 4, 5, 6, 7}
		}
		freq := state.DriveFrequency() * state.Scales().T0
		h, err := tuning.NewHarmonicError(times, freq, harmonics)
		if err != nil {
			return nil, err
		}
		return h, nil
	default:
		return nil, fmt.Errorf("unsupported error measure: %s", name)
	}
}

// buildBounds converts dimensional bounds to the nondimensional box the
// calibrator searches.
func buildBounds(state *ecmodel.State, names []string, bounds map[string][2]float64) (*tuning.Bounds, error) {
	if len(bounds) == 0 {
		return nil, nil
	}
	out := &tuning.Bounds{Lower: make([]float64, len(names)), Upper: make([]float64, len(names))}
	for i, name := range names {
		b, ok := bounds[name]
		if !ok {
			return nil, fmt.Errorf("missing bounds for %s", name)
		}
		lo, err := state.NonDimensionalise(b[0], name)
		if err != nil {
			return nil, err
		}
		hi, err := state.NonDimensionalise(b[1], name)
		if err != nil {
			return nil, err
		}
		out.Lower[i] = math.Min(lo, hi)
		out.Upper[i] = math.Max(lo, hi)
	}
	if err := out.Validate(len(names)); err != nil {
		return nil, err
	}
	return out, nil
}

func runConfig(runID string, rec model.Recording, req FitRequest, measure string) stats.RunConfig {
	return stats.RunConfig{
		RunID:              runID,
		RecordingID:        rec.ID,
		Source:             rec.Source,
		Variant:            req.Model.Variant,
		Processes:          req.Model.Processes,
		Reversed:           req.Model.Reversed,
		Params:             req.Model.Params,
		Names:              append([]string(nil), req.Names...),
		Measure:            measure,
		Harmonics:          append([]int(nil), req.Harmonics...),
		IgnoreBegin:        req.IgnoreBegin,
		IgnoreEnd:          req.IgnoreEnd,
		Rounds:             req.Rounds,
		Attempts:           req.Attempts,
		AttemptPolicy:      tuning.NormalizeAttemptPolicyName(req.AttemptPolicy),
		AttemptPolicyParam: req.AttemptPolicyParam,
		Steps:              req.Steps,
		StepSize:           req.StepSize,
		PerturbationRange:  req.PerturbationRange,
		AnnealingFactor:    req.AnnealingFactor,
		MinImprovement:     req.MinImprovement,
		GoalError:          req.GoalError,
		CandidateSelection: tuning.NormalizeCandidateSelectionName(req.CandidateSelection),
		Seed:               req.Seed,
	}
}
