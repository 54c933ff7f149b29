package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// FitSummary describes how well a simulated trace matches the measurement.
type FitSummary struct {
	Samples        int     `json:"samples"`
	RMSE           float64 `json:"rmse"`
	MaxAbsResidual float64 `json:"max_abs_residual"`
	RSquared       float64 `json:"r_squared"`
}

func Summarize(trace Trace) (FitSummary, error) {
	if err := trace.validate(); err != nil {
		return FitSummary{}, err
	}
	n := len(trace.Times)
	if n == 0 {
		return FitSummary{}, nil
	}
	residual := make([]float64, n)
	floats.SubTo(residual, trace.Measured, trace.Simulated)
	maxAbs := 0.0
	for _, r := range residual {
		maxAbs = math.Max(maxAbs, math.Abs(r))
	}
	return FitSummary{
		Samples:        n,
		RMSE:           floats.Norm(residual, 2) / math.Sqrt(float64(n)),
		MaxAbsResidual: maxAbs,
		RSquared:       stat.RSquaredFrom(trace.Simulated, trace.Measured, nil),
	}, nil
}
