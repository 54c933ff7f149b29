package tuning

import (
	"context"
	"errors"
	"fmt"

	"ecfit/internal/ecmodel"
	"ecfit/internal/model"
)

// ObjectiveFn scores a nondimensional parameter vector; lower is better.
type ObjectiveFn func(ctx context.Context, x []float64) (float64, error)

// Report is the counters of one or more tuning runs.
type Report = model.CalibrationReport

func addReport(dst *Report, o Report) {
	dst.AttemptsPlanned += o.AttemptsPlanned
	dst.AttemptsExecuted += o.AttemptsExecuted
	dst.CandidateEvaluations += o.CandidateEvaluations
	dst.AcceptedCandidates += o.AcceptedCandidates
	dst.RejectedCandidates += o.RejectedCandidates
	dst.FailedSimulations += o.FailedSimulations
	dst.GoalReached = dst.GoalReached || o.GoalReached
}

type Result struct {
	Params       []float64 `json:"params"`
	Error        float64   `json:"error"`
	InitialError float64   `json:"initial_error"`
	History      []float64 `json:"history,omitempty"`
	Report       Report    `json:"report"`
}

type Tuner interface {
	Name() string
	Tune(ctx context.Context, x0 []float64, attempts int, objective ObjectiveFn) ([]float64, error)
}

type ReportingTuner interface {
	Tuner
	TuneWithReport(ctx context.Context, x0 []float64, attempts int, objective ObjectiveFn) (Result, error)
}

// Problem pairs a forward model with a measured trace on the same
// nondimensional time grid.
type Problem struct {
	Model   ecmodel.ForwardModel
	Times   []float64
	Values  []float64
	Measure ErrorMeasure
}

func (p Problem) Validate() error {
	if p.Model == nil {
		return errors.New("problem requires a forward model")
	}
	if p.Measure == nil {
		return errors.New("problem requires an error measure")
	}
	if len(p.Times) == 0 || len(p.Times) != len(p.Values) {
		return fmt.Errorf("problem requires equal non-empty times and values, got %d and %d", len(p.Times), len(p.Values))
	}
	return nil
}

// Evaluate simulates x and scores it against the measured values.
func (p Problem) Evaluate(x []float64) (float64, error) {
	simulated, err := p.Model.Simulate(x, p.Times)
	if err != nil {
		return 0, err
	}
	return p.Measure.Evaluate(simulated, p.Values)
}

// Objective adapts the problem to a tuner.
func (p Problem) Objective() ObjectiveFn {
	return func(ctx context.Context, x []float64) (float64, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return p.Evaluate(x)
	}
}
