package tuning

import (
	"context"
	"errors"
	"math"
)

// FitOptions configures a multi-round calibration.
type FitOptions struct {
	Rounds       int
	BaseAttempts int
	Policy       AttemptPolicy
}

// Fit runs rounds of the tuner on problem, each starting from the previous
// round's best vector, and sums their reports. History holds the best error
// after each round.
func Fit(ctx context.Context, tuner ReportingTuner, problem Problem, x0 []float64, opts FitOptions) (Result, error) {
	if tuner == nil {
		return Result{}, errors.New("tuner is required")
	}
	if err := problem.Validate(); err != nil {
		return Result{}, err
	}
	rounds := opts.Rounds
	if rounds <= 0 {
		rounds = 1
	}
	policy := opts.Policy
	if policy == nil {
		policy = FixedAttemptPolicy{}
	}

	objective := problem.Objective()
	current := Result{Params: clone(x0)}
	var total Report
	var history []float64
	initial := math.NaN()
	for round := 0; round < rounds; round++ {
		attempts := policy.Attempts(opts.BaseAttempts, round, rounds, len(x0))
		res, err := tuner.TuneWithReport(ctx, current.Params, attempts, objective)
		if err != nil {
			return Result{}, err
		}
		addReport(&total, res.Report)
		if round == 0 {
			initial = res.InitialError
		}
		history = append(history, res.Error)
		current = res
		if res.Report.GoalReached {
			break
		}
	}
	current.Report = total
	current.InitialError = initial
	current.History = history
	return current, nil
}
