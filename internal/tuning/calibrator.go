package tuning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"

	"ecfit/internal/ecmodel"
)

// Calibrator is a stochastic hill climber over a parameter vector. Each
// attempt perturbs one or more candidate bases with an annealed step and
// keeps the best candidate if it lowers the error by more than
// MinImprovement.
type Calibrator struct {
	Rand               *rand.Rand
	Steps              int
	StepSize           float64
	PerturbationRange  float64
	AnnealingFactor    float64
	MinImprovement     float64
	GoalError          float64
	CandidateSelection string
	Bounds             *Bounds
	Logger             *slog.Logger
	mu                 sync.Mutex
}

const (
	CandidateSelectBestSoFar = "best_so_far"
	CandidateSelectOriginal  = "original"
	CandidateSelectDynamicA  = "dynamic"
	CandidateSelectDynamic   = "dynamic_random"
	CandidateSelectAll       = "all"
	CandidateSelectAllRandom = "all_random"
	CandidateSelectRecent    = "recent"
	CandidateSelectRecentRnd = "recent_random"
)

func (c *Calibrator) Name() string {
	return "hillclimb"
}

func (c *Calibrator) Tune(ctx context.Context, x0 []float64, attempts int, objective ObjectiveFn) ([]float64, error) {
	res, err := c.TuneWithReport(ctx, x0, attempts, objective)
	if err != nil {
		return nil, err
	}
	return res.Params, nil
}

func (c *Calibrator) validate(n int, objective ObjectiveFn) error {
	if c == nil || c.Rand == nil {
		return errors.New("random source is required")
	}
	if c.Steps <= 0 {
		return errors.New("steps must be > 0")
	}
	if c.StepSize <= 0 {
		return errors.New("step size must be > 0")
	}
	if c.PerturbationRange < 0 {
		return errors.New("perturbation range must be >= 0")
	}
	if c.AnnealingFactor < 0 {
		return errors.New("annealing factor must be >= 0")
	}
	if c.MinImprovement < 0 {
		return errors.New("min improvement must be >= 0")
	}
	if objective == nil {
		return errors.New("objective function is required")
	}
	if c.Bounds != nil {
		if err := c.Bounds.Validate(n); err != nil {
			return err
		}
	}
	switch NormalizeCandidateSelectionName(c.CandidateSelection) {
	case CandidateSelectBestSoFar, CandidateSelectOriginal, CandidateSelectDynamicA, CandidateSelectDynamic,
		CandidateSelectAll, CandidateSelectAllRandom, CandidateSelectRecent, CandidateSelectRecentRnd:
		return nil
	default:
		return fmt.Errorf("unsupported candidate selection: %s", c.CandidateSelection)
	}
}

func (c *Calibrator) TuneWithReport(ctx context.Context, x0 []float64, attempts int, objective ObjectiveFn) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := c.validate(len(x0), objective); err != nil {
		return Result{}, err
	}
	log := c.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	perturbationRange := c.PerturbationRange
	if perturbationRange == 0 {
		perturbationRange = 1.0
	}
	annealingFactor := c.AnnealingFactor
	if annealingFactor == 0 {
		annealingFactor = 1.0
	}

	report := Report{AttemptsPlanned: max(attempts, 0)}
	original := c.clamp(clone(x0))
	best := clone(original)
	bestErr, err := c.score(ctx, objective, best, &report)
	if err != nil {
		return Result{}, err
	}
	if math.IsInf(bestErr, 1) {
		return Result{}, fmt.Errorf("initial parameters do not simulate: %w", ecmodel.ErrSimulation)
	}
	if attempts <= 0 || len(x0) == 0 || c.goalReached(bestErr) {
		report.GoalReached = c.goalReached(bestErr)
		return Result{Params: best, Error: bestErr, InitialError: bestErr, Report: report}, nil
	}
	initialErr := bestErr
	scales := c.scales(original)
	recent := clone(best)

	for a := 0; a < attempts; a++ {
		report.AttemptsExecuted++
		localBest := clone(best)
		localBestErr := bestErr
		for _, base := range c.candidateBases(best, original, recent) {
			candidate, err := c.perturbCandidate(ctx, base, scales, perturbationRange, annealingFactor)
			if err != nil {
				return Result{}, err
			}
			candidateErr, err := c.score(ctx, objective, candidate, &report)
			if err != nil {
				return Result{}, err
			}
			if candidateErr < localBestErr-c.MinImprovement {
				localBest = candidate
				localBestErr = candidateErr
			}
		}
		recent = clone(localBest)
		if localBestErr < bestErr-c.MinImprovement {
			best = localBest
			bestErr = localBestErr
			report.AcceptedCandidates++
			log.Info("calibration improved", "attempt", a+1, "error", bestErr)
		} else {
			report.RejectedCandidates++
		}
		if c.goalReached(bestErr) {
			report.GoalReached = true
			break
		}
	}
	return Result{Params: best, Error: bestErr, InitialError: initialErr, Report: report}, nil
}

// score evaluates x. A candidate the simulator cannot solve scores +Inf
// instead of aborting the search.
func (c *Calibrator) score(ctx context.Context, objective ObjectiveFn, x []float64, report *Report) (float64, error) {
	report.CandidateEvaluations++
	v, err := objective(ctx, x)
	if errors.Is(err, ecmodel.ErrSimulation) {
		report.FailedSimulations++
		return math.Inf(1), nil
	}
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) {
		return math.Inf(1), nil
	}
	return v, nil
}

func (c *Calibrator) goalReached(errValue float64) bool {
	return c.GoalError > 0 && errValue <= c.GoalError
}

// scales gives each coordinate its perturbation unit: the bound width when
// bounded, otherwise the starting magnitude (at least 1).
func (c *Calibrator) scales(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if c.Bounds != nil {
			out[i] = c.Bounds.Upper[i] - c.Bounds.Lower[i]
			continue
		}
		out[i] = math.Max(math.Abs(v), 1)
	}
	return out
}

func (c *Calibrator) clamp(x []float64) []float64 {
	if c.Bounds != nil {
		c.Bounds.Clamp(x)
	}
	return x
}

func (c *Calibrator) randIntn(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Rand.Intn(n)
}

func (c *Calibrator) randFloat64() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Rand.Float64()
}

func clone(x []float64) []float64 {
	return append([]float64(nil), x...)
}

func NormalizeCandidateSelectionName(name string) string {
	switch name {
	case "", CandidateSelectBestSoFar:
		return CandidateSelectBestSoFar
	case "active", "current":
		return CandidateSelectAll
	case "active_random", "current_random":
		return CandidateSelectAllRandom
	case "lastgen":
		return CandidateSelectOriginal
	default:
		return name
	}
}

func (c *Calibrator) candidateBases(best, original, recent []float64) [][]float64 {
	switch NormalizeCandidateSelectionName(c.CandidateSelection) {
	case CandidateSelectDynamic:
		return c.randomSubset([][]float64{best, original})
	case CandidateSelectAllRandom:
		return c.randomSubset([][]float64{best, original, recent})
	case CandidateSelectRecentRnd:
		return c.randomSubset([][]float64{recent})
	case CandidateSelectOriginal:
		return [][]float64{clone(original)}
	case CandidateSelectDynamicA:
		return [][]float64{clone(best), clone(original)}
	case CandidateSelectRecent:
		return [][]float64{clone(recent)}
	case CandidateSelectAll:
		return [][]float64{clone(best), clone(original), clone(recent)}
	default:
		return [][]float64{clone(best)}
	}
}

func (c *Calibrator) randomSubset(pool [][]float64) [][]float64 {
	if len(pool) <= 1 {
		return [][]float64{clone(pool[0])}
	}
	p := 1 / math.Sqrt(float64(len(pool)))
	chosen := make([][]float64, 0, len(pool))
	for i := range pool {
		if c.randFloat64() < p {
			chosen = append(chosen, clone(pool[i]))
		}
	}
	if len(chosen) > 0 {
		return chosen
	}
	return [][]float64{clone(pool[c.randIntn(len(pool))])}
}

func (c *Calibrator) perturbCandidate(ctx context.Context, base, scales []float64, perturbationRange, annealingFactor float64) ([]float64, error) {
	candidate := clone(base)
	for s := 0; s < c.Steps; s++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		idx := c.randIntn(len(candidate))
		spread := c.StepSize * perturbationRange * math.Pow(annealingFactor, float64(s)) * scales[idx]
		candidate[idx] += (c.randFloat64()*2 - 1) * spread
	}
	return c.clamp(candidate), nil
}

// Bounds is a closed box on the parameter vector.
type Bounds struct {
	Lower []float64 `json:"lower"`
	Upper []float64 `json:"upper"`
}

func (b *Bounds) Validate(n int) error {
	if len(b.Lower) != n || len(b.Upper) != n {
		return fmt.Errorf("bounds must have %d entries, got lower=%d upper=%d", n, len(b.Lower), len(b.Upper))
	}
	for i := range b.Lower {
		if !(b.Lower[i] < b.Upper[i]) {
			return fmt.Errorf("bound %d is empty: [%v, %v]", i, b.Lower[i], b.Upper[i])
		}
	}
	return nil
}

func (b *Bounds) Clamp(x []float64) {
	for i := range x {
		x[i] = math.Min(math.Max(x[i], b.Lower[i]), b.Upper[i])
	}
}
