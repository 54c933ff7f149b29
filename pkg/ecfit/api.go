package ecfit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"ecfit/internal/conditioning"
	"ecfit/internal/ecmodel"
	"ecfit/internal/model"
	"ecfit/internal/nondim"
	"ecfit/internal/recording"
	"ecfit/internal/stats"
	"ecfit/internal/storage"
	"ecfit/internal/tuning"
)

const (
	defaultRunsDir    = "runs"
	defaultExportsDir = "exports"
	defaultDBPath     = "ecfit.db"
)

type Options struct {
	StoreKind  string
	DBPath     string
	RunsDir    string
	ExportsDir string
	Logger     *slog.Logger
}

type Client struct {
	store   storage.Store
	invoker *ecmodel.Invoker
	log     *slog.Logger

	runsDir    string
	exportsDir string
}

type SimulateRequest struct {
	Model model.ModelSpec
	// Times are nondimensional; nil uses the model's suggested grid.
	Times []float64
}

type SimulateResult struct {
	Times   []float64
	Current []float64
	Scales  Scales
}

// Scales are the characteristic scales of a model, for converting results
// back to SI units.
type Scales = nondim.Scales

type ConditionRequest struct {
	RecordingPath string
	Model         model.ModelSpec
	IgnoreBegin   int
	IgnoreEnd     int
	Save          bool
}

type ConditionResult struct {
	RecordingID string
	Times       []float64
	Current     []float64
	Report      conditioning.Report
}

type FitRequest struct {
	RunID         string
	RecordingPath string
	Model         model.ModelSpec
	Names         []string
	// Bounds are dimensional [lower, upper] pairs keyed by name. Either every
	// fitted name is bounded or none is.
	Bounds             map[string][2]float64
	IgnoreBegin        int
	IgnoreEnd          int
	Measure            string
	Harmonics          []int
	Rounds             int
	Attempts           int
	AttemptPolicy      string
	AttemptPolicyParam float64
	Steps              int
	StepSize           float64
	PerturbationRange  float64
	AnnealingFactor    float64
	MinImprovement     float64
	GoalError          float64
	CandidateSelection string
	Seed               int64
	Render             bool
}

type FitSummary struct {
	RunID        string
	RecordingID  string
	ArtifactsDir string
	Names        []string
	Best         map[string]float64
	InitialError float64
	FinalError   float64
	History      []float64
	Report       model.CalibrationReport
	Conditioning conditioning.Report
	Fit          stats.FitSummary
}

type RunsRequest struct {
	Limit       int
	RecordingID string
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
	Render bool
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		invoker:    ecmodel.NewInvoker(),
		log:        log,
		runsDir:    runsDir,
		exportsDir: exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

// DefaultModel returns the built-in reference experiment for a variant name.
func DefaultModel(variant string) (model.ModelSpec, error) {
	v, err := ecmodel.ParseVariant(variant, 3)
	if err != nil {
		return model.ModelSpec{}, err
	}
	var cfg ecmodel.Config
	switch v.Kind {
	case ecmodel.SingleTransfer:
		cfg = ecmodel.DefaultSingleTransfer()
	case ecmodel.FixedThreeProcess:
		cfg = ecmodel.DefaultPOM()
	default:
		return model.ModelSpec{}, fmt.Errorf("no default experiment for variant %s", v)
	}
	return model.ModelSpec{
		Variant:   cfg.Variant.Kind.String(),
		Processes: cfg.Variant.Processes,
		Reversed:  cfg.Reversed,
		Params:    cfg.Params.Clone(),
	}, nil
}

// NewState builds a model state from a spec.
func NewState(spec model.ModelSpec) (*ecmodel.State, error) {
	v, err := ecmodel.ParseVariant(spec.Variant, spec.Processes)
	if err != nil {
		return nil, err
	}
	return ecmodel.New(ecmodel.Config{
		Variant:  v,
		Reversed: spec.Reversed,
		Params:   ecmodel.Parameters(spec.Params),
	})
}

func (c *Client) Simulate(ctx context.Context, req SimulateRequest) (SimulateResult, error) {
	if err := ctx.Err(); err != nil {
		return SimulateResult{}, err
	}
	state, err := NewState(req.Model)
	if err != nil {
		return SimulateResult{}, err
	}
	times := req.Times
	if times == nil {
		times = state.SuggestTimes()
	}
	current, err := c.invoker.Simulate(state, times)
	if err != nil {
		return SimulateResult{}, err
	}
	return SimulateResult{
		Times:   append([]float64(nil), times...),
		Current: current,
		Scales:  state.Scales(),
	}, nil
}

func (c *Client) Condition(ctx context.Context, req ConditionRequest) (ConditionResult, error) {
	state, err := NewState(req.Model)
	if err != nil {
		return ConditionResult{}, err
	}
	raw, series, report, err := c.condition(state, req.RecordingPath, req.IgnoreBegin, req.IgnoreEnd)
	if err != nil {
		return ConditionResult{}, err
	}
	out := ConditionResult{Times: series.Times, Current: series.Current, Report: report}
	if req.Save {
		rec, err := c.saveRecording(ctx, req.RecordingPath, raw)
		if err != nil {
			return ConditionResult{}, err
		}
		out.RecordingID = rec.ID
	}
	return out, nil
}

func (c *Client) condition(state *ecmodel.State, path string, begin, end int) (conditioning.Series, conditioning.Series, conditioning.Report, error) {
	raw, err := recording.Load(path)
	if err != nil {
		return conditioning.Series{}, conditioning.Series{}, conditioning.Report{}, err
	}
	conditioner := conditioning.New(conditioning.Options{IgnoreBegin: begin, IgnoreEnd: end, Logger: c.log})
	series, report, err := conditioner.Condition(raw, state)
	if err != nil {
		return conditioning.Series{}, conditioning.Series{}, conditioning.Report{}, fmt.Errorf("condition %s: %w", filepath.Base(path), err)
	}
	return raw, series, report, nil
}

func (c *Client) saveRecording(ctx context.Context, path string, raw conditioning.Series) (model.Recording, error) {
	rec := model.Recording{
		VersionedRecord: storage.Versioned(),
		ID:              uuid.NewString(),
		Source:          filepath.Base(path),
		Times:           raw.Times,
		Current:         raw.Current,
	}
	if err := c.store.SaveRecording(ctx, rec); err != nil {
		return model.Recording{}, err
	}
	return rec, nil
}

// Fit conditions a recording against the model, calibrates the named
// parameters and persists the run to the store and the runs directory.
func (c *Client) Fit(ctx context.Context, req FitRequest) (FitSummary, error) {
	if len(req.Names) == 0 {
		return FitSummary{}, errors.New("fit requires at least one parameter name")
	}
	state, err := NewState(req.Model)
	if err != nil {
		return FitSummary{}, err
	}
	raw, series, condReport, err := c.condition(state, req.RecordingPath, req.IgnoreBegin, req.IgnoreEnd)
	if err != nil {
		return FitSummary{}, err
	}

	forward, err := ecmodel.NewForwardModel(state, c.invoker, req.Names)
	if err != nil {
		return FitSummary{}, err
	}
	start, err := state.Vector(req.Names)
	if err != nil {
		return FitSummary{}, err
	}
	measure, err := buildMeasure(req.Measure, req.Harmonics, series.Times, state)
	if err != nil {
		return FitSummary{}, err
	}
	bounds, err := buildBounds(state, req.Names, req.Bounds)
	if err != nil {
		return FitSummary{}, err
	}
	policy, err := tuning.AttemptPolicyFromConfig(req.AttemptPolicy, req.AttemptPolicyParam)
	if err != nil {
		return FitSummary{}, err
	}
	applyFitDefaults(&req)

	calibrator := &tuning.Calibrator{
		Rand:               rand.New(rand.NewSource(req.Seed)),
		Steps:              req.Steps,
		StepSize:           req.StepSize,
		PerturbationRange:  req.PerturbationRange,
		AnnealingFactor:    req.AnnealingFactor,
		MinImprovement:     req.MinImprovement,
		GoalError:          req.GoalError,
		CandidateSelection: req.CandidateSelection,
		Bounds:             bounds,
		Logger:             c.log,
	}
	problem := tuning.Problem{Model: forward, Times: series.Times, Values: series.Current, Measure: measure}
	res, err := tuning.Fit(ctx, calibrator, problem, start, tuning.FitOptions{
		Rounds:       req.Rounds,
		BaseAttempts: req.Attempts,
		Policy:       policy,
	})
	if err != nil {
		return FitSummary{}, err
	}

	simulated, err := forward.Simulate(res.Params, series.Times)
	if err != nil {
		return FitSummary{}, err
	}
	best := make(map[string]float64, len(req.Names))
	for i, name := range req.Names {
		v, err := state.Dimensionalise(res.Params[i], name)
		if err != nil {
			return FitSummary{}, err
		}
		best[name] = v
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	rec, err := c.saveRecording(ctx, req.RecordingPath, raw)
	if err != nil {
		return FitSummary{}, err
	}
	createdAt := time.Now().UTC().Format(time.RFC3339)
	run := model.CalibrationRun{
		VersionedRecord: storage.Versioned(),
		ID:              runID,
		RecordingID:     rec.ID,
		CreatedAtUTC:    createdAt,
		Model:           req.Model,
		Measure:         measure.Name(),
		Names:           append([]string(nil), req.Names...),
		Start:           start,
		Best:            res.Params,
		BestDimensional: best,
		InitialError:    res.InitialError,
		FinalError:      res.Error,
		Report:          res.Report,
	}
	if err := c.store.SaveCalibrationRun(ctx, run); err != nil {
		return FitSummary{}, err
	}
	if err := c.store.SaveErrorHistory(ctx, runID, res.History); err != nil {
		return FitSummary{}, err
	}

	artifacts := stats.RunArtifacts{
		Config:       runConfig(runID, rec, req, measure.Name()),
		ErrorHistory: res.History,
		InitialError: res.InitialError,
		FinalError:   res.Error,
		BestParams:   best,
		Report:       res.Report,
		Trace:        stats.Trace{Times: series.Times, Measured: series.Current, Simulated: simulated},
	}
	runDir, err := stats.WriteRunArtifacts(c.runsDir, artifacts)
	if err != nil {
		return FitSummary{}, err
	}
	if req.Render {
		if err := render(runDir, runID, artifacts); err != nil {
			return FitSummary{}, err
		}
	}
	if err := stats.AppendRunIndex(c.runsDir, stats.RunIndexEntry{
		RunID:                runID,
		RecordingID:          rec.ID,
		Variant:              req.Model.Variant,
		Measure:              measure.Name(),
		Parameters:           len(req.Names),
		CandidateEvaluations: res.Report.CandidateEvaluations,
		FinalError:           res.Error,
		CreatedAtUTC:         createdAt,
	}); err != nil {
		return FitSummary{}, err
	}
	fit, err := stats.Summarize(artifacts.Trace)
	if err != nil {
		return FitSummary{}, err
	}
	c.log.Info("calibration finished", "run_id", runID, "initial_error", res.InitialError, "final_error", res.Error)

	return FitSummary{
		RunID:        runID,
		RecordingID:  rec.ID,
		ArtifactsDir: runDir,
		Names:        append([]string(nil), req.Names...),
		Best:         best,
		InitialError: res.InitialError,
		FinalError:   res.Error,
		History:      res.History,
		Report:       res.Report,
		Conditioning: condReport,
		Fit:          fit,
	}, nil
}

// Run returns a stored calibration run.
func (c *Client) Run(ctx context.Context, runID string) (model.CalibrationRun, bool, error) {
	return c.store.GetCalibrationRun(ctx, runID)
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]stats.RunIndexEntry, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return nil, err
	}
	out := make([]stats.RunIndexEntry, 0, len(entries))
	for _, e := range entries {
		if req.RecordingID != "" && e.RecordingID != req.RecordingID {
			continue
		}
		out = append(out, e)
		if len(out) == req.Limit {
			break
		}
	}
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID := req.RunID
	if req.Latest {
		entries, err := stats.ListRunIndex(c.runsDir)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(entries) == 0 {
			return ExportSummary{}, errors.New("no runs available to export")
		}
		runID = entries[0].RunID
	}

	if req.Render {
		artifacts, ok, err := stats.ReadRunArtifacts(c.runsDir, runID)
		if err != nil {
			return ExportSummary{}, err
		}
		if !ok {
			return ExportSummary{}, fmt.Errorf("run not found: %s", runID)
		}
		if err := render(filepath.Join(c.runsDir, runID), runID, artifacts); err != nil {
			return ExportSummary{}, err
		}
	}

	exportedDir, err := stats.ExportRunArtifacts(c.runsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func render(runDir, runID string, artifacts stats.RunArtifacts) error {
	if len(artifacts.Trace.Times) == 0 {
		return fmt.Errorf("run %s has no trace to render", runID)
	}
	if _, err := stats.WriteTraceWorkbook(runDir, artifacts); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	if _, err := stats.WriteTracePlot(runDir, runID, artifacts.Trace); err != nil {
		return fmt.Errorf("write plot: %w", err)
	}
	return nil
}
