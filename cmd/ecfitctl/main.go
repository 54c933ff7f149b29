package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"ecfit/internal/stats"
	"ecfit/internal/storage"
	"ecfit/pkg/ecfit"
)

var stdout io.Writer = os.Stdout

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "simulate":
		return runSimulate(ctx, args[1:])
	case "condition":
		return runCondition(ctx, args[1:])
	case "fit":
		return runFit(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

// clientFlags are shared by every command that opens a client.
type clientFlags struct {
	store   *string
	dbPath  *string
	runsDir *string
	verbose *bool
}

func addClientFlags(fs *flag.FlagSet) clientFlags {
	return clientFlags{
		store:   fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite"),
		dbPath:  fs.String("db-path", "ecfit.db", "sqlite database path"),
		runsDir: fs.String("runs-dir", "runs", "run artifacts directory"),
		verbose: fs.Bool("verbose", false, "log progress to stderr"),
	}
}

func (f clientFlags) open(ctx context.Context, exportsDir string) (*ecfit.Client, error) {
	var logger *slog.Logger
	if *f.verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	client, err := ecfit.New(ecfit.Options{
		StoreKind:  *f.store,
		DBPath:     *f.dbPath,
		RunsDir:    *f.runsDir,
		ExportsDir: exportsDir,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Init(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func runSimulate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	configPath := fs.String("config", "", "model config JSON file")
	variant := fs.String("variant", "single", "built-in model when no config is given: single|pom")
	out := fs.String("out", "", "CSV output path (default stdout)")
	si := fs.Bool("si", false, "write time in s and current in A instead of nondimensional values")
	if err := fs.Parse(args); err != nil {
		return err
	}

	spec, err := modelFromFlags(*configPath, *variant)
	if err != nil {
		return err
	}
	client, err := ecfit.New(ecfit.Options{StoreKind: "memory"})
	if err != nil {
		return err
	}
	defer client.Close()

	res, err := client.Simulate(ctx, ecfit.SimulateRequest{Model: spec})
	if err != nil {
		return err
	}

	w := stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	tScale, iScale := 1.0, 1.0
	if *si {
		tScale, iScale = res.Scales.T0, res.Scales.I0
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"# time", "current"}); err != nil {
		return err
	}
	for i := range res.Times {
		row := []string{
			strconv.FormatFloat(res.Times[i]*tScale, 'g', -1, 64),
			strconv.FormatFloat(res.Current[i]*iScale, 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func runCondition(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("condition", flag.ContinueOnError)
	cf := addClientFlags(fs)
	configPath := fs.String("config", "", "model config JSON file")
	variant := fs.String("variant", "single", "built-in model when no config is given: single|pom")
	recording := fs.String("recording", "", "recording file (two columns: time, current)")
	ignoreBegin := fs.Int("ignore-begin", 0, "samples to drop from the start")
	ignoreEnd := fs.Int("ignore-end", 0, "samples to drop from the end")
	save := fs.Bool("save", false, "store the raw recording")
	jsonOut := fs.Bool("json", false, "emit result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *recording == "" {
		return errors.New("condition requires -recording")
	}

	spec, err := modelFromFlags(*configPath, *variant)
	if err != nil {
		return err
	}
	client, err := cf.open(ctx, "")
	if err != nil {
		return err
	}
	defer client.Close()

	res, err := client.Condition(ctx, ecfit.ConditionRequest{
		RecordingPath: *recording,
		Model:         spec,
		IgnoreBegin:   *ignoreBegin,
		IgnoreEnd:     *ignoreEnd,
		Save:          *save,
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(map[string]any{
			"recording_id": res.RecordingID,
			"report":       res.Report,
			"samples":      len(res.Times),
		})
	}
	rows := [][2]string{
		{"raw_length", humanize.Comma(int64(res.Report.RawLength))},
		{"trimmed_length", humanize.Comma(int64(res.Report.TrimmedLength))},
		{"samples_per_period", humanize.FtoaWithDigits(res.Report.SamplesPerPeriod, 4)},
		{"discarded", humanize.Comma(int64(res.Report.Discarded))},
		{"window", strconv.Itoa(res.Report.Window)},
		{"length", humanize.Comma(int64(res.Report.Length))},
	}
	if res.RecordingID != "" {
		rows = append([][2]string{{"recording_id", res.RecordingID}}, rows...)
	}
	return printPairs(rows)
}

func runFit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fit", flag.ContinueOnError)
	cf := addClientFlags(fs)
	configPath := fs.String("config", "", "model and fit config JSON file")
	variant := fs.String("variant", "single", "built-in model when no config is given: single|pom")
	recording := fs.String("recording", "", "recording file (two columns: time, current)")
	names := fs.String("names", "", "comma-separated parameters to fit")
	bounds := fs.String("bounds", "", "dimensional bounds, e.g. E0=0.2:0.3,k0=1e-3:1")
	measure := fs.String("measure", ecfit.MeasureSumOfSquares, "error measure: sum_of_squares|harmonic")
	harmonics := fs.String("harmonics", "", "comma-separated harmonics for the harmonic measure")
	ignoreBegin := fs.Int("ignore-begin", 0, "samples to drop from the start")
	ignoreEnd := fs.Int("ignore-end", 0, "samples to drop from the end")
	rounds := fs.Int("rounds", 1, "calibration rounds")
	attempts := fs.Int("attempts", 20, "attempts in the first round")
	attemptPolicy := fs.String("attempt-policy", "fixed", "attempt policy: fixed|linear_decay|dimension_scaled|dimension_power")
	attemptPolicyParam := fs.Float64("attempt-policy-param", 0, "attempt policy parameter")
	steps := fs.Int("steps", 3, "perturbation steps per candidate")
	stepSize := fs.Float64("step-size", 0.1, "perturbation step size")
	perturbationRange := fs.Float64("perturbation-range", 1, "perturbation range multiplier")
	annealingFactor := fs.Float64("annealing-factor", 0.9, "step annealing factor")
	minImprovement := fs.Float64("min-improvement", 0, "minimum error decrease to accept a candidate")
	goalError := fs.Float64("goal-error", 0, "stop once the error is at or below this value")
	selection := fs.String("selection", "best_so_far", "candidate selection mode")
	seed := fs.Int64("seed", 1, "random seed")
	runID := fs.String("run-id", "", "run id (default generated)")
	renderOut := fs.Bool("render", false, "write trace.xlsx and trace.png")
	jsonOut := fs.Bool("json", false, "emit summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := ecfit.FitRequest{}
	if *configPath != "" {
		cfg, err := loadConfig(*configPath)
		if err != nil {
			return err
		}
		req = cfg.Fit
	} else {
		spec, err := ecfit.DefaultModel(*variant)
		if err != nil {
			return err
		}
		req.Model = spec
	}

	setFlags := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})
	override := func(name string) bool {
		return *configPath == "" || setFlags[name]
	}
	if override("recording") {
		req.RecordingPath = *recording
	}
	if override("names") && *names != "" {
		req.Names = parseNames(*names)
	}
	if override("bounds") && *bounds != "" {
		b, err := parseBounds(*bounds)
		if err != nil {
			return err
		}
		req.Bounds = b
	}
	if override("measure") {
		req.Measure = *measure
	}
	if override("harmonics") && *harmonics != "" {
		h, err := parseHarmonics(*harmonics)
		if err != nil {
			return err
		}
		req.Harmonics = h
	}
	if override("ignore-begin") {
		req.IgnoreBegin = *ignoreBegin
	}
	if override("ignore-end") {
		req.IgnoreEnd = *ignoreEnd
	}
	if override("rounds") {
		req.Rounds = *rounds
	}
	if override("attempts") {
		req.Attempts = *attempts
	}
	if override("attempt-policy") {
		req.AttemptPolicy = *attemptPolicy
	}
	if override("attempt-policy-param") {
		req.AttemptPolicyParam = *attemptPolicyParam
	}
	if override("steps") {
		req.Steps = *steps
	}
	if override("step-size") {
		req.StepSize = *stepSize
	}
	if override("perturbation-range") {
		req.PerturbationRange = *perturbationRange
	}
	if override("annealing-factor") {
		req.AnnealingFactor = *annealingFactor
	}
	if override("min-improvement") {
		req.MinImprovement = *minImprovement
	}
	if override("goal-error") {
		req.GoalError = *goalError
	}
	if override("selection") {
		req.CandidateSelection = *selection
	}
	if override("seed") {
		req.Seed = *seed
	}
	if override("run-id") && *runID != "" {
		req.RunID = *runID
	}
	if override("render") {
		req.Render = *renderOut
	}
	if req.RecordingPath == "" {
		return errors.New("fit requires -recording")
	}
	if len(req.Names) == 0 {
		return errors.New("fit requires -names")
	}

	client, err := cf.open(ctx, "")
	if err != nil {
		return err
	}
	defer client.Close()

	summary, err := client.Fit(ctx, req)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(summary)
	}
	rows := [][2]string{
		{"run_id", summary.RunID},
		{"recording_id", summary.RecordingID},
		{"initial_error", humanize.FtoaWithDigits(summary.InitialError, 6)},
		{"final_error", humanize.FtoaWithDigits(summary.FinalError, 6)},
		{"evaluations", humanize.Comma(int64(summary.Report.CandidateEvaluations))},
		{"failed_simulations", humanize.Comma(int64(summary.Report.FailedSimulations))},
		{"rmse", humanize.FtoaWithDigits(summary.Fit.RMSE, 6)},
		{"r_squared", humanize.FtoaWithDigits(summary.Fit.RSquared, 6)},
	}
	for _, name := range summary.Names {
		rows = append(rows, [2]string{name, strconv.FormatFloat(summary.Best[name], 'g', 8, 64)})
	}
	rows = append(rows, [2]string{"artifacts_dir", summary.ArtifactsDir})
	return printPairs(rows)
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	runsDir := fs.String("runs-dir", "runs", "run artifacts directory")
	limit := fs.Int("limit", 20, "max runs to list")
	recordingID := fs.String("recording-id", "", "only runs of this recording")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := ecfit.New(ecfit.Options{StoreKind: "memory", RunsDir: *runsDir})
	if err != nil {
		return err
	}
	defer client.Close()

	entries, err := client.Runs(ctx, ecfit.RunsRequest{Limit: *limit, RecordingID: *recordingID})
	if err != nil {
		return err
	}
	if *jsonOut {
		if entries == nil {
			entries = []stats.RunIndexEntry{}
		}
		return writeJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(stdout, "no runs found")
		return nil
	}
	if isTerminal() {
		tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tCREATED\tVARIANT\tMEASURE\tEVALS\tFINAL ERROR")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				e.RunID, createdAgo(e.CreatedAtUTC), e.Variant, e.Measure,
				humanize.Comma(int64(e.CandidateEvaluations)), humanize.FtoaWithDigits(e.FinalError, 6))
		}
		return tw.Flush()
	}
	for _, e := range entries {
		fmt.Fprintf(stdout, "run_id=%s created_at=%s recording_id=%s variant=%s measure=%s evaluations=%d final_error=%g\n",
			e.RunID, e.CreatedAtUTC, e.RecordingID, e.Variant, e.Measure, e.CandidateEvaluations, e.FinalError)
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	cf := addClientFlags(fs)
	runID := fs.String("run-id", "", "run id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("show requires -run-id")
	}

	client, err := cf.open(ctx, "")
	if err != nil {
		return err
	}
	defer client.Close()

	stored, ok, err := client.Run(ctx, *runID)
	if err != nil {
		return err
	}
	if !ok {
		artifacts, found, err := stats.ReadRunArtifacts(*cf.runsDir, *runID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("run not found: %s", *runID)
		}
		return writeJSON(artifacts)
	}
	return writeJSON(stored)
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runsDir := fs.String("runs-dir", "runs", "run artifacts directory")
	runID := fs.String("run-id", "", "run id to export")
	latest := fs.Bool("latest", false, "export the newest run")
	out := fs.String("out", "exports", "export output directory")
	renderOut := fs.Bool("render", false, "render trace.xlsx and trace.png before exporting")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := ecfit.New(ecfit.Options{StoreKind: "memory", RunsDir: *runsDir, ExportsDir: *out})
	if err != nil {
		return err
	}
	defer client.Close()

	res, err := client.Export(ctx, ecfit.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *out, Render: *renderOut})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "exported run_id=%s dir=%s\n", res.RunID, res.Directory)
	return nil
}

func printPairs(rows [][2]string) error {
	if isTerminal() {
		tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\n", r[0], r[1])
		}
		return tw.Flush()
	}
	for _, r := range rows {
		fmt.Fprintf(stdout, "%s=%s\n", r[0], r[1])
	}
	return nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func isTerminal() bool {
	f, ok := stdout.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func createdAgo(createdAt string) string {
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return createdAt
	}
	return humanize.Time(t)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: ecfitctl <simulate|condition|fit|runs|show|export> [flags]", msg)
}
