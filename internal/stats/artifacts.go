package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"ecfit/internal/model"
)

const (
	runIndexFile = "run_index.json"
	traceFile    = "trace.csv"
)

// RunConfig records everything needed to repeat a calibration run.
type RunConfig struct {
	RunID              string             `json:"run_id"`
	RecordingID        string             `json:"recording_id"`
	Source             string             `json:"source"`
	Variant            string             `json:"variant"`
	Processes          int                `json:"processes,omitempty"`
	Reversed           bool               `json:"reversed,omitempty"`
	Params             map[string]float64 `json:"params"`
	Names              []string           `json:"names"`
	Measure            string             `json:"measure"`
	Harmonics          []int              `json:"harmonics,omitempty"`
	IgnoreBegin        int                `json:"ignore_begin"`
	IgnoreEnd          int                `json:"ignore_end"`
	Rounds             int                `json:"rounds"`
	Attempts           int                `json:"attempts"`
	AttemptPolicy      string             `json:"attempt_policy"`
	AttemptPolicyParam float64            `json:"attempt_policy_param,omitempty"`
	Steps              int                `json:"steps"`
	StepSize           float64            `json:"step_size"`
	PerturbationRange  float64            `json:"perturbation_range"`
	AnnealingFactor    float64            `json:"annealing_factor"`
	MinImprovement     float64            `json:"min_improvement"`
	GoalError          float64            `json:"goal_error,omitempty"`
	CandidateSelection string             `json:"candidate_selection"`
	Seed               int64              `json:"seed"`
}

// Trace is the conditioned measurement next to the best-fit simulation on
// the same nondimensional time grid.
type Trace struct {
	Times     []float64
	Measured  []float64
	Simulated []float64
}

func (t Trace) validate() error {
	if len(t.Times) != len(t.Measured) || len(t.Times) != len(t.Simulated) {
		return fmt.Errorf("trace columns differ in length: times=%d measured=%d simulated=%d", len(t.Times), len(t.Measured), len(t.Simulated))
	}
	return nil
}

type RunArtifacts struct {
	Config       RunConfig               `json:"config"`
	ErrorHistory []float64               `json:"error_history"`
	InitialError float64                 `json:"initial_error"`
	FinalError   float64                 `json:"final_error"`
	BestParams   map[string]float64      `json:"best_params"`
	Report       model.CalibrationReport `json:"report"`
	Trace        Trace                   `json:"-"`
}

type RunIndexEntry struct {
	RunID                string  `json:"run_id"`
	RecordingID          string  `json:"recording_id"`
	Variant              string  `json:"variant"`
	Measure              string  `json:"measure"`
	Parameters           int     `json:"parameters"`
	CandidateEvaluations int     `json:"candidate_evaluations"`
	FinalError           float64 `json:"final_error"`
	CreatedAtUTC         string  `json:"created_at_utc"`
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := WriteRunConfig(baseDir, artifacts.Config.RunID, artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "error_history.json"), ErrorHistory{
		ErrorHistory: artifacts.ErrorHistory,
		InitialError: artifacts.InitialError,
		FinalError:   artifacts.FinalError,
	}); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "best_params.json"), artifacts.BestParams); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "report.json"), artifacts.Report); err != nil {
		return "", err
	}
	if len(artifacts.Trace.Times) > 0 {
		if err := WriteTrace(runDir, artifacts.Trace); err != nil {
			return "", err
		}
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// ExportRunArtifacts copies a run directory to outDir. Optional files (the
// trace and its workbook and plot renderings) are copied when present.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{"config.json", "error_history.json", "best_params.json", "report.json"} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	for _, file := range []string{traceFile, traceWorkbookFile, tracePlotFile} {
		path := filepath.Join(src, file)
		if _, err := os.Stat(path); err == nil {
			if err := copyFile(path, filepath.Join(dst, file)); err != nil {
				return "", err
			}
		} else if !os.IsNotExist(err) {
			return "", err
		}
	}

	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	path := filepath.Join(baseDir, runID, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}

	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

func WriteRunConfig(baseDir, runID string, cfg RunConfig) error {
	if strings.TrimSpace(runID) == "" {
		return fmt.Errorf("run id is required")
	}
	if strings.TrimSpace(cfg.RunID) == "" {
		cfg.RunID = strings.TrimSpace(runID)
	}
	if cfg.RunID != strings.TrimSpace(runID) {
		return fmt.Errorf("run config run id mismatch: got=%s want=%s", cfg.RunID, strings.TrimSpace(runID))
	}
	runDir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return err
	}
	return writeJSON(filepath.Join(runDir, "config.json"), cfg)
}

// ErrorHistory is the content of error_history.json.
type ErrorHistory struct {
	ErrorHistory []float64 `json:"error_history"`
	InitialError float64   `json:"initial_error"`
	FinalError   float64   `json:"final_error"`
}

func ReadErrorHistory(baseDir, runID string) (ErrorHistory, bool, error) {
	path := filepath.Join(baseDir, runID, "error_history.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrorHistory{}, false, nil
		}
		return ErrorHistory{}, false, err
	}

	var history ErrorHistory
	if err := json.Unmarshal(data, &history); err != nil {
		return ErrorHistory{}, false, err
	}
	return history, true, nil
}

// ReadRunArtifacts reloads what WriteRunArtifacts wrote. The trace is empty
// when the run was written without one.
func ReadRunArtifacts(baseDir, runID string) (RunArtifacts, bool, error) {
	cfg, ok, err := ReadRunConfig(baseDir, runID)
	if err != nil || !ok {
		return RunArtifacts{}, ok, err
	}
	out := RunArtifacts{Config: cfg}

	runDir := filepath.Join(baseDir, runID)
	history, ok, err := ReadErrorHistory(baseDir, runID)
	if err != nil {
		return RunArtifacts{}, false, err
	}
	if !ok {
		return RunArtifacts{}, false, fmt.Errorf("run %s has no error history", runID)
	}
	out.ErrorHistory = history.ErrorHistory
	out.InitialError = history.InitialError
	out.FinalError = history.FinalError
	if err := readJSON(filepath.Join(runDir, "best_params.json"), &out.BestParams); err != nil {
		return RunArtifacts{}, false, err
	}
	if err := readJSON(filepath.Join(runDir, "report.json"), &out.Report); err != nil {
		return RunArtifacts{}, false, err
	}
	trace, _, err := ReadTrace(baseDir, runID)
	if err != nil {
		return RunArtifacts{}, false, err
	}
	out.Trace = trace
	return out, true, nil
}

// WriteTrace writes trace.csv with a header row and one row per sample.
func WriteTrace(runDir string, trace Trace) error {
	if err := trace.validate(); err != nil {
		return err
	}
	file, err := os.Create(filepath.Join(runDir, traceFile))
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(traceHeader); err != nil {
		return err
	}
	for i := range trace.Times {
		if err := writer.Write([]string{
			strconv.FormatFloat(trace.Times[i], 'g', -1, 64),
			strconv.FormatFloat(trace.Measured[i], 'g', -1, 64),
			strconv.FormatFloat(trace.Simulated[i], 'g', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadTrace(baseDir, runID string) (Trace, bool, error) {
	path := filepath.Join(baseDir, runID, traceFile)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Trace{}, false, nil
		}
		return Trace{}, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return Trace{}, true, nil
		}
		return Trace{}, false, err
	}
	if len(header) < len(traceHeader) {
		return Trace{}, false, fmt.Errorf("trace header must have %d columns", len(traceHeader))
	}

	var trace Trace
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Trace{}, false, err
		}
		if len(record) < len(traceHeader) {
			return Trace{}, false, fmt.Errorf("trace row must have %d columns", len(traceHeader))
		}
		var row [3]float64
		for i := range row {
			row[i], err = strconv.ParseFloat(record[i], 64)
			if err != nil {
				return Trace{}, false, err
			}
		}
		trace.Times = append(trace.Times, row[0])
		trace.Measured = append(trace.Measured, row[1])
		trace.Simulated = append(trace.Simulated, row[2])
	}
	return trace, true, nil
}

var traceHeader = []string{"time", "measured", "simulated"}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func readJSON(path string, value any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, value)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
