package stats

import (
	"os"
	"path/filepath"
	"testing"

	"ecfit/internal/model"
)

func sampleArtifacts(runID string) RunArtifacts {
	return RunArtifacts{
		Config: RunConfig{
			RunID:       runID,
			RecordingID: "rec-1",
			Source:      "gc4_cv_current.txt",
			Variant:     "single",
			Names:       []string{"k0", "E0"},
			Measure:     "sum_of_squares",
			Rounds:      2,
			Attempts:    10,
			Seed:        1,
		},
		ErrorHistory: []float64{4, 2},
		InitialError: 9,
		FinalError:   2,
		BestParams:   map[string]float64{"k0": 0.01, "E0": 0.25},
		Report:       model.CalibrationReport{AttemptsPlanned: 20, CandidateEvaluations: 22},
		Trace: Trace{
			Times:     []float64{0, 1, 2},
			Measured:  []float64{0.5, 1, 0.25},
			Simulated: []float64{0.4, 1.1, 0.25},
		},
	}
}

func TestWriteAndExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "exports")

	runID := "run-123"
	runDir, err := WriteRunArtifacts(baseDir, sampleArtifacts(runID))
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	files := []string{"config.json", "error_history.json", "best_params.json", "report.json", "trace.csv"}
	for _, file := range files {
		if _, err := os.Stat(filepath.Join(runDir, file)); err != nil {
			t.Fatalf("expected file %s: %v", file, err)
		}
	}

	exportedDir, err := ExportRunArtifacts(baseDir, runID, outDir)
	if err != nil {
		t.Fatalf("export artifacts: %v", err)
	}
	for _, file := range files {
		if _, err := os.Stat(filepath.Join(exportedDir, file)); err != nil {
			t.Fatalf("expected exported file %s: %v", file, err)
		}
	}
	if _, err := os.Stat(filepath.Join(exportedDir, "trace.xlsx")); !os.IsNotExist(err) {
		t.Fatalf("workbook was never written and should not be exported: %v", err)
	}

	cfg, ok, err := ReadRunConfig(baseDir, runID)
	if err != nil || !ok {
		t.Fatalf("read config: ok=%t err=%v", ok, err)
	}
	if cfg.Variant != "single" || len(cfg.Names) != 2 {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	history, ok, err := ReadErrorHistory(baseDir, runID)
	if err != nil || !ok {
		t.Fatalf("read history: ok=%t err=%v", ok, err)
	}
	if len(history.ErrorHistory) != 2 || history.ErrorHistory[1] != 2 || history.FinalError != 2 {
		t.Fatalf("unexpected history: %+v", history)
	}

	reloaded, ok, err := ReadRunArtifacts(baseDir, runID)
	if err != nil || !ok {
		t.Fatalf("read artifacts: ok=%t err=%v", ok, err)
	}
	if reloaded.FinalError != 2 || reloaded.InitialError != 9 || reloaded.BestParams["E0"] != 0.25 || reloaded.Report.CandidateEvaluations != 22 {
		t.Fatalf("unexpected reloaded artifacts: %+v", reloaded)
	}
	if len(reloaded.Trace.Times) != 3 {
		t.Fatalf("expected reloaded trace, got %+v", reloaded.Trace)
	}

	trace, ok, err := ReadTrace(baseDir, runID)
	if err != nil || !ok {
		t.Fatalf("read trace: ok=%t err=%v", ok, err)
	}
	if len(trace.Times) != 3 || trace.Simulated[1] != 1.1 || trace.Measured[2] != 0.25 {
		t.Fatalf("unexpected trace: %+v", trace)
	}
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	if _, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{}); err == nil {
		t.Fatal("expected missing run id error")
	}
}

func TestWriteTraceRejectsRaggedColumns(t *testing.T) {
	err := WriteTrace(t.TempDir(), Trace{Times: []float64{0, 1}, Measured: []float64{0}, Simulated: []float64{0, 1}})
	if err == nil {
		t.Fatal("expected ragged trace error")
	}
}

func TestReadMissingArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	if _, ok, err := ReadRunConfig(baseDir, "missing"); err != nil || ok {
		t.Fatalf("expected missing config; ok=%t err=%v", ok, err)
	}
	if _, ok, err := ReadTrace(baseDir, "missing"); err != nil || ok {
		t.Fatalf("expected missing trace; ok=%t err=%v", ok, err)
	}
	if _, ok, err := ReadRunArtifacts(baseDir, "missing"); err != nil || ok {
		t.Fatalf("expected missing artifacts; ok=%t err=%v", ok, err)
	}
	if _, ok, err := ReadErrorHistory(baseDir, "missing"); err != nil || ok {
		t.Fatalf("expected missing history; ok=%t err=%v", ok, err)
	}
}

func TestReadRunArtifactsRequiresErrorHistory(t *testing.T) {
	baseDir := t.TempDir()
	if err := WriteRunConfig(baseDir, "run-1", RunConfig{Variant: "single"}); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, ok, err := ReadRunConfig(baseDir, "run-1")
	if err != nil || !ok || cfg.RunID != "run-1" {
		t.Fatalf("expected config with filled run id; cfg=%+v ok=%t err=%v", cfg, ok, err)
	}
	if _, _, err := ReadRunArtifacts(baseDir, "run-1"); err == nil {
		t.Fatal("expected missing error history error")
	}
}

func TestWriteRunConfigRunIDMismatch(t *testing.T) {
	if err := WriteRunConfig(t.TempDir(), "run-1", RunConfig{RunID: "run-2"}); err == nil {
		t.Fatal("expected run id mismatch error")
	}
}

func TestRunIndexAppendListAndUpsert(t *testing.T) {
	baseDir := t.TempDir()

	err := AppendRunIndex(baseDir, RunIndexEntry{
		RunID:        "run-1",
		RecordingID:  "rec-1",
		Variant:      "single",
		FinalError:   0.80,
		CreatedAtUTC: "2026-02-10T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("append run-1: %v", err)
	}

	err = AppendRunIndex(baseDir, RunIndexEntry{
		RunID:        "run-2",
		RecordingID:  "rec-1",
		Variant:      "pom",
		FinalError:   0.82,
		CreatedAtUTC: "2026-02-10T11:00:00Z",
	})
	if err != nil {
		t.Fatalf("append run-2: %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].RunID != "run-2" || entries[1].RunID != "run-1" {
		t.Fatalf("unexpected order: %+v", entries)
	}

	err = AppendRunIndex(baseDir, RunIndexEntry{
		RunID:        "run-1",
		RecordingID:  "rec-1",
		Variant:      "single",
		FinalError:   0.5,
		CreatedAtUTC: "2026-02-10T12:00:00Z",
	})
	if err != nil {
		t.Fatalf("upsert run-1: %v", err)
	}

	entries, err = ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list after upsert: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after upsert, got %d", len(entries))
	}
	if entries[0].RunID != "run-1" || entries[0].FinalError != 0.5 {
		t.Fatalf("unexpected upsert result: %+v", entries[0])
	}
}

func TestRunIndexEqualTimestampPrefersLaterAppend(t *testing.T) {
	baseDir := t.TempDir()
	ts := "2026-02-10T12:00:00Z"

	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-a", CreatedAtUTC: ts}); err != nil {
		t.Fatalf("append run-a: %v", err)
	}
	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-b", CreatedAtUTC: ts}); err != nil {
		t.Fatalf("append run-b: %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].RunID != "run-b" {
		t.Fatalf("expected latest appended run-b first, got %+v", entries)
	}
}
