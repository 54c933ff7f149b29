package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ecfit/internal/stats"
)

const sequentialModel = `{
  "variant": "sequential",
  "processes": 1,
  "params": {
    "Estart": 0.3, "Ereverse": 0.2, "omega": 6.05168, "phase": 0, "dE": 0.02,
    "v": -0.1043081, "T": 298.2, "a": 0.0707, "c_inf": 1e-7, "D": 7.2e-6,
    "Ru": 50, "Cdl": 8e-6,
    "E01": %s, "E02": 0.24, "k01": 7300, "k02": 7300, "alpha1": 0.5, "alpha2": 0.5
  }
}`

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := stdout
	stdout = &buf
	t.Cleanup(func() {
		stdout = orig
	})
	return &buf
}

func TestRunRequiresKnownCommand(t *testing.T) {
	if err := run(context.Background(), nil); err == nil || !strings.Contains(err.Error(), "usage") {
		t.Fatalf("expected usage error, got %v", err)
	}
	if err := run(context.Background(), []string{"bogus"}); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestSimulateWritesCSV(t *testing.T) {
	out := captureStdout(t)
	if err := run(context.Background(), []string{"simulate", "-variant", "single"}); err != nil {
		t.Fatalf("simulate: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if lines[0] != "# time,current" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if len(lines) < 100 {
		t.Fatalf("expected a full trace, got %d lines", len(lines))
	}
	if fields := strings.Split(lines[1], ","); len(fields) != 2 {
		t.Fatalf("expected two columns, got %q", lines[1])
	}
}

func TestSimulateFitRunsExport(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	truth := writeFile(t, dir, "truth.json", strings.Replace(sequentialModel, "%s", "0.26", 1))
	start := writeFile(t, dir, "start.json", strings.Replace(sequentialModel, "%s", "0.27", 1))
	recording := filepath.Join(dir, "synthetic_cv_current.csv")
	runsDir := filepath.Join(dir, "runs")

	if err := run(ctx, []string{"simulate", "-config", truth, "-si", "-out", recording}); err != nil {
		t.Fatalf("simulate: %v", err)
	}

	out := captureStdout(t)
	err := run(ctx, []string{
		"fit",
		"-store", "memory",
		"-runs-dir", runsDir,
		"-config", start,
		"-recording", recording,
		"-names", "E01",
		"-bounds", "E01=0.2:0.3",
		"-attempts", "4",
		"-seed", "3",
		"-run-id", "cli-run",
		"-json",
	})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	var summary struct {
		RunID        string
		InitialError float64
		FinalError   float64
		Best         map[string]float64
	}
	if err := json.Unmarshal(out.Bytes(), &summary); err != nil {
		t.Fatalf("decode fit summary: %v\n%s", err, out.String())
	}
	if summary.RunID != "cli-run" {
		t.Fatalf("expected run id cli-run, got %q", summary.RunID)
	}
	if summary.FinalError > summary.InitialError {
		t.Fatalf("fit must not worsen the error: %v > %v", summary.FinalError, summary.InitialError)
	}
	if e := summary.Best["E01"]; e < 0.2 || e > 0.3 {
		t.Fatalf("best E01 outside bounds: %v", e)
	}
	if _, err := os.Stat(filepath.Join(runsDir, "cli-run", "trace.csv")); err != nil {
		t.Fatalf("expected trace artifact: %v", err)
	}

	out.Reset()
	if err := run(ctx, []string{"runs", "-runs-dir", runsDir, "-json"}); err != nil {
		t.Fatalf("runs: %v", err)
	}
	var entries []stats.RunIndexEntry
	if err := json.Unmarshal(out.Bytes(), &entries); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(entries) != 1 || entries[0].RunID != "cli-run" || entries[0].Variant != "sequential" {
		t.Fatalf("unexpected runs: %+v", entries)
	}

	out.Reset()
	if err := run(ctx, []string{"runs", "-runs-dir", runsDir}); err != nil {
		t.Fatalf("runs text: %v", err)
	}
	if !strings.Contains(out.String(), "run_id=cli-run") {
		t.Fatalf("expected key=value listing, got %q", out.String())
	}

	exportsDir := filepath.Join(dir, "exports")
	out.Reset()
	if err := run(ctx, []string{"export", "-runs-dir", runsDir, "-latest", "-out", exportsDir}); err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out.String(), "run_id=cli-run") {
		t.Fatalf("unexpected export output: %q", out.String())
	}
	for _, file := range []string{"config.json", "error_history.json", "best_params.json", "report.json", "trace.csv"} {
		if _, err := os.Stat(filepath.Join(exportsDir, "cli-run", file)); err != nil {
			t.Fatalf("expected exported %s: %v", file, err)
		}
	}

	out.Reset()
	if err := run(ctx, []string{"show", "-store", "memory", "-runs-dir", runsDir, "-run-id", "cli-run"}); err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out.String(), `"run_id": "cli-run"`) {
		t.Fatalf("expected run artifacts from disk, got %q", out.String())
	}
}

func TestFitRequiresRecordingAndNames(t *testing.T) {
	if err := run(context.Background(), []string{"fit", "-store", "memory"}); err == nil {
		t.Fatal("expected missing recording error")
	}
	if err := run(context.Background(), []string{"fit", "-store", "memory", "-recording", "x_cv_current.txt"}); err == nil {
		t.Fatal("expected missing names error")
	}
}

func TestRunsEmpty(t *testing.T) {
	out := captureStdout(t)
	if err := run(context.Background(), []string{"runs", "-runs-dir", t.TempDir()}); err != nil {
		t.Fatalf("runs: %v", err)
	}
	if strings.TrimSpace(out.String()) != "no runs found" {
		t.Fatalf("unexpected output: %q", out.String())
	}
	if err := run(context.Background(), []string{"runs", "-limit", "0"}); err == nil {
		t.Fatal("expected limit error")
	}
}
