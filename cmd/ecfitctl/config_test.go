package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadConfigNestedModelAndFit(t *testing.T) {
	path := writeFile(t, t.TempDir(), "fit.json", `{
  "model": {"base": "single", "params": {"k0": 0.02}},
  "recording": "trace_cv_current.txt",
  "names": ["k0", "E0"],
  "bounds": {"k0": [0.001, 1], "E0": [0.2, 0.3]},
  "measure": "harmonic",
  "harmonics": [3, 4],
  "rounds": 2,
  "attempts": 12,
  "attempt_policy": "linear_decay",
  "attempt_policy_param": 2,
  "candidate_selection": "dynamic_random",
  "seed": 9,
  "render": true
}`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Model.Variant != "single" || !cfg.Model.Reversed {
		t.Fatalf("expected single reversed base model, got %+v", cfg.Model)
	}
	if cfg.Model.Params["k0"] != 0.02 || cfg.Model.Params["E0"] == 0 {
		t.Fatalf("expected k0 overlaid on defaults, got %+v", cfg.Model.Params)
	}
	req := cfg.Fit
	if req.RecordingPath != "trace_cv_current.txt" || len(req.Names) != 2 || req.Names[1] != "E0" {
		t.Fatalf("unexpected fit request: %+v", req)
	}
	if req.Bounds["E0"] != [2]float64{0.2, 0.3} {
		t.Fatalf("unexpected bounds: %+v", req.Bounds)
	}
	if req.Measure != "harmonic" || len(req.Harmonics) != 2 || req.Harmonics[0] != 3 {
		t.Fatalf("unexpected measure config: %s %v", req.Measure, req.Harmonics)
	}
	if req.Rounds != 2 || req.Attempts != 12 || req.AttemptPolicy != "linear_decay" || req.AttemptPolicyParam != 2 {
		t.Fatalf("unexpected schedule: %+v", req)
	}
	if req.CandidateSelection != "dynamic_random" || req.Seed != 9 || !req.Render {
		t.Fatalf("unexpected search config: %+v", req)
	}
	if req.Model.Params["k0"] != 0.02 {
		t.Fatal("fit request should carry the config model")
	}
}

func TestLoadConfigTopLevelModel(t *testing.T) {
	path := writeFile(t, t.TempDir(), "model.json", `{
  "variant": "sequential",
  "processes": 1,
  "params": {"E01": 0.25, "k01": 100}
}`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Model.Variant != "sequential" || cfg.Model.Processes != 1 || cfg.Model.Params["k01"] != 100 {
		t.Fatalf("unexpected model: %+v", cfg.Model)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"bad_json.json":   `{`,
		"no_variant.json": `{"params": {"k0": 1}}`,
		"bad_param.json":  `{"variant": "single", "params": {"k0": "fast"}}`,
		"bad_bounds.json": `{"variant": "single", "bounds": {"k0": [1]}}`,
		"bad_base.json":   `{"base": "nope"}`,
	}
	for name, content := range cases {
		path := writeFile(t, dir, name, content)
		if _, err := loadConfig(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := loadConfig(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected missing file error")
	}
}

func TestParseBounds(t *testing.T) {
	b, err := parseBounds("E0=0.2:0.3, k0=1e-3:1")
	if err != nil {
		t.Fatalf("parse bounds: %v", err)
	}
	if b["E0"] != [2]float64{0.2, 0.3} || b["k0"] != [2]float64{1e-3, 1} {
		t.Fatalf("unexpected bounds: %+v", b)
	}
	for _, bad := range []string{"E0", "E0=0.2", "E0=x:1", "E0=0:y"} {
		if _, err := parseBounds(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestParseNamesAndHarmonics(t *testing.T) {
	names := parseNames(" k0, ,E0 ")
	if len(names) != 2 || names[0] != "k0" || names[1] != "E0" {
		t.Fatalf("unexpected names: %v", names)
	}
	h, err := parseHarmonics("3,4,5")
	if err != nil || len(h) != 3 || h[2] != 5 {
		t.Fatalf("unexpected harmonics: %v %v", h, err)
	}
	if _, err := parseHarmonics("3,x"); err == nil {
		t.Fatal("expected harmonic parse error")
	}
}
