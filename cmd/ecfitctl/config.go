package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"ecfit/internal/model"
	"ecfit/pkg/ecfit"
)

// fileConfig is a decoded config file. The model may sit under "model" or
// at the top level; everything else configures a fit.
type fileConfig struct {
	Model model.ModelSpec
	Fit   ecfit.FitRequest
}

func loadConfig(path string) (fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fileConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	modelRaw := raw
	if m, ok := raw["model"].(map[string]any); ok {
		modelRaw = m
	}
	spec, err := modelFromMap(modelRaw)
	if err != nil {
		return fileConfig{}, err
	}

	cfg := fileConfig{Model: spec}
	req := &cfg.Fit
	req.Model = spec
	if v, ok := asString(raw["run_id"]); ok {
		req.RunID = v
	}
	if v, ok := asString(raw["recording"]); ok {
		req.RecordingPath = v
	}
	if v, ok := asStrings(raw["names"]); ok {
		req.Names = v
	}
	if b, ok := raw["bounds"].(map[string]any); ok {
		bounds, err := boundsFromMap(b)
		if err != nil {
			return fileConfig{}, err
		}
		req.Bounds = bounds
	}
	if v, ok := asInt(raw["ignore_begin"]); ok {
		req.IgnoreBegin = v
	}
	if v, ok := asInt(raw["ignore_end"]); ok {
		req.IgnoreEnd = v
	}
	if v, ok := asString(raw["measure"]); ok {
		req.Measure = v
	}
	if v, ok := asInts(raw["harmonics"]); ok {
		req.Harmonics = v
	}
	if v, ok := asInt(raw["rounds"]); ok {
		req.Rounds = v
	}
	if v, ok := asInt(raw["attempts"]); ok {
		req.Attempts = v
	}
	if v, ok := asString(raw["attempt_policy"]); ok {
		req.AttemptPolicy = v
	}
	if v, ok := asFloat64(raw["attempt_policy_param"]); ok {
		req.AttemptPolicyParam = v
	}
	if v, ok := asInt(raw["steps"]); ok {
		req.Steps = v
	}
	if v, ok := asFloat64(raw["step_size"]); ok {
		req.StepSize = v
	}
	if v, ok := asFloat64(raw["perturbation_range"]); ok {
		req.PerturbationRange = v
	}
	if v, ok := asFloat64(raw["annealing_factor"]); ok {
		req.AnnealingFactor = v
	}
	if v, ok := asFloat64(raw["min_improvement"]); ok {
		req.MinImprovement = v
	}
	if v, ok := asFloat64(raw["goal_error"]); ok {
		req.GoalError = v
	}
	if v, ok := asString(raw["candidate_selection"]); ok {
		req.CandidateSelection = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asBool(raw["render"]); ok {
		req.Render = v
	}
	return cfg, nil
}

// modelFromMap reads a model spec. A "base" key names a built-in experiment
// whose parameters are overlaid by "params".
func modelFromMap(raw map[string]any) (model.ModelSpec, error) {
	var spec model.ModelSpec
	if base, ok := asString(raw["base"]); ok {
		def, err := ecfit.DefaultModel(base)
		if err != nil {
			return model.ModelSpec{}, err
		}
		spec = def
	}
	if v, ok := asString(raw["variant"]); ok {
		spec.Variant = v
	}
	if v, ok := asInt(raw["processes"]); ok {
		spec.Processes = v
	}
	if v, ok := asBool(raw["reversed"]); ok {
		spec.Reversed = v
	}
	if spec.Params == nil {
		spec.Params = make(map[string]float64)
	}
	if params, ok := raw["params"].(map[string]any); ok {
		for name, value := range params {
			f, ok := asFloat64(value)
			if !ok {
				return model.ModelSpec{}, fmt.Errorf("parameter %s must be a number", name)
			}
			spec.Params[name] = f
		}
	}
	if spec.Variant == "" {
		return model.ModelSpec{}, fmt.Errorf("model config requires a variant or base")
	}
	return spec, nil
}

func boundsFromMap(raw map[string]any) (map[string][2]float64, error) {
	out := make(map[string][2]float64, len(raw))
	for name, value := range raw {
		pair, ok := value.([]any)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("bounds for %s must be [lower, upper]", name)
		}
		lo, okLo := asFloat64(pair[0])
		hi, okHi := asFloat64(pair[1])
		if !okLo || !okHi {
			return nil, fmt.Errorf("bounds for %s must be numbers", name)
		}
		out[name] = [2]float64{lo, hi}
	}
	return out, nil
}

// modelFromFlags resolves the model: the config file when given, otherwise
// the built-in experiment named by variant.
func modelFromFlags(configPath, variant string) (model.ModelSpec, error) {
	if configPath != "" {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return model.ModelSpec{}, err
		}
		return cfg.Model, nil
	}
	return ecfit.DefaultModel(variant)
}

func parseNames(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseHarmonics(s string) ([]int, error) {
	var out []int
	for _, part := range parseNames(s) {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid harmonic %q: %w", part, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// parseBounds reads "name=lower:upper,name=lower:upper".
func parseBounds(s string) (map[string][2]float64, error) {
	out := make(map[string][2]float64)
	for _, part := range parseNames(s) {
		name, rng, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("bound %q must look like name=lower:upper", part)
		}
		loS, hiS, ok := strings.Cut(rng, ":")
		if !ok {
			return nil, fmt.Errorf("bound %q must look like name=lower:upper", part)
		}
		lo, err := strconv.ParseFloat(strings.TrimSpace(loS), 64)
		if err != nil {
			return nil, fmt.Errorf("bound %q: %w", part, err)
		}
		hi, err := strconv.ParseFloat(strings.TrimSpace(hiS), 64)
		if err != nil {
			return nil, fmt.Errorf("bound %q: %w", part, err)
		}
		out[strings.TrimSpace(name)] = [2]float64{lo, hi}
	}
	return out, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

func asStrings(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func asInts(v any) ([]int, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]int, 0, len(items))
	for _, item := range items {
		n, ok := asInt(item)
		if !ok {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}
