package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"ecfit/internal/model"
)

var errNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	recordings  map[string]model.Recording
	runs        map[string]model.CalibrationRun
	history     map[string][]float64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.recordings = make(map[string]model.Recording)
	s.runs = make(map[string]model.CalibrationRun)
	s.history = make(map[string][]float64)
	return nil
}

func (s *MemoryStore) SaveRecording(_ context.Context, recording model.Recording) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.recordings[recording.ID] = copyRecording(recording)
	return nil
}

func (s *MemoryStore) GetRecording(_ context.Context, id string) (model.Recording, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recording, ok := s.recordings[id]
	if !ok {
		return model.Recording{}, false, nil
	}
	return copyRecording(recording), true, nil
}

func (s *MemoryStore) SaveCalibrationRun(_ context.Context, run model.CalibrationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.runs[run.ID] = copyRun(run)
	return nil
}

func (s *MemoryStore) GetCalibrationRun(_ context.Context, id string) (model.CalibrationRun, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return model.CalibrationRun{}, false, nil
	}
	return copyRun(run), true, nil
}

// ListCalibrationRuns returns the runs for recordingID (all runs when empty),
// newest first.
func (s *MemoryStore) ListCalibrationRuns(_ context.Context, recordingID string) ([]model.CalibrationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.CalibrationRun, 0, len(s.runs))
	for _, run := range s.runs {
		if recordingID != "" && run.RecordingID != recordingID {
			continue
		}
		out = append(out, copyRun(run))
	}
	sortRuns(out)
	return out, nil
}

func (s *MemoryStore) SaveErrorHistory(_ context.Context, runID string, history []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.history[runID] = append([]float64(nil), history...)
	return nil
}

func (s *MemoryStore) GetErrorHistory(_ context.Context, runID string) ([]float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.history[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]float64(nil), history...), true, nil
}

func sortRuns(runs []model.CalibrationRun) {
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].CreatedAtUTC == runs[j].CreatedAtUTC {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].CreatedAtUTC > runs[j].CreatedAtUTC
	})
}

func copyRecording(r model.Recording) model.Recording {
	r.Times = append([]float64(nil), r.Times...)
	r.Current = append([]float64(nil), r.Current...)
	return r
}

func copyRun(run model.CalibrationRun) model.CalibrationRun {
	run.Names = append([]string(nil), run.Names...)
	run.Start = append([]float64(nil), run.Start...)
	run.Best = append([]float64(nil), run.Best...)
	run.Model.Params = copyParams(run.Model.Params)
	run.BestDimensional = copyParams(run.BestDimensional)
	return run
}

func copyParams(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
