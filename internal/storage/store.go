package storage

import (
	"context"

	"ecfit/internal/model"
)

// Store defines transaction-like persistence operations for recordings and
// calibration runs.
type Store interface {
	Init(ctx context.Context) error
	SaveRecording(ctx context.Context, recording model.Recording) error
	GetRecording(ctx context.Context, id string) (model.Recording, bool, error)
	SaveCalibrationRun(ctx context.Context, run model.CalibrationRun) error
	GetCalibrationRun(ctx context.Context, id string) (model.CalibrationRun, bool, error)
	ListCalibrationRuns(ctx context.Context, recordingID string) ([]model.CalibrationRun, error)
	SaveErrorHistory(ctx context.Context, runID string, history []float64) error
	GetErrorHistory(ctx context.Context, runID string) ([]float64, bool, error)
}
