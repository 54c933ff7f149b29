package storage

import (
	"encoding/json"
	"errors"

	"ecfit/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Versioned returns the record header written by this build.
func Versioned() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeRecording(r model.Recording) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRecording(data []byte) (model.Recording, error) {
	var recording model.Recording
	if err := json.Unmarshal(data, &recording); err != nil {
		return model.Recording{}, err
	}
	if err := checkVersion(recording.VersionedRecord); err != nil {
		return model.Recording{}, err
	}
	if len(recording.Times) != len(recording.Current) {
		return model.Recording{}, errors.New("recording has mismatched time and current columns")
	}
	return recording, nil
}

func EncodeCalibrationRun(run model.CalibrationRun) ([]byte, error) {
	return json.Marshal(run)
}

func DecodeCalibrationRun(data []byte) (model.CalibrationRun, error) {
	var run model.CalibrationRun
	if err := json.Unmarshal(data, &run); err != nil {
		return model.CalibrationRun{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.CalibrationRun{}, err
	}
	return run, nil
}

func EncodeErrorHistory(history []float64) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeErrorHistory(data []byte) ([]float64, error) {
	var history []float64
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
