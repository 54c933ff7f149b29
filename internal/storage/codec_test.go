package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"ecfit/internal/model"
)

func TestDecodeRecordingFixture(t *testing.T) {
	data, err := os.ReadFile(fixturePath("minimal_recording_v1.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	recording, err := DecodeRecording(data)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if recording.ID != "recording-minimal-1" || len(recording.Times) != 4 {
		t.Fatalf("unexpected recording: %+v", recording)
	}
}

func TestDecodeCalibrationRunFixture(t *testing.T) {
	data, err := os.ReadFile(fixturePath("minimal_calibration_run_v1.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	run, err := DecodeCalibrationRun(data)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if run.RecordingID != "recording-minimal-1" || run.Model.Variant != "single" {
		t.Fatalf("unexpected run: %+v", run)
	}
	if run.Report.CandidateEvaluations != 11 || run.FinalError != 1.25 {
		t.Fatalf("unexpected run report: %+v", run.Report)
	}
}

func TestCalibrationRunCodecRoundTripFixtureEquality(t *testing.T) {
	data, err := os.ReadFile(fixturePath("minimal_calibration_run_v1.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	expected, err := DecodeCalibrationRun(data)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}

	encoded, err := EncodeCalibrationRun(expected)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	actual, err := DecodeCalibrationRun(encoded)
	if err != nil {
		t.Fatalf("decode roundtrip: %v", err)
	}
	if !reflect.DeepEqual(actual, expected) {
		t.Fatalf("roundtrip mismatch\nactual=%+v\nexpected=%+v", actual, expected)
	}
}

func TestRecordingCodecRejectsMismatchedColumns(t *testing.T) {
	input := model.Recording{
		VersionedRecord: Versioned(),
		ID:              "r1",
		Times:           []float64{0, 1},
		Current:         []float64{0},
	}
	encoded, err := EncodeRecording(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeRecording(encoded); err == nil {
		t.Fatal("expected column mismatch error")
	}
}

func TestErrorHistoryCodecRoundTrip(t *testing.T) {
	input := []float64{3, 2.5, 0.75}
	encoded, err := EncodeErrorHistory(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeErrorHistory(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(decoded, input) {
		t.Fatalf("history mismatch: got=%v want=%v", decoded, input)
	}
}

func TestDecodeVersionMismatch(t *testing.T) {
	run := model.CalibrationRun{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion + 1, CodecVersion: CurrentCodecVersion},
		ID:              "run-1",
	}
	encoded, err := EncodeCalibrationRun(run)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeCalibrationRun(encoded); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got: %v", err)
	}

	recording := model.Recording{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion + 1},
		ID:              "r1",
	}
	encoded, err = EncodeRecording(recording)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeRecording(encoded); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got: %v", err)
	}
}

func fixturePath(name string) string {
	return filepath.Join("..", "..", "testdata", "fixtures", name)
}
