package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Recording is a raw measured current trace in SI units.
type Recording struct {
	VersionedRecord
	ID      string    `json:"id"`
	Source  string    `json:"source"`
	Times   []float64 `json:"times"`
	Current []float64 `json:"current"`
}

// ModelSpec identifies a model variant and its dimensional parameters.
type ModelSpec struct {
	Variant   string             `json:"variant"`
	Processes int                `json:"processes"`
	Reversed  bool               `json:"reversed"`
	Params    map[string]float64 `json:"params"`
}

// CalibrationReport counts what a calibration did.
type CalibrationReport struct {
	AttemptsPlanned      int  `json:"attempts_planned"`
	AttemptsExecuted     int  `json:"attempts_executed"`
	CandidateEvaluations int  `json:"candidate_evaluations"`
	AcceptedCandidates   int  `json:"accepted_candidates"`
	RejectedCandidates   int  `json:"rejected_candidates"`
	FailedSimulations    int  `json:"failed_simulations"`
	GoalReached          bool `json:"goal_reached"`
}

// CalibrationRun is the outcome of fitting a model to one recording.
// Start and Best are nondimensional vectors ordered as Names; BestDimensional
// holds the fitted values in SI units.
type CalibrationRun struct {
	VersionedRecord
	ID              string             `json:"id"`
	RecordingID     string             `json:"recording_id"`
	CreatedAtUTC    string             `json:"created_at_utc"`
	Model           ModelSpec          `json:"model"`
	Measure         string             `json:"measure"`
	Names           []string           `json:"names"`
	Start           []float64          `json:"start"`
	Best            []float64          `json:"best"`
	BestDimensional map[string]float64 `json:"best_dimensional"`
	InitialError    float64            `json:"initial_error"`
	FinalError      float64            `json:"final_error"`
	Report          CalibrationReport  `json:"report"`
}
