package nondim

// Physical constants shared by every model.
const (
	Faraday     = 96485.3328959 // C mol-1
	GasConstant = 8.314459848   // J K-1 mol-1
)
