package conditioning

import (
	"errors"
	"fmt"

	"ecfit/internal/nondim"
)

var (
	// ErrInsufficientData indicates too few samples survive trimming or period alignment.
	ErrInsufficientData = errors.New("conditioning: insufficient data")

	// ErrInvalidFrequency indicates the samples per drive period is non-positive or non-finite.
	ErrInvalidFrequency = errors.New("conditioning: invalid frequency")
)

// Series is a paired time/current trace. Times and Current always have the
// same length.
type Series struct {
	Times   []float64 `json:"times"`
	Current []float64 `json:"current"`
}

func (s Series) Len() int { return len(s.Times) }

func (s Series) Validate() error {
	if len(s.Times) != len(s.Current) {
		return fmt.Errorf("series length mismatch: %d times, %d currents", len(s.Times), len(s.Current))
	}
	return nil
}

// Clone returns a series that shares no storage with s.
func (s Series) Clone() Series {
	return Series{
		Times:   append([]float64(nil), s.Times...),
		Current: append([]float64(nil), s.Current...),
	}
}

func (s Series) slice(from, to int) Series {
	return Series{Times: s.Times[from:to], Current: s.Current[from:to]}
}

// ScaleSource supplies what conditioning needs from a bound model: its
// characteristic scales and its dimensional drive frequency in Hz.
type ScaleSource interface {
	Scales() nondim.Scales
	DriveFrequency() float64
}
