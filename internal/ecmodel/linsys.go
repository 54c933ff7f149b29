package ecmodel

import (
	"fmt"

	"github.com/edp1096/sparse"
)

// linearSystem is a real sparse system A x = b with 0-based indexing on top
// of the 1-based sparse package.
type linearSystem struct {
	size     int
	matrix   *sparse.Matrix
	rhs      []float64
	solution []float64
}

func newLinearSystem(size int) (*linearSystem, error) {
	config := &sparse.Configuration{
		Real:                    true,
		Complex:                 false,
		SeparatedComplexVectors: false,
		Expandable:              true,
		Translate:               true,
		ModifiedNodal:           false,
		TiesMultiplier:          5,
		PrinterWidth:            140,
		Annotate:                0,
	}
	mat, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, fmt.Errorf("create sparse matrix: %w", err)
	}
	s := &linearSystem{
		size:     size,
		matrix:   mat,
		rhs:      make([]float64, size+1),
		solution: make([]float64, size+1),
	}
	return s, nil
}

// reserve creates the tridiagonal structure up front so later stamps never
// allocate.
func (s *linearSystem) reserve() {
	for i := 1; i <= s.size; i++ {
		s.matrix.GetElement(int64(i), int64(i))
		if i > 1 {
			s.matrix.GetElement(int64(i), int64(i-1))
		}
		if i < s.size {
			s.matrix.GetElement(int64(i), int64(i+1))
		}
	}
}

func (s *linearSystem) add(i, j int, value float64) {
	s.matrix.GetElement(int64(i+1), int64(j+1)).Real += value
}

func (s *linearSystem) addRHS(i int, value float64) {
	s.rhs[i+1] += value
}

func (s *linearSystem) clear() {
	s.matrix.Clear()
	for i := range s.rhs {
		s.rhs[i] = 0
	}
}

func (s *linearSystem) solve() error {
	if err := s.matrix.Factor(); err != nil {
		return fmt.Errorf("matrix factorization failed: %w", err)
	}
	solution, err := s.matrix.Solve(s.rhs)
	if err != nil {
		return fmt.Errorf("matrix solve failed: %w", err)
	}
	s.solution = solution
	return nil
}

// copyInto writes the last solution into dst (length size).
func (s *linearSystem) copyInto(dst []float64) {
	copy(dst, s.solution[1:s.size+1])
}

func (s *linearSystem) destroy() {
	if s.matrix != nil {
		s.matrix.Destroy()
		s.matrix = nil
	}
}
