package ml

import (
	"errors"
	"fmt"
)

// MinMaxScaler rescales every column to [0, 1] using the fitted column
// minimum and maximum. Constant columns get a scale of 1.
type MinMaxScaler struct {
	dataMin []float64
	dataMax []float64
	scale   []float64
}

func (s *MinMaxScaler) Fit(rows [][]float64) error {
	if len(rows) == 0 {
		return ErrEmptyDataset
	}
	width := len(rows[0])
	mins := append([]float64(nil), rows[0]...)
	maxs := append([]float64(nil), rows[0]...)
	for i, row := range rows[1:] {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrShapeMismatch, i+1, len(row), width)
		}
		for j, v := range row {
			if v < mins[j] {
				mins[j] = v
			}
			if v > maxs[j] {
				maxs[j] = v
			}
		}
	}

	scale := make([]float64, width)
	for j := range scale {
		if span := maxs[j] - mins[j]; span != 0 {
			scale[j] = 1 / span
		} else {
			scale[j] = 1
		}
	}
	s.dataMin, s.dataMax, s.scale = mins, maxs, scale
	return nil
}

func (s *MinMaxScaler) Transform(row []float64) ([]float64, error) {
	if err := s.check(row); err != nil {
		return nil, err
	}
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.dataMin[j]) * s.scale[j]
	}
	return out, nil
}

func (s *MinMaxScaler) InverseTransform(row []float64) ([]float64, error) {
	if err := s.check(row); err != nil {
		return nil, err
	}
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = v/s.scale[j] + s.dataMin[j]
	}
	return out, nil
}

// Range returns the fitted minimum and maximum of column j.
func (s *MinMaxScaler) Range(j int) (float64, float64) {
	return s.dataMin[j], s.dataMax[j]
}

func (s *MinMaxScaler) check(row []float64) error {
	if s.scale == nil {
		return errors.New("scaler not fitted")
	}
	if len(row) != len(s.scale) {
		return fmt.Errorf("%w: got %d columns, want %d", ErrShapeMismatch, len(row), len(s.scale))
	}
	return nil
}
