package ml

import (
	"fmt"
	"maps"

	"gonum.org/v1/gonum/floats"
)

type TransformOptions struct {
	DropTarget bool
	Scale      bool
}

func DefaultTransformOptions() TransformOptions {
	return TransformOptions{DropTarget: true}
}

// Frame is a column-named numeric table produced by Transform.
type Frame struct {
	Columns []string
	Rows    [][]float64
}

func (f *Frame) ColumnIndex(name string) int {
	for i, column := range f.Columns {
		if column == name {
			return i
		}
	}
	return -1
}

func (f *Frame) Column(name string) ([]float64, bool) {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	values := make([]float64, len(f.Rows))
	for i, row := range f.Rows {
		values[i] = row[idx]
	}
	return values, true
}

// Preprocessor bins, label-encodes and scales samples. Fit runs once;
// afterwards every method only reads the fitted state, so one instance can be
// shared by concurrent requests.
type Preprocessor struct {
	fitted       bool
	featureStats map[string][2]float64
	bins         map[string]*Bins
	encoders     map[string]*LabelEncoder
	scaler       *MinMaxScaler
}

func NewPreprocessor() *Preprocessor {
	return &Preprocessor{}
}

func (p *Preprocessor) Fit(samples []Sample) error {
	if p.fitted {
		return ErrAlreadyFitted
	}
	if len(samples) == 0 {
		return ErrEmptyDataset
	}
	for i, sample := range samples {
		if _, err := EncodeTarget(sample.Class); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}

	stats := make(map[string][2]float64)
	bins := make(map[string]*Bins)
	encoders := make(map[string]*LabelEncoder)
	for _, name := range FeatureNames() {
		values := make([]float64, len(samples))
		for i, sample := range samples {
			values[i], _ = sample.Value(name)
		}

		b, err := NewBins(values, BinCount)
		if err != nil {
			return fmt.Errorf("bin %s: %w", name, err)
		}
		indices := make([]int, len(values))
		for i, v := range values {
			idx, err := b.Locate(v)
			if err != nil {
				return &BinError{Feature: name, Value: v, Err: err}
			}
			indices[i] = idx
		}
		encoder := &LabelEncoder{}
		encoder.Fit(indices)

		stats[name] = [2]float64{floats.Min(values), floats.Max(values)}
		bins[name] = b
		encoders[name] = encoder
	}

	p.featureStats = stats
	p.bins = bins
	p.encoders = encoders

	rows := make([][]float64, len(samples))
	for i, sample := range samples {
		row, err := p.featureRow(sample)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		rows[i] = row
	}
	scaler := &MinMaxScaler{}
	if err := scaler.Fit(rows); err != nil {
		return fmt.Errorf("fit scaler: %w", err)
	}
	p.scaler = scaler
	p.fitted = true
	return nil
}

func (p *Preprocessor) Transform(samples []Sample, opts TransformOptions) (*Frame, error) {
	if !p.fitted {
		return nil, ErrNotFitted
	}

	frame := &Frame{
		Columns: p.Columns(opts.DropTarget),
		Rows:    make([][]float64, 0, len(samples)),
	}
	inputs := len(InputColumns())
	for i, sample := range samples {
		row, err := p.featureRow(sample)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if opts.Scale {
			if row, err = p.scaler.Transform(row); err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
		}
		if !opts.DropTarget {
			target, err := EncodeTarget(sample.Class)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			row = insertAt(row, inputs, float64(target))
		}
		frame.Rows = append(frame.Rows, row)
	}
	return frame, nil
}

func (p *Preprocessor) FitTransform(samples []Sample) (*Frame, error) {
	if err := p.Fit(samples); err != nil {
		return nil, err
	}
	return p.Transform(samples, DefaultTransformOptions())
}

// InverseScale undoes the scaler on every non-target column of a scaled frame.
func (p *Preprocessor) InverseScale(frame *Frame) (*Frame, error) {
	if !p.fitted {
		return nil, ErrNotFitted
	}
	target := frame.ColumnIndex(TargetColumn)
	out := &Frame{
		Columns: append([]string(nil), frame.Columns...),
		Rows:    make([][]float64, len(frame.Rows)),
	}
	for i, row := range frame.Rows {
		features := row
		if target >= 0 {
			features = removeAt(row, target)
		}
		restored, err := p.scaler.InverseTransform(features)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if target >= 0 {
			restored = insertAt(restored, target, row[target])
		}
		out.Rows[i] = restored
	}
	return out, nil
}

// Columns lists the output columns of Transform.
func (p *Preprocessor) Columns(dropTarget bool) []string {
	columns := InputColumns()
	if !dropTarget {
		columns = append(columns, TargetColumn)
	}
	for _, name := range FeatureNames() {
		columns = append(columns, BinColumn(name))
	}
	return columns
}

func (p *Preprocessor) Fitted() bool {
	return p.fitted
}

// Ranges returns a copy of the observed (min, max) of each continuous feature.
func (p *Preprocessor) Ranges() map[string][2]float64 {
	if p.featureStats == nil {
		return nil
	}
	return maps.Clone(p.featureStats)
}

func (p *Preprocessor) Bins(feature string) (*Bins, bool) {
	b, ok := p.bins[feature]
	return b, ok
}

// featureRow builds the unscaled, target-free row: inputs then bin codes.
func (p *Preprocessor) featureRow(sample Sample) ([]float64, error) {
	row := sample.inputs()
	for _, name := range FeatureNames() {
		value, _ := sample.Value(name)
		idx, err := p.bins[name].Locate(value)
		if err != nil {
			return nil, &BinError{Feature: name, Value: value, Err: err}
		}
		code, err := p.encoders[name].Encode(idx)
		if err != nil {
			return nil, &BinError{Feature: name, Value: value, Err: err}
		}
		row = append(row, float64(code))
	}
	return row, nil
}

func insertAt(row []float64, idx int, value float64) []float64 {
	out := make([]float64, 0, len(row)+1)
	out = append(out, row[:idx]...)
	out = append(out, value)
	return append(out, row[idx:]...)
}

func removeAt(row []float64, idx int) []float64 {
	out := make([]float64, 0, len(row)-1)
	out = append(out, row[:idx]...)
	return append(out, row[idx+1:]...)
}
