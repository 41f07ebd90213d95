package ml

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyDataset    = errors.New("dataset is empty")
	ErrNotFitted       = errors.New("preprocessor not fitted")
	ErrAlreadyFitted   = errors.New("preprocessor already fitted")
	ErrUnknownLabel    = errors.New("unknown target label")
	ErrValueOutOfRange = errors.New("value out of fitted range")
	ErrUnseenBin       = errors.New("bin not observed during fit")
	ErrShapeMismatch   = errors.New("feature shape mismatch")
	ErrModelLoad       = errors.New("model loading failed")
	ErrPrediction      = errors.New("prediction failed")
)

// BinError reports which feature could not be binned.
type BinError struct {
	Feature string
	Value   float64
	Err     error
}

func (e *BinError) Error() string {
	return fmt.Sprintf("feature %s value %g: %v", e.Feature, e.Value, e.Err)
}

func (e *BinError) Unwrap() error {
	return e.Err
}

type UnknownVersionError struct {
	Requested string
}

func (e *UnknownVersionError) Error() string {
	return fmt.Sprintf("model version %s not found", e.Requested)
}
