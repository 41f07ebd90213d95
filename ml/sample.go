package ml

import (
	"fmt"
	"strings"
)

const (
	ColumnAge          = "age"
	ColumnGender       = "gender"
	ColumnImpulse      = "impluse"
	ColumnPressureHigh = "pressurehight"
	ColumnPressureLow  = "pressurelow"
	ColumnGlucose      = "glucose"
	ColumnKCM          = "kcm"
	ColumnTroponin     = "troponin"
	TargetColumn       = "class"

	binSuffix = "_bin_encoded"
)

// Target labels. The encoding is fixed here instead of being inferred from
// the sort order of whatever labels the training file happens to contain.
const (
	PositiveLabel = "positive"
	NegativeLabel = "negative"
	UnknownLabel  = "unknown"
)

const (
	GenderFemale = 0
	GenderMale   = 1
)

type Sample struct {
	Age          float64
	Gender       float64
	Impulse      float64
	PressureHigh float64
	PressureLow  float64
	Glucose      float64
	KCM          float64
	Troponin     float64
	Class        string
}

// InputColumns returns the numeric input columns in dataset order.
func InputColumns() []string {
	return []string{
		ColumnAge,
		ColumnGender,
		ColumnImpulse,
		ColumnPressureHigh,
		ColumnPressureLow,
		ColumnGlucose,
		ColumnKCM,
		ColumnTroponin,
	}
}

// FeatureNames returns the continuous features, i.e. every input column except gender.
func FeatureNames() []string {
	return []string{
		ColumnAge,
		ColumnImpulse,
		ColumnPressureHigh,
		ColumnPressureLow,
		ColumnGlucose,
		ColumnKCM,
		ColumnTroponin,
	}
}

func BinColumn(feature string) string {
	return feature + binSuffix
}

func (s Sample) Value(column string) (float64, bool) {
	switch column {
	case ColumnAge:
		return s.Age, true
	case ColumnGender:
		return s.Gender, true
	case ColumnImpulse:
		return s.Impulse, true
	case ColumnPressureHigh:
		return s.PressureHigh, true
	case ColumnPressureLow:
		return s.PressureLow, true
	case ColumnGlucose:
		return s.Glucose, true
	case ColumnKCM:
		return s.KCM, true
	case ColumnTroponin:
		return s.Troponin, true
	}
	return 0, false
}

func (s *Sample) Set(column string, value float64) error {
	switch column {
	case ColumnAge:
		s.Age = value
	case ColumnGender:
		s.Gender = value
	case ColumnImpulse:
		s.Impulse = value
	case ColumnPressureHigh:
		s.PressureHigh = value
	case ColumnPressureLow:
		s.PressureLow = value
	case ColumnGlucose:
		s.Glucose = value
	case ColumnKCM:
		s.KCM = value
	case ColumnTroponin:
		s.Troponin = value
	default:
		return fmt.Errorf("unknown column %q", column)
	}
	return nil
}

func (s Sample) inputs() []float64 {
	return []float64{
		s.Age,
		s.Gender,
		s.Impulse,
		s.PressureHigh,
		s.PressureLow,
		s.Glucose,
		s.KCM,
		s.Troponin,
	}
}

// EncodeTarget maps "positive" to 1 and "negative" to 0, ignoring case.
func EncodeTarget(label string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case PositiveLabel:
		return 1, nil
	case NegativeLabel:
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
}

func IsKnownLabel(label string) bool {
	_, err := EncodeTarget(label)
	return err == nil
}
