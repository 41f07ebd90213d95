// Package service validates prediction requests against the fitted training
// ranges and runs them through the model.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"heartrisk/db"
	"heartrisk/ml"
	"heartrisk/monitoring"
)

const HealthOK = "OK"

const (
	GenderMale   = "Male"
	GenderFemale = "Female"
)

// Predictor is the model wrapper used by the service.
type Predictor interface {
	Predict(ctx context.Context, sample ml.Sample) (string, error)
	Version() string
}

// RangeProvider exposes the fitted (min, max) of every continuous feature.
type RangeProvider interface {
	Ranges() map[string][2]float64
}

type AuditStore interface {
	SavePrediction(ctx context.Context, record db.PredictionRecord) error
	RecentPredictions(ctx context.Context, limit int) ([]db.PredictionRecord, error)
}

// Request is a single patient reading. JSON names follow the public API.
type Request struct {
	Age          int     `json:"Age"`
	Gender       string  `json:"Gender"`
	Impulse      float64 `json:"Impluse"`
	PressureHigh float64 `json:"Pressure_Hight"`
	PressureLow  float64 `json:"Pressure_Low"`
	Glucose      float64 `json:"Glucose"`
	KCM          float64 `json:"KCM"`
	Troponin     float64 `json:"Troponin"`
}

type Result struct {
	Class        string  `json:"class"`
	Details      Request `json:"details"`
	ModelVersion string  `json:"model_version"`
}

type HealthStatus struct {
	HealthCheck  string `json:"health_check"`
	ModelVersion string `json:"model_version"`
}

type Service struct {
	model  Predictor
	ranges RangeProvider
	audit  AuditStore
}

type Option func(*Service)

func WithAuditStore(store AuditStore) Option {
	return func(s *Service) {
		s.audit = store
	}
}

func New(model Predictor, ranges RangeProvider, opts ...Option) *Service {
	s := &Service{model: model, ranges: ranges}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Health() HealthStatus {
	return HealthStatus{HealthCheck: HealthOK, ModelVersion: s.model.Version()}
}

// Validate checks every numeric field against the fitted training range
// (inclusive) and the gender enum. All violations are reported together.
func (s *Service) Validate(req Request) error {
	verr := &ValidationError{}
	ranges := s.ranges.Ranges()

	for _, f := range req.numericFields() {
		bounds, ok := ranges[f.column]
		if !ok {
			verr.Add(f.name, "no fitted range")
			continue
		}
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			verr.Add(f.name, "value is not a valid float")
			continue
		}
		if f.value < bounds[0] || f.value > bounds[1] {
			verr.Add(f.name, fmt.Sprintf("ensure this value is between %g and %g", bounds[0], bounds[1]))
		}
	}
	if _, err := GenderCode(req.Gender); err != nil {
		verr.Add("Gender", err.Error())
	}
	return verr.OrNil()
}

func (s *Service) Predict(ctx context.Context, req Request) (*Result, error) {
	if err := s.Validate(req); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			for _, f := range verr.Fields {
				monitoring.RecordValidationFailure(f.Field)
			}
		}
		return nil, err
	}

	sample, err := req.Sample()
	if err != nil {
		return nil, err
	}
	label, err := s.model.Predict(ctx, sample)
	if err != nil {
		zap.L().Error("Prediction failed",
			zap.String("request_id", monitoring.RequestID(ctx)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	monitoring.RecordPrediction(label)

	if s.audit != nil {
		if err := s.audit.SavePrediction(ctx, req.record(ctx, label, s.model.Version())); err != nil {
			zap.L().Warn("Failed to save prediction", zap.Error(err))
		}
	}

	return &Result{
		Class:        label,
		Details:      req,
		ModelVersion: s.model.Version(),
	}, nil
}

// RecentPredictions reads the audit log. Without a store it returns an empty list.
func (s *Service) RecentPredictions(ctx context.Context, limit int) ([]db.PredictionRecord, error) {
	if s.audit == nil {
		return []db.PredictionRecord{}, nil
	}
	records, err := s.audit.RecentPredictions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	return records, nil
}

// GenderCode maps the public enum to the dataset coding.
func GenderCode(gender string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(gender)) {
	case strings.ToLower(GenderMale):
		return ml.GenderMale, nil
	case strings.ToLower(GenderFemale):
		return ml.GenderFemale, nil
	}
	return 0, fmt.Errorf("value is not a valid enumeration member; permitted: '%s', '%s'", GenderMale, GenderFemale)
}

type numericField struct {
	name   string
	column string
	value  float64
}

func (r Request) numericFields() []numericField {
	return []numericField{
		{"Age", ml.ColumnAge, float64(r.Age)},
		{"Impluse", ml.ColumnImpulse, r.Impulse},
		{"Pressure_Hight", ml.ColumnPressureHigh, r.PressureHigh},
		{"Pressure_Low", ml.ColumnPressureLow, r.PressureLow},
		{"Glucose", ml.ColumnGlucose, r.Glucose},
		{"KCM", ml.ColumnKCM, r.KCM},
		{"Troponin", ml.ColumnTroponin, r.Troponin},
	}
}

// Sample builds the one-row model input. The class is unknown at inference.
func (r Request) Sample() (ml.Sample, error) {
	gender, err := GenderCode(r.Gender)
	if err != nil {
		return ml.Sample{}, err
	}
	return ml.Sample{
		Age:          float64(r.Age),
		Gender:       gender,
		Impulse:      r.Impulse,
		PressureHigh: r.PressureHigh,
		PressureLow:  r.PressureLow,
		Glucose:      r.Glucose,
		KCM:          r.KCM,
		Troponin:     r.Troponin,
		Class:        ml.UnknownLabel,
	}, nil
}

func (r Request) record(ctx context.Context, label, version string) db.PredictionRecord {
	return db.PredictionRecord{
		RequestID:    monitoring.RequestID(ctx),
		ModelVersion: version,
		Label:        label,
		Age:          r.Age,
		Gender:       r.Gender,
		Impulse:      r.Impulse,
		PressureHigh: r.PressureHigh,
		PressureLow:  r.PressureLow,
		Glucose:      r.Glucose,
		KCM:          r.KCM,
		Troponin:     r.Troponin,
	}
}
