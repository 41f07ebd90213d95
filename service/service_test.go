package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heartrisk/db"
	"heartrisk/ml"
	"heartrisk/monitoring"
)

type fakePredictor struct {
	label string
	err   error
	calls int
	last  ml.Sample
}

func (f *fakePredictor) Predict(_ context.Context, sample ml.Sample) (string, error) {
	f.calls++
	f.last = sample
	return f.label, f.err
}

func (f *fakePredictor) Version() string { return "0.1.0" }

type staticRanges map[string][2]float64

func (r staticRanges) Ranges() map[string][2]float64 { return r }

type memoryAudit struct {
	records []db.PredictionRecord
	err     error
}

func (m *memoryAudit) SavePrediction(_ context.Context, record db.PredictionRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, record)
	return nil
}

func (m *memoryAudit) RecentPredictions(_ context.Context, limit int) ([]db.PredictionRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.records) {
		return m.records[:limit], nil
	}
	return m.records, nil
}

var testRanges = staticRanges{
	ml.ColumnAge:          {14, 103},
	ml.ColumnImpulse:      {20, 135},
	ml.ColumnPressureHigh: {42, 193},
	ml.ColumnPressureLow:  {38, 154},
	ml.ColumnGlucose:      {35, 541},
	ml.ColumnKCM:          {0.321, 300},
	ml.ColumnTroponin:     {0.001, 10.3},
}

func validRequest() Request {
	return Request{
		Age:          64,
		Gender:       GenderMale,
		Impulse:      66,
		PressureHigh: 160,
		PressureLow:  83,
		Glucose:      160,
		KCM:          1.8,
		Troponin:     0.012,
	}
}

func TestHealth(t *testing.T) {
	svc := New(&fakePredictor{}, testRanges)
	health := svc.Health()
	assert.Equal(t, HealthOK, health.HealthCheck)
	assert.Equal(t, "0.1.0", health.ModelVersion)
}

func TestPredict(t *testing.T) {
	model := &fakePredictor{label: ml.LabelNegative}
	audit := &memoryAudit{}
	svc := New(model, testRanges, WithAuditStore(audit))

	ctx := monitoring.WithRequestID(context.Background(), "req-1")
	result, err := svc.Predict(ctx, validRequest())
	require.NoError(t, err)

	assert.Equal(t, ml.LabelNegative, result.Class)
	assert.Equal(t, "0.1.0", result.ModelVersion)
	assert.Equal(t, validRequest(), result.Details)

	require.Equal(t, 1, model.calls)
	assert.Equal(t, float64(ml.GenderMale), model.last.Gender)
	assert.Equal(t, ml.UnknownLabel, model.last.Class)

	require.Len(t, audit.records, 1)
	assert.Equal(t, "req-1", audit.records[0].RequestID)
	assert.Equal(t, ml.LabelNegative, audit.records[0].Label)
}

func TestPredictRejectsOutOfRangeBeforeModel(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		fields []string
	}{
		{"age above max", func(r *Request) { r.Age = 104 }, []string{"Age"}},
		{"troponin below min", func(r *Request) { r.Troponin = 0 }, []string{"Troponin"}},
		{"bad gender", func(r *Request) { r.Gender = "Other" }, []string{"Gender"}},
		{"glucose NaN", func(r *Request) { r.Glucose = math.NaN() }, []string{"Glucose"}},
		{"troponin infinite", func(r *Request) { r.Troponin = math.Inf(1) }, []string{"Troponin"}},
		{"several fields", func(r *Request) {
			r.Glucose = 1000
			r.KCM = 301
		}, []string{"Glucose", "KCM"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &fakePredictor{label: ml.LabelPositive}
			svc := New(model, testRanges)

			req := validRequest()
			tt.mutate(&req)
			_, err := svc.Predict(context.Background(), req)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			got := make([]string, len(verr.Fields))
			for i, f := range verr.Fields {
				got[i] = f.Field
			}
			assert.Equal(t, tt.fields, got)
			assert.Zero(t, model.calls, "model must not be called for invalid input")
		})
	}
}

func TestValidateBoundsInclusive(t *testing.T) {
	svc := New(&fakePredictor{}, testRanges)
	req := validRequest()
	req.Age = 14
	req.Troponin = 10.3
	req.Gender = "female"
	assert.NoError(t, svc.Validate(req))
}

func TestPredictModelFailure(t *testing.T) {
	model := &fakePredictor{err: errors.New("artifact missing")}
	audit := &memoryAudit{}
	svc := New(model, testRanges, WithAuditStore(audit))

	_, err := svc.Predict(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrInternal)
	assert.Empty(t, audit.records)
}

func TestPredictAuditFailureIgnored(t *testing.T) {
	svc := New(&fakePredictor{label: ml.LabelPositive}, testRanges,
		WithAuditStore(&memoryAudit{err: errors.New("disk full")}))

	result, err := svc.Predict(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, ml.LabelPositive, result.Class)
}

func TestRecentPredictions(t *testing.T) {
	svc := New(&fakePredictor{}, testRanges)
	records, err := svc.RecentPredictions(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, records)

	failing := New(&fakePredictor{}, testRanges, WithAuditStore(&memoryAudit{err: errors.New("locked")}))
	_, err = failing.RecentPredictions(context.Background(), 10)
	assert.ErrorIs(t, err, ErrInternal)
}

func TestGenderCode(t *testing.T) {
	code, err := GenderCode("Male")
	require.NoError(t, err)
	assert.Equal(t, float64(ml.GenderMale), code)

	code, err = GenderCode("Female")
	require.NoError(t, err)
	assert.Equal(t, float64(ml.GenderFemale), code)

	_, err = GenderCode("")
	assert.Error(t, err)
}
