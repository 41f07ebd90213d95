package pipeline

import (
	"testing"
	"time"

	"heartrisk/ml"
)

func TestNewDataCleaner(t *testing.T) {
	cleaner := NewDataCleaner()
	if cleaner == nil {
		t.Fatal("NewDataCleaner returned nil")
	}

	if len(cleaner.rules) == 0 {
		t.Error("No default rules added")
	}
}

func TestImplausiblePulseRule(t *testing.T) {
	rule := NewImplausiblePulseRule()

	tests := []struct {
		name    string
		pulse   float64
		wantErr bool
	}{
		{name: "normal pulse", pulse: 72, wantErr: false},
		{name: "pulse at limit", pulse: 500, wantErr: false},
		{name: "sensor error", pulse: 1111, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sample := &ml.Sample{Impulse: tt.pulse, Class: ml.PositiveLabel}
			err := rule.Apply(sample)
			if (err != nil) != tt.wantErr {
				t.Errorf("Apply() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLabelRule(t *testing.T) {
	rule := NewLabelRule()

	tests := []struct {
		name    string
		class   string
		wantErr bool
	}{
		{name: "positive", class: "positive", wantErr: false},
		{name: "mixed case", class: "Negative", wantErr: false},
		{name: "empty", class: "", wantErr: true},
		{name: "unknown", class: "maybe", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rule.Apply(&ml.Sample{Class: tt.class})
			if (err != nil) != tt.wantErr {
				t.Errorf("Apply() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClean(t *testing.T) {
	cleaner := NewDataCleaner()

	samples := []ml.Sample{
		{Age: 64, Impulse: 66, Class: ml.NegativeLabel},
		{Age: 21, Impulse: 1111, Class: ml.PositiveLabel},
		{Age: 55, Impulse: 64, Class: ml.PositiveLabel},
		{Age: 40, Impulse: 80, Class: "??"},
	}

	cleaned, issues := cleaner.Clean(samples)
	if len(cleaned) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(cleaned))
	}
	if cleaned[0].Age != 64 || cleaned[1].Age != 55 {
		t.Errorf("rows reordered: %+v", cleaned)
	}
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(issues))
	}
	if issues[0].Rule != "implausible_pulse" || issues[0].Row != 1 {
		t.Errorf("unexpected first issue: %+v", issues[0])
	}

	stats := cleaner.GetStats()
	if stats.TotalProcessed != 4 || stats.Passed != 2 || stats.Rejected != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Issues["label"] != 1 {
		t.Errorf("expected one label issue, got %d", stats.Issues["label"])
	}
	if time.Since(stats.LastClean) > time.Minute {
		t.Error("LastClean not updated")
	}

	// returned stats are a copy
	stats.Issues["label"] = 100
	if cleaner.GetStats().Issues["label"] != 1 {
		t.Error("GetStats leaked internal map")
	}
}
