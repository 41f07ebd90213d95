package ml

import (
	"errors"
	"math"
	"testing"
)

func approxEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			return false
		}
	}
	return true
}

func TestBinsLocate(t *testing.T) {
	bins, err := NewBins([]float64{0, 3, 7}, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bins.Len() != 7 {
		t.Fatalf("expected 7 bins, got %d", bins.Len())
	}

	tests := []struct {
		value float64
		want  int
	}{
		{0, 0},
		{1, 0},
		{1.5, 1},
		{3, 2},
		{6.99, 6},
		{7, 6},
	}
	for _, tt := range tests {
		got, err := bins.Locate(tt.value)
		if err != nil {
			t.Fatalf("Locate(%v): unexpected error %v", tt.value, err)
		}
		if got != tt.want {
			t.Errorf("Locate(%v) = %d, want %d", tt.value, got, tt.want)
		}
	}

	for _, value := range []float64{-1, 7.01} {
		if _, err := bins.Locate(value); !errors.Is(err, ErrValueOutOfRange) {
			t.Errorf("Locate(%v): expected ErrValueOutOfRange, got %v", value, err)
		}
	}
}

func TestBinsFirstEdgeExtended(t *testing.T) {
	bins, _ := NewBins([]float64{10, 80}, 7)
	edges := bins.Edges()
	if len(edges) != 8 {
		t.Fatalf("expected 8 edges, got %d", len(edges))
	}
	if want := 10 - 70*0.001; math.Abs(edges[0]-want) > 1e-12 {
		t.Fatalf("expected first edge %v, got %v", want, edges[0])
	}
	if edges[7] != 80 {
		t.Fatalf("expected last edge 80, got %v", edges[7])
	}
}

func TestBinsConstantColumn(t *testing.T) {
	bins, err := NewBins([]float64{5, 5, 5}, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := bins.Locate(5); err != nil {
		t.Fatalf("expected constant value to be binned: %v", err)
	}

	zero, _ := NewBins([]float64{0}, 7)
	if _, err := zero.Locate(0); err != nil {
		t.Fatalf("expected zero to be binned: %v", err)
	}
}

func TestLabelEncoder(t *testing.T) {
	encoder := &LabelEncoder{}
	encoder.Fit([]int{6, 0, 3, 3, 0})

	classes := encoder.Classes()
	if len(classes) != 3 || classes[0] != 0 || classes[1] != 3 || classes[2] != 6 {
		t.Fatalf("unexpected classes: %v", classes)
	}
	code, err := encoder.Encode(6)
	if err != nil || code != 2 {
		t.Fatalf("expected code 2, got %d (%v)", code, err)
	}
	if _, err := encoder.Encode(4); !errors.Is(err, ErrUnseenBin) {
		t.Fatalf("expected ErrUnseenBin, got %v", err)
	}
}

func TestMinMaxScaler(t *testing.T) {
	scaler := &MinMaxScaler{}
	if err := scaler.Fit([][]float64{{0, 5, 10}, {10, 5, 20}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scaled, err := scaler.Transform([]float64{5, 5, 15})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approxEqual(scaled, []float64{0.5, 0, 0.5}) {
		t.Fatalf("unexpected scaled row: %v", scaled)
	}

	restored, _ := scaler.InverseTransform(scaled)
	if !approxEqual(restored, []float64{5, 5, 15}) {
		t.Fatalf("unexpected restored row: %v", restored)
	}

	if _, err := scaler.Transform([]float64{1}); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}
