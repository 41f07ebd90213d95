package ml

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"testing"
)

func TestLookupVersion(t *testing.T) {
	version, err := LookupVersion("v1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version.Version != "0.1.0" {
		t.Fatalf("expected version 0.1.0, got %s", version.Version)
	}
	if version.ArtifactName() != "trained_model-0.1.0.json" {
		t.Fatalf("unexpected artifact name %s", version.ArtifactName())
	}

	_, err = LookupVersion("v9")
	var unknown *UnknownVersionError
	if !errors.As(err, &unknown) || unknown.Requested != "v9" {
		t.Fatalf("expected UnknownVersionError for v9, got %v", err)
	}
	if !strings.Contains(err.Error(), "v9") {
		t.Fatalf("error should name the version: %v", err)
	}
}

func TestModelPredict(t *testing.T) {
	p, samples := fittedPreprocessor(t)
	version, _ := LookupVersion("v1")
	dir := t.TempDir()
	writeArtifact(t, p, samples, version, dir)

	model := NewModel(version, dir, p)
	if model.Version() != "0.1.0" {
		t.Fatalf("unexpected version %s", model.Version())
	}

	ctx := context.Background()
	tests := []struct {
		name   string
		sample Sample
		want   string
	}{
		{"low risk", samples[0], LabelNegative},
		{"elevated troponin and kcm", samples[32], LabelPositive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sample := tt.sample
			sample.Class = UnknownLabel
			got, err := model.Predict(ctx, sample)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestModelPredictDeterministic(t *testing.T) {
	p, samples := fittedPreprocessor(t)
	version, _ := LookupVersion("v1")
	dir := t.TempDir()
	writeArtifact(t, p, samples, version, dir)

	cache, err := NewArtifactCache(0)
	if err != nil {
		t.Fatal(err)
	}
	cached := NewModel(version, dir, p, WithArtifactCache(cache))
	uncached := NewModel(version, dir, p)

	for i, sample := range samples {
		first, err := cached.Predict(context.Background(), sample)
		if err != nil {
			t.Fatalf("sample %d: %v", i, err)
		}
		second, _ := cached.Predict(context.Background(), sample)
		third, _ := uncached.Predict(context.Background(), sample)
		if first != second || first != third {
			t.Fatalf("sample %d: predictions differ: %s %s %s", i, first, second, third)
		}
		if first != LabelPositive && first != LabelNegative {
			t.Fatalf("sample %d: unexpected label %q", i, first)
		}
	}
	if cache.Len() != 1 {
		t.Fatalf("expected one cached artifact, got %d", cache.Len())
	}
}

func TestModelPredictErrors(t *testing.T) {
	p, samples := fittedPreprocessor(t)
	version, _ := LookupVersion("v1")

	missing := NewModel(version, t.TempDir(), p)
	_, err := missing.Predict(context.Background(), samples[0])
	if !errors.Is(err, ErrPrediction) || !errors.Is(err, ErrModelLoad) {
		t.Fatalf("expected prediction and load errors, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected the missing file to stay visible, got %v", err)
	}

	dir := t.TempDir()
	writeArtifact(t, p, samples, version, dir)
	model := NewModel(version, dir, p)

	outside := samples[0]
	outside.Age = 500
	if _, err := model.Predict(context.Background(), outside); !errors.Is(err, ErrValueOutOfRange) {
		t.Fatalf("expected ErrValueOutOfRange, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := model.Predict(ctx, samples[0]); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestModelRejectsMismatchedArtifact(t *testing.T) {
	p, _ := fittedPreprocessor(t)
	version, _ := LookupVersion("v1")
	dir := t.TempDir()

	tree := NewDecisionTree(2)
	tree.Features = []string{"age", "gender"}
	if err := tree.Train([][]float64{{0, 0}, {1, 1}}, []int{0, 1}); err != nil {
		t.Fatal(err)
	}
	if err := tree.Save(version.ArtifactPath(dir)); err != nil {
		t.Fatal(err)
	}

	cache, _ := NewArtifactCache(2)
	model := NewModel(version, dir, p, WithArtifactCache(cache))
	if _, err := model.LoadModel(); !errors.Is(err, ErrModelLoad) {
		t.Fatalf("expected ErrModelLoad, got %v", err)
	}
	if cache.Len() != 0 {
		t.Fatal("mismatched artifact must not stay cached")
	}
}

func TestCheckArtifactVersion(t *testing.T) {
	version, _ := LookupVersion("v1")
	if err := version.CheckArtifact("0.1"); err != nil {
		t.Fatalf("expected 0.1 to match 0.1.0: %v", err)
	}
	if err := version.CheckArtifact("0.2.0"); err == nil {
		t.Fatal("expected mismatch for 0.2.0")
	}
	if err := version.CheckArtifact("latest"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestModelRejectsArtifactFromOtherVersion(t *testing.T) {
	p, samples := fittedPreprocessor(t)
	version, _ := LookupVersion("v1")
	dir := t.TempDir()

	// a 0.2.0 artifact saved under the 0.1.0 file name
	other := version
	other.Version = "0.2.0"
	src := writeArtifact(t, p, samples, other, dir)
	if err := os.Rename(src, version.ArtifactPath(dir)); err != nil {
		t.Fatal(err)
	}

	model := NewModel(version, dir, p)
	if _, err := model.LoadModel(); !errors.Is(err, ErrModelLoad) {
		t.Fatalf("expected ErrModelLoad, got %v", err)
	}
}
