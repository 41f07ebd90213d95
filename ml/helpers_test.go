package ml

import (
	"testing"
)

// testSamples returns a deterministic dataset in which every continuous
// feature populates all seven bins.
func testSamples() []Sample {
	samples := make([]Sample, 0, 70)
	for i := 0; i < 70; i++ {
		s := Sample{
			Age:          float64(20 + i),
			Gender:       float64(i % 2),
			Impulse:      float64(60 + (i*7)%80),
			PressureHigh: float64(100 + (i*3)%80),
			PressureLow:  float64(60 + (i*5)%40),
			Glucose:      float64(80 + (i*11)%150),
			KCM:          0.5 + float64(i%20)*1.3,
			Troponin:     0.001 + float64(i%35)*0.03,
			Class:        NegativeLabel,
		}
		if s.Troponin > 0.5 || s.KCM > 15 {
			s.Class = PositiveLabel
		}
		samples = append(samples, s)
	}
	return samples
}

func fittedPreprocessor(t *testing.T) (*Preprocessor, []Sample) {
	t.Helper()
	samples := testSamples()
	p := NewPreprocessor()
	if err := p.Fit(samples); err != nil {
		t.Fatalf("fit: %v", err)
	}
	return p, samples
}

// writeArtifact trains a tree on the scaled frame and saves it as version's artifact in dir.
func writeArtifact(t *testing.T, p *Preprocessor, samples []Sample, version ModelVersion, dir string) string {
	t.Helper()
	frame, err := p.Transform(samples, TransformOptions{DropTarget: true, Scale: true})
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	labels := make([]int, len(samples))
	for i, s := range samples {
		labels[i], _ = EncodeTarget(s.Class)
	}

	tree := NewDecisionTree(4)
	tree.Version = version.Version
	tree.Features = p.Columns(true)
	if err := tree.Train(frame.Rows, labels); err != nil {
		t.Fatalf("train: %v", err)
	}
	path := version.ArtifactPath(dir)
	if err := tree.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	return path
}
