package ml

// Classifier returns the predicted class of one transformed feature vector
// together with a confidence in [0, 1].
type Classifier interface {
	Predict(features []float64) (int, float64, error)
}

// Trainable is implemented by classifiers that cmd/train_model can fit and persist.
type Trainable interface {
	Classifier
	Train(features [][]float64, labels []int) error
	Save(path string) error
}

type featureColumns interface {
	FeatureColumns() []string
}

type artifactVersion interface {
	ArtifactVersion() string
}
