package ml

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"heartrisk/monitoring"
)

const (
	LabelPositive = "Positive"
	LabelNegative = "Negative"
)

// Model runs samples through the fitted preprocessor and the classifier of
// one registered version.
type Model struct {
	version      ModelVersion
	dir          string
	preprocessor *Preprocessor
	cache        *ArtifactCache
}

type ModelOption func(*Model)

// WithArtifactCache keeps loaded artifacts in c. Without it the artifact is
// read from disk on every prediction.
func WithArtifactCache(c *ArtifactCache) ModelOption {
	return func(m *Model) {
		m.cache = c
	}
}

func NewModel(version ModelVersion, dir string, preprocessor *Preprocessor, opts ...ModelOption) *Model {
	m := &Model{
		version:      version,
		dir:          dir,
		preprocessor: preprocessor,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Model) Version() string {
	return m.version.Version
}

func (m *Model) ArtifactPath() string {
	return m.version.ArtifactPath(m.dir)
}

func (m *Model) LoadModel() (Classifier, error) {
	path := m.ArtifactPath()

	var (
		classifier Classifier
		hit        bool
		err        error
	)
	if m.cache != nil {
		classifier, hit, err = m.cache.Get(path, m.version.Load)
	} else {
		classifier, err = m.version.Load(path)
	}
	if err != nil {
		monitoring.RecordArtifactLoad("error")
		zap.L().Error("Failed to load model", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %w", ErrModelLoad, path, err)
	}

	if err := m.checkArtifact(classifier); err != nil {
		if m.cache != nil {
			m.cache.Evict(path)
		}
		monitoring.RecordArtifactLoad("error")
		zap.L().Error("Rejected model artifact", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %w", ErrModelLoad, path, err)
	}

	if hit {
		monitoring.RecordArtifactLoad("cache_hit")
	} else {
		monitoring.RecordArtifactLoad("loaded")
		zap.L().Debug("Model loaded successfully", zap.String("path", path))
	}
	return classifier, nil
}

// checkArtifact rejects artifacts trained for other columns or stamped with
// another version. Artifacts without metadata are accepted.
func (m *Model) checkArtifact(classifier Classifier) error {
	if columns, ok := classifier.(featureColumns); ok && len(columns.FeatureColumns()) > 0 {
		if want := m.preprocessor.Columns(true); !slices.Equal(columns.FeatureColumns(), want) {
			return ErrShapeMismatch
		}
	}
	if stamped, ok := classifier.(artifactVersion); ok && stamped.ArtifactVersion() != "" {
		return m.version.CheckArtifact(stamped.ArtifactVersion())
	}
	return nil
}

func (m *Model) Predict(ctx context.Context, sample Sample) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrPrediction, err)
	}
	classifier, err := m.LoadModel()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPrediction, err)
	}

	frame, err := m.preprocessor.Transform([]Sample{sample}, TransformOptions{DropTarget: true, Scale: true})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPrediction, err)
	}
	if len(frame.Rows) != 1 {
		return "", fmt.Errorf("%w: expected one row, got %d", ErrPrediction, len(frame.Rows))
	}

	class, _, err := classifier.Predict(frame.Rows[0])
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPrediction, err)
	}
	switch class {
	case 1:
		return LabelPositive, nil
	case 0:
		return LabelNegative, nil
	default:
		return "", fmt.Errorf("%w: unexpected class %d", ErrPrediction, class)
	}
}
