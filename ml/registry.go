package ml

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/Masterminds/semver"
)

// Loader reads a classifier artifact from path.
type Loader func(path string) (Classifier, error)

// ModelVersion binds a configuration identifier such as "v1" to the artifact
// version it serves and the code able to load it.
type ModelVersion struct {
	ID      string
	Version string
	Load    Loader
}

func (v ModelVersion) ArtifactName() string {
	return fmt.Sprintf("trained_model-%s.json", v.Version)
}

func (v ModelVersion) ArtifactPath(dir string) string {
	return filepath.Join(dir, v.ArtifactName())
}

// CheckArtifact reports whether an artifact stamped with version may be served
// under v. Versions compare as semver, so "0.1" matches "0.1.0".
func (v ModelVersion) CheckArtifact(version string) error {
	want, err := semver.NewVersion(v.Version)
	if err != nil {
		return fmt.Errorf("registered version %q: %w", v.Version, err)
	}
	got, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("artifact version %q: %w", version, err)
	}
	if !got.Equal(want) {
		return fmt.Errorf("artifact version %s does not match %s", got, want)
	}
	return nil
}

var versions = map[string]ModelVersion{
	"v1": {ID: "v1", Version: "0.1.0", Load: loadDecisionTree},
}

func LookupVersion(id string) (ModelVersion, error) {
	version, ok := versions[id]
	if !ok {
		return ModelVersion{}, &UnknownVersionError{Requested: id}
	}
	return version, nil
}

func Versions() []string {
	ids := make([]string, 0, len(versions))
	for id := range versions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func loadDecisionTree(path string) (Classifier, error) {
	model := &DecisionTree{}
	if err := model.Load(path); err != nil {
		return nil, err
	}
	return model, nil
}
