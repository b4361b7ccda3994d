package ml

import (
	"fmt"
	"slices"

	"github.com/yourusername/f1-winner/internal/models"
)

// Model serves predictions from a loaded artifact
type Model struct {
	artifact   *Artifact
	classifier Classifier
}

// NewModel wraps an artifact after checking it matches the current feature layout
func NewModel(a *Artifact) (*Model, error) {
	if a.Classifier == nil {
		return nil, fmt.Errorf("artifact %s has no classifier", a.Name)
	}
	if !slices.Equal(a.FeatureNames, FeatureNames) {
		return nil, fmt.Errorf("%w: artifact features %v", ErrFeatureMismatch, a.FeatureNames)
	}
	return &Model{artifact: a, classifier: a.Classifier}, nil
}

// Name returns the logical model name
func (m *Model) Name() string { return m.artifact.Name }

// Digest returns the content digest of the artifact
func (m *Model) Digest() string { return m.artifact.Metadata.Digest }

// Metadata returns the training metadata
func (m *Model) Metadata() models.ModelMetadata { return m.artifact.Metadata }

// HasRegressor reports whether the artifact carries a position regressor
func (m *Model) HasRegressor() bool { return m.artifact.Regressor != nil }

func (m *Model) prepare(rows []*models.FeatureRow) ([][]float64, error) {
	X, err := m.artifact.Imputer.Transform(VectorizeAll(rows))
	if err != nil {
		return nil, err
	}
	return m.artifact.Scaler.Transform(X)
}

// PredictWin returns the probability of winning for each row
func (m *Model) PredictWin(rows []*models.FeatureRow) ([]float64, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	X, err := m.prepare(rows)
	if err != nil {
		return nil, err
	}
	return m.classifier.PredictProba(X)
}

// PredictPosition returns the regressor's finishing position estimate for each
// row, or nil when the artifact has no regressor.
func (m *Model) PredictPosition(rows []*models.FeatureRow) ([]float64, error) {
	if m.artifact.Regressor == nil || len(rows) == 0 {
		return nil, nil
	}
	X, err := m.prepare(rows)
	if err != nil {
		return nil, err
	}
	return m.artifact.Regressor.Predict(X)
}
