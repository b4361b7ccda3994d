package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Classifier estimates the probability of the positive class for each row
type Classifier interface {
	Fit(X [][]float64, y []float64) error
	PredictProba(X [][]float64) ([]float64, error)
}

// Default logistic regression hyperparameters
const (
	DefaultIterations   = 500
	DefaultLearningRate = 0.1
	DefaultL2           = 0.01
)

// LogisticRegression is a binary classifier fitted by full-batch gradient
// descent on L2-penalised log-loss. Weights[0] is the intercept.
type LogisticRegression struct {
	Weights      []float64 `json:"weights"`
	Iterations   int       `json:"iterations"`
	LearningRate float64   `json:"learning_rate"`
	L2           float64   `json:"l2"`
}

// NewLogisticRegression creates an unfitted classifier
func NewLogisticRegression(iterations int, learningRate, l2 float64) *LogisticRegression {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	if learningRate <= 0 {
		learningRate = DefaultLearningRate
	}
	return &LogisticRegression{Iterations: iterations, LearningRate: learningRate, L2: l2}
}

// Fit estimates the weights. Labels must be 0 or 1.
func (m *LogisticRegression) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return ErrInsufficientData
	}
	if len(X) != len(y) {
		return fmt.Errorf("%w: %d rows, %d labels", ErrFeatureMismatch, len(X), len(y))
	}
	width := len(X[0]) + 1
	design := make([][]float64, len(X))
	for i, x := range X {
		if len(x)+1 != width {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrFeatureMismatch, i, len(x), width-1)
		}
		design[i] = append([]float64{1}, x...)
	}

	w := make([]float64, width)
	grad := make([]float64, width)
	n := float64(len(design))
	for iter := 0; iter < m.Iterations; iter++ {
		for k := range grad {
			grad[k] = 0
		}
		for i, x := range design {
			// gradient of log-loss is (p - y) * x
			floats.AddScaled(grad, sigmoid(floats.Dot(w, x))-y[i], x)
		}
		floats.Scale(1/n, grad)
		for k := 1; k < width; k++ {
			grad[k] += m.L2 * w[k]
		}
		floats.AddScaled(w, -m.LearningRate, grad)
	}
	m.Weights = w
	return nil
}

// PredictProba returns P(y=1) for each row
func (m *LogisticRegression) PredictProba(X [][]float64) ([]float64, error) {
	if len(m.Weights) == 0 {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(X))
	for i, x := range X {
		if len(x)+1 != len(m.Weights) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrFeatureMismatch, i, len(x), len(m.Weights)-1)
		}
		out[i] = sigmoid(m.Weights[0] + floats.Dot(m.Weights[1:], x))
	}
	return out, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
