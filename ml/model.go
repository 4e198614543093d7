package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
)

const ModelTypeAveragedPerceptron = "averaged_perceptron"

var ErrModelShape = errors.New("model shape invalid")

// BinaryTrainer fits a linear binary classifier, optionally warm-started
// from prior parameters.
type BinaryTrainer interface {
	Fit(ctx context.Context, set FeatureSet, init *LinearBinaryModel) (*LinearBinaryModel, TrainStats, error)
}

// Predictor scores one preference record.
type Predictor interface {
	Predict(record MoviePreference) (LikePrediction, error)
}

// LinearBinaryModel holds the parameters of a linear classifier:
// label = w·x + b > 0.
type LinearBinaryModel struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

func (m *LinearBinaryModel) Score(features []float64) float64 {
	score := m.Bias
	for i, w := range m.Weights {
		score += w * features[i]
	}
	return score
}

func (m *LinearBinaryModel) Predict(features []float64) (bool, float64, error) {
	if len(m.Weights) == 0 {
		return false, 0, errors.New("model not trained")
	}
	if len(features) != len(m.Weights) {
		return false, 0, fmt.Errorf("expected %d features, got %d", len(m.Weights), len(features))
	}
	score := m.Score(features)
	return score > 0, score, nil
}

// Validate checks the parameters against the number of features the model
// will be applied to.
func (m *LinearBinaryModel) Validate(featureCount int) error {
	if m == nil {
		return fmt.Errorf("%w: no parameters", ErrModelShape)
	}
	if len(m.Weights) == 0 {
		return fmt.Errorf("%w: empty weight vector", ErrModelShape)
	}
	if len(m.Weights) != featureCount {
		return fmt.Errorf("%w: %d weights for %d features", ErrModelShape, len(m.Weights), featureCount)
	}
	for i, w := range m.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: weight %d is %v", ErrModelShape, i, w)
		}
	}
	if math.IsNaN(m.Bias) || math.IsInf(m.Bias, 0) {
		return fmt.Errorf("%w: bias is %v", ErrModelShape, m.Bias)
	}
	return nil
}

// TrainedModel is a linear model composed after the pipeline it was trained
// behind.
type TrainedModel struct {
	Type     string             `json:"type"`
	Pipeline *Pipeline          `json:"pipeline"`
	Linear   *LinearBinaryModel `json:"linear"`
	Options  PerceptronOptions  `json:"options"`
}

func (m *TrainedModel) Validate() error {
	if m.Pipeline == nil {
		return fmt.Errorf("%w: missing pipeline", ErrModelShape)
	}
	return m.Linear.Validate(m.Pipeline.FeatureCount())
}

// Predict runs a record through the pipeline and the linear model.
func (m *TrainedModel) Predict(record MoviePreference) (LikePrediction, error) {
	vector, err := m.Pipeline.Vector(record)
	if err != nil {
		return LikePrediction{}, err
	}
	label, score, err := m.Linear.Predict(vector)
	if err != nil {
		return LikePrediction{}, err
	}
	return LikePrediction{Prediction: label, Score: score}, nil
}
