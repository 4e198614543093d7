package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"
)

// PerceptronOptions configures AveragedPerceptron.
type PerceptronOptions struct {
	Iterations           int     `json:"iterations"`
	LearningRate         float64 `json:"learning_rate"`
	DecreaseLearningRate bool    `json:"decrease_learning_rate"`
	L2Regularization     float64 `json:"l2_regularization"`
	Shuffle              bool    `json:"shuffle"`
	Seed                 int64   `json:"seed"`
	Loss                 string  `json:"loss"`
	Margin               float64 `json:"margin"`
}

func DefaultPerceptronOptions() PerceptronOptions {
	return PerceptronOptions{
		Iterations:   10,
		LearningRate: 1,
		Shuffle:      true,
		Loss:         LossHinge,
		Margin:       1,
	}
}

type TrainStats struct {
	Iterations int
	Examples   int
	Updates    int
}

// AveragedPerceptron trains a linear binary classifier and returns the
// average of the weight vector over every example it visited.
type AveragedPerceptron struct {
	opts   PerceptronOptions
	logger *zap.Logger
}

func NewAveragedPerceptron(opts PerceptronOptions) *AveragedPerceptron {
	return &AveragedPerceptron{opts: opts, logger: zap.NewNop()}
}

func (p *AveragedPerceptron) WithLogger(logger *zap.Logger) *AveragedPerceptron {
	if logger != nil {
		p.logger = logger
	}
	return p
}

func (p *AveragedPerceptron) Options() PerceptronOptions {
	return p.opts
}

// Fit trains on set. When init is non-nil training continues from its
// parameters instead of from zero.
func (p *AveragedPerceptron) Fit(ctx context.Context, set FeatureSet, init *LinearBinaryModel) (*LinearBinaryModel, TrainStats, error) {
	var stats TrainStats
	if set.Len() == 0 {
		return nil, stats, ErrEmptyDataset
	}
	if len(set.Labels) != set.Len() {
		return nil, stats, errors.New("features and labels size mismatch")
	}
	if p.opts.Iterations <= 0 {
		return nil, stats, errors.New("iterations must be positive")
	}
	if p.opts.LearningRate <= 0 {
		return nil, stats, errors.New("learning rate must be positive")
	}
	loss, err := LossByName(p.opts.Loss, p.opts.Margin)
	if err != nil {
		return nil, stats, err
	}

	dim := len(set.Vectors[0])
	for i, vector := range set.Vectors {
		if len(vector) != dim {
			return nil, stats, fmt.Errorf("inconsistent feature vector length at row %d", i)
		}
	}

	weights := make([]float64, dim)
	bias := 0.0
	if init != nil {
		if err := init.Validate(dim); err != nil {
			return nil, stats, err
		}
		copy(weights, init.Weights)
		bias = init.Bias
	}

	sumWeights := make([]float64, dim)
	sumBias := 0.0

	order := make([]int, set.Len())
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewSource(p.opts.Seed))

	for iter := 0; iter < p.opts.Iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		if p.opts.Shuffle {
			rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		passUpdates := 0
		for _, idx := range order {
			stats.Examples++
			x := set.Vectors[idx]
			y := -1.0
			if set.Labels[idx] {
				y = 1
			}

			rate := p.opts.LearningRate
			if p.opts.DecreaseLearningRate {
				rate /= math.Sqrt(float64(stats.Examples))
			}
			if p.opts.L2Regularization > 0 {
				shrink := 1 - rate*p.opts.L2Regularization
				for i := range weights {
					weights[i] *= shrink
				}
			}

			output := bias
			for i, w := range weights {
				output += w * x[i]
			}
			if d := loss.Derivative(output, y); d != 0 {
				for i := range weights {
					weights[i] -= rate * d * x[i]
				}
				bias -= rate * d
				stats.Updates++
				passUpdates++
			}

			for i, w := range weights {
				sumWeights[i] += w
			}
			sumBias += bias
		}
		stats.Iterations++
		p.logger.Debug("perceptron pass complete",
			zap.Int("iteration", iter+1),
			zap.Int("updates", passUpdates))
	}

	count := float64(stats.Examples)
	averaged := &LinearBinaryModel{
		Weights: make([]float64, dim),
		Bias:    sumBias / count,
	}
	for i, s := range sumWeights {
		averaged.Weights[i] = s / count
	}
	return averaged, stats, nil
}

var _ BinaryTrainer = (*AveragedPerceptron)(nil)
