package ml

import (
	"errors"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCacheSize = 128

// PredictionEngine scores records against a trained model and memoizes
// results per feature vector.
type PredictionEngine struct {
	model *TrainedModel
	cache *lru.Cache[string, LikePrediction]
}

func NewPredictionEngine(model *TrainedModel, cacheSize int) (*PredictionEngine, error) {
	if model == nil {
		return nil, errors.New("model is nil")
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, LikePrediction](cacheSize)
	if err != nil {
		return nil, err
	}
	return &PredictionEngine{model: model, cache: cache}, nil
}

// Predict ignores the record's label.
func (e *PredictionEngine) Predict(record MoviePreference) (LikePrediction, error) {
	vector, err := e.model.Pipeline.Vector(record)
	if err != nil {
		return LikePrediction{}, err
	}
	key := vectorKey(vector)
	if cached, ok := e.cache.Get(key); ok {
		return cached, nil
	}
	label, score, err := e.model.Linear.Predict(vector)
	if err != nil {
		return LikePrediction{}, err
	}
	prediction := LikePrediction{Prediction: label, Score: score}
	e.cache.Add(key, prediction)
	return prediction, nil
}

func (e *PredictionEngine) CacheLen() int {
	return e.cache.Len()
}

func vectorKey(vector []float64) string {
	var b strings.Builder
	for i, v := range vector {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return b.String()
}

var _ Predictor = (*PredictionEngine)(nil)
var _ Predictor = (*TrainedModel)(nil)
