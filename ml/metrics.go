package ml

import "errors"

type Metrics struct {
	Accuracy   float64
	Precision  float64
	Recall     float64
	DataPoints int
}

// Evaluate scores labelled records; the positive class is LikesDieHard.
func Evaluate(predictor Predictor, records []MoviePreference) (Metrics, error) {
	if len(records) == 0 {
		return Metrics{}, errors.New("records is empty")
	}

	var correct int
	var truePositive int
	var predictedPositive int
	var actualPositive int

	for _, record := range records {
		prediction, err := predictor.Predict(record)
		if err != nil {
			return Metrics{}, err
		}
		if prediction.Prediction == record.LikesDieHard {
			correct++
		}
		if prediction.Prediction {
			predictedPositive++
		}
		if record.LikesDieHard {
			actualPositive++
			if prediction.Prediction {
				truePositive++
			}
		}
	}

	metrics := Metrics{
		Accuracy:   float64(correct) / float64(len(records)),
		DataPoints: len(records),
	}
	if predictedPositive > 0 {
		metrics.Precision = float64(truePositive) / float64(predictedPositive)
	}
	if actualPositive > 0 {
		metrics.Recall = float64(truePositive) / float64(actualPositive)
	}
	return metrics, nil
}
