package ml

import (
	"fmt"
	"math"
)

const (
	LossHinge = "hinge"
	LossLog   = "log"
)

// Loss is a classification loss over a raw score and a label in {-1, +1}.
type Loss interface {
	Value(output, label float64) float64
	Derivative(output, label float64) float64
}

// HingeLoss is max(0, margin - y*out).
type HingeLoss struct {
	Margin float64
}

func (l HingeLoss) Value(output, label float64) float64 {
	return math.Max(0, l.Margin-label*output)
}

func (l HingeLoss) Derivative(output, label float64) float64 {
	if label*output < l.Margin {
		return -label
	}
	return 0
}

// LogLoss is log(1 + e^(-y*out)).
type LogLoss struct{}

func (LogLoss) Value(output, label float64) float64 {
	return math.Log1p(math.Exp(-label * output))
}

func (LogLoss) Derivative(output, label float64) float64 {
	return -label / (1 + math.Exp(label*output))
}

func LossByName(name string, margin float64) (Loss, error) {
	switch name {
	case "", LossHinge:
		if margin <= 0 {
			margin = 1
		}
		return HingeLoss{Margin: margin}, nil
	case LossLog:
		return LogLoss{}, nil
	default:
		return nil, fmt.Errorf("unsupported loss %q", name)
	}
}
