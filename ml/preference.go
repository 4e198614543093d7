package ml

import (
	"errors"
	"fmt"
)

const (
	ColumnStarWars           = "StarWars"
	ColumnArmageddon         = "Armageddon"
	ColumnSleeplessInSeattle = "SleeplessInSeattle"
	ColumnLikesDieHard       = "LikesDieHard"
	ColumnFeatures           = "Features"
)

var ErrUnknownColumn = errors.New("unknown column")

// MoviePreference is one survey answer: three movie ratings and whether the
// respondent likes Die Hard.
type MoviePreference struct {
	StarWars           float32
	Armageddon         float32
	SleeplessInSeattle float32
	LikesDieHard       bool
}

var (
	FanExemplar = MoviePreference{
		StarWars:           8,
		Armageddon:         10,
		SleeplessInSeattle: 1,
		LikesDieHard:       true,
	}
	HaterExemplar = MoviePreference{
		StarWars:           1,
		Armageddon:         1,
		SleeplessInSeattle: 9,
		LikesDieHard:       false,
	}
)

// Column returns the numeric value of a named rating column.
func (p MoviePreference) Column(name string) (float64, error) {
	switch name {
	case ColumnStarWars:
		return float64(p.StarWars), nil
	case ColumnArmageddon:
		return float64(p.Armageddon), nil
	case ColumnSleeplessInSeattle:
		return float64(p.SleeplessInSeattle), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
}

func (p MoviePreference) String() string {
	return fmt.Sprintf("MoviePreference { StarWars = %v, Armageddon = %v, SleeplessInSeattle = %v, LikesDieHard = %v }",
		p.StarWars, p.Armageddon, p.SleeplessInSeattle, p.LikesDieHard)
}

// LikePrediction is the engine output for one record.
type LikePrediction struct {
	Prediction bool
	Score      float64
}

func (p LikePrediction) String() string {
	return fmt.Sprintf("LikePrediction { Prediction = %v }", p.Prediction)
}

// TrainingData returns 50 fan records followed by 50 hater records.
func TrainingData() []MoviePreference {
	data := make([]MoviePreference, 0, 100)
	for i := 0; i < 50; i++ {
		data = append(data, FanExemplar)
	}
	for i := 0; i < 50; i++ {
		data = append(data, HaterExemplar)
	}
	return data
}

// SmokeQueries are the two fixed inference inputs. Their labels are unset.
func SmokeQueries() []MoviePreference {
	return []MoviePreference{
		{StarWars: 7, Armageddon: 9, SleeplessInSeattle: 0},
		{StarWars: 0, Armageddon: 0, SleeplessInSeattle: 10},
	}
}
