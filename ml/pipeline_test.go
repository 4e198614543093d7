package ml

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTrainingDataShape(t *testing.T) {
	data := TrainingData()
	if len(data) != 100 {
		t.Fatalf("expected 100 records, got %d", len(data))
	}
	var fans int
	for i, record := range data {
		switch record {
		case FanExemplar:
			fans++
			if i >= 50 {
				t.Fatalf("fan at index %d", i)
			}
		case HaterExemplar:
		default:
			t.Fatalf("unexpected record %v", record)
		}
	}
	if fans != 50 {
		t.Fatalf("expected 50 fans, got %d", fans)
	}

	data[0].StarWars = 0
	if TrainingData()[0] != FanExemplar {
		t.Fatal("TrainingData must return a fresh slice")
	}
}

func TestRecordRendering(t *testing.T) {
	want := "MoviePreference { StarWars = 7, Armageddon = 9, SleeplessInSeattle = 0, LikesDieHard = false }"
	if got := SmokeQueries()[0].String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := (LikePrediction{Prediction: true, Score: 3}).String(); got != "LikePrediction { Prediction = true }" {
		t.Fatalf("unexpected prediction rendering %q", got)
	}
}

func TestPipelineTransform(t *testing.T) {
	pipeline, err := DefaultPipeline().Fit(TrainingData())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	set, err := pipeline.Transform([]MoviePreference{FanExemplar, HaterExemplar})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := FeatureSet{
		Vectors: [][]float64{{8, 10, 1}, {1, 1, 9}},
		Labels:  []bool{true, false},
	}
	if diff := cmp.Diff(want, set); diff != "" {
		t.Fatalf("feature set mismatch (-want +got):\n%s", diff)
	}
	if pipeline.FeatureCount() != 3 {
		t.Fatalf("expected 3 features, got %d", pipeline.FeatureCount())
	}
}

func TestPipelineErrors(t *testing.T) {
	if _, err := DefaultPipeline().Fit(nil); !errors.Is(err, ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
	bad := NewConcatPipeline(ColumnFeatures, ColumnStarWars, "Titanic")
	if _, err := bad.Fit(TrainingData()); !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}
	dup := NewConcatPipeline(ColumnFeatures, ColumnStarWars, ColumnStarWars)
	if _, err := dup.Fit(TrainingData()); err == nil {
		t.Fatal("expected error for duplicate column")
	}
	if _, err := NewConcatPipeline(ColumnFeatures).Fit(TrainingData()); err == nil {
		t.Fatal("expected error for empty pipeline")
	}
}

func TestPipelineFingerprint(t *testing.T) {
	a := DefaultPipeline()
	b := DefaultPipeline()
	if a.Fingerprint() != b.Fingerprint() || !a.Equal(b) {
		t.Fatal("identical pipelines must share a fingerprint")
	}
	reordered := NewConcatPipeline(ColumnFeatures, ColumnArmageddon, ColumnStarWars, ColumnSleeplessInSeattle)
	if a.Equal(reordered) {
		t.Fatal("column order must change the fingerprint")
	}
}
