package ml

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func tempPaths(t *testing.T) ArtifactPaths {
	t.Helper()
	dir := t.TempDir()
	return ArtifactPaths{
		Pipeline: filepath.Join(dir, "diehard-pipeline.zip"),
		Model:    filepath.Join(dir, "diehard-model.zip"),
	}
}

func smokePredictions(t *testing.T, model *TrainedModel) []LikePrediction {
	t.Helper()
	queries := SmokeQueries()
	out := make([]LikePrediction, len(queries))
	for i, query := range queries {
		prediction, err := model.Predict(query)
		require.NoError(t, err)
		out[i] = prediction
	}
	return out
}

func TestDetectState(t *testing.T) {
	paths := tempPaths(t)
	state, err := DetectState(paths)
	require.NoError(t, err)
	require.Equal(t, StateFresh, state)

	require.NoError(t, os.WriteFile(paths.Model, []byte("x"), 0o600))
	state, err = DetectState(paths)
	require.NoError(t, err)
	require.Equal(t, StatePartial, state)

	require.NoError(t, os.WriteFile(paths.Pipeline, []byte("x"), 0o600))
	state, err = DetectState(paths)
	require.NoError(t, err)
	require.Equal(t, StateExisting, state)
	require.Equal(t, "existing", state.String())
}

func TestLifecycleTrainThenRetrain(t *testing.T) {
	paths := tempPaths(t)
	lifecycle := NewLifecycle(paths, DefaultPerceptronOptions(), nil)
	ctx := context.Background()

	first, err := lifecycle.Run(ctx, TrainingData())
	require.NoError(t, err)
	require.Equal(t, ModeTrain, first.Mode)
	require.NotEmpty(t, first.RunID)
	require.FileExists(t, paths.Pipeline)
	require.FileExists(t, paths.Model)

	firstPredictions := smokePredictions(t, first.Model)
	require.True(t, firstPredictions[0].Prediction, "fan query")
	require.False(t, firstPredictions[1].Prediction, "hater query")

	second, err := lifecycle.Run(ctx, TrainingData())
	require.NoError(t, err)
	require.Equal(t, ModeRetrain, second.Mode)
	require.NotEqual(t, first.RunID, second.RunID)

	secondPredictions := smokePredictions(t, second.Model)
	for i := range firstPredictions {
		require.Equal(t, firstPredictions[i].Prediction, secondPredictions[i].Prediction)
		// Same sign, and no loss of confidence beyond rounding.
		require.GreaterOrEqual(t, math.Abs(secondPredictions[i].Score), math.Abs(firstPredictions[i].Score)-1e-9)
	}

	_, manifest, err := LoadModel(paths.Model)
	require.NoError(t, err)
	require.Equal(t, second.RunID, manifest.RunID)
	_, pipelineManifest, err := LoadPipeline(paths.Pipeline)
	require.NoError(t, err)
	require.Equal(t, first.RunID, pipelineManifest.RunID, "retraining must not rewrite the pipeline")
}

func TestLifecycleRefusesPartialArtifacts(t *testing.T) {
	paths := tempPaths(t)
	require.NoError(t, SavePipeline(paths.Pipeline, DefaultPipeline(), "orphan"))
	before, err := os.ReadFile(paths.Pipeline)
	require.NoError(t, err)

	_, err = NewLifecycle(paths, DefaultPerceptronOptions(), nil).Run(context.Background(), TrainingData())
	require.ErrorIs(t, err, ErrPartialArtifacts)

	require.NoFileExists(t, paths.Model)
	after, err := os.ReadFile(paths.Pipeline)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestLifecycleRefusesModelWithoutPipeline(t *testing.T) {
	paths := tempPaths(t)
	require.NoError(t, os.WriteFile(paths.Model, []byte("stale"), 0o600))

	_, err := NewLifecycle(paths, DefaultPerceptronOptions(), nil).Run(context.Background(), TrainingData())
	require.ErrorIs(t, err, ErrPartialArtifacts)
	require.NoFileExists(t, paths.Pipeline)
}

func TestLifecycleRetrainDetectsPipelineMismatch(t *testing.T) {
	paths := tempPaths(t)
	lifecycle := NewLifecycle(paths, DefaultPerceptronOptions(), nil)
	_, err := lifecycle.Run(context.Background(), TrainingData())
	require.NoError(t, err)

	reordered := NewConcatPipeline(ColumnFeatures, ColumnSleeplessInSeattle, ColumnArmageddon, ColumnStarWars)
	require.NoError(t, SavePipeline(paths.Pipeline, reordered, "other"))

	_, err = lifecycle.Run(context.Background(), TrainingData())
	require.ErrorIs(t, err, ErrPipelineMismatch)
}

func TestLifecycleRetrainRejectsCorruptModel(t *testing.T) {
	paths := tempPaths(t)
	lifecycle := NewLifecycle(paths, DefaultPerceptronOptions(), nil)
	_, err := lifecycle.Run(context.Background(), TrainingData())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(paths.Model, []byte("corrupt"), 0o600))
	_, err = lifecycle.Run(context.Background(), TrainingData())
	require.ErrorIs(t, err, ErrArtifactSchema)
}

func TestLifecycleTrainFailureWritesNothing(t *testing.T) {
	paths := tempPaths(t)
	opts := DefaultPerceptronOptions()
	opts.Iterations = 0
	_, err := NewLifecycle(paths, opts, nil).Run(context.Background(), TrainingData())
	require.Error(t, err)
	require.NoFileExists(t, paths.Model)
	require.NoFileExists(t, paths.Pipeline)
	state, err := DetectState(paths)
	require.NoError(t, err)
	require.Equal(t, StateFresh, state)
}

func TestLifecycleModelSaveFailureRemovesPipeline(t *testing.T) {
	dir := t.TempDir()
	paths := ArtifactPaths{
		Pipeline: filepath.Join(dir, "diehard-pipeline.zip"),
		Model:    filepath.Join(dir, "missing", "diehard-model.zip"),
	}
	_, err := NewLifecycle(paths, DefaultPerceptronOptions(), nil).Run(context.Background(), TrainingData())
	require.Error(t, err)
	require.NoFileExists(t, paths.Pipeline)
	state, err := DetectState(paths)
	require.NoError(t, err)
	require.Equal(t, StateFresh, state)
}

func TestLifecycleRetrainRejectsForeignModelType(t *testing.T) {
	paths := tempPaths(t)
	lifecycle := NewLifecycle(paths, DefaultPerceptronOptions(), nil)
	first, err := lifecycle.Run(context.Background(), TrainingData())
	require.NoError(t, err)

	foreign := *first.Model
	foreign.Type = "decision_tree"
	require.NoError(t, SaveModel(paths.Model, &foreign, "foreign"))

	_, err = lifecycle.Run(context.Background(), TrainingData())
	require.ErrorIs(t, err, ErrModelShape)
}

func TestLifecycleRecordsTrainerOptions(t *testing.T) {
	paths := tempPaths(t)
	opts := DefaultPerceptronOptions()
	opts.Seed = 42
	result, err := NewLifecycle(paths, opts, nil).Run(context.Background(), TrainingData())
	require.NoError(t, err)
	require.Equal(t, opts, result.Model.Options)

	loaded, _, err := LoadModel(paths.Model)
	require.NoError(t, err)
	require.Equal(t, opts, loaded.Options)
}
