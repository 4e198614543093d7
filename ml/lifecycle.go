package ml

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrPartialArtifacts = errors.New("only one of the pipeline/model artifacts exists")
	ErrPipelineMismatch = errors.New("model was trained behind a different pipeline")
)

type ArtifactState int

const (
	StateFresh ArtifactState = iota
	StateExisting
	StatePartial
)

func (s ArtifactState) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateExisting:
		return "existing"
	case StatePartial:
		return "partial"
	default:
		return "unknown"
	}
}

const (
	ModeTrain   = "train"
	ModeRetrain = "retrain"
)

// ArtifactPaths names the two persisted files.
type ArtifactPaths struct {
	Pipeline string
	Model    string
}

func DefaultArtifactPaths() ArtifactPaths {
	return ArtifactPaths{
		Pipeline: "./diehard-pipeline.zip",
		Model:    "./diehard-model.zip",
	}
}

// DetectState reports which of the two artifacts are on disk.
func DetectState(paths ArtifactPaths) (ArtifactState, error) {
	pipelineExists, err := fileExists(paths.Pipeline)
	if err != nil {
		return StateFresh, err
	}
	modelExists, err := fileExists(paths.Model)
	if err != nil {
		return StateFresh, err
	}
	switch {
	case pipelineExists && modelExists:
		return StateExisting, nil
	case !pipelineExists && !modelExists:
		return StateFresh, nil
	default:
		return StatePartial, nil
	}
}

type RunResult struct {
	RunID string
	Mode  string
	Model *TrainedModel
	Stats TrainStats
}

// Lifecycle trains a new model when no artifacts exist and continues
// training the persisted one otherwise.
type Lifecycle struct {
	Paths    ArtifactPaths
	Options  PerceptronOptions
	Pipeline *Pipeline
	Logger   *zap.Logger
}

func NewLifecycle(paths ArtifactPaths, opts PerceptronOptions, logger *zap.Logger) *Lifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lifecycle{
		Paths:    paths,
		Options:  opts,
		Pipeline: DefaultPipeline(),
		Logger:   logger,
	}
}

func (l *Lifecycle) Run(ctx context.Context, data []MoviePreference) (*RunResult, error) {
	state, err := DetectState(l.Paths)
	if err != nil {
		return nil, err
	}
	l.Logger.Info("artifact state detected",
		zap.Stringer("state", state),
		zap.String("pipeline", l.Paths.Pipeline),
		zap.String("model", l.Paths.Model))

	switch state {
	case StateFresh:
		return l.TrainNew(ctx, data)
	case StateExisting:
		return l.Retrain(ctx, data)
	default:
		return nil, fmt.Errorf("%w: pipeline=%s model=%s; remove the remaining file to train from scratch",
			ErrPartialArtifacts, l.Paths.Pipeline, l.Paths.Model)
	}
}

// TrainNew fits the pipeline and a perceptron from zero, then persists the
// pipeline followed by the model.
func (l *Lifecycle) TrainNew(ctx context.Context, data []MoviePreference) (*RunResult, error) {
	runID := uuid.NewString()
	pipeline, err := l.Pipeline.Fit(data)
	if err != nil {
		return nil, fmt.Errorf("fit pipeline: %w", err)
	}
	set, err := pipeline.Transform(data)
	if err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}
	trainer := l.trainer()
	linear, stats, err := trainer.Fit(ctx, set, nil)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}

	model := &TrainedModel{
		Type:     ModelTypeAveragedPerceptron,
		Pipeline: pipeline,
		Linear:   linear,
		Options:  trainer.Options(),
	}
	// Persist only after training succeeds.
	if err := SavePipeline(l.Paths.Pipeline, pipeline, runID); err != nil {
		return nil, fmt.Errorf("save pipeline: %w", err)
	}
	if err := SaveModel(l.Paths.Model, model, runID); err != nil {
		// A lone pipeline would block every later run as partial.
		if rmErr := os.Remove(l.Paths.Pipeline); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			l.Logger.Warn("removing orphaned pipeline artifact", zap.String("path", l.Paths.Pipeline), zap.Error(rmErr))
		}
		return nil, fmt.Errorf("save model: %w", err)
	}
	l.Logger.Info("trained new model",
		zap.String("run_id", runID),
		zap.Int("examples", stats.Examples),
		zap.Int("updates", stats.Updates),
		zap.Float64s("weights", linear.Weights),
		zap.Float64("bias", linear.Bias))
	return &RunResult{RunID: runID, Mode: ModeTrain, Model: model, Stats: stats}, nil
}

// Retrain reloads both artifacts, warm-starts the perceptron from the stored
// parameters and replaces the model artifact. The pipeline file is left as is.
func (l *Lifecycle) Retrain(ctx context.Context, data []MoviePreference) (*RunResult, error) {
	runID := uuid.NewString()
	prior, priorManifest, err := LoadModelArtifact(ModelTypeAveragedPerceptron, l.Paths.Model)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	pipeline, _, err := LoadPipeline(l.Paths.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("load pipeline: %w", err)
	}
	if !pipeline.Equal(prior.Pipeline) {
		return nil, fmt.Errorf("%w: %s does not match %s", ErrPipelineMismatch, l.Paths.Model, l.Paths.Pipeline)
	}

	set, err := pipeline.Transform(data)
	if err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}
	trainer := l.trainer()
	linear, stats, err := trainer.Fit(ctx, set, prior.Linear)
	if err != nil {
		return nil, fmt.Errorf("retrain: %w", err)
	}

	model := &TrainedModel{
		Type:     ModelTypeAveragedPerceptron,
		Pipeline: pipeline,
		Linear:   linear,
		Options:  trainer.Options(),
	}
	if err := SaveModel(l.Paths.Model, model, runID); err != nil {
		return nil, fmt.Errorf("save model: %w", err)
	}
	l.Logger.Info("retrained model",
		zap.String("run_id", runID),
		zap.String("prior_run_id", priorManifest.RunID),
		zap.Int("examples", stats.Examples),
		zap.Int("updates", stats.Updates),
		zap.Float64s("weights", linear.Weights),
		zap.Float64("bias", linear.Bias))
	return &RunResult{RunID: runID, Mode: ModeRetrain, Model: model, Stats: stats}, nil
}

func (l *Lifecycle) trainer() *AveragedPerceptron {
	return NewAveragedPerceptron(l.Options).WithLogger(l.Logger)
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return false, fmt.Errorf("%s is a directory", path)
		}
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
