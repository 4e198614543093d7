package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"diehard/config"
	"diehard/db"
	"diehard/logging"
	"diehard/ml"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	verbose    bool

	cfg       *config.Config
	logger    *zap.Logger
	closeLogs func() error
)

var rootCmd = &cobra.Command{
	Use:   "diehard",
	Short: "Predict Die Hard fans from movie ratings with an averaged perceptron",
	Long: `Trains an averaged-perceptron classifier on a fixed movie preference survey
and prints its predictions for two fixed respondents.

The first run trains from scratch and writes the pipeline and model artifacts.
Later runs load both artifacts and continue training from the stored weights.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger, closeLogs, err = logging.New(logging.Options{
			Level:      cfg.Log.Level,
			Verbose:    verbose,
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			Compress:   cfg.Log.Compress,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		if closeLogs != nil {
			_ = closeLogs()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDemo(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(historyCmd, watchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// runDemo trains or retrains, then prints the smoke-test predictions.
func runDemo(ctx context.Context, out io.Writer) error {
	data := ml.TrainingData()
	lifecycle := ml.NewLifecycle(cfg.ArtifactPaths(), cfg.PerceptronOptions(), logger)
	result, err := lifecycle.Run(ctx, data)
	if err != nil {
		return err
	}

	engine, err := ml.NewPredictionEngine(result.Model, cfg.Engine.CacheSize)
	if err != nil {
		return err
	}

	metrics, err := ml.Evaluate(engine, data)
	if err != nil {
		return err
	}
	logger.Info("training metrics",
		zap.String("run_id", result.RunID),
		zap.String("mode", result.Mode),
		zap.Float64("accuracy", metrics.Accuracy),
		zap.Float64("precision", metrics.Precision),
		zap.Float64("recall", metrics.Recall))

	records, err := printPredictions(out, engine, ml.SmokeQueries())
	if err != nil {
		return err
	}

	recordHistory(result, metrics, records)
	return nil
}

func printPredictions(out io.Writer, predictor ml.Predictor, queries []ml.MoviePreference) ([]db.PredictionRecord, error) {
	records := make([]db.PredictionRecord, 0, len(queries))
	for _, query := range queries {
		prediction, err := predictor.Predict(query)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(out, "For data %v\n\tprediction %v\n", query, prediction)
		records = append(records, db.PredictionRecord{
			StarWars:           float64(query.StarWars),
			Armageddon:         float64(query.Armageddon),
			SleeplessInSeattle: float64(query.SleeplessInSeattle),
			PredictedLabel:     prediction.Prediction,
			Score:              prediction.Score,
		})
	}
	return records, nil
}

// recordHistory writes the run to the history database. Failures are logged
// and do not fail the run; the artifacts are already saved.
func recordHistory(result *ml.RunResult, metrics ml.Metrics, predictions []db.PredictionRecord) {
	if cfg.Database.Path == "" {
		return
	}
	if err := db.InitDB(cfg.Database.Path); err != nil {
		logger.Warn("history database unavailable", zap.String("path", cfg.Database.Path), zap.Error(err))
		return
	}
	defer db.Close()

	entry := db.TrainingLog{
		RunID:      result.RunID,
		ModelName:  result.Model.Type,
		Mode:       result.Mode,
		Iterations: result.Stats.Iterations,
		Updates:    result.Stats.Updates,
		Accuracy:   metrics.Accuracy,
		Precision:  metrics.Precision,
		Recall:     metrics.Recall,
		DataPoints: metrics.DataPoints,
	}
	if err := db.SaveTrainingLog(entry); err != nil {
		logger.Warn("failed to save training log", zap.Error(err))
		return
	}
	if err := db.SavePredictions(result.RunID, predictions); err != nil {
		logger.Warn("failed to save predictions", zap.Error(err))
	}
}
