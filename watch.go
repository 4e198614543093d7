package main

import (
	"fmt"

	"diehard/ml"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the smoke predictions whenever the model artifact changes",
	Long: `Watches the model artifact and prints the two fixed predictions each time
another run rewrites it. Stops on interrupt.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		watcher, err := ml.NewModelWatcher(cfg.Artifacts.ModelPath, cfg.Engine.CacheSize, logger)
		if err != nil {
			return err
		}
		watcher.OnReload = func(engine *ml.PredictionEngine) {
			fmt.Fprintf(out, "model %s reloaded\n", cfg.Artifacts.ModelPath)
			if _, err := printPredictions(out, engine, ml.SmokeQueries()); err != nil {
				logger.Warn("prediction failed", zap.Error(err))
			}
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()

		logger.Info("watching model artifact", zap.String("path", cfg.Artifacts.ModelPath))
		<-ctx.Done()
		return nil
	},
}
