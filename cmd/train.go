package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmehdipour/churn-predictor/internal/logger"
	"github.com/jmehdipour/churn-predictor/internal/trainer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var skipFeatures bool

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the churn classifier on the feature table and save the model",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !skipFeatures {
			if _, _, err := buildFeatures(ctx, cfg); err != nil {
				return err
			}
		}

		m, err := trainer.Run(ctx, cfg.Features.OutputPath, cfg.Training.ModelPath, trainer.Options{
			TestSize:    cfg.Training.TestSize,
			RandomState: cfg.Training.RandomState,
			Params:      cfg.ClassifierParams(),
		}, logger.Log)
		if err != nil {
			return err
		}

		logger.Log.Info("model saved",
			zap.String("path", cfg.Training.ModelPath),
			zap.String("version", m.Version),
			zap.Float64("f1", m.Metrics.F1),
		)
		return nil
	},
}

func init() {
	trainCmd.Flags().BoolVar(&skipFeatures, "skip-features", false, "train on the existing feature table")
}
