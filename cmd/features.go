package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmehdipour/churn-predictor/internal/churn"
	"github.com/jmehdipour/churn-predictor/internal/config"
	"github.com/jmehdipour/churn-predictor/internal/db"
	"github.com/jmehdipour/churn-predictor/internal/logger"
	"github.com/jmehdipour/churn-predictor/internal/metrics"
	"github.com/jmehdipour/churn-predictor/internal/repository"
	"github.com/jmehdipour/churn-predictor/internal/source"
	"github.com/jmehdipour/churn-predictor/internal/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var publishAfterBuild bool

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Build or publish the customer feature table",
}

var featuresBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run the feature pipeline and write the feature table CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		table, rep, err := buildFeatures(ctx, cfg)
		if err != nil {
			return err
		}
		if publishAfterBuild {
			return publishFeatures(ctx, cfg, rep.RunID, table)
		}
		return nil
	},
}

var featuresPublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Replace the ClickHouse feature snapshot with the persisted feature table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		table, err := churn.ReadCSV(cfg.Features.OutputPath)
		if err != nil {
			return fmt.Errorf("read feature table: %w", err)
		}
		return publishFeatures(cmd.Context(), cfg, util.NewID(), table)
	},
}

func init() {
	featuresBuildCmd.Flags().BoolVar(&publishAfterBuild, "publish", false, "also replace the ClickHouse snapshot")
	featuresCmd.AddCommand(featuresBuildCmd)
	featuresCmd.AddCommand(featuresPublishCmd)
}

// buildFeatures runs the pipeline against the configured source and persists the table.
func buildFeatures(ctx context.Context, cfg config.Config) (churn.FeatureTable, churn.Report, error) {
	metrics.MustRegister(prometheus.DefaultRegisterer)

	settings, err := cfg.PipelineSettings()
	if err != nil {
		return churn.FeatureTable{}, churn.Report{}, err
	}

	var repo repository.TransactionsRepository
	if cfg.Source.Kind == source.KindMySQL {
		mysqlDB, err := db.NewMySQLConnection(cfg.MySQL)
		if err != nil {
			return churn.FeatureTable{}, churn.Report{}, fmt.Errorf("%w: mysql connect: %w", churn.ErrDataSourceNotFound, err)
		}
		defer mysqlDB.Close()

		if repo, err = repository.NewTransactionsRepository(mysqlDB, cfg.Source.Table); err != nil {
			return churn.FeatureTable{}, churn.Report{}, err
		}
	}

	src, err := source.FromConfig(cfg.Source, repo)
	if err != nil {
		return churn.FeatureTable{}, churn.Report{}, err
	}

	table, rep, err := churn.New(src, settings, logger.Log).Run(ctx, cfg.Features.OutputPath)
	metrics.ObservePipeline(rep, err)
	if err != nil {
		logger.Log.Error("feature pipeline failed",
			zap.String("run_id", rep.RunID),
			zap.String("status", metrics.PipelineStatus(err)),
			zap.Error(err),
		)
		return churn.FeatureTable{}, rep, err
	}
	return table, rep, nil
}

func publishFeatures(ctx context.Context, cfg config.Config, runID string, table churn.FeatureTable) error {
	chDB, err := db.NewClickHouseConnection(cfg.ClickHouse)
	if err != nil {
		return fmt.Errorf("clickhouse connect: %w", err)
	}
	defer func() { _ = chDB.Close() }()

	if err := repository.NewCHFeaturesRepository(chDB).ReplaceSnapshot(ctx, runID, table.Rows); err != nil {
		return fmt.Errorf("publish features: %w", err)
	}
	logger.Log.Info("feature snapshot published",
		zap.String("run_id", runID),
		zap.Int("rows", table.Len()),
		zap.Int("churned", table.Churned()),
	)
	return nil
}
