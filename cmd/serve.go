package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/churn-predictor/internal/classifier"
	"github.com/jmehdipour/churn-predictor/internal/db"
	httpSrv "github.com/jmehdipour/churn-predictor/internal/http"
	"github.com/jmehdipour/churn-predictor/internal/logger"
	"github.com/jmehdipour/churn-predictor/internal/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the prediction HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logger.Log

		// a missing model is not fatal: / and /predict report it
		m, err := classifier.Load(cfg.Training.ModelPath)
		switch {
		case errors.Is(err, classifier.ErrModelNotFound):
			log.Error("model not found; run `train` first", zap.String("path", cfg.Training.ModelPath))
		case err != nil:
			return err
		default:
			log.Info("model loaded",
				zap.String("path", cfg.Training.ModelPath),
				zap.String("version", m.Version),
				zap.Float64("f1", m.Metrics.F1),
			)
		}

		redisClient, err := db.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable; cache and rate limiting disabled", zap.Error(err))
			redisClient = nil
		}
		if redisClient != nil {
			defer func() { _ = redisClient.Close() }()
		}

		var features repository.CHFeaturesRepository
		chDB, err := db.NewClickHouseConnection(cfg.ClickHouse)
		if err != nil {
			log.Warn("clickhouse unavailable; /reports disabled", zap.Error(err))
		} else {
			defer func() { _ = chDB.Close() }()
			features = repository.NewCHFeaturesRepository(chDB)
		}

		server := httpSrv.NewServer(cfg, httpSrv.Deps{
			Model:    m,
			Redis:    redisClient,
			Features: features,
			Log:      log,
		})

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil {
				log.Error("http server exited", zap.Error(err))
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)

		return nil
	},
}
