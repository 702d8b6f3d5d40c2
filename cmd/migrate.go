package cmd

import (
	"fmt"

	"github.com/jmehdipour/churn-predictor/internal/db"
	"github.com/jmehdipour/churn-predictor/internal/logger"
	"github.com/jmehdipour/churn-predictor/internal/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateOnly string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the raw transactions table (MySQL) and the feature snapshot table (ClickHouse)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if migrateOnly == "" || migrateOnly == migrations.MySQL {
			sqlDB, err := db.NewMySQLConnection(cfg.MySQL)
			if err != nil {
				return fmt.Errorf("open mysql: %w", err)
			}
			n, err := migrations.Apply(ctx, sqlDB, migrations.MySQL)
			_ = sqlDB.Close()
			if err != nil {
				return err
			}
			logger.Log.Info("mysql migrated", zap.Int("statements", n))
		}

		if migrateOnly == "" || migrateOnly == migrations.ClickHouse {
			chDB, err := db.NewClickHouseConnection(cfg.ClickHouse)
			if err != nil {
				return fmt.Errorf("open clickhouse: %w", err)
			}
			n, err := migrations.Apply(ctx, chDB, migrations.ClickHouse)
			_ = chDB.Close()
			if err != nil {
				return err
			}
			logger.Log.Info("clickhouse migrated", zap.Int("statements", n))
		}

		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateOnly, "only", "", "migrate a single store (mysql|clickhouse)")
}
