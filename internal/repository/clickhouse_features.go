package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/jmoiron/sqlx"
)

// CHFeaturesRepository keeps the latest feature table snapshot in ClickHouse for analytics.
type CHFeaturesRepository interface {
	ReplaceSnapshot(ctx context.Context, runID string, rows []model.FeatureRow) error
	CountByLabel(ctx context.Context) (map[int]int64, error)
}

type chFeaturesRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHFeaturesRepository(ch *sqlx.DB) CHFeaturesRepository {
	return &chFeaturesRepository{ch: ch}
}

// ReplaceSnapshot inserts rows under runID and only then drops older runs, so a
// failed publish leaves the previous snapshot in place.
func (r *chFeaturesRepository) ReplaceSnapshot(ctx context.Context, runID string, rows []model.FeatureRow) error {
	if len(rows) > 0 {
		if err := r.insertRun(ctx, runID, rows); err != nil {
			return err
		}
	}

	if _, err := r.ch.ExecContext(ctx, `
		ALTER TABLE churn.customer_features
		DELETE WHERE run_id != ?
		SETTINGS mutations_sync = 1
	`, runID); err != nil {
		return fmt.Errorf("drop previous runs: %w", err)
	}
	return nil
}

func (r *chFeaturesRepository) insertRun(ctx context.Context, runID string, rows []model.FeatureRow) error {
	tx, err := r.ch.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO churn.customer_features
		    (run_id, recency, frequency, monetary, country, churn, created_at)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, rw := range rows {
		if _, err := stmt.ExecContext(ctx, runID, int32(rw.Recency), int32(rw.Frequency), rw.Monetary, rw.Country, uint8(rw.Churn), now); err != nil {
			return fmt.Errorf("append row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// CountByLabel returns row counts per CHURN label of the newest run.
// Run ids are ULIDs, so the lexicographic max is the latest publish.
func (r *chFeaturesRepository) CountByLabel(ctx context.Context) (map[int]int64, error) {
	var rows []struct {
		Churn uint8  `db:"churn"`
		N     uint64 `db:"n"`
	}
	if err := r.ch.SelectContext(ctx, &rows, `
		SELECT churn, count() AS n
		FROM churn.customer_features
		WHERE run_id = (SELECT max(run_id) FROM churn.customer_features)
		GROUP BY churn
	`); err != nil {
		return nil, err
	}

	out := make(map[int]int64, len(rows))
	for _, rw := range rows {
		out[int(rw.Churn)] = int64(rw.N)
	}
	return out, nil
}
