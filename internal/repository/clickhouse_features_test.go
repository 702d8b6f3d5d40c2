package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/jmoiron/sqlx"
)

// recDriver records executed statements and fails those containing failOn.
type recDriver struct {
	mu     sync.Mutex
	execs  []string
	failOn string
}

func (d *recDriver) Connect(context.Context) (driver.Conn, error) { return &recConn{d: d}, nil }
func (d *recDriver) Driver() driver.Driver                       { return d }
func (d *recDriver) Open(string) (driver.Conn, error)            { return &recConn{d: d}, nil }

func (d *recDriver) executed(substr string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, q := range d.execs {
		if strings.Contains(q, substr) {
			n++
		}
	}
	return n
}

type recConn struct{ d *recDriver }

func (c *recConn) Prepare(q string) (driver.Stmt, error) { return &recStmt{d: c.d, q: q}, nil }
func (c *recConn) Close() error                          { return nil }
func (c *recConn) Begin() (driver.Tx, error)             { return recTx{}, nil }

type recTx struct{}

func (recTx) Commit() error   { return nil }
func (recTx) Rollback() error { return nil }

type recStmt struct {
	d *recDriver
	q string
}

func (s *recStmt) Close() error  { return nil }
func (s *recStmt) NumInput() int { return -1 }

func (s *recStmt) Exec([]driver.Value) (driver.Result, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if s.d.failOn != "" && strings.Contains(s.q, s.d.failOn) {
		return nil, errors.New("code: 241, memory limit exceeded")
	}
	s.d.execs = append(s.d.execs, s.q)
	return driver.RowsAffected(1), nil
}

func (s *recStmt) Query([]driver.Value) (driver.Rows, error) {
	return nil, errors.New("not supported")
}

func newRecordingCH(d *recDriver) *sqlx.DB {
	return sqlx.NewDb(sql.OpenDB(d), "clickhouse")
}

func snapshotRows() []model.FeatureRow {
	return []model.FeatureRow{
		{Recency: 10, Frequency: 3, Monetary: 120.5, Country: "France", Churn: 0},
		{Recency: 90, Frequency: 1, Monetary: 15, Country: "Germany", Churn: 1},
	}
}

func TestReplaceSnapshotKeepsOldRunOnInsertFailure(t *testing.T) {
	d := &recDriver{failOn: "INSERT INTO"}
	repo := NewCHFeaturesRepository(newRecordingCH(d))

	if err := repo.ReplaceSnapshot(context.Background(), "01J0000000000000000000RUN2", snapshotRows()); err == nil {
		t.Fatal("expected insert error")
	}
	if n := d.executed("DELETE"); n != 0 {
		t.Fatalf("previous run deleted %d times after a failed insert", n)
	}
	if n := d.executed("TRUNCATE"); n != 0 {
		t.Fatal("snapshot must never be truncated")
	}
}

func TestReplaceSnapshotInsertsBeforeDelete(t *testing.T) {
	d := &recDriver{}
	repo := NewCHFeaturesRepository(newRecordingCH(d))

	if err := repo.ReplaceSnapshot(context.Background(), "01J0000000000000000000RUN2", snapshotRows()); err != nil {
		t.Fatalf("replace: %v", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.execs) != 3 {
		t.Fatalf("statements = %d, want 2 inserts + 1 delete", len(d.execs))
	}
	if !strings.Contains(d.execs[2], "DELETE WHERE run_id != ?") {
		t.Fatalf("last statement = %q, want the delete of older runs", d.execs[2])
	}
}
