package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/jmoiron/sqlx"
)

// ErrTableNotFound is returned when the raw transactions table does not exist.
var ErrTableNotFound = errors.New("table not found")

const mysqlErrNoSuchTable = 1146

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TransactionsRepository persists raw line items in MySQL.
type TransactionsRepository interface {
	// ListAll returns every row in insertion order.
	ListAll(ctx context.Context) ([]model.TransactionRecord, error)
	// InsertBatch writes rows in one statement. If tx is nil, it opens/commits its own transaction.
	InsertBatch(ctx context.Context, tx *sqlx.Tx, rows []model.TransactionRecord) error
}

type TransactionsRepositoryImpl struct {
	db    *sqlx.DB
	table string
}

var _ TransactionsRepository = (*TransactionsRepositoryImpl)(nil)

func NewTransactionsRepository(db *sqlx.DB, table string) (*TransactionsRepositoryImpl, error) {
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &TransactionsRepositoryImpl{db: db, table: table}, nil
}

func (r *TransactionsRepositoryImpl) Table() string { return r.table }

func (r *TransactionsRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

func (r *TransactionsRepositoryImpl) ListAll(ctx context.Context) ([]model.TransactionRecord, error) {
	q := `
		SELECT customer_id, invoice, invoice_date, quantity, price, country
		FROM ` + r.table + `
		ORDER BY id
	`
	var rows []model.TransactionRecord
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlErrNoSuchTable {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, r.table)
		}
		return nil, err
	}
	return rows, nil
}

func (r *TransactionsRepositoryImpl) InsertBatch(ctx context.Context, tx *sqlx.Tx, rows []model.TransactionRecord) error {
	if len(rows) == 0 {
		return nil
	}
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		for _, b := range chunkBounds(len(rows), maxRowsPerInsert) {
			q, args := r.insertQuery(rows[b[0]:b[1]])
			if _, err := tx.ExecContext(ctx, q, args...); err != nil {
				return err
			}
		}
		return nil
	})
}

// maxRowsPerInsert keeps one statement well below MySQL's 65535 placeholder limit (6 per row).
const maxRowsPerInsert = 1000

func (r *TransactionsRepositoryImpl) insertQuery(rows []model.TransactionRecord) (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, len(rows)*6)

	sb.WriteString(`INSERT INTO ` + r.table + ` (customer_id, invoice, invoice_date, quantity, price, country) VALUES `)
	for i, rw := range rows {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?)")
		args = append(args, rw.CustomerID, rw.Invoice, rw.InvoiceDate.UTC(), rw.Quantity, rw.Price, rw.Country)
	}
	return sb.String(), args
}

// chunkBounds splits [0,n) into [lo,hi) ranges of at most size elements.
func chunkBounds(n, size int) [][2]int {
	var out [][2]int
	for lo := 0; lo < n; lo += size {
		out = append(out, [2]int{lo, min(lo+size, n)})
	}
	return out
}
