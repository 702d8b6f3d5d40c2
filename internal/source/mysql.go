package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmehdipour/churn-predictor/internal/churn"
	"github.com/jmehdipour/churn-predictor/internal/repository"
)

// MySQLSource reads the raw transactions table filled by the ingest worker.
type MySQLSource struct {
	repo  repository.TransactionsRepository
	table string
}

func NewMySQLSource(repo repository.TransactionsRepository, table string) *MySQLSource {
	return &MySQLSource{repo: repo, table: table}
}

func (s *MySQLSource) Location() string { return "mysql:" + s.table }

func (s *MySQLSource) Load(ctx context.Context) ([]churn.Partition, error) {
	records, err := s.repo.ListAll(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrTableNotFound) {
			return nil, fmt.Errorf("%w: %w", churn.ErrDataSourceNotFound, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: read %s: %w", churn.ErrDataSourceCorrupt, s.table, err)
	}
	return []churn.Partition{{Name: s.table, Records: records}}, nil
}
