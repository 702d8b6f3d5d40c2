// Package source loads raw retail transactions from files or MySQL.
package source

import (
	"fmt"
	"strings"

	"github.com/jmehdipour/churn-predictor/internal/churn"
	"github.com/jmehdipour/churn-predictor/internal/config"
	"github.com/jmehdipour/churn-predictor/internal/repository"
)

const (
	KindCSV   = "csv"
	KindXLSX  = "xlsx"
	KindMySQL = "mysql"
)

// FromConfig picks a loader for source.kind. repo is only used (and required) for mysql.
func FromConfig(cfg config.SourceConfig, repo repository.TransactionsRepository) (churn.Source, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case KindCSV:
		return NewCSVSource(cfg.Path, cfg.Columns), nil
	case KindXLSX:
		return NewXLSXSource(cfg.Path, cfg.Columns), nil
	case KindMySQL:
		if repo == nil {
			return nil, fmt.Errorf("source kind mysql needs a transactions repository")
		}
		return NewMySQLSource(repo, cfg.Table), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}
