package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmehdipour/churn-predictor/internal/churn"
	"github.com/jmehdipour/churn-predictor/internal/config"
	"github.com/jmehdipour/churn-predictor/internal/model"
)

// CSVSource reads a single CSV file, or every *.csv file of a directory as separate partitions.
type CSVSource struct {
	path string
	cols config.ColumnsConfig
}

func NewCSVSource(path string, cols config.ColumnsConfig) *CSVSource {
	return &CSVSource{path: path, cols: cols}
}

func (s *CSVSource) Location() string { return s.path }

func (s *CSVSource) Load(ctx context.Context) ([]churn.Partition, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: raw data file not found: %s", churn.ErrDataSourceNotFound, s.path)
		}
		return nil, fmt.Errorf("%w: stat %s: %w", churn.ErrDataSourceCorrupt, s.path, err)
	}

	files := []string{s.path}
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(s.path, "*.csv"))
		if err != nil {
			return nil, fmt.Errorf("%w: list %s: %w", churn.ErrDataSourceCorrupt, s.path, err)
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("%w: no *.csv files in %s", churn.ErrDataSourceNotFound, s.path)
		}
		sort.Strings(files)
	}

	parts := make([]churn.Partition, 0, len(files))
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records, err := s.readFile(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", churn.ErrDataSourceCorrupt, name, err)
		}
		parts = append(parts, churn.Partition{Name: filepath.Base(name), Records: records})
	}
	return parts, nil
}

func (s *CSVSource) readFile(name string) ([]model.TransactionRecord, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = trimBOM(header[0])
	}
	p, err := newRowParser(header, s.cols, false)
	if err != nil {
		return nil, err
	}

	var out []model.TransactionRecord
	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec, err := p.parse(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func trimBOM(s string) string { return strings.TrimPrefix(s, "\ufeff") }
