package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/jmehdipour/churn-predictor/internal/churn"
	"github.com/jmehdipour/churn-predictor/internal/config"
	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/xuri/excelize/v2"
)

// XLSXSource reads every sheet of a workbook; each sheet is one partition.
type XLSXSource struct {
	path string
	cols config.ColumnsConfig
}

func NewXLSXSource(path string, cols config.ColumnsConfig) *XLSXSource {
	return &XLSXSource{path: path, cols: cols}
}

func (s *XLSXSource) Location() string { return s.path }

func (s *XLSXSource) Load(ctx context.Context) ([]churn.Partition, error) {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: raw data file not found: %s", churn.ErrDataSourceNotFound, s.path)
		}
		return nil, fmt.Errorf("%w: stat %s: %w", churn.ErrDataSourceCorrupt, s.path, err)
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook %s: %w", churn.ErrDataSourceCorrupt, s.path, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	parts := make([]churn.Partition, 0, len(sheets))
	for _, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records, err := s.readSheet(f, sheet)
		if err != nil {
			return nil, fmt.Errorf("%w: %s sheet %q: %w", churn.ErrDataSourceCorrupt, s.path, sheet, err)
		}
		parts = append(parts, churn.Partition{Name: sheet, Records: records})
	}
	return parts, nil
}

func (s *XLSXSource) readSheet(f *excelize.File, sheet string) ([]model.TransactionRecord, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	p, err := newRowParser(rows[0], s.cols, true)
	if err != nil {
		return nil, err
	}

	out := make([]model.TransactionRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		rec, err := p.parse(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
