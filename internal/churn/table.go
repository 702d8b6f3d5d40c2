package churn

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/jmehdipour/churn-predictor/internal/util"
)

// FeatureTable is the per-customer training artifact. It never carries customer ids.
type FeatureTable struct {
	Rows []model.FeatureRow
}

func (t FeatureTable) Len() int { return len(t.Rows) }

// Churned counts rows labelled 1.
func (t FeatureTable) Churned() int {
	n := 0
	for _, r := range t.Rows {
		n += r.Churn
	}
	return n
}

// Assemble drops the customer identifier from labelled aggregates.
func Assemble(aggs []model.CustomerAggregate) FeatureTable {
	rows := make([]model.FeatureRow, 0, len(aggs))
	for _, a := range aggs {
		rows = append(rows, model.FeatureRow{
			Recency:   a.RecencyDays,
			Frequency: a.Frequency,
			Monetary:  a.Monetary,
			Country:   a.Country,
			Churn:     a.Churn,
		})
	}
	return FeatureTable{Rows: rows}
}

// EncodeCSV renders the table with a header row in model.FeatureColumns order.
func EncodeCSV(t FeatureTable) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(model.FeatureColumns); err != nil {
		return nil, err
	}
	for _, r := range t.Rows {
		rec := []string{
			strconv.Itoa(r.Recency),
			strconv.Itoa(r.Frequency),
			strconv.FormatFloat(r.Monetary, 'f', -1, 64),
			r.Country,
			strconv.Itoa(r.Churn),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSV replaces the artifact at path in one step. The table is fully encoded
// before anything touches the destination.
func WriteCSV(path string, t FeatureTable) error {
	data, err := EncodeCSV(t)
	if err != nil {
		return fmt.Errorf("%w: encode feature table: %w", ErrPersistence, err)
	}
	if err := util.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// ReadCSV loads a feature table, binding columns by header name.
func ReadCSV(path string) (FeatureTable, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FeatureTable{}, fmt.Errorf("%w: feature table %s", ErrDataSourceNotFound, path)
		}
		return FeatureTable{}, fmt.Errorf("%w: open %s: %w", ErrDataSourceCorrupt, path, err)
	}
	defer f.Close()

	t, err := DecodeCSV(f)
	if err != nil {
		return FeatureTable{}, fmt.Errorf("%w: %s: %w", ErrDataSourceCorrupt, path, err)
	}
	return t, nil
}

// DecodeCSV parses a table written by EncodeCSV; column order is not significant.
func DecodeCSV(r io.Reader) (FeatureTable, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return FeatureTable{}, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, c := range model.FeatureColumns {
		if _, ok := idx[c]; !ok {
			return FeatureTable{}, fmt.Errorf("missing column %q", c)
		}
	}

	var rows []model.FeatureRow
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return FeatureTable{}, fmt.Errorf("line %d: %w", line, err)
		}

		var row model.FeatureRow
		if row.Recency, err = strconv.Atoi(rec[idx[model.ColRecency]]); err != nil {
			return FeatureTable{}, fmt.Errorf("line %d %s: %w", line, model.ColRecency, err)
		}
		if row.Frequency, err = strconv.Atoi(rec[idx[model.ColFrequency]]); err != nil {
			return FeatureTable{}, fmt.Errorf("line %d %s: %w", line, model.ColFrequency, err)
		}
		if row.Monetary, err = strconv.ParseFloat(rec[idx[model.ColMonetary]], 64); err != nil {
			return FeatureTable{}, fmt.Errorf("line %d %s: %w", line, model.ColMonetary, err)
		}
		row.Country = rec[idx[model.ColCountry]]
		if row.Churn, err = strconv.Atoi(rec[idx[model.ColChurn]]); err != nil {
			return FeatureTable{}, fmt.Errorf("line %d %s: %w", line, model.ColChurn, err)
		}
		if row.Churn != 0 && row.Churn != 1 {
			return FeatureTable{}, fmt.Errorf("line %d %s: want 0 or 1, got %d", line, model.ColChurn, row.Churn)
		}
		rows = append(rows, row)
	}

	return FeatureTable{Rows: rows}, nil
}
