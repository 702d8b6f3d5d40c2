package source

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jmehdipour/churn-predictor/internal/config"
	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/xuri/excelize/v2"
)

// timestampLayouts are tried in order for textual invoice dates.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"1/2/2006 15:04",
	"1/2/06 15:04",
}

// rowParser maps header positions onto TransactionRecord fields.
type rowParser struct {
	customerID  int
	invoice     int
	invoiceDate int
	quantity    int
	price       int
	country     int

	serialDates bool // spreadsheet date serials (xlsx raw cell values)
}

func newRowParser(header []string, cols config.ColumnsConfig, serialDates bool) (*rowParser, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(h)] = i
	}

	lookup := func(name string) (int, error) {
		i, ok := pos[name]
		if !ok {
			return 0, fmt.Errorf("missing column %q", name)
		}
		return i, nil
	}

	p := &rowParser{serialDates: serialDates}
	var err error
	if p.customerID, err = lookup(cols.CustomerID); err != nil {
		return nil, err
	}
	if p.invoice, err = lookup(cols.Invoice); err != nil {
		return nil, err
	}
	if p.invoiceDate, err = lookup(cols.InvoiceDate); err != nil {
		return nil, err
	}
	if p.quantity, err = lookup(cols.Quantity); err != nil {
		return nil, err
	}
	if p.price, err = lookup(cols.Price); err != nil {
		return nil, err
	}
	if p.country, err = lookup(cols.Country); err != nil {
		return nil, err
	}
	return p, nil
}

// parse converts one data row. Spreadsheet rows may be shorter than the header
// when trailing cells are empty.
func (p *rowParser) parse(row []string) (model.TransactionRecord, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	var r model.TransactionRecord
	var err error

	if r.CustomerID, err = parseCustomerID(cell(p.customerID)); err != nil {
		return r, err
	}
	r.Invoice = cell(p.invoice)
	if r.InvoiceDate, err = p.parseTimestamp(cell(p.invoiceDate)); err != nil {
		return r, err
	}
	if r.Quantity, err = parseQuantity(cell(p.quantity)); err != nil {
		return r, err
	}
	if r.Price, err = strconv.ParseFloat(cell(p.price), 64); err != nil {
		return r, fmt.Errorf("price %q: %w", cell(p.price), err)
	}
	r.Country = cell(p.country)

	return r, nil
}

func parseCustomerID(s string) (*float64, error) {
	switch strings.ToLower(s) {
	case "", "nan", "null", "none":
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("customer id %q: %w", s, err)
	}
	return &v, nil
}

func parseQuantity(s string) (int64, error) {
	if q, err := strconv.ParseInt(s, 10, 64); err == nil {
		return q, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("quantity %q is not an integer", s)
	}
	return int64(f), nil
}

func (p *rowParser) parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty invoice date")
	}
	if p.serialDates {
		if serial, err := strconv.ParseFloat(s, 64); err == nil {
			t, err := excelize.ExcelDateToTime(serial, false)
			if err != nil {
				return time.Time{}, fmt.Errorf("invoice date serial %q: %w", s, err)
			}
			return t.Round(time.Second).UTC(), nil
		}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invoice date %q: unrecognised format", s)
}
