package churn

import (
	"fmt"
	"math"

	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/shopspring/decimal"
)

// Partition is one independently readable slice of the raw source (a workbook sheet, a CSV file, a table).
type Partition struct {
	Name    string
	Records []model.TransactionRecord
}

// CleanReport counts rows at every cleaning stage.
type CleanReport struct {
	Partitions       int
	RawRows          int
	MissingCustomer  int
	NonPositiveQty   int
	NonPositivePrice int
	Cleaned          int
}

// Merge concatenates partitions in the order given.
func Merge(parts []Partition) []model.TransactionRecord {
	n := 0
	for _, p := range parts {
		n += len(p.Records)
	}
	out := make([]model.TransactionRecord, 0, n)
	for _, p := range parts {
		out = append(out, p.Records...)
	}
	return out
}

// Clean drops rows without a customer, returns/cancellations (quantity <= 0) and
// free or erroneous lines (price <= 0), then computes line revenue. Input order is kept.
func Clean(records []model.TransactionRecord) ([]model.CleanedTransaction, CleanReport, error) {
	rep := CleanReport{RawRows: len(records)}
	out := make([]model.CleanedTransaction, 0, len(records))

	for i, r := range records {
		if r.CustomerID == nil || math.IsNaN(*r.CustomerID) {
			rep.MissingCustomer++
			continue
		}

		id, err := coerceCustomerID(*r.CustomerID)
		if err != nil {
			return nil, rep, fmt.Errorf("%w: row %d: %w", ErrDataSourceCorrupt, i, err)
		}

		if r.Quantity <= 0 {
			rep.NonPositiveQty++
			continue
		}
		if r.Price <= 0 || math.IsNaN(r.Price) {
			rep.NonPositivePrice++
			continue
		}

		out = append(out, model.CleanedTransaction{
			CustomerID:  id,
			Invoice:     r.Invoice,
			InvoiceDate: r.InvoiceDate,
			Quantity:    r.Quantity,
			Price:       r.Price,
			Country:     r.Country,
			LineRevenue: decimal.NewFromInt(r.Quantity).Mul(decimal.NewFromFloat(r.Price)),
		})
	}

	rep.Cleaned = len(out)
	return out, rep, nil
}

// coerceCustomerID truncates the source's float form (13085.0) to an integer id.
func coerceCustomerID(v float64) (int64, error) {
	if math.IsInf(v, 0) || v >= math.MaxInt64 || v <= math.MinInt64 {
		return 0, fmt.Errorf("customer id %v is not representable as an integer", v)
	}
	return int64(math.Trunc(v)), nil
}
