package churn

import (
	"context"
	"time"

	"github.com/jmehdipour/churn-predictor/internal/model"
)

type memSource struct {
	parts []Partition
	err   error
}

func (s *memSource) Location() string { return "memory" }

func (s *memSource) Load(ctx context.Context) ([]Partition, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.parts, nil
}

func cid(v float64) *float64 { return &v }

func rec(customer *float64, invoice string, at time.Time, qty int64, price float64, country string) model.TransactionRecord {
	return model.TransactionRecord{
		CustomerID:  customer,
		Invoice:     invoice,
		InvoiceDate: at,
		Quantity:    qty,
		Price:       price,
		Country:     country,
	}
}

var baseDay = time.Date(2011, 10, 6, 0, 0, 0, 0, time.UTC)

func dayN(n int) time.Time { return baseDay.AddDate(0, 0, n) }
