package churn

import (
	"fmt"
	"sort"
	"time"

	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// AggregateReport counts customers before and after the degenerate-row filter.
type AggregateReport struct {
	Customers  int
	Degenerate int
}

// accumulator is the running RFM state of one customer. Every update is monotonic.
type accumulator struct {
	lastPurchase time.Time
	invoices     map[string]struct{}
	monetary     decimal.Decimal
	country      string
}

func newAccumulator(first model.CleanedTransaction) *accumulator {
	return &accumulator{
		lastPurchase: first.InvoiceDate,
		invoices:     make(map[string]struct{}, 4),
		monetary:     decimal.Zero,
		country:      first.Country, // first seen wins
	}
}

func (a *accumulator) add(tx model.CleanedTransaction) {
	if tx.InvoiceDate.After(a.lastPurchase) {
		a.lastPurchase = tx.InvoiceDate
	}
	a.invoices[tx.Invoice] = struct{}{}
	a.monetary = a.monetary.Add(tx.LineRevenue)
}

// Aggregate groups cleaned transactions by customer and computes Recency, Frequency,
// Monetary and primary Country. Customers with non-positive frequency or monetary are
// dropped. Rows come back ordered by customer id so repeated runs are byte-identical.
func Aggregate(txs []model.CleanedTransaction, analysisDate time.Time) ([]model.CustomerAggregate, AggregateReport, error) {
	accs := make(map[int64]*accumulator)

	for i, tx := range txs {
		if err := checkCleaned(tx); err != nil {
			return nil, AggregateReport{}, fmt.Errorf("%w: cleaned row %d: %w", ErrSchemaViolation, i, err)
		}

		acc, ok := accs[tx.CustomerID]
		if !ok {
			acc = newAccumulator(tx)
			accs[tx.CustomerID] = acc
		}
		acc.add(tx)
	}

	ids := make([]int64, 0, len(accs))
	for id := range accs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rep := AggregateReport{Customers: len(ids)}
	out := make([]model.CustomerAggregate, 0, len(ids))
	for _, id := range ids {
		acc := accs[id]
		monetary, _ := acc.monetary.Float64()
		agg := model.CustomerAggregate{
			CustomerID:  id,
			RecencyDays: RecencyDays(analysisDate, acc.lastPurchase),
			Frequency:   len(acc.invoices),
			Monetary:    monetary,
			Country:     acc.country,
		}
		if agg.Frequency <= 0 || agg.Monetary <= 0 {
			rep.Degenerate++
			continue
		}
		out = append(out, agg)
	}

	return out, rep, nil
}

// RecencyDays is the whole number of days from lastPurchase to analysisDate; partial
// days are dropped. Purchases after the analysis date count as 0 days.
func RecencyDays(analysisDate, lastPurchase time.Time) int {
	days := int(analysisDate.Sub(lastPurchase) / day)
	if days < 0 {
		return 0
	}
	return days
}

func checkCleaned(tx model.CleanedTransaction) error {
	switch {
	case tx.Invoice == "":
		return fmt.Errorf("customer %d: missing invoice", tx.CustomerID)
	case tx.InvoiceDate.IsZero():
		return fmt.Errorf("customer %d invoice %s: missing invoice date", tx.CustomerID, tx.Invoice)
	case !tx.LineRevenue.IsPositive():
		return fmt.Errorf("customer %d invoice %s: line revenue %s is not positive", tx.CustomerID, tx.Invoice, tx.LineRevenue)
	}
	return nil
}
