package model

// Feature table column names. Training and serving bind by these names.
const (
	ColRecency   = "Recency"
	ColFrequency = "Frequency"
	ColMonetary  = "Monetary"
	ColCountry   = "Country"
	ColChurn     = "CHURN"
)

// FeatureColumns is the persisted column order.
var FeatureColumns = []string{ColRecency, ColFrequency, ColMonetary, ColCountry, ColChurn}

// CustomerAggregate holds the RFM summary of one customer.
type CustomerAggregate struct {
	CustomerID  int64
	RecencyDays int
	Frequency   int     // distinct invoices
	Monetary    float64 // sum of line revenue
	Country     string  // country of the first record seen
	Churn       int     // 0|1, set by the label step
}

// FeatureRow is a CustomerAggregate without the customer identifier.
type FeatureRow struct {
	Recency   int     `db:"recency"`
	Frequency int     `db:"frequency"`
	Monetary  float64 `db:"monetary"`
	Country   string  `db:"country"`
	Churn     int     `db:"churn"`
}
