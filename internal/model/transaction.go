package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRecord is one raw line item as read from a source or a Kafka event.
// CustomerID keeps the source's float representation; nil means missing.
type TransactionRecord struct {
	CustomerID  *float64  `db:"customer_id"  json:"customer_id"`
	Invoice     string    `db:"invoice"      json:"invoice"`
	InvoiceDate time.Time `db:"invoice_date" json:"invoice_date"`
	Quantity    int64     `db:"quantity"     json:"quantity"`
	Price       float64   `db:"price"        json:"price"`
	Country     string    `db:"country"      json:"country"`
}

// CleanedTransaction is a record that survived cleaning: customer present, quantity > 0, price > 0.
type CleanedTransaction struct {
	CustomerID  int64
	Invoice     string
	InvoiceDate time.Time
	Quantity    int64
	Price       float64
	Country     string
	LineRevenue decimal.Decimal // Quantity * Price, always > 0
}
