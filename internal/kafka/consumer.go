package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/segmentio/kafka-go"
)

type Config struct {
	Brokers        []string
	Topic          string
	GroupID        string
	MinBytes       int           // default 1KB
	MaxBytes       int           // default 10MB
	CommitInterval time.Duration // 0 = commit synchronously
	MaxWait        time.Duration // default 50ms
}

// Consumer is a thin wrapper around segmentio/kafka-go Reader.
type Consumer struct {
	r *kafka.Reader
}

func NewConsumerFromConfig(c Config) *Consumer {
	min := c.MinBytes
	if min <= 0 {
		min = 1 << 10 // 1KB
	}
	max := c.MaxBytes
	if max <= 0 {
		max = 10 << 20 // 10MB
	}
	mw := c.MaxWait
	if mw <= 0 {
		mw = 50 * time.Millisecond
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        c.Brokers,
		GroupID:        c.GroupID,
		Topic:          c.Topic,
		MinBytes:       min,
		MaxBytes:       max,
		CommitInterval: c.CommitInterval,
		MaxWait:        mw,
	})

	return &Consumer{r: r}
}

type Message = kafka.Message

func (c *Consumer) Fetch(ctx context.Context) (Message, error) {
	return c.r.FetchMessage(ctx)
}

func (c *Consumer) Commit(ctx context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return c.r.CommitMessages(ctx, msgs...)
}

func (c *Consumer) Close() error { return c.r.Close() }

// ErrMalformedEvent marks a message that can never be stored.
var ErrMalformedEvent = errors.New("malformed transaction event")

// DecodeTransaction parses one JSON event:
// {"customer_id":13085,"invoice":"489434","invoice_date":"2009-12-01T07:45:00Z","quantity":12,"price":6.95,"country":"United Kingdom"}
// customer_id may be null for anonymous purchases.
func DecodeTransaction(m Message) (model.TransactionRecord, error) {
	var rec model.TransactionRecord
	if err := json.Unmarshal(m.Value, &rec); err != nil {
		return rec, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if rec.Invoice == "" {
		return rec, fmt.Errorf("%w: missing invoice", ErrMalformedEvent)
	}
	if rec.InvoiceDate.IsZero() {
		return rec, fmt.Errorf("%w: missing invoice_date", ErrMalformedEvent)
	}
	rec.InvoiceDate = rec.InvoiceDate.UTC()
	return rec, nil
}
