package worker

import (
	"context"
	"errors"
	"time"

	"github.com/jmehdipour/churn-predictor/internal/kafka"
	"github.com/jmehdipour/churn-predictor/internal/metrics"
	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/jmehdipour/churn-predictor/internal/repository"
	"go.uber.org/zap"
)

// Consumer is the slice of the Kafka reader the ingest worker needs.
type Consumer interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msgs ...kafka.Message) error
}

// Ingest:
// - fetches transaction events from Kafka,
// - batches them by size/time,
// - inserts each batch in one MySQL transaction, then commits the batch's offsets.
//
// Offsets are committed only after the rows are persisted, so a crash replays
// at most one batch (at-least-once).
type Ingest struct {
	Consumer     Consumer
	Transactions repository.TransactionsRepository
	Log          *zap.Logger

	BatchSize int           // max events per flush
	BatchWait time.Duration // max time an event waits before flush
}

func NewIngest(consumer Consumer, repo repository.TransactionsRepository, log *zap.Logger) *Ingest {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ingest{
		Consumer:     consumer,
		Transactions: repo,
		Log:          log,
		BatchSize:    500,
		BatchWait:    500 * time.Millisecond,
	}
}

// Run blocks until ctx is cancelled, then flushes what is buffered.
func (w *Ingest) Run(ctx context.Context) error {
	if w.Consumer == nil || w.Transactions == nil {
		return errors.New("ingest: consumer and repository are required")
	}
	if w.BatchSize <= 0 {
		w.BatchSize = 500
	}
	if w.BatchWait <= 0 {
		w.BatchWait = 500 * time.Millisecond
	}

	msgCh := make(chan kafka.Message, w.BatchSize)

	// Fetcher goroutine
	go func() {
		defer close(msgCh)
		for {
			m, err := w.Consumer.Fetch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				w.Log.Warn("kafka fetch failed", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(200 * time.Millisecond):
				}
				continue
			}
			select {
			case msgCh <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	// in is nil while a failed batch waits for its retry, so the batch never grows past BatchSize.
	src := (<-chan kafka.Message)(msgCh)
	in := src
	tick := time.NewTicker(w.BatchWait)
	defer tick.Stop()

	var (
		rows    []model.TransactionRecord
		pending []kafka.Message // every message of the batch, malformed ones included

		backoff time.Duration
		retryAt time.Time
	)

	// flush reports whether the batch was persisted (or there was nothing to persist).
	flush := func(ctx context.Context) bool {
		if len(pending) == 0 {
			return true
		}
		if len(rows) > 0 {
			if err := w.Transactions.InsertBatch(ctx, nil, rows); err != nil {
				w.Log.Error("insert batch failed", zap.Int("rows", len(rows)), zap.Error(err))
				return false
			}
			metrics.IngestEvents.WithLabelValues("stored").Add(float64(len(rows)))
		}
		if err := w.Consumer.Commit(ctx, pending...); err != nil {
			w.Log.Error("kafka commit failed", zap.Int("messages", len(pending)), zap.Error(err))
		}
		w.Log.Debug("batch flushed", zap.Int("rows", len(rows)), zap.Int("messages", len(pending)))
		rows = rows[:0]
		pending = pending[:0]
		return true
	}

	// tryFlush pauses intake on failure and retries with exponential backoff.
	tryFlush := func(ctx context.Context) {
		if flush(ctx) {
			backoff = 0
			in = src
			return
		}
		in = nil
		backoff = nextBackoff(backoff, w.BatchWait)
		retryAt = time.Now().Add(backoff)
		w.Log.Warn("ingest paused until retry", zap.Duration("backoff", backoff))
	}

	for {
		select {
		case <-ctx.Done():
			// ctx is already cancelled; give the final flush its own deadline
			fctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			flush(fctx)
			cancel()
			return nil

		case m, ok := <-in:
			if !ok {
				src, in = nil, nil
				continue
			}
			pending = append(pending, m)
			rec, err := kafka.DecodeTransaction(m)
			if err != nil {
				metrics.IngestEvents.WithLabelValues("malformed").Inc()
				w.Log.Warn("skipping event",
					zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset), zap.Error(err))
			} else {
				rows = append(rows, rec)
			}
			if len(pending) >= w.BatchSize {
				tryFlush(ctx)
			}

		case now := <-tick.C:
			if backoff > 0 && now.Before(retryAt) {
				continue
			}
			tryFlush(ctx)
		}
	}
}

const maxIngestBackoff = 30 * time.Second

func nextBackoff(cur, base time.Duration) time.Duration {
	if cur <= 0 {
		return base
	}
	return min(2*cur, maxIngestBackoff)
}
