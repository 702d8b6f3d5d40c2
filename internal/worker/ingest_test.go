package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmehdipour/churn-predictor/internal/kafka"
	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/jmoiron/sqlx"
)

type fakeConsumer struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	events    *[]string
}

func (f *fakeConsumer) Fetch(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.queue) > 0 {
		m := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeConsumer) Commit(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	*f.events = append(*f.events, "commit")
	return nil
}

func (f *fakeConsumer) committedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.committed)
}

type fakeRepo struct {
	mu       *sync.Mutex
	inserted [][]model.TransactionRecord
	attempts []int // rows per InsertBatch call, failed ones included
	failures int
	events   *[]string
}

func (f *fakeRepo) ListAll(context.Context) ([]model.TransactionRecord, error) { return nil, nil }

func (f *fakeRepo) InsertBatch(_ context.Context, _ *sqlx.Tx, rows []model.TransactionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, len(rows))
	if f.failures > 0 {
		f.failures--
		return errors.New("deadlock found")
	}
	f.inserted = append(f.inserted, append([]model.TransactionRecord(nil), rows...))
	*f.events = append(*f.events, "insert")
	return nil
}

func event(offset int64, body string) kafka.Message {
	return kafka.Message{Offset: offset, Value: []byte(body)}
}

const okEvent = `{"customer_id":12345,"invoice":"536365","invoice_date":"2010-12-01T08:26:00Z","quantity":6,"price":2.55,"country":"United Kingdom"}`

func runIngest(t *testing.T, c *fakeConsumer, repo *fakeRepo, batch int, wantCommits int) {
	t.Helper()

	w := NewIngest(c, repo, nil)
	w.BatchSize = batch
	w.BatchWait = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for c.committedCount() < wantCommits {
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("timed out: committed %d of %d", c.committedCount(), wantCommits)
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestIngestCommitsAfterInsert(t *testing.T) {
	var mu sync.Mutex
	var events []string
	c := &fakeConsumer{events: &events, queue: []kafka.Message{
		event(1, okEvent),
		event(2, `not json`),
		event(3, okEvent),
		event(4, okEvent),
	}}
	repo := &fakeRepo{mu: &mu, events: &events}

	runIngest(t, c, repo, 2, 4)

	mu.Lock()
	defer mu.Unlock()
	total := 0
	for _, b := range repo.inserted {
		total += len(b)
	}
	if total != 3 {
		t.Fatalf("inserted rows = %d, want 3", total)
	}
	if len(events) == 0 || events[0] != "insert" {
		t.Fatalf("first event = %v, want insert before commit", events)
	}
	for i, off := range c.committed {
		if off != int64(i+1) {
			t.Fatalf("committed offsets = %v", c.committed)
		}
	}
}

func TestIngestRetriesFailedBatch(t *testing.T) {
	var mu sync.Mutex
	var events []string
	c := &fakeConsumer{events: &events, queue: []kafka.Message{event(7, okEvent)}}
	repo := &fakeRepo{mu: &mu, events: &events, failures: 2}

	runIngest(t, c, repo, 10, 1)

	mu.Lock()
	defer mu.Unlock()
	if len(repo.inserted) != 1 || len(repo.inserted[0]) != 1 {
		t.Fatalf("inserted = %v", repo.inserted)
	}
	if repo.failures != 0 {
		t.Fatalf("expected both failures to be consumed, %d left", repo.failures)
	}
}

func TestIngestRequiresCollaborators(t *testing.T) {
	if err := (&Ingest{}).Run(context.Background()); err == nil {
		t.Fatal("expected error without consumer")
	}
}

func TestIngestFailingStoreKeepsBatchBounded(t *testing.T) {
	var mu sync.Mutex
	var events []string
	queue := make([]kafka.Message, 300)
	for i := range queue {
		queue[i] = event(int64(i+1), okEvent)
	}
	c := &fakeConsumer{events: &events, queue: queue}
	repo := &fakeRepo{mu: &mu, events: &events, failures: 1 << 30}

	w := NewIngest(c, repo, nil)
	w.BatchSize = 10
	w.BatchWait = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(repo.attempts) == 0 {
		t.Fatal("expected insert attempts")
	}
	for i, n := range repo.attempts {
		if n > w.BatchSize {
			t.Fatalf("attempt %d inserted %d rows, batch size is %d", i, n, w.BatchSize)
		}
	}
	// intake pauses and retries back off: far fewer attempts than events
	if len(repo.attempts) > 20 {
		t.Fatalf("insert attempts = %d, want retries to back off", len(repo.attempts))
	}
	if c.committedCount() != 0 {
		t.Fatalf("committed %d offsets without a stored batch", c.committedCount())
	}
}

func TestIngestResumesAfterStoreRecovers(t *testing.T) {
	var mu sync.Mutex
	var events []string
	queue := make([]kafka.Message, 30)
	for i := range queue {
		queue[i] = event(int64(i+1), okEvent)
	}
	c := &fakeConsumer{events: &events, queue: queue}
	repo := &fakeRepo{mu: &mu, events: &events, failures: 4}

	runIngest(t, c, repo, 10, 30)

	mu.Lock()
	defer mu.Unlock()
	total := 0
	for _, b := range repo.inserted {
		total += len(b)
	}
	if total != 30 {
		t.Fatalf("stored rows = %d, want 30", total)
	}
	for i, n := range repo.attempts {
		if n > 10 {
			t.Fatalf("attempt %d inserted %d rows", i, n)
		}
	}
}

func TestNextBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	tests := []struct {
		cur, want time.Duration
	}{
		{0, base},
		{base, 2 * base},
		{20 * time.Second, maxIngestBackoff},
		{maxIngestBackoff, maxIngestBackoff},
	}
	for _, tt := range tests {
		if got := nextBackoff(tt.cur, base); got != tt.want {
			t.Fatalf("nextBackoff(%v) = %v, want %v", tt.cur, got, tt.want)
		}
	}
}
