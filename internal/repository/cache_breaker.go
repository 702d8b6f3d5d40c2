package repository

import (
	"context"
	"sync"
	"time"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// breaker stops calling a failing dependency for openFor after threshold
// consecutive failures, then lets a single probe through.
type breaker struct {
	mu        sync.Mutex
	st        breakerState
	fails     int
	threshold int
	openFor   time.Duration
	retryAt   time.Time
	probing   bool
	now       func() time.Time
}

func newBreaker(threshold int, openFor time.Duration) *breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &breaker{threshold: threshold, openFor: openFor, now: time.Now}
}

func (b *breaker) acquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.st {
	case breakerOpen:
		if b.now().Before(b.retryAt) || b.probing {
			return false
		}
		b.st = breakerHalfOpen
		b.probing = true
		return true
	case breakerHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return true
	}
}

func (b *breaker) done(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.fails = 0
		b.st = breakerClosed
		b.probing = false
		return
	}
	if b.st == breakerHalfOpen {
		b.trip()
		return
	}
	b.fails++
	if b.fails >= b.threshold {
		b.trip()
	}
}

func (b *breaker) trip() {
	b.st = breakerOpen
	b.retryAt = b.now().Add(b.openFor)
	b.probing = false
}

// GuardedCache wraps a PredictionCache so an unhealthy backend turns into
// cache misses instead of slow errors on every request.
type GuardedCache struct {
	inner PredictionCache
	b     *breaker
}

var _ PredictionCache = (*GuardedCache)(nil)

func NewGuardedCache(inner PredictionCache, failThreshold int, openFor time.Duration) *GuardedCache {
	return &GuardedCache{inner: inner, b: newBreaker(failThreshold, openFor)}
}

func (g *GuardedCache) Get(ctx context.Context, key string) (int, bool, error) {
	if !g.b.acquire() {
		return 0, false, nil
	}
	label, ok, err := g.inner.Get(ctx, key)
	g.b.done(err)
	return label, ok, err
}

func (g *GuardedCache) Set(ctx context.Context, key string, label int) error {
	if !g.b.acquire() {
		return nil
	}
	err := g.inner.Set(ctx, key, label)
	g.b.done(err)
	return err
}
