package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// PredictionCache remembers labels per (model version, input) key.
type PredictionCache interface {
	Get(ctx context.Context, key string) (label int, ok bool, err error)
	Set(ctx context.Context, key string, label int) error
}

type RedisPredictionCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

var _ PredictionCache = (*RedisPredictionCache)(nil)

func NewRedisPredictionCache(rdb *redis.Client, ttl time.Duration) *RedisPredictionCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisPredictionCache{rdb: rdb, prefix: "churn:pred:", ttl: ttl}
}

func (c *RedisPredictionCache) Get(ctx context.Context, key string) (int, bool, error) {
	v, err := c.rdb.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	label, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, nil
	}
	return label, true, nil
}

func (c *RedisPredictionCache) Set(ctx context.Context, key string, label int) error {
	return c.rdb.Set(ctx, c.prefix+key, strconv.Itoa(label), c.ttl).Err()
}
