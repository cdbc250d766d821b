// Package cache provides a small get/set/delete store used for response
// caching and rate-limit counters. The redis backend is preferred; when the
// backend is unreachable at construction the process degrades to an
// in-memory store so caching never blocks startup.
package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Store is the minimal cache contract shared by the redis and memory
// implementations.
type Store interface {
	// Get returns the value and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores the value under key for the given TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes the key if present.
	Delete(ctx context.Context, key string) error
	// Increment atomically increments the counter at key, setting the TTL
	// when the counter is created.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// New returns a redis-backed Store when redisURL is set and reachable,
// otherwise an in-memory store. Degradation is logged once, here.
func New(redisURL string, logger *zap.Logger) Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if redisURL == "" {
		logger.Info("cache using in-memory store", zap.String("reason", "no redis url configured"))
		return NewMemoryStore()
	}

	store, err := NewRedisStore(redisURL)
	if err != nil {
		logger.Warn("cache degraded to in-memory store", zap.Error(err))
		return NewMemoryStore()
	}
	logger.Info("cache using redis store")
	return store
}
