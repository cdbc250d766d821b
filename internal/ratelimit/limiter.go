// Package ratelimit implements a fixed-window request limiter on top of the
// cache store, so quotas are shared across replicas when redis backs the
// cache and remain enforced per process when it does not.
package ratelimit

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quillworks/quill/backend/internal/cache"
	"go.uber.org/zap"
)

var errMissingStore = errors.New("ratelimit: cache store is required")

// Limiter enforces per-route, per-client fixed-window quotas.
type Limiter struct {
	store  cache.Store
	logger *zap.Logger
	clock  func() time.Time
}

// NewLimiter constructs a Limiter backed by the provided store.
func NewLimiter(store cache.Store, logger *zap.Logger) (*Limiter, error) {
	if store == nil {
		return nil, errMissingStore
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{store: store, logger: logger, clock: time.Now}, nil
}

// Allow records one hit for the route/client pair and reports whether the
// quota for the current window still admits it.
func (l *Limiter) Allow(c *gin.Context, route string, limit int, window time.Duration) (bool, error) {
	windowIndex := l.clock().Unix() / int64(window.Seconds())
	key := fmt.Sprintf("ratelimit:%s:%s:%d", route, c.ClientIP(), windowIndex)

	count, err := l.store.Increment(c.Request.Context(), key, window)
	if err != nil {
		return false, err
	}
	return count <= int64(limit), nil
}

// Middleware returns a gin middleware enforcing the quota on one route.
// Cache failures fail open: a broken limiter must not take down login.
func (l *Limiter) Middleware(route string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := l.Allow(c, route, limit, window)
		if err != nil {
			l.logger.Warn("rate limiter unavailable", zap.String("route", route), zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
			return
		}
		c.Next()
	}
}
