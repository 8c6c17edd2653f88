// Package limits enforces per-key quota and request-rate ceilings.
//
// Quota is a cumulative token budget checked against the store. The rate
// limit is a fixed window counter in the shared cache; with the remote
// backend the increment is not atomic, so brief overshoot under
// concurrency is accepted in exchange for a single round trip.
package limits

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"octane/relay/pkg/cache"
	"octane/relay/pkg/relay"
	"octane/relay/pkg/store"
)

// Config tunes the rate limiter.
type Config struct {
	// RequestsPerWindow is the ceiling per key per window.
	RequestsPerWindow int64

	// Window is the fixed window length.
	Window time.Duration
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.RequestsPerWindow <= 0 {
		c.RequestsPerWindow = 60
	}
	if c.Window <= 0 {
		c.Window = time.Minute
	}
}

// Limiter checks quota and request rate for one API key.
type Limiter struct {
	cache  cache.Cache
	config Config
	logger *slog.Logger

	// now is injectable for tests.
	now func() time.Time
}

// NewLimiter creates a limiter over the shared cache.
func NewLimiter(c cache.Cache, config Config) *Limiter {
	config.ApplyDefaults()
	return &Limiter{
		cache:  c,
		config: config,
		logger: slog.Default().With("component", "limits"),
		now:    time.Now,
	}
}

// CheckQuota fails with *relay.QuotaExceededError when the key's consumed
// quota has reached its budget. A zero quota means unlimited.
func CheckQuota(key *store.APIKeyInfo) error {
	if key.Quota <= 0 {
		return nil
	}
	if key.UsedQuota >= key.Quota {
		return &relay.QuotaExceededError{UserID: key.UserID}
	}
	return nil
}

// CheckRate counts this request against the key's current window and
// fails with *relay.RateLimitedError when the ceiling is exceeded.
// Cache failures allow the request through; the limiter must not become
// an outage amplifier.
func (l *Limiter) CheckRate(ctx context.Context, key *store.APIKeyInfo) error {
	window := l.now().Unix() / int64(l.config.Window.Seconds())
	cacheKey := fmt.Sprintf("ratelimit:%d:%d", key.UserID, window)

	count, err := l.cache.Increment(ctx, cacheKey, 1, l.config.Window)
	if err != nil {
		l.logger.Warn("rate limit counter unavailable", "user", key.UserID, "error", err)
		return nil
	}

	if count > l.config.RequestsPerWindow {
		windowEnd := (window + 1) * int64(l.config.Window.Seconds())
		retryAfter := time.Duration(windowEnd-l.now().Unix()) * time.Second
		return &relay.RateLimitedError{UserID: key.UserID, RetryAfter: retryAfter}
	}
	return nil
}
