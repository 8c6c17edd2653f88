package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"octane/relay/pkg/cache"
)

// Status is the recorded health state of one channel.
type Status struct {
	Healthy           bool      `json:"healthy"`
	LastCheck         time.Time `json:"last_check"`
	ConsecutiveErrors int       `json:"consecutive_errors"`
	LastError         string    `json:"last_error,omitempty"`
}

// Config contains tracker tuning parameters.
type Config struct {
	// ErrorThreshold is how many consecutive errors flip a channel to
	// unhealthy. Default: 3
	ErrorThreshold int

	// RecoveryWindow is how long an unhealthy channel stays excluded
	// before it is eligible again. Default: 60s
	RecoveryWindow time.Duration

	// StateTTL is the cache TTL for health records. Default: 30s
	StateTTL time.Duration

	// MicroTTL is the process-local lookup cache TTL. Default: 1s
	MicroTTL time.Duration
}

// DefaultConfig returns the default tracker configuration.
func DefaultConfig() Config {
	return Config{
		ErrorThreshold: 3,
		RecoveryWindow: 60 * time.Second,
		StateTTL:       30 * time.Second,
		MicroTTL:       time.Second,
	}
}

func (c *Config) applyDefaults() {
	if c.ErrorThreshold <= 0 {
		c.ErrorThreshold = 3
	}
	if c.RecoveryWindow <= 0 {
		c.RecoveryWindow = 60 * time.Second
	}
	if c.StateTTL <= 0 {
		c.StateTTL = 30 * time.Second
	}
	if c.MicroTTL <= 0 {
		c.MicroTTL = time.Second
	}
}

// microEntry is one process-local cached health verdict.
type microEntry struct {
	healthy   bool
	expiresAt time.Time
}

// Tracker records channel successes and failures and answers health queries.
type Tracker struct {
	cache  cache.Cache
	config Config
	logger *slog.Logger

	micro map[int64]microEntry
	mu    sync.Mutex

	// now is replaceable for tests.
	now func() time.Time
}

// NewTracker creates a health tracker backed by the given cache.
func NewTracker(c cache.Cache, config Config) *Tracker {
	config.applyDefaults()

	return &Tracker{
		cache:  c,
		config: config,
		logger: slog.Default().With("component", "health"),
		micro:  make(map[int64]microEntry),
		now:    time.Now,
	}
}

// IsHealthy reports whether a channel is eligible for selection.
// A channel with no record is healthy. An unhealthy channel becomes
// eligible again once its record is older than the recovery window.
func (t *Tracker) IsHealthy(ctx context.Context, channelID int64) bool {
	now := t.now()

	t.mu.Lock()
	if entry, ok := t.micro[channelID]; ok && now.Before(entry.expiresAt) {
		healthy := entry.healthy
		t.mu.Unlock()
		return healthy
	}
	t.mu.Unlock()

	healthy := t.lookup(ctx, channelID, now)

	t.mu.Lock()
	t.micro[channelID] = microEntry{healthy: healthy, expiresAt: now.Add(t.config.MicroTTL)}
	t.mu.Unlock()

	return healthy
}

// lookup loads the health record and applies the half-open rule.
func (t *Tracker) lookup(ctx context.Context, channelID int64, now time.Time) bool {
	var status Status
	ok, err := cache.GetJSON(ctx, t.cache, t.key(channelID), &status)
	if err != nil {
		// Cache trouble must not take channels out of rotation.
		t.logger.Warn("health lookup failed, assuming healthy",
			"channel_id", channelID,
			"error", err,
		)
		return true
	}
	if !ok || status.Healthy {
		return true
	}

	// Time-based half-open: eligible again after the recovery window.
	return now.Sub(status.LastCheck) > t.config.RecoveryWindow
}

// RecordSuccess resets a channel to healthy with a zero error counter.
func (t *Tracker) RecordSuccess(ctx context.Context, channelID int64) {
	status := Status{
		Healthy:   true,
		LastCheck: t.now(),
	}
	if err := cache.SetJSON(ctx, t.cache, t.key(channelID), status, t.config.StateTTL); err != nil {
		t.logger.Warn("failed to record channel success", "channel_id", channelID, "error", err)
	}

	t.invalidateMicro(channelID)
}

// RecordError increments the channel's consecutive-error counter and flips
// it to unhealthy once the threshold is reached.
func (t *Tracker) RecordError(ctx context.Context, channelID int64, message string) {
	var status Status
	if _, err := cache.GetJSON(ctx, t.cache, t.key(channelID), &status); err != nil {
		t.logger.Warn("failed to load health state", "channel_id", channelID, "error", err)
	}

	status.ConsecutiveErrors++
	status.LastCheck = t.now()
	status.LastError = message
	status.Healthy = status.ConsecutiveErrors < t.config.ErrorThreshold

	if !status.Healthy {
		t.logger.Warn("channel marked unhealthy",
			"channel_id", channelID,
			"consecutive_errors", status.ConsecutiveErrors,
			"error", message,
		)
	}

	if err := cache.SetJSON(ctx, t.cache, t.key(channelID), status, t.config.StateTTL); err != nil {
		t.logger.Warn("failed to record channel error", "channel_id", channelID, "error", err)
	}

	t.invalidateMicro(channelID)
}

// GetStatus returns the raw health record for a channel, or nil if none
// exists. Used by the health endpoint.
func (t *Tracker) GetStatus(ctx context.Context, channelID int64) (*Status, error) {
	var status Status
	ok, err := cache.GetJSON(ctx, t.cache, t.key(channelID), &status)
	if err != nil || !ok {
		return nil, err
	}
	return &status, nil
}

func (t *Tracker) invalidateMicro(channelID int64) {
	t.mu.Lock()
	delete(t.micro, channelID)
	t.mu.Unlock()
}

func (t *Tracker) key(channelID int64) string {
	return fmt.Sprintf("health:channel:%d", channelID)
}
