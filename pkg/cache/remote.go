package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Remote is a Cache backed by an HTTP key-value service.
//
// Protocol: GET /kv/{key} returns the raw value (404 when absent);
// PUT /kv/{key} stores the request body, with an optional X-TTL-Seconds
// header; DELETE /kv/{key} removes the key.
//
// Increment is implemented as a read followed by a write and is therefore
// not atomic: two concurrent increments can observe the same base value.
// The gateway only uses Increment for round-robin counters and rate-limit
// windows, both of which tolerate occasional lost updates.
type Remote struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// RemoteConfig configures the remote cache client.
type RemoteConfig struct {
	// BaseURL is the key-value service root, e.g. "http://127.0.0.1:7600".
	BaseURL string

	// Timeout bounds each HTTP call. Default: 2 seconds.
	Timeout time.Duration
}

// NewRemote creates a remote cache client.
func NewRemote(cfg RemoteConfig) (*Remote, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("cache: remote base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	return &Remote{
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: slog.Default().With("component", "cache.remote"),
	}, nil
}

// Get implements Cache.
func (r *Remote) Get(ctx context.Context, key string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.keyURL(key), nil)
	if err != nil {
		return nil, false, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("cache: get %q: %w", key, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		value, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, false, fmt.Errorf("cache: read %q: %w", key, err)
		}
		return value, true, nil
	case http.StatusNotFound:
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("cache: get %q: unexpected status %d", key, resp.StatusCode)
	}
}

// Set implements Cache.
func (r *Remote) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.keyURL(key), bytes.NewReader(value))
	if err != nil {
		return err
	}
	if ttl > 0 {
		req.Header.Set("X-TTL-Seconds", strconv.Itoa(int(ttl/time.Second)))
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("cache: set %q: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("cache: set %q: unexpected status %d", key, resp.StatusCode)
	}
	return nil
}

// Delete implements Cache.
func (r *Remote) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, r.keyURL(key), nil)
	if err != nil {
		return err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("cache: delete %q: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("cache: delete %q: unexpected status %d", key, resp.StatusCode)
	}
	return nil
}

// Increment implements Cache via read-then-write. Not atomic; see type docs.
func (r *Remote) Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	value, ok, err := r.Get(ctx, key)
	if err != nil {
		return 0, err
	}

	var current int64
	if ok {
		parsed, err := strconv.ParseInt(string(value), 10, 64)
		if err != nil {
			r.logger.Warn("non-numeric counter value, resetting",
				"key", key,
				"value", string(value),
			)
		} else {
			current = parsed
		}
	}

	current += delta
	if err := r.Set(ctx, key, []byte(strconv.FormatInt(current, 10)), ttl); err != nil {
		return 0, err
	}
	return current, nil
}

// GetOrSet implements Cache.
func (r *Remote) GetOrSet(ctx context.Context, key string, producer func(ctx context.Context) ([]byte, error), ttl time.Duration) ([]byte, error) {
	if value, ok, err := r.Get(ctx, key); err != nil || ok {
		return value, err
	}

	value, err := producer(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.Set(ctx, key, value, ttl); err != nil {
		return nil, err
	}
	return value, nil
}

func (r *Remote) keyURL(key string) string {
	return r.baseURL + "/kv/" + url.PathEscape(key)
}
