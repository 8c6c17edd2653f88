package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Cache is the key-value store abstraction used by the routing, health, and
// rate-limiting layers. Values are opaque byte slices; callers that need
// structured values use the GetJSON/SetJSON helpers.
type Cache interface {
	// Get returns the value for key. The second return value reports whether
	// the key was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. A zero ttl means the entry never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Increment adds delta to the integer stored at key and returns the new
	// value. A missing or expired key counts as zero. If the increment
	// creates the key, ttl is applied to it.
	//
	// Atomicity is backend-dependent; see the package documentation.
	Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)

	// GetOrSet returns the value for key if present; otherwise it invokes
	// producer, stores the result under key with ttl, and returns it.
	GetOrSet(ctx context.Context, key string, producer func(ctx context.Context) ([]byte, error), ttl time.Duration) ([]byte, error)
}

// GetJSON fetches key and unmarshals it into out.
// Returns false if the key is absent.
func GetJSON(ctx context.Context, c Cache, key string, out any) (bool, error) {
	data, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("cache: unmarshal key %q: %w", key, err)
	}
	return true, nil
}

// SetJSON marshals value and stores it under key with ttl.
func SetJSON(ctx context.Context, c Cache, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal key %q: %w", key, err)
	}
	return c.Set(ctx, key, data, ttl)
}
