package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// memoryEntry is a single stored value with its expiry.
type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero time = no expiry
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory is an in-process Cache backed by a map with wall-clock expiry.
// A background goroutine sweeps expired entries periodically; reads also
// treat expired entries as absent, so the sweep only bounds memory.
//
// All operations, including Increment, are atomic under the cache mutex.
type Memory struct {
	entries map[string]*memoryEntry
	mu      sync.RWMutex

	stopCh   chan struct{}
	stopOnce sync.Once

	// now is replaceable for tests.
	now func() time.Time
}

// NewMemory creates a memory cache and starts its cleanup goroutine.
// cleanupInterval defaults to one minute when zero or negative.
func NewMemory(cleanupInterval time.Duration) *Memory {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	m := &Memory{
		entries: make(map[string]*memoryEntry),
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}

	go m.sweep(cleanupInterval)

	return m
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	if !ok || entry.expired(m.now()) {
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = &memoryEntry{
		value:     value,
		expiresAt: m.expiry(ttl),
	}
	return nil
}

// Delete implements Cache.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

// Increment implements Cache. The read-modify-write happens under the write
// lock, so concurrent increments never lose updates on this backend.
func (m *Memory) Increment(_ context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current int64
	entry, ok := m.entries[key]
	if ok && !entry.expired(m.now()) {
		parsed, err := strconv.ParseInt(string(entry.value), 10, 64)
		if err == nil {
			current = parsed
		}
		// A non-numeric value is treated as zero and overwritten.
		current += delta
		entry.value = []byte(strconv.FormatInt(current, 10))
		return current, nil
	}

	current = delta
	m.entries[key] = &memoryEntry{
		value:     []byte(strconv.FormatInt(current, 10)),
		expiresAt: m.expiry(ttl),
	}
	return current, nil
}

// GetOrSet implements Cache.
func (m *Memory) GetOrSet(ctx context.Context, key string, producer func(ctx context.Context) ([]byte, error), ttl time.Duration) ([]byte, error) {
	if value, ok, err := m.Get(ctx, key); err != nil || ok {
		return value, err
	}

	value, err := producer(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.Set(ctx, key, value, ttl); err != nil {
		return nil, err
	}
	return value, nil
}

// Size returns the number of stored entries, including not-yet-swept
// expired ones.
func (m *Memory) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close stops the cleanup goroutine. The cache remains usable afterwards
// but expired entries are only dropped lazily on read.
func (m *Memory) Close() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Memory) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}

// sweep periodically removes expired entries.
func (m *Memory) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.removeExpired()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Memory) removeExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, entry := range m.entries {
		if entry.expired(now) {
			delete(m.entries, key)
		}
	}
}
