package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

// newTestMemory creates a memory cache with a controllable clock and no
// background sweeper interference (long interval).
func newTestMemory(t *testing.T) (*Memory, *time.Time) {
	t.Helper()

	now := time.Now()
	m := NewMemory(time.Hour)
	m.now = func() time.Time { return now }
	t.Cleanup(m.Close)

	return m, &now
}

func TestMemory_SetGet(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	if err := m.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, ok, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if string(value) != "v" {
		t.Errorf("Get() = %q, want %q", value, "v")
	}
}

func TestMemory_GetMissing(t *testing.T) {
	m, _ := newTestMemory(t)

	_, ok, err := m.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true for missing key, want false")
	}
}

func TestMemory_Expiry(t *testing.T) {
	m, now := newTestMemory(t)
	ctx := context.Background()

	if err := m.Set(ctx, "k", []byte("v"), 30*time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// Still present just before expiry.
	*now = now.Add(29 * time.Second)
	if _, ok, _ := m.Get(ctx, "k"); !ok {
		t.Fatal("entry expired too early")
	}

	// Gone after expiry.
	*now = now.Add(2 * time.Second)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("entry still present after TTL elapsed")
	}
}

func TestMemory_Delete(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	m.Set(ctx, "k", []byte("v"), 0)
	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("key still present after Delete()")
	}

	// Deleting a missing key is not an error.
	if err := m.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete(missing) error = %v", err)
	}
}

func TestMemory_Increment(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		delta int64
		want  int64
	}{
		{name: "first increment creates key", delta: 1, want: 1},
		{name: "second increment adds", delta: 1, want: 2},
		{name: "delta greater than one", delta: 5, want: 7},
		{name: "negative delta", delta: -2, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Increment(ctx, "counter", tt.delta, time.Minute)
			if err != nil {
				t.Fatalf("Increment() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Increment() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMemory_IncrementConcurrent(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	const goroutines = 20
	const perGoroutine = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				if _, err := m.Increment(ctx, "counter", 1, 0); err != nil {
					t.Errorf("Increment() error = %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	got, err := m.Increment(ctx, "counter", 0, 0)
	if err != nil {
		t.Fatalf("Increment() error = %v", err)
	}
	if want := int64(goroutines * perGoroutine); got != want {
		t.Errorf("counter = %d after concurrent increments, want %d", got, want)
	}
}

func TestMemory_IncrementExpiredKeyResets(t *testing.T) {
	m, now := newTestMemory(t)
	ctx := context.Background()

	if _, err := m.Increment(ctx, "counter", 10, time.Minute); err != nil {
		t.Fatalf("Increment() error = %v", err)
	}

	*now = now.Add(2 * time.Minute)

	got, err := m.Increment(ctx, "counter", 1, time.Minute)
	if err != nil {
		t.Fatalf("Increment() error = %v", err)
	}
	if got != 1 {
		t.Errorf("Increment() after expiry = %d, want 1", got)
	}
}

func TestMemory_GetOrSet(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	calls := 0
	producer := func(context.Context) ([]byte, error) {
		calls++
		return []byte("produced"), nil
	}

	value, err := m.GetOrSet(ctx, "k", producer, time.Minute)
	if err != nil {
		t.Fatalf("GetOrSet() error = %v", err)
	}
	if string(value) != "produced" {
		t.Errorf("GetOrSet() = %q, want %q", value, "produced")
	}

	// Second call must hit the cache, not the producer.
	if _, err := m.GetOrSet(ctx, "k", producer, time.Minute); err != nil {
		t.Fatalf("GetOrSet() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("producer called %d times, want 1", calls)
	}
}

func TestMemory_RemoveExpiredSweep(t *testing.T) {
	m, now := newTestMemory(t)
	ctx := context.Background()

	m.Set(ctx, "short", []byte("v"), time.Second)
	m.Set(ctx, "forever", []byte("v"), 0)

	*now = now.Add(time.Minute)
	m.removeExpired()

	if m.Size() != 1 {
		t.Errorf("Size() = %d after sweep, want 1", m.Size())
	}
}

func TestGetSetJSON(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	in := payload{Name: "primary", Count: 3}
	if err := SetJSON(ctx, m, "k", in, time.Minute); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}

	var out payload
	ok, err := GetJSON(ctx, m, "k", &out)
	if err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if !ok {
		t.Fatal("GetJSON() ok = false, want true")
	}
	if out != in {
		t.Errorf("GetJSON() = %+v, want %+v", out, in)
	}

	var missing payload
	ok, err = GetJSON(ctx, m, "absent", &missing)
	if err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if ok {
		t.Error("GetJSON() ok = true for missing key, want false")
	}
}
