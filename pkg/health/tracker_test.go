package health

import (
	"context"
	"testing"
	"time"

	"octane/relay/pkg/cache"
)

func newTestTracker(t *testing.T) (*Tracker, *time.Time) {
	t.Helper()

	mem := cache.NewMemory(time.Hour)
	t.Cleanup(mem.Close)

	tracker := NewTracker(mem, DefaultConfig())

	now := time.Now()
	tracker.now = func() time.Time { return now }
	// Disable the micro-cache time budget so each assertion sees fresh state.
	tracker.config.MicroTTL = time.Nanosecond

	return tracker, &now
}

func TestTracker_NoRecordIsHealthy(t *testing.T) {
	tracker, _ := newTestTracker(t)

	if !tracker.IsHealthy(context.Background(), 1) {
		t.Error("IsHealthy() = false for channel with no record, want true")
	}
}

func TestTracker_UnhealthyAfterThreshold(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	tracker.RecordError(ctx, 1, "connection refused")
	if !tracker.IsHealthy(ctx, 1) {
		t.Fatal("IsHealthy() = false after 1 error, want true")
	}

	tracker.RecordError(ctx, 1, "connection refused")
	if !tracker.IsHealthy(ctx, 1) {
		t.Fatal("IsHealthy() = false after 2 errors, want true")
	}

	tracker.RecordError(ctx, 1, "connection refused")
	if tracker.IsHealthy(ctx, 1) {
		t.Error("IsHealthy() = true after 3 errors, want false")
	}
}

func TestTracker_SuccessResets(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		tracker.RecordError(ctx, 1, "upstream 503")
	}
	if tracker.IsHealthy(ctx, 1) {
		t.Fatal("channel should be unhealthy after threshold errors")
	}

	tracker.RecordSuccess(ctx, 1)
	if !tracker.IsHealthy(ctx, 1) {
		t.Error("IsHealthy() = false after RecordSuccess(), want true")
	}

	status, err := tracker.GetStatus(ctx, 1)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status == nil || status.ConsecutiveErrors != 0 {
		t.Errorf("GetStatus() = %+v, want zero consecutive errors", status)
	}
}

func TestTracker_HalfOpenRecovery(t *testing.T) {
	tracker, now := newTestTracker(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		tracker.RecordError(ctx, 1, "timeout")
	}
	if tracker.IsHealthy(ctx, 1) {
		t.Fatal("channel should be unhealthy")
	}

	// Not yet past the recovery window.
	*now = now.Add(59 * time.Second)
	if tracker.IsHealthy(ctx, 1) {
		t.Fatal("channel became eligible before the recovery window elapsed")
	}

	// Past the window: eligible again without any RecordSuccess call.
	*now = now.Add(2 * time.Second)
	if !tracker.IsHealthy(ctx, 1) {
		t.Error("IsHealthy() = false after recovery window, want true")
	}
}

func TestTracker_ErrorsAreIndependentPerChannel(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		tracker.RecordError(ctx, 1, "boom")
	}

	if tracker.IsHealthy(ctx, 1) {
		t.Error("channel 1 should be unhealthy")
	}
	if !tracker.IsHealthy(ctx, 2) {
		t.Error("channel 2 should be unaffected")
	}
}

func TestTracker_MicroCacheInvalidatedOnMutation(t *testing.T) {
	tracker, _ := newTestTracker(t)
	tracker.config.MicroTTL = time.Hour // Make staleness observable.
	ctx := context.Background()

	// Prime the micro-cache with a healthy verdict.
	if !tracker.IsHealthy(ctx, 1) {
		t.Fatal("expected healthy channel")
	}

	for i := 0; i < 3; i++ {
		tracker.RecordError(ctx, 1, "boom")
	}

	// The mutation must have evicted the cached verdict.
	if tracker.IsHealthy(ctx, 1) {
		t.Error("IsHealthy() served a stale micro-cache entry after RecordError()")
	}
}

func TestTracker_GetStatusAbsent(t *testing.T) {
	tracker, _ := newTestTracker(t)

	status, err := tracker.GetStatus(context.Background(), 99)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status != nil {
		t.Errorf("GetStatus() = %+v for unknown channel, want nil", status)
	}
}
