package routing_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"octane/relay/pkg/cache"
	"octane/relay/pkg/routing"
	"octane/relay/pkg/store"
)

// fakeStore is an in-memory store.Store for routing tests.
type fakeStore struct {
	groups      map[string]*store.Group
	memberships map[int64][]store.GroupChannel
	channels    map[int64]store.Channel

	groupQueries int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		groups:      make(map[string]*store.Group),
		memberships: make(map[int64][]store.GroupChannel),
		channels:    make(map[int64]store.Channel),
	}
}

func (f *fakeStore) GetGroupByName(_ context.Context, name string) (*store.Group, error) {
	f.groupQueries++
	g, ok := f.groups[name]
	if !ok {
		return nil, nil
	}
	copied := *g
	return &copied, nil
}

func (f *fakeStore) ListGroupChannels(_ context.Context, groupID int64) ([]store.GroupChannel, error) {
	return f.memberships[groupID], nil
}

func (f *fakeStore) GetActiveChannels(_ context.Context, ids []int64) ([]store.Channel, error) {
	var out []store.Channel
	for _, id := range ids {
		ch, ok := f.channels[id]
		if ok && ch.Status == store.StatusActive {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (f *fakeStore) ListGroupsContainingChannel(_ context.Context, channelID int64) ([]store.Group, error) {
	var out []store.Group
	for _, g := range f.groups {
		for _, m := range f.memberships[g.ID] {
			if m.ChannelID == channelID {
				out = append(out, *g)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) GetAPIKey(context.Context, string) (*store.APIKeyInfo, error) { return nil, nil }
func (f *fakeStore) AddUsedQuota(context.Context, int64, int64) error             { return nil }
func (f *fakeStore) GetModelPrice(context.Context, string) (*store.ModelPrice, error) {
	return nil, nil
}
func (f *fakeStore) Close() error { return nil }

// seedGroup wires a group with n active channels into the fake store.
func (f *fakeStore) seedGroup(name, strategy string, channelIDs ...int64) *store.Group {
	g := &store.Group{ID: int64(len(f.groups) + 1), Name: name, BalanceStrategy: strategy, Status: store.StatusActive}
	f.groups[name] = g
	for _, id := range channelIDs {
		f.channels[id] = store.Channel{
			ID:      id,
			Name:    fmt.Sprintf("ch-%d", id),
			Type:    store.ChannelTypeOpenAIChat,
			BaseURL: "https://upstream.example/v1",
			Status:  store.StatusActive,
			Weight:  1,
		}
		f.memberships[g.ID] = append(f.memberships[g.ID], store.GroupChannel{GroupID: g.ID, ChannelID: id})
	}
	return g
}

func newTestResolver(t *testing.T, fs *fakeStore) *routing.Resolver {
	t.Helper()
	mem := cache.NewMemory(time.Hour)
	t.Cleanup(mem.Close)
	return routing.NewResolver(fs, mem, time.Minute)
}

func TestResolver_ResolveActiveGroup(t *testing.T) {
	fs := newFakeStore()
	fs.seedGroup("gpt-4o", routing.StrategyRoundRobin, 1, 2)
	r := newTestResolver(t, fs)

	config, err := r.Resolve(context.Background(), "gpt-4o")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if config == nil {
		t.Fatal("Resolve() = nil for active group")
	}
	if config.Strategy != routing.StrategyRoundRobin {
		t.Errorf("Strategy = %q, want round_robin", config.Strategy)
	}
	if len(config.Channels) != 2 {
		t.Errorf("Channels = %d, want 2", len(config.Channels))
	}
}

func TestResolver_MissingOrInactiveGroup(t *testing.T) {
	fs := newFakeStore()
	g := fs.seedGroup("disabled-group", routing.StrategyRandom, 1)
	g.Status = store.StatusDisabled
	r := newTestResolver(t, fs)
	ctx := context.Background()

	config, err := r.Resolve(ctx, "no-such-group")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if config != nil {
		t.Errorf("Resolve() = %+v for missing group, want nil", config)
	}

	config, err = r.Resolve(ctx, "disabled-group")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if config != nil {
		t.Errorf("Resolve() = %+v for inactive group, want nil", config)
	}
}

func TestResolver_EmptyGroupCached(t *testing.T) {
	fs := newFakeStore()
	fs.seedGroup("empty", routing.StrategyRandom)
	r := newTestResolver(t, fs)
	ctx := context.Background()

	config, err := r.Resolve(ctx, "empty")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if config == nil || len(config.Channels) != 0 {
		t.Fatalf("Resolve() = %+v, want empty-channel config", config)
	}

	// Second resolve must come from cache.
	before := fs.groupQueries
	if _, err := r.Resolve(ctx, "empty"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if fs.groupQueries != before {
		t.Error("second Resolve() hit the store, want cache hit")
	}
}

func TestResolver_MergesOverrides(t *testing.T) {
	fs := newFakeStore()
	g := fs.seedGroup("grp", routing.StrategyWeighted, 1)
	weight, priority := 9, 4
	fs.memberships[g.ID][0].ModelMapping = "upstream-model"
	fs.memberships[g.ID][0].Weight = &weight
	fs.memberships[g.ID][0].Priority = &priority
	r := newTestResolver(t, fs)

	config, err := r.Resolve(context.Background(), "grp")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	ch := config.Channels[0]
	if ch.ModelMapping != "upstream-model" {
		t.Errorf("ModelMapping = %q, want %q", ch.ModelMapping, "upstream-model")
	}
	if ch.Weight != 9 || ch.Priority != 4 {
		t.Errorf("Weight/Priority = %d/%d, want 9/4", ch.Weight, ch.Priority)
	}
}

func TestResolver_DropsInactiveChannels(t *testing.T) {
	fs := newFakeStore()
	fs.seedGroup("grp", routing.StrategyRandom, 1, 2)
	ch := fs.channels[2]
	ch.Status = store.StatusDisabled
	fs.channels[2] = ch
	r := newTestResolver(t, fs)

	config, err := r.Resolve(context.Background(), "grp")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(config.Channels) != 1 || config.Channels[0].ID != 1 {
		t.Errorf("Channels = %+v, want only active channel 1", config.Channels)
	}
}

func TestResolver_Invalidate(t *testing.T) {
	fs := newFakeStore()
	fs.seedGroup("grp", routing.StrategyRandom, 1)
	r := newTestResolver(t, fs)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "grp"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if err := r.Invalidate(ctx, "grp"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}

	before := fs.groupQueries
	if _, err := r.Resolve(ctx, "grp"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if fs.groupQueries != before+1 {
		t.Error("Resolve() after Invalidate() did not reload from store")
	}
}

func TestResolver_InvalidateByChannel(t *testing.T) {
	fs := newFakeStore()
	fs.seedGroup("grp-a", routing.StrategyRandom, 1)
	fs.seedGroup("grp-b", routing.StrategyRandom, 1, 2)
	fs.seedGroup("grp-c", routing.StrategyRandom, 2)
	r := newTestResolver(t, fs)
	ctx := context.Background()

	for _, name := range []string{"grp-a", "grp-b", "grp-c"} {
		if _, err := r.Resolve(ctx, name); err != nil {
			t.Fatalf("Resolve(%q) error = %v", name, err)
		}
	}

	if err := r.InvalidateByChannel(ctx, 1); err != nil {
		t.Fatalf("InvalidateByChannel() error = %v", err)
	}

	// Groups containing channel 1 reload; grp-c stays cached.
	before := fs.groupQueries
	r.Resolve(ctx, "grp-a")
	r.Resolve(ctx, "grp-b")
	r.Resolve(ctx, "grp-c")
	if got := fs.groupQueries - before; got != 2 {
		t.Errorf("store reloads after InvalidateByChannel = %d, want 2", got)
	}
}

func TestResolver_InvalidateAll(t *testing.T) {
	fs := newFakeStore()
	fs.seedGroup("grp-a", routing.StrategyRandom, 1)
	fs.seedGroup("grp-b", routing.StrategyRandom, 2)
	r := newTestResolver(t, fs)
	ctx := context.Background()

	for _, name := range []string{"grp-a", "grp-b"} {
		if _, err := r.Resolve(ctx, name); err != nil {
			t.Fatalf("Resolve(%q) error = %v", name, err)
		}
	}

	r.InvalidateAll()

	before := fs.groupQueries
	r.Resolve(ctx, "grp-a")
	r.Resolve(ctx, "grp-b")
	if got := fs.groupQueries - before; got != 2 {
		t.Errorf("store reloads after InvalidateAll = %d, want 2", got)
	}
}
