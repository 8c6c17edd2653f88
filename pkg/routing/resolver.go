package routing

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"octane/relay/pkg/cache"
	"octane/relay/pkg/store"
)

// DefaultConfigTTL is how long resolved group snapshots stay cached.
const DefaultConfigTTL = 60 * time.Second

// Resolver loads group configurations from the store and caches the
// denormalized snapshots.
type Resolver struct {
	store  store.Store
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger

	// epoch is folded into cache keys; bumping it orphans every cached
	// snapshot at once.
	epoch atomic.Int64
}

// NewResolver creates a resolver. ttl defaults to DefaultConfigTTL when
// zero or negative.
func NewResolver(s store.Store, c cache.Cache, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = DefaultConfigTTL
	}

	return &Resolver{
		store:  s,
		cache:  c,
		ttl:    ttl,
		logger: slog.Default().With("component", "routing.resolver"),
	}
}

// Resolve returns the group's configuration snapshot, or nil if the group
// does not exist or is not active. Snapshots come from the cache when
// fresh; a miss rebuilds from the store.
func (r *Resolver) Resolve(ctx context.Context, groupName string) (*GroupConfig, error) {
	key := r.key(groupName)

	var cached GroupConfig
	ok, err := cache.GetJSON(ctx, r.cache, key, &cached)
	if err != nil {
		// A broken cache degrades to a store read, it never fails the request.
		r.logger.Warn("group cache read failed", "group", groupName, "error", err)
	}
	if ok {
		return &cached, nil
	}

	config, err := r.build(ctx, groupName)
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, nil
	}

	if err := cache.SetJSON(ctx, r.cache, key, config, r.ttl); err != nil {
		r.logger.Warn("group cache write failed", "group", groupName, "error", err)
	}
	return config, nil
}

// build loads and denormalizes one group from the store.
func (r *Resolver) build(ctx context.Context, groupName string) (*GroupConfig, error) {
	group, err := r.store.GetGroupByName(ctx, groupName)
	if err != nil {
		return nil, fmt.Errorf("failed to load group %q: %w", groupName, err)
	}
	if group == nil || group.Status != store.StatusActive {
		return nil, nil
	}

	config := &GroupConfig{
		GroupID:   group.ID,
		GroupName: group.Name,
		Strategy:  group.BalanceStrategy,
	}

	memberships, err := r.store.ListGroupChannels(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load memberships for group %q: %w", groupName, err)
	}
	if len(memberships) == 0 {
		// An empty group is a valid (if useless) configuration; cache it so
		// repeated lookups stay cheap.
		return config, nil
	}

	ids := make([]int64, 0, len(memberships))
	byChannel := make(map[int64]store.GroupChannel, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.ChannelID)
		byChannel[m.ChannelID] = m
	}

	channels, err := r.store.GetActiveChannels(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load channels for group %q: %w", groupName, err)
	}

	// Dangling membership rows (deleted or disabled channels) are dropped
	// here: GetActiveChannels only returns live rows.
	config.Channels = make([]ChannelWithMapping, 0, len(channels))
	for _, ch := range channels {
		merged := ChannelWithMapping{Channel: ch}
		if m, ok := byChannel[ch.ID]; ok {
			merged.ModelMapping = m.ModelMapping
			if m.Weight != nil {
				merged.Weight = *m.Weight
			}
			if m.Priority != nil {
				merged.Priority = *m.Priority
			}
		}
		config.Channels = append(config.Channels, merged)
	}

	r.logger.Debug("resolved group",
		"group", groupName,
		"strategy", config.Strategy,
		"channels", len(config.Channels),
	)

	return config, nil
}

// Invalidate drops the cached snapshot for one group. Called by the
// administrative layer after group or membership changes.
func (r *Resolver) Invalidate(ctx context.Context, groupName string) error {
	return r.cache.Delete(ctx, r.key(groupName))
}

// InvalidateByChannel drops the cached snapshot of every group that
// contains the channel. Called after channel mutations.
func (r *Resolver) InvalidateByChannel(ctx context.Context, channelID int64) error {
	groups, err := r.store.ListGroupsContainingChannel(ctx, channelID)
	if err != nil {
		return fmt.Errorf("failed to list groups for channel %d: %w", channelID, err)
	}

	for _, g := range groups {
		if err := r.cache.Delete(ctx, r.key(g.Name)); err != nil {
			return err
		}
	}
	return nil
}

// InvalidateAll orphans every cached snapshot. Called when the backing
// database changes out from under the process.
func (r *Resolver) InvalidateAll() {
	r.epoch.Add(1)
}

func (r *Resolver) key(groupName string) string {
	return fmt.Sprintf("group:config:%d:%s", r.epoch.Load(), groupName)
}
