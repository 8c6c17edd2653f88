package routing

import (
	"context"

	"octane/relay/pkg/store"
)

// ChannelWithMapping is a channel merged with its group-membership overrides.
// Weight and Priority on the embedded channel already reflect the membership
// values when those were set.
type ChannelWithMapping struct {
	store.Channel

	// ModelMapping is the model name to send upstream. Empty means the
	// group name passes through unchanged.
	ModelMapping string `json:"model_mapping,omitempty"`
}

// GroupConfig is the denormalized, read-optimized snapshot of one group.
// It is what the resolver caches: only active groups and active channels
// ever appear here.
type GroupConfig struct {
	GroupID   int64                `json:"group_id"`
	GroupName string               `json:"group_name"`
	Strategy  string               `json:"strategy"`
	Channels  []ChannelWithMapping `json:"channels"`
}

// Selection is the outcome of channel selection for one request.
type Selection struct {
	// Channel is the chosen upstream channel.
	Channel ChannelWithMapping

	// ActualModel is the model name to send upstream: the membership's
	// model mapping when set, otherwise the group name.
	ActualModel string

	// Strategy is the balancing strategy that made the choice.
	Strategy string

	// HealthFallback is true when every channel in the group was unhealthy
	// and selection fell back to the full list.
	HealthFallback bool
}

// Strategy selects one channel from a non-empty candidate list.
// Implementations must not mutate the input slice.
type Strategy interface {
	// Select picks a channel. groupID scopes any shared state the strategy
	// keeps (e.g. the round-robin counter).
	Select(ctx context.Context, groupID int64, channels []ChannelWithMapping) (*ChannelWithMapping, error)

	// Name returns the strategy's configuration name.
	Name() string
}

// Strategy names accepted in group configuration.
const (
	StrategyRoundRobin = "round_robin"
	StrategyRandom     = "random"
	StrategyWeighted   = "weighted"
	StrategyFailover   = "failover"
)
