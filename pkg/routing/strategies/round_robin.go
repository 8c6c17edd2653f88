package strategies

import (
	"context"
	"fmt"
	"time"

	"octane/relay/pkg/cache"
	"octane/relay/pkg/routing"
)

// counterTTL keeps round-robin counters from accumulating forever for
// groups that stop receiving traffic.
const counterTTL = 24 * time.Hour

// RoundRobin cycles through a group's channels in order. The per-group
// counter is stored in the cache, so rotation continues across restarts
// and is shared between gateway instances. The counter grows without bound
// and wraps via modulo; that is intentional.
type RoundRobin struct {
	cache cache.Cache
}

// NewRoundRobin creates a round-robin strategy backed by the given cache.
func NewRoundRobin(c cache.Cache) *RoundRobin {
	return &RoundRobin{cache: c}
}

// Select implements routing.Strategy.
func (s *RoundRobin) Select(ctx context.Context, groupID int64, channels []routing.ChannelWithMapping) (*routing.ChannelWithMapping, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("round_robin: no channels to select from")
	}

	key := fmt.Sprintf("lb:rr:%d", groupID)
	counter, err := s.cache.Increment(ctx, key, 1, counterTTL)
	if err != nil {
		return nil, fmt.Errorf("round_robin: counter increment failed: %w", err)
	}

	index := int((counter - 1) % int64(len(channels)))
	if index < 0 {
		index += len(channels)
	}
	return &channels[index], nil
}

// Name implements routing.Strategy.
func (s *RoundRobin) Name() string {
	return routing.StrategyRoundRobin
}
