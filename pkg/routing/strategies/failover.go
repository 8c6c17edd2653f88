package strategies

import (
	"context"
	"fmt"

	"octane/relay/pkg/routing"
)

// Failover always selects the highest-priority channel. Ties keep the
// original configuration order, so the result is deterministic.
type Failover struct{}

// NewFailover creates a failover strategy.
func NewFailover() *Failover {
	return &Failover{}
}

// Select implements routing.Strategy.
func (s *Failover) Select(_ context.Context, _ int64, channels []routing.ChannelWithMapping) (*routing.ChannelWithMapping, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("failover: no channels to select from")
	}

	best := 0
	for i := 1; i < len(channels); i++ {
		if channels[i].Priority > channels[best].Priority {
			best = i
		}
	}
	return &channels[best], nil
}

// Name implements routing.Strategy.
func (s *Failover) Name() string {
	return routing.StrategyFailover
}
