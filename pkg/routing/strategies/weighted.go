package strategies

import (
	"context"
	"fmt"
	"math/rand"

	"octane/relay/pkg/routing"
)

// Weighted picks a channel with probability proportional to its weight.
//
// A draw in [0, totalWeight) walks the list subtracting each channel's
// weight until it goes negative. Degenerate weights (total <= 0) fall back
// to the first channel rather than erroring.
type Weighted struct {
	// intn is replaceable for tests; defaults to rand.Intn.
	intn func(n int) int
}

// NewWeighted creates a weighted strategy.
func NewWeighted() *Weighted {
	return &Weighted{intn: rand.Intn}
}

// Select implements routing.Strategy.
func (s *Weighted) Select(_ context.Context, _ int64, channels []routing.ChannelWithMapping) (*routing.ChannelWithMapping, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("weighted: no channels to select from")
	}

	total := 0
	for _, ch := range channels {
		if ch.Weight > 0 {
			total += ch.Weight
		}
	}
	if total <= 0 {
		return &channels[0], nil
	}

	draw := s.intn(total)
	for i := range channels {
		if channels[i].Weight <= 0 {
			continue
		}
		draw -= channels[i].Weight
		if draw < 0 {
			return &channels[i], nil
		}
	}

	// Unreachable when weights sum to total, kept as a guard.
	return &channels[0], nil
}

// Name implements routing.Strategy.
func (s *Weighted) Name() string {
	return routing.StrategyWeighted
}
