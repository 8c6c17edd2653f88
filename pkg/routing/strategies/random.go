package strategies

import (
	"context"
	"fmt"
	"math/rand"

	"octane/relay/pkg/routing"
)

// Random picks a channel uniformly at random.
type Random struct {
	// intn is replaceable for tests; defaults to rand.Intn.
	intn func(n int) int
}

// NewRandom creates a random strategy.
func NewRandom() *Random {
	return &Random{intn: rand.Intn}
}

// Select implements routing.Strategy.
func (s *Random) Select(_ context.Context, _ int64, channels []routing.ChannelWithMapping) (*routing.ChannelWithMapping, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("random: no channels to select from")
	}
	return &channels[s.intn(len(channels))], nil
}

// Name implements routing.Strategy.
func (s *Random) Name() string {
	return routing.StrategyRandom
}
