package strategies

import (
	"octane/relay/pkg/cache"
	"octane/relay/pkg/routing"
)

// All builds the full strategy registry, keyed by configuration name.
// It is constructed once at startup and handed to the selector; adding a
// strategy means adding one implementation and one entry here.
func All(c cache.Cache) map[string]routing.Strategy {
	return map[string]routing.Strategy{
		routing.StrategyRoundRobin: NewRoundRobin(c),
		routing.StrategyRandom:     NewRandom(),
		routing.StrategyWeighted:   NewWeighted(),
		routing.StrategyFailover:   NewFailover(),
	}
}
