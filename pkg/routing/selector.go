package routing

import (
	"context"
	"log/slog"

	"octane/relay/pkg/health"
)

// Selector composes the resolver, the health tracker, and the balancing
// strategies into a single channel-selection operation.
type Selector struct {
	resolver   *Resolver
	health     *health.Tracker
	strategies map[string]Strategy
	logger     *slog.Logger
}

// NewSelector creates a selector. strategies maps configuration names
// (round_robin, random, weighted, failover) to implementations; it is
// built once at startup.
func NewSelector(resolver *Resolver, tracker *health.Tracker, strategies map[string]Strategy) *Selector {
	if strategies == nil {
		strategies = make(map[string]Strategy)
	}

	return &Selector{
		resolver:   resolver,
		health:     tracker,
		strategies: strategies,
		logger:     slog.Default().With("component", "routing.selector"),
	}
}

// Select resolves the group and picks one channel for the request.
// Returns nil (with a nil error) when the group does not exist, is
// inactive, or has no channels.
//
// Unhealthy channels are filtered out first; if that leaves nothing, the
// full channel list is used instead so that a group never becomes
// unreachable purely through health bookkeeping.
func (s *Selector) Select(ctx context.Context, groupName string) (*Selection, error) {
	config, err := s.resolver.Resolve(ctx, groupName)
	if err != nil {
		return nil, err
	}
	if config == nil || len(config.Channels) == 0 {
		return nil, nil
	}

	candidates := s.filterHealthy(ctx, config.Channels)
	fallback := false
	if len(candidates) == 0 {
		candidates = config.Channels
		fallback = true
		s.logger.Warn("no healthy channels in group, using full list",
			"group", groupName,
			"channels", len(config.Channels),
		)
	}

	chosen, strategyName := s.dispatch(ctx, config, candidates)
	if chosen == nil {
		return nil, nil
	}

	actualModel := chosen.ModelMapping
	if actualModel == "" {
		actualModel = config.GroupName
	}

	return &Selection{
		Channel:        *chosen,
		ActualModel:    actualModel,
		Strategy:       strategyName,
		HealthFallback: fallback,
	}, nil
}

// dispatch applies the group's strategy. Unknown strategy names degrade to
// "first channel" rather than erroring.
func (s *Selector) dispatch(ctx context.Context, config *GroupConfig, candidates []ChannelWithMapping) (*ChannelWithMapping, string) {
	strategy, ok := s.strategies[config.Strategy]
	if !ok {
		s.logger.Warn("unknown balance strategy, using first channel",
			"group", config.GroupName,
			"strategy", config.Strategy,
		)
		return &candidates[0], "first"
	}

	chosen, err := strategy.Select(ctx, config.GroupID, candidates)
	if err != nil || chosen == nil {
		if err != nil {
			s.logger.Warn("strategy selection failed, using first channel",
				"group", config.GroupName,
				"strategy", strategy.Name(),
				"error", err,
			)
		}
		return &candidates[0], strategy.Name()
	}
	return chosen, strategy.Name()
}

func (s *Selector) filterHealthy(ctx context.Context, channels []ChannelWithMapping) []ChannelWithMapping {
	healthy := make([]ChannelWithMapping, 0, len(channels))
	for _, ch := range channels {
		if s.health.IsHealthy(ctx, ch.ID) {
			healthy = append(healthy, ch)
		}
	}
	return healthy
}
