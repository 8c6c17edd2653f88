// Package pricing computes per-call cost from token usage and the
// per-million-token prices stored in configuration. Unpriced models cost
// zero rather than failing the request.
package pricing

import (
	"context"
	"log/slog"

	"octane/relay/pkg/store"
)

// Calculator resolves model prices and turns usage into cost.
type Calculator struct {
	store  store.Store
	logger *slog.Logger
}

// NewCalculator creates a calculator backed by the configuration store.
func NewCalculator(s store.Store) *Calculator {
	return &Calculator{
		store:  s,
		logger: slog.Default().With("component", "pricing"),
	}
}

// Cost returns the price of a call in currency units. Prices are per one
// million tokens.
func Cost(inputTokens, outputTokens int, price *store.ModelPrice) float64 {
	if price == nil {
		return 0
	}
	return float64(inputTokens)/1e6*price.Input + float64(outputTokens)/1e6*price.Output
}

// CostForModel looks up the model's price and computes the call cost.
// A missing price or a lookup failure yields zero cost; billing must not
// fail a request that already succeeded.
func (c *Calculator) CostForModel(ctx context.Context, model string, inputTokens, outputTokens int) float64 {
	price, err := c.store.GetModelPrice(ctx, model)
	if err != nil {
		c.logger.Warn("price lookup failed", "model", model, "error", err)
		return 0
	}
	if price == nil {
		return 0
	}
	return Cost(inputTokens, outputTokens, price)
}
