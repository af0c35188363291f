// Package pricing estimates the cost of model usage from the per-model price table.
package pricing

import (
	"math"
	"strings"

	"github.com/consensusai/consensus/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("pricing",
	fx.Provide(NewCalculator),
)

// Calculator reads prices from the live billing config, so reloads apply immediately.
type Calculator struct {
	holder *config.BillingConfigHolder
}

func NewCalculator(holder *config.BillingConfigHolder) *Calculator {
	return &Calculator{holder: holder}
}

// Price returns the entry for model, falling back to the default model.
func (c *Calculator) Price(model string) (config.ModelPrice, bool) {
	if price, ok := c.holder.ModelPrice(model); ok {
		return price, true
	}
	return c.holder.ModelPrice(config.DefaultModel)
}

// Estimate returns the USD cost of tokens on model, rounded to the micro-dollar.
func (c *Calculator) Estimate(model string, tokens int64) float64 {
	if tokens <= 0 {
		return 0
	}
	price, ok := c.Price(model)
	if !ok {
		return 0
	}
	micros := (float64(tokens) / 1000) * price.PricePer1K * 1e6
	return math.Round(micros) / 1e6
}

// EstimateMicros is Estimate in micro-dollars, saturating at math.MaxInt64.
func (c *Calculator) EstimateMicros(model string, tokens int64) int64 {
	micros := math.Round(c.Estimate(model, tokens) * 1e6)
	if micros >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(micros)
}

// Models lists the configured prices.
func (c *Calculator) Models() []config.ModelPrice {
	return c.holder.Current().Models
}

// DisplayName returns a human label for model.
func (c *Calculator) DisplayName(model string) string {
	if price, ok := c.holder.ModelPrice(model); ok && price.DisplayName != "" {
		return price.DisplayName
	}
	return strings.TrimSpace(model)
}
