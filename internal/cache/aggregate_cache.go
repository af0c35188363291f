package cache

import (
	"strings"
	"time"

	usagedomain "github.com/consensusai/consensus/internal/usage/domain"
)

const defaultAggregateTTL = 30 * time.Minute

// AggregateCache keeps the most recent fold per user and period.
type AggregateCache interface {
	Get(userID string, period usagedomain.Period) (usagedomain.UsageAggregate, bool)
	Set(agg usagedomain.UsageAggregate)
	Invalidate(userID string, period usagedomain.Period)
}

type aggregateCache struct {
	items Cache[string, usagedomain.UsageAggregate]
	ttl   time.Duration
}

func NewAggregateCache() AggregateCache {
	return &aggregateCache{
		items: NewTTLCache[string, usagedomain.UsageAggregate](),
		ttl:   defaultAggregateTTL,
	}
}

func (c *aggregateCache) Get(userID string, period usagedomain.Period) (usagedomain.UsageAggregate, bool) {
	return c.items.Get(cacheKey(userID, period.String()))
}

func (c *aggregateCache) Set(agg usagedomain.UsageAggregate) {
	if strings.TrimSpace(agg.UserID) == "" {
		return
	}
	c.items.Set(cacheKey(agg.UserID, agg.Period.String()), agg, c.ttl)
}

func (c *aggregateCache) Invalidate(userID string, period usagedomain.Period) {
	c.items.Delete(cacheKey(userID, period.String()))
}

func cacheKey(parts ...string) string {
	return strings.Join(parts, "|")
}
