package aggregator

import (
	"fmt"
	"sync"

	"tc.com/price-oracle/pkg/server/sources"
)

// Cache holds the last explicitly refreshed aggregate per instrument. It is
// written only by Engine.Refresh and read-only everywhere else.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]AggregatedPrice
}

// NewCache creates an empty aggregate cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]AggregatedPrice),
	}
}

// Store replaces the cached aggregate for the instrument wholesale.
func (c *Cache) Store(instrument string, agg AggregatedPrice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[instrument] = agg
}

// Get returns the cached aggregate and whether one exists.
func (c *Cache) Get(instrument string) (AggregatedPrice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	agg, ok := c.entries[instrument]
	return agg, ok
}

// LatestAggregate implements sources.AggregateProvider, exposing valid cached
// aggregates as readings for the synthetic adapter.
func (c *Cache) LatestAggregate(instrument string) (sources.PriceReading, error) {
	agg, ok := c.Get(instrument)
	if !ok || !agg.Valid {
		return sources.PriceReading{}, fmt.Errorf("%w: %s", sources.ErrAggregateUnavailable, instrument)
	}

	return sources.PriceReading{
		Price:      agg.Price,
		Timestamp:  agg.Timestamp,
		Confidence: agg.Confidence,
		Source:     sources.SourceAggregatedSynthetic,
	}, nil
}

var _ sources.AggregateProvider = (*Cache)(nil)
