package aggregator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tc.com/price-oracle/pkg/logging"
	"tc.com/price-oracle/pkg/metrics"
	"tc.com/price-oracle/pkg/server/sources"
)

// Engine computes one aggregate price per instrument from the configured
// sources. Aggregation is a pure function of current configuration plus live
// adapter responses; the only state it ever writes is the refresh cache.
type Engine struct {
	registry *Registry
	order    *PriorityList
	cache    *Cache
	adapters map[string]sources.Adapter
	params   Params
	logger   *logging.Logger
	now      func() time.Time
}

// NewEngine creates an aggregation engine. The adapters map resolves the
// opaque adapter references stored in source configuration.
func NewEngine(registry *Registry, order *PriorityList, cache *Cache, adapters map[string]sources.Adapter, params Params, logger *logging.Logger) *Engine {
	return &Engine{
		registry: registry,
		order:    order,
		cache:    cache,
		adapters: adapters,
		params:   params.withDefaults(),
		logger:   logger,
		now:      time.Now,
	}
}

// entry is one recorded (price, weight, timestamp) triple from a fresh source.
type entry struct {
	price      decimal.Decimal
	weight     uint64
	timestamp  time.Time
	confidence uint8
}

// GetAggregate queries every active configured source in priority order,
// filters for freshness and returns the weighted lower-median. Per-source
// failures never escape: a failed or stale source is simply absent from this
// pass.
func (e *Engine) GetAggregate(ctx context.Context, instrument string) AggregatedPrice {
	start := e.now()

	order := e.order.List()
	entries := make([]entry, 0, len(order))
	var totalWeight uint64

	for _, source := range order {
		cfg := e.registry.GetConfig(instrument, source)
		if !cfg.Active || cfg.AdapterRef == "" {
			continue
		}

		adapter, ok := e.adapters[cfg.AdapterRef]
		if !ok {
			continue
		}

		reading, err := e.query(ctx, adapter, instrument)
		if err != nil {
			metrics.RecordSourceFailure(instrument, string(source))
			e.logger.Debug("Source query failed",
				"instrument", instrument, "source", source, "error", err)
			continue
		}

		// Only excess age disqualifies: a future timestamp has negative age
		// and always passes.
		if e.now().Sub(reading.Timestamp) > cfg.MaxStaleness {
			metrics.RecordStaleReading(instrument, string(source))
			e.logger.Debug("Reading too old",
				"instrument", instrument, "source", source,
				"timestamp", reading.Timestamp, "max_staleness", cfg.MaxStaleness)
			continue
		}

		entries = append(entries, entry{
			price:      reading.Price,
			weight:     uint64(cfg.WeightBPS),
			timestamp:  reading.Timestamp,
			confidence: reading.Confidence,
		})
		totalWeight += uint64(cfg.WeightBPS)
	}

	defer func() {
		metrics.RecordAggregation(instrument, len(entries), time.Since(start))
	}()

	if len(entries) < e.params.MinSources {
		return AggregatedPrice{}
	}

	agg := AggregatedPrice{
		SourcesUsed: len(entries),
		Valid:       true,
	}

	if len(entries) == 1 {
		agg.Price = entries[0].price
	} else {
		agg.Price = weightedMedian(entries, totalWeight)
	}

	var confidenceSum uint64
	for _, rec := range entries {
		confidenceSum += uint64(rec.confidence)
		if rec.timestamp.After(agg.Timestamp) {
			agg.Timestamp = rec.timestamp
		}
	}
	agg.Confidence = uint8(confidenceSum / uint64(len(entries)))

	return agg
}

// weightedMedian returns the price of the first element, in ascending price
// order, whose cumulative weight reaches floor(totalWeight/2). This is a
// weighted lower-median with integer rounding, not an interpolation.
func weightedMedian(entries []entry, totalWeight uint64) decimal.Decimal {
	// Stable: ties keep encounter order, i.e. priority order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].price.LessThan(entries[j].price)
	})

	threshold := totalWeight / 2
	var cumulative uint64
	for _, rec := range entries {
		cumulative += rec.weight
		if cumulative >= threshold {
			return rec.price
		}
	}

	// Unreachable unless rounding keeps every element below the threshold.
	return entries[len(entries)-1].price
}

// Refresh computes the aggregate and stores it atomically into the cache. An
// invalid result fails the whole call and leaves the prior cached value
// untouched.
func (e *Engine) Refresh(ctx context.Context, instrument string) (AggregatedPrice, error) {
	agg := e.GetAggregate(ctx, instrument)
	if !agg.Valid {
		metrics.RecordRefresh(instrument, "failed")
		return AggregatedPrice{}, fmt.Errorf("%w: %s", ErrAllSourcesFailed, instrument)
	}

	e.cache.Store(instrument, agg)
	metrics.RecordRefresh(instrument, "ok")
	e.logger.Info("Refreshed aggregate",
		"instrument", instrument,
		"price", agg.Price.String(),
		"sources_used", agg.SourcesUsed)
	return agg, nil
}

// CachedValidity reports whether the cached aggregate is both marked valid
// and still fresh against the default aggregate staleness bound.
func (e *Engine) CachedValidity(instrument string) bool {
	agg, ok := e.cache.Get(instrument)
	valid := ok && agg.Valid && e.now().Sub(agg.Timestamp) <= e.params.DefaultStaleness
	metrics.RecordCacheValidity(instrument, valid)
	return valid
}

// Cache returns the refresh cache.
func (e *Engine) Cache() *Cache {
	return e.cache
}

// query runs one adapter call under the per-query timeout. A timeout, an
// error return and a panic inside the adapter are all the same outcome: no
// reading for this pass.
func (e *Engine) query(ctx context.Context, adapter sources.Adapter, instrument string) (sources.PriceReading, error) {
	qctx, cancel := context.WithTimeout(ctx, e.params.QueryTimeout)
	defer cancel()

	type result struct {
		reading sources.PriceReading
		err     error
	}

	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("adapter panic: %v", r)}
			}
		}()
		reading, err := adapter.Query(qctx, instrument)
		ch <- result{reading: reading, err: err}
	}()

	select {
	case res := <-ch:
		return res.reading, res.err
	case <-qctx.Done():
		return sources.PriceReading{}, qctx.Err()
	}
}
