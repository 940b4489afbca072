// Package aggregator implements the price aggregation engine: per-source
// configuration, freshness filtering, the weighted lower-median, and the
// refresh cache.
package aggregator

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// BasisPointsTotal is the weight denominator: 10000 = 100%.
	BasisPointsTotal = 10000

	// DefaultMinSources is the minimum number of fresh sources an aggregate
	// needs to be valid.
	DefaultMinSources = 1

	// DefaultStaleness is the freshness bound applied to the aggregate as a
	// whole, distinct from per-source staleness bounds.
	DefaultStaleness = 300 * time.Second

	// DefaultQueryTimeout bounds a single adapter query.
	DefaultQueryTimeout = 5 * time.Second
)

// SourceConfig is the per-(instrument, source) configuration. A zero value
// means "not configured".
type SourceConfig struct {
	AdapterRef   string
	WeightBPS    uint32 // 0..10000
	Active       bool
	MaxStaleness time.Duration
}

// AggregatedPrice is the combined price the engine produces for one
// instrument at one point in time. It is overwritten wholesale, never
// partially mutated.
type AggregatedPrice struct {
	Price       decimal.Decimal `json:"price"`
	Timestamp   time.Time       `json:"timestamp"`
	SourcesUsed int             `json:"sources_used"`
	Confidence  uint8           `json:"confidence"`
	Valid       bool            `json:"valid"`
}

// Params holds the runtime-configurable aggregation constants.
type Params struct {
	MinSources       int
	DefaultStaleness time.Duration
	QueryTimeout     time.Duration
}

// withDefaults fills unset params.
func (p Params) withDefaults() Params {
	if p.MinSources <= 0 {
		p.MinSources = DefaultMinSources
	}
	if p.DefaultStaleness <= 0 {
		p.DefaultStaleness = DefaultStaleness
	}
	if p.QueryTimeout <= 0 {
		p.QueryTimeout = DefaultQueryTimeout
	}
	return p
}
