package sources

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SourceID identifies one upstream price-reporting mechanism. The set is
// closed: aggregation only ever consults identifiers from this list.
type SourceID string

const (
	// SourceDirectFeed is the low-latency native feed.
	SourceDirectFeed SourceID = "direct_feed"
	// SourceRegistryFeedA is the primary round-indexed registry feed.
	SourceRegistryFeedA SourceID = "registry_feed_a"
	// SourceRegistryFeedB is the secondary round-indexed registry feed.
	SourceRegistryFeedB SourceID = "registry_feed_b"
	// SourceAggregatedSynthetic is a synthetic source backed by a cached aggregate.
	SourceAggregatedSynthetic SourceID = "aggregated_synthetic"
)

// KnownSourceIDs lists every member of the closed identifier set.
var KnownSourceIDs = []SourceID{
	SourceDirectFeed,
	SourceRegistryFeedA,
	SourceRegistryFeedB,
	SourceAggregatedSynthetic,
}

// IsKnownSourceID reports whether id belongs to the closed identifier set.
func IsKnownSourceID(id SourceID) bool {
	for _, known := range KnownSourceIDs {
		if id == known {
			return true
		}
	}
	return false
}

// PriceReading is a single reading produced by one adapter call. Readings are
// ephemeral: they exist only for the duration of one aggregation pass.
type PriceReading struct {
	Price      decimal.Decimal `json:"price"`
	Timestamp  time.Time       `json:"timestamp"`
	Confidence uint8           `json:"confidence"` // 0..100
	Source     SourceID        `json:"source"`
}

// Adapter is the uniform capability that queries one upstream feed for one
// instrument. Any internal fault (unreachable upstream, malformed data,
// unconfigured instrument) is converted to an error return at this boundary
// and never propagates further.
type Adapter interface {
	// Query returns the current reading for the instrument or an error when
	// no usable reading is available.
	Query(ctx context.Context, instrument string) (PriceReading, error)

	// Name returns the registered adapter reference this instance was
	// created under.
	Name() string
}

// AdapterFactory creates a new Adapter instance from its configuration map.
type AdapterFactory func(config map[string]interface{}) (Adapter, error)
