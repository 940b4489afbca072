package sources

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"tc.com/price-oracle/pkg/logging"
)

// RawQuote is one raw value read from a direct feed.
type RawQuote struct {
	Raw        *big.Int
	Decimals   uint8
	Timestamp  time.Time
	Confidence uint8
}

// DirectFeed is the capability backing a DirectFeedAdapter: a single
// low-latency native feed queried synchronously in-process.
type DirectFeed interface {
	LatestQuote(instrument string) (RawQuote, error)
}

// DirectFeedAdapter reads a single low-latency native feed and normalizes its
// raw integer prices to the target fixed-point scale.
type DirectFeedAdapter struct {
	name   string
	source SourceID
	feed   DirectFeed
	logger *logging.Logger
}

var _ Adapter = (*DirectFeedAdapter)(nil)

func init() {
	Register("direct", NewDirectFeedAdapter)
}

// NewDirectFeedAdapter creates a direct feed adapter. The backing feed is
// injected through config["feed"]; config["source"] selects the identifier
// readings are tagged with (defaults to DirectFeed).
func NewDirectFeedAdapter(config map[string]interface{}) (Adapter, error) {
	feed, ok := config["feed"].(DirectFeed)
	if !ok || feed == nil {
		return nil, fmt.Errorf("%w: direct adapter", ErrFeedRequired)
	}

	return &DirectFeedAdapter{
		name:   "direct",
		source: SourceIDFromConfig(config, SourceDirectFeed),
		feed:   feed,
		logger: GetLoggerFromConfig(config),
	}, nil
}

// Name returns the adapter reference.
func (a *DirectFeedAdapter) Name() string {
	return a.name
}

// Query reads the latest quote for the instrument and normalizes it.
func (a *DirectFeedAdapter) Query(ctx context.Context, instrument string) (PriceReading, error) {
	if err := ctx.Err(); err != nil {
		return PriceReading{}, err
	}

	quote, err := a.feed.LatestQuote(instrument)
	if err != nil {
		return PriceReading{}, fmt.Errorf("direct feed %s: %w", instrument, err)
	}

	price, err := NormalizeRaw(quote.Raw, quote.Decimals)
	if err != nil {
		return PriceReading{}, fmt.Errorf("direct feed %s: %w", instrument, err)
	}

	return PriceReading{
		Price:      price,
		Timestamp:  quote.Timestamp,
		Confidence: quote.Confidence,
		Source:     a.source,
	}, nil
}
