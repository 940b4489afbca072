package sources

import (
	"context"
	"fmt"

	"tc.com/price-oracle/pkg/logging"
)

// AggregateProvider exposes the last explicitly refreshed aggregate for an
// instrument. The aggregation cache implements this.
type AggregateProvider interface {
	LatestAggregate(instrument string) (PriceReading, error)
}

// SyntheticAdapter serves the AggregatedSynthetic source: it reads another
// engine's cached aggregate instead of a live upstream feed.
type SyntheticAdapter struct {
	name     string
	provider AggregateProvider
	logger   *logging.Logger
}

var _ Adapter = (*SyntheticAdapter)(nil)

func init() {
	Register("synthetic", NewSyntheticAdapter)
}

// NewSyntheticAdapter creates a synthetic adapter. The backing provider is
// injected through config["provider"].
func NewSyntheticAdapter(config map[string]interface{}) (Adapter, error) {
	provider, ok := config["provider"].(AggregateProvider)
	if !ok || provider == nil {
		return nil, fmt.Errorf("%w: synthetic adapter", ErrFeedRequired)
	}

	return &SyntheticAdapter{
		name:     "synthetic",
		provider: provider,
		logger:   GetLoggerFromConfig(config),
	}, nil
}

// Name returns the adapter reference.
func (a *SyntheticAdapter) Name() string {
	return a.name
}

// Query returns the cached aggregate as a reading tagged AggregatedSynthetic.
func (a *SyntheticAdapter) Query(ctx context.Context, instrument string) (PriceReading, error) {
	if err := ctx.Err(); err != nil {
		return PriceReading{}, err
	}

	reading, err := a.provider.LatestAggregate(instrument)
	if err != nil {
		return PriceReading{}, fmt.Errorf("synthetic %s: %w", instrument, err)
	}

	reading.Source = SourceAggregatedSynthetic
	return reading, nil
}
