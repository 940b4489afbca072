package sources

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"tc.com/price-oracle/pkg/logging"
)

// RoundData is one entry of a round-indexed feed history.
type RoundData struct {
	Round     uint64
	Answer    *big.Int
	Decimals  uint8
	UpdatedAt time.Time
}

// RoundFeed is the capability backing a RegistryFeedAdapter: a feed exposing
// its latest value plus lookup of historical values by round.
type RoundFeed interface {
	LatestRound(instrument string) (RoundData, error)
	RoundByID(instrument string, round uint64) (RoundData, error)
}

// registryDefaultConfidence is reported for registry feeds, which carry no
// confidence signal of their own.
const registryDefaultConfidence = 100

// RegistryFeedAdapter reads a feed exposing round-indexed history. Any
// non-positive answer is treated as an invalid reading.
type RegistryFeedAdapter struct {
	name   string
	source SourceID
	feed   RoundFeed
	logger *logging.Logger
}

var _ Adapter = (*RegistryFeedAdapter)(nil)

func init() {
	Register("registry", NewRegistryFeedAdapter)
}

// NewRegistryFeedAdapter creates a registry feed adapter. The backing feed is
// injected through config["feed"]; config["source"] selects the identifier
// readings are tagged with (defaults to RegistryFeedA).
func NewRegistryFeedAdapter(config map[string]interface{}) (Adapter, error) {
	feed, ok := config["feed"].(RoundFeed)
	if !ok || feed == nil {
		return nil, fmt.Errorf("%w: registry adapter", ErrFeedRequired)
	}

	return &RegistryFeedAdapter{
		name:   "registry",
		source: SourceIDFromConfig(config, SourceRegistryFeedA),
		feed:   feed,
		logger: GetLoggerFromConfig(config),
	}, nil
}

// Name returns the adapter reference.
func (a *RegistryFeedAdapter) Name() string {
	return a.name
}

// Query reads the latest round for the instrument.
func (a *RegistryFeedAdapter) Query(ctx context.Context, instrument string) (PriceReading, error) {
	if err := ctx.Err(); err != nil {
		return PriceReading{}, err
	}

	round, err := a.feed.LatestRound(instrument)
	if err != nil {
		return PriceReading{}, fmt.Errorf("registry feed %s: %w", instrument, err)
	}

	return a.readingFromRound(instrument, round)
}

// RoundReading returns the historical reading stored at the given round.
// This lookup sits outside the hot aggregation path.
func (a *RegistryFeedAdapter) RoundReading(instrument string, roundID uint64) (PriceReading, error) {
	round, err := a.feed.RoundByID(instrument, roundID)
	if err != nil {
		return PriceReading{}, fmt.Errorf("registry feed %s round %d: %w", instrument, roundID, err)
	}

	return a.readingFromRound(instrument, round)
}

func (a *RegistryFeedAdapter) readingFromRound(instrument string, round RoundData) (PriceReading, error) {
	if round.Answer == nil || round.Answer.Sign() <= 0 {
		return PriceReading{}, fmt.Errorf("registry feed %s round %d: %w", instrument, round.Round, ErrInvalidValue)
	}

	price, err := NormalizeRaw(round.Answer, round.Decimals)
	if err != nil {
		return PriceReading{}, fmt.Errorf("registry feed %s round %d: %w", instrument, round.Round, err)
	}

	return PriceReading{
		Price:      price,
		Timestamp:  round.UpdatedAt,
		Confidence: registryDefaultConfidence,
		Source:     a.source,
	}, nil
}
