package sources

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemFeed_QuotesPerSource(t *testing.T) {
	feed := NewMemFeed()
	ts := time.Now()

	feed.PushQuote(SourceDirectFeed, "LUNC/USD", big.NewInt(100), 8, 90, ts)
	feed.PushQuote(SourceRegistryFeedA, "LUNC/USD", big.NewInt(200), 8, 90, ts)

	quote, err := feed.DirectView(SourceDirectFeed).LatestQuote("LUNC/USD")
	require.NoError(t, err)
	assert.Equal(t, int64(100), quote.Raw.Int64())
	assert.Equal(t, uint8(90), quote.Confidence)
	assert.True(t, quote.Timestamp.Equal(ts))

	// The same instrument under another source is a separate slot.
	quote, err = feed.DirectView(SourceRegistryFeedA).LatestQuote("LUNC/USD")
	require.NoError(t, err)
	assert.Equal(t, int64(200), quote.Raw.Int64())

	_, err = feed.DirectView(SourceRegistryFeedB).LatestQuote("LUNC/USD")
	assert.ErrorIs(t, err, ErrNoReading)
}

func TestMemFeed_QuoteOverwrite(t *testing.T) {
	feed := NewMemFeed()

	feed.PushQuote(SourceDirectFeed, "LUNC/USD", big.NewInt(1), 8, 90, time.Now())
	feed.PushQuote(SourceDirectFeed, "LUNC/USD", big.NewInt(2), 8, 95, time.Now())

	quote, err := feed.DirectView(SourceDirectFeed).LatestQuote("LUNC/USD")
	require.NoError(t, err)
	assert.Equal(t, int64(2), quote.Raw.Int64())
	assert.Equal(t, uint8(95), quote.Confidence)
}

func TestMemFeed_QuoteCopiesRaw(t *testing.T) {
	feed := NewMemFeed()
	raw := big.NewInt(100)

	feed.PushQuote(SourceDirectFeed, "LUNC/USD", raw, 8, 90, time.Now())
	raw.SetInt64(999)

	quote, err := feed.DirectView(SourceDirectFeed).LatestQuote("LUNC/USD")
	require.NoError(t, err)
	assert.Equal(t, int64(100), quote.Raw.Int64())
}

func TestMemFeed_Rounds(t *testing.T) {
	feed := NewMemFeed()
	ts := time.Now()

	first := feed.PushRound(SourceRegistryFeedA, "LUNC/USD", big.NewInt(100), 8, ts.Add(-time.Minute))
	second := feed.PushRound(SourceRegistryFeedA, "LUNC/USD", big.NewInt(110), 8, ts)
	assert.Equal(t, uint64(1), first)
	assert.Equal(t, uint64(2), second)

	view := feed.RoundView(SourceRegistryFeedA)

	latest, err := view.LatestRound("LUNC/USD")
	require.NoError(t, err)
	assert.Equal(t, second, latest.Round)
	assert.Equal(t, int64(110), latest.Answer.Int64())

	historic, err := view.RoundByID("LUNC/USD", first)
	require.NoError(t, err)
	assert.Equal(t, int64(100), historic.Answer.Int64())

	_, err = view.RoundByID("LUNC/USD", 99)
	assert.ErrorIs(t, err, ErrUnknownRound)

	// Rounds increment independently per source.
	other := feed.PushRound(SourceRegistryFeedB, "LUNC/USD", big.NewInt(500), 8, ts)
	assert.Equal(t, uint64(1), other)

	_, err = feed.RoundView(SourceRegistryFeedB).RoundByID("LUNC/USD", second)
	assert.ErrorIs(t, err, ErrUnknownRound)
}

func TestMemFeed_RoundHistoryPruned(t *testing.T) {
	feed := NewMemFeed()
	ts := time.Now()

	for i := 0; i < maxRoundHistory+1; i++ {
		feed.PushRound(SourceRegistryFeedA, "LUNC/USD", big.NewInt(int64(i+1)), 8, ts)
	}

	view := feed.RoundView(SourceRegistryFeedA)

	_, err := view.RoundByID("LUNC/USD", 1)
	assert.ErrorIs(t, err, ErrUnknownRound)

	kept, err := view.RoundByID("LUNC/USD", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), kept.Answer.Int64())

	latest, err := view.LatestRound("LUNC/USD")
	require.NoError(t, err)
	assert.Equal(t, uint64(maxRoundHistory+1), latest.Round)
}

func TestMemFeed_EmptyRoundFeed(t *testing.T) {
	feed := NewMemFeed()

	_, err := feed.RoundView(SourceRegistryFeedA).LatestRound("LUNC/USD")
	assert.ErrorIs(t, err, ErrNoReading)
}
