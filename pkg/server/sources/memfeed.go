package sources

import (
	"fmt"
	"math/big"
	"sync"
	"time"
)

// maxRoundHistory caps the per-(source, instrument) round history kept in memory.
const maxRoundHistory = 256

type feedKey struct {
	source     SourceID
	instrument string
}

// MemFeed is an in-memory feed hub. Upstream publishers push quotes and
// rounds into it (via the ingestion API); adapters read from per-source views
// with plain synchronous calls. One hub backs all configured sources.
type MemFeed struct {
	mu     sync.RWMutex
	quotes map[feedKey]RawQuote
	rounds map[feedKey]map[uint64]RoundData
	latest map[feedKey]uint64
}

// NewMemFeed creates an empty in-memory feed hub.
func NewMemFeed() *MemFeed {
	return &MemFeed{
		quotes: make(map[feedKey]RawQuote),
		rounds: make(map[feedKey]map[uint64]RoundData),
		latest: make(map[feedKey]uint64),
	}
}

// PushQuote stores the latest raw quote for (source, instrument).
func (f *MemFeed) PushQuote(source SourceID, instrument string, raw *big.Int, decimals uint8, confidence uint8, ts time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.quotes[feedKey{source, instrument}] = RawQuote{
		Raw:        new(big.Int).Set(raw),
		Decimals:   decimals,
		Confidence: confidence,
		Timestamp:  ts,
	}
}

// PushRound appends a new round for (source, instrument) and returns its round ID.
func (f *MemFeed) PushRound(source SourceID, instrument string, answer *big.Int, decimals uint8, updatedAt time.Time) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := feedKey{source, instrument}
	history, ok := f.rounds[key]
	if !ok {
		history = make(map[uint64]RoundData)
		f.rounds[key] = history
	}

	round := f.latest[key] + 1
	f.latest[key] = round
	history[round] = RoundData{
		Round:     round,
		Answer:    new(big.Int).Set(answer),
		Decimals:  decimals,
		UpdatedAt: updatedAt,
	}

	if old := round - maxRoundHistory; round > maxRoundHistory {
		delete(history, old)
	}

	return round
}

// DirectView returns the DirectFeed capability bound to one source.
func (f *MemFeed) DirectView(source SourceID) DirectFeed {
	return directView{hub: f, source: source}
}

// RoundView returns the RoundFeed capability bound to one source.
func (f *MemFeed) RoundView(source SourceID) RoundFeed {
	return roundView{hub: f, source: source}
}

type directView struct {
	hub    *MemFeed
	source SourceID
}

var _ DirectFeed = directView{}

// LatestQuote implements DirectFeed.
func (v directView) LatestQuote(instrument string) (RawQuote, error) {
	v.hub.mu.RLock()
	defer v.hub.mu.RUnlock()

	quote, ok := v.hub.quotes[feedKey{v.source, instrument}]
	if !ok {
		return RawQuote{}, fmt.Errorf("%w: %s/%s", ErrNoReading, v.source, instrument)
	}
	return quote, nil
}

type roundView struct {
	hub    *MemFeed
	source SourceID
}

var _ RoundFeed = roundView{}

// LatestRound implements RoundFeed.
func (v roundView) LatestRound(instrument string) (RoundData, error) {
	v.hub.mu.RLock()
	defer v.hub.mu.RUnlock()

	key := feedKey{v.source, instrument}
	round, ok := v.hub.latest[key]
	if !ok {
		return RoundData{}, fmt.Errorf("%w: %s/%s", ErrNoReading, v.source, instrument)
	}
	return v.hub.rounds[key][round], nil
}

// RoundByID implements RoundFeed.
func (v roundView) RoundByID(instrument string, round uint64) (RoundData, error) {
	v.hub.mu.RLock()
	defer v.hub.mu.RUnlock()

	data, ok := v.hub.rounds[feedKey{v.source, instrument}][round]
	if !ok {
		return RoundData{}, fmt.Errorf("%w: %s/%s round %d", ErrUnknownRound, v.source, instrument, round)
	}
	return data, nil
}
