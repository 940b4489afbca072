package aggregator

import (
	"fmt"
	"sync"
	"time"

	"tc.com/price-oracle/pkg/server/sources"
)

type configKey struct {
	instrument string
	source     sources.SourceID
}

// Registry holds the per-(instrument, source) configuration. Reads are
// lock-free beyond the RWMutex; all writers are serialized, which is stronger
// than the per-instrument minimum the concurrency model requires.
type Registry struct {
	mu      sync.RWMutex
	configs map[configKey]SourceConfig
}

// NewRegistry creates an empty source registry.
func NewRegistry() *Registry {
	return &Registry{
		configs: make(map[configKey]SourceConfig),
	}
}

// Configure fully replaces the configuration for (instrument, source). There
// is no merge: fields absent from this call do not survive from a prior
// entry. The source becomes active.
func (r *Registry) Configure(instrument string, source sources.SourceID, adapterRef string, weightBPS uint32, maxStaleness time.Duration) error {
	if weightBPS > BasisPointsTotal {
		return fmt.Errorf("%w: %d > %d", ErrInvalidWeight, weightBPS, BasisPointsTotal)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.configs[configKey{instrument, source}] = SourceConfig{
		AdapterRef:   adapterRef,
		WeightBPS:    weightBPS,
		Active:       true,
		MaxStaleness: maxStaleness,
	}
	return nil
}

// SetActive toggles the active flag without touching adapter, weight or
// staleness.
func (r *Registry) SetActive(instrument string, source sources.SourceID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := configKey{instrument, source}
	cfg, ok := r.configs[key]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotConfigured, instrument, source)
	}

	cfg.Active = active
	r.configs[key] = cfg
	return nil
}

// UpdateWeights replaces the weights of the given sources in one batch. The
// update is all-or-nothing: every source must be configured and the given
// weights must sum to exactly 10000 basis points, or nothing changes.
//
// Only the passed subset is checked against the 10000 total; weights of
// configured sources omitted from the call are not part of the sum, so the
// full set can drift when callers omit an active source.
func (r *Registry) UpdateWeights(instrument string, srcs []sources.SourceID, weights []uint32) error {
	if len(srcs) != len(weights) {
		return fmt.Errorf("%w: %d sources, %d weights", ErrLengthMismatch, len(srcs), len(weights))
	}

	var sum uint64
	for _, w := range weights {
		sum += uint64(w)
	}
	if sum != BasisPointsTotal {
		return fmt.Errorf("%w: weights sum to %d, want %d", ErrInvalidWeight, sum, BasisPointsTotal)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Validate everything before writing anything.
	for _, source := range srcs {
		if _, ok := r.configs[configKey{instrument, source}]; !ok {
			return fmt.Errorf("%w: %s/%s", ErrNotConfigured, instrument, source)
		}
	}

	for i, source := range srcs {
		key := configKey{instrument, source}
		cfg := r.configs[key]
		cfg.WeightBPS = weights[i]
		r.configs[key] = cfg
	}
	return nil
}

// GetConfig returns the configuration for (instrument, source). It never
// errors: an absent entry yields the zero value.
func (r *Registry) GetConfig(instrument string, source sources.SourceID) SourceConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.configs[configKey{instrument, source}]
}

// PriorityList is the ordered sequence of source identifiers consulted during
// aggregation. It is shared across all instruments and replaced wholesale.
type PriorityList struct {
	mu    sync.RWMutex
	order []sources.SourceID
}

// NewPriorityList creates a priority list with the given initial order.
func NewPriorityList(order []sources.SourceID) *PriorityList {
	p := &PriorityList{}
	p.order = append(p.order, order...)
	return p
}

// Replace swaps in a new order. Duplicates are legal though wasteful: a
// duplicated identifier causes the same configuration to be consulted twice,
// and that is preserved rather than collapsed.
func (p *PriorityList) Replace(order []sources.SourceID) error {
	if len(order) == 0 {
		return ErrEmptyOrder
	}
	for _, source := range order {
		if !sources.IsKnownSourceID(source) {
			return fmt.Errorf("%w: %s", ErrUnknownSource, source)
		}
	}

	next := make([]sources.SourceID, len(order))
	copy(next, order)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.order = next
	return nil
}

// List returns a copy of the current order.
func (p *PriorityList) List() []sources.SourceID {
	p.mu.RLock()
	defer p.mu.RUnlock()

	order := make([]sources.SourceID, len(p.order))
	copy(order, p.order)
	return order
}
