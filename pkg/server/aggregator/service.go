package aggregator

import (
	"context"
	"fmt"
	"time"

	"tc.com/price-oracle/pkg/logging"
	"tc.com/price-oracle/pkg/server/sources"
)

// Service is the external interface of the aggregation engine: reads for any
// caller, mutations gated by the access controller.
type Service struct {
	engine   *Engine
	registry *Registry
	order    *PriorityList
	acl      AccessController
	params   Params
	logger   *logging.Logger
	now      func() time.Time

	// onRefresh, when set, is invoked after every successful cache refresh.
	onRefresh func(instrument string, agg AggregatedPrice)
}

// NewService creates the external service facade.
func NewService(engine *Engine, registry *Registry, order *PriorityList, acl AccessController, params Params, logger *logging.Logger) *Service {
	if acl == nil {
		acl = AllowAll{}
	}
	return &Service{
		engine:   engine,
		registry: registry,
		order:    order,
		acl:      acl,
		params:   params.withDefaults(),
		logger:   logger,
		now:      time.Now,
	}
}

// SetRefreshListener registers a callback invoked after successful refreshes.
func (s *Service) SetRefreshListener(fn func(instrument string, agg AggregatedPrice)) {
	s.onRefresh = fn
}

// GetPrice computes the live aggregate and returns it as a reading tagged
// with the synthetic aggregate source. It fails when the aggregate is
// invalid; there is no partial result.
func (s *Service) GetPrice(ctx context.Context, instrument string) (sources.PriceReading, error) {
	agg := s.engine.GetAggregate(ctx, instrument)
	if !agg.Valid {
		return sources.PriceReading{}, fmt.Errorf("%w: %s", ErrAllSourcesFailed, instrument)
	}

	return sources.PriceReading{
		Price:      agg.Price,
		Timestamp:  agg.Timestamp,
		Confidence: agg.Confidence,
		Source:     sources.SourceAggregatedSynthetic,
	}, nil
}

// IsValidPrice reports whether a reading is usable: non-zero price, non-zero
// timestamp and age within the default staleness bound.
func (s *Service) IsValidPrice(reading sources.PriceReading) bool {
	if reading.Price.IsZero() || reading.Timestamp.IsZero() {
		return false
	}
	return s.now().Sub(reading.Timestamp) <= s.params.DefaultStaleness
}

// IsPriceAvailable reports whether GetPrice would succeed, without raising a
// failure.
func (s *Service) IsPriceAvailable(ctx context.Context, instrument string) bool {
	return s.engine.GetAggregate(ctx, instrument).Valid
}

// GetAggregate exposes the full live aggregate.
func (s *Service) GetAggregate(ctx context.Context, instrument string) AggregatedPrice {
	return s.engine.GetAggregate(ctx, instrument)
}

// GetCachedValidity reports whether the cached aggregate is valid and fresh.
func (s *Service) GetCachedValidity(instrument string) bool {
	return s.engine.CachedValidity(instrument)
}

// GetConfig returns the configuration for (instrument, source); a zero value
// when absent.
func (s *Service) GetConfig(instrument string, source sources.SourceID) SourceConfig {
	return s.registry.GetConfig(instrument, source)
}

// PriorityOrder returns a copy of the current priority order.
func (s *Service) PriorityOrder() []sources.SourceID {
	return s.order.List()
}

// ConfigureOracle fully replaces the configuration for (instrument, source).
// Requires admin permission.
func (s *Service) ConfigureOracle(caller, instrument string, source sources.SourceID, adapterRef string, weightBPS uint32, maxStaleness time.Duration) error {
	if !s.acl.Allow(caller, PermAdmin) {
		return fmt.Errorf("%w: %s", ErrAccessDenied, caller)
	}
	if !sources.IsKnownSourceID(source) {
		return fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}

	if err := s.registry.Configure(instrument, source, adapterRef, weightBPS, maxStaleness); err != nil {
		return err
	}

	s.logger.Info("Configured source",
		"caller", caller, "instrument", instrument, "source", source,
		"adapter", adapterRef, "weight_bps", weightBPS, "max_staleness", maxStaleness)
	return nil
}

// UpdatePrice refreshes the cached aggregate. Requires operator permission.
func (s *Service) UpdatePrice(ctx context.Context, caller, instrument string) error {
	if !s.acl.Allow(caller, PermOperator) {
		return fmt.Errorf("%w: %s", ErrAccessDenied, caller)
	}

	agg, err := s.engine.Refresh(ctx, instrument)
	if err != nil {
		return err
	}

	if s.onRefresh != nil {
		s.onRefresh(instrument, agg)
	}
	return nil
}

// SetPriorityOrder replaces the global priority order wholesale. Requires
// admin permission.
func (s *Service) SetPriorityOrder(caller string, order []sources.SourceID) error {
	if !s.acl.Allow(caller, PermAdmin) {
		return fmt.Errorf("%w: %s", ErrAccessDenied, caller)
	}

	if err := s.order.Replace(order); err != nil {
		return err
	}

	s.logger.Info("Replaced priority order", "caller", caller, "order", order)
	return nil
}

// SetOracleActive toggles a source without touching the rest of its
// configuration. Requires operator permission.
func (s *Service) SetOracleActive(caller, instrument string, source sources.SourceID, active bool) error {
	if !s.acl.Allow(caller, PermOperator) {
		return fmt.Errorf("%w: %s", ErrAccessDenied, caller)
	}

	if err := s.registry.SetActive(instrument, source, active); err != nil {
		return err
	}

	s.logger.Info("Toggled source",
		"caller", caller, "instrument", instrument, "source", source, "active", active)
	return nil
}

// UpdateWeights replaces the weights of the given sources in one atomic
// batch. Requires admin permission.
func (s *Service) UpdateWeights(caller, instrument string, srcs []sources.SourceID, weights []uint32) error {
	if !s.acl.Allow(caller, PermAdmin) {
		return fmt.Errorf("%w: %s", ErrAccessDenied, caller)
	}

	if err := s.registry.UpdateWeights(instrument, srcs, weights); err != nil {
		return err
	}

	s.logger.Info("Updated weights",
		"caller", caller, "instrument", instrument, "sources", srcs, "weights", weights)
	return nil
}
