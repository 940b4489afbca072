package config

import (
	"fmt"
	"strings"

	"tc.com/price-oracle/pkg/server/sources"
)

// Validate checks configuration for errors
func Validate(cfg *Config) error {
	if len(cfg.Instruments) == 0 {
		return fmt.Errorf("%w", ErrNoInstruments)
	}

	for i, instrument := range cfg.Instruments {
		if err := validateInstrument(&instrument); err != nil {
			return fmt.Errorf("instrument %d (%s): %w", i, instrument.Symbol, err)
		}
	}

	if err := validatePriorityOrder(cfg.PriorityOrder); err != nil {
		return fmt.Errorf("priority_order: %w", err)
	}

	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func validateInstrument(cfg *InstrumentConfig) error {
	if cfg.Symbol == "" {
		return fmt.Errorf("%w", ErrSymbolRequired)
	}
	if len(cfg.Sources) == 0 {
		return fmt.Errorf("%w", ErrNoSourcesConfigured)
	}

	seen := make(map[string]bool, len(cfg.Sources))
	var weightSum uint64
	for i, entry := range cfg.Sources {
		if !sources.IsKnownSourceID(sources.SourceID(entry.Source)) {
			return fmt.Errorf("%w: source[%d] %q", ErrUnknownSourceID, i, entry.Source)
		}
		if seen[entry.Source] {
			return fmt.Errorf("%w: %s", ErrDuplicateSource, entry.Source)
		}
		seen[entry.Source] = true

		if entry.Adapter == "" {
			return fmt.Errorf("%w: source[%d] %s", ErrAdapterRequired, i, entry.Source)
		}
		if entry.WeightBPS > 10000 {
			return fmt.Errorf("%w: source[%d] %s has %d", ErrInvalidWeight, i, entry.Source, entry.WeightBPS)
		}
		if entry.MaxStaleness.ToDuration() <= 0 {
			return fmt.Errorf("%w: source[%d] %s", ErrStalenessRequired, i, entry.Source)
		}
		weightSum += uint64(entry.WeightBPS)
	}

	if weightSum != 10000 {
		return fmt.Errorf("%w: got %d", ErrWeightSum, weightSum)
	}

	return nil
}

func validatePriorityOrder(order []string) error {
	if len(order) == 0 {
		return fmt.Errorf("%w", ErrEmptyPriorityOrder)
	}
	for i, entry := range order {
		if !sources.IsKnownSourceID(sources.SourceID(entry)) {
			return fmt.Errorf("%w: entry %d %q", ErrUnknownSourceID, i, entry)
		}
	}
	return nil
}

func validateLoggingConfig(cfg *LoggingConfig) error {
	// Validate level
	validLevels := []string{"debug", "info", "warn", "error"}
	levelValid := false
	for _, l := range validLevels {
		if strings.ToLower(cfg.Level) == l {
			levelValid = true
			break
		}
	}
	if !levelValid {
		return fmt.Errorf("%w: %s (must be one of: %s)", ErrInvalidLogLevel, cfg.Level, strings.Join(validLevels, ", "))
	}

	// Validate format
	formatValid := strings.ToLower(cfg.Format) == "json" || strings.ToLower(cfg.Format) == "text"
	if !formatValid {
		return fmt.Errorf("%w: %s (must be 'json' or 'text')", ErrInvalidLogFormat, cfg.Format)
	}

	return nil
}
