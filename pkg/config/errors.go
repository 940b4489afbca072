package config

import "errors"

var (
	// ErrNoInstruments indicates that no instruments are configured.
	ErrNoInstruments = errors.New("at least one instrument must be configured")
	// ErrSymbolRequired indicates that an instrument symbol is missing.
	ErrSymbolRequired = errors.New("instrument symbol must be specified")
	// ErrNoSourcesConfigured indicates an instrument without sources.
	ErrNoSourcesConfigured = errors.New("at least one source must be configured")
	// ErrUnknownSourceID indicates a source identifier outside the closed set.
	ErrUnknownSourceID = errors.New("unknown source identifier")
	// ErrDuplicateSource indicates the same source configured twice for one instrument.
	ErrDuplicateSource = errors.New("source configured twice for instrument")
	// ErrAdapterRequired indicates a source entry without an adapter reference.
	ErrAdapterRequired = errors.New("adapter reference must be specified")
	// ErrInvalidWeight indicates a weight above 10000 basis points.
	ErrInvalidWeight = errors.New("weight must be <= 10000 basis points")
	// ErrWeightSum indicates per-instrument weights that do not sum to 10000.
	ErrWeightSum = errors.New("instrument weights must sum to 10000 basis points")
	// ErrStalenessRequired indicates a source entry without a staleness bound.
	ErrStalenessRequired = errors.New("max_staleness must be specified")
	// ErrEmptyPriorityOrder indicates an empty priority order.
	ErrEmptyPriorityOrder = errors.New("priority_order must not be empty")
	// ErrInvalidLogLevel indicates that the log level is invalid.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat indicates that the log format is invalid.
	ErrInvalidLogFormat = errors.New("invalid log format")
)
