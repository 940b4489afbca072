// Package sources provides price source adapter interfaces and implementations.
package sources

import "errors"

var (
	// ErrNoReading indicates that the feed has no reading for the instrument.
	ErrNoReading = errors.New("no reading available")
	// ErrInvalidValue indicates a non-positive or otherwise unusable feed value.
	ErrInvalidValue = errors.New("invalid feed value")
	// ErrUnknownAdapter indicates an adapter reference that is not registered.
	ErrUnknownAdapter = errors.New("unknown adapter")
	// ErrUnknownRound indicates a round lookup for a round that does not exist.
	ErrUnknownRound = errors.New("unknown round")
	// ErrFeedRequired indicates that a backing feed was not supplied.
	ErrFeedRequired = errors.New("backing feed is required")
	// ErrAggregateUnavailable indicates that no valid cached aggregate exists.
	ErrAggregateUnavailable = errors.New("cached aggregate unavailable")
)
