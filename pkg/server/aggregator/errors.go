package aggregator

import "errors"

var (
	// ErrInvalidWeight indicates a weight above 10000 basis points, or a
	// batch weight update whose weights do not sum to 10000.
	ErrInvalidWeight = errors.New("invalid weight")
	// ErrLengthMismatch indicates mismatched sources/weights array lengths.
	ErrLengthMismatch = errors.New("length mismatch")
	// ErrNotConfigured indicates an operation on a source that has no
	// configuration for the instrument.
	ErrNotConfigured = errors.New("source not configured")
	// ErrAllSourcesFailed indicates that fewer than the minimum number of
	// fresh sources survived filtering.
	ErrAllSourcesFailed = errors.New("all sources failed")
	// ErrAccessDenied indicates a mutating call without the required permission.
	ErrAccessDenied = errors.New("access denied")
	// ErrUnknownSource indicates a source identifier outside the closed set.
	ErrUnknownSource = errors.New("unknown source identifier")
	// ErrEmptyOrder indicates a priority order replacement with no entries.
	ErrEmptyOrder = errors.New("priority order must not be empty")
)
