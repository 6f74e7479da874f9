package util

import "errors"

// Sentinel errors for the failure kinds that cross package boundaries
var (
	// ErrNotFound indicates a requested path or entity does not exist.
	// This is the only kind surfaced to callers of the library service.
	ErrNotFound = errors.New("not found")

	// ErrTagRead indicates unreadable or malformed media tags
	ErrTagRead = errors.New("tag read failed")

	// ErrExternalFetch indicates the online artwork source failed
	ErrExternalFetch = errors.New("external fetch failed")

	// ErrStaleReference indicates a delete was blocked by rows still
	// referencing the target (an ordering bug in reconciliation)
	ErrStaleReference = errors.New("stale reference")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)
