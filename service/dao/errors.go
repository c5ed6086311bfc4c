package dao

import "errors"

// Common, reusable DAO errors. Sentinel variables let callers detect error
// conditions via errors.Is instead of brittle string comparisons.

var (
	// ErrNotFound is returned when the requested entity does not exist in
	// the underlying storage.
	ErrNotFound = errors.New("dao: not found")

	// ErrInvalidID indicates that the supplied ID/key is empty or otherwise
	// invalid.
	ErrInvalidID = errors.New("dao: invalid id")

	// ErrNilEntity is returned when the caller attempts to persist a nil
	// pointer.
	ErrNilEntity = errors.New("dao: nil entity")

	// ErrStaleVersion is returned by stores with optimistic concurrency
	// control when the entity changed since the caller read it. The caller
	// re-reads and retries the whole transition.
	ErrStaleVersion = errors.New("dao: stale version")
)
