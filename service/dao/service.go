package dao

import (
	"context"
)

// Service is the generic persistence contract used by the engine. K is the
// key type (request IDs, audit-entry IDs) and T the stored entity.
// Implementations hand out copies so callers can never mutate stored state
// through a returned reference.
type Service[K comparable, T any] interface {
	// Save persists the entity. Stores that enforce optimistic concurrency
	// return ErrStaleVersion when the stored change number moved on since
	// the caller read the entity.
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	// List returns entities matching all supplied parameters; no parameters
	// means everything.
	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}
