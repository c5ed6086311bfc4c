// Package memory provides an in-memory consent store for tests and
// single-process deployments.
package memory

import (
	"context"

	"github.com/justy6674/comply/model"
	"github.com/justy6674/comply/service/consent"
	"github.com/justy6674/comply/service/dao/store"
)

func recordKey(r *model.ConsentRecord) string { return r.SubjectID }

// Store holds consent records keyed by subject id.
type Store struct {
	records *store.MemoryStore[string, model.ConsentRecord]
}

var _ consent.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{records: store.NewMemoryStore[string, model.ConsentRecord](recordKey)}
}

// Put records or replaces a subject's consent.
func (s *Store) Put(ctx context.Context, record *model.ConsentRecord) error {
	return s.records.Save(ctx, record)
}

// Lookup returns the record for the subject, or nil when absent.
func (s *Store) Lookup(ctx context.Context, subjectID string) (*model.ConsentRecord, error) {
	return s.records.Load(ctx, subjectID)
}
