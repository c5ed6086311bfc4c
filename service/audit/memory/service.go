package memory

import (
	"context"
	"sync"
	"time"

	"github.com/justy6674/comply/model"
	"github.com/justy6674/comply/service/audit"
	"github.com/justy6674/comply/service/dao"
)

// Service is an in-memory append-only audit trail. Entries are kept in
// insertion order; queries return clones so the ledger can never be mutated
// through a result.
type Service struct {
	mu      sync.RWMutex
	entries []*model.AuditEntry
	byID    map[string]*model.AuditEntry
}

var _ audit.Service = (*Service)(nil)

// New creates an empty trail.
func New() *Service {
	return &Service{byID: map[string]*model.AuditEntry{}}
}

// Append records the entry. Appending an id that already exists is a no-op,
// making transition commits safely retryable.
func (s *Service) Append(_ context.Context, entry *model.AuditEntry) error {
	if entry == nil {
		return dao.ErrNilEntity
	}
	if entry.ID == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[entry.ID]; ok {
		return nil
	}
	stored := entry.Clone()
	s.entries = append(s.entries, stored)
	s.byID[stored.ID] = stored
	return nil
}

// QueryByRequest returns all entries for a request in append order.
func (s *Service) QueryByRequest(_ context.Context, requestID string) ([]*model.AuditEntry, error) {
	return s.query(func(e *model.AuditEntry) bool { return e.RequestID == requestID })
}

// QueryByContent returns all entries for a content id in append order.
func (s *Service) QueryByContent(_ context.Context, contentID string) ([]*model.AuditEntry, error) {
	return s.query(func(e *model.AuditEntry) bool { return e.ContentID == contentID })
}

// QueryByPractice returns all entries for a practice within the date range.
func (s *Service) QueryByPractice(_ context.Context, practiceID string, from, to time.Time) ([]*model.AuditEntry, error) {
	return s.query(func(e *model.AuditEntry) bool {
		return e.PracticeID == practiceID && audit.InRange(e, from, to)
	})
}

func (s *Service) query(match func(*model.AuditEntry) bool) ([]*model.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.AuditEntry
	for _, entry := range s.entries {
		if match(entry) {
			out = append(out, entry.Clone())
		}
	}
	return out, nil
}

// Size returns the number of recorded entries.
func (s *Service) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
