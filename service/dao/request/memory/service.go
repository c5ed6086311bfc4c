package memory

import (
	"context"
	"sync"

	"github.com/justy6674/comply/model"
	"github.com/justy6674/comply/service/dao"
	"github.com/justy6674/comply/service/dao/criteria"
)

// Service implements in-memory approval-request storage with optimistic
// concurrency control. All operations are thread-safe and return copies of
// the underlying records to prevent data races when callers mutate the
// returned instances.
type Service struct {
	requests map[string]*model.ApprovalRequest
	mux      sync.RWMutex
}

// Compile-time check that Service implements the generic DAO interface.
var _ dao.Service[string, model.ApprovalRequest] = (*Service)(nil)

// New creates an empty store.
func New() *Service {
	return &Service{requests: map[string]*model.ApprovalRequest{}}
}

// Save persists (a clone of) the supplied request. The write succeeds only
// when the incoming SCN equals the stored SCN; the stored copy then advances
// its SCN by one. A first save requires SCN zero.
func (s *Service) Save(_ context.Context, r *model.ApprovalRequest) error {
	if r == nil {
		return dao.ErrNilEntity
	}
	if r.ID == "" {
		return dao.ErrInvalidID
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	if existing, ok := s.requests[r.ID]; ok {
		if existing.SCN != r.SCN {
			return dao.ErrStaleVersion
		}
	} else if r.SCN != 0 {
		return dao.ErrStaleVersion
	}

	stored := r.Clone()
	stored.SCN++
	s.requests[r.ID] = stored
	r.SCN = stored.SCN
	return nil
}

// Load retrieves a copy of the request or dao.ErrNotFound.
func (s *Service) Load(_ context.Context, id string) (*model.ApprovalRequest, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}

	s.mux.RLock()
	r, ok := s.requests[id]
	s.mux.RUnlock()

	if !ok {
		return nil, dao.ErrNotFound
	}
	return r.Clone(), nil
}

// Delete removes a request.
func (s *Service) Delete(_ context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	if _, ok := s.requests[id]; !ok {
		return dao.ErrNotFound
	}
	delete(s.requests, id)
	return nil
}

// List returns copies of all requests matching the supplied parameters.
// Supported parameter names: State, ContentID, PracticeID, AssigneeID and
// ApprovalLevel.
func (s *Service) List(_ context.Context, parameters ...*dao.Parameter) ([]*model.ApprovalRequest, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()

	out := make([]*model.ApprovalRequest, 0, len(s.requests))
	for _, r := range s.requests {
		if !criteria.Matches(parameters, requestField(r)) {
			continue
		}
		out = append(out, r.Clone())
	}
	return out, nil
}

func requestField(r *model.ApprovalRequest) func(name string) (string, bool) {
	return func(name string) (string, bool) {
		switch name {
		case "State":
			return string(r.State), true
		case "ContentID":
			return r.ContentID, true
		case "PracticeID":
			return r.PracticeID, true
		case "AssigneeID":
			return r.AssigneeID, true
		case "ApprovalLevel":
			return string(r.ApprovalLevel), true
		}
		return "", false
	}
}
