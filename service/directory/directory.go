// Package directory resolves available reviewers per approval level and
// practice. Reviewer rosters are owned by an external collaborator; the
// engine only asks who can take an assignment.
package directory

import (
	"context"
	"sync"

	"github.com/justy6674/comply/model"
)

// Service finds a reviewer able to act at the given level for the practice.
// An empty id with a nil error means nobody is available right now.
type Service interface {
	FindAvailable(ctx context.Context, level model.ApprovalLevel, practiceID string) (string, error)
}

// Reviewer is one roster entry in the in-memory directory.
type Reviewer struct {
	ID         string
	Level      model.ApprovalLevel
	PracticeID string // empty = any practice
	Available  bool
}

// Memory is a static roster with round-robin selection, sufficient for tests
// and single-process deployments.
type Memory struct {
	mu        sync.Mutex
	reviewers []*Reviewer
	next      int
}

var _ Service = (*Memory)(nil)

// NewMemory creates a roster from the supplied reviewers.
func NewMemory(reviewers ...*Reviewer) *Memory {
	return &Memory{reviewers: reviewers}
}

// Add appends a reviewer to the roster.
func (m *Memory) Add(reviewer *Reviewer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviewers = append(m.reviewers, reviewer)
}

// SetAvailable flips a reviewer's availability.
func (m *Memory) SetAvailable(id string, available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reviewers {
		if r.ID == id {
			r.Available = available
		}
	}
}

// FindAvailable returns the next available reviewer at the level for the
// practice, round-robin across calls.
func (m *Memory) FindAvailable(_ context.Context, level model.ApprovalLevel, practiceID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.reviewers)
	if n == 0 {
		return "", nil
	}
	for i := 0; i < n; i++ {
		r := m.reviewers[(m.next+i)%n]
		if !r.Available || r.Level != level {
			continue
		}
		if r.PracticeID != "" && practiceID != "" && r.PracticeID != practiceID {
			continue
		}
		m.next = (m.next + i + 1) % n
		return r.ID, nil
	}
	return "", nil
}
