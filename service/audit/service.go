// Package audit defines the append-only trail of workflow transitions.
// Every state change appends exactly one entry in the same logical operation
// and entries are never mutated or deleted.
package audit

import (
	"context"
	"time"

	"github.com/justy6674/comply/model"
)

// Service is the audit-trail contract. Append is idempotent by entry id so a
// retried transition commit can never duplicate its record.
type Service interface {
	Append(ctx context.Context, entry *model.AuditEntry) error

	QueryByRequest(ctx context.Context, requestID string) ([]*model.AuditEntry, error)

	QueryByContent(ctx context.Context, contentID string) ([]*model.AuditEntry, error)

	// QueryByPractice returns entries for a practice within [from, to];
	// zero bounds are open-ended.
	QueryByPractice(ctx context.Context, practiceID string, from, to time.Time) ([]*model.AuditEntry, error)
}

// InRange reports whether the entry falls within the supplied bounds.
func InRange(entry *model.AuditEntry, from, to time.Time) bool {
	if !from.IsZero() && entry.CreatedAt.Before(from) {
		return false
	}
	if !to.IsZero() && entry.CreatedAt.After(to) {
		return false
	}
	return true
}
