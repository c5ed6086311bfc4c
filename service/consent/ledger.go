// Package consent tracks subject consent scope, duration and withdrawal for
// sensitive content. The ledger is read-only from the engine's perspective:
// grants and withdrawals are recorded by an external collaborator, the
// evaluator only asks whether use is permitted.
package consent

import (
	"context"
	"fmt"
	"time"

	"github.com/justy6674/comply/model"
)

// Store looks up the consent record for a subject. A nil record with a nil
// error means no consent is on file.
type Store interface {
	Lookup(ctx context.Context, subjectID string) (*model.ConsentRecord, error)
}

// Ledger answers consent-validity questions for content items.
type Ledger struct {
	store Store
}

// New creates a ledger over the supplied store.
func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// requiredScope maps a content type to the consent scope its publication
// requires.
func requiredScope(contentType model.ContentType) model.ConsentScope {
	switch contentType {
	case model.ContentTypeSocialPost:
		return model.ScopeSocial
	case model.ContentTypeDevicePromotion:
		return model.ScopeMarketing
	default:
		return model.ScopeWeb
	}
}

// IsConsentValid reports whether the content item's identifiable subject has
// a usable consent grant at the given time. Content without an identifiable
// subject is always valid. The reason explains a false result.
func (l *Ledger) IsConsentValid(ctx context.Context, item *model.ContentItem, at time.Time) (bool, string) {
	if item == nil || item.Subject == nil || !item.Subject.Identifiable {
		return true, ""
	}
	if item.Subject.SubjectID == "" {
		return false, "identifiable subject has no subject id"
	}
	if l == nil || l.store == nil {
		return false, "no consent store configured"
	}

	record, err := l.store.Lookup(ctx, item.Subject.SubjectID)
	if err != nil {
		return false, fmt.Sprintf("consent lookup failed: %v", err)
	}
	if record == nil {
		return false, "no consent on record"
	}
	if record.Withdrawn {
		return false, "consent withdrawn"
	}
	scope := requiredScope(item.ContentType)
	if !record.Covers(scope) {
		return false, fmt.Sprintf("consent does not cover %s use", scope)
	}
	if expiry := record.ExpiresAt(); !expiry.IsZero() && at.After(expiry) {
		return false, fmt.Sprintf("consent expired on %s", expiry.Format("2006-01-02"))
	}
	return true, ""
}
