package model

import "time"

// ConsentScope is the use a subject consented to.
type ConsentScope string

const (
	ScopeMarketing ConsentScope = "marketing"
	ScopeSocial    ConsentScope = "social"
	ScopeWeb       ConsentScope = "web"
)

// ConsentRecord captures a subject's consent grant for use of identifiable
// content. Records are owned by an external consent store; the engine only
// reads them.
type ConsentRecord struct {
	SubjectID      string         `json:"subjectId"`
	Scopes         []ConsentScope `json:"scopes"`
	GrantedAt      time.Time      `json:"grantedAt"`
	DurationMonths int            `json:"durationMonths"` // 0 = indefinite
	Withdrawn      bool           `json:"withdrawn,omitempty"`
	WithdrawnAt    *time.Time     `json:"withdrawnAt,omitempty"`
}

// Covers reports whether the grant includes the given scope.
func (c *ConsentRecord) Covers(scope ConsentScope) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// ExpiresAt returns the grant expiry, or the zero time when the grant is
// indefinite.
func (c *ConsentRecord) ExpiresAt() time.Time {
	if c.DurationMonths <= 0 {
		return time.Time{}
	}
	return c.GrantedAt.AddDate(0, c.DurationMonths, 0)
}

// ValidAt reports whether the grant is usable at the given time: not
// withdrawn and not past its duration.
func (c *ConsentRecord) ValidAt(at time.Time) bool {
	if c.Withdrawn {
		return false
	}
	if expiry := c.ExpiresAt(); !expiry.IsZero() && at.After(expiry) {
		return false
	}
	return true
}
