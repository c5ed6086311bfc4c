package model

import "time"

// AuditAction names the workflow transition an audit entry records.
type AuditAction string

const (
	AuditSubmitted        AuditAction = "submitted"
	AuditClaimed          AuditAction = "claimed"
	AuditReleased         AuditAction = "released"
	AuditDecided          AuditAction = "decided"
	AuditResubmitted      AuditAction = "resubmitted"
	AuditEscalated        AuditAction = "escalated"
	AuditDeadlineExtended AuditAction = "deadline_extended"
	AuditPublished        AuditAction = "published"
	AuditExpired          AuditAction = "expired"
)

// Escalation reasons recorded on audit entries.
const (
	ReasonSLABreach    = "sla_breach"
	ReasonCriticalRisk = "critical_risk"
	ReasonManual       = "manual"
)

// AuditEntry is one immutable record in the approval audit trail. Entries are
// appended in the same logical operation as the state change they describe
// and are never mutated or deleted.
type AuditEntry struct {
	ID         string      `json:"id"`
	RequestID  string      `json:"requestId"`
	ContentID  string      `json:"contentId"`
	PracticeID string      `json:"practiceId,omitempty"`
	ActorID    string      `json:"actorId"`
	Action     AuditAction `json:"action"`
	Reason     string      `json:"reason,omitempty"`

	BeforeState State `json:"beforeState"`
	AfterState  State `json:"afterState"`

	BeforeLevel ApprovalLevel `json:"beforeLevel,omitempty"`
	AfterLevel  ApprovalLevel `json:"afterLevel,omitempty"`

	// Version is the content version the entry applies to.
	Version int `json:"version"`

	// ComplianceSnapshot freezes the report that accompanied the transition.
	ComplianceSnapshot *ComplianceReport `json:"complianceSnapshot,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// Clone returns a deep copy of the entry.
func (e *AuditEntry) Clone() *AuditEntry {
	if e == nil {
		return nil
	}
	clone := *e
	clone.ComplianceSnapshot = e.ComplianceSnapshot.Clone()
	return &clone
}
