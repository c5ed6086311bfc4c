package model

import "time"

// State is the lifecycle state of an approval request.
type State string

const (
	StateDraft           State = "draft"
	StateSubmitted       State = "submitted"
	StateUnderReview     State = "underReview"
	StateRequiresChanges State = "requiresChanges"
	StateApproved        State = "approved"
	StateRejected        State = "rejected"
	StatePublished       State = "published"
	StateExpired         State = "expired"
)

// Terminal reports whether the state admits no further transitions.
// A rejected request can only be superseded by a fresh request lineage.
func (s State) Terminal() bool {
	return s == StatePublished || s == StateRejected || s == StateExpired
}

// ApprovalLevel is the reviewer tier a request currently requires.
type ApprovalLevel string

const (
	LevelJuniorReview    ApprovalLevel = "junior_review"
	LevelSeniorReview    ApprovalLevel = "senior_review"
	LevelManagerApproval ApprovalLevel = "manager_approval"
)

// Next returns the level above the receiver; ok is false at the top tier.
func (l ApprovalLevel) Next() (next ApprovalLevel, ok bool) {
	switch l {
	case LevelJuniorReview:
		return LevelSeniorReview, true
	case LevelSeniorReview:
		return LevelManagerApproval, true
	}
	return l, false
}

// DecisionOutcome is a reviewer's verdict on a request under review.
type DecisionOutcome string

const (
	OutcomeApproved        DecisionOutcome = "approved"
	OutcomeRejected        DecisionOutcome = "rejected"
	OutcomeRequiresChanges DecisionOutcome = "requires_changes"
)

// Decision records a reviewer verdict. Scores are the reviewer's own
// re-scoring keyed by category and are kept verbatim, independent of the
// submission compliance report.
type Decision struct {
	ReviewerID string          `json:"reviewerId"`
	Outcome    DecisionOutcome `json:"outcome"`
	Notes      string          `json:"notes,omitempty"`
	Scores     map[string]int  `json:"scores,omitempty"`
	DecidedAt  time.Time       `json:"decidedAt"`
}

// RequestVersion archives a superseded content version together with the
// report that evaluated it and a unified diff against the previous body.
type RequestVersion struct {
	Version    int               `json:"version"`
	Body       string            `json:"body"`
	Report     *ComplianceReport `json:"report,omitempty"`
	Diff       string            `json:"diff,omitempty"`
	ArchivedAt time.Time         `json:"archivedAt"`
}

// Escalation records one approval-level raise on a request.
type Escalation struct {
	FromLevel ApprovalLevel `json:"fromLevel"`
	ToLevel   ApprovalLevel `json:"toLevel"`
	Reason    string        `json:"reason"`
	At        time.Time     `json:"at"`
}

// ApprovalRequest is the mutable workflow record for one content item.
// Transitions are linearized via SCN: a caller commits with the SCN it read
// and the store rejects the write when the stored SCN moved on.
type ApprovalRequest struct {
	ID         string `json:"id"`
	ContentID  string `json:"contentId"`
	PracticeID string `json:"practiceId,omitempty"`

	// SCN is the system change number incremented on every committed
	// transition; it backs optimistic concurrency control.
	SCN int `json:"scn"`

	// Version counts content revisions and strictly increases on every
	// resubmission.
	Version int `json:"version"`

	State         State         `json:"state"`
	ApprovalLevel ApprovalLevel `json:"approvalLevel"`
	AssigneeID    string        `json:"assigneeId,omitempty"`

	Content *ContentItem      `json:"content"`
	Report  *ComplianceReport `json:"report"`

	Decision    *Decision         `json:"decision,omitempty"`
	History     []*RequestVersion `json:"history,omitempty"`
	Escalations []*Escalation     `json:"escalations,omitempty"`

	SubmittedAt time.Time  `json:"submittedAt"`
	ClaimedAt   *time.Time `json:"claimedAt,omitempty"`
	DecidedAt   *time.Time `json:"decidedAt,omitempty"`

	// SLADeadlineAt is when the current approval level must have acted
	// before the sweep escalates the request.
	SLADeadlineAt *time.Time `json:"slaDeadlineAt,omitempty"`

	// DeadlineAt is the publish-by deadline set on approval; when it
	// elapses without a publish confirmation the request expires.
	DeadlineAt *time.Time `json:"deadlineAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy so the stored instance can never be mutated
// through a handed-out reference.
func (r *ApprovalRequest) Clone() *ApprovalRequest {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Content = r.Content.Clone()
	clone.Report = r.Report.Clone()
	if r.Decision != nil {
		d := *r.Decision
		if len(r.Decision.Scores) > 0 {
			d.Scores = make(map[string]int, len(r.Decision.Scores))
			for k, v := range r.Decision.Scores {
				d.Scores[k] = v
			}
		}
		clone.Decision = &d
	}
	if len(r.History) > 0 {
		clone.History = make([]*RequestVersion, len(r.History))
		for i, v := range r.History {
			h := *v
			h.Report = v.Report.Clone()
			clone.History[i] = &h
		}
	}
	if len(r.Escalations) > 0 {
		clone.Escalations = make([]*Escalation, len(r.Escalations))
		for i, e := range r.Escalations {
			esc := *e
			clone.Escalations[i] = &esc
		}
	}
	if r.ClaimedAt != nil {
		t := *r.ClaimedAt
		clone.ClaimedAt = &t
	}
	if r.DecidedAt != nil {
		t := *r.DecidedAt
		clone.DecidedAt = &t
	}
	if r.SLADeadlineAt != nil {
		t := *r.SLADeadlineAt
		clone.SLADeadlineAt = &t
	}
	if r.DeadlineAt != nil {
		t := *r.DeadlineAt
		clone.DeadlineAt = &t
	}
	return &clone
}
