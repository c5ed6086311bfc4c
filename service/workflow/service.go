// Package workflow manages the approval lifecycle of content: submission,
// exclusive reviewer assignment, decisions, versioned resubmission,
// SLA-driven escalation, publish confirmation and expiry.
//
// Transitions on a request are linearized through optimistic versioning: the
// caller commits with the change number it read and a stale write surfaces
// as a ConflictError. Every committed transition appends exactly one audit
// entry in the same logical operation.
package workflow

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/justy6674/comply/internal/clock"
	"github.com/justy6674/comply/internal/idgen"
	"github.com/justy6674/comply/model"
	"github.com/justy6674/comply/policy"
	"github.com/justy6674/comply/service/audit"
	"github.com/justy6674/comply/service/consent"
	"github.com/justy6674/comply/service/dao"
	"github.com/justy6674/comply/service/directory"
	"github.com/justy6674/comply/service/notify"
	"github.com/justy6674/comply/tracing"
)

// Service is the approval workflow state machine.
type Service struct {
	config    Config
	requests  dao.Service[string, model.ApprovalRequest]
	audit     audit.Service
	directory directory.Service
	ledger    *consent.Ledger
	evaluator Evaluator
	notifier  notify.Sink
	now       func() time.Time

	// submitMu serializes the duplicate-active check with the initial save:
	// two fresh submissions carry distinct request ids, so the per-request
	// change number cannot arbitrate between them.
	submitMu sync.Mutex
}

// Option configures the workflow service.
type Option func(*Service)

// WithDirectory attaches a reviewer directory used to reassign escalated
// requests.
func WithDirectory(d directory.Service) Option {
	return func(s *Service) { s.directory = d }
}

// WithConsentLedger attaches the consent ledger so submissions with an
// identifiable subject and no valid consent are rejected up front.
func WithConsentLedger(l *consent.Ledger) Option {
	return func(s *Service) { s.ledger = l }
}

// WithEvaluator attaches the evaluator used to re-score resubmitted content.
func WithEvaluator(e Evaluator) Option {
	return func(s *Service) { s.evaluator = e }
}

// WithNotifier attaches a fire-and-forget notification sink.
func WithNotifier(n notify.Sink) Option {
	return func(s *Service) { s.notifier = n }
}

// WithConfig overrides the default configuration.
func WithConfig(config Config) Option {
	return func(s *Service) { s.config = config }
}

// WithClock overrides the workflow clock for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a workflow service over the supplied request store and audit
// trail.
func New(requests dao.Service[string, model.ApprovalRequest], auditTrail audit.Service, options ...Option) *Service {
	ret := &Service{
		config:   DefaultConfig(),
		requests: requests,
		audit:    auditTrail,
		notifier: notify.Nop{},
		now:      clock.Now,
	}
	for _, option := range options {
		option(ret)
	}
	if ret.now == nil {
		ret.now = clock.Now
	}
	if ret.notifier == nil {
		ret.notifier = notify.Nop{}
	}
	return ret
}

// Submit enters a content item into the workflow with its compliance report.
// A submission with an already-active (non-terminal) request for the same
// content id is rejected with a ConflictError; a submission whose
// identifiable subject lacks valid consent is rejected with a
// ValidationError before any state is created.
func (s *Service) Submit(ctx context.Context, item *model.ContentItem, report *model.ComplianceReport, actorID string) (*model.ApprovalRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.submit")
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	if item == nil || item.ID == "" {
		err = &ValidationError{Field: "content.id", Reason: "content item with an id is required"}
		return nil, err
	}
	if report == nil {
		err = &ValidationError{Field: "report", Reason: "a compliance report is required to submit"}
		return nil, err
	}
	if p := policy.FromContext(ctx); !p.Accepts(ctx, string(item.ContentType), item.PracticeID) {
		err = &ValidationError{Field: "contentType", Reason: "submission blocked by policy"}
		return nil, err
	}

	now := s.now()
	if s.ledger != nil && item.Subject != nil && item.Subject.Identifiable {
		if ok, reason := s.ledger.IsConsentValid(ctx, item, now); !ok {
			err = &ValidationError{Field: "consent", Reason: reason}
			return nil, err
		}
	}

	var request *model.ApprovalRequest
	if request, err = s.create(ctx, item, report, actorID, now); err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, s.event(notify.KindSubmitted, request, actorID))

	// Critical-risk content skips straight past junior review.
	if report.RiskLevel == model.RiskCritical {
		if escalated, escErr := s.escalate(ctx, request, model.ReasonCriticalRisk, SystemActor); escErr == nil {
			request = escalated
		} else if !errors.Is(escErr, ErrMaxLevel) {
			err = escErr
			return nil, err
		}
	}

	return request, nil
}

// create runs the duplicate-active check and the initial save under
// submitMu so concurrent submissions for one content id admit exactly one
// request.
func (s *Service) create(ctx context.Context, item *model.ContentItem, report *model.ComplianceReport, actorID string, now time.Time) (*model.ApprovalRequest, error) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	active, err := s.requests.List(ctx, dao.NewParameter("ContentID", item.ID))
	if err != nil {
		return nil, err
	}
	for _, existing := range active {
		if !existing.State.Terminal() {
			return nil, &ConflictError{RequestID: existing.ID, Reason: "content already has an active approval request"}
		}
	}

	request := &model.ApprovalRequest{
		ID:            idgen.New(),
		ContentID:     item.ID,
		PracticeID:    item.PracticeID,
		Version:       1,
		State:         model.StateSubmitted,
		ApprovalLevel: model.LevelJuniorReview,
		Content:       item.Clone(),
		Report:        report.Clone(),
		SubmittedAt:   now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	deadline := now.Add(s.config.SLA[request.ApprovalLevel])
	request.SLADeadlineAt = &deadline

	entry := s.newEntry(request, actorID, model.AuditSubmitted, "")
	entry.BeforeState = model.StateDraft
	entry.ComplianceSnapshot = report.Clone()
	if err := s.commit(ctx, request, entry); err != nil {
		return nil, err
	}
	return request, nil
}

// Claim exclusively assigns a submitted request to a reviewer. Exactly one
// of two concurrent claims succeeds; the loser receives a ConflictError and
// the request ends up with a single assignee.
func (s *Service) Claim(ctx context.Context, requestID, reviewerID string) (*model.ApprovalRequest, error) {
	if reviewerID == "" {
		return nil, &ValidationError{Field: "reviewerId", Reason: "reviewer id is required"}
	}
	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}

	switch request.State {
	case model.StateSubmitted:
	case model.StateUnderReview:
		return nil, &ConflictError{RequestID: requestID, Reason: "request is already claimed by " + request.AssigneeID}
	default:
		return nil, &InvalidTransitionError{RequestID: requestID, From: request.State, Action: "claim"}
	}

	now := s.now()
	before := request.State
	request.State = model.StateUnderReview
	request.AssigneeID = reviewerID
	request.ClaimedAt = &now

	entry := s.newEntry(request, reviewerID, model.AuditClaimed, "")
	entry.BeforeState = before
	if err := s.commit(ctx, request, entry); err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, s.event(notify.KindClaimed, request, reviewerID))
	return request, nil
}

// Release hands a claimed request back to the queue without a decision.
func (s *Service) Release(ctx context.Context, requestID, reviewerID string) (*model.ApprovalRequest, error) {
	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.State != model.StateUnderReview {
		return nil, &InvalidTransitionError{RequestID: requestID, From: request.State, Action: "release"}
	}
	if request.AssigneeID != reviewerID {
		return nil, &ConflictError{RequestID: requestID, Reason: "request is assigned to " + request.AssigneeID}
	}

	before := request.State
	request.State = model.StateSubmitted
	request.AssigneeID = ""
	request.ClaimedAt = nil

	entry := s.newEntry(request, reviewerID, model.AuditReleased, "")
	entry.BeforeState = before
	if err := s.commit(ctx, request, entry); err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, s.event(notify.KindReleased, request, reviewerID))
	return request, nil
}

// Decide records the assignee's verdict on a request under review. Reviewer
// scores are stored verbatim, independent of the submission report. Deciding
// from any other state returns an InvalidTransitionError and leaves the
// request unchanged.
func (s *Service) Decide(ctx context.Context, requestID, reviewerID string, outcome model.DecisionOutcome, notes string, scores map[string]int) (*model.ApprovalRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.decide")
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	var request *model.ApprovalRequest
	if request, err = s.load(ctx, requestID); err != nil {
		return nil, err
	}
	if request.State != model.StateUnderReview {
		err = &InvalidTransitionError{RequestID: requestID, From: request.State, Action: "decide"}
		return nil, err
	}
	if request.AssigneeID != reviewerID {
		err = &ConflictError{RequestID: requestID, Reason: "request is assigned to " + request.AssigneeID}
		return nil, err
	}

	now := s.now()
	before := request.State
	switch outcome {
	case model.OutcomeApproved:
		request.State = model.StateApproved
		publishBy := now.Add(s.config.PublishDeadline)
		request.DeadlineAt = &publishBy
	case model.OutcomeRejected:
		request.State = model.StateRejected
	case model.OutcomeRequiresChanges:
		request.State = model.StateRequiresChanges
	default:
		err = &ValidationError{Field: "outcome", Reason: "unknown decision outcome"}
		return nil, err
	}

	decision := &model.Decision{
		ReviewerID: reviewerID,
		Outcome:    outcome,
		Notes:      notes,
		DecidedAt:  now,
	}
	if len(scores) > 0 {
		decision.Scores = make(map[string]int, len(scores))
		for k, v := range scores {
			decision.Scores[k] = v
		}
	}
	request.Decision = decision
	request.DecidedAt = &now
	request.SLADeadlineAt = nil

	entry := s.newEntry(request, reviewerID, model.AuditDecided, string(outcome))
	entry.BeforeState = before
	if err = s.commit(ctx, request, entry); err != nil {
		return nil, err
	}
	decidedEvent := s.event(notify.KindDecided, request, reviewerID)
	decidedEvent.Meta = map[string]string{"outcome": string(outcome)}
	s.notifier.Notify(ctx, decidedEvent)
	return request, nil
}

// Resubmit replaces the content of a request sent back for changes. The
// prior version and its report are archived together with a diff, the
// version strictly increases, the assignee is cleared and the content is
// re-scored.
func (s *Service) Resubmit(ctx context.Context, requestID string, newItem *model.ContentItem, actorID string) (*model.ApprovalRequest, error) {
	if newItem == nil {
		return nil, &ValidationError{Field: "content", Reason: "replacement content is required"}
	}
	if s.evaluator == nil {
		return nil, &ValidationError{Field: "evaluator", Reason: "no evaluator configured for resubmission"}
	}
	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.State != model.StateRequiresChanges {
		return nil, &InvalidTransitionError{RequestID: requestID, From: request.State, Action: "resubmit"}
	}
	if newItem.ID != "" && newItem.ID != request.ContentID {
		return nil, &ValidationError{Field: "content.id", Reason: "replacement content belongs to a different content id"}
	}

	now := s.now()
	report := s.evaluator.EvaluateContent(ctx, newItem)

	request.History = append(request.History, &model.RequestVersion{
		Version:    request.Version,
		Body:       request.Content.Body,
		Report:     request.Report,
		Diff:       bodyDiff(request.Content.Body, newItem.Body, request.Version),
		ArchivedAt: now,
	})

	before := request.State
	request.Version++
	request.Content = newItem.Clone()
	request.Report = report.Clone()
	request.State = model.StateSubmitted
	request.AssigneeID = ""
	request.ClaimedAt = nil
	request.Decision = nil
	request.DecidedAt = nil
	request.SubmittedAt = now
	deadline := now.Add(s.config.SLA[request.ApprovalLevel])
	request.SLADeadlineAt = &deadline

	entry := s.newEntry(request, actorID, model.AuditResubmitted, "")
	entry.BeforeState = before
	entry.ComplianceSnapshot = report.Clone()
	if err := s.commit(ctx, request, entry); err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, s.event(notify.KindResubmitted, request, actorID))

	if report.RiskLevel == model.RiskCritical {
		if escalated, escErr := s.escalate(ctx, request, model.ReasonCriticalRisk, SystemActor); escErr == nil {
			request = escalated
		} else if !errors.Is(escErr, ErrMaxLevel) {
			return nil, escErr
		}
	}

	return request, nil
}

// Escalate raises the request's approval level and resets its SLA deadline.
// An in-flight claim is superseded: the request returns to the submitted
// queue unless the reviewer directory assigns a reviewer at the new level,
// in which case it moves straight back under review. Version and compliance
// report are untouched. Invoked by the sweep on SLA breach and available for
// manual use.
func (s *Service) Escalate(ctx context.Context, requestID, reason, actorID string) (*model.ApprovalRequest, error) {
	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.State.Terminal() {
		return nil, &InvalidTransitionError{RequestID: requestID, From: request.State, Action: "escalate"}
	}
	return s.escalate(ctx, request, reason, actorID)
}

func (s *Service) escalate(ctx context.Context, request *model.ApprovalRequest, reason, actorID string) (*model.ApprovalRequest, error) {
	next, ok := request.ApprovalLevel.Next()
	if !ok {
		return request, ErrMaxLevel
	}

	now := s.now()
	fromLevel := request.ApprovalLevel
	beforeState := request.State
	request.ApprovalLevel = next
	request.Escalations = append(request.Escalations, &model.Escalation{
		FromLevel: fromLevel,
		ToLevel:   next,
		Reason:    reason,
		At:        now,
	})
	deadline := now.Add(s.config.SLA[next])
	request.SLADeadlineAt = &deadline

	// Any in-flight claim is superseded: either a reviewer at the new level
	// takes over directly, or the request returns to the queue.
	request.AssigneeID = ""
	request.ClaimedAt = nil
	request.State = model.StateSubmitted
	if s.directory != nil {
		if assignee, err := s.directory.FindAvailable(ctx, next, request.PracticeID); err == nil && assignee != "" {
			request.AssigneeID = assignee
			request.ClaimedAt = &now
			request.State = model.StateUnderReview
		}
	}

	entry := s.newEntry(request, actorID, model.AuditEscalated, reason)
	entry.BeforeState = beforeState
	entry.BeforeLevel = fromLevel
	if err := s.commit(ctx, request, entry); err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, s.event(notify.KindEscalated, request, actorID))
	return request, nil
}

// ConfirmPublish transitions an approved request to published in response to
// an external publish confirmation.
func (s *Service) ConfirmPublish(ctx context.Context, requestID string, publishedAt time.Time) (*model.ApprovalRequest, error) {
	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.State != model.StateApproved {
		return nil, &InvalidTransitionError{RequestID: requestID, From: request.State, Action: "publish"}
	}

	before := request.State
	request.State = model.StatePublished
	request.DeadlineAt = nil

	entry := s.newEntry(request, SystemActor, model.AuditPublished, "")
	entry.BeforeState = before
	if err := s.commit(ctx, request, entry); err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, s.event(notify.KindPublished, request, SystemActor))
	return request, nil
}

// expire transitions an approved request whose publish deadline elapsed.
func (s *Service) expire(ctx context.Context, request *model.ApprovalRequest) (*model.ApprovalRequest, error) {
	before := request.State
	request.State = model.StateExpired

	entry := s.newEntry(request, SystemActor, model.AuditExpired, "publish_deadline_elapsed")
	entry.BeforeState = before
	if err := s.commit(ctx, request, entry); err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, s.event(notify.KindExpired, request, SystemActor))
	return request, nil
}

// Get returns the request by id.
func (s *Service) Get(ctx context.Context, requestID string) (*model.ApprovalRequest, error) {
	return s.load(ctx, requestID)
}

// GetQueue lists requests matching the filter, oldest submission first.
func (s *Service) GetQueue(ctx context.Context, filter Filter) ([]*model.ApprovalRequest, error) {
	var parameters []*dao.Parameter
	if len(filter.States) > 0 {
		states := make([]string, 0, len(filter.States))
		for _, state := range filter.States {
			states = append(states, string(state))
		}
		parameters = append(parameters, dao.NewParameter("State", states...))
	}
	if filter.PracticeID != "" {
		parameters = append(parameters, dao.NewParameter("PracticeID", filter.PracticeID))
	}
	if filter.AssigneeID != "" {
		parameters = append(parameters, dao.NewParameter("AssigneeID", filter.AssigneeID))
	}
	if filter.Level != "" {
		parameters = append(parameters, dao.NewParameter("ApprovalLevel", string(filter.Level)))
	}
	if filter.ContentID != "" {
		parameters = append(parameters, dao.NewParameter("ContentID", filter.ContentID))
	}

	requests, err := s.requests.List(ctx, parameters...)
	if err != nil {
		return nil, err
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].SubmittedAt.Before(requests[j].SubmittedAt)
	})
	return requests, nil
}

// AuditTrail returns the full audit history for a content id.
func (s *Service) AuditTrail(ctx context.Context, contentID string) ([]*model.AuditEntry, error) {
	return s.audit.QueryByContent(ctx, contentID)
}

func (s *Service) load(ctx context.Context, requestID string) (*model.ApprovalRequest, error) {
	if requestID == "" {
		return nil, &ValidationError{Field: "requestId", Reason: "request id is required"}
	}
	request, err := s.requests.Load(ctx, requestID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return nil, &NotFoundError{Kind: "request", ID: requestID}
		}
		return nil, err
	}
	return request, nil
}

// commit persists the transition and appends its audit entry in one logical
// operation. A stale change number surfaces as a ConflictError; the audit
// append is idempotent by entry id so the pair is safely retryable.
func (s *Service) commit(ctx context.Context, request *model.ApprovalRequest, entry *model.AuditEntry) error {
	request.UpdatedAt = s.now()
	if err := s.requests.Save(ctx, request); err != nil {
		if errors.Is(err, dao.ErrStaleVersion) {
			return &ConflictError{RequestID: request.ID, Reason: "request changed concurrently, re-read and retry"}
		}
		return err
	}
	return s.audit.Append(ctx, entry)
}

// newEntry builds an audit entry reflecting the request's post-transition
// state; callers adjust BeforeState/BeforeLevel as needed.
func (s *Service) newEntry(request *model.ApprovalRequest, actorID string, action model.AuditAction, reason string) *model.AuditEntry {
	return &model.AuditEntry{
		ID:          idgen.New(),
		RequestID:   request.ID,
		ContentID:   request.ContentID,
		PracticeID:  request.PracticeID,
		ActorID:     actorID,
		Action:      action,
		Reason:      reason,
		BeforeState: request.State,
		AfterState:  request.State,
		BeforeLevel: request.ApprovalLevel,
		AfterLevel:  request.ApprovalLevel,
		Version:     request.Version,
		CreatedAt:   s.now(),
	}
}

func (s *Service) event(kind string, request *model.ApprovalRequest, actorID string) *notify.Event {
	return &notify.Event{
		Kind:       kind,
		RequestID:  request.ID,
		ContentID:  request.ContentID,
		PracticeID: request.PracticeID,
		ActorID:    actorID,
		At:         s.now(),
	}
}
