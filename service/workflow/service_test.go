package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justy6674/comply/model"
	"github.com/justy6674/comply/policy"
	amemory "github.com/justy6674/comply/service/audit/memory"
	"github.com/justy6674/comply/service/dao"
	rmemory "github.com/justy6674/comply/service/dao/request/memory"
	"github.com/justy6674/comply/service/directory"
)

var testStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// testClock is a manually advanced clock shared by a test's service and
// assertions.
type testClock struct {
	mu sync.Mutex
	at time.Time
}

func newTestClock() *testClock { return &testClock{at: testStart} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = c.at.Add(d)
}

type stubEvaluator struct {
	report *model.ComplianceReport
}

func (s *stubEvaluator) EvaluateContent(_ context.Context, item *model.ContentItem) *model.ComplianceReport {
	report := s.report.Clone()
	report.ContentID = item.ID
	return report
}

func lowRiskReport(contentID string) *model.ComplianceReport {
	return &model.ComplianceReport{
		ContentID: contentID,
		Score:     100,
		RiskLevel: model.RiskLow,
	}
}

func testItem(id string) *model.ContentItem {
	return &model.ContentItem{
		ID:          id,
		PracticeID:  "practice-1",
		AuthorID:    "author-1",
		Body:        "Meet our new whitening service.",
		ContentType: model.ContentTypeSocialPost,
	}
}

func newTestService(t *testing.T, options ...Option) (*Service, *amemory.Service, *testClock) {
	t.Helper()
	clk := newTestClock()
	auditTrail := amemory.New()
	options = append([]Option{
		WithClock(clk.Now),
		WithEvaluator(&stubEvaluator{report: lowRiskReport("")}),
	}, options...)
	svc := New(rmemory.New(), auditTrail, options...)
	return svc, auditTrail, clk
}

func TestLifecycleSubmitClaimDecidePublish(t *testing.T) {
	svc, auditTrail, _ := newTestService(t)
	ctx := context.Background()
	item := testItem("content-1")

	request, err := svc.Submit(ctx, item, lowRiskReport(item.ID), "author-1")
	require.NoError(t, err)
	assert.Equal(t, model.StateSubmitted, request.State)
	assert.Equal(t, model.LevelJuniorReview, request.ApprovalLevel)
	assert.Equal(t, 1, request.Version)
	require.NotNil(t, request.SLADeadlineAt)
	assert.Equal(t, testStart.Add(24*time.Hour), *request.SLADeadlineAt)

	claimed, err := svc.Claim(ctx, request.ID, "reviewer-1")
	require.NoError(t, err)
	assert.Equal(t, model.StateUnderReview, claimed.State)
	assert.Equal(t, "reviewer-1", claimed.AssigneeID)

	decided, err := svc.Decide(ctx, request.ID, "reviewer-1", model.OutcomeApproved, "looks fine",
		map[string]int{"tone": 90})
	require.NoError(t, err)
	assert.Equal(t, model.StateApproved, decided.State)
	require.NotNil(t, decided.Decision)
	assert.Equal(t, model.OutcomeApproved, decided.Decision.Outcome)
	assert.Equal(t, 90, decided.Decision.Scores["tone"])
	assert.Nil(t, decided.SLADeadlineAt)
	require.NotNil(t, decided.DeadlineAt)
	assert.Equal(t, testStart.Add(72*time.Hour), *decided.DeadlineAt)

	published, err := svc.ConfirmPublish(ctx, request.ID, testStart.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.StatePublished, published.State)
	assert.Nil(t, published.DeadlineAt)

	trail, err := auditTrail.QueryByRequest(ctx, request.ID)
	require.NoError(t, err)
	require.Len(t, trail, 4)
	actions := []model.AuditAction{trail[0].Action, trail[1].Action, trail[2].Action, trail[3].Action}
	assert.Equal(t, []model.AuditAction{
		model.AuditSubmitted, model.AuditClaimed, model.AuditDecided, model.AuditPublished,
	}, actions)
	assert.Equal(t, model.StateDraft, trail[0].BeforeState)
	assert.Equal(t, model.StateSubmitted, trail[0].AfterState)
	assert.NotNil(t, trail[0].ComplianceSnapshot)
	assert.Equal(t, string(model.OutcomeApproved), trail[2].Reason)
}

func TestSubmitRejectsDuplicateActiveRequest(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	item := testItem("content-1")

	_, err := svc.Submit(ctx, item, lowRiskReport(item.ID), "author-1")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, item, lowRiskReport(item.ID), "author-1")
	assert.True(t, IsConflict(err))
}

func TestSubmitAfterRejectionStartsFreshLineage(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	item := testItem("content-1")

	first, err := svc.Submit(ctx, item, lowRiskReport(item.ID), "author-1")
	require.NoError(t, err)
	_, err = svc.Claim(ctx, first.ID, "reviewer-1")
	require.NoError(t, err)
	_, err = svc.Decide(ctx, first.ID, "reviewer-1", model.OutcomeRejected, "not fixable", nil)
	require.NoError(t, err)

	second, err := svc.Submit(ctx, item, lowRiskReport(item.ID), "author-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, second.Version)
	assert.Empty(t, second.History)
}

func TestSubmitPolicyGate(t *testing.T) {
	svc, _, _ := newTestService(t)
	item := testItem("content-1")

	ctx := policy.WithPolicy(context.Background(), &policy.Policy{
		BlockList: []string{string(model.ContentTypeSocialPost)},
	})
	_, err := svc.Submit(ctx, item, lowRiskReport(item.ID), "author-1")
	assert.True(t, IsValidation(err))

	allowed := policy.WithPolicy(context.Background(), &policy.Policy{Mode: policy.ModeAuto})
	_, err = svc.Submit(allowed, item, lowRiskReport(item.ID), "author-1")
	assert.NoError(t, err)
}

func TestSubmitCriticalRiskEscalatesImmediately(t *testing.T) {
	roster := directory.NewMemory(&directory.Reviewer{
		ID: "senior-1", Level: model.LevelSeniorReview, Available: true,
	})
	svc, auditTrail, _ := newTestService(t, WithDirectory(roster))
	ctx := context.Background()
	item := testItem("content-1")

	report := lowRiskReport(item.ID)
	report.RiskLevel = model.RiskCritical
	report.Score = 10

	request, err := svc.Submit(ctx, item, report, "author-1")
	require.NoError(t, err)
	assert.Equal(t, model.LevelSeniorReview, request.ApprovalLevel)
	assert.Equal(t, model.StateUnderReview, request.State)
	assert.Equal(t, "senior-1", request.AssigneeID)
	require.Len(t, request.Escalations, 1)
	assert.Equal(t, model.ReasonCriticalRisk, request.Escalations[0].Reason)

	trail, err := auditTrail.QueryByRequest(ctx, request.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, model.AuditEscalated, trail[1].Action)
	assert.Equal(t, model.ReasonCriticalRisk, trail[1].Reason)
	assert.Equal(t, model.LevelJuniorReview, trail[1].BeforeLevel)
	assert.Equal(t, model.LevelSeniorReview, trail[1].AfterLevel)
}

func TestConcurrentClaimsSingleWinner(t *testing.T) {
	svc, auditTrail, _ := newTestService(t)
	ctx := context.Background()
	item := testItem("content-1")

	request, err := svc.Submit(ctx, item, lowRiskReport(item.ID), "author-1")
	require.NoError(t, err)

	reviewers := []string{"reviewer-a", "reviewer-b", "reviewer-c", "reviewer-d"}
	errs := make([]error, len(reviewers))
	var wg sync.WaitGroup
	for i, reviewer := range reviewers {
		wg.Add(1)
		go func(i int, reviewer string) {
			defer wg.Done()
			_, errs[i] = svc.Claim(ctx, request.ID, reviewer)
		}(i, reviewer)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case IsConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected claim error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, len(reviewers)-1, conflicts)

	loaded, err := svc.Get(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateUnderReview, loaded.State)
	assert.NotEmpty(t, loaded.AssigneeID)

	trail, err := auditTrail.QueryByRequest(ctx, request.ID)
	require.NoError(t, err)
	assert.Len(t, trail, 2) // submit + exactly one claim
}

// slowListStore widens the window between the duplicate-active check and the
// initial save so concurrent submissions overlap it.
type slowListStore struct {
	dao.Service[string, model.ApprovalRequest]
	delay time.Duration
}

func (s *slowListStore) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.ApprovalRequest, error) {
	time.Sleep(s.delay)
	return s.Service.List(ctx, parameters...)
}

func TestConcurrentSubmitsSingleWinner(t *testing.T) {
	clk := newTestClock()
	auditTrail := amemory.New()
	store := &slowListStore{Service: rmemory.New(), delay: 20 * time.Millisecond}
	svc := New(store, auditTrail,
		WithClock(clk.Now),
		WithEvaluator(&stubEvaluator{report: lowRiskReport("")}))
	ctx := context.Background()
	item := testItem("content-1")

	authors := []string{"author-a", "author-b", "author-c", "author-d"}
	errs := make([]error, len(authors))
	var wg sync.WaitGroup
	for i, author := range authors {
		wg.Add(1)
		go func(i int, author string) {
			defer wg.Done()
			_, errs[i] = svc.Submit(ctx, item, lowRiskReport(item.ID), author)
		}(i, author)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case IsConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected submit error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, len(authors)-1, conflicts)

	active, err := svc.GetQueue(ctx, Filter{ContentID: item.ID})
	require.NoError(t, err)
	require.Len(t, active, 1)

	trail, err := auditTrail.QueryByContent(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, trail, 1) // exactly one submission recorded
}

func TestDecideGuards(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	item := testItem("content-1")

	request, err := svc.Submit(ctx, item, lowRiskReport(item.ID), "author-1")
	require.NoError(t, err)

	// Decide before any claim
	_, err = svc.Decide(ctx, request.ID, "reviewer-1", model.OutcomeApproved, "", nil)
	assert.True(t, IsInvalidTransition(err))

	_, err = svc.Claim(ctx, request.ID, "reviewer-1")
	require.NoError(t, err)

	// Only the assignee may decide
	_, err = svc.Decide(ctx, request.ID, "reviewer-2", model.OutcomeApproved, "", nil)
	assert.True(t, IsConflict(err))

	_, err = svc.Decide(ctx, request.ID, "reviewer-1", model.OutcomeApproved, "", nil)
	require.NoError(t, err)
	_, err = svc.ConfirmPublish(ctx, request.ID, testStart)
	require.NoError(t, err)

	// Decide on a published request leaves it unchanged
	_, err = svc.Decide(ctx, request.ID, "reviewer-1", model.OutcomeRejected, "", nil)
	assert.True(t, IsInvalidTransition(err))
	loaded, err := svc.Get(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatePublished, loaded.State)
	assert.Equal(t, model.OutcomeApproved, loaded.Decision.Outcome)

	_, err = svc.Get(ctx, "missing")
	assert.True(t, IsNotFound(err))
}

func TestReleaseReturnsRequestToQueue(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	item := testItem("content-1")

	request, err := svc.Submit(ctx, item, lowRiskReport(item.ID), "author-1")
	require.NoError(t, err)
	_, err = svc.Claim(ctx, request.ID, "reviewer-1")
	require.NoError(t, err)

	// Only the assignee may release
	_, err = svc.Release(ctx, request.ID, "reviewer-2")
	assert.True(t, IsConflict(err))

	released, err := svc.Release(ctx, request.ID, "reviewer-1")
	require.NoError(t, err)
	assert.Equal(t, model.StateSubmitted, released.State)
	assert.Empty(t, released.AssigneeID)
	assert.Nil(t, released.ClaimedAt)

	// Claimable again by someone else
	claimed, err := svc.Claim(ctx, request.ID, "reviewer-2")
	require.NoError(t, err)
	assert.Equal(t, "reviewer-2", claimed.AssigneeID)
}

func TestResubmitArchivesPriorVersion(t *testing.T) {
	evaluator := &stubEvaluator{report: lowRiskReport("")}
	svc, auditTrail, clk := newTestService(t, WithEvaluator(evaluator))
	ctx := context.Background()
	item := testItem("content-1")

	request, err := svc.Submit(ctx, item, lowRiskReport(item.ID), "author-1")
	require.NoError(t, err)
	_, err = svc.Claim(ctx, request.ID, "reviewer-1")
	require.NoError(t, err)
	_, err = svc.Decide(ctx, request.ID, "reviewer-1", model.OutcomeRequiresChanges, "soften the claim", nil)
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)
	revised := testItem("content-1")
	revised.Body = "Meet our improved whitening service. Individual results vary."

	resubmitted, err := svc.Resubmit(ctx, request.ID, revised, "author-1")
	require.NoError(t, err)
	assert.Equal(t, 2, resubmitted.Version)
	assert.Equal(t, model.StateSubmitted, resubmitted.State)
	assert.Empty(t, resubmitted.AssigneeID)
	assert.Nil(t, resubmitted.Decision)
	assert.Equal(t, revised.Body, resubmitted.Content.Body)
	require.NotNil(t, resubmitted.SLADeadlineAt)
	assert.Equal(t, clk.Now().Add(24*time.Hour), *resubmitted.SLADeadlineAt)

	require.Len(t, resubmitted.History, 1)
	archived := resubmitted.History[0]
	assert.Equal(t, 1, archived.Version)
	assert.Equal(t, item.Body, archived.Body)
	require.NotNil(t, archived.Report)
	assert.Contains(t, archived.Diff, "-Meet our new whitening service.")
	assert.Contains(t, archived.Diff, "+Meet our improved whitening service. Individual results vary.")

	trail, err := auditTrail.QueryByRequest(ctx, request.ID)
	require.NoError(t, err)
	last := trail[len(trail)-1]
	assert.Equal(t, model.AuditResubmitted, last.Action)
	assert.Equal(t, 2, last.Version)

	// Resubmit from any state other than requiresChanges is invalid
	_, err = svc.Resubmit(ctx, request.ID, revised, "author-1")
	assert.True(t, IsInvalidTransition(err))
}

func TestSweepEscalatesOnSLABreach(t *testing.T) {
	svc, auditTrail, clk := newTestService(t)
	ctx := context.Background()
	item := testItem("content-1")

	request, err := svc.Submit(ctx, item, lowRiskReport(item.ID), "author-1")
	require.NoError(t, err)

	sweeper := NewSweeper(svc)

	// Before the junior SLA elapses nothing happens
	clk.Advance(23 * time.Hour)
	sweeper.SweepOnce(ctx)
	loaded, err := svc.Get(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LevelJuniorReview, loaded.ApprovalLevel)

	// Past the 24h junior SLA the request escalates once
	clk.Advance(2 * time.Hour)
	sweeper.SweepOnce(ctx)
	loaded, err = svc.Get(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LevelSeniorReview, loaded.ApprovalLevel)
	require.Len(t, loaded.Escalations, 1)
	assert.Equal(t, model.ReasonSLABreach, loaded.Escalations[0].Reason)
	require.NotNil(t, loaded.SLADeadlineAt)
	assert.Equal(t, clk.Now().Add(12*time.Hour), *loaded.SLADeadlineAt)

	// A rerun before the new deadline is a no-op
	sweeper.SweepOnce(ctx)
	loaded, err = svc.Get(ctx, request.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Escalations, 1)

	trail, err := auditTrail.QueryByRequest(ctx, request.ID)
	require.NoError(t, err)
	var escalations int
	for _, entry := range trail {
		if entry.Action == model.AuditEscalated {
			escalations++
			assert.Equal(t, model.ReasonSLABreach, entry.Reason)
			assert.Equal(t, SystemActor, entry.ActorID)
		}
	}
	assert.Equal(t, 1, escalations)
}

func TestSweepAtTopLevelExtendsWithoutEscalating(t *testing.T) {
	svc, auditTrail, clk := newTestService(t)
	ctx := context.Background()
	item := testItem("content-1")

	request, err := svc.Submit(ctx, item, lowRiskReport(item.ID), "author-1")
	require.NoError(t, err)

	sweeper := NewSweeper(svc)

	// Walk the request to the top level via two breaches
	clk.Advance(25 * time.Hour)
	sweeper.SweepOnce(ctx)
	clk.Advance(13 * time.Hour)
	sweeper.SweepOnce(ctx)
	loaded, err := svc.Get(ctx, request.ID)
	require.NoError(t, err)
	require.Equal(t, model.LevelManagerApproval, loaded.ApprovalLevel)

	// A breach at the top level pushes the deadline out, no new escalation
	clk.Advance(9 * time.Hour)
	sweeper.SweepOnce(ctx)
	loaded, err = svc.Get(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LevelManagerApproval, loaded.ApprovalLevel)
	assert.Len(t, loaded.Escalations, 2)
	require.NotNil(t, loaded.SLADeadlineAt)
	assert.Equal(t, clk.Now().Add(8*time.Hour), *loaded.SLADeadlineAt)

	trail, err := auditTrail.QueryByRequest(ctx, request.ID)
	require.NoError(t, err)
	var escalations, extensions int
	for _, entry := range trail {
		switch entry.Action {
		case model.AuditEscalated:
			escalations++
		case model.AuditDeadlineExtended:
			extensions++
			assert.Equal(t, SystemActor, entry.ActorID)
			assert.Equal(t, model.ReasonSLABreach, entry.Reason)
			assert.Equal(t, entry.BeforeState, entry.AfterState)
			assert.Equal(t, model.LevelManagerApproval, entry.AfterLevel)
		}
	}
	assert.Equal(t, 2, escalations)
	assert.Equal(t, 1, extensions)
}

func TestSweepExpiresUnpublishedApprovals(t *testing.T) {
	svc, auditTrail, clk := newTestService(t)
	ctx := context.Background()
	item := testItem("content-1")

	request, err := svc.Submit(ctx, item, lowRiskReport(item.ID), "author-1")
	require.NoError(t, err)
	_, err = svc.Claim(ctx, request.ID, "reviewer-1")
	require.NoError(t, err)
	_, err = svc.Decide(ctx, request.ID, "reviewer-1", model.OutcomeApproved, "", nil)
	require.NoError(t, err)

	sweeper := NewSweeper(svc)

	clk.Advance(71 * time.Hour)
	sweeper.SweepOnce(ctx)
	loaded, err := svc.Get(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateApproved, loaded.State)

	clk.Advance(2 * time.Hour)
	sweeper.SweepOnce(ctx)
	loaded, err = svc.Get(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateExpired, loaded.State)

	// Publishing an expired request fails
	_, err = svc.ConfirmPublish(ctx, request.ID, clk.Now())
	assert.True(t, IsInvalidTransition(err))

	trail, err := auditTrail.QueryByRequest(ctx, request.ID)
	require.NoError(t, err)
	last := trail[len(trail)-1]
	assert.Equal(t, model.AuditExpired, last.Action)
	assert.Equal(t, SystemActor, last.ActorID)
}

func TestGetQueueFiltersAndOrdersBySubmission(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()

	first, err := svc.Submit(ctx, testItem("content-1"), lowRiskReport("content-1"), "author-1")
	require.NoError(t, err)
	clk.Advance(time.Minute)
	second, err := svc.Submit(ctx, testItem("content-2"), lowRiskReport("content-2"), "author-1")
	require.NoError(t, err)
	clk.Advance(time.Minute)
	third := testItem("content-3")
	third.PracticeID = "practice-2"
	_, err = svc.Submit(ctx, third, lowRiskReport("content-3"), "author-2")
	require.NoError(t, err)

	_, err = svc.Claim(ctx, second.ID, "reviewer-1")
	require.NoError(t, err)

	submitted, err := svc.GetQueue(ctx, Filter{States: []model.State{model.StateSubmitted}})
	require.NoError(t, err)
	require.Len(t, submitted, 2)
	assert.Equal(t, first.ID, submitted[0].ID)

	byPractice, err := svc.GetQueue(ctx, Filter{PracticeID: "practice-2"})
	require.NoError(t, err)
	require.Len(t, byPractice, 1)
	assert.Equal(t, "content-3", byPractice[0].ContentID)

	byAssignee, err := svc.GetQueue(ctx, Filter{AssigneeID: "reviewer-1"})
	require.NoError(t, err)
	require.Len(t, byAssignee, 1)
	assert.Equal(t, second.ID, byAssignee[0].ID)
}

func TestAutoApproveHelper(t *testing.T) {
	clk := newTestClock()
	auditTrail := amemory.New()
	svc := New(rmemory.New(), auditTrail,
		WithClock(clk.Now),
		WithEvaluator(&stubEvaluator{report: lowRiskReport("")}))
	ctx := context.Background()

	request, err := svc.Submit(ctx, testItem("content-1"), lowRiskReport("content-1"), "author-1")
	require.NoError(t, err)

	stop := AutoApprove(ctx, svc, "bot-1", 5*time.Millisecond)
	defer stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		loaded, err := svc.Get(ctx, request.ID)
		require.NoError(t, err)
		if loaded.State == model.StateApproved {
			assert.Equal(t, "bot-1", loaded.Decision.ReviewerID)
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("request was not auto approved in time")
}
