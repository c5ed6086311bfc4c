package workflow

import (
	"context"
	"time"

	"github.com/justy6674/comply/model"
)

// DecisionFunc decides what to do with a queued request.
// Return the outcome to record, or "" to leave the request alone.
type DecisionFunc func(r *model.ApprovalRequest) (outcome model.DecisionOutcome, notes string)

// AutoDecider starts a goroutine that polls the submitted queue, claims each
// request as reviewerID and applies fn to it. It returns stop() – call it
// (or cancel ctx) to exit. Intended for tests and headless review bots.
func AutoDecider(ctx context.Context,
	svc *Service,
	reviewerID string,
	fn DecisionFunc,
	interval time.Duration) (stop func()) {

	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				queued, _ := svc.GetQueue(ctx, Filter{States: []model.State{model.StateSubmitted}})
				for _, r := range queued {
					claimed, err := svc.Claim(ctx, r.ID, reviewerID)
					if err != nil {
						continue
					}
					outcome, notes := fn(claimed)
					if outcome == "" {
						_, _ = svc.Release(ctx, claimed.ID, reviewerID)
						continue
					}
					_, _ = svc.Decide(ctx, claimed.ID, reviewerID, outcome, notes, nil)
				}
			}
		}
	}()
	return func() { close(done) }
}

// AutoApprove automatically approves every queued request as reviewerID.
func AutoApprove(ctx context.Context,
	svc *Service,
	reviewerID string,
	interval time.Duration) func() {
	return AutoDecider(ctx, svc, reviewerID,
		func(*model.ApprovalRequest) (model.DecisionOutcome, string) {
			return model.OutcomeApproved, ""
		}, interval)
}

// AutoReject automatically rejects every queued request with the given
// notes.
func AutoReject(ctx context.Context,
	svc *Service,
	reviewerID string,
	notes string,
	interval time.Duration) func() {
	return AutoDecider(ctx, svc, reviewerID,
		func(*model.ApprovalRequest) (model.DecisionOutcome, string) {
			return model.OutcomeRejected, notes
		}, interval)
}
