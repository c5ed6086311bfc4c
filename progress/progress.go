// Package progress provides a lightweight tracker that keeps aggregated
// review-queue counters (submissions, decisions, escalations, …) for a
// running engine. The tracker instance lives either in the call context or
// behind the notification sink – every component that receives it can
// atomically update the counters without requiring a global registry.

package progress

import (
	"context"
	"sync"
	"time"

	"github.com/justy6674/comply/service/notify"
)

// Delta represents an incremental counter change emitted by the workflow.
// The fields are signed and therefore can be either positive (increment) or
// negative (decrement).
type Delta struct {
	Submitted   int
	InReview    int
	Approved    int
	Rejected    int
	Changes     int
	Published   int
	Expired     int
	Escalations int
}

// Progress keeps aggregated request counters for one engine instance. It is
// safe for concurrent use.
type Progress struct {
	// Identification – informative only.
	PracticeID string
	StartedAt  time.Time

	// Counters – modified via Update().
	SubmittedRequests int
	InReviewRequests  int
	ApprovedRequests  int
	RejectedRequests  int
	ChangesRequested  int
	PublishedRequests int
	ExpiredRequests   int
	Escalations       int

	sync.Mutex
	onChange func(Progress)
}

// Update applies the supplied delta to the tracker. It is safe to call from
// multiple goroutines. If an onChange callback has been registered it will
// be invoked with a copy of the updated tracker outside the critical section
// so that the callback can perform slow operations (e.g. JSON encoding, I/O)
// without blocking engine internals.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}

	p.Lock()

	p.SubmittedRequests += d.Submitted
	p.InReviewRequests += d.InReview
	p.ApprovedRequests += d.Approved
	p.RejectedRequests += d.Rejected
	p.ChangesRequested += d.Changes
	p.PublishedRequests += d.Published
	p.ExpiredRequests += d.Expired
	p.Escalations += d.Escalations

	// Make a value-copy for the callback while we still hold the lock to
	// avoid seeing partially updated counters.
	snapshot := *p
	cb := p.onChange

	p.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the tracker suitable for read-only inspection.
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.Lock()
	defer p.Unlock()
	return *p
}

// OnChange registers a callback that is invoked after every successful
// Update. Passing nil disables the callback. Only one callback can be
// active; subsequent calls overwrite the previous value.
func (p *Progress) OnChange(cb func(Progress)) {
	if p == nil {
		return
	}
	p.Lock()
	p.onChange = cb
	p.Unlock()
}

// Notify implements the notification sink contract so a tracker can be
// plugged straight into the engine and derive counters from workflow events.
func (p *Progress) Notify(_ context.Context, e *notify.Event) {
	if p == nil || e == nil {
		return
	}
	switch e.Kind {
	case notify.KindSubmitted, notify.KindResubmitted:
		p.Update(Delta{Submitted: 1})
	case notify.KindClaimed:
		p.Update(Delta{InReview: 1})
	case notify.KindReleased:
		p.Update(Delta{InReview: -1})
	case notify.KindDecided:
		p.Update(Delta{InReview: -1, Approved: countIf(e, "approved"), Rejected: countIf(e, "rejected"), Changes: countIf(e, "requires_changes")})
	case notify.KindEscalated:
		p.Update(Delta{Escalations: 1})
	case notify.KindPublished:
		p.Update(Delta{Published: 1})
	case notify.KindExpired:
		p.Update(Delta{Expired: 1})
	}
}

func countIf(e *notify.Event, outcome string) int {
	if e.Meta["outcome"] == outcome {
		return 1
	}
	return 0
}

// ----------------------------------------------------------------------------
// Context helpers
// ----------------------------------------------------------------------------

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithNewTracker creates a new Progress tracker, embeds it in a derived
// context and returns both. The caller may optionally pass an onChange
// callback that will be invoked after every counter update.
func WithNewTracker(ctx context.Context, practiceID string, onChange func(Progress)) (context.Context, *Progress) {
	if ctx == nil {
		ctx = context.Background()
	}
	tr := &Progress{
		PracticeID: practiceID,
		StartedAt:  time.Now(),
		onChange:   onChange,
	}
	return context.WithValue(ctx, trackerKey, tr), tr
}

// FromContext extracts the Progress tracker from ctx. It returns (tracker,
// ok). The second return value is false when the context carries no tracker.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// GetSnapshot is a convenience wrapper that combines FromContext and
// Snapshot. The boolean return value is false when the context does not
// carry a tracker.
func GetSnapshot(ctx context.Context) (Progress, bool) {
	if tr, ok := FromContext(ctx); ok {
		return tr.Snapshot(), true
	}
	return Progress{}, false
}
