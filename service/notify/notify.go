// Package notify delivers fire-and-forget workflow notifications. The core
// never consumes a return value from a sink: delivery content and transport
// belong to external collaborators.
package notify

import (
	"context"
	"time"

	"github.com/justy6674/comply/service/event"
	"github.com/justy6674/comply/service/messaging"
)

// Event kinds emitted by the workflow.
const (
	KindSubmitted   = "request.submitted"
	KindClaimed     = "request.claimed"
	KindReleased    = "request.released"
	KindDecided     = "request.decided"
	KindResubmitted = "request.resubmitted"
	KindEscalated   = "request.escalated"
	KindPublished   = "request.published"
	KindExpired     = "request.expired"
)

// Event describes one workflow occurrence worth notifying about.
type Event struct {
	Kind       string            `json:"kind"`
	RequestID  string            `json:"requestId"`
	ContentID  string            `json:"contentId"`
	PracticeID string            `json:"practiceId,omitempty"`
	ActorID    string            `json:"actorId,omitempty"`
	At         time.Time         `json:"at"`
	Meta       map[string]string `json:"meta,omitempty"`
}

// Sink receives events. Implementations must not block the workflow; errors
// are swallowed by the caller.
type Sink interface {
	Notify(ctx context.Context, e *Event)
}

// Nop discards all events.
type Nop struct{}

func (Nop) Notify(context.Context, *Event) {}

// QueueSink publishes events onto a messaging queue wrapped in the typed
// event envelope, for consumption by an external delivery service.
type QueueSink struct {
	publisher *event.Publisher[Event]
}

var _ Sink = (*QueueSink)(nil)

// NewQueueSink wraps the supplied queue.
func NewQueueSink(queue messaging.Queue[event.Event[Event]]) *QueueSink {
	return &QueueSink{publisher: event.NewPublisher[Event](queue)}
}

// Notify publishes the event; failures are dropped, notification delivery is
// best effort by contract.
func (s *QueueSink) Notify(ctx context.Context, e *Event) {
	if e == nil {
		return
	}
	_ = s.publisher.Publish(ctx, event.NewEvent(&event.Context{
		RequestID: e.RequestID,
		ContentID: e.ContentID,
		EventType: e.Kind,
		ActorID:   e.ActorID,
	}, *e))
}
