// Package event provides typed event envelopes plus publisher/listener
// helpers over the messaging queue abstraction. The workflow publishes
// notification events through it and consumes publish confirmations from it.
package event

import "time"

// Context identifies what an event is about.
type Context struct {
	RequestID string `json:"requestId,omitempty"`
	ContentID string `json:"contentId,omitempty"`
	EventType string `json:"eventType"`
	ActorID   string `json:"actorId,omitempty"`
}

// Event is a typed envelope around a payload of type T.
type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

// NewEvent creates an event with the supplied context and payload.
func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
