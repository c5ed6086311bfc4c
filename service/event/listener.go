package event

import (
	"context"
	"log"
)

// Listener consumes events from a publisher and hands each one to a handler
// on a dedicated goroutine.
type Listener[T any] struct {
	publisher *Publisher[T]
	handler   func(*Event[T])
	cancel    context.CancelFunc
}

// NewListener creates a listener; call Start to begin consuming.
func NewListener[T any](publisher *Publisher[T], handler func(*Event[T])) *Listener[T] {
	return &Listener[T]{
		publisher: publisher,
		handler:   handler,
	}
}

// Start begins consuming events until Stop is called.
func (l *Listener[T]) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	go func() {
		for {
			event, err := l.publisher.Consume(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("error consuming event: %v", err)
				continue
			}
			if event != nil {
				l.handler(event)
			}
		}
	}()
}

// Stop terminates the consume loop.
func (l *Listener[T]) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
}
