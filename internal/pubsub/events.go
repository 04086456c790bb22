// Package pubsub fans out typed notifications to in-process listeners.
// The registry publishes build and invalidation notices through it and the
// logger streams entries through it.
package pubsub

import (
	"context"
	"time"
)

// EventType names what happened.
type EventType string

const (
	// BuiltEvent follows a completed registry index build.
	BuiltEvent EventType = "built"
	// InvalidatedEvent follows removal of the registry cache entry.
	InvalidatedEvent EventType = "invalidated"
	// LogEntryEvent carries one formatted log line.
	LogEntryEvent EventType = "log"
)

// Event is a delivered notification.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber hands out event streams.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher accepts events.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}

// Next blocks for one event. ok is false once ctx ends or ch is closed.
func Next[T any](ctx context.Context, ch <-chan Event[T]) (event Event[T], ok bool) {
	select {
	case <-ctx.Done():
		return Event[T]{}, false
	case event, ok = <-ch:
		return event, ok
	}
}
