package pubsub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBufferSize is the per-subscriber queue length used by NewBroker.
const DefaultBufferSize = 64

type subscription[T any] struct {
	ch   chan Event[T]
	once sync.Once
}

func (s *subscription[T]) close() {
	s.once.Do(func() { close(s.ch) })
}

// Broker delivers every published event to every live subscriber.
// Publish never waits on a slow reader; when a subscriber's queue is full
// the event is dropped for that subscriber and counted.
type Broker[T any] struct {
	mu      sync.RWMutex
	subs    map[*subscription[T]]struct{}
	stopped bool
	buffer  int
	dropped atomic.Int64
	now     func() time.Time
}

var (
	_ Publisher[struct{}]  = (*Broker[struct{}])(nil)
	_ Subscriber[struct{}] = (*Broker[struct{}])(nil)
)

// NewBroker returns a broker with DefaultBufferSize queues.
func NewBroker[T any]() *Broker[T] {
	return NewBrokerWithBuffer[T](DefaultBufferSize)
}

// NewBrokerWithBuffer returns a broker whose subscriber queues hold size
// events. Negative sizes mean unbuffered.
func NewBrokerWithBuffer[T any](size int) *Broker[T] {
	return &Broker[T]{
		subs:   map[*subscription[T]]struct{}{},
		buffer: max(size, 0),
		now:    time.Now,
	}
}

// Subscribe registers a listener. The returned channel is closed when ctx
// ends or the broker is closed; on a closed broker it is closed already.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	sub := &subscription[T]{ch: make(chan Event[T], b.buffer)}

	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		sub.close()
		return sub.ch
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	context.AfterFunc(ctx, func() { b.unsubscribe(sub) })
	return sub.ch
}

func (b *Broker[T]) unsubscribe(sub *subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	sub.close()
}

// Publish stamps and fans out one event. It is a no-op after Close.
func (b *Broker[T]) Publish(eventType EventType, payload T) {
	event := Event[T]{Type: eventType, Payload: payload, Timestamp: b.now()}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopped {
		return
	}
	for sub := range b.subs {
		select {
		case sub.ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Close ends every subscription. Later calls do nothing.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.stopped = true
	for sub := range b.subs {
		sub.close()
	}
	clear(b.subs)
}

// SubscriberCount reports live subscriptions.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped reports how many deliveries were skipped because a queue was full.
func (b *Broker[T]) Dropped() int64 {
	return b.dropped.Load()
}
