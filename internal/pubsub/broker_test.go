package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type buildPayload struct {
	BuildID  string
	Sections int
}

func TestBroker_SubscribeAndPublish(t *testing.T) {
	broker := NewBroker[buildPayload]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := broker.Subscribe(ctx)
	broker.Publish(BuiltEvent, buildPayload{BuildID: "b1", Sections: 3})

	event, ok := Next(ctx, ch)
	require.True(t, ok)
	require.Equal(t, BuiltEvent, event.Type)
	require.Equal(t, "b1", event.Payload.BuildID)
	require.Equal(t, 3, event.Payload.Sections)
	require.False(t, event.Timestamp.IsZero())
}

func TestBroker_FixedClock(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	broker.now = func() time.Time { return fixed }

	ch := broker.Subscribe(context.Background())
	broker.Publish(InvalidatedEvent, "theme-switched")

	event := <-ch
	require.Equal(t, fixed, event.Timestamp)
	require.Equal(t, "theme-switched", event.Payload)
}

func TestBroker_MultipleSubscribers(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Close()

	ctx := context.Background()
	subs := []<-chan Event[int]{broker.Subscribe(ctx), broker.Subscribe(ctx), broker.Subscribe(ctx)}
	require.Equal(t, 3, broker.SubscriberCount())

	broker.Publish(BuiltEvent, 42)

	for i, ch := range subs {
		select {
		case event := <-ch:
			require.Equal(t, 42, event.Payload, "subscriber %d", i)
		case <-time.After(100 * time.Millisecond):
			require.Fail(t, "timeout waiting for event", "subscriber %d", i)
		}
	}
}

func TestBroker_ContextCancellation(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := broker.Subscribe(ctx)
	require.Equal(t, 1, broker.SubscriberCount())

	cancel()

	require.Eventually(t, func() bool { return broker.SubscriberCount() == 0 },
		time.Second, 5*time.Millisecond)
	_, ok := <-ch
	require.False(t, ok, "channel should be closed")
}

func TestBroker_NonBlocking(t *testing.T) {
	broker := NewBrokerWithBuffer[int](1)
	defer broker.Close()

	ch := broker.Subscribe(context.Background())
	broker.Publish(InvalidatedEvent, 1)

	done := make(chan struct{})
	go func() {
		broker.Publish(InvalidatedEvent, 2)
		broker.Publish(InvalidatedEvent, 3)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		require.Fail(t, "Publish blocked")
	}

	event := <-ch
	require.Equal(t, 1, event.Payload)
	require.Equal(t, int64(2), broker.Dropped())
}

func TestBroker_CloseIsIdempotent(t *testing.T) {
	broker := NewBroker[string]()
	ctx := context.Background()
	ch1 := broker.Subscribe(ctx)
	ch2 := broker.Subscribe(ctx)

	broker.Close()
	broker.Close()

	_, ok1 := <-ch1
	_, ok2 := <-ch2
	require.False(t, ok1)
	require.False(t, ok2)
	require.Equal(t, 0, broker.SubscriberCount())

	ch3 := broker.Subscribe(ctx)
	_, ok3 := <-ch3
	require.False(t, ok3, "subscribing after close yields a closed channel")

	broker.Publish(InvalidatedEvent, "ignored")
}

func TestNext_ContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := Next(ctx, make(chan Event[int]))
	require.False(t, ok)
}

func TestNext_ClosedChannel(t *testing.T) {
	ch := make(chan Event[int])
	close(ch)

	_, ok := Next(context.Background(), ch)
	require.False(t, ok)
}

func TestBroker_UnbufferedDropsWithoutReader(t *testing.T) {
	broker := NewBrokerWithBuffer[string](-1)
	defer broker.Close()

	broker.Subscribe(context.Background())
	broker.Publish(LogEntryEvent, "line")
	require.Equal(t, int64(1), broker.Dropped())
}

func TestBroker_CancelAfterClose(t *testing.T) {
	broker := NewBroker[string]()
	ctx, cancel := context.WithCancel(context.Background())
	ch := broker.Subscribe(ctx)

	broker.Close()
	cancel()

	_, ok := <-ch
	require.False(t, ok)
	require.Zero(t, broker.SubscriberCount())
}
