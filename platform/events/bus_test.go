package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

type testEvent struct {
	BaseEvent
	name string
}

func (e testEvent) EventName() string { return e.name }

func TestPublishSyncRunsAllHandlersAndCollectsErrors(t *testing.T) {
	bus := NewInMemoryBus(nil)

	var calls int
	bus.Subscribe("rotation.advanced", HandlerFunc(func(context.Context, Event) error {
		calls++
		return nil
	}))
	bus.Subscribe("rotation.advanced", HandlerFunc(func(context.Context, Event) error {
		calls++
		return errors.New("boom")
	}))

	err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "rotation.advanced"})
	if err == nil {
		t.Fatal("expected combined handler error")
	}
	if calls != 2 {
		t.Fatalf("expected both handlers to run, got %d calls", calls)
	}
}

func TestPublishSyncIgnoresUnsubscribedEvents(t *testing.T) {
	bus := NewInMemoryBus(nil)
	if err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "nobody.listens"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPublishIsAsynchronous(t *testing.T) {
	bus := NewInMemoryBus(nil)

	done := make(chan struct{})
	bus.Subscribe("request.created", HandlerFunc(func(context.Context, Event) error {
		close(done)
		return nil
	}))

	bus.Publish(context.Background(), testEvent{NewBaseEvent(), "request.created"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not run")
	}
}
