package events

import (
	"context"
	"sync"
	"time"

	"legalsearch_backend/platform/logger"

	"go.uber.org/multierr"
)

// asyncHandlerTimeout bounds a detached handler goroutine so a stuck
// downstream dependency cannot leak goroutines forever.
const asyncHandlerTimeout = 30 * time.Second

// InMemoryBus is a simple in-process event bus. Publish dispatches handlers
// on their own goroutines; PublishSync runs them inline and collects errors.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
}

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for the given event name.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish dispatches the event to all handlers asynchronously. Handler errors
// are logged, never propagated; the publisher has already committed its state.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	if event == nil {
		return
	}

	for _, h := range b.handlersFor(event.EventName()) {
		handler := h
		go func() {
			// Detach from the caller's context so an HTTP request finishing
			// does not cancel in-flight notification work.
			hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), asyncHandlerTimeout)
			defer cancel()

			if err := handler.Handle(hctx, event); err != nil && b.log != nil {
				b.log.Error("event handler failed",
					"event", event.EventName(),
					"error", err,
				)
			}
		}()
	}
}

// PublishSync dispatches the event to all handlers inline and returns the
// combined error of any that failed.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	if event == nil {
		return nil
	}

	var combined error
	for _, handler := range b.handlersFor(event.EventName()) {
		if err := handler.Handle(ctx, event); err != nil {
			combined = multierr.Append(combined, err)
		}
	}
	return combined
}

func (b *InMemoryBus) handlersFor(eventName string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	registered := b.handlers[eventName]
	if len(registered) == 0 {
		return nil
	}
	snapshot := make([]Handler, len(registered))
	copy(snapshot, registered)
	return snapshot
}
