package events

import (
	"context"
	"log/slog"
	"sync"
)

// Dispatcher is an in-process Sink with a per-type subscriber registry. The
// engine has no compile-time knowledge of subscriber behavior; a failing
// subscriber is logged and skipped, never propagated to the caller.
type Dispatcher struct {
	mu          sync.RWMutex
	subscribers map[Type][]Subscriber
	catchAll    []Subscriber
	logger      *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		subscribers: make(map[Type][]Subscriber),
		logger:      logger,
	}
}

// Subscribe registers a subscriber for one event type.
func (d *Dispatcher) Subscribe(eventType Type, sub Subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers[eventType] = append(d.subscribers[eventType], sub)
}

// SubscribeAll registers a subscriber for every event type (audit, outbox).
func (d *Dispatcher) SubscribeAll(sub Subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.catchAll = append(d.catchAll, sub)
}

// Emit delivers the event to every matching subscriber. Always returns nil;
// subscriber failures are logged at this boundary per the fire-and-forget
// contract.
func (d *Dispatcher) Emit(ctx context.Context, event Event) error {
	d.mu.RLock()
	targets := make([]Subscriber, 0, len(d.subscribers[event.Type])+len(d.catchAll))
	targets = append(targets, d.subscribers[event.Type]...)
	targets = append(targets, d.catchAll...)
	d.mu.RUnlock()

	for _, sub := range targets {
		if err := sub.Handle(ctx, event); err != nil {
			d.logger.ErrorContext(ctx, "event subscriber failed",
				"event_id", event.ID,
				"event_type", string(event.Type),
				"instance_id", event.InstanceID,
				"error", err,
			)
		}
	}
	return nil
}
