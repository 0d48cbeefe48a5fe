package outbox

import (
	"context"

	"caseflow/internal/events"
)

// Subscriber adapts the outbox store into an event subscriber so the
// dispatcher can buffer every event for Kafka publication.
type Subscriber struct {
	store Store
}

func NewSubscriber(store Store) *Subscriber {
	return &Subscriber{store: store}
}

func (s *Subscriber) Handle(ctx context.Context, event events.Event) error {
	return s.store.Append(ctx, event)
}
