package outbox

import (
	"context"
	"time"

	"caseflow/internal/events"
)

// Entry is one row of the event outbox awaiting publication to Kafka.
type Entry struct {
	ID        string
	Event     events.Event
	CreatedAt time.Time
}

// Store buffers events durably until the worker publishes them. Rows are
// kept after publishing (published_at set) so deliveries remain auditable.
type Store interface {
	Append(ctx context.Context, event events.Event) error
	ListUnpublished(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, ids []string, publishedAt time.Time) error
}
