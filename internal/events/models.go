package events

import (
	"context"
	"time"
)

// Type names a process lifecycle event. Subscribers register per type.
type Type string

const (
	TypeProcessStarted   Type = "process.started"
	TypeProcessAdvanced  Type = "process.advanced"
	TypeProcessCompleted Type = "process.completed"
	TypeProcessCancelled Type = "process.cancelled"
)

// Event is emitted by the engine after a state transition commits. It is
// transport-agnostic so subscribers (notification, payment, audit) and the
// Kafka outbox can fan out from the same value.
type Event struct {
	ID             string         `json:"id"`
	Type           Type           `json:"type"`
	InstanceID     string         `json:"instance_id"`
	DefinitionName string         `json:"definition_name"`
	Payload        map[string]any `json:"payload,omitempty"`
	OccurredAt     time.Time      `json:"occurred_at"`
}

// Sink receives events from the engine. Delivery is best-effort: the state
// transition is the source of truth and is never rolled back on a sink
// failure.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

// Subscriber handles events of the types it registered for.
type Subscriber interface {
	Handle(ctx context.Context, event Event) error
}
