package instance

import (
	"time"
)

// Status is the lifecycle state of a process instance. CurrentStepID is the
// authoritative workflow position; Status only records whether the instance
// is still in flight.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the instance can no longer advance.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// TransitionRecord is one entry of an instance's append-only history.
type TransitionRecord struct {
	FromStepID string    `json:"from_step_id"`
	ToStepID   string    `json:"to_step_id"`
	ActorID    string    `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	Note       string    `json:"note,omitempty"`
	// EventsEmitted lists the sink delivery IDs triggered by this
	// transition, for audit.
	EventsEmitted []string  `json:"events_emitted,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// ProcessInstance is one execution of a process definition, tied to a
// specific case or application. Context is an opaque payload owned by the
// calling module; the engine never inspects it.
type ProcessInstance struct {
	ID                string           `json:"id"`
	DefinitionName    string           `json:"definition_name"`
	DefinitionVersion int              `json:"definition_version"`
	CurrentStepID     string           `json:"current_step_id"`
	Status            Status           `json:"status"`
	Context           map[string]any   `json:"context,omitempty"`
	History           []TransitionRecord `json:"history"`
	// Version is the optimistic concurrency counter. Every successful
	// mutation increments it by exactly one.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so stored instances never alias caller memory.
func (p ProcessInstance) Clone() ProcessInstance {
	out := p
	if p.Context != nil {
		out.Context = make(map[string]any, len(p.Context))
		for k, v := range p.Context {
			out.Context[k] = v
		}
	}
	out.History = make([]TransitionRecord, len(p.History))
	for i, rec := range p.History {
		cp := rec
		cp.EventsEmitted = append([]string(nil), rec.EventsEmitted...)
		out.History[i] = cp
	}
	return out
}
