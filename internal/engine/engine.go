package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"caseflow/internal/definition"
	"caseflow/internal/engine/metrics"
	"caseflow/internal/events"
	"caseflow/internal/instance"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/requestcontext"
	"caseflow/pkg/sentinel"
)

// SystemActorID is recorded on transitions performed by AutoAdvance.
const SystemActorID = "system"

// Definitions is the slice of the registry the engine needs.
type Definitions interface {
	Get(ctx context.Context, name string, version int) (definition.ProcessDefinition, error)
}

// Engine orchestrates instance lifecycle operations. It owns all instance
// mutation: domain modules read instances but never write CurrentStepID
// directly.
type Engine struct {
	definitions Definitions
	store       instance.Store
	sink        events.Sink
	metrics     *metrics.Metrics
	logger      *slog.Logger
	maxAttempts int
}

// New constructs a fully wired engine. maxAttempts bounds the internal
// read-validate-write loop on version conflicts; values below 1 fall back
// to 3.
func New(definitions Definitions, store instance.Store, sink events.Sink, m *metrics.Metrics, logger *slog.Logger, maxAttempts int) *Engine {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	return &Engine{
		definitions: definitions,
		store:       store,
		sink:        sink,
		metrics:     m,
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

// StartParams describes a new instance. InstanceID is optional; when empty
// the engine generates one.
type StartParams struct {
	DefinitionName string
	// DefinitionVersion pins a version; 0 means the latest published.
	DefinitionVersion int
	InstanceID        string
	Context           map[string]any
	CallerID          string
}

// Start creates an instance at the definition's start step and emits
// process.started.
func (e *Engine) Start(ctx context.Context, p StartParams) (instance.ProcessInstance, error) {
	def, err := e.definitions.Get(ctx, p.DefinitionName, p.DefinitionVersion)
	if err != nil {
		return instance.ProcessInstance{}, err
	}
	start, ok := def.StartStep()
	if !ok {
		return instance.ProcessInstance{}, dErrors.Newf(dErrors.CodeInternal,
			"definition %s v%d has no start step", def.Name, def.Version)
	}

	id := p.InstanceID
	if id == "" {
		id = uuid.NewString()
	}
	now := requestcontext.Now(ctx).UTC()

	inst := instance.ProcessInstance{
		ID:                id,
		DefinitionName:    def.Name,
		DefinitionVersion: def.Version,
		CurrentStepID:     start.ID,
		Status:            instance.StatusActive,
		Context:           p.Context,
		History:           []instance.TransitionRecord{},
		Version:           0,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := e.store.Create(ctx, inst); err != nil {
		if errors.Is(err, sentinel.ErrDuplicate) {
			e.metrics.IncrementTransition(def.Name, "start", "duplicate")
			return instance.ProcessInstance{}, dErrors.Newf(dErrors.CodeDuplicateID,
				"instance %s already exists", id)
		}
		return instance.ProcessInstance{}, fmt.Errorf("create instance: %w", err)
	}

	e.metrics.IncrementTransition(def.Name, "start", "success")
	e.emit(ctx, events.Event{
		ID:             uuid.NewString(),
		Type:           events.TypeProcessStarted,
		InstanceID:     inst.ID,
		DefinitionName: def.Name,
		Payload: map[string]any{
			"step":      start.ID,
			"caller_id": p.CallerID,
		},
		OccurredAt: now,
	})

	e.logger.InfoContext(ctx, "process started",
		"instance_id", inst.ID,
		"definition", def.Name,
		"version", def.Version,
	)
	return inst, nil
}

// Advance moves an instance along one named edge. On a version conflict the
// whole read-validate-write cycle reruns against fresh state, because the
// fresh state may change the legal outcome (the instance may have been
// cancelled meanwhile).
func (e *Engine) Advance(ctx context.Context, instanceID, toStepID, actorID, actorRole, note string) (instance.ProcessInstance, error) {
	started := time.Now()
	defer func() { e.metrics.ObserveAdvanceLatency(time.Since(started)) }()

	return e.transition(ctx, instanceID, "advance", func(def definition.ProcessDefinition, inst instance.ProcessInstance) (step string, rec instance.TransitionRecord, err error) {
		if err := Validate(def, inst, toStepID, actorRole); err != nil {
			return "", instance.TransitionRecord{}, err
		}
		return toStepID, instance.TransitionRecord{
			FromStepID: inst.CurrentStepID,
			ToStepID:   toStepID,
			ActorID:    actorID,
			ActorRole:  actorRole,
			Note:       note,
		}, nil
	})
}

// AutoAdvance resolves a system-action step. The collaborator service has
// already done its work and names the outcome step; exit-role checks are
// skipped because the actor is the system itself.
func (e *Engine) AutoAdvance(ctx context.Context, instanceID, toStepID string) (instance.ProcessInstance, error) {
	return e.transition(ctx, instanceID, "auto_advance", func(def definition.ProcessDefinition, inst instance.ProcessInstance) (string, instance.TransitionRecord, error) {
		if inst.Status.Terminal() {
			return "", instance.TransitionRecord{}, dErrors.Newf(dErrors.CodeTerminalState,
				"instance %s is %s and can no longer advance", inst.ID, inst.Status)
		}
		current, ok := def.Step(inst.CurrentStepID)
		if !ok {
			return "", instance.TransitionRecord{}, dErrors.Newf(dErrors.CodeInternal,
				"instance %s references step %q absent from definition %s v%d",
				inst.ID, inst.CurrentStepID, def.Name, def.Version)
		}
		if current.Kind != definition.KindSystemAction || !current.AutoAdvance {
			return "", instance.TransitionRecord{}, dErrors.Newf(dErrors.CodeNotAutoAdvanceable,
				"step %q is not an auto-advancing system action", inst.CurrentStepID)
		}
		if _, ok := current.Rule(toStepID); !ok {
			return "", instance.TransitionRecord{}, dErrors.Newf(dErrors.CodeInvalidTransition,
				"cannot move from %q to %q", inst.CurrentStepID, toStepID)
		}
		return toStepID, instance.TransitionRecord{
			FromStepID: inst.CurrentStepID,
			ToStepID:   toStepID,
			ActorID:    SystemActorID,
			ActorRole:  SystemActorID,
		}, nil
	})
}

// Cancel marks an active instance cancelled. Cancelling an already-cancelled
// instance is idempotent: it returns the current state without a new history
// entry.
func (e *Engine) Cancel(ctx context.Context, instanceID, actorID, reason string) (instance.ProcessInstance, error) {
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		inst, err := e.getInstance(ctx, instanceID)
		if err != nil {
			return instance.ProcessInstance{}, err
		}
		if inst.Status == instance.StatusCancelled {
			return inst, nil
		}
		if inst.Status == instance.StatusCompleted {
			return instance.ProcessInstance{}, dErrors.Newf(dErrors.CodeTerminalState,
				"instance %s is completed and cannot be cancelled", inst.ID)
		}

		def, err := e.definitions.Get(ctx, inst.DefinitionName, inst.DefinitionVersion)
		if err != nil {
			return instance.ProcessInstance{}, err
		}
		if !def.AllowCancel {
			return instance.ProcessInstance{}, dErrors.Newf(dErrors.CodeForbidden,
				"definition %s does not permit cancellation", def.Name)
		}

		now := requestcontext.Now(ctx).UTC()
		eventID := uuid.NewString()
		updated, err := e.store.CompareAndSwap(ctx, inst.ID, inst.Version, func(p *instance.ProcessInstance) error {
			p.Status = instance.StatusCancelled
			p.UpdatedAt = now
			p.History = append(p.History, instance.TransitionRecord{
				FromStepID:    p.CurrentStepID,
				ToStepID:      p.CurrentStepID,
				ActorID:       actorID,
				Note:          reason,
				EventsEmitted: []string{eventID},
				OccurredAt:    now,
			})
			return nil
		})
		if err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				e.metrics.IncrementVersionConflict()
				continue
			}
			if errors.Is(err, sentinel.ErrNotFound) {
				return instance.ProcessInstance{}, dErrors.Newf(dErrors.CodeNotFound, "instance %s not found", instanceID)
			}
			return instance.ProcessInstance{}, err
		}

		e.metrics.IncrementTransition(def.Name, "cancel", "success")
		e.emit(ctx, events.Event{
			ID:             eventID,
			Type:           events.TypeProcessCancelled,
			InstanceID:     updated.ID,
			DefinitionName: def.Name,
			Payload: map[string]any{
				"step":   updated.CurrentStepID,
				"actor":  actorID,
				"reason": reason,
			},
			OccurredAt: now,
		})
		e.logger.InfoContext(ctx, "process cancelled",
			"instance_id", updated.ID,
			"actor_id", actorID,
		)
		return updated, nil
	}

	e.metrics.IncrementRetriesExhausted()
	return instance.ProcessInstance{}, dErrors.Newf(dErrors.CodeVersionConflict,
		"instance %s is being modified concurrently", instanceID)
}

// Get returns one instance with full history.
func (e *Engine) Get(ctx context.Context, instanceID string) (instance.ProcessInstance, error) {
	return e.getInstance(ctx, instanceID)
}

// Query returns instances matching the filter for reporting dashboards.
func (e *Engine) Query(ctx context.Context, filter instance.Filter) ([]instance.ProcessInstance, error) {
	return e.store.Query(ctx, filter)
}

// decide inspects fresh state and either rejects the transition or names
// the target step and its history record.
type decide func(definition.ProcessDefinition, instance.ProcessInstance) (string, instance.TransitionRecord, error)

// transition runs the shared read-validate-write cycle for Advance and
// AutoAdvance with bounded retry on version conflicts.
func (e *Engine) transition(ctx context.Context, instanceID, operation string, decideFn decide) (instance.ProcessInstance, error) {
	var lastDefinition string
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		inst, err := e.getInstance(ctx, instanceID)
		if err != nil {
			return instance.ProcessInstance{}, err
		}
		def, err := e.definitions.Get(ctx, inst.DefinitionName, inst.DefinitionVersion)
		if err != nil {
			return instance.ProcessInstance{}, err
		}
		lastDefinition = def.Name

		toStepID, record, err := decideFn(def, inst)
		if err != nil {
			e.metrics.IncrementTransition(def.Name, operation, "rejected")
			return instance.ProcessInstance{}, err
		}

		target, ok := def.Step(toStepID)
		if !ok {
			return instance.ProcessInstance{}, dErrors.Newf(dErrors.CodeInternal,
				"definition %s v%d has no step %q", def.Name, def.Version, toStepID)
		}
		completed := target.Kind.Terminal()

		now := requestcontext.Now(ctx).UTC()
		eventID := uuid.NewString()
		record.OccurredAt = now
		record.EventsEmitted = []string{eventID}

		updated, err := e.store.CompareAndSwap(ctx, inst.ID, inst.Version, func(p *instance.ProcessInstance) error {
			p.CurrentStepID = toStepID
			if completed {
				p.Status = instance.StatusCompleted
			}
			p.UpdatedAt = now
			p.History = append(p.History, record)
			return nil
		})
		if err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				e.metrics.IncrementVersionConflict()
				continue
			}
			if errors.Is(err, sentinel.ErrNotFound) {
				return instance.ProcessInstance{}, dErrors.Newf(dErrors.CodeNotFound, "instance %s not found", instanceID)
			}
			return instance.ProcessInstance{}, err
		}

		eventType := events.TypeProcessAdvanced
		if completed {
			eventType = events.TypeProcessCompleted
		}
		e.metrics.IncrementTransition(def.Name, operation, "success")
		e.emit(ctx, events.Event{
			ID:             eventID,
			Type:           eventType,
			InstanceID:     updated.ID,
			DefinitionName: def.Name,
			Payload: map[string]any{
				"from_step":  record.FromStepID,
				"to_step":    record.ToStepID,
				"actor_id":   record.ActorID,
				"actor_role": record.ActorRole,
				"note":       record.Note,
			},
			OccurredAt: now,
		})
		e.logger.InfoContext(ctx, "process advanced",
			"instance_id", updated.ID,
			"from_step", record.FromStepID,
			"to_step", record.ToStepID,
			"status", string(updated.Status),
		)
		return updated, nil
	}

	e.metrics.IncrementRetriesExhausted()
	e.metrics.IncrementTransition(lastDefinition, operation, "conflict")
	return instance.ProcessInstance{}, dErrors.Newf(dErrors.CodeVersionConflict,
		"instance %s is being modified concurrently", instanceID)
}

func (e *Engine) getInstance(ctx context.Context, instanceID string) (instance.ProcessInstance, error) {
	inst, err := e.store.Get(ctx, instanceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return instance.ProcessInstance{}, dErrors.Newf(dErrors.CodeNotFound, "instance %s not found", instanceID)
		}
		return instance.ProcessInstance{}, fmt.Errorf("get instance: %w", err)
	}
	return inst, nil
}

// emit delivers an event best-effort. The committed transition is the
// source of truth; a sink failure is logged and counted, never rolled back.
func (e *Engine) emit(ctx context.Context, event events.Event) {
	if e.sink == nil {
		return
	}
	if err := e.sink.Emit(ctx, event); err != nil {
		e.metrics.IncrementEmitFailure()
		e.logger.ErrorContext(ctx, "event emission failed",
			"event_id", event.ID,
			"event_type", string(event.Type),
			"instance_id", event.InstanceID,
			"error", err,
		)
	}
}
