package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseflow/internal/definition"
	"caseflow/internal/events"
	"caseflow/internal/instance"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/requestcontext"
	"caseflow/pkg/sentinel"
)

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (s *recordingSink) Emit(_ context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) types() []events.Type {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.Type, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}

// conflictingStore forces N version conflicts before delegating,
// exercising the engine's bounded retry. An optional onConflict hook
// runs once per forced conflict, simulating the competing writer.
type conflictingStore struct {
	instance.Store
	mu         sync.Mutex
	conflicts  int
	onConflict func()
}

func (s *conflictingStore) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, mutate instance.Mutation) (instance.ProcessInstance, error) {
	s.mu.Lock()
	remaining := s.conflicts
	if remaining > 0 {
		s.conflicts--
	}
	s.mu.Unlock()
	if remaining > 0 {
		if s.onConflict != nil {
			s.onConflict()
		}
		return instance.ProcessInstance{}, sentinel.ErrConflict
	}
	return s.Store.CompareAndSwap(ctx, id, expectedVersion, mutate)
}

type fixture struct {
	engine *Engine
	store  instance.Store
	sink   *recordingSink
	ctx    context.Context
}

func newFixture(t *testing.T, store instance.Store, defs ...definition.ProcessDefinition) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := definition.NewService(definition.NewInMemoryStore(), logger)
	ctx := requestcontext.WithTime(context.Background(), time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC))

	if len(defs) == 0 {
		defs = []definition.ProcessDefinition{licenseApplication()}
	}
	for _, def := range defs {
		_, err := registry.Publish(ctx, def)
		require.NoError(t, err)
	}

	sink := &recordingSink{}
	return &fixture{
		engine: New(registry, store, sink, nil, logger, 3),
		store:  store,
		sink:   sink,
		ctx:    ctx,
	}
}

func TestStartCreatesInstanceAtStartStep(t *testing.T) {
	f := newFixture(t, instance.NewInMemoryStore())

	inst, err := f.engine.Start(f.ctx, StartParams{
		DefinitionName: "license_application",
		InstanceID:     "case-1",
		Context:        map[string]any{"business_name": "Corner Bakery"},
		CallerID:       "licensing-module",
	})
	require.NoError(t, err)

	assert.Equal(t, "draft", inst.CurrentStepID)
	assert.Equal(t, instance.StatusActive, inst.Status)
	assert.Equal(t, int64(0), inst.Version)
	assert.Empty(t, inst.History)
	assert.Equal(t, 1, inst.DefinitionVersion, "resolved to latest published version")
	assert.Equal(t, []events.Type{events.TypeProcessStarted}, f.sink.types())
}

func TestStartGeneratesIDWhenOmitted(t *testing.T) {
	f := newFixture(t, instance.NewInMemoryStore())

	inst, err := f.engine.Start(f.ctx, StartParams{DefinitionName: "license_application"})
	require.NoError(t, err)
	assert.NotEmpty(t, inst.ID)
}

func TestStartDuplicateID(t *testing.T) {
	f := newFixture(t, instance.NewInMemoryStore())

	_, err := f.engine.Start(f.ctx, StartParams{DefinitionName: "license_application", InstanceID: "case-1"})
	require.NoError(t, err)

	_, err = f.engine.Start(f.ctx, StartParams{DefinitionName: "license_application", InstanceID: "case-1"})
	assert.Equal(t, dErrors.CodeDuplicateID, dErrors.CodeOf(err))
}

func TestStartUnknownDefinition(t *testing.T) {
	f := newFixture(t, instance.NewInMemoryStore())

	_, err := f.engine.Start(f.ctx, StartParams{DefinitionName: "ghost_workflow"})
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
}

// The full licensing walk: draft -> submitted -> document_review ->
// additional_info -> document_review, four transitions by two roles.
func TestAdvanceWalksReviewLoop(t *testing.T) {
	f := newFixture(t, instance.NewInMemoryStore())
	_, err := f.engine.Start(f.ctx, StartParams{DefinitionName: "license_application", InstanceID: "case-1"})
	require.NoError(t, err)

	steps := []struct {
		to, actor, role string
	}{
		{"submitted", "u-applicant", "applicant"},
		{"document_review", "u-officer", "officer"},
		{"additional_info", "u-officer", "officer"},
		{"document_review", "u-applicant", "applicant"},
	}
	var inst instance.ProcessInstance
	for _, s := range steps {
		inst, err = f.engine.Advance(f.ctx, "case-1", s.to, s.actor, s.role, "")
		require.NoError(t, err)
	}

	assert.Equal(t, "document_review", inst.CurrentStepID)
	assert.Equal(t, instance.StatusActive, inst.Status)
	assert.Equal(t, int64(4), inst.Version)
	require.Len(t, inst.History, 4)

	// No-skip invariant: consecutive records chain, starting at the start
	// step.
	assert.Equal(t, "draft", inst.History[0].FromStepID)
	for i := 1; i < len(inst.History); i++ {
		assert.Equal(t, inst.History[i-1].ToStepID, inst.History[i].FromStepID)
	}
}

func TestAdvanceRejectsSkippedStep(t *testing.T) {
	f := newFixture(t, instance.NewInMemoryStore())
	_, err := f.engine.Start(f.ctx, StartParams{DefinitionName: "license_application", InstanceID: "case-1"})
	require.NoError(t, err)

	_, err = f.engine.Advance(f.ctx, "case-1", "approved", "u-applicant", "applicant", "")
	assert.Equal(t, dErrors.CodeInvalidTransition, dErrors.CodeOf(err))

	// Rejected call leaves the stored instance unchanged.
	got, err := f.engine.Get(f.ctx, "case-1")
	require.NoError(t, err)
	assert.Equal(t, "draft", got.CurrentStepID)
	assert.Empty(t, got.History)
	assert.Equal(t, int64(0), got.Version)
}

func TestAdvanceRejectsWrongRole(t *testing.T) {
	f := newFixture(t, instance.NewInMemoryStore())
	_, err := f.engine.Start(f.ctx, StartParams{DefinitionName: "license_application", InstanceID: "case-1"})
	require.NoError(t, err)
	_, err = f.engine.Advance(f.ctx, "case-1", "submitted", "u-1", "applicant", "")
	require.NoError(t, err)
	_, err = f.engine.Advance(f.ctx, "case-1", "document_review", "u-2", "officer", "")
	require.NoError(t, err)

	_, err = f.engine.Advance(f.ctx, "case-1", "approved", "u-1", "applicant", "")
	assert.Equal(t, dErrors.CodeForbidden, dErrors.CodeOf(err))
}

func TestAdvanceIntoTerminalStepCompletes(t *testing.T) {
	f := newFixture(t, instance.NewInMemoryStore())
	_, err := f.engine.Start(f.ctx, StartParams{DefinitionName: "license_application", InstanceID: "case-1"})
	require.NoError(t, err)
	_, err = f.engine.Advance(f.ctx, "case-1", "submitted", "u-1", "applicant", "")
	require.NoError(t, err)
	_, err = f.engine.Advance(f.ctx, "case-1", "document_review", "u-2", "officer", "")
	require.NoError(t, err)

	inst, err := f.engine.Advance(f.ctx, "case-1", "approved", "u-2", "officer", "all documents verified")
	require.NoError(t, err)
	assert.Equal(t, instance.StatusCompleted, inst.Status)
	assert.Equal(t, "approved", inst.CurrentStepID)
	assert.Equal(t, "all documents verified", inst.History[len(inst.History)-1].Note)
	assert.Contains(t, f.sink.types(), events.TypeProcessCompleted)

	// Terminal finality: nothing advances a completed instance.
	_, err = f.engine.Advance(f.ctx, "case-1", "rejected", "u-2", "officer", "")
	assert.Equal(t, dErrors.CodeTerminalState, dErrors.CodeOf(err))
}

func TestAdvanceUnknownInstance(t *testing.T) {
	f := newFixture(t, instance.NewInMemoryStore())
	_, err := f.engine.Advance(f.ctx, "case-404", "submitted", "u-1", "applicant", "")
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func TestAdvanceRetriesThroughConflicts(t *testing.T) {
	inner := instance.NewInMemoryStore()
	store := &conflictingStore{Store: inner, conflicts: 2}
	f := newFixture(t, store)
	_, err := f.engine.Start(f.ctx, StartParams{DefinitionName: "license_application", InstanceID: "case-1"})
	require.NoError(t, err)

	inst, err := f.engine.Advance(f.ctx, "case-1", "submitted", "u-1", "applicant", "")
	require.NoError(t, err, "two conflicts fit within three attempts")
	assert.Equal(t, "submitted", inst.CurrentStepID)
}

func TestAdvanceSurfacesConflictAfterBoundedRetry(t *testing.T) {
	inner := instance.NewInMemoryStore()
	store := &conflictingStore{Store: inner, conflicts: 3}
	f := newFixture(t, store)
	_, err := f.engine.Start(f.ctx, StartParams{DefinitionName: "license_application", InstanceID: "case-1"})
	require.NoError(t, err)

	_, err = f.engine.Advance(f.ctx, "case-1", "submitted", "u-1", "applicant", "")
	assert.Equal(t, dErrors.CodeVersionConflict, dErrors.CodeOf(err))
}

// Re-validation against fresh state: an instance cancelled between read and
// write must come back TerminalState, not VersionConflict.
func TestAdvanceRevalidatesAfterConflict(t *testing.T) {
	inner := instance.NewInMemoryStore()
	store := &conflictingStore{Store: inner, conflicts: 1}
	f := newFixture(t, store)
	_, err := f.engine.Start(f.ctx, StartParams{DefinitionName: "license_application", InstanceID: "case-1"})
	require.NoError(t, err)

	// The competing writer cancels the instance while our Advance is in
	// flight. The retried attempt must see the fresh terminal status.
	store.onConflict = func() {
		_, casErr := inner.CompareAndSwap(f.ctx, "case-1", 0, func(inst *instance.ProcessInstance) error {
			inst.Status = instance.StatusCancelled
			return nil
		})
		require.NoError(t, casErr)
	}

	_, err = f.engine.Advance(f.ctx, "case-1", "submitted", "u-1", "applicant", "")
	assert.Equal(t, dErrors.CodeTerminalState, dErrors.CodeOf(err))
}

func TestConcurrentAdvanceExactlyOneWins(t *testing.T) {
	f := newFixture(t, instance.NewInMemoryStore())
	_, err := f.engine.Start(f.ctx, StartParams{DefinitionName: "license_application", InstanceID: "case-1"})
	require.NoError(t, err)

	// Retry disabled so both callers race the same expected version.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := definition.NewService(definition.NewInMemoryStore(), logger)
	_, err = registry.Publish(f.ctx, licenseApplication())
	require.NoError(t, err)
	eng := New(registry, f.store, f.sink, nil, logger, 1)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.Advance(f.ctx, "case-1", "submitted", "u-1", "applicant", "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	// The loser sees either a CAS conflict (raced the same version) or an
	// invalid transition (read fresh state after the winner committed).
	var successes, losses int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case dErrors.Is(err, dErrors.CodeVersionConflict), dErrors.Is(err, dErrors.CodeInvalidTransition):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, losses)

	got, err := eng.Get(f.ctx, "case-1")
	require.NoError(t, err)
	assert.Len(t, got.History, 1, "exactly one transition recorded")
}

func TestCancel(t *testing.T) {
	f := newFixture(t, instance.NewInMemoryStore())
	_, err := f.engine.Start(f.ctx, StartParams{DefinitionName: "license_application", InstanceID: "case-1"})
	require.NoError(t, err)

	inst, err := f.engine.Cancel(f.ctx, "case-1", "u-admin", "application withdrawn")
	require.NoError(t, err)
	assert.Equal(t, instance.StatusCancelled, inst.Status)
	require.Len(t, inst.History, 1)
	assert.Equal(t, "application withdrawn", inst.History[0].Note)
	assert.Contains(t, f.sink.types(), events.TypeProcessCancelled)

	// Idempotent: same state back, no new history entry, no new event.
	emitted := len(f.sink.types())
	again, err := f.engine.Cancel(f.ctx, "case-1", "u-admin", "application withdrawn")
	require.NoError(t, err)
	assert.Equal(t, inst.Version, again.Version)
	assert.Len(t, again.History, 1)
	assert.Len(t, f.sink.types(), emitted)
}

func TestCancelCompletedInstance(t *testing.T) {
	f := newFixture(t, instance.NewInMemoryStore())
	_, err := f.engine.Start(f.ctx, StartParams{DefinitionName: "license_application", InstanceID: "case-1"})
	require.NoError(t, err)
	for _, s := range [][3]string{
		{"submitted", "u-1", "applicant"},
		{"document_review", "u-2", "officer"},
		{"approved", "u-2", "officer"},
	} {
		_, err = f.engine.Advance(f.ctx, "case-1", s[0], s[1], s[2], "")
		require.NoError(t, err)
	}

	_, err = f.engine.Cancel(f.ctx, "case-1", "u-admin", "late withdrawal")
	assert.Equal(t, dErrors.CodeTerminalState, dErrors.CodeOf(err))
}

func TestCancelNotPermittedByDefinition(t *testing.T) {
	def := licenseApplication()
	def.AllowCancel = false
	f := newFixture(t, instance.NewInMemoryStore(), def)
	_, err := f.engine.Start(f.ctx, StartParams{DefinitionName: "license_application", InstanceID: "case-1"})
	require.NoError(t, err)

	_, err = f.engine.Cancel(f.ctx, "case-1", "u-admin", "withdrawn")
	assert.Equal(t, dErrors.CodeForbidden, dErrors.CodeOf(err))
}

// farmInspection has an auto-advancing verification step resolved by the
// document-verification collaborator.
func farmInspection() definition.ProcessDefinition {
	return definition.ProcessDefinition{
		Name:        "farm_inspection",
		Version:     1,
		AllowCancel: true,
		Steps: []definition.StepDefinition{
			{ID: "scheduled", Kind: definition.KindStart, Next: []definition.TransitionRule{
				{To: "verification", ExitRoles: []string{"inspector"}},
			}},
			{ID: "verification", Kind: definition.KindSystemAction, AutoAdvance: true, Next: []definition.TransitionRule{
				{To: "passed"},
				{To: "failed"},
			}},
			{ID: "passed", Kind: definition.KindTerminalSuccess},
			{ID: "failed", Kind: definition.KindTerminalFailure},
		},
	}
}

func TestAutoAdvance(t *testing.T) {
	f := newFixture(t, instance.NewInMemoryStore(), farmInspection())
	_, err := f.engine.Start(f.ctx, StartParams{DefinitionName: "farm_inspection", InstanceID: "insp-1"})
	require.NoError(t, err)
	_, err = f.engine.Advance(f.ctx, "insp-1", "verification", "u-3", "inspector", "")
	require.NoError(t, err)

	inst, err := f.engine.AutoAdvance(f.ctx, "insp-1", "passed")
	require.NoError(t, err)
	assert.Equal(t, instance.StatusCompleted, inst.Status)
	last := inst.History[len(inst.History)-1]
	assert.Equal(t, SystemActorID, last.ActorID)
}

func TestAutoAdvanceRejectsNonSystemStep(t *testing.T) {
	f := newFixture(t, instance.NewInMemoryStore(), farmInspection())
	_, err := f.engine.Start(f.ctx, StartParams{DefinitionName: "farm_inspection", InstanceID: "insp-1"})
	require.NoError(t, err)

	_, err = f.engine.AutoAdvance(f.ctx, "insp-1", "verification")
	assert.Equal(t, dErrors.CodeNotAutoAdvanceable, dErrors.CodeOf(err))
}

func TestAutoAdvanceRejectsUndeclaredEdge(t *testing.T) {
	f := newFixture(t, instance.NewInMemoryStore(), farmInspection())
	_, err := f.engine.Start(f.ctx, StartParams{DefinitionName: "farm_inspection", InstanceID: "insp-1"})
	require.NoError(t, err)
	_, err = f.engine.Advance(f.ctx, "insp-1", "verification", "u-3", "inspector", "")
	require.NoError(t, err)

	_, err = f.engine.AutoAdvance(f.ctx, "insp-1", "scheduled")
	assert.Equal(t, dErrors.CodeInvalidTransition, dErrors.CodeOf(err))
}

func TestEmitFailureDoesNotRollBackTransition(t *testing.T) {
	f := newFixture(t, instance.NewInMemoryStore())
	f.sink.err = assert.AnError

	_, err := f.engine.Start(f.ctx, StartParams{DefinitionName: "license_application", InstanceID: "case-1"})
	require.NoError(t, err, "sink failure is best-effort")

	inst, err := f.engine.Advance(f.ctx, "case-1", "submitted", "u-1", "applicant", "")
	require.NoError(t, err)
	assert.Equal(t, "submitted", inst.CurrentStepID)
}

func TestHistoryRecordsEmittedEventIDs(t *testing.T) {
	f := newFixture(t, instance.NewInMemoryStore())
	_, err := f.engine.Start(f.ctx, StartParams{DefinitionName: "license_application", InstanceID: "case-1"})
	require.NoError(t, err)

	inst, err := f.engine.Advance(f.ctx, "case-1", "submitted", "u-1", "applicant", "")
	require.NoError(t, err)

	require.Len(t, inst.History, 1)
	require.Len(t, inst.History[0].EventsEmitted, 1)
	last := f.sink.events[len(f.sink.events)-1]
	assert.Equal(t, inst.History[0].EventsEmitted[0], last.ID)
}

func TestQueryPassthrough(t *testing.T) {
	f := newFixture(t, instance.NewInMemoryStore())
	_, err := f.engine.Start(f.ctx, StartParams{DefinitionName: "license_application", InstanceID: "case-1"})
	require.NoError(t, err)

	pending, err := f.engine.Query(f.ctx, instance.Filter{Status: instance.StatusActive})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "case-1", pending[0].ID)
}
