package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSubscriber struct {
	events []Event
	err    error
}

func (s *recordingSubscriber) Handle(_ context.Context, event Event) error {
	s.events = append(s.events, event)
	return s.err
}

func newTestDispatcher() *Dispatcher {
	return NewDispatcher(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testEvent(eventType Type) Event {
	return Event{
		ID:             "ev-1",
		Type:           eventType,
		InstanceID:     "case-1",
		DefinitionName: "license_application",
		OccurredAt:     time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC),
	}
}

func TestEmitDeliversToMatchingSubscribers(t *testing.T) {
	d := newTestDispatcher()
	started := &recordingSubscriber{}
	advanced := &recordingSubscriber{}
	d.Subscribe(TypeProcessStarted, started)
	d.Subscribe(TypeProcessAdvanced, advanced)

	require.NoError(t, d.Emit(context.Background(), testEvent(TypeProcessStarted)))

	assert.Len(t, started.events, 1)
	assert.Empty(t, advanced.events)
}

func TestEmitDeliversToCatchAll(t *testing.T) {
	d := newTestDispatcher()
	audit := &recordingSubscriber{}
	d.SubscribeAll(audit)

	require.NoError(t, d.Emit(context.Background(), testEvent(TypeProcessStarted)))
	require.NoError(t, d.Emit(context.Background(), testEvent(TypeProcessCancelled)))

	assert.Len(t, audit.events, 2)
}

func TestEmitSwallowsSubscriberErrors(t *testing.T) {
	d := newTestDispatcher()
	failing := &recordingSubscriber{err: errors.New("notification service down")}
	healthy := &recordingSubscriber{}
	d.Subscribe(TypeProcessCompleted, failing)
	d.Subscribe(TypeProcessCompleted, healthy)

	err := d.Emit(context.Background(), testEvent(TypeProcessCompleted))

	require.NoError(t, err, "subscriber failures never propagate")
	assert.Len(t, healthy.events, 1, "later subscribers still run")
}
