package events

import (
	"context"
	"log/slog"
)

// LogSubscriber writes every event to the structured log. Serves as the
// default audit collaborator when no external audit service is wired.
type LogSubscriber struct {
	logger *slog.Logger
}

func NewLogSubscriber(logger *slog.Logger) *LogSubscriber {
	return &LogSubscriber{logger: logger}
}

func (s *LogSubscriber) Handle(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "process event",
		"event_id", event.ID,
		"event_type", string(event.Type),
		"instance_id", event.InstanceID,
		"definition", event.DefinitionName,
		"occurred_at", event.OccurredAt,
	)
	return nil
}
