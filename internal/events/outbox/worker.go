package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Publisher delivers one serialized event to the message broker.
// *kafka.Client satisfies this.
type Publisher interface {
	ProduceSync(ctx context.Context, topic string, key, value []byte) error
}

// Worker drains the outbox to Kafka. It runs outside the engine, owned by
// cmd/server; the engine itself never starts background goroutines.
type Worker struct {
	store        Store
	publisher    Publisher
	topic        string
	pollInterval time.Duration
	batchSize    int
	logger       *slog.Logger
}

func NewWorker(store Store, publisher Publisher, topic string, pollInterval time.Duration, batchSize int, logger *slog.Logger) *Worker {
	return &Worker{
		store:        store,
		publisher:    publisher,
		topic:        topic,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// Run polls until the context is cancelled. Publish failures leave rows
// unpublished; the next poll retries them, so delivery is at-least-once and
// consumers must dedupe on event ID.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drainOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

func (w *Worker) drainOnce(ctx context.Context) error {
	entries, err := w.store.ListUnpublished(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list unpublished: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	published := make([]string, 0, len(entries))
	for _, entry := range entries {
		value, err := json.Marshal(entry.Event)
		if err != nil {
			w.logger.ErrorContext(ctx, "unmarshalable outbox event, skipping",
				"outbox_id", entry.ID,
				"error", err,
			)
			continue
		}
		// Key by instance ID so one instance's events stay ordered within
		// a partition.
		if err := w.publisher.ProduceSync(ctx, w.topic, []byte(entry.Event.InstanceID), value); err != nil {
			w.logger.ErrorContext(ctx, "outbox publish failed",
				"outbox_id", entry.ID,
				"event_id", entry.Event.ID,
				"error", err,
			)
			break
		}
		published = append(published, entry.ID)
	}

	if len(published) == 0 {
		return nil
	}
	if err := w.store.MarkPublished(ctx, published, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	return nil
}
