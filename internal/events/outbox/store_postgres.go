package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"caseflow/internal/events"
)

// PostgresStore implements the event outbox on PostgreSQL. Events are
// appended as JSONB payloads and published to Kafka by the outbox worker.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres creates a PostgreSQL-backed outbox store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal outbox event: %w", err)
	}

	query := `
		INSERT INTO event_outbox (id, event_id, event_type, instance_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.NewString(),
		event.ID,
		string(event.Type),
		event.InstanceID,
		payload,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListUnpublished(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, payload, created_at
		FROM event_outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			entry   Entry
			payload []byte
		)
		if err := rows.Scan(&entry.ID, &payload, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		if err := json.Unmarshal(payload, &entry.Event); err != nil {
			return nil, fmt.Errorf("unmarshal outbox event: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) MarkPublished(ctx context.Context, ids []string, publishedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE event_outbox
		SET published_at = $1
		WHERE id = ANY($2)
	`
	if _, err := s.db.ExecContext(ctx, query, publishedAt, ids); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
