package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables the stores expect. Statements are
// idempotent so repeated startups against the same database are safe.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS process_definitions (
			name         TEXT      NOT NULL,
			version      INTEGER   NOT NULL,
			allow_cancel BOOLEAN   NOT NULL,
			document     JSONB     NOT NULL,
			published_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (name, version)
		)`,
		`CREATE TABLE IF NOT EXISTS process_instances (
			id                 TEXT        NOT NULL PRIMARY KEY,
			definition_name    TEXT        NOT NULL,
			definition_version INTEGER     NOT NULL,
			current_step_id    TEXT        NOT NULL,
			status             TEXT        NOT NULL,
			context            JSONB,
			version            BIGINT      NOT NULL,
			created_at         TIMESTAMPTZ NOT NULL,
			updated_at         TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_process_instances_query
			ON process_instances (definition_name, status, updated_at DESC)`,
		`CREATE TABLE IF NOT EXISTS process_history (
			instance_id    TEXT        NOT NULL REFERENCES process_instances (id),
			seq            INTEGER     NOT NULL,
			from_step_id   TEXT        NOT NULL,
			to_step_id     TEXT        NOT NULL,
			actor_id       TEXT        NOT NULL,
			actor_role     TEXT        NOT NULL,
			note           TEXT        NOT NULL DEFAULT '',
			events_emitted JSONB,
			occurred_at    TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (instance_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS event_outbox (
			id           TEXT        NOT NULL PRIMARY KEY,
			event_id     TEXT        NOT NULL,
			event_type   TEXT        NOT NULL,
			instance_id  TEXT        NOT NULL,
			payload      JSONB       NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL,
			published_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_event_outbox_unpublished
			ON event_outbox (created_at) WHERE published_at IS NULL`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
