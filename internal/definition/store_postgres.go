package definition

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"caseflow/pkg/sentinel"
)

// PostgresStore persists definitions in PostgreSQL. The full step graph is
// stored as a JSONB document; name and version are relational columns so
// lookups and version listings stay indexed.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed definition store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const pgUniqueViolation = "23505"

func (s *PostgresStore) Save(ctx context.Context, def ProcessDefinition) error {
	document, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}

	query := `
		INSERT INTO process_definitions (name, version, allow_cancel, document, published_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = s.db.ExecContext(ctx, query,
		def.Name,
		def.Version,
		def.AllowCancel,
		document,
		def.PublishedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return sentinel.ErrDuplicate
		}
		return fmt.Errorf("insert definition: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, name string, version int) (ProcessDefinition, error) {
	query := `
		SELECT document
		FROM process_definitions
		WHERE name = $1 AND version = $2
	`
	return s.scanDefinition(s.db.QueryRowContext(ctx, query, name, version))
}

func (s *PostgresStore) FindLatest(ctx context.Context, name string) (ProcessDefinition, error) {
	query := `
		SELECT document
		FROM process_definitions
		WHERE name = $1
		ORDER BY version DESC
		LIMIT 1
	`
	return s.scanDefinition(s.db.QueryRowContext(ctx, query, name))
}

func (s *PostgresStore) Versions(ctx context.Context, name string) ([]int, error) {
	query := `
		SELECT version
		FROM process_definitions
		WHERE name = $1
		ORDER BY version ASC
	`
	rows, err := s.db.QueryContext(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("query definition versions: %w", err)
	}
	defer rows.Close()

	versions := make([]int, 0)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan definition version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate definition versions: %w", err)
	}
	return versions, nil
}

func (s *PostgresStore) scanDefinition(row *sql.Row) (ProcessDefinition, error) {
	var document []byte
	if err := row.Scan(&document); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ProcessDefinition{}, sentinel.ErrNotFound
		}
		return ProcessDefinition{}, fmt.Errorf("scan definition: %w", err)
	}
	var def ProcessDefinition
	if err := json.Unmarshal(document, &def); err != nil {
		return ProcessDefinition{}, fmt.Errorf("unmarshal definition: %w", err)
	}
	return def, nil
}
