package instance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"caseflow/pkg/sentinel"
)

// PostgresStore persists instances in PostgreSQL. The instance row and its
// history rows are written in one transaction; a SELECT ... FOR UPDATE plus
// a version-checked UPDATE gives compare-and-swap semantics even across
// multiple server processes.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed instance store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const pgUniqueViolation = "23505"

func (s *PostgresStore) Create(ctx context.Context, inst ProcessInstance) error {
	contextBytes, err := json.Marshal(inst.Context)
	if err != nil {
		return fmt.Errorf("marshal instance context: %w", err)
	}

	query := `
		INSERT INTO process_instances (
			id, definition_name, definition_version, current_step_id,
			status, context, version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(ctx, query,
		inst.ID,
		inst.DefinitionName,
		inst.DefinitionVersion,
		inst.CurrentStepID,
		string(inst.Status),
		contextBytes,
		inst.Version,
		inst.CreatedAt,
		inst.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return sentinel.ErrDuplicate
		}
		return fmt.Errorf("insert instance: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (ProcessInstance, error) {
	inst, err := s.getInstanceRow(ctx, s.db, id, false)
	if err != nil {
		return ProcessInstance{}, err
	}
	history, err := s.getHistory(ctx, s.db, id)
	if err != nil {
		return ProcessInstance{}, err
	}
	inst.History = history
	return inst, nil
}

func (s *PostgresStore) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, mutate Mutation) (ProcessInstance, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ProcessInstance{}, fmt.Errorf("begin cas transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := s.getInstanceRow(ctx, tx, id, true)
	if err != nil {
		return ProcessInstance{}, err
	}
	if current.Version != expectedVersion {
		return ProcessInstance{}, sentinel.ErrConflict
	}
	history, err := s.getHistory(ctx, tx, id)
	if err != nil {
		return ProcessInstance{}, err
	}
	current.History = history

	next := current.Clone()
	if err := mutate(&next); err != nil {
		return ProcessInstance{}, err
	}
	next.Version = expectedVersion + 1

	contextBytes, err := json.Marshal(next.Context)
	if err != nil {
		return ProcessInstance{}, fmt.Errorf("marshal instance context: %w", err)
	}

	update := `
		UPDATE process_instances
		SET current_step_id = $1, status = $2, context = $3, version = $4, updated_at = $5
		WHERE id = $6 AND version = $7
	`
	res, err := tx.ExecContext(ctx, update,
		next.CurrentStepID,
		string(next.Status),
		contextBytes,
		next.Version,
		next.UpdatedAt,
		id,
		expectedVersion,
	)
	if err != nil {
		return ProcessInstance{}, fmt.Errorf("update instance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return ProcessInstance{}, fmt.Errorf("update instance rows affected: %w", err)
	}
	if affected == 0 {
		return ProcessInstance{}, sentinel.ErrConflict
	}

	for seq := len(current.History); seq < len(next.History); seq++ {
		if err := s.insertHistory(ctx, tx, id, seq, next.History[seq]); err != nil {
			return ProcessInstance{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return ProcessInstance{}, fmt.Errorf("commit cas transaction: %w", err)
	}
	return next, nil
}

func (s *PostgresStore) Query(ctx context.Context, filter Filter) ([]ProcessInstance, error) {
	query := `
		SELECT DISTINCT i.id, i.definition_name, i.definition_version, i.current_step_id,
		       i.status, i.context, i.version, i.created_at, i.updated_at
		FROM process_instances i
	`
	args := make([]any, 0, 5)
	where := ""
	and := func(clause string, value any) {
		args = append(args, value)
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		where += fmt.Sprintf(clause, len(args))
	}

	if filter.ActorRole != "" {
		query += ` JOIN process_history h ON h.instance_id = i.id`
		and("h.actor_role = $%d", filter.ActorRole)
	}
	if filter.DefinitionName != "" {
		and("i.definition_name = $%d", filter.DefinitionName)
	}
	if filter.Status != "" {
		and("i.status = $%d", string(filter.Status))
	}

	query += where + ` ORDER BY i.updated_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query instances: %w", err)
	}
	defer rows.Close()

	instances := make([]ProcessInstance, 0)
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instances: %w", err)
	}
	return instances, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) getInstanceRow(ctx context.Context, q querier, id string, forUpdate bool) (ProcessInstance, error) {
	query := `
		SELECT id, definition_name, definition_version, current_step_id,
		       status, context, version, created_at, updated_at
		FROM process_instances
		WHERE id = $1
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	inst, err := scanInstance(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ProcessInstance{}, sentinel.ErrNotFound
		}
		return ProcessInstance{}, err
	}
	return inst, nil
}

func (s *PostgresStore) getHistory(ctx context.Context, q querier, id string) ([]TransitionRecord, error) {
	query := `
		SELECT from_step_id, to_step_id, actor_id, actor_role, note, events_emitted, occurred_at
		FROM process_history
		WHERE instance_id = $1
		ORDER BY seq ASC
	`
	rows, err := q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	history := make([]TransitionRecord, 0)
	for rows.Next() {
		var (
			rec    TransitionRecord
			events []byte
		)
		if err := rows.Scan(&rec.FromStepID, &rec.ToStepID, &rec.ActorID, &rec.ActorRole, &rec.Note, &events, &rec.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}
		if len(events) > 0 {
			if err := json.Unmarshal(events, &rec.EventsEmitted); err != nil {
				return nil, fmt.Errorf("unmarshal events emitted: %w", err)
			}
		}
		history = append(history, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return history, nil
}

func (s *PostgresStore) insertHistory(ctx context.Context, q querier, id string, seq int, rec TransitionRecord) error {
	events, err := json.Marshal(rec.EventsEmitted)
	if err != nil {
		return fmt.Errorf("marshal events emitted: %w", err)
	}
	query := `
		INSERT INTO process_history (
			instance_id, seq, from_step_id, to_step_id,
			actor_id, actor_role, note, events_emitted, occurred_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := q.ExecContext(ctx, query,
		id, seq, rec.FromStepID, rec.ToStepID,
		rec.ActorID, rec.ActorRole, rec.Note, events, rec.OccurredAt,
	); err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstance(row rowScanner) (ProcessInstance, error) {
	var (
		inst         ProcessInstance
		status       string
		contextBytes []byte
	)
	err := row.Scan(
		&inst.ID,
		&inst.DefinitionName,
		&inst.DefinitionVersion,
		&inst.CurrentStepID,
		&status,
		&contextBytes,
		&inst.Version,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)
	if err != nil {
		return ProcessInstance{}, err
	}
	inst.Status = Status(status)
	if len(contextBytes) > 0 {
		if err := json.Unmarshal(contextBytes, &inst.Context); err != nil {
			return ProcessInstance{}, fmt.Errorf("unmarshal instance context: %w", err)
		}
	}
	return inst, nil
}
