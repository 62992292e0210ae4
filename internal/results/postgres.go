package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/intelforge/collector-worker/internal/collector"
)

// DBTX is the subset of pgxpool.Pool the store needs, kept narrow so tests
// can substitute pgxmock.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists task records in PostgreSQL.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// Connect opens a pgx pool against the DSN and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

const createTaskSQL = `INSERT INTO collector_tasks
	(task_id, name, source_id, status, attempts, enqueued_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

// Create stores a pending task record.
func (s *PostgresStore) Create(ctx context.Context, rec collector.TaskRecord) error {
	_, err := s.db.Exec(ctx, createTaskSQL,
		rec.TaskID, string(rec.Name), rec.SourceID, string(rec.Status), rec.Attempts, rec.EnqueuedAt)
	if err != nil {
		return fmt.Errorf("insert task %s: %w", rec.TaskID, err)
	}
	return nil
}

const markStartedSQL = `UPDATE collector_tasks
	SET status = $2, started_at = $3
	WHERE task_id = $1`

// MarkStarted flips a record to started and stamps the start time.
func (s *PostgresStore) MarkStarted(ctx context.Context, taskID string, at time.Time) error {
	tag, err := s.db.Exec(ctx, markStartedSQL, taskID, string(collector.TaskStatusStarted), at)
	if err != nil {
		return fmt.Errorf("mark task %s started: %w", taskID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

const completeTaskSQL = `UPDATE collector_tasks
	SET status = $2, result = $3, items = $4, attempts = $5, finished_at = $6
	WHERE task_id = $1`

// Complete records the final state of a task.
func (s *PostgresStore) Complete(ctx context.Context, rec collector.TaskRecord) error {
	items, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("encode items for task %s: %w", rec.TaskID, err)
	}
	tag, err := s.db.Exec(ctx, completeTaskSQL,
		rec.TaskID, string(rec.Status), rec.Result, items, rec.Attempts, rec.FinishedAt)
	if err != nil {
		return fmt.Errorf("complete task %s: %w", rec.TaskID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

const getTaskSQL = `SELECT task_id, name, source_id, status, COALESCE(result, ''),
	COALESCE(items, 'null'), attempts, enqueued_at, started_at, finished_at
	FROM collector_tasks WHERE task_id = $1`

// Get returns the record for a task id.
func (s *PostgresStore) Get(ctx context.Context, taskID string) (collector.TaskRecord, error) {
	var (
		rec      collector.TaskRecord
		name     string
		status   string
		rawItems []byte
	)
	err := s.db.QueryRow(ctx, getTaskSQL, taskID).Scan(
		&rec.TaskID, &name, &rec.SourceID, &status, &rec.Result,
		&rawItems, &rec.Attempts, &rec.EnqueuedAt, &rec.StartedAt, &rec.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return collector.TaskRecord{}, ErrTaskNotFound
	}
	if err != nil {
		return collector.TaskRecord{}, fmt.Errorf("select task %s: %w", taskID, err)
	}
	rec.Name = collector.TaskName(name)
	rec.Status = collector.TaskStatus(status)
	if len(rawItems) > 0 {
		if err := json.Unmarshal(rawItems, &rec.Items); err != nil {
			return collector.TaskRecord{}, fmt.Errorf("decode items for task %s: %w", taskID, err)
		}
	}
	return rec, nil
}
