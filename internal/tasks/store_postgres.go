package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initTaskSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initTaskSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			course TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			due_at TIMESTAMPTZ NOT NULL,
			estimated_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
			priority TEXT NOT NULL,
			status TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user_due ON tasks (user_id, due_at ASC);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init task schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveTask(ctx context.Context, task Task) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tasks (
			id, user_id, title, course, kind, due_at, estimated_hours, priority, status, source, created_at, updated_at
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
		)
		ON CONFLICT (id) DO UPDATE SET
			user_id=EXCLUDED.user_id,
			title=EXCLUDED.title,
			course=EXCLUDED.course,
			kind=EXCLUDED.kind,
			due_at=EXCLUDED.due_at,
			estimated_hours=EXCLUDED.estimated_hours,
			priority=EXCLUDED.priority,
			status=EXCLUDED.status,
			source=EXCLUDED.source,
			updated_at=EXCLUDED.updated_at`,
		task.ID,
		task.UserID,
		task.Title,
		task.Course,
		string(task.Kind),
		task.DueAt,
		task.EstimatedHours,
		string(task.Priority),
		string(task.Status),
		task.Source,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert task: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTask(ctx context.Context, taskID string) (Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, title, course, kind, due_at, estimated_hours, priority, status, source, created_at, updated_at
		   FROM tasks WHERE id=$1`,
		taskID,
	)
	task, err := scanTask(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Task{}, ErrStoreNotFound
		}
		return Task{}, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func (s *PostgresStore) ListTasksByUser(ctx context.Context, userID string) ([]Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, title, course, kind, due_at, estimated_hours, priority, status, source, created_at, updated_at
		   FROM tasks WHERE user_id=$1 ORDER BY due_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanTask(row pgx.Row) (Task, error) {
	var (
		task     Task
		kind     string
		priority string
		status   string
	)
	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Course,
		&kind,
		&task.DueAt,
		&task.EstimatedHours,
		&priority,
		&status,
		&task.Source,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return Task{}, err
	}
	task.Kind = Kind(kind)
	task.Priority = Priority(priority)
	task.Status = Status(status)
	return task, nil
}
