package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps one row per user holding the current plan as JSONB.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initPlanSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initPlanSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmt := `CREATE TABLE IF NOT EXISTS weekly_plans (
		user_id TEXT PRIMARY KEY,
		plan_id TEXT NOT NULL,
		plan JSONB NOT NULL,
		anchored_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("init plan schema failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) SavePlan(ctx context.Context, plan WeeklyPlan) error {
	payload, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO weekly_plans (user_id, plan_id, plan, anchored_at, created_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (user_id) DO UPDATE SET
			plan_id=EXCLUDED.plan_id,
			plan=EXCLUDED.plan,
			anchored_at=EXCLUDED.anchored_at,
			created_at=EXCLUDED.created_at`,
		plan.UserID, plan.ID, payload, plan.AnchoredAt, plan.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert plan: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadPlan(ctx context.Context, userID string) (WeeklyPlan, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT plan FROM weekly_plans WHERE user_id=$1`, userID,
	).Scan(&payload)
	if err != nil {
		if err == pgx.ErrNoRows {
			return WeeklyPlan{}, ErrPlanNotFound
		}
		return WeeklyPlan{}, fmt.Errorf("load plan: %w", err)
	}
	var plan WeeklyPlan
	if err := json.Unmarshal(payload, &plan); err != nil {
		return WeeklyPlan{}, fmt.Errorf("decode plan: %w", err)
	}
	return plan, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
