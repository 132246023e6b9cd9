// Package postgres is the pgx/v5-backed CheckpointStore.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

type Store struct {
	pool *pgxpool.Pool
}

// Setup is idempotent: safe to call on every process start, once per
// checkpointer lifetime.
func (s *Store) Setup(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS graph_checkpoints (
    thread_id UUID PRIMARY KEY,
    state JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
	return err
}

func (s *Store) Load(ctx context.Context, threadID string) ([]byte, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT state FROM graph_checkpoints WHERE thread_id = $1`, threadID)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return raw, true, nil
}

func (s *Store) Save(ctx context.Context, threadID string, state []byte) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO graph_checkpoints (thread_id, state, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (thread_id) DO UPDATE SET state = EXCLUDED.state, updated_at = NOW()`, threadID, state)
	return err
}
