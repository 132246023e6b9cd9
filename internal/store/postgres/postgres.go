// Package postgres is the pgx/v5-backed Store used in production.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"agentrt/internal/domain"
)

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

type Store struct {
	pool *pgxpool.Pool
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Setup creates the schema if missing. Idempotent, safe to call on every
// process start.
func (s *Store) Setup(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS agents (
    id UUID PRIMARY KEY,
    tenant_id TEXT,
    first_name TEXT NOT NULL DEFAULT '',
    second_name TEXT NOT NULL DEFAULT '',
    email TEXT,
    nature TEXT NOT NULL,
    origin_type TEXT,
    origin_id TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    deleted_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS agents_tenant_nature_idx ON agents(tenant_id, nature) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS threads (
    id UUID PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    metadata JSONB NOT NULL DEFAULT '{}',
    agent_ids JSONB NOT NULL DEFAULT '[]',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    deleted_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS messages (
    id UUID PRIMARY KEY,
    thread_id UUID NOT NULL REFERENCES threads(id) ON DELETE CASCADE,
    agent_id UUID NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    metadata JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    deleted_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS messages_thread_created_idx ON messages(thread_id, created_at, id);
`)
	return err
}

func (s *Store) GetThread(ctx context.Context, threadID string) (domain.Thread, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, tenant_id, title, metadata, agent_ids, created_at, updated_at
FROM threads WHERE id = $1 AND deleted_at IS NULL`, threadID)
	return scanThread(row)
}

func scanThread(row pgx.Row) (domain.Thread, error) {
	var t domain.Thread
	var metaRaw, agentsRaw []byte
	if err := row.Scan(&t.ID, &t.TenantID, &t.Title, &metaRaw, &agentsRaw, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Thread{}, domain.ErrNotFound
		}
		return domain.Thread{}, err
	}
	if len(metaRaw) > 0 {
		_ = json.Unmarshal(metaRaw, &t.Metadata)
	}
	if len(agentsRaw) > 0 {
		_ = json.Unmarshal(agentsRaw, &t.AgentIDs)
	}
	return t, nil
}

func (s *Store) CreateThread(ctx context.Context, tenantID, title string, metadata map[string]any) (domain.Thread, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metaRaw, err := json.Marshal(metadata)
	if err != nil {
		return domain.Thread{}, err
	}
	id := uuid.New()
	row := s.pool.QueryRow(ctx, `
INSERT INTO threads (id, tenant_id, title, metadata, agent_ids)
VALUES ($1, $2, $3, $4, '[]')
RETURNING id, tenant_id, title, metadata, agent_ids, created_at, updated_at`, id, tenantID, title, metaRaw)
	return scanThread(row)
}

func (s *Store) DeleteThread(ctx context.Context, threadID string) error {
	cmd, err := s.pool.Exec(ctx, `UPDATE threads SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, threadID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) EnsureAgentInThread(ctx context.Context, threadID, agentID string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT agent_ids FROM threads WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, threadID)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	var agentIDs []string
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &agentIDs)
	}
	for _, id := range agentIDs {
		if id == agentID {
			return nil
		}
	}
	agentIDs = append(agentIDs, agentID)
	updated, err := json.Marshal(agentIDs)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE threads SET agent_ids = $2, updated_at = NOW() WHERE id = $1`, threadID, updated); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) GetAgent(ctx context.Context, agentID string) (domain.Agent, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, tenant_id, first_name, second_name, email, nature, origin_type, origin_id, created_at, updated_at
FROM agents WHERE id = $1 AND deleted_at IS NULL`, agentID)
	return scanAgent(row)
}

func scanAgent(row pgx.Row) (domain.Agent, error) {
	var a domain.Agent
	if err := row.Scan(&a.ID, &a.TenantID, &a.FirstName, &a.SecondName, &a.Email, &a.Nature, &a.OriginType, &a.OriginID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Agent{}, domain.ErrNotFound
		}
		return domain.Agent{}, err
	}
	return a, nil
}

func (s *Store) GetSystemAgentForTenant(ctx context.Context, tenantID string) (domain.Agent, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, tenant_id, first_name, second_name, email, nature, origin_type, origin_id, created_at, updated_at
FROM agents WHERE tenant_id = $1 AND nature = 'system' AND deleted_at IS NULL
ORDER BY created_at ASC LIMIT 1`, tenantID)
	a, err := scanAgent(row)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Agent{}, domain.ErrNoSystemAgent
	}
	return a, err
}

func (s *Store) GetHistory(ctx context.Context, threadID string) ([]domain.Message, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, thread_id, agent_id, role, content, metadata, created_at, updated_at
FROM messages WHERE thread_id = $1 AND deleted_at IS NULL
ORDER BY created_at ASC, id ASC`, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Message, 0)
	for rows.Next() {
		var m domain.Message
		var metaRaw []byte
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.AgentID, &m.Role, &m.Content, &metaRaw, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		if len(metaRaw) > 0 {
			_ = json.Unmarshal(metaRaw, &m.Metadata)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CreateMessage persists msg inside its own transaction, committing on
// success and rolling back on any error — the request-scoped DB session
// boundary the dispatch loop and the HTTP handler each open independently.
func (s *Store) CreateMessage(ctx context.Context, msg domain.Message) (domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Message{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists int
	if err := tx.QueryRow(ctx, `SELECT 1 FROM threads WHERE id = $1 AND deleted_at IS NULL`, msg.ThreadID).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Message{}, domain.ErrNotFound
		}
		return domain.Message{}, err
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Metadata == nil {
		msg.Metadata = map[string]any{}
	}
	metaRaw, err := json.Marshal(msg.Metadata)
	if err != nil {
		return domain.Message{}, err
	}

	row := tx.QueryRow(ctx, `
INSERT INTO messages (id, thread_id, agent_id, role, content, metadata)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, thread_id, agent_id, role, content, metadata, created_at, updated_at`,
		msg.ID, msg.ThreadID, msg.AgentID, msg.Role, msg.Content, metaRaw)

	var out domain.Message
	var outMeta []byte
	if err := row.Scan(&out.ID, &out.ThreadID, &out.AgentID, &out.Role, &out.Content, &outMeta, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return domain.Message{}, err
	}
	if len(outMeta) > 0 {
		_ = json.Unmarshal(outMeta, &out.Metadata)
	}

	if _, err := tx.Exec(ctx, `UPDATE threads SET updated_at = NOW() WHERE id = $1`, msg.ThreadID); err != nil {
		return domain.Message{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Message{}, err
	}
	return out, nil
}
