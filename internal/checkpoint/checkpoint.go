// Package checkpoint defines the CheckpointStore collaborator: graph
// execution state keyed by thread id, set up once and reused across runs.
package checkpoint

import "context"

// Store persists the latest checkpoint blob for a thread. Setup is
// idempotent; cmd/agentrtd calls it once at startup for the postgres-backed
// store, before any run. The runtime never calls Setup itself, so it is not
// deferred to first use.
type Store interface {
	Setup(ctx context.Context) error
	Load(ctx context.Context, threadID string) ([]byte, bool, error)
	Save(ctx context.Context, threadID string, state []byte) error
}

// NewMemoryStore returns an in-process Store for tests and local dev.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: map[string][]byte{}}
}

type MemoryStore struct {
	states map[string][]byte
}

func (m *MemoryStore) Setup(ctx context.Context) error { return nil }

func (m *MemoryStore) Load(ctx context.Context, threadID string) ([]byte, bool, error) {
	v, ok := m.states[threadID]
	return v, ok, nil
}

func (m *MemoryStore) Save(ctx context.Context, threadID string, state []byte) error {
	m.states[threadID] = state
	return nil
}
