// Package memory is an in-process Store used by tests and local runs without
// a Postgres instance. No ecosystem in-memory SQL engine covers the exact
// Store shape, so this is a direct map-backed implementation.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"agentrt/internal/domain"
)

func New() *Store {
	return &Store{
		threads:  map[string]domain.Thread{},
		agents:   map[string]domain.Agent{},
		messages: map[string][]domain.Message{},
	}
}

type Store struct {
	mu       sync.RWMutex
	threads  map[string]domain.Thread
	agents   map[string]domain.Agent
	messages map[string][]domain.Message
}

// PutAgent seeds an agent directly; the Store interface has no agent
// creation call, so tests use this to set up agents.
func (s *Store) PutAgent(a domain.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[a.ID] = a
}

func (s *Store) GetThread(ctx context.Context, threadID string) (domain.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[threadID]
	if !ok || t.DeletedAt != nil {
		return domain.Thread{}, domain.ErrNotFound
	}
	return t, nil
}

func (s *Store) CreateThread(ctx context.Context, tenantID, title string, metadata map[string]any) (domain.Thread, error) {
	now := time.Now().UTC()
	t := domain.Thread{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Title:     title,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[t.ID] = t
	return t, nil
}

func (s *Store) DeleteThread(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[threadID]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now().UTC()
	t.DeletedAt = &now
	s.threads[threadID] = t
	return nil
}

func (s *Store) EnsureAgentInThread(ctx context.Context, threadID, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[threadID]
	if !ok || t.DeletedAt != nil {
		return domain.ErrNotFound
	}
	if _, ok := s.agents[agentID]; !ok {
		return domain.ErrNotFound
	}
	if !t.HasAgent(agentID) {
		t.AgentIDs = append(t.AgentIDs, agentID)
		t.UpdatedAt = time.Now().UTC()
		s.threads[threadID] = t
	}
	return nil
}

func (s *Store) GetAgent(ctx context.Context, agentID string) (domain.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[agentID]
	if !ok || a.DeletedAt != nil {
		return domain.Agent{}, domain.ErrNotFound
	}
	return a, nil
}

func (s *Store) GetSystemAgentForTenant(ctx context.Context, tenantID string) (domain.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.agents {
		if a.Nature != domain.AgentSystem || a.DeletedAt != nil {
			continue
		}
		if a.TenantID != nil && *a.TenantID == tenantID {
			return a, nil
		}
	}
	return domain.Agent{}, domain.ErrNoSystemAgent
}

func (s *Store) GetHistory(ctx context.Context, threadID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := append([]domain.Message(nil), s.messages[threadID]...)
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
	return msgs, nil
}

func (s *Store) CreateMessage(ctx context.Context, msg domain.Message) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[msg.ThreadID]
	if !ok || t.DeletedAt != nil {
		return domain.Message{}, domain.ErrNotFound
	}
	now := time.Now().UTC()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	msg.UpdatedAt = now
	s.messages[msg.ThreadID] = append(s.messages[msg.ThreadID], msg)
	t.UpdatedAt = now
	s.threads[msg.ThreadID] = t
	return msg, nil
}
