package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentrt/internal/domain"
)

func TestStore_CreateMessage_OrderingIsEnqueueOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	tenant := "t1"
	agent := domain.Agent{ID: "a1", TenantID: &tenant, Nature: domain.AgentHuman}
	s.PutAgent(agent)

	th, err := s.CreateThread(ctx, tenant, "hi", nil)
	require.NoError(t, err)
	require.NoError(t, s.EnsureAgentInThread(ctx, th.ID, agent.ID))

	_, err = s.CreateMessage(ctx, domain.Message{ThreadID: th.ID, AgentID: agent.ID, Role: domain.RoleUser, Content: "A"})
	require.NoError(t, err)
	_, err = s.CreateMessage(ctx, domain.Message{ThreadID: th.ID, AgentID: agent.ID, Role: domain.RoleUser, Content: "B"})
	require.NoError(t, err)

	hist, err := s.GetHistory(ctx, th.ID)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "A", hist[0].Content)
	assert.Equal(t, "B", hist[1].Content)
}

func TestStore_GetThread_NotFoundAfterDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	th, err := s.CreateThread(ctx, "t1", "x", nil)
	require.NoError(t, err)
	require.NoError(t, s.DeleteThread(ctx, th.ID))
	_, err = s.GetThread(ctx, th.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_GetSystemAgentForTenant_ErrorWhenAbsent(t *testing.T) {
	s := New()
	_, err := s.GetSystemAgentForTenant(context.Background(), "unknown-tenant")
	assert.ErrorIs(t, err, domain.ErrNoSystemAgent)
}
