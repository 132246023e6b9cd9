package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentrt/internal/domain"
)

func TestInputGuardNodeCleanMessage(t *testing.T) {
	node := NewInputGuardNode()
	p, err := node(context.Background(), State{RawUserMessages: []string{"what's the weather like"}})
	require.NoError(t, err)
	require.NotNil(t, p.GuardrailResult)
	assert.Equal(t, domain.GuardrailClean, p.GuardrailResult.Status)
	require.NotNil(t, p.ProcessedInput)
	assert.Equal(t, "what's the weather like", *p.ProcessedInput)
	assert.False(t, p.StartTime.IsZero())
}

func TestInputGuardNodeMasksLowSeverity(t *testing.T) {
	node := NewInputGuardNode()
	p, err := node(context.Background(), State{RawUserMessages: []string{"reach me at jane@example.com"}})
	require.NoError(t, err)
	require.NotNil(t, p.GuardrailResult)
	assert.Equal(t, domain.GuardrailMasked, p.GuardrailResult.Status)
	assert.Contains(t, p.GuardrailResult.Violations, "email")
	require.NotNil(t, p.ProcessedInput)
	assert.Contains(t, *p.ProcessedInput, "[EMAIL]")
	assert.NotContains(t, *p.ProcessedInput, "jane@example.com")
}

func TestInputGuardNodeRejectsCriticalSeverity(t *testing.T) {
	node := NewInputGuardNode()
	p, err := node(context.Background(), State{RawUserMessages: []string{"my ssn is 123-45-6789"}})
	require.NoError(t, err)
	require.NotNil(t, p.GuardrailResult)
	assert.Equal(t, domain.GuardrailRejected, p.GuardrailResult.Status)
	assert.NotEmpty(t, p.GuardrailResult.RejectionReason)
	require.NotNil(t, p.ProcessedInput)
	assert.Equal(t, "", *p.ProcessedInput)
}

func TestInputGuardNodeJoinsMultipleRawMessages(t *testing.T) {
	node := NewInputGuardNode()
	p, err := node(context.Background(), State{RawUserMessages: []string{"first part", "second part"}})
	require.NoError(t, err)
	require.NotNil(t, p.ProcessedInput)
	assert.Contains(t, *p.ProcessedInput, "first part")
	assert.Contains(t, *p.ProcessedInput, "second part")
}

func TestGuardRouter(t *testing.T) {
	assert.Equal(t, NodeReject, GuardRouter(State{GuardrailResult: &GuardrailResult{Status: domain.GuardrailRejected}}))
	assert.Equal(t, NodeMemoryLoader, GuardRouter(State{GuardrailResult: &GuardrailResult{Status: domain.GuardrailClean}}))
	assert.Equal(t, NodeMemoryLoader, GuardRouter(State{GuardrailResult: &GuardrailResult{Status: domain.GuardrailMasked}}))
	assert.Equal(t, NodeMemoryLoader, GuardRouter(State{}))
}

func TestRejectNodeUsesRejectionReason(t *testing.T) {
	node := NewRejectNode()
	p, err := node(context.Background(), State{GuardrailResult: &GuardrailResult{
		Status:          domain.GuardrailRejected,
		RejectionReason: "Detected critical sensitive data: ssn",
	}})
	require.NoError(t, err)
	require.NotNil(t, p.FinalContent)
	assert.Contains(t, *p.FinalContent, "Detected critical sensitive data: ssn")
}

func TestRejectNodeFallsBackWithoutReason(t *testing.T) {
	node := NewRejectNode()
	p, err := node(context.Background(), State{})
	require.NoError(t, err)
	require.NotNil(t, p.FinalContent)
	assert.NotEmpty(t, *p.FinalContent)
}
