package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentrt/internal/llm"
)

func TestReduceMessagesAppend(t *testing.T) {
	s := State{Messages: []llm.Message{{Role: "system", Content: "sys"}}}

	s.Reduce(Partial{Messages: []llm.Message{{Role: "user", Content: "hi"}}})
	require.Len(t, s.Messages, 2)
	assert.Equal(t, "sys", s.Messages[0].Content)
	assert.Equal(t, "hi", s.Messages[1].Content)

	s.Reduce(Partial{Messages: []llm.Message{{Role: "assistant", Content: "hello"}}})
	require.Len(t, s.Messages, 3)
	assert.Equal(t, "hello", s.Messages[2].Content)
}

func TestReduceToolCallsLogAppend(t *testing.T) {
	s := State{}
	s.Reduce(Partial{ToolCallsLog: []ToolCallLog{{ID: "1", Status: "pending"}}})
	s.Reduce(Partial{ToolCallsLog: []ToolCallLog{{ID: "2", Status: "pending"}}})
	require.Len(t, s.ToolCallsLog, 2)
	assert.Equal(t, "1", s.ToolCallsLog[0].ID)
	assert.Equal(t, "2", s.ToolCallsLog[1].ID)
}

func TestReduceEmptySliceIsNoopAppend(t *testing.T) {
	s := State{Messages: []llm.Message{{Role: "user", Content: "only"}}}
	s.Reduce(Partial{Messages: nil})
	assert.Len(t, s.Messages, 1)
}

func TestReduceScalarFieldsLastWriteWins(t *testing.T) {
	s := State{ProcessedInput: "first", FinalContent: "a"}

	s.Reduce(Partial{ProcessedInput: strPtr("second")})
	assert.Equal(t, "second", s.ProcessedInput)

	s.Reduce(Partial{FinalContent: strPtr("b")})
	assert.Equal(t, "b", s.FinalContent)

	// Unset fields in a later Partial leave the prior value untouched.
	s.Reduce(Partial{})
	assert.Equal(t, "second", s.ProcessedInput)
	assert.Equal(t, "b", s.FinalContent)
}

func TestReduceGuardrailResultReplacesWholesale(t *testing.T) {
	s := State{}
	s.Reduce(Partial{GuardrailResult: &GuardrailResult{Status: "clean"}})
	require.NotNil(t, s.GuardrailResult)
	assert.Equal(t, GuardrailResult{Status: "clean"}, *s.GuardrailResult)

	s.Reduce(Partial{GuardrailResult: &GuardrailResult{Status: "masked"}})
	assert.Equal(t, GuardrailResult{Status: "masked"}, *s.GuardrailResult)
}

func TestReduceUsageAndTimingLastWriteWins(t *testing.T) {
	s := State{}
	s.Reduce(Partial{Usage: &Usage{Model: "gpt-4o-mini", TotalTokens: 10}, ResponseTimeMs: int64Ptr(5)})
	assert.Equal(t, int64(5), s.ResponseTimeMs)
	assert.Equal(t, 10, s.Usage.TotalTokens)

	s.Reduce(Partial{Usage: &Usage{Model: "gpt-4o-mini", TotalTokens: 42}, ResponseTimeMs: int64Ptr(99)})
	assert.Equal(t, int64(99), s.ResponseTimeMs)
	assert.Equal(t, 42, s.Usage.TotalTokens)
}

func TestReduceStartTime(t *testing.T) {
	s := State{}
	now := time.Now()
	s.Reduce(Partial{StartTime: timePtr(now)})
	assert.True(t, s.StartTime.Equal(now))
}

// History is not touched by Reduce at all: it is set once by the caller
// building the initial State, never by a node's Partial.
func TestHistoryIsNotAPartialField(t *testing.T) {
	s := State{History: []llm.Message{{Role: "user", Content: "old"}}}
	s.Reduce(Partial{Messages: []llm.Message{{Role: "user", Content: "new"}}})
	require.Len(t, s.History, 1)
	assert.Equal(t, "old", s.History[0].Content)
	require.Len(t, s.Messages, 1)
	assert.Equal(t, "new", s.Messages[0].Content)
}
