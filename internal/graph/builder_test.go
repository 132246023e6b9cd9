package graph

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentrt/internal/llm"
	"agentrt/internal/testhelpers"
	"agentrt/internal/tools"
)

func newTestGraph(fp llm.Provider, reg tools.Registry, concurrency int) *Graph {
	var toolsFn Func
	if reg != nil {
		toolsFn = NewToolsNode(reg, concurrency)
	}
	return Build(
		NewInputGuardNode(),
		NewMemoryLoaderNode(nil, "", nil, 0),
		NewLLMAgentNode(fp, "gpt-4o-mini", reg),
		NewCostTrackerNode(),
		NewRejectNode(),
		toolsFn,
		reg,
	)
}

func TestGraphInvokeCleanMessageFinalAnswer(t *testing.T) {
	fp := &testhelpers.FakeProvider{Responses: []llm.Response{{
		Content: "hi there",
		Usage:   llm.Usage{InputTokens: 5, OutputTokens: 5, TotalTokens: 10},
	}}}
	g := newTestGraph(fp, nil, 0)

	final, err := g.Invoke(context.Background(), State{RawUserMessages: []string{"hello"}})
	require.NoError(t, err)
	assert.Equal(t, "hi there", final.FinalContent)
	assert.NotZero(t, final.Usage.CostUSD)
	assert.NotEmpty(t, final.Messages)
}

func TestGraphInvokeRejectsCriticalPII(t *testing.T) {
	fp := &testhelpers.FakeProvider{}
	g := newTestGraph(fp, nil, 0)

	final, err := g.Invoke(context.Background(), State{RawUserMessages: []string{"my ssn is 123-45-6789"}})
	require.NoError(t, err)
	assert.Contains(t, final.FinalContent, "rejected")
	assert.Empty(t, fp.Seen, "the model must never see a rejected message")
}

func TestGraphInvokeLoopsThroughToolsBackToLLM(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(&testhelpers.FakeTool{NameVal: "search", Result: map[string]string{"result": "42"}})

	fp := &testhelpers.FakeProvider{Responses: []llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "search", Args: json.RawMessage(`{}`)}}},
		{Content: "the answer is 42"},
	}}
	g := newTestGraph(fp, reg, 2)

	var events []Event
	err := g.Stream(context.Background(), State{RawUserMessages: []string{"search for the answer"}}, func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, fp.Seen, 2, "llm_agent must run twice: once to request the tool, once after its result")
	last := events[len(events)-1]
	assert.Equal(t, NodeCostTracker, last.Node)
	assert.Equal(t, "the answer is 42", last.State.FinalContent)

	var sawTools bool
	for _, ev := range events {
		if ev.Node == NodeTools {
			sawTools = true
		}
	}
	assert.True(t, sawTools, "expected the graph to visit the tools node")
}

func TestGraphStreamAbortsWhenOnEventErrors(t *testing.T) {
	fp := &testhelpers.FakeProvider{Responses: []llm.Response{{Content: "hi"}}}
	g := newTestGraph(fp, nil, 0)

	boom := assert.AnError
	err := g.Stream(context.Background(), State{RawUserMessages: []string{"hello"}}, func(Event) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestGraphStreamFromResumesAtRecordedNode(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(&testhelpers.FakeTool{NameVal: "search", Result: "done"})
	fp := &testhelpers.FakeProvider{Responses: []llm.Response{{Content: "resumed answer"}}}
	g := newTestGraph(fp, reg, 2)

	resumed := State{
		Messages: []llm.Message{
			{Role: "user", Content: "search for x"},
			{Role: "assistant", ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "search"}}},
		},
		ToolCallsLog: []ToolCallLog{{ID: "call_1", Name: "search", Status: "ok"}},
	}

	var events []Event
	err := g.StreamFrom(context.Background(), NodeLLMAgent, resumed, func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, fp.Seen, 1, "resuming at llm_agent must not re-run input_guard")
	assert.Equal(t, "resumed answer", events[len(events)-1].State.FinalContent)
}

func TestGraphBuildHasToolsFalseWithoutToolsInRegistry(t *testing.T) {
	reg := tools.NewRegistry() // no tools registered
	g := newTestGraph(&testhelpers.FakeProvider{Responses: []llm.Response{{Content: "ok"}}}, reg, 0)
	assert.False(t, g.hasTools)
}

func TestGraphRunUnknownNodeErrors(t *testing.T) {
	g := newTestGraph(&testhelpers.FakeProvider{}, nil, 0)
	err := g.run(context.Background(), Name("not_a_node"), State{}, func(Event) error { return nil })
	assert.Error(t, err)
}
