// Package runtime implements the runtime service (C6): the operations that
// load history, resolve model credentials, and run the processing graph in
// one-shot or streaming modes on behalf of a thread.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	"agentrt/internal/accounting"
	"agentrt/internal/checkpoint"
	"agentrt/internal/domain"
	"agentrt/internal/graph"
	"agentrt/internal/llm"
	"agentrt/internal/observability"
	"agentrt/internal/queue"
	"agentrt/internal/secrets"
	"agentrt/internal/store"
	"agentrt/internal/tools"
)

const openAIIntegration = "openai"

// ProviderFactory builds a ChatModel bound to a resolved API key. Called
// once per run so every tenant gets a provider instance carrying its own
// (or the platform's, or the environment's) credential.
type ProviderFactory func(apiKey string) llm.Provider

// Service is the C6 collaborator. Every field is a narrow interface so
// tests can substitute in-memory or fake implementations.
type Service struct {
	Store       store.Store
	Checkpoints checkpoint.Store
	Secrets     secrets.Manager
	NewProvider ProviderFactory
	Model       string

	Summarizer   llm.Provider
	SummaryModel string

	Tools           tools.Registry
	ToolConcurrency int

	Accounting accounting.Sink

	Recall     graph.Recaller
	RecallTopK int
	Memory     Indexer
}

// Indexer persists a thread's latest exchange for later recall. It is an
// optional collaborator, nil when vector recall is disabled.
type Indexer interface {
	IndexSummary(ctx context.Context, threadID, tenantID, text string) error
}

// resumeState is the JSON-serializable slice of graph.State persisted to
// the checkpoint store between runs, keyed by thread id.
type resumeState struct {
	Node         graph.Name         `json:"node"`
	Messages     []llm.Message      `json:"messages"`
	ToolCallsLog []graph.ToolCallLog `json:"tool_calls_log"`
}

func (s *Service) resolveAPIKey(ctx context.Context, tenantID string) string {
	return secrets.ResolveAPIKey(ctx, s.Secrets, tenantID, openAIIntegration, "OPENAI_API_KEY", "")
}

// newGraph builds a fresh graph bound to provider, since the chat model
// (and therefore its credential) varies per tenant per run.
func (s *Service) newGraph(provider llm.Provider) *graph.Graph {
	inputGuard := graph.NewInputGuardNode()
	memoryLoader := graph.NewMemoryLoaderNode(s.Summarizer, s.SummaryModel, s.Recall, s.RecallTopK)
	llmAgent := graph.NewLLMAgentNode(provider, s.Model, s.Tools)
	reject := graph.NewRejectNode()
	costTracker := graph.NewCostTrackerNode()

	var toolsNode graph.Func
	if s.Tools != nil {
		toolsNode = graph.NewToolsNode(s.Tools, s.ToolConcurrency)
	}

	return graph.Build(inputGuard, memoryLoader, llmAgent, costTracker, reject, toolsNode, s.Tools)
}

func toLLMMessages(history []domain.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		role := "assistant"
		if m.Role == domain.RoleUser {
			role = "user"
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}

func (s *Service) initialState(ctx context.Context, threadID, tenantID string, userMessages []string) (graph.State, graph.Name, error) {
	history, err := s.Store.GetHistory(ctx, threadID)
	if err != nil {
		return graph.State{}, "", fmt.Errorf("load history: %w", err)
	}

	state := graph.State{
		ThreadID:        threadID,
		TenantID:        tenantID,
		RawUserMessages: userMessages,
		History:         toLLMMessages(history),
	}

	start := graph.NodeInputGuard
	if s.Checkpoints != nil {
		if raw, ok, err := s.Checkpoints.Load(ctx, threadID); err == nil && ok {
			var rs resumeState
			if err := json.Unmarshal(raw, &rs); err == nil && rs.Node != "" {
				state.Messages = rs.Messages
				state.ToolCallsLog = rs.ToolCallsLog
				start = rs.Node
			}
		}
	}
	return state, start, nil
}

func (s *Service) saveCheckpoint(ctx context.Context, ev graph.Event) {
	if s.Checkpoints == nil {
		return
	}
	raw, err := json.Marshal(resumeState{Node: ev.Node, Messages: ev.State.Messages, ToolCallsLog: ev.State.ToolCallsLog})
	if err != nil {
		return
	}
	if err := s.Checkpoints.Save(ctx, ev.State.ThreadID, raw); err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("checkpoint save failed")
	}
}

func (s *Service) clearCheckpoint(ctx context.Context, threadID string) {
	if s.Checkpoints == nil {
		return
	}
	if err := s.Checkpoints.Save(ctx, threadID, []byte(`{}`)); err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("checkpoint clear failed")
	}
}

// Process runs the graph in one-shot mode and returns the final state.
func (s *Service) Process(ctx context.Context, threadID, tenantID string, userMessages []string) (graph.State, error) {
	apiKey := s.resolveAPIKey(ctx, tenantID)
	provider := s.NewProvider(apiKey)
	g := s.newGraph(provider)

	initial, start, err := s.initialState(ctx, threadID, tenantID, userMessages)
	if err != nil {
		return graph.State{}, err
	}

	var final graph.State
	err = g.StreamFrom(ctx, start, initial, func(ev graph.Event) error {
		final = ev.State
		s.saveCheckpoint(ctx, ev)
		return nil
	})
	if err != nil {
		return graph.State{}, err
	}
	s.clearCheckpoint(ctx, threadID)
	return final, nil
}

// Stream runs the graph in streaming mode, invoking emit with one external
// event per meaningful node transition, per §4.4.
func (s *Service) Stream(ctx context.Context, threadID, tenantID string, userMessages []string, emit func(queue.Event) error) error {
	apiKey := s.resolveAPIKey(ctx, tenantID)
	provider := s.NewProvider(apiKey)
	g := s.newGraph(provider)

	initial, start, err := s.initialState(ctx, threadID, tenantID, userMessages)
	if err != nil {
		return err
	}

	var final graph.State
	runErr := g.StreamFrom(ctx, start, initial, func(ev graph.Event) error {
		final = ev.State
		s.saveCheckpoint(ctx, ev)

		switch ev.Node {
		case graph.NodeReject:
			reason := ev.State.FinalContent
			if reason == "" {
				reason = "Message rejected"
			}
			return emit(queue.Event{Type: "guardrail_reject", Reason: reason})
		case graph.NodeLLMAgent:
			if ev.State.FinalContent != "" {
				return emit(queue.Event{Type: "chunk", Content: ev.State.FinalContent})
			}
		}
		return nil
	})
	if runErr != nil {
		return runErr
	}
	s.clearCheckpoint(ctx, threadID)

	if final.GuardrailResult != nil && final.GuardrailResult.Status == domain.GuardrailRejected {
		return nil
	}
	metadata := graph.BuildMessageMetadata(final)
	return emit(queue.Event{Type: "done", Metadata: metadata})
}

// ProcessAndSave runs Process and persists one assistant message with the
// run's final content and metadata.
func (s *Service) ProcessAndSave(ctx context.Context, threadID, tenantID, systemAgentID string, userMessages []string) (domain.Message, error) {
	final, err := s.Process(ctx, threadID, tenantID, userMessages)
	if err != nil {
		return domain.Message{}, err
	}

	metadata := graph.BuildMessageMetadata(final)
	metadataMap, err := graph.MetadataToMap(metadata)
	if err != nil {
		return domain.Message{}, err
	}

	content := final.FinalContent
	if content == "" {
		content = "(no response)"
	}

	msg, err := s.Store.CreateMessage(ctx, domain.Message{
		ThreadID: threadID,
		AgentID:  systemAgentID,
		Role:     domain.RoleAssistant,
		Content:  content,
		Metadata: metadataMap,
	})
	if err != nil {
		return domain.Message{}, err
	}

	if s.Accounting != nil {
		s.Accounting.Record(ctx, accounting.Entry{
			ThreadID:       threadID,
			TenantID:       tenantID,
			Model:          metadata.Model,
			InputTokens:    int64(metadata.Tokens.InputTokens),
			OutputTokens:   int64(metadata.Tokens.OutputTokens),
			TotalTokens:    int64(metadata.Tokens.TotalTokens),
			CostUSD:        metadata.CostUSD,
			ResponseTimeMs: metadata.ResponseTimeMs,
		})
	}

	if s.Memory != nil {
		if err := s.Memory.IndexSummary(ctx, threadID, tenantID, content); err != nil {
			observability.LoggerWithTrace(ctx).Warn().Err(err).
				Str("thread_id", threadID).
				Msg("memory indexing failed, continuing")
		}
	}

	return msg, nil
}
