// Package llm defines the ChatModel collaborator: the narrow interface the
// graph's llm_agent node uses to invoke a model, independent of provider.
package llm

import "context"

// Message is one turn in the conversation sent to or received from a model.
type Message struct {
	Role      string // "system" | "user" | "assistant" | "tool"
	Content   string
	ToolID    string // set on tool-result messages, echoes the originating ToolCall.ID
	ToolCalls []ToolCall
}

// ToolCall is one function call a model asked the caller to perform.
type ToolCall struct {
	ID   string
	Name string
	Args []byte // raw JSON arguments
}

// ToolSchema describes one callable tool, offered to the model on each turn.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Usage is the token accounting a model response carries.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Response is what Provider.Chat returns for one turn.
type Response struct {
	Content   string
	ToolCalls []ToolCall
	Usage     Usage
}

// StreamHandler receives incremental output from Provider.ChatStream.
type StreamHandler interface {
	OnDelta(content string)
	OnToolCall(tc ToolCall)
}

// Provider is the ChatModel collaborator named in spec §6: invoke(messages)
// and stream(messages).
type Provider interface {
	Chat(ctx context.Context, msgs []Message, tools []ToolSchema, model string) (Response, error)
	ChatStream(ctx context.Context, msgs []Message, tools []ToolSchema, model string, h StreamHandler) (Response, error)
}

// EstimateTokens is a cheap, provider-independent token estimate: roughly
// four characters per token. Used for the memory_loader trim budget, not
// for billing (cost_tracker uses the response's real usage record).
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return len([]rune(s))/4 + 1
}

// EstimateTokensForMessages sums EstimateTokens over every message's content.
func EstimateTokensForMessages(msgs []Message) int {
	total := 0
	for _, m := range msgs {
		total += EstimateTokens(m.Content)
	}
	return total
}
