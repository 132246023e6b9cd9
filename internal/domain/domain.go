// Package domain defines the core entities shared across the agent runtime:
// tenants' threads, the agents that author messages within them, and the
// messages themselves. All three carry created/updated/deleted timestamps;
// soft-deletion is the only deletion mode the runtime knows about.
package domain

import "time"

// AgentNature distinguishes the three identities that can author a message.
type AgentNature string

const (
	AgentHuman  AgentNature = "human"
	AgentSystem AgentNature = "system"
	AgentWorker AgentNature = "worker"
)

// Role is the message role as seen by the ChatModel.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Agent is an identity that can author messages. A nil TenantID means the
// agent is platform-scoped (reachable from every tenant, not mutable
// through tenant-facing APIs).
type Agent struct {
	ID         string
	TenantID   *string
	FirstName  string
	SecondName string
	Email      *string
	Nature     AgentNature
	OriginType *string // external identity mapping, e.g. "telegram"
	OriginID   *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  *time.Time
}

// Thread is a multi-turn conversation container owned by a tenant.
type Thread struct {
	ID        string
	TenantID  string
	Title     string
	Metadata  map[string]any
	AgentIDs  []string // ordered set of participating agents, at-most-once membership
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// HasAgent reports whether agentID already participates in the thread.
func (t *Thread) HasAgent(agentID string) bool {
	for _, id := range t.AgentIDs {
		if id == agentID {
			return true
		}
	}
	return false
}

// Message is one turn in a thread, authored by exactly one agent.
type Message struct {
	ID        string
	ThreadID  string
	AgentID   string
	Role      Role
	Content   string
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// ToolCallLogEntry records one tool invocation's name and terminal status,
// as persisted into a Message's metadata.tool_calls.
type ToolCallLogEntry struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// TokenUsage mirrors the usage record a ChatModel response exposes.
type TokenUsage struct {
	InputTokens  int `json:"input"`
	OutputTokens int `json:"output"`
	TotalTokens  int `json:"total"`
}

// GuardrailStatus is the input_guard node's verdict for one run.
type GuardrailStatus string

const (
	GuardrailClean    GuardrailStatus = "clean"
	GuardrailMasked   GuardrailStatus = "masked"
	GuardrailRejected GuardrailStatus = "rejected"
)

// GuardrailMetadata is persisted on the assistant message produced by a run.
type GuardrailMetadata struct {
	Status           GuardrailStatus `json:"status"`
	ViolationsCount  int             `json:"violations_count"`
}

// MessageMetadata is the exact JSON shape persisted alongside an assistant
// message.
type MessageMetadata struct {
	Model          string             `json:"model"`
	Tokens         TokenUsage         `json:"tokens"`
	CostUSD        float64            `json:"cost_usd"`
	ResponseTimeMs int64              `json:"response_time_ms"`
	ToolCalls      []ToolCallLogEntry `json:"tool_calls"`
	Guardrail      *GuardrailMetadata `json:"guardrail"`
}
