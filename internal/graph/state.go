// Package graph implements the agent processing pipeline: five nodes wired
// by a small conditional-edge builder, operating on a single typed State
// that flows through each step and is reduced field-by-field between them.
package graph

import (
	"time"

	"agentrt/internal/domain"
	"agentrt/internal/llm"
)

// GuardrailResult is the input_guard node's verdict for one run.
type GuardrailResult struct {
	Status          domain.GuardrailStatus
	Violations      []string
	RejectionReason string
	ProcessedContent *string
}

// ToolCallLog records one tool invocation's progress through the
// llm_agent/tools loop.
type ToolCallLog struct {
	ID        string
	Name      string
	Args      []byte
	StartedMs int64
	Status    string // "pending" | "ok" | "error"
}

// Usage is the token and cost accounting accumulated by cost_tracker.
type Usage struct {
	Model        string
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	CostUSD      float64
}

// State is the Pipeline State (C3): the transient record flowing through
// the graph for one pipeline invocation. Fields are merged across node
// outputs by Reduce, not replaced wholesale.
type State struct {
	ThreadID string
	TenantID string

	// History carries the prior conversation turns loaded from the store
	// before this run begins. It is set once by the caller constructing
	// the initial State and is read only by memory_loader; it is not
	// reduced by Partial, so trimming it never touches Messages directly.
	History []llm.Message

	RawUserMessages []string
	ProcessedInput  string
	GuardrailResult *GuardrailResult

	// Messages is append-merged: a node's partial never replaces this
	// slice, only appends to it. Same for ToolCallsLog.
	Messages     []llm.Message
	ToolCallsLog []ToolCallLog

	Usage          Usage
	ResponseTimeMs int64
	FinalContent   string

	StartTime time.Time
}

// Partial is what a node returns: every field set here is merged into the
// running State by Reduce. A nil/zero field means "leave unchanged" except
// for Messages/ToolCallsLog, which are always appended (an empty slice is a
// no-op append).
type Partial struct {
	RawUserMessages *[]string
	ProcessedInput  *string
	GuardrailResult *GuardrailResult

	Messages     []llm.Message
	ToolCallsLog []ToolCallLog

	Usage          *Usage
	ResponseTimeMs *int64
	FinalContent   *string

	StartTime *time.Time
}

// Reduce merges p into s in place, field by field: Messages and
// ToolCallsLog append, every other field is last-write-wins when set.
// This is an explicit reducer, not a generic deep-merge, so each field's
// merge strategy is visible and independently testable (P3).
func (s *State) Reduce(p Partial) {
	if p.RawUserMessages != nil {
		s.RawUserMessages = *p.RawUserMessages
	}
	if p.ProcessedInput != nil {
		s.ProcessedInput = *p.ProcessedInput
	}
	if p.GuardrailResult != nil {
		s.GuardrailResult = p.GuardrailResult
	}
	if len(p.Messages) > 0 {
		s.Messages = append(s.Messages, p.Messages...)
	}
	if len(p.ToolCallsLog) > 0 {
		s.ToolCallsLog = append(s.ToolCallsLog, p.ToolCallsLog...)
	}
	if p.Usage != nil {
		s.Usage = *p.Usage
	}
	if p.ResponseTimeMs != nil {
		s.ResponseTimeMs = *p.ResponseTimeMs
	}
	if p.FinalContent != nil {
		s.FinalContent = *p.FinalContent
	}
	if p.StartTime != nil {
		s.StartTime = *p.StartTime
	}
}

func strPtr(s string) *string { return &s }
func timePtr(t time.Time) *time.Time { return &t }
func int64Ptr(i int64) *int64 { return &i }
