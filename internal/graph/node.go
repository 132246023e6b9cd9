package graph

import "context"

// Name identifies one of the fixed graph nodes (C4).
type Name string

const (
	NodeInputGuard   Name = "input_guard"
	NodeMemoryLoader Name = "memory_loader"
	NodeLLMAgent     Name = "llm_agent"
	NodeTools        Name = "tools"
	NodeCostTracker  Name = "cost_tracker"
	NodeReject       Name = "reject"
)

// Func is a graph node: State in, partial State out. Nodes never mutate the
// State they're given except through ToolCallsLog entries they own (see
// nodes_tools.go), and always return a Partial for the executor to reduce.
type Func func(ctx context.Context, s State) (Partial, error)
