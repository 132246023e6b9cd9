package graph

import (
	"context"
	"fmt"

	"agentrt/internal/tools"
)

// Event is what Stream yields after each node completes: the node's name
// and the partial it produced, already reduced into the running state.
type Event struct {
	Node  Name
	State State
}

// Graph is the compiled pipeline: a fixed node set plus the conditional
// edges wiring them, per the graph builder (C5). It has no per-run state
// and is safe to reuse across invocations of the same process.
type Graph struct {
	nodes    map[Name]Func
	hasTools bool
}

// Build wires the fixed five-node graph (plus tools, when registry is
// non-nil and has at least one tool) per §4.3: entry -> input_guard ->
// (guard router) -> {reject, memory_loader}; memory_loader -> llm_agent ->
// (continue router) -> {tools, cost_tracker}; tools -> llm_agent;
// cost_tracker/reject -> end.
func Build(inputGuard, memoryLoader, llmAgent, costTracker, reject Func, toolsNode Func, registry tools.Registry) *Graph {
	hasTools := registry != nil && len(registry.Schemas()) > 0 && toolsNode != nil

	nodes := map[Name]Func{
		NodeInputGuard:   inputGuard,
		NodeMemoryLoader: memoryLoader,
		NodeLLMAgent:     llmAgent,
		NodeCostTracker:  costTracker,
		NodeReject:       reject,
	}
	if hasTools {
		nodes[NodeTools] = toolsNode
	}
	return &Graph{nodes: nodes, hasTools: hasTools}
}

// Invoke runs the graph to completion and returns the final merged state.
func (g *Graph) Invoke(ctx context.Context, initial State) (State, error) {
	var final State
	err := g.run(ctx, NodeInputGuard, initial, func(ev Event) error {
		final = ev.State
		return nil
	})
	return final, err
}

// Stream runs the graph, invoking onEvent after each node completes with
// the state as reduced so far. onEvent returning an error aborts the run.
func (g *Graph) Stream(ctx context.Context, initial State, onEvent func(Event) error) error {
	return g.run(ctx, NodeInputGuard, initial, onEvent)
}

// StreamFrom resumes a previously checkpointed run at the given node
// instead of starting over at input_guard, so a crash mid-tools-loop
// doesn't re-run the guardrail or re-spend tokens on a completed turn.
func (g *Graph) StreamFrom(ctx context.Context, from Name, state State, onEvent func(Event) error) error {
	return g.run(ctx, from, state, onEvent)
}

func (g *Graph) run(ctx context.Context, start Name, initial State, onEvent func(Event) error) error {
	state := initial
	name := start

	for {
		fn, ok := g.nodes[name]
		if !ok {
			return fmt.Errorf("graph: no such node %q", name)
		}

		partial, err := fn(ctx, state)
		if err != nil {
			return fmt.Errorf("graph: node %q: %w", name, err)
		}
		state.Reduce(partial)

		if err := onEvent(Event{Node: name, State: state}); err != nil {
			return err
		}

		switch name {
		case NodeInputGuard:
			name = GuardRouter(state)
		case NodeMemoryLoader:
			name = NodeLLMAgent
		case NodeLLMAgent:
			name = ContinueRouter(state, g.hasTools)
		case NodeTools:
			name = NodeLLMAgent
		case NodeCostTracker, NodeReject:
			return nil
		default:
			return fmt.Errorf("graph: unreachable node %q", name)
		}
	}
}
