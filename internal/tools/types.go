// Package tools defines the Tool/Registry abstraction the tools graph node
// dispatches against.
package tools

import (
	"context"
	"encoding/json"
	"sync"

	"agentrt/internal/llm"
)

// Tool is an executable capability a model can call by name.
type Tool interface {
	Name() string
	Description() string
	JSONSchema() map[string]any
	Call(ctx context.Context, raw json.RawMessage) (any, error)
}

// Registry keeps track of tools and dispatches calls by name.
type Registry interface {
	Schemas() []llm.ToolSchema
	Dispatch(ctx context.Context, name string, raw json.RawMessage) ([]byte, error)
	Register(t Tool)
	Unregister(name string)
}

func NewRegistry() Registry {
	return &registry{byName: make(map[string]Tool)}
}

type registry struct {
	mu     sync.RWMutex
	byName map[string]Tool
}

func (r *registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[t.Name()] = t
}

func (r *registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byName, name)
}

func (r *registry) Schemas() []llm.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]llm.ToolSchema, 0, len(r.byName))
	for name, t := range r.byName {
		out = append(out, llm.ToolSchema{
			Name:        name,
			Description: t.Description(),
			Parameters:  t.JSONSchema(),
		})
	}
	return out
}

func (r *registry) Dispatch(ctx context.Context, name string, raw json.RawMessage) ([]byte, error) {
	r.mu.RLock()
	t := r.byName[name]
	r.mu.RUnlock()
	if t == nil {
		return []byte(`{"error":"tool not found"}`), nil
	}
	val, err := t.Call(ctx, raw)
	if err != nil {
		b, _ := json.Marshal(map[string]any{"ok": false, "error": err.Error()})
		return b, nil
	}
	b, err := json.Marshal(val)
	if err != nil {
		return []byte(`{"error":"result not serializable"}`), nil
	}
	return b, nil
}
