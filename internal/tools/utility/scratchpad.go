// Package utility holds small, dependency-free tools available to every
// agent regardless of provider or tenant configuration.
package utility

import (
	"context"
	"encoding/json"
	"sync"
)

// ScratchpadTool holds a small keyed text buffer in process memory that tool
// calls can write to and read back. Notes live as long as the ScratchpadTool
// value: they are not cleared between pipeline runs, not scoped to a thread,
// and not persisted.
type ScratchpadTool struct {
	mu   sync.Mutex
	data map[string]string
}

func NewScratchpadTool() *ScratchpadTool {
	return &ScratchpadTool{data: map[string]string{}}
}

func (t *ScratchpadTool) Name() string { return "scratchpad" }

func (t *ScratchpadTool) Description() string {
	return "Reads or writes a named note for later steps of the same run. Set value to write, omit it to read."
}

func (t *ScratchpadTool) JSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"key":   map[string]any{"type": "string"},
			"value": map[string]any{"type": "string"},
		},
		"required": []string{"key"},
	}
}

type scratchpadArgs struct {
	Key   string  `json:"key"`
	Value *string `json:"value"`
}

func (t *ScratchpadTool) Call(_ context.Context, raw json.RawMessage) (any, error) {
	var args scratchpadArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if args.Value != nil {
		t.data[args.Key] = *args.Value
		return map[string]any{"ok": true, "key": args.Key}, nil
	}
	v, ok := t.data[args.Key]
	return map[string]any{"ok": ok, "key": args.Key, "value": v}, nil
}
