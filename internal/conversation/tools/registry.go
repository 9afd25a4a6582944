package tools

import (
	"context"

	"github.com/zaytsevrv/jarvis-assistant/internal/llm"
)

// ExecuteFunc runs one tool call against validated arguments.
type ExecuteFunc func(ctx context.Context, args map[string]interface{}) *Result

// Definition pairs the LLM-facing schema with its executor, grounded on the
// teacher's one-Definition-plus-Execute-per-file tools package shape.
type Definition struct {
	Name        string
	Description string
	Schema      map[string]interface{}
	Execute     ExecuteFunc
}

// Registry holds the fixed tool catalog for one conversation turn.
type Registry struct {
	defs map[string]Definition
	// order preserves registration order so the catalog sent to the LLM is
	// stable across calls (affects prompt caching).
	order []string
}

func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

func (r *Registry) Register(d Definition) {
	if _, exists := r.defs[d.Name]; !exists {
		r.order = append(r.order, d.Name)
	}
	r.defs[d.Name] = d
}

func (r *Registry) Get(name string) (Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// ProviderDefs renders the catalog into llm.ToolDefinition for a Request.
func (r *Registry) ProviderDefs() []llm.ToolDefinition {
	out := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		d := r.defs[name]
		out = append(out, llm.ToolDefinition{Name: d.Name, Description: d.Description, Schema: d.Schema})
	}
	return out
}

// Execute dispatches one tool call by name. Unknown names return a
// structured error result rather than failing the turn (spec.md §4.5
// "Unknown tool names ... return a structured {error}").
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) (res *Result) {
	d, ok := r.defs[name]
	if !ok {
		return Errorf("unknown tool %q", name)
	}
	defer func() {
		if rec := recover(); rec != nil {
			res = Errorf("tool %s panicked: %v", name, rec)
		}
	}()
	return d.Execute(ctx, args)
}
