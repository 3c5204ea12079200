package tools

import (
	"context"
	"fmt"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"courserag/internal/domain"
)

// Registry holds tools by name and dispatches invocations to them. It
// also records the citations produced by tool calls so the caller can
// attach them to the final answer. Last registration for a name wins.
type Registry struct {
	mu          sync.Mutex
	tools       map[string]Tool
	order       []string
	lastSources []domain.Citation
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[t.Name()]; !ok {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Definitions returns the schemas of all registered tools in registration
// order, for inclusion in model requests.
func (r *Registry) Definitions() []openai.Tool {
	r.mu.Lock()
	defer r.mu.Unlock()
	defs := make([]openai.Tool, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute forwards an invocation to the named tool and records its
// citations for downstream display.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.Lock()
	tool, ok := r.tools[name]
	r.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownTool, name)
	}
	text, citations, err := tool.Execute(ctx, args)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	r.lastSources = append(r.lastSources, citations...)
	r.mu.Unlock()
	return text, nil
}

// LastSources returns the citations accumulated since the last reset.
func (r *Registry) LastSources() []domain.Citation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Citation, len(r.lastSources))
	copy(out, r.lastSources)
	return out
}

// ResetSources clears accumulated citations between turns.
func (r *Registry) ResetSources() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSources = nil
}
