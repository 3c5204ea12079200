package tools

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"courserag/internal/domain"
)

// Tool is a model-invocable capability: a name, a schema the model can
// read, and an invocation that returns text for the model plus citations
// for display. The registry is polymorphic over this interface, so new
// tools can be added without touching the answer orchestration.
type Tool interface {
	Name() string
	Definition() openai.Tool
	Execute(ctx context.Context, args map[string]any) (string, []domain.Citation, error)
}
