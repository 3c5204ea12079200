package session

import (
	"context"
	"strings"

	"courserag/internal/domain"
)

// Store keeps per-session conversation history. History returns at most
// the configured number of most recent turns, oldest first; when the
// bound is exceeded the oldest whole turn is evicted. Callers serialize
// turns of the same session; different sessions are independent.
type Store interface {
	Create() string
	History(ctx context.Context, sessionID string) ([]domain.Turn, error)
	Append(ctx context.Context, sessionID string, turn domain.Turn) error
}

// FormatHistory renders turns for inclusion in the model's system prompt.
func FormatHistory(turns []domain.Turn) string {
	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("User: ")
		b.WriteString(t.User)
		b.WriteString("\nAssistant: ")
		b.WriteString(t.Assistant)
	}
	return b.String()
}
