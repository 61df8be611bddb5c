package llm

import (
	"context"
	"strings"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer is the text-generation oracle. Implementations return the raw
// completion text; callers own any protocol parsing.
type Completer interface {
	Complete(ctx context.Context, system string, messages []Message) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// Client combines both oracle capabilities behind one handle.
type Client interface {
	Completer
	Embedder
}

// StripCodeFence removes a surrounding markdown code fence, if present.
// Models frequently wrap SQL in ```sql blocks despite instructions.
func StripCodeFence(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
