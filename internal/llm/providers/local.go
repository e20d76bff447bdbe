// File path: internal/llm/providers/local.go
package providers

import (
	"context"
	"strings"
)

// LocalProvider is the no-credential fallback. It produces no embeddings and
// answers chat requests by echoing a trimmed view of the last user message,
// which keeps the ingestion pipeline and tests runnable offline.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider { return &LocalProvider{} }

func (*LocalProvider) Name() string { return "local" }

func (*LocalProvider) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	return nil, nil
}

func (*LocalProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	for i := len(messages) - 1; i >= 0; i-- {
		if strings.EqualFold(messages[i].Role, "user") {
			content := strings.TrimSpace(messages[i].Content)
			if len(content) > 240 {
				content = content[:240]
			}
			return content, nil
		}
	}
	return "", nil
}
