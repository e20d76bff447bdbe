// File path: internal/llm/providers/provider.go
package providers

import "context"

// Message is a single chat exchange entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider abstracts the embedding/chat backend. Embed returns one vector per
// input in input order; implementations without embedding support return nil.
type Provider interface {
	Name() string
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	Chat(ctx context.Context, messages []Message) (string, error)
}
