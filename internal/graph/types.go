// File path: internal/graph/types.go
package graph

import "context"

// DocumentNode is the graph projection of a catalog document.
type DocumentNode struct {
	ID           string `json:"id"`
	ProjectID    string `json:"project_id"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	SourcePath   string `json:"source_path"`
	ContentHash  string `json:"content_hash"`
	MetadataHash string `json:"metadata_hash"`
	Summary      string `json:"summary,omitempty"`
}

// DuplicateEdge records that one document was rejected as a duplicate of
// another, along with the strategy that matched.
type DuplicateEdge struct {
	FromID   string `json:"from_id"`
	ToID     string `json:"to_id"`
	Strategy string `json:"strategy"`
	Score    int    `json:"score"`
}

// Client is the graph-side surface the ingestion pipeline depends on.
type Client interface {
	Available() bool
	EnsureSchema(ctx context.Context) error
	InsertDocument(ctx context.Context, doc DocumentNode) error
	LinkDuplicate(ctx context.Context, edge DuplicateEdge) error
	Close() error
}
