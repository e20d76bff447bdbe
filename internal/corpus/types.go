// File path: internal/corpus/types.go
package corpus

import (
	"time"

	"github.com/corpuskit/corpusd/internal/dedup"
)

// Document is a corpus entry: the ingested text plus the metadata and
// fingerprints stored alongside it.
type Document struct {
	ID           string    `json:"id" db:"id"`
	ProjectID    string    `json:"project_id" db:"project_id"`
	Title        string    `json:"title,omitempty" db:"title"`
	Author       string    `json:"author,omitempty" db:"author"`
	Identifier   string    `json:"identifier,omitempty" db:"identifier"`
	SourcePath   string    `json:"source_path,omitempty" db:"source_path"`
	Content      string    `json:"content,omitempty" db:"content"`
	Summary      string    `json:"summary,omitempty" db:"summary"`
	ContentHash  string    `json:"content_hash,omitempty" db:"content_hash"`
	MetadataHash string    `json:"metadata_hash,omitempty" db:"metadata_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Chunk is a slice of a document's content sized for embedding.
type Chunk struct {
	ID         string `json:"id" db:"id"`
	DocumentID string `json:"document_id" db:"document_id"`
	Seq        int    `json:"seq" db:"seq"`
	Content    string `json:"content" db:"content"`
}

// DedupMetadata projects the document's identifying fields into the canonical
// metadata shape the deduplication engine fingerprints.
func (d Document) DedupMetadata() dedup.Metadata {
	return dedup.Metadata{
		dedup.FieldTitle:      d.Title,
		dedup.FieldAuthor:     d.Author,
		dedup.FieldIdentifier: d.Identifier,
		dedup.FieldSourcePath: d.SourcePath,
	}
}
