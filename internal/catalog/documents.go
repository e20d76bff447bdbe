// File path: internal/catalog/documents.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/corpuskit/corpusd/internal/corpus"
	"github.com/corpuskit/corpusd/internal/dedup"
)

// QueryOptions filter document listings. All fields are optional unless
// stated otherwise.
type QueryOptions struct {
	ProjectID string

	TitlePattern string

	Limit  int
	Offset int
}

// DocumentsPage is a paginated listing response.
type DocumentsPage struct {
	Documents []corpus.Document `json:"documents"`
	Total     int               `json:"total"`
	Offset    int               `json:"offset"`
	Limit     int               `json:"limit"`
}

// ErrNotFound marks lookups for documents that are not in the catalog.
var ErrNotFound = errors.New("document not found")

// ProjectInfo aggregates per-project document counts.
type ProjectInfo struct {
	ID        string `json:"id" db:"project_id"`
	Documents int    `json:"documents" db:"documents"`
}

// InsertDocument persists a document and its chunks in one transaction. The
// document must already carry its fingerprints; the catalog derives the
// normalized lookup columns itself so they always agree with the stored
// title and source path.
func (s *Store) InsertDocument(ctx context.Context, doc corpus.Document, chunks []corpus.Chunk) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	if strings.TrimSpace(doc.ID) == "" {
		return errors.New("document id required")
	}
	if strings.TrimSpace(doc.ContentHash) == "" || strings.TrimSpace(doc.MetadataHash) == "" {
		return fmt.Errorf("document %s missing fingerprints", doc.ID)
	}
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
INSERT INTO documents (
        id, project_id, title, author, identifier, source_path,
        normalized_title, normalized_source_path,
        content, summary, content_hash, metadata_hash, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.ProjectID, doc.Title, doc.Author, doc.Identifier, doc.SourcePath,
		dedup.NormalizeText(doc.Title), dedup.NormalizeText(doc.SourcePath),
		doc.Content, doc.Summary, doc.ContentHash, doc.MetadataHash, now, now,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("insert document: %w", err)
	}
	for _, chunk := range chunks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (id, document_id, seq, content) VALUES (?, ?, ?, ?)`,
			chunk.ID, doc.ID, chunk.Seq, chunk.Content,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert chunk %d: %w", chunk.Seq, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

// FindByContentHash implements dedup.CorpusAccessor. The earliest-inserted
// match wins so repeated checks stay deterministic.
func (s *Store) FindByContentHash(ctx context.Context, hash string) (string, bool, error) {
	return s.findOne(ctx, `SELECT id FROM documents WHERE content_hash = ? ORDER BY rowid LIMIT 1`, hash)
}

// FindByMetadataHash implements dedup.CorpusAccessor.
func (s *Store) FindByMetadataHash(ctx context.Context, hash string) (string, bool, error) {
	return s.findOne(ctx, `SELECT id FROM documents WHERE metadata_hash = ? ORDER BY rowid LIMIT 1`, hash)
}

// FindBySourcePath implements dedup.CorpusAccessor; the argument must already
// be normalized.
func (s *Store) FindBySourcePath(ctx context.Context, normalizedPath string) (string, bool, error) {
	if strings.TrimSpace(normalizedPath) == "" {
		return "", false, nil
	}
	return s.findOne(ctx, `SELECT id FROM documents WHERE normalized_source_path = ? ORDER BY rowid LIMIT 1`, normalizedPath)
}

func (s *Store) findOne(ctx context.Context, query string, arg string) (string, bool, error) {
	if err := s.ensureReady(); err != nil {
		return "", false, err
	}
	var id string
	err := s.db.QueryRowxContext(ctx, query, arg).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("catalog lookup: %w", err)
	}
	return id, true, nil
}

// StreamTitles implements dedup.CorpusAccessor. Entries stream in insertion
// order, only from the dedicated normalized_title column; document bodies are
// never read.
func (s *Store) StreamTitles(ctx context.Context, fn func(id, normalizedTitle string) error) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	rows, err := s.db.QueryxContext(ctx,
		`SELECT id, normalized_title FROM documents WHERE normalized_title != '' ORDER BY rowid`)
	if err != nil {
		return fmt.Errorf("stream titles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err != nil {
			return fmt.Errorf("scan title row: %w", err)
		}
		if err := fn(id, title); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate titles: %w", err)
	}
	return nil
}

var _ dedup.CorpusAccessor = (*Store)(nil)

// GetDocument fetches a single document by id.
func (s *Store) GetDocument(ctx context.Context, id string) (corpus.Document, error) {
	if err := s.ensureReady(); err != nil {
		return corpus.Document{}, err
	}
	var doc corpus.Document
	err := s.db.GetContext(ctx, &doc, `
SELECT id, project_id, title, author, identifier, source_path,
       content, summary, content_hash, metadata_hash, created_at, updated_at
FROM documents WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return corpus.Document{}, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return corpus.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// QueryDocuments returns a filtered, paginated document listing without
// bodies; callers fetch full content via GetDocument.
func (s *Store) QueryDocuments(ctx context.Context, opts QueryOptions) (DocumentsPage, error) {
	if err := s.ensureReady(); err != nil {
		return DocumentsPage{}, err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	filters := []string{"1=1"}
	args := []interface{}{}
	if trimmed := strings.TrimSpace(opts.ProjectID); trimmed != "" {
		filters = append(filters, "project_id = ?")
		args = append(args, trimmed)
	}
	if trimmed := strings.TrimSpace(opts.TitlePattern); trimmed != "" {
		filters = append(filters, "normalized_title LIKE ?")
		args = append(args, "%"+dedup.NormalizeText(trimmed)+"%")
	}
	query := fmt.Sprintf(`
SELECT id, project_id, title, author, identifier, source_path,
       '' AS content, summary, content_hash, metadata_hash, created_at, updated_at,
       COUNT(*) OVER() AS total_rows
FROM documents
WHERE %s
ORDER BY rowid
LIMIT ? OFFSET ?`, strings.Join(filters, " AND "))
	args = append(args, limit, offset)

	rows := []struct {
		corpus.Document
		TotalRows int `db:"total_rows"`
	}{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return DocumentsPage{}, fmt.Errorf("query documents: %w", err)
	}
	page := DocumentsPage{Limit: limit, Offset: offset}
	for _, row := range rows {
		page.Documents = append(page.Documents, row.Document)
		page.Total = row.TotalRows
	}
	return page, nil
}

// Projects lists the stored projects with their document counts.
func (s *Store) Projects(ctx context.Context) ([]ProjectInfo, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var infos []ProjectInfo
	err := s.db.SelectContext(ctx, &infos, `
SELECT project_id, COUNT(*) AS documents
FROM documents
GROUP BY project_id
ORDER BY project_id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return infos, nil
}
