// File path: internal/ingest/manager.go
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/corpuskit/corpusd/internal/catalog"
	"github.com/corpuskit/corpusd/internal/common"
	"github.com/corpuskit/corpusd/internal/corpus"
	"github.com/corpuskit/corpusd/internal/dedup"
	"github.com/corpuskit/corpusd/internal/graph"
	"github.com/corpuskit/corpusd/internal/llm"
	"github.com/corpuskit/corpusd/internal/vector"
)

// Config controls chunking, embedding batches, and duplicate detection for
// the ingestion pipeline.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
	Dedup        dedup.Config
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    1200,
		ChunkOverlap: 120,
		BatchSize:    16,
		Dedup:        dedup.DefaultConfig(),
	}
}

func (c *Config) applyDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 1200
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = c.ChunkSize / 10
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 16
	}
}

// Request is one document submitted for ingestion.
type Request struct {
	ProjectID  string `json:"project_id"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	Identifier string `json:"identifier"`
	SourcePath string `json:"source_path"`
	Content    string `json:"content"`
	Summary    string `json:"summary,omitempty"`
}

// Result reports what happened to one submitted document.
type Result struct {
	DocumentID string        `json:"document_id,omitempty"`
	Verdict    dedup.Verdict `json:"verdict"`
	Stored     bool          `json:"stored"`
	Chunks     int           `json:"chunks"`
	Embedded   bool          `json:"embedded"`
}

// Manager runs documents through duplicate detection and, for originals,
// persists them to the catalog and pushes chunk embeddings to the vector
// store and a node to the graph.
type Manager struct {
	cfg      Config
	store    *catalog.Store
	detector *dedup.Detector
	provider llm.Provider
	vectors  vector.Store
	graph    graph.Client
	splitter textsplitter.RecursiveCharacter
}

// NewManager wires the pipeline. The vector store and graph client are
// optional; a nil value disables that stage.
func NewManager(store *catalog.Store, provider llm.Provider, vectors vector.Store, graphClient graph.Client, cfg Config) (*Manager, error) {
	if store == nil {
		return nil, errors.New("ingest: catalog store required")
	}
	if provider == nil {
		return nil, errors.New("ingest: llm provider required")
	}
	cfg.applyDefaults()
	detector := dedup.NewDetector(cfg.Dedup)
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(cfg.ChunkSize),
		textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
	)
	return &Manager{
		cfg:      cfg,
		store:    store,
		detector: detector,
		provider: provider,
		vectors:  vectors,
		graph:    graphClient,
		splitter: splitter,
	}, nil
}

// CheckDuplicate runs detection only, without mutating any store. A lookup
// failure surfaces as an error rather than a negative verdict.
func (m *Manager) CheckDuplicate(ctx context.Context, req Request) (dedup.Verdict, error) {
	meta := requestMetadata(req)
	return m.detector.Check(ctx, req.Content, meta, m.store)
}

// Ingest processes one document. Duplicates are reported, not stored; lookup
// failures abort ingestion so an unreadable corpus never admits duplicates.
func (m *Manager) Ingest(ctx context.Context, req Request) (Result, error) {
	logger := common.Logger()
	started := time.Now()

	if strings.TrimSpace(req.Content) == "" && strings.TrimSpace(req.Title) == "" {
		return Result{}, errors.New("ingest: document requires content or title")
	}

	meta := requestMetadata(req)
	verdict, err := m.detector.Check(ctx, req.Content, meta, m.store)
	if err != nil {
		return Result{}, fmt.Errorf("ingest: duplicate check: %w", err)
	}
	if verdict.IsDuplicate {
		logger.Info("ingest: duplicate rejected",
			"matched_id", verdict.MatchedID,
			"strategy", verdict.Strategy,
			"title", req.Title)
		return Result{Verdict: verdict}, nil
	}

	enriched := dedup.EnrichMetadata(meta, req.Content)
	doc := corpus.Document{
		ID:           uuid.NewString(),
		ProjectID:    strings.TrimSpace(req.ProjectID),
		Title:        strings.TrimSpace(req.Title),
		Author:       strings.TrimSpace(req.Author),
		Identifier:   strings.TrimSpace(req.Identifier),
		SourcePath:   strings.TrimSpace(req.SourcePath),
		Content:      req.Content,
		Summary:      strings.TrimSpace(req.Summary),
		ContentHash:  enriched[dedup.KeyContentHash],
		MetadataHash: enriched[dedup.KeyMetadataHash],
	}

	chunks := m.splitDocument(doc)
	if err := m.store.InsertDocument(ctx, doc, chunks); err != nil {
		return Result{}, fmt.Errorf("ingest: persist document: %w", err)
	}

	result := Result{
		DocumentID: doc.ID,
		Verdict:    verdict,
		Stored:     true,
		Chunks:     len(chunks),
	}

	if m.vectors != nil && m.vectors.Available() {
		if err := m.embedChunks(ctx, doc, chunks); err != nil {
			logger.Warn("ingest: embedding failed", "document", doc.ID, "error", err)
		} else {
			result.Embedded = true
		}
	}
	if m.graph != nil && m.graph.Available() {
		node := graph.DocumentNode{
			ID:           doc.ID,
			ProjectID:    doc.ProjectID,
			Title:        doc.Title,
			Author:       doc.Author,
			SourcePath:   doc.SourcePath,
			ContentHash:  doc.ContentHash,
			MetadataHash: doc.MetadataHash,
			Summary:      doc.Summary,
		}
		if err := m.graph.InsertDocument(ctx, node); err != nil {
			logger.Warn("ingest: graph insert failed", "document", doc.ID, "error", err)
		}
	}

	logger.Info("ingest: document stored",
		"document", doc.ID,
		"chunks", len(chunks),
		"embedded", result.Embedded,
		"duration", time.Since(started))
	return result, nil
}

// IngestBatch processes documents in order. A duplicate never blocks later
// documents; a failed lookup or write does.
func (m *Manager) IngestBatch(ctx context.Context, reqs []Request) ([]Result, error) {
	results := make([]Result, 0, len(reqs))
	for _, req := range reqs {
		res, err := m.Ingest(ctx, req)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (m *Manager) splitDocument(doc corpus.Document) []corpus.Chunk {
	content := strings.TrimSpace(doc.Content)
	if content == "" {
		return nil
	}
	parts, err := m.splitter.SplitText(content)
	if err != nil || len(parts) == 0 {
		parts = []string{content}
	}
	chunks := make([]corpus.Chunk, 0, len(parts))
	for idx, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		chunks = append(chunks, corpus.Chunk{
			ID:         fmt.Sprintf("%s:%d", doc.ID, idx),
			DocumentID: doc.ID,
			Seq:        idx,
			Content:    part,
		})
	}
	return chunks
}

func (m *Manager) embedChunks(ctx context.Context, doc corpus.Document, chunks []corpus.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += m.cfg.BatchSize {
		end := start + m.cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		inputs := make([]string, 0, end-start)
		for _, chunk := range chunks[start:end] {
			inputs = append(inputs, chunk.Content)
		}
		batch, err := m.provider.Embed(ctx, inputs)
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}
		if len(batch) != len(inputs) {
			return fmt.Errorf("embed batch: got %d vectors for %d inputs", len(batch), len(inputs))
		}
		vectors = append(vectors, batch...)
	}
	dim := vector.Dimension(vectors)
	if dim == 0 {
		return errors.New("provider produced no embeddings")
	}
	if err := m.vectors.EnsureCollection(ctx, dim); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	if err := m.vectors.UpsertChunks(ctx, doc, chunks, vectors); err != nil {
		return fmt.Errorf("upsert chunks: %w", err)
	}
	return nil
}

func requestMetadata(req Request) dedup.Metadata {
	return dedup.Metadata{
		dedup.FieldTitle:      req.Title,
		dedup.FieldAuthor:     req.Author,
		dedup.FieldIdentifier: req.Identifier,
		dedup.FieldSourcePath: req.SourcePath,
	}
}
