// File path: internal/ingest/manager_test.go
package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/corpuskit/corpusd/internal/catalog"
	"github.com/corpuskit/corpusd/internal/corpus"
	"github.com/corpuskit/corpusd/internal/dedup"
	"github.com/corpuskit/corpusd/internal/llm"
	"github.com/corpuskit/corpusd/internal/vector"
)

type fakeProvider struct{}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	vectors := make([][]float32, len(inputs))
	for i, input := range inputs {
		vectors[i] = []float32{float32(len(input)), 1, 0}
	}
	return vectors, nil
}

func (f *fakeProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	return "", nil
}

type fakeVectorStore struct {
	upserts   int
	chunkIDs  []string
	ensureDim int
}

func (f *fakeVectorStore) Available() bool    { return true }
func (f *fakeVectorStore) Collection() string { return "test" }

func (f *fakeVectorStore) EnsureCollection(ctx context.Context, dim int) error {
	f.ensureDim = dim
	return nil
}

func (f *fakeVectorStore) UpsertChunks(ctx context.Context, doc corpus.Document, chunks []corpus.Chunk, vectors [][]float32) error {
	f.upserts++
	for _, chunk := range chunks {
		f.chunkIDs = append(f.chunkIDs, chunk.ID)
	}
	if len(vectors) != len(chunks) {
		return errors.New("vector count mismatch")
	}
	return nil
}

func (f *fakeVectorStore) Search(ctx context.Context, vec []float32, limit int) ([]vector.SearchResult, error) {
	return nil, nil
}

func newTestManager(t *testing.T, vectors vector.Store, cfg Config) (*Manager, *catalog.Store) {
	t.Helper()
	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	mgr, err := NewManager(store, &fakeProvider{}, vectors, nil, cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return mgr, store
}

func TestIngestStoresOriginalDocument(t *testing.T) {
	mgr, store := newTestManager(t, nil, DefaultConfig())
	ctx := context.Background()

	res, err := mgr.Ingest(ctx, Request{
		ProjectID:  "library",
		Title:      "Introduction to Neural Networks",
		Author:     "Ada",
		SourcePath: "/docs/neural.pdf",
		Content:    "neural networks learn representations from data",
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !res.Stored || res.Verdict.IsDuplicate {
		t.Fatalf("original document should be stored, got %+v", res)
	}
	if res.DocumentID == "" {
		t.Fatalf("stored document missing id")
	}
	doc, err := store.GetDocument(ctx, res.DocumentID)
	if err != nil {
		t.Fatalf("get stored document: %v", err)
	}
	if doc.ContentHash == "" || doc.MetadataHash == "" {
		t.Fatalf("stored document missing fingerprints: %+v", doc)
	}
}

func TestIngestRejectsContentDuplicate(t *testing.T) {
	mgr, _ := newTestManager(t, nil, DefaultConfig())
	ctx := context.Background()

	first, err := mgr.Ingest(ctx, Request{
		Title:   "Original Paper",
		Content: "the same body of text",
	})
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	second, err := mgr.Ingest(ctx, Request{
		Title:   "Totally Different Title",
		Content: "The  Same   Body of\ttext",
	})
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if !second.Verdict.IsDuplicate {
		t.Fatalf("normalized-identical content should be a duplicate")
	}
	if second.Stored {
		t.Fatalf("duplicate must not be stored")
	}
	if second.Verdict.MatchedID != first.DocumentID {
		t.Fatalf("duplicate matched %q, want %q", second.Verdict.MatchedID, first.DocumentID)
	}
	if second.Verdict.Strategy != dedup.StrategyContentHash {
		t.Fatalf("duplicate strategy = %q, want %q", second.Verdict.Strategy, dedup.StrategyContentHash)
	}
}

func TestIngestRejectsNearIdenticalTitle(t *testing.T) {
	mgr, _ := newTestManager(t, nil, DefaultConfig())
	ctx := context.Background()

	first, err := mgr.Ingest(ctx, Request{
		Title:   "Introduction to Neural Networks",
		Content: "alpha body",
	})
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	second, err := mgr.Ingest(ctx, Request{
		Title:   "Introduction to Neural Network",
		Content: "completely different body text",
	})
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if !second.Verdict.IsDuplicate || second.Verdict.Strategy != dedup.StrategyFuzzyTitle {
		t.Fatalf("near-identical title should match fuzzily, got %+v", second.Verdict)
	}
	if second.Verdict.MatchedID != first.DocumentID {
		t.Fatalf("fuzzy match returned %q, want %q", second.Verdict.MatchedID, first.DocumentID)
	}
}

func TestIngestAdmitsDistinctTitles(t *testing.T) {
	mgr, _ := newTestManager(t, nil, DefaultConfig())
	ctx := context.Background()

	if _, err := mgr.Ingest(ctx, Request{Title: "Introduction to Neural Networks", Content: "one"}); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	res, err := mgr.Ingest(ctx, Request{Title: "Advanced Robotics", Content: "two"})
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if res.Verdict.IsDuplicate || !res.Stored {
		t.Fatalf("distinct document should be admitted, got %+v", res)
	}
}

func TestCheckDuplicateDoesNotStore(t *testing.T) {
	mgr, store := newTestManager(t, nil, DefaultConfig())
	ctx := context.Background()

	verdict, err := mgr.CheckDuplicate(ctx, Request{Title: "Dry Run", Content: "body"})
	if err != nil {
		t.Fatalf("check duplicate: %v", err)
	}
	if verdict.IsDuplicate {
		t.Fatalf("empty corpus cannot contain duplicates")
	}
	page, err := store.QueryDocuments(ctx, catalog.QueryOptions{Limit: 10})
	if err != nil {
		t.Fatalf("query documents: %v", err)
	}
	if page.Total != 0 {
		t.Fatalf("dry-run check stored %d documents", page.Total)
	}
}

func TestIngestEmbedsChunksIntoVectorStore(t *testing.T) {
	vectors := &fakeVectorStore{}
	cfg := DefaultConfig()
	cfg.ChunkSize = 24
	cfg.ChunkOverlap = 0
	cfg.BatchSize = 2
	mgr, _ := newTestManager(t, vectors, cfg)

	res, err := mgr.Ingest(context.Background(), Request{
		Title:   "Chunked Document",
		Content: "first section of prose. second section of prose. third section of prose.",
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !res.Embedded {
		t.Fatalf("expected embeddings to be pushed, got %+v", res)
	}
	if res.Chunks < 2 {
		t.Fatalf("small chunk size should produce multiple chunks, got %d", res.Chunks)
	}
	if vectors.upserts != 1 || len(vectors.chunkIDs) != res.Chunks {
		t.Fatalf("vector store saw %d upserts with %d chunks, want 1 upsert with %d", vectors.upserts, len(vectors.chunkIDs), res.Chunks)
	}
	if vectors.ensureDim != 3 {
		t.Fatalf("ensure dimension = %d, want 3", vectors.ensureDim)
	}
}

func TestIngestBatchContinuesPastDuplicates(t *testing.T) {
	mgr, _ := newTestManager(t, nil, DefaultConfig())
	ctx := context.Background()

	results, err := mgr.IngestBatch(ctx, []Request{
		{Title: "Alpha Report", Content: "alpha"},
		{Title: "Alpha Report", Content: "alpha"},
		{Title: "Beta Report", Content: "beta"},
	})
	if err != nil {
		t.Fatalf("ingest batch: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("batch returned %d results, want 3", len(results))
	}
	if results[0].Verdict.IsDuplicate || !results[0].Stored {
		t.Fatalf("first document should be stored: %+v", results[0])
	}
	if !results[1].Verdict.IsDuplicate || results[1].Stored {
		t.Fatalf("repeat document should be rejected: %+v", results[1])
	}
	if results[2].Verdict.IsDuplicate || !results[2].Stored {
		t.Fatalf("third document should be stored: %+v", results[2])
	}
}

func TestIngestRejectsEmptySubmission(t *testing.T) {
	mgr, _ := newTestManager(t, nil, DefaultConfig())
	if _, err := mgr.Ingest(context.Background(), Request{}); err == nil {
		t.Fatalf("empty submission should fail")
	}
}
