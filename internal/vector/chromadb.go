// File path: internal/vector/chromadb.go
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/corpuskit/corpusd/internal/common"
	"github.com/corpuskit/corpusd/internal/corpus"
)

// Store is the vector-side surface the ingestion pipeline and search handler
// use.
type Store interface {
	Available() bool
	Collection() string
	EnsureCollection(ctx context.Context, dim int) error
	UpsertChunks(ctx context.Context, doc corpus.Document, chunks []corpus.Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, limit int) ([]SearchResult, error)
}

// SearchResult is one vector query hit with its stored payload.
type SearchResult struct {
	ID      string                 `json:"id"`
	Score   float32                `json:"score"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Client talks to a ChromaDB instance over its REST API.
type Client struct {
	httpClient *http.Client
	transport  *http.Transport

	baseURL      string
	collection   string
	collectionID string
	available    bool
	apiKey       string

	mu sync.RWMutex
}

var (
	errNotFound = errors.New("resource not found")
	errConflict = errors.New("resource conflict")
)

// NewFromEnv constructs a client from CHROMADB_* environment configuration.
func NewFromEnv(ctx context.Context) (*Client, error) {
	return New(ctx, LoadConfig())
}

// New constructs a client using the provided configuration. An unreachable
// backend is not an error; the client stays constructed but unavailable.
func New(ctx context.Context, cfg Config) (*Client, error) {
	logger := common.Logger()
	logger.Info("vector: initializing chromadb client", "host", cfg.Host, "port", cfg.Port, "collection", cfg.Collection)
	transport := &http.Transport{
		MaxIdleConns:    cfg.MaxIdleConns,
		IdleConnTimeout: cfg.IdleConnTimeout,
	}
	client := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		transport:  transport,
		baseURL:    strings.TrimRight(fmt.Sprintf("%s://%s:%s/api/v1", cfg.Scheme, cfg.Host, cfg.Port), "/"),
		collection: cfg.Collection,
		apiKey:     cfg.APIKey,
	}
	if err := client.ensureReady(ctx); err != nil {
		logger.Warn("vector: chromadb initialization failed", "collection", cfg.Collection, "error", err)
		return client, nil
	}
	logger.Info("vector: chromadb connection established")
	return client, nil
}

func (c *Client) Available() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available
}

func (c *Client) Collection() string {
	if c == nil {
		return ""
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collection
}

func (c *Client) ensureReady(ctx context.Context) error {
	if c == nil {
		return errors.New("chromadb client not configured")
	}
	c.mu.RLock()
	ready := c.available && c.collectionID != ""
	c.mu.RUnlock()
	if ready {
		return nil
	}
	const maxAttempts = 3
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = c.heartbeat(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			c.setAvailable(false)
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 250 * time.Millisecond):
		}
	}
	if err != nil {
		c.setAvailable(false)
		return err
	}
	if err := c.ensureCollectionID(ctx); err != nil {
		c.setAvailable(false)
		return err
	}
	c.setAvailable(true)
	return nil
}

func (c *Client) setAvailable(v bool) {
	c.mu.Lock()
	c.available = v
	c.mu.Unlock()
}

// EnsureCollection verifies the backing collection exists and the vector
// dimension is sane before the first upsert of a batch.
func (c *Client) EnsureCollection(ctx context.Context, dim int) error {
	if err := c.ensureReady(ctx); err != nil {
		return err
	}
	if dim <= 0 {
		return errors.New("invalid vector dimension")
	}
	return nil
}

// UpsertChunks stores one embedding per chunk, carrying the parent document's
// identifying metadata in each payload.
func (c *Client) UpsertChunks(ctx context.Context, doc corpus.Document, chunks []corpus.Chunk, vectors [][]float32) error {
	if err := c.ensureReady(ctx); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	ids := make([]string, 0, len(chunks))
	embeddings := make([][]float32, 0, len(chunks))
	documents := make([]string, 0, len(chunks))
	metadatas := make([]map[string]interface{}, 0, len(chunks))
	for idx, chunk := range chunks {
		ids = append(ids, chunk.ID)
		if idx < len(vectors) {
			embeddings = append(embeddings, vectors[idx])
		} else {
			embeddings = append(embeddings, nil)
		}
		documents = append(documents, chunk.Content)
		metadatas = append(metadatas, map[string]interface{}{
			"document_id": doc.ID,
			"project_id":  doc.ProjectID,
			"title":       doc.Title,
			"source":      doc.SourcePath,
			"seq":         chunk.Seq,
		})
	}
	payload := map[string]interface{}{
		"ids":        ids,
		"documents":  documents,
		"metadatas":  metadatas,
		"embeddings": embeddings,
	}
	endpoint := fmt.Sprintf("%s/collections/%s/upsert", c.baseURL, url.PathEscape(c.collectionID))
	if err := c.doRequest(ctx, http.MethodPost, endpoint, payload, nil); err != nil {
		if errors.Is(err, errNotFound) {
			fallback := fmt.Sprintf("%s/collections/%s/add", c.baseURL, url.PathEscape(c.collectionID))
			return c.doRequest(ctx, http.MethodPost, fallback, payload, nil)
		}
		return err
	}
	return nil
}

// Search runs a plain nearest-neighbor query; ranking beyond vector distance
// belongs to callers outside this service.
func (c *Client) Search(ctx context.Context, vector []float32, limit int) ([]SearchResult, error) {
	if err := c.ensureReady(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}
	body := map[string]interface{}{
		"query_embeddings": [][]float32{vector},
		"n_results":        limit,
	}
	endpoint := fmt.Sprintf("%s/collections/%s/query", c.baseURL, url.PathEscape(c.collectionID))
	var resp struct {
		IDs       [][]string                 `json:"ids"`
		Distances [][]float64                `json:"distances"`
		Metadatas [][]map[string]interface{} `json:"metadatas"`
		Documents [][]string                 `json:"documents"`
	}
	if err := c.doRequest(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.IDs) == 0 {
		return nil, nil
	}
	results := make([]SearchResult, 0, len(resp.IDs[0]))
	for idx, id := range resp.IDs[0] {
		payload := map[string]interface{}{}
		if len(resp.Metadatas) > 0 && idx < len(resp.Metadatas[0]) {
			for k, v := range resp.Metadatas[0][idx] {
				payload[k] = v
			}
		}
		if len(resp.Documents) > 0 && idx < len(resp.Documents[0]) && resp.Documents[0][idx] != "" {
			payload["content"] = resp.Documents[0][idx]
		}
		var score float32
		if len(resp.Distances) > 0 && idx < len(resp.Distances[0]) {
			score = float32(1.0 / (1.0 + resp.Distances[0][idx]))
		}
		results = append(results, SearchResult{ID: id, Score: score, Payload: payload})
	}
	return results, nil
}

var _ Store = (*Client)(nil)

func (c *Client) ensureCollectionID(ctx context.Context) error {
	c.mu.RLock()
	if c.collectionID != "" {
		c.mu.RUnlock()
		return nil
	}
	name := c.collection
	c.mu.RUnlock()

	id, err := c.findCollection(ctx, name)
	if err != nil {
		return err
	}
	if id == "" {
		id, err = c.createCollection(ctx, name)
		if err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.collectionID = id
	c.mu.Unlock()
	return nil
}

func (c *Client) findCollection(ctx context.Context, name string) (string, error) {
	var resp struct {
		Collections []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"collections"`
	}
	endpoint := fmt.Sprintf("%s/collections", c.baseURL)
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return "", nil
		}
		return "", err
	}
	for _, col := range resp.Collections {
		if strings.EqualFold(col.Name, name) {
			return col.ID, nil
		}
	}
	return "", nil
}

func (c *Client) createCollection(ctx context.Context, name string) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	endpoint := fmt.Sprintf("%s/collections", c.baseURL)
	if err := c.doRequest(ctx, http.MethodPost, endpoint, map[string]interface{}{"name": name}, &resp); err != nil {
		if errors.Is(err, errConflict) {
			return c.findCollection(ctx, name)
		}
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) heartbeat(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodGet, fmt.Sprintf("%s/heartbeat", c.baseURL), nil, nil)
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body, out interface{}) error {
	if c == nil {
		return errors.New("chromadb client not configured")
	}
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode == http.StatusConflict:
		return errConflict
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chromadb %s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Close releases pooled connections.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
	return nil
}

// Dimension returns the first non-empty vector length in a batch.
func Dimension(vectors [][]float32) int {
	for _, vec := range vectors {
		if len(vec) > 0 {
			return len(vec)
		}
	}
	return 0
}
