// File path: internal/graph/kuzu/client.go
package kuzu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/corpuskit/corpusd/internal/common"
	"github.com/corpuskit/corpusd/internal/graph"
)

// Client implements graph.Client against the Kuzu REST API with a small
// connection pool bounding concurrent queries.
type Client struct {
	cfg        Config
	httpClient *http.Client
	transport  *http.Transport
	baseURL    string

	pool      chan struct{}
	closing   chan struct{}
	closeOnce sync.Once

	mu        sync.RWMutex
	available bool
}

type queryRequest struct {
	Query    string                 `json:"query"`
	Params   map[string]interface{} `json:"params,omitempty"`
	Database string                 `json:"database,omitempty"`
}

type queryResponse struct {
	Error string `json:"error,omitempty"`
}

// NewClient constructs a client from the provided configuration. An
// unreachable backend leaves the client constructed but unavailable.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("kuzu disabled")
	}
	logger := common.Logger()
	logger.Info("graph: initializing kuzu client", "endpoint", cfg.Endpoint, "database", cfg.Database, "pool", cfg.MaxConnections)

	transport := &http.Transport{
		MaxIdleConns:        cfg.HTTPMaxIdleConns,
		MaxIdleConnsPerHost: cfg.HTTPMaxIdlePerHost,
		IdleConnTimeout:     cfg.HTTPIdleConnTimeout,
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		transport:  transport,
		baseURL:    strings.TrimRight(cfg.Endpoint, "/"),
		pool:       make(chan struct{}, cfg.MaxConnections),
		closing:    make(chan struct{}),
	}
	for i := 0; i < cfg.MaxConnections; i++ {
		client.pool <- struct{}{}
	}
	client.setAvailable(true)
	if err := client.ping(ctx); err != nil {
		logger.Warn("graph: kuzu ping failed", "error", err)
		client.setAvailable(false)
		return client, nil
	}
	logger.Info("graph: kuzu client ready")
	return client, nil
}

// NewFromEnv loads configuration and constructs a client. A nil client with a
// nil error means the graph layer is disabled.
func NewFromEnv(ctx context.Context) (*Client, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled() {
		return nil, nil
	}
	return NewClient(ctx, cfg)
}

// Available reports whether the client is ready for use.
func (c *Client) Available() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available
}

// Close releases the underlying HTTP client resources.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		close(c.closing)
		c.setAvailable(false)
		if c.transport != nil {
			c.transport.CloseIdleConnections()
		}
	})
	return nil
}

// EnsureSchema creates the document graph tables when missing.
func (c *Client) EnsureSchema(ctx context.Context) error {
	if c == nil {
		return errors.New("kuzu client not configured")
	}
	statements := []string{
		`CREATE NODE TABLE IF NOT EXISTS Document (
            id STRING,
            project_id STRING,
            title STRING,
            author STRING,
            source STRING,
            content_hash STRING,
            metadata_hash STRING,
            summary STRING,
            updated_at DATETIME,
            PRIMARY KEY (id)
        );`,
		`CREATE NODE TABLE IF NOT EXISTS Project (
            id STRING,
            updated_at DATETIME,
            PRIMARY KEY (id)
        );`,
		`CREATE REL TABLE IF NOT EXISTS BELONGS_TO (
            FROM Document TO Project,
            updated_at DATETIME,
            PRIMARY KEY (FROM, TO)
        );`,
		`CREATE REL TABLE IF NOT EXISTS DUPLICATE_OF (
            FROM Document TO Document,
            strategy STRING,
            score INT64,
            updated_at DATETIME,
            PRIMARY KEY (FROM, TO)
        );`,
	}
	for _, stmt := range statements {
		if err := c.exec(ctx, stmt, nil); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// InsertDocument upserts a document node and attaches it to its project.
func (c *Client) InsertDocument(ctx context.Context, doc graph.DocumentNode) error {
	if doc.ID == "" {
		return errors.New("document id required")
	}
	params := map[string]interface{}{
		"id":            doc.ID,
		"project_id":    doc.ProjectID,
		"title":         doc.Title,
		"author":        doc.Author,
		"source":        doc.SourcePath,
		"content_hash":  doc.ContentHash,
		"metadata_hash": doc.MetadataHash,
		"summary":       doc.Summary,
	}
	query := `MERGE (d:Document {id: $id})
SET d.project_id = $project_id,
    d.title = $title,
    d.author = $author,
    d.source = $source,
    d.content_hash = $content_hash,
    d.metadata_hash = $metadata_hash,
    d.summary = $summary,
    d.updated_at = datetime();`
	if err := c.exec(ctx, query, params); err != nil {
		return err
	}
	if strings.TrimSpace(doc.ProjectID) == "" {
		return nil
	}
	link := `MERGE (p:Project {id: $project_id})
SET p.updated_at = datetime()
WITH p
MATCH (d:Document {id: $id})
MERGE (d)-[rel:BELONGS_TO]->(p)
SET rel.updated_at = datetime();`
	return c.exec(ctx, link, map[string]interface{}{
		"id":         doc.ID,
		"project_id": doc.ProjectID,
	})
}

// LinkDuplicate records a duplicate relationship between two documents.
func (c *Client) LinkDuplicate(ctx context.Context, edge graph.DuplicateEdge) error {
	if edge.FromID == "" || edge.ToID == "" {
		return errors.New("duplicate edge endpoints required")
	}
	params := map[string]interface{}{
		"from":     edge.FromID,
		"to":       edge.ToID,
		"strategy": edge.Strategy,
		"score":    edge.Score,
	}
	query := `MATCH (src:Document {id: $from})
MATCH (dst:Document {id: $to})
MERGE (src)-[rel:DUPLICATE_OF]->(dst)
SET rel.strategy = $strategy,
    rel.score = $score,
    rel.updated_at = datetime();`
	return c.exec(ctx, query, params)
}

var _ graph.Client = (*Client)(nil)

func (c *Client) exec(ctx context.Context, query string, params map[string]interface{}) error {
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()
	return c.execute(ctx, query, params)
}

func (c *Client) execute(ctx context.Context, query string, params map[string]interface{}) error {
	reqPayload := queryRequest{Query: query, Database: c.cfg.Database}
	if len(params) > 0 {
		reqPayload.Params = params
	}
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(reqPayload); err != nil {
		return fmt.Errorf("encode query: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	if c.cfg.Username != "" {
		request.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}
	resp, err := c.httpClient.Do(request)
	if err != nil {
		c.setAvailable(false)
		return fmt.Errorf("kuzu request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		c.setAvailable(false)
		return fmt.Errorf("kuzu query failed: status %d", resp.StatusCode)
	}
	var qr queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("decode kuzu response: %w", err)
	}
	if strings.TrimSpace(qr.Error) != "" {
		return errors.New(qr.Error)
	}
	c.setAvailable(true)
	return nil
}

func (c *Client) ping(ctx context.Context) error {
	pingTimeout := c.cfg.Timeout
	if pingTimeout < 500*time.Millisecond {
		pingTimeout = 500 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.exec(ctx, "RETURN 1;", nil)
}

func (c *Client) setAvailable(ready bool) {
	c.mu.Lock()
	c.available = ready
	c.mu.Unlock()
}

func (c *Client) acquire(ctx context.Context) error {
	if c == nil {
		return errors.New("kuzu client not configured")
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closing:
		return errors.New("kuzu client closed")
	case <-c.pool:
		return nil
	}
}

func (c *Client) release() {
	select {
	case c.pool <- struct{}{}:
	default:
	}
}
