// File path: internal/api/server_test.go
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/corpuskit/corpusd/internal/catalog"
	"github.com/corpuskit/corpusd/internal/dedup"
	"github.com/corpuskit/corpusd/internal/ingest"
	"github.com/corpuskit/corpusd/internal/llm/providers"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	provider := providers.NewLocalProvider()
	manager, err := ingest.NewManager(store, provider, nil, nil, ingest.DefaultConfig())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	srv, err := NewServer(store, manager, provider, nil, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv
}

func postJSON(t *testing.T, srv *Server, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rr.Code)
	}
}

func TestIngestEndpointStoresAndRejects(t *testing.T) {
	srv := newTestServer(t)
	payload := map[string]interface{}{
		"documents": []ingest.Request{
			{ProjectID: "lib", Title: "Introduction to Neural Networks", Content: "body one"},
			{ProjectID: "lib", Title: "Introduction to Neural Network", Content: "body two"},
		},
	}
	rr := postJSON(t, srv, "/v1/ingest", payload)
	if rr.Code != http.StatusOK {
		t.Fatalf("ingest status = %d, body %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Results []ingest.Result `json:"results"`
		Stored  int             `json:"stored"`
		Dupes   int             `json:"duplicates"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Stored != 1 || resp.Dupes != 1 {
		t.Fatalf("stored=%d duplicates=%d, want 1 and 1", resp.Stored, resp.Dupes)
	}
	if resp.Results[1].Verdict.Strategy != dedup.StrategyFuzzyTitle {
		t.Fatalf("second document strategy = %q, want fuzzy title", resp.Results[1].Verdict.Strategy)
	}
}

func TestIngestEndpointRejectsEmptyBatch(t *testing.T) {
	srv := newTestServer(t)
	rr := postJSON(t, srv, "/v1/ingest", map[string]interface{}{"documents": []ingest.Request{}})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty batch status = %d, want 400", rr.Code)
	}
}

func TestDuplicateCheckEndpointIsDryRun(t *testing.T) {
	srv := newTestServer(t)

	ingestPayload := map[string]interface{}{
		"documents": []ingest.Request{{Title: "Archived Report", Content: "stable body"}},
	}
	if rr := postJSON(t, srv, "/v1/ingest", ingestPayload); rr.Code != http.StatusOK {
		t.Fatalf("seed ingest status = %d", rr.Code)
	}

	rr := postJSON(t, srv, "/v1/duplicates/check", ingest.Request{
		Title:   "Unrelated Title",
		Content: "Stable   BODY",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("check status = %d, body %s", rr.Code, rr.Body.String())
	}
	var verdict dedup.Verdict
	if err := json.NewDecoder(rr.Body).Decode(&verdict); err != nil {
		t.Fatalf("decode verdict: %v", err)
	}
	if !verdict.IsDuplicate || verdict.Strategy != dedup.StrategyContentHash {
		t.Fatalf("unexpected verdict: %+v", verdict)
	}

	listReq := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
	listRR := httptest.NewRecorder()
	srv.ServeHTTP(listRR, listReq)
	var page catalog.DocumentsPage
	if err := json.NewDecoder(listRR.Body).Decode(&page); err != nil {
		t.Fatalf("decode documents: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("dry-run check changed catalog size: total = %d", page.Total)
	}
}

func TestDocumentLookupNotFound(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/documents/missing-id", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing document status = %d, want 404", rr.Code)
	}
}

func TestSearchFallsBackToCatalog(t *testing.T) {
	srv := newTestServer(t)
	seed := map[string]interface{}{
		"documents": []ingest.Request{
			{ProjectID: "lib", Title: "Neural Networks Primer", Content: "alpha"},
			{ProjectID: "lib", Title: "Advanced Robotics", Content: "beta"},
		},
	}
	if rr := postJSON(t, srv, "/v1/ingest", seed); rr.Code != http.StatusOK {
		t.Fatalf("seed ingest status = %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/search?q=neural+networks", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("search status = %d", rr.Code)
	}
	var resp searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode search response: %v", err)
	}
	if resp.Mode != "catalog" {
		t.Fatalf("search mode = %q, want catalog fallback", resp.Mode)
	}
	if len(resp.Hits) != 1 {
		t.Fatalf("search hits = %d, want 1", len(resp.Hits))
	}
	if title, _ := resp.Hits[0].Payload["title"].(string); title != "Neural Networks Primer" {
		t.Fatalf("unexpected hit payload: %+v", resp.Hits[0].Payload)
	}
}

func TestProjectsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	seed := map[string]interface{}{
		"documents": []ingest.Request{
			{ProjectID: "alpha", Title: "One", Content: "a"},
			{ProjectID: "alpha", Title: "Two", Content: "b"},
			{ProjectID: "beta", Title: "Three", Content: "c"},
		},
	}
	if rr := postJSON(t, srv, "/v1/ingest", seed); rr.Code != http.StatusOK {
		t.Fatalf("seed ingest status = %d", rr.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/v1/projects", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	var resp struct {
		Projects []catalog.ProjectInfo `json:"projects"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode projects: %v", err)
	}
	if len(resp.Projects) != 2 || resp.Projects[0].ID != "alpha" || resp.Projects[0].Documents != 2 {
		t.Fatalf("unexpected projects: %+v", resp.Projects)
	}
}

func TestLogsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/logs", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("logs status = %d", rr.Code)
	}
	var resp map[string]json.RawMessage
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode logs: %v", err)
	}
	if _, ok := resp["entries"]; !ok {
		t.Fatalf("logs response missing entries key")
	}
}
