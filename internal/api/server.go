// File path: internal/api/server.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/corpuskit/corpusd/internal/catalog"
	"github.com/corpuskit/corpusd/internal/common"
	"github.com/corpuskit/corpusd/internal/graph"
	"github.com/corpuskit/corpusd/internal/ingest"
	"github.com/corpuskit/corpusd/internal/llm"
	"github.com/corpuskit/corpusd/internal/vector"
)

// Server exposes the ingestion pipeline, duplicate checks, and catalog
// queries over HTTP.
type Server struct {
	router   chi.Router
	catalog  *catalog.Store
	manager  *ingest.Manager
	provider llm.Provider
	vector   vector.Store
	graph    graph.Client
}

func NewServer(store *catalog.Store, manager *ingest.Manager, provider llm.Provider, vectorStore vector.Store, graphClient graph.Client) (*Server, error) {
	logger := common.Logger()
	if store == nil {
		return nil, fmt.Errorf("catalog store required")
	}
	if manager == nil {
		return nil, fmt.Errorf("ingest manager required")
	}
	providerName := "unknown"
	if provider != nil {
		providerName = provider.Name()
	}
	logger.Info(
		"api: building server",
		"provider", providerName,
		"vector_available", vectorStore != nil && vectorStore.Available(),
		"graph_available", graphClient != nil && graphClient.Available(),
	)
	srv := &Server{
		router:   chi.NewRouter(),
		catalog:  store,
		manager:  manager,
		provider: provider,
		vector:   vectorStore,
		graph:    graphClient,
	}
	srv.routes()
	logger.Info("api: server ready")
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Post("/v1/ingest", s.handleIngest)
	s.router.Post("/v1/duplicates/check", s.handleDuplicateCheck)
	s.router.Get("/v1/documents", s.handleDocuments)
	s.router.Get("/v1/documents/{id}", s.handleDocument)
	s.router.Get("/v1/projects", s.handleProjects)
	s.router.Get("/v1/search", s.handleSearch)
	s.router.Get("/v1/logs", s.handleLogs)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
