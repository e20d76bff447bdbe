// File path: internal/api/search_handler.go
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/corpuskit/corpusd/internal/catalog"
	"github.com/corpuskit/corpusd/internal/common"
)

type searchHit struct {
	ID      string                 `json:"id"`
	Score   float32                `json:"score,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

type searchResponse struct {
	Query string      `json:"query"`
	Mode  string      `json:"mode"`
	Hits  []searchHit `json:"hits"`
}

// handleSearch answers semantic queries against the vector store when it is
// reachable, and otherwise degrades to a title substring match on the
// catalog.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("q query parameter required"))
		return
	}
	limit := 5
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = value
	}

	if s.vector != nil && s.vector.Available() && s.provider != nil {
		vectors, err := s.provider.Embed(r.Context(), []string{query})
		if err == nil && len(vectors) == 1 && len(vectors[0]) > 0 {
			results, err := s.vector.Search(r.Context(), vectors[0], limit)
			if err == nil {
				hits := make([]searchHit, 0, len(results))
				for _, result := range results {
					hits = append(hits, searchHit{ID: result.ID, Score: result.Score, Payload: result.Payload})
				}
				writeJSON(w, http.StatusOK, searchResponse{Query: query, Mode: "vector", Hits: hits})
				return
			}
			logger.Warn("api: vector search failed, falling back to catalog", "error", err)
		} else if err != nil {
			logger.Warn("api: query embedding failed, falling back to catalog", "error", err)
		}
	}

	page, err := s.catalog.QueryDocuments(r.Context(), catalog.QueryOptions{TitlePattern: query, Limit: limit})
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("catalog search: %w", err))
		return
	}
	hits := make([]searchHit, 0, len(page.Documents))
	for _, doc := range page.Documents {
		hits = append(hits, searchHit{
			ID: doc.ID,
			Payload: map[string]interface{}{
				"title":      doc.Title,
				"project_id": doc.ProjectID,
				"source":     doc.SourcePath,
			},
		})
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: query, Mode: "catalog", Hits: hits})
}
