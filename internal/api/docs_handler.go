// File path: internal/api/docs_handler.go
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/corpuskit/corpusd/internal/catalog"
	"github.com/corpuskit/corpusd/internal/common"
)

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	opts := catalog.QueryOptions{
		ProjectID:    strings.TrimSpace(r.URL.Query().Get("project_id")),
		TitlePattern: strings.TrimSpace(r.URL.Query().Get("title")),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		opts.Limit = value
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid offset %q", raw))
			return
		}
		opts.Offset = value
	}
	page, err := s.catalog.QueryDocuments(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("list documents: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("document id required"))
		return
	}
	doc, err := s.catalog.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Errorf("get document: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	infos, err := s.catalog.Projects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("list projects: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"projects": infos})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	entries := common.LogEntries()
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
