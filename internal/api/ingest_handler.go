// File path: internal/api/ingest_handler.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/corpuskit/corpusd/internal/common"
	"github.com/corpuskit/corpusd/internal/dedup"
	"github.com/corpuskit/corpusd/internal/ingest"
)

type ingestRequest struct {
	Documents []ingest.Request `json:"documents"`
}

type ingestResponse struct {
	Results    []ingest.Result `json:"results"`
	Stored     int             `json:"stored"`
	Duplicates int             `json:"duplicates"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode ingest request: %w", err))
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("no documents provided"))
		return
	}
	logger.Info("api: ingest requested", "documents", len(req.Documents))
	results, err := s.manager.IngestBatch(r.Context(), req.Documents)
	if err != nil {
		writeError(w, ingestStatus(err), fmt.Errorf("ingest: %w", err))
		return
	}
	resp := ingestResponse{Results: results}
	for _, res := range results {
		if res.Stored {
			resp.Stored++
		}
		if res.Verdict.IsDuplicate {
			resp.Duplicates++
		}
	}
	logger.Info("api: ingest completed", "stored", resp.Stored, "duplicates", resp.Duplicates)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDuplicateCheck(w http.ResponseWriter, r *http.Request) {
	var req ingest.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode check request: %w", err))
		return
	}
	verdict, err := s.manager.CheckDuplicate(r.Context(), req)
	if err != nil {
		writeError(w, ingestStatus(err), fmt.Errorf("duplicate check: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, verdict)
}

// ingestStatus maps pipeline failures to HTTP statuses. A failed corpus
// lookup means uniqueness could not be verified, which is a server-side
// condition rather than a bad request.
func ingestStatus(err error) int {
	if errors.Is(err, dedup.ErrLookupFailed) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
