package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/querylabs/querybench/pkg/history"
)

// defaultResultsLimit caps an unbounded results listing.
const defaultResultsLimit = 100

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON serializes v to the response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}

// handleHealth reports liveness.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListRuns returns one summary per recorded bench run.
func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Listing runs failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{"listing runs failed"})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// handleListResults returns recorded per-case results, optionally narrowed
// by bench_run_id, cases_hash and case_id query parameters.
func (s *server) handleListResults(w http.ResponseWriter, r *http.Request) {
	filter := history.ResultFilter{
		BenchRunID: r.URL.Query().Get("bench_run_id"),
		CasesHash:  r.URL.Query().Get("cases_hash"),
		CaseID:     r.URL.Query().Get("case_id"),
		Limit:      defaultResultsLimit,
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{"invalid limit"})

			return
		}

		filter.Limit = limit
	}

	results, err := s.store.ListResults(r.Context(), filter)
	if err != nil {
		s.log.WithError(err).Error("Listing results failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{"listing results failed"})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
