// Package server exposes the ingestion and search pipeline over HTTP and
// handles readiness probes and graceful shutdown.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/medialens/medialens/internal/pipeline"
	"github.com/medialens/medialens/internal/search"
	"github.com/medialens/medialens/internal/vector"
)

// API is the HTTP surface of the service.
type API struct {
	pipeline *pipeline.Pipeline
	searcher *search.Searcher
	store    vector.Store
	health   *HealthServer
	logger   *slog.Logger
}

// NewAPI wires the handlers.
func NewAPI(p *pipeline.Pipeline, s *search.Searcher, store vector.Store, health *HealthServer, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{pipeline: p, searcher: s, store: store, health: health, logger: logger}
}

// Handler builds the route table.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", a.handleRoot)
	mux.HandleFunc("POST /process/media", a.handleProcess)
	mux.HandleFunc("POST /search", a.handleSearch)
	mux.HandleFunc("DELETE /reset", a.handleReset)
	mux.HandleFunc("GET /stats", a.handleStats)
	if a.health != nil {
		mux.HandleFunc("GET /health", a.health.handleHealth)
		mux.HandleFunc("GET /ready", a.health.handleReady)
		mux.HandleFunc("GET /live", a.health.handleLive)
	}
	return mux
}

func (a *API) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "medialens",
		"status":  "running",
	})
}

func (a *API) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := a.pipeline.Ingest(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, &pipeline.Failure{Kind: pipeline.ValidationFailure}) {
			status = http.StatusUnprocessableEntity
		}
		a.logger.Error("ingestion failed", "locator", req.FileURL, "error", err)
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"result": result,
	})
}

type searchRequest struct {
	Query     string  `json:"query"`
	TopK      int     `json:"top_k"`
	Threshold float32 `json:"threshold"`
}

func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "invalid request body"})
		return
	}
	if req.TopK <= 0 {
		req.TopK = 10
	}

	results, err := a.searcher.Search(r.Context(), req.Query, req.TopK, req.Threshold)
	if err != nil {
		a.logger.Error("search failed", "query", req.Query, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

func (a *API) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Clear(r.Context()); err != nil {
		a.logger.Error("reset failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset complete"})
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.store.Stats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
