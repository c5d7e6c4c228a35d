package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/briefkit/econdata/backend/internal/ingest"
	"github.com/briefkit/econdata/backend/pkg/logger"
)

// IngestRunner triggers provider ingestion runs.
type IngestRunner interface {
	RunAll(ctx context.Context) (*ingest.Summary, error)
	RunOne(ctx context.Context, slug string) (*ingest.SeriesResult, error)
}

// IngestHandler triggers ingestion over HTTP.
type IngestHandler struct {
	runner IngestRunner
	logger *logger.Logger
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(runner IngestRunner, log *logger.Logger) *IngestHandler {
	return &IngestHandler{
		runner: runner,
		logger: log,
	}
}

// IngestRequest selects what to ingest. An empty slug ingests every
// enabled series.
type IngestRequest struct {
	Slug string `json:"slug,omitempty"`
}

// Trigger runs ingestion synchronously and returns the summary.
// POST /api/ingest
func (h *IngestHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	if req.Slug != "" {
		result, err := h.runner.RunOne(r.Context(), req.Slug)
		if err != nil {
			if strings.Contains(err.Error(), "not configured") {
				respondError(w, http.StatusNotFound, err.Error())
				return
			}
			h.logger.WithError(err).WithField("slug", req.Slug).Error("Series ingestion failed")
			respondError(w, http.StatusInternalServerError, "Failed to ingest series")
			return
		}
		respondJSON(w, http.StatusOK, result)
		return
	}

	summary, err := h.runner.RunAll(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Ingestion run failed")
		respondError(w, http.StatusInternalServerError, "Failed to run ingestion")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}
