package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/briefkit/econdata/backend/internal/contracts"
	"github.com/briefkit/econdata/backend/pkg/logger"
)

// SourceDirectory exposes the series registry to the API.
type SourceDirectory interface {
	Search(ctx context.Context, topic, queryText string, limit int) ([]*contracts.SeriesConfig, error)
	GetBySlug(ctx context.Context, slug string) (*contracts.SeriesConfig, error)
}

// SourcesHandler serves series registry lookups.
type SourcesHandler struct {
	directory SourceDirectory
	logger    *logger.Logger
}

// NewSourcesHandler creates a new sources handler.
func NewSourcesHandler(directory SourceDirectory, log *logger.Logger) *SourcesHandler {
	return &SourcesHandler{
		directory: directory,
		logger:    log,
	}
}

// SourceResponse is the API shape of one registry entry.
type SourceResponse struct {
	Slug           string     `json:"slug"`
	Provider       string     `json:"provider"`
	SourceSeriesID string     `json:"source_series_id"`
	Frequency      string     `json:"frequency,omitempty"`
	Unit           string     `json:"unit,omitempty"`
	Description    string     `json:"description,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

func toSourceResponse(cfg *contracts.SeriesConfig) SourceResponse {
	return SourceResponse{
		Slug:           cfg.Slug,
		Provider:       string(cfg.Provider),
		SourceSeriesID: cfg.SourceSeriesID(),
		Frequency:      cfg.Frequency,
		Unit:           cfg.Unit,
		Description:    cfg.Description,
		UpdatedAt:      cfg.UpdatedAt,
	}
}

// Search lists enabled sources filtered by topic and/or free text.
// GET /api/sources?topic=inflation&q=cpi&limit=10
func (h *SourcesHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 25
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	configs, err := h.directory.Search(r.Context(), query.Get("topic"), query.Get("q"), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to search sources")
		respondError(w, http.StatusInternalServerError, "Failed to search sources")
		return
	}

	sources := make([]SourceResponse, 0, len(configs))
	for _, cfg := range configs {
		sources = append(sources, toSourceResponse(cfg))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sources": sources,
		"count":   len(sources),
	})
}

// GetBySlug returns one registry entry.
// GET /api/series/{slug}
func (h *SourcesHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	cfg, err := h.directory.GetBySlug(r.Context(), slug)
	if err != nil {
		h.logger.WithError(err).WithField("slug", slug).Error("Failed to get series")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve series")
		return
	}
	if cfg == nil {
		respondError(w, http.StatusNotFound, "Series not found")
		return
	}

	respondJSON(w, http.StatusOK, toSourceResponse(cfg))
}
