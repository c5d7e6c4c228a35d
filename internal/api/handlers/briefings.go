package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/briefkit/econdata/backend/internal/briefing"
	"github.com/briefkit/econdata/backend/internal/contracts"
	"github.com/briefkit/econdata/backend/pkg/logger"
)

// BriefingStore persists briefings and their pack snapshots.
type BriefingStore interface {
	Create(ctx context.Context, topic, title string) (*briefing.Briefing, error)
	Get(ctx context.Context, id int64) (*briefing.Briefing, error)
	List(ctx context.Context, topic string, limit int) ([]*briefing.Briefing, error)
	CreateVersion(ctx context.Context, briefingID int64, pack *contracts.DataPack, content json.RawMessage) (*briefing.Version, error)
	ListVersions(ctx context.Context, briefingID int64) ([]*briefing.Version, error)
}

// BriefingHandler serves briefing CRUD and pack snapshotting.
type BriefingHandler struct {
	store   BriefingStore
	builder contracts.PackBuilder
	logger  *logger.Logger
}

// NewBriefingHandler creates a new briefing handler.
func NewBriefingHandler(store BriefingStore, builder contracts.PackBuilder, log *logger.Logger) *BriefingHandler {
	return &BriefingHandler{
		store:   store,
		builder: builder,
		logger:  log,
	}
}

// CreateBriefingRequest is the create request body.
type CreateBriefingRequest struct {
	Topic string `json:"topic"`
	Title string `json:"title"`
}

// Create registers a new briefing.
// POST /api/briefings
func (h *BriefingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBriefingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Topic == "" {
		respondError(w, http.StatusBadRequest, "topic is required")
		return
	}
	if req.Title == "" {
		req.Title = req.Topic
	}

	b, err := h.store.Create(r.Context(), req.Topic, req.Title)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create briefing")
		respondError(w, http.StatusInternalServerError, "Failed to create briefing")
		return
	}

	respondJSON(w, http.StatusCreated, b)
}

// List returns recent briefings.
// GET /api/briefings?topic=inflation&limit=10
func (h *BriefingHandler) List(w http.ResponseWriter, r *http.Request) {
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

	briefings, err := h.store.List(r.Context(), query.Get("topic"), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list briefings")
		respondError(w, http.StatusInternalServerError, "Failed to list briefings")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"briefings": briefings,
		"count":     len(briefings),
	})
}

// Get returns one briefing.
// GET /api/briefings/{id}
func (h *BriefingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := briefingID(w, r)
	if !ok {
		return
	}

	b, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get briefing")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve briefing")
		return
	}
	if b == nil {
		respondError(w, http.StatusNotFound, "Briefing not found")
		return
	}

	respondJSON(w, http.StatusOK, b)
}

// CreateVersionRequest is the snapshot request body. The pack is built
// from the selections at request time; content is stored opaquely.
type CreateVersionRequest struct {
	SeriesSelections []contracts.SeriesSelection `json:"series_selections"`
	AsOf             string                      `json:"as_of,omitempty"`
	LookbackPeriods  int                         `json:"lookback_periods,omitempty"`
	Content          json.RawMessage             `json:"content,omitempty"`
}

// CreateVersion builds a fresh data pack for the briefing's topic and
// stores it as the next version.
// POST /api/briefings/{id}/versions
func (h *BriefingHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := briefingID(w, r)
	if !ok {
		return
	}

	var req CreateVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get briefing")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve briefing")
		return
	}
	if b == nil {
		respondError(w, http.StatusNotFound, "Briefing not found")
		return
	}

	pack, err := h.builder.Build(r.Context(), b.Topic, req.SeriesSelections, contracts.PackOptions{
		AsOf:            req.AsOf,
		LookbackPeriods: req.LookbackPeriods,
	})
	if err != nil {
		h.logger.WithError(err).WithField("topic", b.Topic).Error("Failed to build data pack")
		respondError(w, http.StatusInternalServerError, "Failed to build data pack")
		return
	}

	version, err := h.store.CreateVersion(r.Context(), id, pack, req.Content)
	if err != nil {
		h.logger.WithError(err).Error("Failed to store briefing version")
		respondError(w, http.StatusInternalServerError, "Failed to store briefing version")
		return
	}

	respondJSON(w, http.StatusCreated, version)
}

// ListVersions returns every version of a briefing, newest first.
// GET /api/briefings/{id}/versions
func (h *BriefingHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	id, ok := briefingID(w, r)
	if !ok {
		return
	}

	versions, err := h.store.ListVersions(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list briefing versions")
		respondError(w, http.StatusInternalServerError, "Failed to list briefing versions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"versions": versions,
		"count":    len(versions),
	})
}

func briefingID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id < 1 {
		respondError(w, http.StatusBadRequest, "Invalid briefing id")
		return 0, false
	}
	return id, true
}
