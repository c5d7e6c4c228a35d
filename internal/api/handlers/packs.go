package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/briefkit/econdata/backend/internal/contracts"
	"github.com/briefkit/econdata/backend/pkg/logger"
	"github.com/briefkit/econdata/backend/pkg/redis"
)

const packCacheTTL = 10 * time.Minute

// PackHandler builds data packs on demand.
type PackHandler struct {
	builder contracts.PackBuilder
	cache   *redis.Cache
	logger  *logger.Logger
}

// NewPackHandler creates a new pack handler. cache may be nil.
func NewPackHandler(builder contracts.PackBuilder, cache *redis.Cache, log *logger.Logger) *PackHandler {
	return &PackHandler{
		builder: builder,
		cache:   cache,
		logger:  log,
	}
}

// PackRequest is the preview request body.
type PackRequest struct {
	Topic            string                      `json:"topic"`
	SeriesSelections []contracts.SeriesSelection `json:"series_selections"`
	AsOf             string                      `json:"as_of,omitempty"`
	LookbackPeriods  int                         `json:"lookback_periods,omitempty"`
}

// Preview builds and returns a data pack without persisting it.
// POST /api/packs/preview
func (h *PackHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Topic == "" {
		respondError(w, http.StatusBadRequest, "topic is required")
		return
	}
	if req.LookbackPeriods < 0 {
		respondError(w, http.StatusBadRequest, "lookback_periods must be positive")
		return
	}

	cacheKey := h.cacheKey(req)
	if h.cache != nil {
		var cached contracts.DataPack
		hit, err := h.cache.Get(r.Context(), cacheKey, &cached)
		if err != nil {
			h.logger.WithError(err).Warn("Pack cache lookup failed")
		} else if hit {
			respondJSON(w, http.StatusOK, &cached)
			return
		}
	}

	pack, err := h.builder.Build(r.Context(), req.Topic, req.SeriesSelections, contracts.PackOptions{
		AsOf:            req.AsOf,
		LookbackPeriods: req.LookbackPeriods,
	})
	if err != nil {
		h.logger.WithError(err).WithField("topic", req.Topic).Error("Failed to build data pack")
		respondError(w, http.StatusInternalServerError, "Failed to build data pack")
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(r.Context(), cacheKey, pack, packCacheTTL); err != nil {
			h.logger.WithError(err).Warn("Pack cache store failed")
		}
	}

	respondJSON(w, http.StatusOK, pack)
}

// cacheKey derives a stable key from the full request.
func (h *PackHandler) cacheKey(req PackRequest) string {
	raw, _ := json.Marshal(req)
	sum := sha256.Sum256(raw)
	return "pack:" + hex.EncodeToString(sum[:])
}
