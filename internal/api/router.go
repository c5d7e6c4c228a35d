package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/briefkit/econdata/backend/internal/api/handlers"
	"github.com/briefkit/econdata/backend/pkg/logger"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(
	sources *handlers.SourcesHandler,
	packs *handlers.PackHandler,
	ingest *handlers.IngestHandler,
	briefings *handlers.BriefingHandler,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/sources", sources.Search).Methods("GET")
	api.HandleFunc("/series/{slug}", sources.GetBySlug).Methods("GET")

	api.HandleFunc("/packs/preview", packs.Preview).Methods("POST")

	api.HandleFunc("/ingest", ingest.Trigger).Methods("POST")

	api.HandleFunc("/briefings", briefings.Create).Methods("POST")
	api.HandleFunc("/briefings", briefings.List).Methods("GET")
	api.HandleFunc("/briefings/{id}", briefings.Get).Methods("GET")
	api.HandleFunc("/briefings/{id}/versions", briefings.CreateVersion).Methods("POST")
	api.HandleFunc("/briefings/{id}/versions", briefings.ListVersions).Methods("GET")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status.
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "econdata-api",
	})
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics.
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
