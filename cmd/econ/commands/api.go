package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/briefkit/econdata/backend/internal/api"
	"github.com/briefkit/econdata/backend/internal/api/handlers"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the HTTP API server",
	Long: `Start the REST API server.

Endpoints:
  GET  /health                       - Health check
  GET  /api/sources                  - Search configured series
  GET  /api/series/{slug}            - One configured series
  POST /api/packs/preview            - Build a data pack
  POST /api/ingest                   - Trigger ingestion
  POST /api/briefings                - Create a briefing
  POST /api/briefings/{id}/versions  - Snapshot a pack into a briefing

Example:
  go run ./cmd/econ api
  go run ./cmd/econ api --port 8090`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	sourcesHandler := handlers.NewSourcesHandler(a.registry, a.log)
	packHandler := handlers.NewPackHandler(a.builder, a.cache, a.log)
	ingestHandler := handlers.NewIngestHandler(a.collector, a.log)
	briefingHandler := handlers.NewBriefingHandler(a.briefings, a.builder, a.log)

	router := api.NewRouter(sourcesHandler, packHandler, ingestHandler, briefingHandler, a.log)
	server := api.New(a.cfg, a.log, router)

	go func() {
		if err := server.Start(); err != nil {
			a.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	a.log.Info("API server started successfully")
	fmt.Printf("Server running on http://localhost:%s\n", a.cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
