package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/briefkit/econdata/backend/internal/contracts"
	"github.com/briefkit/econdata/backend/internal/external/oecd"
	"github.com/briefkit/econdata/backend/internal/external/ons"
	"github.com/briefkit/econdata/backend/internal/store"
	"github.com/briefkit/econdata/backend/pkg/logger"
)

const defaultWorkers = 4

// ConfigLister enumerates series configurations to ingest.
type ConfigLister interface {
	ListEnabled(ctx context.Context) ([]*contracts.SeriesConfig, error)
	GetBySlug(ctx context.Context, slug string) (*contracts.SeriesConfig, error)
}

// ObservationWriter persists fetched observations.
type ObservationWriter interface {
	SaveONS(ctx context.Context, records []store.ONSRecord) (int, error)
	SaveOECD(ctx context.Context, records []store.OECDRecord) (int, error)
}

// Collector pulls observations for every enabled series configuration
// and persists them. One failed series never aborts the run; failures
// are reported per series in the summary.
type Collector struct {
	registry   ConfigLister
	onsClient  *ons.Client
	oecdClient *oecd.Client
	writer     ObservationWriter
	logger     *logger.Logger
	workers    int
}

// NewCollector creates a new ingestion collector.
func NewCollector(
	reg ConfigLister,
	onsClient *ons.Client,
	oecdClient *oecd.Client,
	writer ObservationWriter,
	log *logger.Logger,
	workers int,
) *Collector {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Collector{
		registry:   reg,
		onsClient:  onsClient,
		oecdClient: oecdClient,
		writer:     writer,
		logger:     log.WithField("module", "ingest"),
		workers:    workers,
	}
}

// SeriesResult is the outcome of ingesting one configured series.
type SeriesResult struct {
	Slug     string        `json:"slug"`
	Provider string        `json:"provider"`
	Written  int           `json:"written"`
	Duration time.Duration `json:"duration_ms"`
	Error    string        `json:"error,omitempty"`
}

// Summary aggregates one ingestion run.
type Summary struct {
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration_ms"`
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Written   int            `json:"written"`
	Results   []SeriesResult `json:"results"`
}

// RunAll ingests every enabled series configuration using a bounded
// worker pool. Results keep the registry's ordering.
func (c *Collector) RunAll(ctx context.Context) (*Summary, error) {
	configs, err := c.registry.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list enabled series: %w", err)
	}

	startedAt := time.Now()
	c.logger.WithFields(map[string]interface{}{
		"series":  len(configs),
		"workers": c.workers,
	}).Info("Ingestion run started")

	results := make([]SeriesResult, len(configs))
	jobs := make(chan int, len(configs))

	workers := c.workers
	if workers > len(configs) {
		workers = len(configs)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = c.ingestOne(ctx, configs[i])
			}
		}()
	}

	for i := range configs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	summary := &Summary{
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Total:     len(configs),
		Results:   results,
	}
	for _, res := range results {
		if res.Error != "" {
			summary.Failed++
			continue
		}
		summary.Succeeded++
		summary.Written += res.Written
	}

	c.logger.WithFields(map[string]interface{}{
		"total":     summary.Total,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"written":   summary.Written,
		"duration":  summary.Duration,
	}).Info("Ingestion run completed")

	return summary, nil
}

// RunOne ingests a single series by slug.
func (c *Collector) RunOne(ctx context.Context, slug string) (*SeriesResult, error) {
	cfg, err := c.registry.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("resolve series %s: %w", slug, err)
	}
	if cfg == nil {
		return nil, fmt.Errorf("series %s is not configured", slug)
	}

	result := c.ingestOne(ctx, cfg)
	return &result, nil
}

func (c *Collector) ingestOne(ctx context.Context, cfg *contracts.SeriesConfig) SeriesResult {
	start := time.Now()
	result := SeriesResult{
		Slug:     cfg.Slug,
		Provider: string(cfg.Provider),
	}

	var written int
	var err error
	switch cfg.Provider {
	case contracts.ProviderONS:
		written, err = c.ingestONS(ctx, cfg)
	case contracts.ProviderOECD:
		written, err = c.ingestOECD(ctx, cfg)
	default:
		err = fmt.Errorf("unsupported provider %s", cfg.Provider)
	}

	result.Written = written
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		c.logger.WithError(err).WithField("slug", cfg.Slug).Error("Series ingestion failed")
	} else {
		c.logger.WithFields(map[string]interface{}{
			"slug":    cfg.Slug,
			"written": written,
		}).Debug("Series ingested")
	}
	return result
}

func (c *Collector) ingestONS(ctx context.Context, cfg *contracts.SeriesConfig) (int, error) {
	payload, err := c.onsClient.FetchTimeseries(ctx, cfg.Identity.SeriesID, cfg.Identity.DatasetID, cfg.TimeFilter)
	if err != nil {
		return 0, err
	}

	records := ons.BuildRecords(payload, cfg.Identity.DatasetID, cfg.Identity.SeriesID)
	return c.writer.SaveONS(ctx, records)
}

func (c *Collector) ingestOECD(ctx context.Context, cfg *contracts.SeriesConfig) (int, error) {
	payload, err := c.oecdClient.FetchDataset(ctx, cfg.Identity)
	if err != nil {
		return 0, err
	}

	records := oecd.BuildRecords(payload, cfg.Identity.DatasetCode)
	return c.writer.SaveOECD(ctx, records)
}
