package jobs

import (
	"context"
	"fmt"

	"github.com/briefkit/econdata/backend/internal/ingest"
	"github.com/briefkit/econdata/backend/pkg/logger"
)

// IngestJob refreshes every enabled series from its provider. ONS and
// OECD both publish on weekday mornings, so the default schedule runs
// daily at 06:30 UTC.
type IngestJob struct {
	collector *ingest.Collector
	logger    *logger.Logger
	schedule  string
}

// NewIngestJob creates the scheduled ingestion job. An empty schedule
// falls back to the default.
func NewIngestJob(collector *ingest.Collector, log *logger.Logger, schedule string) *IngestJob {
	if schedule == "" {
		schedule = "0 30 6 * * *"
	}
	return &IngestJob{
		collector: collector,
		logger:    log.WithField("job", "series_ingest"),
		schedule:  schedule,
	}
}

// Name returns the job name.
func (j *IngestJob) Name() string {
	return "series_ingest"
}

// Schedule returns the cron expression.
func (j *IngestJob) Schedule() string {
	return j.schedule
}

// Run ingests all enabled series. Individual series failures are
// tolerated; the job fails only when every series fails.
func (j *IngestJob) Run(ctx context.Context) error {
	summary, err := j.collector.RunAll(ctx)
	if err != nil {
		return fmt.Errorf("ingestion run: %w", err)
	}

	if summary.Total > 0 && summary.Succeeded == 0 {
		return fmt.Errorf("ingestion run: all %d series failed", summary.Total)
	}

	j.logger.WithFields(map[string]interface{}{
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"written":   summary.Written,
	}).Info("Scheduled ingestion finished")

	return nil
}
