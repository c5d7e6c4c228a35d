package scheduler

import (
	"context"
	"time"
)

// Job is a unit of scheduled work.
type Job interface {
	// Name returns the job name.
	Name() string

	// Run executes the job.
	Run(ctx context.Context) error

	// Schedule returns the cron expression, with seconds.
	// Examples: "0 30 6 * * *", "@hourly".
	Schedule() string
}

// JobResult records one job execution.
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

const maxHistoryResults = 100

// JobHistory keeps the recent execution results of one job.
type JobHistory struct {
	Results []JobResult
}

// AddResult appends a result, keeping the most recent entries only.
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > maxHistoryResults {
		h.Results = h.Results[len(h.Results)-maxHistoryResults:]
	}
}

// LatestResults returns up to n of the most recent results.
func (h *JobHistory) LatestResults(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	if n == 0 {
		return []JobResult{}
	}
	return h.Results[len(h.Results)-n:]
}

// FailureCount returns how many stored results failed.
func (h *JobHistory) FailureCount() int {
	failed := 0
	for _, result := range h.Results {
		if !result.Success {
			failed++
		}
	}
	return failed
}

// SuccessRate returns the stored success ratio (0.0 - 1.0).
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}
	return float64(len(h.Results)-h.FailureCount()) / float64(len(h.Results))
}
