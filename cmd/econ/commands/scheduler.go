package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/briefkit/econdata/backend/internal/scheduler"
	"github.com/briefkit/econdata/backend/internal/scheduler/jobs"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the ingestion scheduler",
	Long: `Run the cron scheduler.

Registers the daily provider ingestion job and keeps it running until
interrupted.

Example:
  go run ./cmd/econ scheduler
  go run ./cmd/econ scheduler --schedule "0 0 7 * * *"`,
	RunE: runScheduler,
}

var ingestSchedule string

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.Flags().StringVar(&ingestSchedule, "schedule", "", "cron expression for the ingest job (with seconds)")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched := scheduler.New(a.log)

	ingestJob := jobs.NewIngestJob(a.collector, a.log, ingestSchedule)
	if err := sched.AddJob(ingestJob); err != nil {
		return fmt.Errorf("register ingest job: %w", err)
	}

	sched.Start()
	fmt.Printf("Scheduler running, jobs: %v\n", sched.JobNames())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}
