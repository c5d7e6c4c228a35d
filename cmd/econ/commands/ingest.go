package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch and store observations from providers",
	Long: `Run one ingestion pass over the configured series.

Fetches observations from ONS and OECD for every enabled series in the
registry and upserts them into the observation tables.

Example:
  go run ./cmd/econ ingest
  go run ./cmd/econ ingest --slug uk-cpih`,
	RunE: runIngest,
}

var ingestSlug string

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestSlug, "slug", "", "ingest a single series by slug")
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()

	if ingestSlug != "" {
		result, err := a.collector.RunOne(ctx, ingestSlug)
		if err != nil {
			return err
		}
		if result.Error != "" {
			return fmt.Errorf("ingest %s: %s", ingestSlug, result.Error)
		}
		fmt.Printf("Ingested %s: %d observations written\n", result.Slug, result.Written)
		return nil
	}

	summary, err := a.collector.RunAll(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Ingested %d/%d series, %d observations written\n",
		summary.Succeeded, summary.Total, summary.Written)
	for _, result := range summary.Results {
		if result.Error != "" {
			fmt.Printf("  FAILED %s: %s\n", result.Slug, result.Error)
		}
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d series failed", summary.Failed)
	}
	return nil
}
