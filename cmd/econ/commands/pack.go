package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/briefkit/econdata/backend/internal/contracts"
)

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Build a data pack and print it as JSON",
	Long: `Build a data pack from stored observations.

Each --series flag selects one series as source:series_id, with an
optional dataset and alias: source:series_id[:dataset_id][:alias].

Example:
  go run ./cmd/econ pack --topic inflation --series ONS:L55O
  go run ./cmd/econ pack --topic inflation \
    --series ONS:L55O:MM23:cpih --series OECD:CPALTT01 --lookback 12`,
	RunE: runPack,
}

var (
	packTopic    string
	packSeries   []string
	packAsOf     string
	packLookback int
)

func init() {
	rootCmd.AddCommand(packCmd)
	packCmd.Flags().StringVar(&packTopic, "topic", "", "briefing topic (required)")
	packCmd.Flags().StringArrayVar(&packSeries, "series", nil, "series selection source:series_id[:dataset_id][:alias]")
	packCmd.Flags().StringVar(&packAsOf, "as-of", "", "as-of marker (default: latest)")
	packCmd.Flags().IntVar(&packLookback, "lookback", 0, "lookback periods (default from config)")
	_ = packCmd.MarkFlagRequired("topic")
}

func runPack(cmd *cobra.Command, args []string) error {
	selections, err := parseSelections(packSeries)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	lookback := packLookback
	if lookback == 0 {
		lookback = a.cfg.Pack.LookbackPeriods
	}

	pack, err := a.builder.Build(context.Background(), packTopic, selections, contracts.PackOptions{
		AsOf:            packAsOf,
		LookbackPeriods: lookback,
		Workers:         a.cfg.Pack.Workers,
	})
	if err != nil {
		return fmt.Errorf("build pack: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(pack)
}

func parseSelections(raw []string) ([]contracts.SeriesSelection, error) {
	selections := make([]contracts.SeriesSelection, 0, len(raw))
	for _, entry := range raw {
		parts := strings.Split(entry, ":")
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid series selection %q (want source:series_id[:dataset_id][:alias])", entry)
		}

		sel := contracts.SeriesSelection{
			Source:         parts[0],
			SourceSeriesID: parts[1],
		}
		if len(parts) > 2 {
			sel.DatasetID = parts[2]
		}
		if len(parts) > 3 {
			sel.Alias = parts[3]
		}
		selections = append(selections, sel)
	}
	return selections, nil
}
