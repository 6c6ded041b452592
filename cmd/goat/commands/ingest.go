package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hooplab/goatindex/internal/contracts"
	"github.com/hooplab/goatindex/internal/ingest"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Commit extractor output to the bronze tier",
	Long: `Reads raw rows delivered by the external extractor and commits
them as a new bronze snapshot for one season partition.

Formats:
  json - array of record objects (default)
  html - season per-game page, parsed with the hidden-table handling

Example:
  go run ./cmd/goat ingest --season 1995-96 --file rows.json
  go run ./cmd/goat ingest --season 1995-96 --file page.html --format html`,
	RunE: runIngest,
}

var (
	ingestSeason string
	ingestFile   string
	ingestFormat string
	ingestSource string
)

func init() {
	rootCmd.AddCommand(ingestCmd)

	// Flags
	ingestCmd.Flags().StringVar(&ingestSeason, "season", "", "season partition label (required)")
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "input file (required)")
	ingestCmd.Flags().StringVar(&ingestFormat, "format", "json", "input format (json|html)")
	ingestCmd.Flags().StringVar(&ingestSource, "source", "basketball-reference", "source label stamped on records")
	_ = ingestCmd.MarkFlagRequired("season")
	_ = ingestCmd.MarkFlagRequired("file")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	data, err := os.ReadFile(ingestFile)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	var records []contracts.Record
	switch ingestFormat {
	case "json":
		records, err = ingest.DecodeRows(data, ingestSource, time.Now().UTC())
	case "html":
		records, err = ingest.ParsePerGameTable(data, ingestSeason, ingestSource, time.Now().UTC())
	default:
		return fmt.Errorf("unknown format: %q", ingestFormat)
	}
	if err != nil {
		return err
	}

	result, err := a.lake.Commit(ctx, contracts.TierBronze, ingestSeason, records)
	if err != nil {
		return err
	}

	fmt.Printf("Committed bronze/%s v%d (%d records)\n", ingestSeason, result.Version, len(result.Report.Accepted))
	return nil
}
