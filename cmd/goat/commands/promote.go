package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hooplab/goatindex/internal/validation"
)

// promoteCmd represents the promote command
var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Promote bronze snapshots to the silver tier",
	Long: `Validates the latest bronze snapshot of a season against the
silver ruleset and commits the accepted records as a new silver version.

Record-level rejections are reported and do not fail the promotion.
A snapshot-level violation aborts it and prints the report summary.

Example:
  go run ./cmd/goat promote --season 1995-96
  go run ./cmd/goat promote --all`,
	RunE: runPromote,
}

var (
	promoteSeason string
	promoteAll    bool
)

func init() {
	rootCmd.AddCommand(promoteCmd)

	// Flags
	promoteCmd.Flags().StringVar(&promoteSeason, "season", "", "season partition label")
	promoteCmd.Flags().BoolVar(&promoteAll, "all", false, "promote every bronze season")
}

func runPromote(cmd *cobra.Command, args []string) error {
	if !promoteAll && promoteSeason == "" {
		return fmt.Errorf("either --season or --all is required")
	}

	ctx := context.Background()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if promoteAll {
		results, err := a.runner.PromoteAll(ctx)
		for _, r := range results {
			fmt.Printf("Committed silver/%s v%d (accepted %d, rejected %d)\n",
				r.Partition, r.Version, len(r.Report.Accepted), len(r.Report.Rejected))
		}
		return err
	}

	result, err := a.runner.PromoteSeason(ctx, promoteSeason)
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			fmt.Printf("Snapshot rejected: %d violation(s)\n", len(verr.Report.Snapshot))
			for _, v := range verr.Report.Snapshot {
				fmt.Printf("  %s: %s\n", v.RuleID, v.Reason)
			}
		}
		return err
	}

	fmt.Printf("Committed silver/%s v%d (accepted %d, rejected %d, warnings %d)\n",
		result.Partition, result.Version,
		len(result.Report.Accepted), len(result.Report.Rejected), len(result.Report.Warnings))
	return nil
}
