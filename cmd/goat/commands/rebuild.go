package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// rebuildCmd represents the rebuild command
var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the gold tier from silver",
	Long: `Runs a full scoring pass: loads the latest silver snapshot of
every season, era-normalizes each cohort, rescales composites across the
whole population and commits one gold snapshot per season.

Re-running with a different weight vector appends new gold versions;
prior versions are never modified.

Example:
  go run ./cmd/goat rebuild`,
	RunE: runRebuild,
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

func runRebuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	results, err := a.runner.Rebuild(ctx)
	if err != nil {
		return err
	}

	seasons := make([]string, 0, len(results))
	for season := range results {
		seasons = append(seasons, season)
	}
	sort.Strings(seasons)

	for _, season := range seasons {
		r := results[season]
		fmt.Printf("Committed gold/%s v%d (%d scores)\n", season, r.Version, r.Report.Total)
	}
	return nil
}
