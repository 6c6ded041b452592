package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hooplab/goatindex/internal/contracts"
)

// rankingsCmd represents the rankings command
var rankingsCmd = &cobra.Command{
	Use:   "rankings",
	Short: "Print the latest gold ranking for a season",
	Long: `Loads the latest gold snapshot of a season and prints the
ranked composite scores. Unscored players (cohort below the minimum
sample size) are listed last without a score.

Example:
  go run ./cmd/goat rankings --season 1995-96
  go run ./cmd/goat rankings --season 1995-96 --top 10`,
	RunE: runRankings,
}

var (
	rankingsSeason string
	rankingsTop    int
)

func init() {
	rootCmd.AddCommand(rankingsCmd)

	// Flags
	rankingsCmd.Flags().StringVar(&rankingsSeason, "season", "", "season partition label (required)")
	rankingsCmd.Flags().IntVar(&rankingsTop, "top", 0, "limit output to the top N scored players")
	_ = rankingsCmd.MarkFlagRequired("season")
}

func runRankings(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	scores, version, err := a.lake.LoadLatestScores(ctx, rankingsSeason)
	if err != nil {
		return err
	}

	fmt.Printf("=== gold/%s v%d ===\n", rankingsSeason, version)

	printed := 0
	for _, s := range scores {
		if s.Status != contracts.StatusScored {
			fmt.Printf("   --  %-22s unscored\n", name(s))
			continue
		}
		if rankingsTop > 0 && printed >= rankingsTop {
			continue
		}
		fmt.Printf("%5d  %-22s %6.2f\n", s.Rank, name(s), s.Composite)
		printed++
	}
	return nil
}

func name(s contracts.Score) string {
	if s.Player != "" {
		return s.Player
	}
	return s.PlayerID
}
