package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hooplab/goatindex/internal/contracts"
)

// versionsCmd represents the versions command
var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List committed snapshot versions",
	Long: `Lists the committed versions of one (tier, partition) with
record counts and validation summaries from the partition manifest.

Example:
  go run ./cmd/goat versions --tier silver --season 1995-96`,
	RunE: runVersions,
}

var (
	versionsTier   string
	versionsSeason string
)

func init() {
	rootCmd.AddCommand(versionsCmd)

	// Flags
	versionsCmd.Flags().StringVar(&versionsTier, "tier", "bronze", "tier (bronze|silver|gold)")
	versionsCmd.Flags().StringVar(&versionsSeason, "season", "", "season partition label (required)")
	_ = versionsCmd.MarkFlagRequired("season")
}

func runVersions(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	tier, err := contracts.ParseTier(versionsTier)
	if err != nil {
		return err
	}

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	versions, err := a.lake.Versions(ctx, tier, versionsSeason)
	if err != nil {
		return err
	}

	if len(versions) == 0 {
		fmt.Printf("No committed versions for %s/%s\n", tier, versionsSeason)
		return nil
	}

	for _, v := range versions {
		fmt.Printf("v%04d  records=%-5d accepted=%-5d rejected=%-4d warnings=%-4d %s\n",
			v.Version, v.Records,
			v.Summary.Accepted, v.Summary.Rejected, v.Summary.Warnings,
			v.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
