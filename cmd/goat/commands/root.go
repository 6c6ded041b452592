package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "goat",
	Short: "GOAT index - era-normalized basketball ranking pipeline",
	Long: `GOAT index unified CLI.

Tiered lake pipeline: raw records land in bronze, validation promotes
them to silver, and the scoring engine builds the gold ranking tier.

Usage:
  go run ./cmd/goat [command]

Examples:
  go run ./cmd/goat ingest --season 1995-96 --file rows.json
  go run ./cmd/goat promote --season 1995-96
  go run ./cmd/goat rebuild
  go run ./cmd/goat rankings --season 1995-96
  go run ./cmd/goat api`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}
