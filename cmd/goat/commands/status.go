package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check backend connectivity",
	Long: `Pings the configured storage backend and, if enabled, the
Redis snapshot cache.

Example:
  go run ./cmd/goat status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Printf("storage backend: %s\n", a.cfg.Storage.Backend)
	if err := a.store.Ping(ctx); err != nil {
		fmt.Printf("storage:         unreachable (%v)\n", err)
		return err
	}
	fmt.Println("storage:         ok")

	if !a.rcli.Enabled() {
		fmt.Println("redis cache:     disabled")
		return nil
	}
	if err := a.rcli.Redis().Ping(ctx).Err(); err != nil {
		fmt.Printf("redis cache:     unreachable (%v)\n", err)
		return err
	}
	fmt.Println("redis cache:     ok")

	return nil
}
