package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/COF-H2-Predictor/internal/bootstrap"
)

// NewCacheCmd manages the Redis descriptor cache.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the descriptor cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete every cached descriptor row",
		Long: "purge removes the cached descriptor rows of every column profile and seed.\n" +
			"Run it after upgrading the descriptor calculation so stale rows are recomputed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
			defer cancel()

			app, err := cliCtx.NewApp(ctx, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()

			n, err := app.PurgeDescriptorCache(ctx)
			if err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("purged %d descriptor cache entries", n))
			return nil
		},
	})
	return cmd
}
