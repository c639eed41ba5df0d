// Package discover implements the one-shot federation discovery command.
package discover

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/mxindex/cmd/common"
)

// Command returns the discover command.
func Command() *cobra.Command {
	var seeds []string

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Run federation discovery once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			deps, err := common.NewDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			app, err := common.NewApp(ctx, deps)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer app.Close()

			if len(seeds) == 0 {
				seeds = deps.Config.Discovery.SeedServers
			}

			app.Metrics.DiscoveryRun()
			result, err := app.Engine.Run(ctx, seeds)
			if err != nil {
				return fmt.Errorf("discovery run failed: %w", err)
			}

			fmt.Printf("run %s: probed %d servers over %d rounds, added %d, failed %d\n",
				result.RunID, result.Probed, result.Rounds, result.Added, result.Failed)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&seeds, "seed", nil, "seed servers (defaults to FEDERATION_SEED_SERVERS)")

	return cmd
}
