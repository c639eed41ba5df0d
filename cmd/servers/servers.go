// Package servers implements the command-line interface for inspecting the
// server index.
package servers

import (
	"github.com/spf13/cobra"
)

// Command returns the servers command group.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "servers",
		Short: "Inspect the homeserver index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(listCommand())
	cmd.AddCommand(getCommand())

	return cmd
}
