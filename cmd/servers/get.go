package servers

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/mxindex/cmd/common"
	"github.com/jonesrussell/mxindex/internal/domain"
)

// getCommand returns the servers get command.
func getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <domain>",
		Short: "Show the indexed record for a homeserver",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			server, err := app.Service.GetServer(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get server: %w", err)
			}
			if server == nil {
				return fmt.Errorf("server %s is not indexed", args[0])
			}

			renderServer(server)
			return nil
		},
	}
}

// renderServer prints a single server record to stdout.
func renderServer(s *domain.Server) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	t.AppendRows([]table.Row{
		{"ID", s.ID},
		{"Domain", s.Domain},
		{"Name", stringValue(s.Name)},
		{"Description", stringValue(s.Description)},
		{"Registration", boolValue(s.RegistrationOpen)},
		{"Rooms", int32Value(s.PublicRoomsCount)},
		{"Version", stringValue(s.Version)},
		{"Federation", stringValue(s.FederationVersion)},
		{"Delegated", stringValue(s.DelegatedServer)},
		{"Room versions", stringValue(s.RoomVersions)},
		{"Added", s.CreatedAt.Format("2006-01-02 15:04")},
	})

	t.Render()
}
