package servers

import (
	"fmt"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/mxindex/cmd/common"
	"github.com/jonesrussell/mxindex/internal/domain"
)

// listCommand returns the servers list command.
func listCommand() *cobra.Command {
	var (
		search string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed homeservers in a table",
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

			page, err := app.Service.SearchServers(ctx, domain.ServerFilter{
				Search: search,
				Limit:  limit,
				Offset: offset,
			})
			if err != nil {
				return fmt.Errorf("failed to list servers: %w", err)
			}

			renderTable(page)
			return nil
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "substring match over domain, name, and description")
	cmd.Flags().IntVar(&limit, "limit", domain.DefaultLimit, "maximum rows to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")

	return cmd
}

// renderTable prints a server listing to stdout.
func renderTable(page *domain.PaginatedServers) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"ID", "Domain", "Name", "Rooms", "Registration", "Version", "Added"})

	for i := range page.Servers {
		s := &page.Servers[i]
		t.AppendRow(table.Row{
			s.ID,
			s.Domain,
			stringValue(s.Name),
			int32Value(s.PublicRoomsCount),
			boolValue(s.RegistrationOpen),
			stringValue(s.Version),
			s.CreatedAt.Format("2006-01-02"),
		})
	}

	t.Render()
	fmt.Printf("showing %d of %d servers (offset %d)\n", len(page.Servers), page.Total, page.Offset)
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func int32Value(n *int32) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(int64(*n), 10)
}

func boolValue(b *bool) string {
	if b == nil {
		return ""
	}
	if *b {
		return "open"
	}
	return "closed"
}
