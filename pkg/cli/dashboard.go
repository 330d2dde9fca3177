package cli

import (
	"context"
	"flag"

	"github.com/funnelhq/funnel/pkg/provider"
)

// dashboardResources are the collections the summary counts
var dashboardResources = []string{"lead", "contact", "task", "deal"}

func newDashboardCommand() *Command {
	return &Command{
		Name:        "dashboard",
		Description: "Show record counts for the active organization",
		Flags:       flag.NewFlagSet("dashboard", flag.ExitOnError),
		Run:         runDashboard,
	}
}

func runDashboard(args []string) error {
	ctx := context.Background()
	s, err := newStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if active, ok := s.store.Active(); ok {
		s.printf("Organization: %s\n\n", active.Name)
	}

	// page_size 1: only Total is read
	params := provider.ListParams{
		Pagination: provider.Pagination{Mode: provider.PaginationServer, Page: 1, PageSize: 1},
	}
	for _, resource := range dashboardResources {
		result, err := s.provider.List(ctx, resource, params)
		if err != nil {
			return describeAuthError(s, ctx, err)
		}
		s.printf("%-10s %d\n", resource, result.Total)
	}
	return nil
}
