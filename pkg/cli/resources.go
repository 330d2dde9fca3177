package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/funnelhq/funnel/pkg/provider"
)

func newListCommand() *Command {
	cmd := &Command{
		Name:        "list",
		Description: "List records of a resource",
		Flags:       flag.NewFlagSet("list", flag.ExitOnError),
		Run:         runList,
	}

	cmd.Flags.String("resource", "", "Resource name (lead, contact, task, company, deal, ...)")
	cmd.Flags.Int("page", 1, "Page number")
	cmd.Flags.Int("page-size", 25, "Page size")
	cmd.Flags.String("q", "", "Free-text search")
	cmd.Flags.String("assigned-user", "", "Filter by assigned user ids (comma separated)")
	cmd.Flags.String("lead", "", "Filter by lead id")
	cmd.Flags.String("sort", "", "Sort field; prefix with - for descending")

	return cmd
}

func runList(args []string) error {
	cmd := newListCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	resource := cmd.Flags.Lookup("resource").Value.String()
	if resource == "" {
		return fmt.Errorf("resource is required")
	}

	params := provider.ListParams{
		Pagination: provider.Pagination{
			Mode:     provider.PaginationServer,
			Page:     flagInt(cmd.Flags, "page"),
			PageSize: flagInt(cmd.Flags, "page-size"),
		},
		Filters: provider.Filters{},
	}
	if q := cmd.Flags.Lookup("q").Value.String(); q != "" {
		params.Filters["q"] = []string{q}
	}
	if users := cmd.Flags.Lookup("assigned-user").Value.String(); users != "" {
		params.Filters["assigned_user"] = strings.Split(users, ",")
	}
	if leadID := cmd.Flags.Lookup("lead").Value.String(); leadID != "" {
		params.Filters["lead_id"] = []string{leadID}
	}
	if sortSpec := cmd.Flags.Lookup("sort").Value.String(); sortSpec != "" {
		sorter := provider.Sorter{Field: sortSpec}
		if strings.HasPrefix(sortSpec, "-") {
			sorter = provider.Sorter{Field: sortSpec[1:], Desc: true}
		}
		params.Sorters = []provider.Sorter{sorter}
	}

	ctx := context.Background()
	s, err := newStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := s.provider.List(ctx, resource, params)
	if err != nil {
		return describeAuthError(s, ctx, err)
	}

	for _, record := range result.Data {
		if err := printJSON(s, record); err != nil {
			return err
		}
	}
	s.printf("%d of %d total\n", len(result.Data), result.Total)
	return nil
}

func newGetCommand() *Command {
	cmd := &Command{
		Name:        "get",
		Description: "Fetch one record by id",
		Flags:       flag.NewFlagSet("get", flag.ExitOnError),
		Run:         runGet,
	}
	cmd.Flags.String("resource", "", "Resource name")
	cmd.Flags.String("id", "", "Record id")
	return cmd
}

func runGet(args []string) error {
	cmd := newGetCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	resource := cmd.Flags.Lookup("resource").Value.String()
	id := cmd.Flags.Lookup("id").Value.String()
	if resource == "" || id == "" {
		return fmt.Errorf("resource and id are required")
	}

	ctx := context.Background()
	s, err := newStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	record, err := s.provider.GetOne(ctx, resource, id)
	if err != nil {
		return describeAuthError(s, ctx, err)
	}
	return printJSON(s, record)
}

func newCreateCommand() *Command {
	cmd := &Command{
		Name:        "create",
		Description: "Create a record from a JSON body",
		Flags:       flag.NewFlagSet("create", flag.ExitOnError),
		Run:         runCreate,
	}
	cmd.Flags.String("resource", "", "Resource name")
	cmd.Flags.String("data", "", "Record body as JSON")
	return cmd
}

func runCreate(args []string) error {
	cmd := newCreateCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	resource := cmd.Flags.Lookup("resource").Value.String()
	data := cmd.Flags.Lookup("data").Value.String()
	if resource == "" || data == "" {
		return fmt.Errorf("resource and data are required")
	}

	var body map[string]interface{}
	if err := json.Unmarshal([]byte(data), &body); err != nil {
		return fmt.Errorf("data must be a JSON object: %w", err)
	}

	ctx := context.Background()
	s, err := newStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	record, err := s.provider.Create(ctx, resource, body)
	if err != nil {
		return describeAuthError(s, ctx, err)
	}
	return printJSON(s, record)
}

func newUpdateCommand() *Command {
	cmd := &Command{
		Name:        "update",
		Description: "Update a record from a JSON body",
		Flags:       flag.NewFlagSet("update", flag.ExitOnError),
		Run:         runUpdate,
	}
	cmd.Flags.String("resource", "", "Resource name")
	cmd.Flags.String("id", "", "Record id")
	cmd.Flags.String("data", "", "Fields to change as JSON")
	return cmd
}

func runUpdate(args []string) error {
	cmd := newUpdateCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	resource := cmd.Flags.Lookup("resource").Value.String()
	id := cmd.Flags.Lookup("id").Value.String()
	data := cmd.Flags.Lookup("data").Value.String()
	if resource == "" || id == "" || data == "" {
		return fmt.Errorf("resource, id, and data are required")
	}

	var body map[string]interface{}
	if err := json.Unmarshal([]byte(data), &body); err != nil {
		return fmt.Errorf("data must be a JSON object: %w", err)
	}

	ctx := context.Background()
	s, err := newStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	record, err := s.provider.Update(ctx, resource, id, body)
	if err != nil {
		return describeAuthError(s, ctx, err)
	}
	return printJSON(s, record)
}

func newDeleteCommand() *Command {
	cmd := &Command{
		Name:        "delete",
		Description: "Delete a record by id",
		Flags:       flag.NewFlagSet("delete", flag.ExitOnError),
		Run:         runDelete,
	}
	cmd.Flags.String("resource", "", "Resource name")
	cmd.Flags.String("id", "", "Record id")
	return cmd
}

func runDelete(args []string) error {
	cmd := newDeleteCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	resource := cmd.Flags.Lookup("resource").Value.String()
	id := cmd.Flags.Lookup("id").Value.String()
	if resource == "" || id == "" {
		return fmt.Errorf("resource and id are required")
	}

	ctx := context.Background()
	s, err := newStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.provider.Delete(ctx, resource, id); err != nil {
		return describeAuthError(s, ctx, err)
	}
	s.printf("Deleted %s %s\n", resource, id)
	return nil
}

func flagInt(fs *flag.FlagSet, name string) int {
	n, _ := strconv.Atoi(fs.Lookup(name).Value.String())
	return n
}
