package cli

import (
	"context"
	"flag"
	"fmt"
)

func newOrgsCommand() *Command {
	cmd := &Command{
		Name:        "orgs",
		Description: "List organizations or switch the active one",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("orgs", flag.ExitOnError),
	}

	cmd.Subcommands["list"] = &Command{
		Name:        "list",
		Description: "List the organizations available to this account",
		Flags:       flag.NewFlagSet("orgs list", flag.ExitOnError),
		Run:         runOrgsList,
	}
	cmd.Subcommands["switch"] = &Command{
		Name:        "switch",
		Description: "Switch the active organization",
		Flags:       flag.NewFlagSet("orgs switch", flag.ExitOnError),
		Run:         runOrgsSwitch,
	}

	return cmd
}

func runOrgsList(args []string) error {
	ctx := context.Background()
	s, err := newStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	orgs := s.store.Organizations()
	if len(orgs) == 0 {
		s.printf("No organizations. Run `funnel login` first.\n")
		return nil
	}

	activeID := s.store.ActiveID()
	for _, org := range orgs {
		marker := " "
		if org.ID == activeID {
			marker = "*"
		}
		s.printf("%s %-12s %s\n", marker, org.ID, org.Name)
	}
	return nil
}

func runOrgsSwitch(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: funnel orgs switch <org-id>")
	}
	orgID := args[0]

	ctx := context.Background()
	s, err := newStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if !s.store.SwitchActive(ctx, orgID) {
		return fmt.Errorf("unknown organization %q", orgID)
	}
	s.printf("Active organization is now %s\n", orgID)
	return nil
}
