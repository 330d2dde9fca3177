package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/funnelhq/funnel/pkg/board"
)

func newBoardCommand() *Command {
	cmd := &Command{
		Name:        "board",
		Description: "Show or manipulate the task board",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("board", flag.ExitOnError),
	}

	cmd.Subcommands["show"] = &Command{
		Name:        "show",
		Description: "Print the board grouped by stage",
		Flags:       flag.NewFlagSet("board show", flag.ExitOnError),
		Run:         runBoardShow,
	}
	cmd.Subcommands["move"] = &Command{
		Name:        "move",
		Description: "Move a task to another stage",
		Flags:       flag.NewFlagSet("board move", flag.ExitOnError),
		Run:         runBoardMove,
	}
	cmd.Subcommands["assign"] = &Command{
		Name:        "assign",
		Description: "Assign a task to a user",
		Flags:       flag.NewFlagSet("board assign", flag.ExitOnError),
		Run:         runBoardAssign,
	}

	return cmd
}

func runBoardShow(args []string) error {
	ctx := context.Background()
	s, err := newStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	b, err := board.NewService(s.provider, nil).Load(ctx)
	if err != nil {
		return describeAuthError(s, ctx, err)
	}

	for _, column := range b.Columns {
		s.printf("== %s (%d)\n", column.Stage, len(column.Tasks))
		for _, task := range column.Tasks {
			s.printf("  %-10s %s", task.ID, task.Title)
			if task.AssignedUserID != "" {
				s.printf("  @%s", task.AssignedUserID)
			}
			s.printf("\n")
		}
	}
	return nil
}

func runBoardMove(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: funnel board move <task-id> <stage>")
	}
	taskID, stage := args[0], args[1]

	ctx := context.Background()
	s, err := newStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	task, err := board.NewService(s.provider, nil).Move(ctx, taskID, stage)
	if err != nil {
		return describeAuthError(s, ctx, err)
	}
	s.printf("Moved %s to %s\n", task.ID, task.Stage)
	return nil
}

func runBoardAssign(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: funnel board assign <task-id> <user-id>")
	}
	taskID, userID := args[0], args[1]

	ctx := context.Background()
	s, err := newStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	task, err := board.NewService(s.provider, nil).Assign(ctx, taskID, userID)
	if err != nil {
		return describeAuthError(s, ctx, err)
	}
	s.printf("Assigned %s to %s\n", task.ID, task.AssignedUserID)
	return nil
}
