package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"
)

func newLoginCommand() *Command {
	cmd := &Command{
		Name:        "login",
		Description: "Authenticate against the CRM backend",
		Flags:       flag.NewFlagSet("login", flag.ExitOnError),
		Run:         runLogin,
	}

	cmd.Flags.String("email", "", "Account email")
	cmd.Flags.String("password", "", "Account password (falls back to FUNNEL_PASSWORD, then a prompt)")

	return cmd
}

func runLogin(args []string) error {
	cmd := newLoginCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	email := cmd.Flags.Lookup("email").Value.String()
	password := cmd.Flags.Lookup("password").Value.String()

	if email == "" {
		return fmt.Errorf("email is required")
	}
	if password == "" {
		password = os.Getenv("FUNNEL_PASSWORD")
	}
	if password == "" {
		fmt.Print("Password: ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = string(raw)
	}

	ctx := context.Background()
	s, err := newStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.auth.Login(ctx, email, password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if active, ok := s.store.Active(); ok {
		s.printf("Logged in as %s (active organization: %s)\n", email, active.Name)
	} else {
		s.printf("Logged in as %s\n", email)
	}
	return nil
}

func newLogoutCommand() *Command {
	return &Command{
		Name:        "logout",
		Description: "End the session and clear organization state",
		Flags:       flag.NewFlagSet("logout", flag.ExitOnError),
		Run: func(args []string) error {
			ctx := context.Background()
			s, err := newStack(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.auth.Logout(ctx); err != nil {
				return fmt.Errorf("logout failed: %w", err)
			}
			s.printf("Logged out\n")
			return nil
		},
	}
}

func newWhoamiCommand() *Command {
	return &Command{
		Name:        "whoami",
		Description: "Show the logged-in user",
		Flags:       flag.NewFlagSet("whoami", flag.ExitOnError),
		Run: func(args []string) error {
			ctx := context.Background()
			s, err := newStack(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			user, err := s.auth.Identity(ctx)
			if err != nil {
				return describeAuthError(s, ctx, err)
			}
			s.printf("%s <%s>", user.FullName, user.Email)
			if user.Role != "" {
				s.printf(" [%s]", user.Role)
			}
			s.printf("\n")
			return nil
		},
	}
}
