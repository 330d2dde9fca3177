package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-redis/redis/v8"

	"github.com/funnelhq/funnel/pkg/auth"
	"github.com/funnelhq/funnel/pkg/authstate"
	"github.com/funnelhq/funnel/pkg/client"
	"github.com/funnelhq/funnel/pkg/config"
	"github.com/funnelhq/funnel/pkg/observability"
	"github.com/funnelhq/funnel/pkg/orgstore"
	"github.com/funnelhq/funnel/pkg/provider"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// NewRootCommand creates the root command
func NewRootCommand() *Command {
	root := &Command{
		Name:        "funnel",
		Description: "Funnel - an org-scoped CRM client",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("funnel", flag.ExitOnError),
	}

	root.Subcommands["login"] = newLoginCommand()
	root.Subcommands["logout"] = newLogoutCommand()
	root.Subcommands["whoami"] = newWhoamiCommand()
	root.Subcommands["orgs"] = newOrgsCommand()
	root.Subcommands["list"] = newListCommand()
	root.Subcommands["get"] = newGetCommand()
	root.Subcommands["create"] = newCreateCommand()
	root.Subcommands["update"] = newUpdateCommand()
	root.Subcommands["delete"] = newDeleteCommand()
	root.Subcommands["board"] = newBoardCommand()
	root.Subcommands["import"] = newImportCommand()
	root.Subcommands["dashboard"] = newDashboardCommand()

	return root
}

// Execute runs the command
func (c *Command) Execute() error {
	args := os.Args[1:]
	if len(args) == 0 {
		return c.usage()
	}

	if args[0] == "-h" || args[0] == "--help" {
		return c.usage()
	}

	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.run(args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// run dispatches to a nested subcommand when one matches, otherwise to the
// command's own Run
func (c *Command) run(args []string) error {
	if len(args) > 0 && c.Subcommands != nil {
		if subcmd, ok := c.Subcommands[args[0]]; ok {
			return subcmd.run(args[1:])
		}
	}
	if c.Run == nil {
		return c.usage()
	}
	return c.Run(args)
}

// usage prints the command usage
func (c *Command) usage() error {
	fmt.Printf("Usage: %s <command> [args]\n\n", c.Name)
	fmt.Printf("Commands:\n")
	for name, cmd := range c.Subcommands {
		fmt.Printf("  %-12s %s\n", name, cmd.Description)
	}
	return nil
}

// stack bundles the client-side pieces every command needs. All commands in
// one invocation share the same store, machine, and cookie jar.
type stack struct {
	cfg      *config.Config
	store    orgstore.Store
	machine  *authstate.Machine
	client   *client.Client
	auth     *auth.Provider
	provider *provider.Provider
	logger   *observability.Logger
	out      io.Writer
}

func newStack(ctx context.Context) (*stack, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	return buildStack(ctx, cfg, os.Stdout)
}

func buildStack(ctx context.Context, cfg *config.Config, out io.Writer) (*stack, error) {
	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stderr)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	machine := authstate.NewMachine(cfg.API.AuthDeadline)

	// the session cookie persists next to the org state file so consecutive
	// invocations share one backend session
	jar, err := newSessionJar(sessionPath(cfg), cfg.API.BaseURL)
	if err != nil {
		store.Close()
		return nil, err
	}

	c, err := client.New(client.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Machine: machine,
		Store:   store,
		Logger:  logger,
		Jar:     jar,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	dataProvider, err := provider.New(provider.Options{Client: c, Logger: logger})
	if err != nil {
		store.Close()
		return nil, err
	}

	return &stack{
		cfg:      cfg,
		store:    store,
		machine:  machine,
		client:   c,
		auth:     auth.New(auth.Options{Client: c, Store: store, Machine: machine, Logger: logger}),
		provider: dataProvider,
		logger:   logger,
		out:      out,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (orgstore.Store, error) {
	switch cfg.Org.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Org.RedisURL,
			Password: cfg.Org.RedisPassword,
			DB:       cfg.Org.RedisDB,
		})
		return orgstore.NewRedisStore(ctx, client, cfg.Org.KeyPrefix)
	default:
		return orgstore.NewFileStore(cfg.Org.StatePath)
	}
}

func sessionPath(cfg *config.Config) string {
	return filepath.Join(filepath.Dir(cfg.Org.StatePath), "session.json")
}

func (s *stack) Close() error {
	return s.store.Close()
}

func (s *stack) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format, args...)
}
