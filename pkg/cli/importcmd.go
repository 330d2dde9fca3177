package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/funnelhq/funnel/pkg/leadimport"
)

func newImportCommand() *Command {
	cmd := &Command{
		Name:        "import",
		Description: "Import leads from an external source",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("import", flag.ExitOnError),
	}

	facebook := &Command{
		Name:        "facebook",
		Description: "Import Facebook Lead Ads submissions as CRM leads",
		Flags:       flag.NewFlagSet("import facebook", flag.ExitOnError),
		Run:         runImportFacebook,
	}
	facebook.Flags.String("page", "", "Facebook page id (defaults to the configured page)")
	facebook.Flags.String("token", "", "Page access token (defaults to the configured token)")
	facebook.Flags.Bool("exchange", false, "Exchange the token for a long-lived one first")
	cmd.Subcommands["facebook"] = facebook

	return cmd
}

func runImportFacebook(args []string) error {
	cmd := newImportCommand().Subcommands["facebook"]
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	s, err := newStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	pageID := cmd.Flags.Lookup("page").Value.String()
	if pageID == "" {
		pageID = s.cfg.Facebook.PageID
	}
	token := cmd.Flags.Lookup("token").Value.String()
	if token == "" {
		token = s.cfg.Facebook.AccessToken
	}
	if pageID == "" || token == "" {
		return fmt.Errorf("a Facebook page id and access token are required (flags or configuration)")
	}

	graph := leadimport.NewGraphClient(leadimport.GraphConfig{
		AppID:     s.cfg.Facebook.AppID,
		AppSecret: s.cfg.Facebook.AppSecret,
		BaseURL:   s.cfg.Facebook.GraphURL,
	}, token)

	if cmd.Flags.Lookup("exchange").Value.String() == "true" {
		longLived, err := graph.ExchangeLongLived(ctx, token)
		if err != nil {
			return fmt.Errorf("token exchange failed: %w", err)
		}
		token = longLived
		graph = leadimport.NewGraphClient(leadimport.GraphConfig{
			AppID:     s.cfg.Facebook.AppID,
			AppSecret: s.cfg.Facebook.AppSecret,
			BaseURL:   s.cfg.Facebook.GraphURL,
		}, token)
		s.printf("Exchanged for a long-lived token\n")
	}

	ledger, err := leadimport.OpenLedger(s.cfg.Sync.LedgerPath)
	if err != nil {
		return err
	}
	defer ledger.Close()

	importer, err := leadimport.New(leadimport.Options{
		Graph:       graph,
		Provider:    s.provider,
		Ledger:      ledger,
		Logger:      s.logger,
		Concurrency: s.cfg.Sync.Concurrency,
	})
	if err != nil {
		return err
	}

	result, err := importer.ImportPage(ctx, pageID, token)
	if err != nil {
		return describeAuthError(s, ctx, err)
	}
	s.printf("Imported %d, skipped %d (already imported), failed %d\n",
		result.Imported, result.Skipped, result.Failed)
	return nil
}
