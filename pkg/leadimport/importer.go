package leadimport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/funnelhq/funnel/pkg/observability"
	"github.com/funnelhq/funnel/pkg/provider"
)

// Options configures an Importer
type Options struct {
	Graph    *GraphClient
	Provider *provider.Provider
	Ledger   *Ledger
	Logger   *observability.Logger
	Metrics  *observability.Metrics

	// Concurrency bounds parallel CRM creates; zero selects a default
	Concurrency int
}

// Result summarizes one import run
type Result struct {
	Imported int
	Skipped  int
	Failed   int
}

// Importer pulls lead submissions from Facebook lead forms and creates CRM
// leads through the data provider, deduplicating against the ledger.
type Importer struct {
	graph       *GraphClient
	provider    *provider.Provider
	ledger      *Ledger
	logger      *observability.Logger
	metrics     *observability.Metrics
	concurrency int
}

const defaultConcurrency = 4

// New creates an Importer
func New(opts Options) (*Importer, error) {
	if opts.Graph == nil || opts.Provider == nil || opts.Ledger == nil {
		return nil, fmt.Errorf("graph client, provider, and ledger are required")
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Importer{
		graph:       opts.Graph,
		provider:    opts.Provider,
		ledger:      opts.Ledger,
		logger:      logger,
		metrics:     opts.Metrics,
		concurrency: concurrency,
	}, nil
}

// ImportPage imports every active lead form on a page
func (i *Importer) ImportPage(ctx context.Context, pageID, pageToken string) (Result, error) {
	forms, err := i.graph.ListForms(ctx, pageID, pageToken)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list lead forms: %w", err)
	}

	var total Result
	for _, form := range forms {
		res, err := i.ImportForm(ctx, form.ID, pageToken)
		total.Imported += res.Imported
		total.Skipped += res.Skipped
		total.Failed += res.Failed
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ImportForm fetches all submissions for one form and creates the unseen
// ones as CRM leads with bounded concurrency. Ledger lookups happen before
// submission so a lead is never created twice; creation failures are counted
// and logged but do not abort the rest of the batch.
func (i *Importer) ImportForm(ctx context.Context, formID, pageToken string) (Result, error) {
	leads, err := i.graph.ListLeads(ctx, formID, pageToken)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list leads for form %s: %w", formID, err)
	}

	var (
		mu  sync.Mutex
		res Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)

	for _, lead := range leads {
		seen, err := i.ledger.Seen(ctx, lead.ID)
		if err != nil {
			return res, err
		}
		if seen {
			res.Skipped++
			if i.metrics != nil {
				i.metrics.SkippedLeadsTotal.Inc()
			}
			continue
		}

		lead := lead
		g.Go(func() error {
			crmID, err := i.createLead(gctx, lead)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed++
				i.logger.WithError(err).WithField("graph_lead_id", lead.ID).Warn("failed to import lead")
				return nil
			}
			if err := i.ledger.Record(gctx, lead.ID, crmID, formID); err != nil {
				// The CRM lead exists but the ledger write failed; the next
				// run will re-create it. Surface loudly.
				res.Failed++
				i.logger.WithError(err).WithField("graph_lead_id", lead.ID).Error("lead created but not recorded")
				return nil
			}
			res.Imported++
			if i.metrics != nil {
				i.metrics.ImportedLeadsTotal.Inc()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, err
	}
	return res, nil
}

func (i *Importer) createLead(ctx context.Context, lead GraphLead) (string, error) {
	record, err := i.provider.Create(ctx, "lead", map[string]interface{}{
		"name":   lead.Field("full_name"),
		"email":  lead.Field("email"),
		"phone":  lead.Field("phone_number"),
		"source": "facebook",
	})
	if err != nil {
		return "", err
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(record, &created); err != nil {
		return "", fmt.Errorf("malformed create response: %w", err)
	}
	return created.ID, nil
}
