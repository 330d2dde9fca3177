package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/funnelhq/funnel/pkg/auth"
	"github.com/funnelhq/funnel/pkg/authstate"
	"github.com/funnelhq/funnel/pkg/client"
	"github.com/funnelhq/funnel/pkg/config"
	"github.com/funnelhq/funnel/pkg/leadimport"
	"github.com/funnelhq/funnel/pkg/observability"
	"github.com/funnelhq/funnel/pkg/orgstore"
	"github.com/funnelhq/funnel/pkg/provider"
)

var (
	schedule = flag.String("schedule", "", "Cron schedule for imports (overrides FUNNEL_SYNC_SCHEDULE)")
	runOnce  = flag.Bool("run-once", false, "Run one import and exit (for testing and backfills)")
	email    = flag.String("email", os.Getenv("FUNNEL_EMAIL"), "CRM account email")
	password = flag.String("password", os.Getenv("FUNNEL_PASSWORD"), "CRM account password")
)

func main() {
	flag.Parse()

	logger := setupLogger(os.Getenv("FUNNEL_LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if *schedule != "" {
		cfg.Sync.Schedule = *schedule
	}
	if *email == "" || *password == "" {
		logger.Fatal("FUNNEL_EMAIL and FUNNEL_PASSWORD (or -email/-password) are required")
	}
	if cfg.Facebook.PageID == "" || cfg.Facebook.AccessToken == "" {
		logger.Fatal("FUNNEL_FB_PAGE_ID and FUNNEL_FB_ACCESS_TOKEN are required")
	}

	d, err := newDaemon(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize")
	}
	defer d.Close()

	if *runOnce {
		if err := d.runImport(context.Background()); err != nil {
			logger.WithError(err).Fatal("Import failed")
		}
		return
	}

	// Deadline fallback: a session that expires between cron ticks with no
	// handler claiming the episode gets a forced logout here
	fallbackCtx, stopFallback := context.WithCancel(context.Background())
	defer stopFallback()
	go d.auth.RunFallback(fallbackCtx, func(string) {
		logger.Warn("Session expired without a handler, organization state cleared")
	})

	// Metrics endpoint
	if cfg.Sync.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", d.metrics.Handler())
		go func() {
			logger.WithField("addr", cfg.Sync.MetricsAddr).Info("Serving metrics")
			if err := http.ListenAndServe(cfg.Sync.MetricsAddr, mux); err != nil {
				logger.WithError(err).Error("Metrics server stopped")
			}
		}()
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.Sync.Schedule, func() {
		if err := d.runImport(context.Background()); err != nil {
			logger.WithError(err).Error("Scheduled import failed")
		}
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to schedule import")
	}

	c.Start()
	logger.WithField("schedule", cfg.Sync.Schedule).Info("Funnel sync daemon started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down gracefully...")

	ctx := c.Stop()
	<-ctx.Done()

	logger.Info("Sync daemon stopped")
}

// daemon bundles the client stack the scheduled import runs on
type daemon struct {
	cfg      *config.Config
	store    orgstore.Store
	auth     *auth.Provider
	importer *leadimport.Importer
	ledger   *leadimport.Ledger
	metrics  *observability.Metrics
	logger   *logrus.Logger
}

func newDaemon(cfg *config.Config, logger *logrus.Logger) (*daemon, error) {
	metrics := observability.NewMetrics(nil)
	machine := authstate.NewMachine(cfg.API.AuthDeadline)

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	c, err := client.New(client.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Machine: machine,
		Store:   store,
		Metrics: metrics,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	dataProvider, err := provider.New(provider.Options{Client: c, Metrics: metrics})
	if err != nil {
		store.Close()
		return nil, err
	}

	ledger, err := leadimport.OpenLedger(cfg.Sync.LedgerPath)
	if err != nil {
		store.Close()
		return nil, err
	}

	graph := leadimport.NewGraphClient(leadimport.GraphConfig{
		AppID:     cfg.Facebook.AppID,
		AppSecret: cfg.Facebook.AppSecret,
		BaseURL:   cfg.Facebook.GraphURL,
	}, cfg.Facebook.AccessToken)

	importer, err := leadimport.New(leadimport.Options{
		Graph:       graph,
		Provider:    dataProvider,
		Ledger:      ledger,
		Metrics:     metrics,
		Concurrency: cfg.Sync.Concurrency,
	})
	if err != nil {
		ledger.Close()
		store.Close()
		return nil, err
	}

	return &daemon{
		cfg:      cfg,
		store:    store,
		auth:     auth.New(auth.Options{Client: c, Store: store, Machine: machine, Metrics: metrics}),
		importer: importer,
		ledger:   ledger,
		metrics:  metrics,
		logger:   logger,
	}, nil
}

func openStore(cfg *config.Config) (orgstore.Store, error) {
	if cfg.Org.Backend == "redis" {
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.Org.RedisURL,
			Password: cfg.Org.RedisPassword,
			DB:       cfg.Org.RedisDB,
		})
		return orgstore.NewRedisStore(context.Background(), rc, cfg.Org.KeyPrefix)
	}
	return orgstore.NewFileStore(cfg.Org.StatePath)
}

// runImport logs in fresh each run; the daemon session may have expired
// between schedule ticks
func (d *daemon) runImport(ctx context.Context) error {
	if err := d.auth.Login(ctx, *email, *password); err != nil {
		return err
	}

	result, err := d.importer.ImportPage(ctx, d.cfg.Facebook.PageID, d.cfg.Facebook.AccessToken)
	if err != nil {
		return err
	}

	d.logger.WithFields(logrus.Fields{
		"imported": result.Imported,
		"skipped":  result.Skipped,
		"failed":   result.Failed,
	}).Info("Import run completed")
	return nil
}

func (d *daemon) Close() {
	d.ledger.Close()
	d.store.Close()
}

func setupLogger(logLevel string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
