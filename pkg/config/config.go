package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/funnelhq/funnel/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// API holds backend connection settings
	API APIConfig

	// Org holds organization-context persistence settings
	Org OrgConfig

	// Facebook holds Graph API import settings
	Facebook FacebookConfig

	// Sync holds sync-daemon settings
	Sync SyncConfig

	// Observability holds logging/metrics settings
	Observability ObservabilityConfig
}

// APIConfig holds CRM backend connection settings
type APIConfig struct {
	BaseURL string
	Timeout time.Duration

	// AuthDeadline is the grace window the auth provider gets to claim a
	// session-expired error before the fallback logout fires
	AuthDeadline time.Duration
}

// OrgConfig holds organization-context store settings
type OrgConfig struct {
	// Backend selects the store implementation: "file" or "redis"
	Backend string

	// StatePath is the JSON state file used by the file backend
	StatePath string

	// Redis settings used by the redis backend
	RedisURL      string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
}

// FacebookConfig holds Graph API settings for the lead importer
type FacebookConfig struct {
	AppID       string
	AppSecret   string
	RedirectURL string
	PageID      string
	AccessToken string

	// GraphURL overrides the Graph API base URL, used by tests and the
	// devserver's stub endpoint
	GraphURL string
}

// SyncConfig holds sync-daemon settings
type SyncConfig struct {
	// Schedule is a cron expression for recurring imports
	Schedule string

	// LedgerPath is the sqlite dedup ledger location
	LedgerPath string

	// MetricsAddr is the listen address for the Prometheus endpoint
	MetricsAddr string

	// Concurrency bounds parallel lead creation during an import
	Concurrency int
}

// ObservabilityConfig holds logging and metrics settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from the YAML profile (if present) with
// environment variables taking precedence
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	profile, err := loadProfile(profilePath())
	if err != nil {
		return nil, err
	}
	if profile != nil {
		profile.apply(cfg)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:      "http://localhost:8080",
			Timeout:      30 * time.Second,
			AuthDeadline: 500 * time.Millisecond,
		},
		Org: OrgConfig{
			Backend:   "file",
			StatePath: defaultStatePath(),
			KeyPrefix: "funnel:org",
		},
		Sync: SyncConfig{
			Schedule:    "*/15 * * * *",
			LedgerPath:  defaultLedgerPath(),
			MetricsAddr: ":9091",
			Concurrency: 4,
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.InfoLevel,
			MetricsEnabled: true,
		},
	}
}

func applyEnv(cfg *Config) {
	cfg.API.BaseURL = getEnv("FUNNEL_API_URL", cfg.API.BaseURL)
	cfg.API.Timeout = getEnvDuration("FUNNEL_API_TIMEOUT", cfg.API.Timeout)
	cfg.API.AuthDeadline = getEnvDuration("FUNNEL_AUTH_DEADLINE", cfg.API.AuthDeadline)

	cfg.Org.Backend = getEnv("FUNNEL_ORG_BACKEND", cfg.Org.Backend)
	cfg.Org.StatePath = getEnv("FUNNEL_ORG_STATE_PATH", cfg.Org.StatePath)
	cfg.Org.RedisURL = getEnv("FUNNEL_REDIS_URL", cfg.Org.RedisURL)
	cfg.Org.RedisPassword = getEnv("FUNNEL_REDIS_PASSWORD", cfg.Org.RedisPassword)
	cfg.Org.RedisDB = getEnvInt("FUNNEL_REDIS_DB", cfg.Org.RedisDB)
	cfg.Org.KeyPrefix = getEnv("FUNNEL_ORG_KEY_PREFIX", cfg.Org.KeyPrefix)

	cfg.Facebook.AppID = getEnv("FUNNEL_FB_APP_ID", cfg.Facebook.AppID)
	cfg.Facebook.AppSecret = getEnv("FUNNEL_FB_APP_SECRET", cfg.Facebook.AppSecret)
	cfg.Facebook.RedirectURL = getEnv("FUNNEL_FB_REDIRECT_URL", cfg.Facebook.RedirectURL)
	cfg.Facebook.PageID = getEnv("FUNNEL_FB_PAGE_ID", cfg.Facebook.PageID)
	cfg.Facebook.AccessToken = getEnv("FUNNEL_FB_ACCESS_TOKEN", cfg.Facebook.AccessToken)
	cfg.Facebook.GraphURL = getEnv("FUNNEL_FB_GRAPH_URL", cfg.Facebook.GraphURL)

	cfg.Sync.Schedule = getEnv("FUNNEL_SYNC_SCHEDULE", cfg.Sync.Schedule)
	cfg.Sync.LedgerPath = getEnv("FUNNEL_SYNC_LEDGER_PATH", cfg.Sync.LedgerPath)
	cfg.Sync.MetricsAddr = getEnv("FUNNEL_SYNC_METRICS_ADDR", cfg.Sync.MetricsAddr)
	cfg.Sync.Concurrency = getEnvInt("FUNNEL_SYNC_CONCURRENCY", cfg.Sync.Concurrency)

	if level := getEnv("FUNNEL_LOG_LEVEL", ""); level != "" {
		cfg.Observability.LogLevel = observability.ParseLevel(level)
	}
	cfg.Observability.MetricsEnabled = getEnvBool("FUNNEL_METRICS_ENABLED", cfg.Observability.MetricsEnabled)
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API base URL is required")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("API base URL must be http(s): %s", c.API.BaseURL)
	}
	switch c.Org.Backend {
	case "file":
		if c.Org.StatePath == "" {
			return fmt.Errorf("org state path is required for the file backend")
		}
	case "redis":
		if c.Org.RedisURL == "" {
			return fmt.Errorf("redis URL is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown org backend: %s", c.Org.Backend)
	}
	if c.Sync.Concurrency <= 0 {
		return fmt.Errorf("sync concurrency must be positive")
	}
	return nil
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".funnel/org-state.json"
	}
	return home + "/.config/funnel/org-state.json"
}

func defaultLedgerPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".funnel/import-ledger.db"
	}
	return home + "/.config/funnel/import-ledger.db"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "true" || lower == "1" || lower == "yes"
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
