package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/funnelhq/funnel/pkg/observability"
)

// profile is the YAML shape of ~/.config/funnel/config.yaml. All fields are
// optional; environment variables override anything set here.
type profile struct {
	API struct {
		BaseURL      string `yaml:"base_url"`
		Timeout      string `yaml:"timeout"`
		AuthDeadline string `yaml:"auth_deadline"`
	} `yaml:"api"`
	Org struct {
		Backend   string `yaml:"backend"`
		StatePath string `yaml:"state_path"`
		RedisURL  string `yaml:"redis_url"`
		RedisDB   *int   `yaml:"redis_db"`
		KeyPrefix string `yaml:"key_prefix"`
	} `yaml:"org"`
	Facebook struct {
		AppID       string `yaml:"app_id"`
		AppSecret   string `yaml:"app_secret"`
		RedirectURL string `yaml:"redirect_url"`
		PageID      string `yaml:"page_id"`
		AccessToken string `yaml:"access_token"`
		GraphURL    string `yaml:"graph_url"`
	} `yaml:"facebook"`
	Sync struct {
		Schedule    string `yaml:"schedule"`
		LedgerPath  string `yaml:"ledger_path"`
		MetricsAddr string `yaml:"metrics_addr"`
		Concurrency *int   `yaml:"concurrency"`
	} `yaml:"sync"`
	LogLevel string `yaml:"log_level"`
}

// profilePath resolves the profile location; FUNNEL_CONFIG overrides the
// default under the user config directory
func profilePath() string {
	if p := os.Getenv("FUNNEL_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.config/funnel/config.yaml"
}

// loadProfile reads and parses the YAML profile. A missing file is not an
// error; a malformed one is.
func loadProfile(path string) (*profile, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config profile: %w", err)
	}
	var p profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("malformed config profile %s: %w", path, err)
	}
	return &p, nil
}

// apply copies set profile fields onto the config
func (p *profile) apply(cfg *Config) {
	setString(&cfg.API.BaseURL, p.API.BaseURL)
	setDuration(&cfg.API.Timeout, p.API.Timeout)
	setDuration(&cfg.API.AuthDeadline, p.API.AuthDeadline)

	setString(&cfg.Org.Backend, p.Org.Backend)
	setString(&cfg.Org.StatePath, p.Org.StatePath)
	setString(&cfg.Org.RedisURL, p.Org.RedisURL)
	if p.Org.RedisDB != nil {
		cfg.Org.RedisDB = *p.Org.RedisDB
	}
	setString(&cfg.Org.KeyPrefix, p.Org.KeyPrefix)

	setString(&cfg.Facebook.AppID, p.Facebook.AppID)
	setString(&cfg.Facebook.AppSecret, p.Facebook.AppSecret)
	setString(&cfg.Facebook.RedirectURL, p.Facebook.RedirectURL)
	setString(&cfg.Facebook.PageID, p.Facebook.PageID)
	setString(&cfg.Facebook.AccessToken, p.Facebook.AccessToken)
	setString(&cfg.Facebook.GraphURL, p.Facebook.GraphURL)

	setString(&cfg.Sync.Schedule, p.Sync.Schedule)
	setString(&cfg.Sync.LedgerPath, p.Sync.LedgerPath)
	setString(&cfg.Sync.MetricsAddr, p.Sync.MetricsAddr)
	if p.Sync.Concurrency != nil {
		cfg.Sync.Concurrency = *p.Sync.Concurrency
	}

	if p.LogLevel != "" {
		cfg.Observability.LogLevel = observability.ParseLevel(p.LogLevel)
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v string) {
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}
