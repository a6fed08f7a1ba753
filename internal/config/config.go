package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"finsent/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Backend struct {
		BaseURL        string        `yaml:"base_url"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		Mock           bool          `yaml:"mock"`
	} `yaml:"backend"`
	Readiness struct {
		Interval      time.Duration `yaml:"interval"`
		ProbeTimeout  time.Duration `yaml:"probe_timeout"`
		MaxAttempts   int           `yaml:"max_attempts"`
		DebugProgress float64       `yaml:"debug_progress"`
		StartInDebug  bool          `yaml:"start_in_debug"`
	} `yaml:"readiness"`
	Dashboard struct {
		Addr             string `yaml:"addr"`
		DefaultSymbol    string `yaml:"default_symbol"`
		DefaultTimeframe string `yaml:"default_timeframe"`
		TickerCron       string `yaml:"ticker_cron"`
		ChartWidth       int    `yaml:"chart_width"`
		PanelHeight      int    `yaml:"panel_height"`
	} `yaml:"dashboard"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("API_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	// Project-specific name wins over the generic one.
	if v := os.Getenv("FINSENT_API_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("FINSENT_MOCK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Backend.Mock = b
		}
	}
	if v := os.Getenv("FINSENT_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Readiness.StartInDebug = b
		}
	}
	if v := os.Getenv("DASHBOARD_ADDR"); v != "" {
		cfg.Dashboard.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://127.0.0.1:8000"
	}
	if cfg.Backend.RequestTimeout == 0 {
		cfg.Backend.RequestTimeout = 30 * time.Second
	}
	if cfg.Readiness.Interval == 0 {
		cfg.Readiness.Interval = 1500 * time.Millisecond
	}
	if cfg.Readiness.ProbeTimeout == 0 {
		cfg.Readiness.ProbeTimeout = time.Second
	}
	if cfg.Readiness.MaxAttempts == 0 {
		cfg.Readiness.MaxAttempts = 8
	}
	if cfg.Readiness.DebugProgress == 0 {
		cfg.Readiness.DebugProgress = 80
	}
	if cfg.Dashboard.Addr == "" {
		cfg.Dashboard.Addr = ":8080"
	}
	if cfg.Dashboard.DefaultSymbol == "" {
		cfg.Dashboard.DefaultSymbol = "AAPL"
	}
	if cfg.Dashboard.DefaultTimeframe == "" {
		cfg.Dashboard.DefaultTimeframe = string(model.Timeframe1W)
	}
	if cfg.Dashboard.TickerCron == "" {
		cfg.Dashboard.TickerCron = "@every 10s"
	}
	if cfg.Dashboard.ChartWidth == 0 {
		cfg.Dashboard.ChartWidth = 960
	}
	if cfg.Dashboard.PanelHeight == 0 {
		cfg.Dashboard.PanelHeight = 240
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate checks that all settings are usable.
func (c *Config) Validate() error {
	if !c.Backend.Mock {
		u, err := url.Parse(c.Backend.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("backend.base_url %q is not an absolute URL", c.Backend.BaseURL)
		}
	}
	if c.Readiness.Interval <= 0 {
		return fmt.Errorf("readiness.interval must be positive")
	}
	if c.Readiness.ProbeTimeout <= 0 {
		return fmt.Errorf("readiness.probe_timeout must be positive")
	}
	if c.Readiness.MaxAttempts <= 0 {
		return fmt.Errorf("readiness.max_attempts must be positive")
	}
	if c.Readiness.DebugProgress < 0 || c.Readiness.DebugProgress > 100 {
		return fmt.Errorf("readiness.debug_progress must be within [0, 100]")
	}
	if _, err := model.ParseTimeframe(c.Dashboard.DefaultTimeframe); err != nil {
		return fmt.Errorf("dashboard.default_timeframe: %w", err)
	}
	if _, err := cron.ParseStandard(c.Dashboard.TickerCron); err != nil {
		return fmt.Errorf("dashboard.ticker_cron: %w", err)
	}
	return nil
}
