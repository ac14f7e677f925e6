package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Vendor struct {
		BaseURL        string        `yaml:"base_url"`
		RefreshToken   string        `yaml:"refresh_token"`
		MarketCode     string        `yaml:"market_code"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"vendor"`
	Data struct {
		Dir    string `yaml:"dir"`
		LogDir string `yaml:"log_dir"`
	} `yaml:"data"`
	Watch struct {
		Instruments  []string `yaml:"instruments"`
		LookbackDays int      `yaml:"lookback_days"`
	} `yaml:"watch"`
	Alerts struct {
		PriceMovePct        float64       `yaml:"price_move_pct"`
		OpenInterestMovePct float64       `yaml:"open_interest_move_pct"`
		Cooldown            time.Duration `yaml:"cooldown"`
	} `yaml:"alerts"`
	Monitor struct {
		Enabled  bool          `yaml:"enabled"`
		Interval time.Duration `yaml:"interval"`
		Sessions []struct {
			Start string `yaml:"start"`
			End   string `yaml:"end"`
		} `yaml:"sessions"`
	} `yaml:"monitor"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("IFIND_REFRESH_TOKEN"); v != "" {
		c.Vendor.RefreshToken = v
	}
	if v := os.Getenv("WATCH_LIST"); v != "" {
		c.Watch.Instruments = strings.Split(v, ",")
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.Data.Dir = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Vendor.BaseURL == "" {
		c.Vendor.BaseURL = "https://quantapi.51ifind.com/api/v1"
	}
	if c.Vendor.MarketCode == "" {
		c.Vendor.MarketCode = "142001" // SHFE trading calendar
	}
	if c.Vendor.RequestTimeout <= 0 {
		c.Vendor.RequestTimeout = 60 * time.Second
	}
	if c.Data.Dir == "" {
		c.Data.Dir = "data"
	}
	if c.Watch.LookbackDays <= 0 {
		c.Watch.LookbackDays = 90
	}
	if c.Alerts.Cooldown <= 0 {
		c.Alerts.Cooldown = 5 * time.Minute
	}
	if c.Monitor.Interval <= 0 {
		c.Monitor.Interval = 30 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Vendor.RefreshToken == "" {
		return fmt.Errorf("vendor.refresh_token is required")
	}
	if len(c.Watch.Instruments) == 0 {
		return fmt.Errorf("watch.instruments cannot be empty")
	}
	if c.Alerts.PriceMovePct <= 0 {
		return fmt.Errorf("alerts.price_move_pct must be positive")
	}
	if c.Alerts.OpenInterestMovePct <= 0 {
		return fmt.Errorf("alerts.open_interest_move_pct must be positive")
	}
	return nil
}
