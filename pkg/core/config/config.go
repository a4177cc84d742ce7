// Package config loads application settings from a YAML file, a .env file and
// the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/currency"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/store"
)

// DefaultPath is read when no path is given.
const DefaultPath = "config/dcf.yaml"

// Rate is an exchange rate entry in the config file.
type Rate struct {
	From string  `yaml:"from"`
	To   string  `yaml:"to"`
	Rate float64 `yaml:"rate"`
}

// Config holds all application configuration.
type Config struct {
	Server struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
	} `yaml:"server"`
	Store           store.Config `yaml:"store"`
	DisplayCurrency string       `yaml:"display_currency"`
	LogLevel        string       `yaml:"log_level"`
	Rates           []Rate       `yaml:"rates"`
}

// Load reads path (missing files are ignored), loads .env if present, then
// applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if path == "" {
		path = DefaultPath
	}
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DCF_STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("DCF_STORE_DIR"); v != "" {
		c.Store.Dir = v
	}
	if v := os.Getenv("SERVER_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SERVER_PORT must be an integer: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("DCF_DISPLAY_CURRENCY"); v != "" {
		c.DisplayCurrency = v
	}
	if v := os.Getenv("DCF_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Store.Driver == "" {
		// DATABASE_URL alone is enough to select postgres
		if strings.HasPrefix(c.Store.DSN, "postgres") {
			c.Store.Driver = store.DriverPostgres
		} else {
			c.Store.Driver = store.DriverFile
		}
	}
	if c.Store.Dir == "" {
		c.Store.Dir = ".cache/dcf"
	}
	if c.DisplayCurrency == "" {
		c.DisplayCurrency = string(currency.EUR)
	}
	c.DisplayCurrency = strings.ToUpper(c.DisplayCurrency)
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	switch c.Store.Driver {
	case store.DriverFile, store.DriverSQLite:
	case store.DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn (DATABASE_URL) is required for the postgres driver")
		}
	default:
		return fmt.Errorf("store.driver %q is not one of file, sqlite, postgres", c.Store.Driver)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	for _, r := range c.Rates {
		if r.From == "" || r.To == "" {
			return fmt.Errorf("rates: from and to are required")
		}
		if r.Rate <= 0 {
			return fmt.Errorf("rates: %s→%s must be positive", r.From, r.To)
		}
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Level returns the parsed log level, defaulting to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// RateTable builds the exchange rate table: the defaults, overridden by any
// rates in the config file.
func (c *Config) RateTable() (*currency.RateTable, error) {
	table := currency.NewRateTable(currency.DefaultRates()...)
	for _, r := range c.Rates {
		from, err := currency.Parse(r.From)
		if err != nil {
			return nil, err
		}
		to, err := currency.Parse(r.To)
		if err != nil {
			return nil, err
		}
		if err := table.Update(from, to, r.Rate); err != nil {
			return nil, fmt.Errorf("rates: %w", err)
		}
	}
	return table, nil
}
