// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/roach88/priceforge/internal/costing"
	"github.com/roach88/priceforge/internal/domain"
)

// Environment variable names.
const (
	EnvDB              = "PRICEFORGE_DB"
	EnvAddr            = "PRICEFORGE_ADDR"
	EnvMaxDepth        = "PRICEFORGE_MAX_DEPTH"
	EnvLogFormat       = "PRICEFORGE_LOG_FORMAT"
	EnvDefaultMarkup   = "PRICEFORGE_DEFAULT_MARKUP"
	EnvDefaultCurrency = "PRICEFORGE_DEFAULT_CURRENCY"
)

// Config holds the application configuration.
type Config struct {
	// DBPath is the SQLite database file.
	DBPath string

	// Addr is the HTTP listen address of `serve`.
	Addr string

	// MaxDepth bounds BOM nesting.
	MaxDepth int

	// LogFormat is "text" or "json".
	LogFormat string

	// Defaults seeds the settings row on `init`.
	Defaults domain.Settings
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		DBPath:    "priceforge.db",
		Addr:      ":8080",
		MaxDepth:  costing.DefaultMaxDepth,
		LogFormat: "text",
		Defaults:  domain.DefaultSettings(),
	}
}

// Load reads a .env file from the working directory, if present, then the
// environment. Variables already set in the environment win over .env.
// A malformed value is an error rather than a silent fallback.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from a variable lookup function.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if v, ok := lookup(EnvDB); ok && v != "" {
		cfg.DBPath = v
	}
	if v, ok := lookup(EnvAddr); ok && v != "" {
		cfg.Addr = v
	}
	if v, ok := lookup(EnvMaxDepth); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("%s: want a positive integer, got %q", EnvMaxDepth, v)
		}
		cfg.MaxDepth = n
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		v = strings.ToLower(v)
		if v != "text" && v != "json" {
			return Config{}, fmt.Errorf("%s: want text or json, got %q", EnvLogFormat, v)
		}
		cfg.LogFormat = v
	}
	if v, ok := lookup(EnvDefaultMarkup); ok && v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			return Config{}, fmt.Errorf("%s: want a non-negative decimal, got %q", EnvDefaultMarkup, v)
		}
		cfg.Defaults.DefaultMarkupPct = d
	}
	if v, ok := lookup(EnvDefaultCurrency); ok && v != "" {
		cfg.Defaults.Currency = strings.ToUpper(v)
	}
	return cfg, nil
}
