// Package config loads application configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Server
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// Storage backends. An empty PostgresDSN selects the in-memory
	// stores; an empty ClickhouseDSN disables close history.
	PostgresDSN   string `env:"POSTGRES_DSN"`
	ClickhouseDSN string `env:"CLICKHOUSE_DSN"`

	// Price feed
	QuoteBaseURL  string        `env:"QUOTE_BASE_URL"`
	QuoteWorkers  int           `env:"QUOTE_WORKERS" envDefault:"5"`
	RedisAddr     string        `env:"REDIS_ADDR"` // empty disables the quote cache
	QuoteCacheTTL time.Duration `env:"QUOTE_CACHE_TTL" envDefault:"15m"`

	// Scheduler
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" envDefault:"1h"`

	// Observability
	MetricsNamespace string `env:"METRICS_NAMESPACE" envDefault:"notes_tracker"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from the environment. A missing .env file is
// not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
