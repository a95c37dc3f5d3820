// Package config loads run configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/dvloznov/ledger-reconciler/internal/events"
)

// Sink names accepted by LEDGER_SINK.
const (
	SinkTable    = "table"
	SinkBigQuery = "bigquery"
)

// ErrInvalidConfig is returned by Validate for a field that cannot be used.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the configuration of one reconcile run.
type Config struct {
	Source        string        `env:"LEDGER_SOURCE" envDefault:"data"`
	TimestampUnit string        `env:"LEDGER_TIMESTAMP_UNIT" envDefault:"ms"`
	Sink          string        `env:"LEDGER_SINK" envDefault:"table"`
	BQProject     string        `env:"LEDGER_BQ_PROJECT"`
	BQDataset     string        `env:"LEDGER_BQ_DATASET" envDefault:"ledger"`
	RunTimeout    time.Duration `env:"LEDGER_RUN_TIMEOUT" envDefault:"5m"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
}

// parseEnv loads configuration from environment variables.
func parseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses a Config from the environment. It does not validate it, so
// that command-line flags can still override fields before Validate runs.
func Load() (Config, error) {
	var cfg Config
	if err := parseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Unit returns the parsed timestamp unit.
func (c Config) Unit() (events.TimeUnit, error) {
	return events.ParseTimeUnit(c.TimestampUnit)
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("%w: source is empty", ErrInvalidConfig)
	}
	if _, err := c.Unit(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch c.Sink {
	case SinkTable:
	case SinkBigQuery:
		if c.BQProject == "" {
			return fmt.Errorf("%w: LEDGER_BQ_PROJECT is required for the bigquery sink", ErrInvalidConfig)
		}
		if c.BQDataset == "" {
			return fmt.Errorf("%w: bigquery dataset is empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown sink %q", ErrInvalidConfig, c.Sink)
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("%w: run timeout must be positive, got %s", ErrInvalidConfig, c.RunTimeout)
	}
	return nil
}
