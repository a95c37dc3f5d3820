package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/ledger-reconciler/internal/events"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.Source)
	assert.Equal(t, "ms", cfg.TimestampUnit)
	assert.Equal(t, SinkTable, cfg.Sink)
	assert.Equal(t, "ledger", cfg.BQDataset)
	assert.Equal(t, 5*time.Minute, cfg.RunTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("LEDGER_SOURCE", "gs://bucket/exports")
	t.Setenv("LEDGER_TIMESTAMP_UNIT", "us")
	t.Setenv("LEDGER_SINK", "bigquery")
	t.Setenv("LEDGER_BQ_PROJECT", "my-project")
	t.Setenv("LEDGER_RUN_TIMEOUT", "30s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	unit, err := cfg.Unit()
	require.NoError(t, err)
	assert.Equal(t, events.UnitMicrosecond, unit)
	assert.Equal(t, "gs://bucket/exports", cfg.Source)
	assert.Equal(t, "my-project", cfg.BQProject)
	assert.Equal(t, 30*time.Second, cfg.RunTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("LEDGER_RUN_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestValidate(t *testing.T) {
	valid := Config{Source: "data", TimestampUnit: "ms", Sink: SinkTable, BQDataset: "ledger", RunTimeout: time.Minute}

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty source", func(c *Config) { c.Source = "" }},
		{"unknown unit", func(c *Config) { c.TimestampUnit = "ns" }},
		{"unknown sink", func(c *Config) { c.Sink = "csv" }},
		{"bigquery without project", func(c *Config) { c.Sink = SinkBigQuery }},
		{"bigquery without dataset", func(c *Config) { c.Sink = SinkBigQuery; c.BQProject = "p"; c.BQDataset = "" }},
		{"zero timeout", func(c *Config) { c.RunTimeout = 0 }},
	}

	require.NoError(t, valid.Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
