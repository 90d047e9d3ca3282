package config_test

import (
	"testing"

	"github.com/ksred/recon-api/internal/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := config.Load()

	assert.Equal(t, "recon.db", cfg.DatabasePath)
	assert.Equal(t, 1000, cfg.Ingest.ChunkSize)
	assert.Equal(t, "Australia/Sydney", cfg.Ingest.Timezone)
	assert.True(t, cfg.Alerting.Threshold.Equal(decimal.NewFromInt(100)))
	assert.False(t, cfg.Email.Enabled)
	assert.Equal(t, 0, cfg.Processor.IntervalMinutes)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("INGEST_CHUNK_SIZE", "250")
	t.Setenv("ALERT_THRESHOLD", "42.50")
	t.Setenv("EMAIL_ENABLED", "true")
	t.Setenv("EMAIL_TO", "a@company.com, b@company.com")

	cfg := config.Load()

	assert.Equal(t, 250, cfg.Ingest.ChunkSize)
	assert.True(t, cfg.Alerting.Threshold.Equal(decimal.RequireFromString("42.50")))
	assert.True(t, cfg.Email.Enabled)
	assert.Equal(t, []string{"a@company.com", "b@company.com"}, cfg.Email.To)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("INGEST_CHUNK_SIZE", "many")
	t.Setenv("ALERT_THRESHOLD", "-5")

	cfg := config.Load()

	assert.Equal(t, 1000, cfg.Ingest.ChunkSize)
	assert.True(t, cfg.Alerting.Threshold.Equal(decimal.NewFromInt(100)))
}
