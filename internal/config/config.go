// Package config loads application configuration from environment variables.
// A local .env file is honored for development; real deployments set the
// environment directly.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all runtime configuration, loaded once at startup via Load().
type Config struct {
	// DatabasePath is the SQLite database file backing the staging store.
	DatabasePath string

	// Port is the HTTP listen port for the API server.
	Port string

	// JWTSecret signs API tokens.
	JWTSecret string

	// APIKey and APISecret are the credentials accepted by the token
	// endpoint.
	APIKey    string
	APISecret string

	Ingest    IngestConfig
	Alerting  AlertingConfig
	Email     EmailConfig
	Processor ProcessorConfig
}

// IngestConfig holds settings for the chunked ingestion loader.
type IngestConfig struct {
	// ChunkSize is the number of source rows applied per batch transaction.
	ChunkSize int

	// Timezone is the IANA zone the source trade dates are quoted in.
	Timezone string
}

// AlertingConfig holds settings for the alert threshold engine.
type AlertingConfig struct {
	// Threshold is the minimum absolute value difference that makes a
	// discrepancy critical. Missing-side rows are critical regardless.
	Threshold decimal.Decimal
}

// EmailConfig holds SMTP settings for the optional email notifier.
type EmailConfig struct {
	Enabled      bool
	From         string
	To           []string
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
}

// ProcessorConfig holds settings for the periodic reconciliation processor.
type ProcessorConfig struct {
	// IntervalMinutes between scheduled reconciliation runs. Zero disables
	// the processor.
	IntervalMinutes int
}

// Load reads configuration from the environment, applying defaults.
// A .env file is loaded first if present.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	return &Config{
		DatabasePath: getEnv("DATABASE_PATH", "recon.db"),
		Port:         getEnv("PORT", "8080"),
		JWTSecret:    getEnv("JWT_SECRET", "recon-secret-key"),
		APIKey:       getEnv("API_KEY", "test-api-key"),
		APISecret:    getEnv("API_SECRET", "test-api-secret"),
		Ingest: IngestConfig{
			ChunkSize: getEnvInt("INGEST_CHUNK_SIZE", 1000),
			Timezone:  getEnv("INGEST_TIMEZONE", "Australia/Sydney"),
		},
		Alerting: AlertingConfig{
			Threshold: getEnvDecimal("ALERT_THRESHOLD", decimal.NewFromInt(100)),
		},
		Email: EmailConfig{
			Enabled:      strings.EqualFold(getEnv("EMAIL_ENABLED", "false"), "true"),
			From:         getEnv("EMAIL_FROM", "reconciliation@company.com"),
			To:           splitList(getEnv("EMAIL_TO", "")),
			SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		},
		Processor: ProcessorConfig{
			IntervalMinutes: getEnvInt("RECON_INTERVAL_MINUTES", 0),
		},
	}
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvDecimal returns the environment variable as a decimal or a default.
// Negative thresholds are rejected in favor of the default.
func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil || value.IsNegative() {
		return defaultValue
	}
	return value
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
