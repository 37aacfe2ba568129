// Package config loads process configuration from the environment.
// A .env file is read first when present; real environment variables win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the full process configuration.
type Config struct {
	Env      string
	Port     string
	LogLevel string

	Storage     StorageConfig
	Tx          TxConfig
	Idempotency IdempotencyConfig
	RateLimit   RateLimitConfig
	Outbox      OutboxConfig

	CORSAllowedOrigins []string

	// AuditCompressThreshold is the payload size in bytes above which audit
	// entries are stored zstd-compressed.
	AuditCompressThreshold int
}

// StorageConfig selects and sizes the backing store.
type StorageConfig struct {
	Driver      string
	DatabaseURL string
	MaxConns    int32
}

// TxConfig tunes database transactions.
type TxConfig struct {
	// MaxRetries is how many times a serialization or lock failure is retried.
	MaxRetries       int
	StatementTimeout time.Duration
}

// IdempotencyConfig controls X-Idempotency-Key handling.
type IdempotencyConfig struct {
	Enabled bool
	TTL     time.Duration
}

// RateLimitConfig throttles mutating requests per terminal.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// OutboxConfig tunes the outbox relay in the worker.
type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// IsDevelopment reports whether the process runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return ":" + c.Port
}

var defaults = map[string]any{
	"APP_ENV":                  "development",
	"APP_PORT":                 "8080",
	"LOG_LEVEL":                "info",
	"STORAGE_DRIVER":           DriverPostgres,
	"DATABASE_URL":             "",
	"DB_MAX_CONNS":             25,
	"TX_MAX_RETRIES":           2,
	"TX_STATEMENT_TIMEOUT":     "30s",
	"IDEMPOTENCY_ENABLED":      true,
	"IDEMPOTENCY_TTL":          "24h",
	"RATE_LIMIT_RPS":           20,
	"RATE_LIMIT_BURST":         40,
	"CORS_ALLOWED_ORIGINS":     "*",
	"OUTBOX_POLL_INTERVAL":     "500ms",
	"OUTBOX_BATCH_SIZE":        100,
	"AUDIT_COMPRESS_THRESHOLD": 1024,
}

// Load reads configuration. With no files given it tries ./.env.
// Missing files are skipped.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	cfg := Config{
		Env:      v.GetString("APP_ENV"),
		Port:     v.GetString("APP_PORT"),
		LogLevel: v.GetString("LOG_LEVEL"),
		Storage: StorageConfig{
			Driver:      strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_DRIVER"))),
			DatabaseURL: v.GetString("DATABASE_URL"),
			MaxConns:    v.GetInt32("DB_MAX_CONNS"),
		},
		Tx: TxConfig{
			MaxRetries:       v.GetInt("TX_MAX_RETRIES"),
			StatementTimeout: v.GetDuration("TX_STATEMENT_TIMEOUT"),
		},
		Idempotency: IdempotencyConfig{
			Enabled: v.GetBool("IDEMPOTENCY_ENABLED"),
			TTL:     v.GetDuration("IDEMPOTENCY_TTL"),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			Burst: v.GetInt("RATE_LIMIT_BURST"),
		},
		Outbox: OutboxConfig{
			PollInterval: v.GetDuration("OUTBOX_POLL_INTERVAL"),
			BatchSize:    v.GetInt("OUTBOX_BATCH_SIZE"),
		},
		CORSAllowedOrigins:     splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		AuditCompressThreshold: v.GetInt("AUDIT_COMPRESS_THRESHOLD"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the process cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER %q is not one of postgres, memory", c.Storage.Driver))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("APP_PORT is empty"))
	}
	if c.Storage.MaxConns <= 0 {
		errs = append(errs, errors.New("DB_MAX_CONNS must be positive"))
	}
	if c.Tx.MaxRetries < 0 {
		errs = append(errs, errors.New("TX_MAX_RETRIES must not be negative"))
	}
	if c.Tx.StatementTimeout <= 0 {
		errs = append(errs, errors.New("TX_STATEMENT_TIMEOUT must be a positive duration"))
	}
	if c.Idempotency.Enabled && c.Idempotency.TTL <= 0 {
		errs = append(errs, errors.New("IDEMPOTENCY_TTL must be a positive duration"))
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}
	if c.Outbox.PollInterval <= 0 || c.Outbox.BatchSize <= 0 {
		errs = append(errs, errors.New("OUTBOX_POLL_INTERVAL and OUTBOX_BATCH_SIZE must be positive"))
	}
	if c.AuditCompressThreshold < 0 {
		errs = append(errs, errors.New("AUDIT_COMPRESS_THRESHOLD must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
