package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	// Storage
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL"`
	TenantMaxConns int32  `env:"TENANT_MAX_CONNS" envDefault:"5"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	// Generation workers
	WorkerConcurrency   int `env:"WORKER_CONCURRENCY" envDefault:"8"`
	WorkerQueueSize     int `env:"WORKER_QUEUE_SIZE" envDefault:"256"`
	TenantMaxGenerating int `env:"TENANT_MAX_GENERATING" envDefault:"4"`
	RetryMaxAttempts    int `env:"RETRY_MAX_ATTEMPTS" envDefault:"3"`

	// Stale generation sweeper, disabled when zero
	StaleGenerationTimeout time.Duration `env:"STALE_GENERATION_TIMEOUT" envDefault:"0s"`

	// Provider simulation
	GPT35FailureChance    float64 `env:"GPT35_FAILURE_CHANCE" envDefault:"0.1"`
	GPT35RateLimitChance  float64 `env:"GPT35_RATE_LIMIT_CHANCE" envDefault:"0.15"`
	ClaudeRateLimitChance float64 `env:"CLAUDE_RATE_LIMIT_CHANCE" envDefault:"0.15"`
	GeminiFailureChance   float64 `env:"GEMINI_FAILURE_CHANCE" envDefault:"0.2"`

	// Live provider credentials; a provider without a key is simulated
	OpenAIKey     string `env:"OPENAI_API_KEY"`
	AnthropicKey  string `env:"ANTHROPIC_API_KEY"`
	GeminiKey     string `env:"GEMINI_API_KEY"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta/openai/"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s backend", BackendPostgres)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.WorkerConcurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive")
	}
	if c.RetryMaxAttempts <= 0 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be positive")
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto slog levels, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
