// Package config provides configuration loading and validation for the
// ingestion pipeline binaries.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Provider names selectable via AI_PROVIDER.
const (
	ProviderMock   = "mock"
	ProviderGemini = "gemini"
)

// Config holds all runtime configuration for the pipeline. Values come from
// the environment; main loads a .env file first when present.
type Config struct {
	// Persistence
	DatabaseURL string `validate:"required"`

	// Blob storage root for uploaded documents
	StorageDir string `validate:"required"`

	// AI provider selection. The mock provider needs no key.
	AIProvider   string `validate:"oneof=mock gemini"`
	GeminiAPIKey string

	// Queue. An empty RabbitURL disables queued dispatch; uploads then run
	// inline in a background goroutine.
	RabbitURL       string
	ProcessingQueue string
	ResultQueue     string
	DeadLetterQueue string

	// Consumer behavior
	ConsumerConcurrency int `validate:"min=1"`
	MaxAttempts         int `validate:"min=1"`

	// Upload limits
	MaxUploadBytes int64 `validate:"min=1"`

	// Resumes stuck in processing longer than this are swept to failed.
	StaleResumeTimeout time.Duration

	// Logging
	LogJSON  bool
	LogDebug bool
}

// Defaults returns the built-in defaults applied before env overrides.
func Defaults() Config {
	return Config{
		StorageDir:          "data/uploads",
		AIProvider:          ProviderMock,
		ProcessingQueue:     "resume_processing",
		ResultQueue:         "resume_processing_results",
		DeadLetterQueue:     "resume_processing_dlq",
		ConsumerConcurrency: 3,
		MaxAttempts:         5,
		MaxUploadBytes:      10 << 20, // 10 MB
		StaleResumeTimeout:  15 * time.Minute,
	}
}

// FromEnv builds a Config from environment variables layered over Defaults.
func FromEnv() (*Config, error) {
	cfg := Defaults()

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.RabbitURL = os.Getenv("RABBITMQ_URL")

	if v := os.Getenv("STORAGE_DIR"); v != "" {
		cfg.StorageDir = v
	}
	if v := os.Getenv("AI_PROVIDER"); v != "" {
		cfg.AIProvider = v
	}
	if v := os.Getenv("PROCESSING_QUEUE"); v != "" {
		cfg.ProcessingQueue = v
	}
	if v := os.Getenv("RESULT_QUEUE"); v != "" {
		cfg.ResultQueue = v
	}
	if v := os.Getenv("DEAD_LETTER_QUEUE"); v != "" {
		cfg.DeadLetterQueue = v
	}
	if v := os.Getenv("CONSUMER_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CONSUMER_CONCURRENCY %q: %w", v, err)
		}
		cfg.ConsumerConcurrency = n
	}
	if v := os.Getenv("MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_ATTEMPTS %q: %w", v, err)
		}
		cfg.MaxAttempts = n
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_UPLOAD_BYTES %q: %w", v, err)
		}
		cfg.MaxUploadBytes = n
	}
	if v := os.Getenv("STALE_RESUME_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid STALE_RESUME_TIMEOUT %q: %w", v, err)
		}
		cfg.StaleResumeTimeout = d
	}
	cfg.LogJSON = os.Getenv("LOG_JSON") == "true"
	cfg.LogDebug = os.Getenv("LOG_DEBUG") == "true"

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration using the validator.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.AIProvider == ProviderGemini && c.GeminiAPIKey == "" {
		return fmt.Errorf("config error: GEMINI_API_KEY is required when AI_PROVIDER=gemini")
	}
	return nil
}

// QueueEnabled reports whether a durable broker is configured.
func (c *Config) QueueEnabled() bool {
	return c.RabbitURL != ""
}
