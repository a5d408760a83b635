// Package config provides application configuration management.
// It loads settings from environment variables and provides defaults for
// server mode, catalog source, LLM providers, and session limits.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// LLM Configuration
	GeminiAPIKey string // Gemini API key for the generation fallback
	GroqAPIKey   string // Groq API key (OpenAI-compatible alternative provider)

	// LLM Model Configuration (optional, defaults apply if empty)
	GeminiModel         string // Primary Gemini model
	GeminiFallbackModel string // Fallback Gemini model
	GroqModel           string // Primary Groq model
	GroqFallbackModel   string // Fallback Groq model

	// LLM Provider Configuration
	LLMPrimaryProvider  string // Primary LLM provider: "gemini" or "groq" (default: "gemini")
	LLMFallbackProvider string // Fallback LLM provider (default: "groq")

	// LLMContextIncludeClosed controls whether in-progress/finished courses
	// are serialized into the generation context. They are excluded by
	// default; the policy post-filter protects output either way.
	LLMContextIncludeClosed bool

	// Generation call budget
	GenerationTimeout time.Duration
	GenerationRetries int // retries after the first attempt (default: 1)

	// Metrics Authentication
	MetricsUsername string // Username for /metrics endpoint Basic Auth (default: "prometheus")
	MetricsPassword string // Password for /metrics endpoint Basic Auth (empty = no auth)

	// Observability
	BetterstackToken    string // Better Stack log shipping token (empty = disabled)
	BetterstackEndpoint string // Better Stack ingesting endpoint
	SentryDSN           string // Sentry DSN (empty = disabled)
	SentryEnvironment   string // Deployment environment tag for Sentry

	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Catalog Configuration
	CatalogPath string // Local JSON catalog path
	// R2/S3 catalog source (optional; takes precedence over CatalogPath when set)
	R2Endpoint    string
	R2AccessKeyID string
	R2SecretKey   string
	R2Bucket      string
	CatalogKey    string // Object key, may end in .zst for compressed catalogs

	// Data Configuration
	DataDir          string        // Data directory for the SQLite turn log
	TurnLogRetention time.Duration // How long audit rows are kept (default: 30 days)

	// Chat Configuration (embedded)
	Chat ChatConfig
}

// ChatConfig holds chat-pipeline configuration
type ChatConfig struct {
	// Rate Limits (Token Bucket Algorithm)
	SessionRateLimitBurst  float64 // Maximum burst tokens per session (default: 10)
	SessionRateLimitRefill float64 // Tokens refilled per second (default: 0.5)

	// Business Limits
	MaxHistoryEntries int // Sliding window size per session, request+response entries (default: 6)
	MaxListingEntries int // Maximum entries in topic/locality listings (default: 5)
	TopMatches        int // Ranked title-match candidates handed to the LLM (default: 5)
	MaxMessageLength  int // Maximum accepted chat message length (default: 1000)
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		// LLM Configuration
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GroqAPIKey:   getEnv("GROQ_API_KEY", ""),

		// LLM Model Configuration (empty = use defaults from genai package)
		GeminiModel:         getEnv("GEMINI_MODEL", ""),
		GeminiFallbackModel: getEnv("GEMINI_FALLBACK_MODEL", ""),
		GroqModel:           getEnv("GROQ_MODEL", ""),
		GroqFallbackModel:   getEnv("GROQ_FALLBACK_MODEL", ""),

		// LLM Provider Configuration
		LLMPrimaryProvider:  getEnv("LLM_PRIMARY_PROVIDER", "gemini"),
		LLMFallbackProvider: getEnv("LLM_FALLBACK_PROVIDER", "groq"),

		LLMContextIncludeClosed: getBoolEnv("LLM_CONTEXT_INCLUDE_CLOSED", false),

		GenerationTimeout: getDurationEnv("GENERATION_TIMEOUT", GenerationCall),
		GenerationRetries: getIntEnv("GENERATION_RETRIES", 1),

		// Metrics Authentication
		MetricsUsername: getEnv("METRICS_USERNAME", "prometheus"),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),

		// Observability
		BetterstackToken:    getEnv("BETTERSTACK_TOKEN", ""),
		BetterstackEndpoint: getEnv("BETTERSTACK_ENDPOINT", "https://in.logs.betterstack.com"),
		SentryDSN:           getEnv("SENTRY_DSN", ""),
		SentryEnvironment:   getEnv("SENTRY_ENVIRONMENT", "production"),

		// Server Configuration
		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),

		// Catalog Configuration
		CatalogPath:   getEnv("CATALOG_PATH", "./data/cursos.json"),
		R2Endpoint:    getEnv("R2_ENDPOINT", ""),
		R2AccessKeyID: getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretKey:   getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:      getEnv("R2_BUCKET", ""),
		CatalogKey:    getEnv("CATALOG_OBJECT_KEY", "cursos.json"),

		// Data Configuration
		DataDir:          getEnv("DATA_DIR", "./data"),
		TurnLogRetention: getDurationEnv("TURN_LOG_RETENTION", 30*24*time.Hour),

		// Chat Configuration
		Chat: ChatConfig{
			SessionRateLimitBurst:  getFloatEnv("SESSION_RATE_LIMIT_BURST", 10.0),
			SessionRateLimitRefill: getFloatEnv("SESSION_RATE_LIMIT_REFILL_PER_SEC", 0.5),
			MaxHistoryEntries:      MaxSessionHistory,
			MaxListingEntries:      MaxListingEntries,
			TopMatches:             getIntEnv("TOP_MATCHES", 5),
			MaxMessageLength:       MaxMessageLength,
		},
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if c.CatalogPath == "" && !c.HasR2Source() {
		errs = append(errs, errors.New("CATALOG_PATH or R2 source is required"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("DATA_DIR is required"))
	}
	if c.GenerationTimeout <= 0 {
		errs = append(errs, fmt.Errorf("GENERATION_TIMEOUT must be positive, got %v", c.GenerationTimeout))
	}
	if c.GenerationRetries < 0 {
		errs = append(errs, fmt.Errorf("GENERATION_RETRIES cannot be negative, got %d", c.GenerationRetries))
	}
	if c.TurnLogRetention <= 0 {
		errs = append(errs, fmt.Errorf("TURN_LOG_RETENTION must be positive, got %v", c.TurnLogRetention))
	}
	if err := c.Chat.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("chat config: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks chat-pipeline limits.
func (c *ChatConfig) Validate() error {
	var errs []error

	if c.SessionRateLimitBurst <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_RATE_LIMIT_BURST must be positive, got %v", c.SessionRateLimitBurst))
	}
	if c.SessionRateLimitRefill <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_RATE_LIMIT_REFILL_PER_SEC must be positive, got %v", c.SessionRateLimitRefill))
	}
	if c.MaxHistoryEntries <= 0 || c.MaxHistoryEntries%2 != 0 {
		errs = append(errs, fmt.Errorf("history window must be a positive even number, got %d", c.MaxHistoryEntries))
	}
	if c.MaxListingEntries <= 0 {
		errs = append(errs, fmt.Errorf("listing cap must be positive, got %d", c.MaxListingEntries))
	}
	if c.TopMatches <= 0 {
		errs = append(errs, fmt.Errorf("TOP_MATCHES must be positive, got %d", c.TopMatches))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// HasR2Source returns true if a complete R2/S3 catalog source is configured.
func (c *Config) HasR2Source() bool {
	return c.R2Endpoint != "" && c.R2AccessKeyID != "" && c.R2SecretKey != "" && c.R2Bucket != "" && c.CatalogKey != ""
}

// HasLLMProvider returns true if at least one LLM provider is configured.
func (c *Config) HasLLMProvider() bool {
	return c.GeminiAPIKey != "" || c.GroqAPIKey != ""
}

// SQLitePath returns the full path to the SQLite turn-log database file.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "turnlog.db")
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getBoolEnv retrieves boolean environment variable with fallback to default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
