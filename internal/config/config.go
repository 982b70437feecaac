package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"

	"github.com/MimeLyc/xieyin/pkg/log"
)

// Config holds all application configuration, read from environment
// variables with sensible defaults.
//
// Environment Variables:
// LLM Configuration:
// - LLM_API_KEY: API key for the LLM provider (required unless the static fetcher is used)
// - LLM_API_URL: API endpoint URL (default: https://dashscope.aliyuncs.com/compatible-mode/v1)
// - LLM_MODEL: Model name to use (default: qwen-plus)
// - LLM_MAX_TOKENS: Maximum tokens for responses (default: 2000)
// - LLM_TEMPERATURE: Temperature for responses (default: 0.1)
// - LLM_TIMEOUT: Request timeout in seconds (default: 60)
// - LLM_RATE_PER_MIN: Requests per minute sent to the provider, 0 disables (default: 60)
//
// HTTP Configuration:
// - HTTP_ADDR: Listen address (default: :3000, or :$PORT when PORT is set)
// - UI_STATIC_DIR: Static page directory (default: ./public)
// - UI_ENABLED: Serve the static page (default: true)
//
// Cache Configuration:
// - DATA_DIR: Data directory (default: ./data)
// - CACHE_BACKEND: json or sqlite (default: json)
// - CACHE_FILE: JSON cache file (default: $DATA_DIR/cache.json)
// - CACHE_DB: SQLite database (default: $DATA_DIR/xieyin.db)
// - CACHE_SNAPSHOT_CRON: Periodic snapshot schedule, empty disables (default: @every 10m)
//
// Other:
// - TARGET_LANGUAGE: BCP-47 tag of the homophone language (default: zh)
// - LOG_LEVEL: debug, info, warn or error (default: info)
// - LOG_FILE: Append logs to this file instead of stdout (optional)
// - METRICS_ENABLED: Expose /metrics (default: true)
type Config struct {
	LLM       LLMConfig       `json:"llm"`
	HTTP      HTTPConfig      `json:"http"`
	Cache     CacheConfig     `json:"cache"`
	Homophone HomophoneConfig `json:"homophone"`
	Log       LogConfig       `json:"log"`
	Metrics   MetricsConfig   `json:"metrics"`
}

// LLMConfig holds the configuration for the OpenAI-compatible chat endpoint.
type LLMConfig struct {
	APIKey        string  `json:"-"`
	APIURL        string  `json:"api_url"`
	Model         string  `json:"model"`
	MaxTokens     int     `json:"max_tokens"`
	Temperature   float64 `json:"temperature"`
	Timeout       int     `json:"timeout"`
	RatePerMinute int     `json:"rate_per_minute"`
}

type HTTPConfig struct {
	Addr        string `json:"addr"`
	UIStaticDir string `json:"ui_static_dir"`
	UIEnabled   bool   `json:"ui_enabled"`
}

const (
	CacheBackendJSON   = "json"
	CacheBackendSQLite = "sqlite"
)

type CacheConfig struct {
	DataDir      string `json:"data_dir"`
	Backend      string `json:"backend"`
	File         string `json:"file"`
	DB           string `json:"db"`
	SnapshotCron string `json:"snapshot_cron"`
}

type HomophoneConfig struct {
	TargetLanguage language.Tag `json:"target_language"`
	// Fake answers locally instead of calling the LLM.
	Fake bool `json:"fake"`
}

type LogConfig struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

type MetricsConfig struct {
	Enabled bool `json:"enabled"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// WithFakeFetcher switches to the local placeholder fetcher, which needs no
// API key.
func WithFakeFetcher() Option {
	return func(c *Config) {
		c.Homophone.Fake = true
	}
}

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	dataDir := getEnvString("DATA_DIR", "./data")
	targetLanguage := getEnvString("TARGET_LANGUAGE", "zh")
	tag, err := language.Parse(targetLanguage)
	if err != nil {
		return nil, fmt.Errorf("invalid TARGET_LANGUAGE %q: %w", targetLanguage, err)
	}

	config := &Config{
		LLM: LLMConfig{
			APIKey:        getEnvString("LLM_API_KEY", ""),
			APIURL:        getEnvString("LLM_API_URL", "https://dashscope.aliyuncs.com/compatible-mode/v1"),
			Model:         getEnvString("LLM_MODEL", "qwen-plus"),
			MaxTokens:     getEnvInt("LLM_MAX_TOKENS", 2000),
			Temperature:   getEnvFloat("LLM_TEMPERATURE", 0.1),
			Timeout:       getEnvInt("LLM_TIMEOUT", 60),
			RatePerMinute: getEnvInt("LLM_RATE_PER_MIN", 60),
		},
		HTTP: HTTPConfig{
			Addr:        getEnvString("HTTP_ADDR", defaultAddr()),
			UIStaticDir: getEnvString("UI_STATIC_DIR", "./public"),
			UIEnabled:   getEnvBool("UI_ENABLED", true),
		},
		Cache: CacheConfig{
			DataDir:      dataDir,
			Backend:      strings.ToLower(getEnvString("CACHE_BACKEND", CacheBackendJSON)),
			File:         getEnvString("CACHE_FILE", filepath.Join(dataDir, "cache.json")),
			DB:           getEnvString("CACHE_DB", filepath.Join(dataDir, "xieyin.db")),
			SnapshotCron: getEnvStringAllowEmpty("CACHE_SNAPSHOT_CRON", "@every 10m"),
		},
		Homophone: HomophoneConfig{
			TargetLanguage: tag,
		},
		Log: LogConfig{
			Level: getEnvString("LOG_LEVEL", "info"),
			File:  getEnvString("LOG_FILE", ""),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Debug("Config: %+v", config.Redacted())
	return config, nil
}

// Redacted returns a copy that is safe to log: the API key is masked.
func (c *Config) Redacted() Config {
	out := *c
	if out.LLM.APIKey != "" {
		out.LLM.APIKey = "***"
	}
	return out
}

// CachePath is the location of the active cache backend.
func (c *Config) CachePath() string {
	if c.Cache.Backend == CacheBackendSQLite {
		return c.Cache.DB
	}
	return c.Cache.File
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.LLM.APIKey == "" && !c.Homophone.Fake {
		return fmt.Errorf("LLM_API_KEY is required")
	}
	if c.LLM.RatePerMinute < 0 {
		return fmt.Errorf("LLM_RATE_PER_MIN must not be negative")
	}
	switch c.Cache.Backend {
	case CacheBackendJSON, CacheBackendSQLite:
	default:
		return fmt.Errorf("unsupported CACHE_BACKEND %q", c.Cache.Backend)
	}
	if c.Cache.SnapshotCron != "" {
		if _, err := cron.ParseStandard(c.Cache.SnapshotCron); err != nil {
			return fmt.Errorf("invalid CACHE_SNAPSHOT_CRON: %w", err)
		}
	}
	return nil
}

func defaultAddr() string {
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":3000"
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvStringAllowEmpty is like getEnvString but an explicitly empty
// variable overrides the default.
func getEnvStringAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
