// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultSessionSecret is used when SESSION_SECRET is unset. It is public, so
// cookies signed with it can be forged; Load flags it via InsecureSecret.
const DefaultSessionSecret = "ink-secret-key"

// Config holds all application configuration.
type Config struct {
	Port               string
	Host               string
	CacheDir           string
	SessionSecret      string
	InsecureSecret     bool
	GeminiAPIKey       string
	GeminiModel        string
	StoreBackend       string // "file" or "sqlite"
	OpenBrowser        bool
	BrowserDelay       time.Duration
	MaxRequestBodySize int64
	LogLevel           slog.Level
	AllowedOrigins     []string
	SecureCookies      bool
	DatasetLog         DatasetLogConfig
}

// DatasetLogConfig controls NDJSON recording of training-mode exchanges.
type DatasetLogConfig struct {
	Enabled   bool
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	secret, secretSet := os.LookupEnv("SESSION_SECRET")
	if !secretSet || secret == "" {
		secret = DefaultSessionSecret
	}

	cfg := &Config{
		Port:               getEnv("PORT", "5000"),
		Host:               getEnv("HOST", "0.0.0.0"),
		CacheDir:           getEnv("CACHE_DIR", "cache"),
		SessionSecret:      secret,
		InsecureSecret:     secret == DefaultSessionSecret,
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", "file")),
		OpenBrowser:        getEnvBool("OPEN_BROWSER", true),
		BrowserDelay:       getEnvDuration("BROWSER_DELAY", 1500*time.Millisecond),
		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),
		LogLevel:           getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		AllowedOrigins:     getEnvList("ALLOWED_ORIGINS"),
		SecureCookies:      getEnvBool("SECURE_COOKIES", false),
		DatasetLog: DatasetLogConfig{
			Enabled:   getEnvBool("DATASET_LOG_ENABLED", true),
			QueueSize: getEnvInt("DATASET_QUEUE_SIZE", 1000),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.CacheDir == "" {
		return fmt.Errorf("CACHE_DIR cannot be empty")
	}
	switch c.StoreBackend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("STORE_BACKEND must be file or sqlite, got %q", c.StoreBackend)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0")
	}
	if c.DatasetLog.QueueSize <= 0 {
		return fmt.Errorf("DATASET_QUEUE_SIZE must be > 0")
	}
	if c.BrowserDelay < 0 {
		return fmt.Errorf("BROWSER_DELAY cannot be negative")
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// LocalURL returns the URL a local browser should open.
func (c *Config) LocalURL() string {
	return "http://127.0.0.1:" + c.Port
}

// IsDevelopment returns true when any origin may call the API.
func (c *Config) IsDevelopment() bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// GenerationEnabled reports whether a Gemini credential is configured.
func (c *Config) GenerationEnabled() bool {
	return c.GeminiAPIKey != ""
}

// ConversationsDir holds conversation snapshots.
func (c *Config) ConversationsDir() string {
	return filepath.Join(c.CacheDir, "conversations")
}

// ImagesDir holds generated images.
func (c *Config) ImagesDir() string {
	return filepath.Join(c.CacheDir, "images")
}

// DatasetsDir is reserved for training datasets.
func (c *Config) DatasetsDir() string {
	return filepath.Join(c.CacheDir, "datasets")
}

// EnsureDirs creates the cache folder layout.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.CacheDir, c.ConversationsDir(), c.ImagesDir(), c.DatasetsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return fallback
	}
	return level
}
