package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/rolechat/pkg/chatsdk"
	"github.com/aussiebroadwan/rolechat/pkg/httpx"
	"github.com/joho/godotenv"
)

// Store drivers selectable through ROLECHAT_STORE.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	APIBase         string        // Optional: backend base URL (default: http://127.0.0.1:8080/api)
	Store           string        // Optional: credential store driver (sqlite, redis, memory) (default: sqlite)
	DatabaseFile    string        // Optional: SQLite file for the sqlite store (default: ./rolechat.db)
	RedisAddr       string        // Optional: Redis address for the redis store (default: 127.0.0.1:6379)
	RedisPassword   string        // Optional: Redis password
	RedisDB         int           // Optional: Redis database number (default: 0)
	RedisPrefix     string        // Optional: key prefix in Redis (default: rolechat:)
	StorePassphrase string        // Optional: when set, stored values are sealed with it
	RefreshTimeout  time.Duration // Optional: bound on a token refresh (default: 15s)
	HTTPTimeout     time.Duration // Optional: bound on a single API request (default: 30s)
	LoginPath       string        // Optional: where an expired session sends the user (default: /login)
	Env             string        // Environment (dev, staging, prod) (default: dev)
	LogLevel        string        // Log level (debug, info, warn, error) (default: warn)
	LogFormat       string        // Log format (json, text) (default: text)
	RateLimit       httpx.RateLimitConfig
}

// LoadDotEnv loads variables from path without overriding ones already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func LoadConfig() Config {
	return Config{
		APIBase:         getEnvOrDefault("ROLECHAT_API_BASE", "http://127.0.0.1:8080/api"),
		Store:           strings.ToLower(getEnvOrDefault("ROLECHAT_STORE", StoreSQLite)),
		DatabaseFile:    getEnvOrDefault("ROLECHAT_DATABASE_FILE", "rolechat.db"),
		RedisAddr:       getEnvOrDefault("ROLECHAT_REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:   os.Getenv("ROLECHAT_REDIS_PASSWORD"),
		RedisDB:         getEnvIntOrDefault("ROLECHAT_REDIS_DB", 0),
		RedisPrefix:     getEnvOrDefault("ROLECHAT_REDIS_PREFIX", "rolechat:"),
		StorePassphrase: os.Getenv("ROLECHAT_STORE_PASSPHRASE"),
		RefreshTimeout:  getEnvDurationOrDefault("ROLECHAT_REFRESH_TIMEOUT", chatsdk.DefaultRefreshTimeout),
		HTTPTimeout:     getEnvDurationOrDefault("ROLECHAT_HTTP_TIMEOUT", 30*time.Second),
		LoginPath:       getEnvOrDefault("ROLECHAT_LOGIN_PATH", chatsdk.DefaultLoginPath),
		Env:             getEnvOrDefault("ENV", "dev"),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "warn"),
		LogFormat:       getEnvOrDefault("LOG_FORMAT", "text"),
		RateLimit:       httpx.ParseRateLimitFromEnv("CLIENT", httpx.ClientLimit),
	}
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	if !strings.HasPrefix(c.APIBase, "http://") && !strings.HasPrefix(c.APIBase, "https://") {
		return fmt.Errorf("ROLECHAT_API_BASE must be an http(s) URL, got %q", c.APIBase)
	}

	switch c.Store {
	case StoreSQLite, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("unknown ROLECHAT_STORE %q", c.Store)
	}

	if c.RefreshTimeout <= 0 {
		return errors.New("ROLECHAT_REFRESH_TIMEOUT must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("ROLECHAT_HTTP_TIMEOUT must be positive")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "15s", "1m")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
