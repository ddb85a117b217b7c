package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the portal.
type Config struct {
	App     AppConfig
	Backend BackendConfig
	Refresh RefreshConfig
	Cache   CacheConfig
	Redis   RedisConfig
	Logger  LoggerConfig
}

// AppConfig controls the local HTTP surface.
type AppConfig struct {
	Name    string
	Env     string
	Host    string
	Port    string
	Version string
}

// BackendConfig points at the authoritative REST backend.
type BackendConfig struct {
	BaseURL            string
	BearerToken        string
	RequestTimeoutSec  int
	ListSoftTimeoutMil int
}

// RefreshConfig tunes the background auto-refresh trigger.
type RefreshConfig struct {
	IntervalSeconds int
	Enabled         bool
}

// CacheConfig tunes page caching.
type CacheConfig struct {
	PageTTLSeconds int
}

// RedisConfig holds the optional Redis cache connection values.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	baseURL := strings.TrimRight(getEnv("BACKEND_BASE_URL", "http://localhost:8080"), "/")

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "support-portal"),
			Env:     getEnv("APP_ENV", "development"),
			Host:    getEnv("APP_HOST", "0.0.0.0"),
			Port:    getEnv("APP_PORT", "4200"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		Backend: BackendConfig{
			BaseURL:            baseURL,
			BearerToken:        os.Getenv("BACKEND_BEARER_TOKEN"),
			RequestTimeoutSec:  getEnvAsInt("BACKEND_REQUEST_TIMEOUT_SECONDS", 30),
			ListSoftTimeoutMil: getEnvAsInt("BACKEND_LIST_SOFT_TIMEOUT_MILLIS", 5000),
		},
		Refresh: RefreshConfig{
			IntervalSeconds: getEnvAsInt("REFRESH_INTERVAL_SECONDS", 30),
			Enabled:         getEnvAsBool("REFRESH_ENABLED", true),
		},
		Cache: CacheConfig{
			PageTTLSeconds: getEnvAsInt("CACHE_PAGE_TTL_SECONDS", 20),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

// Addr returns the local HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the per-call backend timeout.
func (b BackendConfig) RequestTimeout() time.Duration {
	if b.RequestTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(b.RequestTimeoutSec) * time.Second
}

// ListSoftTimeout returns how long a list fetch may run before the view falls
// back to an empty page.
func (b BackendConfig) ListSoftTimeout() time.Duration {
	if b.ListSoftTimeoutMil <= 0 {
		return 5 * time.Second
	}
	return time.Duration(b.ListSoftTimeoutMil) * time.Millisecond
}

// Interval returns the refresh tick period.
func (r RefreshConfig) Interval() time.Duration {
	if r.IntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(r.IntervalSeconds) * time.Second
}

// PageTTL returns how long a fetched ticket page stays fresh.
func (c CacheConfig) PageTTL() time.Duration {
	if c.PageTTLSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.PageTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
