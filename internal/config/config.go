package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"CryptoLens_MarketData/internal/marketdata"
	"CryptoLens_MarketData/internal/retry"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	CacheType            string          `yaml:"cache_type"`
	CacheKeyPrefix       string          `yaml:"cache_key_prefix"`
	RedisURL             string          `yaml:"redis_url"`
	CacheCleanupInterval time.Duration   `yaml:"cache_cleanup_interval"`
	TTL                  marketdata.TTLs `yaml:"ttl"`

	Retry                  retry.Policy  `yaml:"retry"`
	LimiterMinInterval     time.Duration `yaml:"limiter_min_interval"`
	LimiterDispatchTimeout time.Duration `yaml:"limiter_dispatch_timeout"`

	MarketAPIURL      string        `yaml:"market_api_url"`
	MarketAPIKey      string        `yaml:"market_api_key"`
	RecommenderAPIURL string        `yaml:"recommender_api_url"`
	FetchTimeout      time.Duration `yaml:"fetch_timeout"`
	EnrichConcurrency int           `yaml:"enrich_concurrency"`

	GlobalRateLimitPerSec int `yaml:"global_rate_limit_per_sec"`
	PerIPRateLimitPerSec  int `yaml:"per_ip_rate_limit_per_sec"`

	DatabaseURL string `yaml:"database_url"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`

	ServerReadTimeout     time.Duration `yaml:"server_read_timeout"`
	ServerWriteTimeout    time.Duration `yaml:"server_write_timeout"`
	ServerShutdownTimeout time.Duration `yaml:"server_shutdown_timeout"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Port:                   "8080",
		CacheType:              "memory",
		CacheKeyPrefix:         "marketdata:",
		RedisURL:               "redis://localhost:6379",
		CacheCleanupInterval:   5 * time.Minute,
		TTL:                    marketdata.DefaultTTLs(),
		Retry:                  retry.DefaultPolicy(),
		LimiterMinInterval:     1500 * time.Millisecond,
		LimiterDispatchTimeout: 60 * time.Second,
		MarketAPIURL:           "https://api.coingecko.com/api/v3",
		RecommenderAPIURL:      "http://localhost:8000",
		FetchTimeout:           10 * time.Second,
		EnrichConcurrency:      3,
		GlobalRateLimitPerSec:  100,
		PerIPRateLimitPerSec:   10,
		LogLevel:               "info",
		LogFormat:              "json",
		ServerReadTimeout:      15 * time.Second,
		ServerWriteTimeout:     60 * time.Second,
		ServerShutdownTimeout:  30 * time.Second,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE, then environment variables (a .env file is loaded first)
func Load() (*Config, error) {
	// Load .env file if it exists (optional)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it: %v", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile overlays the YAML document at path onto cfg
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)

	c.CacheType = getEnv("CACHE_TYPE", c.CacheType)
	c.CacheKeyPrefix = getEnv("CACHE_KEY_PREFIX", c.CacheKeyPrefix)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.CacheCleanupInterval = getDurationEnv("CACHE_CLEANUP_INTERVAL", c.CacheCleanupInterval)
	c.TTL.Listings = getDurationEnv("LISTINGS_TTL", c.TTL.Listings)
	c.TTL.History = getDurationEnv("HISTORY_TTL", c.TTL.History)
	c.TTL.Details = getDurationEnv("DETAILS_TTL", c.TTL.Details)
	c.TTL.Search = getDurationEnv("SEARCH_TTL", c.TTL.Search)
	c.TTL.Index = getDurationEnv("INDEX_TTL", c.TTL.Index)

	c.Retry.MaxRetries = getIntEnv("RETRY_MAX_RETRIES", c.Retry.MaxRetries)
	c.Retry.InitialDelay = getMillisEnv("RETRY_INITIAL_DELAY_MS", c.Retry.InitialDelay)
	c.Retry.MaxDelay = getMillisEnv("RETRY_MAX_DELAY_MS", c.Retry.MaxDelay)
	c.Retry.BackoffFactor = getFloatEnv("RETRY_BACKOFF_FACTOR", c.Retry.BackoffFactor)
	c.LimiterMinInterval = getMillisEnv("LIMITER_MIN_INTERVAL_MS", c.LimiterMinInterval)
	c.LimiterDispatchTimeout = getDurationEnv("LIMITER_DISPATCH_TIMEOUT", c.LimiterDispatchTimeout)

	c.MarketAPIURL = getEnv("MARKET_API_URL", c.MarketAPIURL)
	c.MarketAPIKey = getEnv("MARKET_API_KEY", c.MarketAPIKey)
	c.RecommenderAPIURL = getEnv("RECOMMENDER_API_URL", c.RecommenderAPIURL)
	c.FetchTimeout = getDurationEnv("FETCH_TIMEOUT", c.FetchTimeout)
	c.EnrichConcurrency = getIntEnv("ENRICH_CONCURRENCY", c.EnrichConcurrency)

	c.GlobalRateLimitPerSec = getIntEnv("GLOBAL_RATE_LIMIT_PER_SEC", c.GlobalRateLimitPerSec)
	c.PerIPRateLimitPerSec = getIntEnv("PER_IP_RATE_LIMIT_PER_SEC", c.PerIPRateLimitPerSec)

	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	c.ServerReadTimeout = getDurationEnv("SERVER_READ_TIMEOUT", c.ServerReadTimeout)
	c.ServerWriteTimeout = getDurationEnv("SERVER_WRITE_TIMEOUT", c.ServerWriteTimeout)
	c.ServerShutdownTimeout = getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", c.ServerShutdownTimeout)
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	var problems []string

	switch c.CacheType {
	case "memory", "redis":
	default:
		problems = append(problems, fmt.Sprintf("cache type must be memory or redis, got %q", c.CacheType))
	}
	if c.CacheType == "memory" && c.CacheCleanupInterval <= 0 {
		problems = append(problems, "cache cleanup interval must be positive")
	}
	for name, ttl := range map[string]time.Duration{
		"listings": c.TTL.Listings,
		"history":  c.TTL.History,
		"details":  c.TTL.Details,
		"search":   c.TTL.Search,
		"index":    c.TTL.Index,
	} {
		if ttl <= 0 {
			problems = append(problems, fmt.Sprintf("%s TTL must be positive", name))
		}
	}
	if err := c.Retry.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if c.LimiterMinInterval < 0 {
		problems = append(problems, "limiter min interval must not be negative")
	}
	if c.LimiterDispatchTimeout < 0 {
		problems = append(problems, "limiter dispatch timeout must not be negative")
	}
	// a dispatched job runs the whole retry loop, so the timeout must cover it
	if budget := c.Retry.Budget(c.FetchTimeout); c.LimiterDispatchTimeout > 0 && budget > c.LimiterDispatchTimeout {
		problems = append(problems, fmt.Sprintf("limiter dispatch timeout %s is shorter than the retry budget %s", c.LimiterDispatchTimeout, budget))
	}
	if c.MarketAPIURL == "" {
		problems = append(problems, "market API URL is required")
	}
	if c.EnrichConcurrency < 1 {
		problems = append(problems, "enrich concurrency must be at least 1")
	}
	if c.GlobalRateLimitPerSec < 1 || c.PerIPRateLimitPerSec < 1 {
		problems = append(problems, "inbound rate limits must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getDurationEnv reads whole seconds ("30") or a Go duration ("1m30s")
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return time.Duration(intVal) * time.Second
		}
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getMillisEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return time.Duration(intVal) * time.Millisecond
		}
	}
	return defaultValue
}
