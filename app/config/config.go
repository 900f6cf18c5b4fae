package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for session-hub.
type Config struct {
	// Server
	Port     string `yaml:"port"`
	Host     string `yaml:"host"`
	LogLevel string `yaml:"log_level"`

	// Identity provider (GoTrue-style token API)
	AuthBaseURL string `yaml:"auth_base_url"`
	AuthAPIKey  string `yaml:"auth_api_key"`

	// Database
	DatabaseURL string `yaml:"database_url"`

	// Cache. When RedisAddr is empty the in-memory cache is used.
	RedisAddr string        `yaml:"redis_addr"`
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`

	// Session lifecycle
	ProviderTimeout time.Duration `yaml:"provider_timeout"`
	SignOutTimeout  time.Duration `yaml:"sign_out_timeout"`
	ProfileRetryMax int           `yaml:"profile_retry_max"`

	// Features
	GuestCheckoutEnabled bool `yaml:"guest_checkout_enabled"`
	EnableMetrics        bool `yaml:"enable_metrics"`
}

// Load reads configuration from environment variables, with an optional YAML
// overlay named by CONFIG_FILE applied first.
func Load() (*Config, error) {
	config := &Config{
		Port:                 "9600",
		Host:                 "0.0.0.0",
		LogLevel:             "info",
		CacheSize:            1024,
		CacheTTL:             5 * time.Minute,
		ProviderTimeout:      10 * time.Second,
		SignOutTimeout:       4 * time.Second,
		ProfileRetryMax:      3,
		GuestCheckoutEnabled: true,
		EnableMetrics:        true,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := config.applyFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	config.Port = getEnvOrDefault("PORT", config.Port)
	config.Host = getEnvOrDefault("HOST", config.Host)
	config.LogLevel = getEnvOrDefault("LOG_LEVEL", config.LogLevel)

	config.AuthBaseURL = getEnvOrDefault("AUTH_BASE_URL", config.AuthBaseURL)
	if config.AuthBaseURL == "" {
		return nil, fmt.Errorf("AUTH_BASE_URL is required")
	}
	config.AuthAPIKey = getEnvOrDefault("AUTH_API_KEY", config.AuthAPIKey)
	if config.AuthAPIKey == "" {
		return nil, fmt.Errorf("AUTH_API_KEY is required")
	}

	config.DatabaseURL = getEnvOrDefault("DATABASE_URL", config.DatabaseURL)
	if config.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	config.RedisAddr = getEnvOrDefault("REDIS_ADDR", config.RedisAddr)

	var err error
	if config.CacheSize, err = getIntEnv("CACHE_SIZE", config.CacheSize); err != nil {
		return nil, err
	}
	if config.CacheTTL, err = getDurationEnv("CACHE_TTL", config.CacheTTL); err != nil {
		return nil, err
	}
	if config.ProviderTimeout, err = getDurationEnv("PROVIDER_TIMEOUT", config.ProviderTimeout); err != nil {
		return nil, err
	}
	if config.SignOutTimeout, err = getDurationEnv("SIGN_OUT_TIMEOUT", config.SignOutTimeout); err != nil {
		return nil, err
	}
	if config.ProfileRetryMax, err = getIntEnv("PROFILE_RETRY_MAX", config.ProfileRetryMax); err != nil {
		return nil, err
	}

	config.GuestCheckoutEnabled = getBoolEnv("GUEST_CHECKOUT_ENABLED", config.GuestCheckoutEnabled)
	config.EnableMetrics = getBoolEnv("ENABLE_METRICS", config.EnableMetrics)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return fmt.Errorf("invalid port: %s", c.Port)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535: %s", c.Port)
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if c.CacheSize < 16 {
		return fmt.Errorf("cache size must be at least 16, got: %d", c.CacheSize)
	}

	// A hung provider call must never freeze the UI longer than these allow.
	if c.ProviderTimeout < time.Second {
		return fmt.Errorf("provider timeout must be at least 1s, got: %v", c.ProviderTimeout)
	}
	if c.SignOutTimeout < time.Second {
		return fmt.Errorf("sign-out timeout must be at least 1s, got: %v", c.SignOutTimeout)
	}
	if c.ProfileRetryMax < 1 {
		return fmt.Errorf("profile retry max must be at least 1, got: %d", c.ProfileRetryMax)
	}

	return nil
}

// applyFile overlays values from a YAML file. Environment variables still
// win over file values.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
