package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/chainring-dev/chainring/pkg/conflict"
)

// Config holds all resolver configuration.
type Config struct {
	// PluginRoot is the local plugin directory scanned for manifests.
	PluginRoot string

	// LockfilePath is where the resolved snapshot is persisted.
	LockfilePath string

	// Strategy is the default conflict resolution strategy.
	Strategy conflict.Strategy

	// LogLevel for the structured logger.
	LogLevel string

	// SemverCacheSize bounds the version/range parse caches.
	SemverCacheSize int

	// WatchEnabled turns on the manifest directory watcher.
	WatchEnabled bool

	// MetricsEnabled registers Prometheus metrics.
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		PluginRoot:      getEnv("CHAINRING_PLUGIN_ROOT", "plugins"),
		LockfilePath:    getEnv("CHAINRING_LOCKFILE", "chainring.lock"),
		Strategy:        conflict.Strategy(getEnv("CHAINRING_STRATEGY", string(conflict.StrategyHighest))),
		LogLevel:        getEnv("CHAINRING_LOG_LEVEL", "info"),
		SemverCacheSize: getEnvInt("CHAINRING_SEMVER_CACHE_SIZE", 1024),
		WatchEnabled:    getEnvBool("CHAINRING_WATCH", false),
		MetricsEnabled:  getEnvBool("CHAINRING_METRICS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.PluginRoot == "" {
		return fmt.Errorf("plugin root must not be empty")
	}
	if c.LockfilePath == "" {
		return fmt.Errorf("lockfile path must not be empty")
	}
	if _, err := conflict.ParseStrategy(string(c.Strategy)); err != nil {
		return err
	}
	if c.SemverCacheSize <= 0 {
		return fmt.Errorf("semver cache size must be positive, got %d", c.SemverCacheSize)
	}
	return nil
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as an int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvBool returns the environment variable as a bool or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
