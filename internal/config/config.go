package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port int
	Env  string

	// Repository storage
	CloneDir    string
	GitHubToken string

	// Analysis
	MaxFiles int
	MaxDepth int

	// Cache
	CacheType    string
	CacheTTL     time.Duration
	CacheMaxSize int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnvInt("PORT", 8080),
		Env:          getEnv("ENV", "development"),
		CloneDir:     getEnv("CLONE_DIR", os.TempDir()+"/repolens/repos"),
		GitHubToken:  getEnv("GITHUB_TOKEN", ""),
		MaxFiles:     getEnvInt("MAX_FILES", 50),
		MaxDepth:     getEnvInt("MAX_DEPTH", 10),
		CacheType:    getEnv("CACHE_TYPE", "memory"),
		CacheTTL:     time.Duration(getEnvInt("CACHE_TTL_HOURS", 24)) * time.Hour,
		CacheMaxSize: getEnvInt("CACHE_MAX_SIZE", 1000),
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.MaxFiles <= 0 {
		return fmt.Errorf("MAX_FILES must be positive, got %d", c.MaxFiles)
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("MAX_DEPTH must be positive, got %d", c.MaxDepth)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
