package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the relay server.
type Config struct {
	Port        string
	Env         string
	StoreKind   string // "postgres", "sqlite" or "memory"
	DatabaseURL string
	SQLitePath  string
	RedisURL    string

	// Rate limiting
	RateLimitWhitelist []string // IPs or CIDRs exempt from rate limiting
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		StoreKind:   os.Getenv("STORE"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  os.Getenv("SQLITE_PATH"),
		RedisURL:    os.Getenv("REDIS_URL"),
	}

	// Store selection: explicit STORE wins, otherwise postgres when
	// DATABASE_URL is set, sqlite as the default.
	if cfg.StoreKind == "" {
		if cfg.DatabaseURL != "" {
			cfg.StoreKind = "postgres"
		} else {
			cfg.StoreKind = "sqlite"
		}
	}

	// Parse whitelist (comma-separated IPs or CIDRs)
	if whitelist := os.Getenv("RATE_LIMIT_WHITELIST"); whitelist != "" {
		for _, entry := range strings.Split(whitelist, ",") {
			entry = strings.TrimSpace(entry)
			if entry != "" {
				cfg.RateLimitWhitelist = append(cfg.RateLimitWhitelist, entry)
			}
		}
	}

	// In production, require a durable store
	if cfg.Env == "production" {
		if cfg.StoreKind == "memory" {
			panic("STORE=memory is not allowed in production")
		}
		if cfg.StoreKind == "postgres" && cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
