// Package config loads application configuration from environment variables.
// All variables use the HM_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	Store       StoreConfig
	Log         LogConfig
	CatalogPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis connection settings. The cache is optional; when
// enabled it fronts the progress store and carries notifications between
// server instances.
type CacheConfig struct {
	Enabled       bool
	URL           string
	ProgressTTL   time.Duration
	NotifyChannel string
}

// StoreConfig selects the progress store backend.
type StoreConfig struct {
	Backend string // "memory" or "postgres"
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with HM_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("HM_SERVER_PORT", 8080),
			Host: envStr("HM_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("HM_DATABASE_URL", "postgres://hm:hm@localhost:5432/hm?sslmode=disable"),
			MaxConns: envInt("HM_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("HM_DATABASE_MIN_CONNS", 5),
		},
		Cache: CacheConfig{
			Enabled:       envBool("HM_CACHE_ENABLED", false),
			URL:           envStr("HM_CACHE_URL", "redis://localhost:6379"),
			ProgressTTL:   envDuration("HM_CACHE_PROGRESS_TTL", 10*time.Minute),
			NotifyChannel: envStr("HM_CACHE_NOTIFY_CHANNEL", "hm:notifications"),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(envStr("HM_STORE_BACKEND", StoreMemory)),
		},
		Log: LogConfig{
			Level:  envStr("HM_LOG_LEVEL", "info"),
			Format: envStr("HM_LOG_FORMAT", "json"),
		},
		CatalogPath: envStr("HM_CATALOG_PATH", "./catalog"),
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.CatalogPath == "" {
		return fmt.Errorf("HM_CATALOG_PATH is required")
	}

	if c.Store.Backend != StoreMemory && c.Store.Backend != StorePostgres {
		return fmt.Errorf("HM_STORE_BACKEND must be 'memory' or 'postgres', got %q", c.Store.Backend)
	}

	if c.Store.Backend == StorePostgres && c.Database.URL == "" {
		return fmt.Errorf("HM_DATABASE_URL is required for the postgres store")
	}

	if c.Cache.Enabled && c.Cache.URL == "" {
		return fmt.Errorf("HM_CACHE_URL is required when the cache is enabled")
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("HM_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	return nil
}

// UsesPostgres returns true if the progress store is backed by PostgreSQL.
func (c *Config) UsesPostgres() bool {
	return c.Store.Backend == StorePostgres
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
