// Package config provides configuration management for the ASCVD risk servers.
// This file contains the lightweight configuration for standalone operation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ascvd-risk-mcp-server/internal/history"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external databases and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir      string `yaml:"data_dir"`      // Base directory for data files
	HistoryLimit int    `yaml:"history_limit"` // Saved assessments kept, negative for unlimited

	// Cache settings
	CacheMaxItems int           `yaml:"cache_max_items"` // Maximum items in memory cache
	CacheTTL      time.Duration `yaml:"cache_ttl"`       // Default cache TTL
	RedisURL      string        `yaml:"redis_url"`       // Optional second cache tier

	// Transport settings
	Transport string `yaml:"transport"` // Transport type: stdio, http
	HTTPPort  int    `yaml:"http_port"` // HTTP port (if transport is http)

	// Logging
	LogLevel  string `yaml:"log_level"`  // Log level: debug, info, warn, error
	LogFormat string `yaml:"log_format"` // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".ascvd-risk")

	return &LiteConfig{
		DataDir:       dataDir,
		HistoryLimit:  history.DefaultRetention,
		CacheMaxItems: 1000,
		CacheTTL:      time.Hour,
		Transport:     "stdio",
		HTTPPort:      8080,
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// LoadLiteConfig loads defaults, then the YAML file named by ASCVD_CONFIG (if any),
// then environment variable overrides.
func LoadLiteConfig() (*LiteConfig, error) {
	cfg := DefaultLiteConfig()

	if path := os.Getenv("ASCVD_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	// Data directory
	if v := os.Getenv("ASCVD_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("ASCVD_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n != 0 {
			cfg.HistoryLimit = n
		}
	}

	// Cache settings
	if v := os.Getenv("ASCVD_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("ASCVD_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}
	if v := os.Getenv("ASCVD_REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}

	// Transport
	if v := os.Getenv("ASCVD_TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("ASCVD_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	// Logging
	if v := os.Getenv("ASCVD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ASCVD_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg, nil
}

// HistoryDBPath returns the path to the assessment history SQLite database.
func (c *LiteConfig) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}
