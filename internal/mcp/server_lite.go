// Package mcp provides the MCP server implementation.
// This file contains the lightweight server that requires no external databases.
package mcp

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ascvd-risk-mcp-server/internal/cache"
	litecfg "github.com/ascvd-risk-mcp-server/internal/config"
	"github.com/ascvd-risk-mcp-server/internal/domain"
	"github.com/ascvd-risk-mcp-server/internal/history"
	"github.com/ascvd-risk-mcp-server/internal/identity"
	"github.com/ascvd-risk-mcp-server/internal/logging"
	"github.com/ascvd-risk-mcp-server/internal/service"
)

// Lite server metadata
const (
	LiteServerName    = "ascvd-risk-mcp-server-lite"
	LiteServerVersion = "v1.0.0"
)

// LiteServer is a lightweight MCP server that requires no external databases.
// It uses in-memory caching and SQLite for persistence.
type LiteServer struct {
	*Server

	config       *litecfg.LiteConfig
	historyStore history.Store
	cache        *cache.TieredCache
	redis        *cache.RedisCache
	logger       *logrus.Logger
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithHistoryStore sets a custom history store.
func WithHistoryStore(store history.Store) LiteServerOption {
	return func(s *LiteServer) error {
		s.historyStore = store
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(s *LiteServer) error {
		s.logger = logger
		return nil
	}
}

// NewLiteServer creates a new lightweight MCP server instance.
// It requires no external databases - uses in-memory cache and SQLite.
func NewLiteServer(cfg *litecfg.LiteConfig, opts ...LiteServerOption) (*LiteServer, error) {
	server := &LiteServer{
		config: cfg,
		logger: logging.NewLogger(cfg.LogLevel, cfg.LogFormat),
	}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if server.historyStore == nil {
		store, err := history.NewSQLiteStore(cfg.HistoryDBPath(), history.Options{
			Retention: cfg.HistoryLimit,
			Identity:  identity.NewFileProvider(cfg.DataDir),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create history store: %w", err)
		}
		server.historyStore = store
	}

	// Redis is an optional second tier; the server runs without it
	var redisTier cache.Cache
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(domain.CacheConfig{
			RedisURL:   cfg.RedisURL,
			DefaultTTL: cfg.CacheTTL,
		})
		if err != nil {
			server.logger.WithError(err).Warn("Redis unavailable, using memory cache only")
		} else {
			server.redis = redisCache
			redisTier = redisCache
		}
	}
	server.cache = cache.NewTieredCache(cache.NewMemoryCache(cfg.CacheMaxItems, cfg.CacheTTL), redisTier, server.logger)

	svc := service.NewAssessmentService(server.logger, server.historyStore, server.cache, cfg.CacheTTL)
	server.Server = NewServer(ServerInfo{Name: LiteServerName, Version: LiteServerVersion}, svc, server.logger)

	server.logger.WithFields(logrus.Fields{
		"data_dir":      cfg.DataDir,
		"history_limit": cfg.HistoryLimit,
		"redis":         server.redis != nil,
	}).Info("Lite server initialized successfully")
	return server, nil
}

// Start starts the lite MCP server.
func (s *LiteServer) Start(ctx context.Context) error {
	if s.config.Transport != "" && s.config.Transport != "stdio" {
		s.logger.WithField("transport", s.config.Transport).Warn("Unsupported transport, falling back to stdio")
	}
	return s.Server.Start(ctx)
}

// Close cleans up server resources.
func (s *LiteServer) Close() error {
	if s.historyStore != nil {
		if err := s.historyStore.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close history store")
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close Redis cache")
		}
	}
	return nil
}

// GetHistoryStore returns the history store for external access.
func (s *LiteServer) GetHistoryStore() history.Store {
	return s.historyStore
}

// GetCache returns the evaluation cache for external access.
func (s *LiteServer) GetCache() *cache.TieredCache {
	return s.cache
}
