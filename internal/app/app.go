// Package app assembles the assessment service and its storage from the full configuration.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/ascvd-risk-mcp-server/internal/cache"
	"github.com/ascvd-risk-mcp-server/internal/database"
	"github.com/ascvd-risk-mcp-server/internal/domain"
	"github.com/ascvd-risk-mcp-server/internal/history"
	"github.com/ascvd-risk-mcp-server/internal/identity"
	"github.com/ascvd-risk-mcp-server/internal/remotesync"
	"github.com/ascvd-risk-mcp-server/internal/repository"
	"github.com/ascvd-risk-mcp-server/internal/service"
)

// Components holds everything a server binary needs
type Components struct {
	Service *service.AssessmentService
	Store   history.Store
	Cache   *cache.TieredCache
	Syncer  *remotesync.Syncer

	redis  *cache.RedisCache
	remote *database.DB
	logger *logrus.Logger
}

// Bootstrap opens the history store, builds the evaluation cache and, when
// remote sync is enabled, migrates the remote database and prepares the syncer.
func Bootstrap(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (*Components, error) {
	c := &Components{logger: logger}

	store, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	c.Store = store

	var redisTier cache.Cache
	if cfg.Cache.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Cache)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, using memory cache only")
		} else {
			c.redis = redisCache
			redisTier = redisCache
		}
	}
	c.Cache = cache.NewTieredCache(cache.NewMemoryCache(cfg.Cache.MaxItems, cfg.Cache.DefaultTTL), redisTier, logger)
	c.Service = service.NewAssessmentService(logger, c.Store, c.Cache, cfg.Cache.DefaultTTL)

	var remote remotesync.Remote
	if cfg.Remote.Enabled {
		if err := migrate(ctx, database.ConnectionString(cfg.Remote), logger); err != nil {
			c.Close()
			return nil, err
		}
		db, err := database.NewConnection(ctx, cfg.Remote, logger)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to connect to remote database: %w", err)
		}
		c.remote = db
		remote = repository.NewAssessmentRepository(db.Pool, logger)
	}

	c.Syncer = remotesync.NewSyncer(c.Store, remote, remotesync.Options{BatchSize: cfg.Sync.BatchSize}, logger)
	if remote != nil {
		if err := c.Syncer.Schedule(cfg.Sync.Schedule); err != nil {
			c.Close()
			return nil, err
		}
	}

	logger.WithFields(logrus.Fields{
		"driver":      cfg.Database.Driver,
		"redis":       c.redis != nil,
		"remote_sync": remote != nil,
	}).Info("Assessment service initialized")
	return c, nil
}

func openStore(ctx context.Context, cfg domain.DatabaseConfig, logger *logrus.Logger) (history.Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		store, err := history.NewSQLiteStore(cfg.Path, history.Options{
			Retention: cfg.HistoryLimit,
			Identity:  identity.NewFileProvider(filepath.Dir(cfg.Path)),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite history: %w", err)
		}
		return store, nil
	case "postgres":
		if err := migrate(ctx, cfg.URL, logger); err != nil {
			return nil, err
		}
		store, err := history.NewPostgresStoreFromURL(cfg.URL, &cfg, history.Options{
			Retention: cfg.HistoryLimit,
			Identity:  identity.NewFileProvider("."),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres history: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

func migrate(ctx context.Context, databaseURL string, logger *logrus.Logger) error {
	runner, err := database.NewMigrationRunnerFromURL(databaseURL, logger)
	if err != nil {
		return fmt.Errorf("failed to prepare migrations: %w", err)
	}
	defer runner.Close()

	if err := runner.Up(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Start begins scheduled remote sync, if any
func (c *Components) Start() {
	c.Syncer.Start()
}

// Close stops the sync scheduler and releases every connection
func (c *Components) Close() {
	if c.Syncer != nil {
		c.Syncer.Stop()
	}
	if c.remote != nil {
		c.remote.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.logger.WithError(err).Error("Failed to close Redis cache")
		}
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			c.logger.WithError(err).Error("Failed to close history store")
		}
	}
}
