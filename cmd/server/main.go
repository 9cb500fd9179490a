package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ascvd-risk-mcp-server/internal/api"
	"github.com/ascvd-risk-mcp-server/internal/app"
	"github.com/ascvd-risk-mcp-server/internal/config"
	"github.com/ascvd-risk-mcp-server/internal/logging"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := app.Bootstrap(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize assessment service")
	}
	defer components.Close()
	components.Start()

	server := api.NewServer(configManager, components.Service, components.Syncer, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"environment": cfg.Environment,
	}).Info("Starting ASCVD risk HTTP server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		components.Close()
		os.Exit(1)
	}

	logger.Info("Server stopped")
}
