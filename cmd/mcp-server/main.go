package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ascvd-risk-mcp-server/internal/app"
	"github.com/ascvd-risk-mcp-server/internal/config"
	"github.com/ascvd-risk-mcp-server/internal/logging"
	"github.com/ascvd-risk-mcp-server/internal/mcp"
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
	// stdout carries the protocol; logs go to stderr
	logger := logging.NewLoggerTo(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := app.Bootstrap(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize assessment service")
	}
	defer components.Close()
	components.Start()

	mcpServer := mcp.NewServer(mcp.ServerInfo{
		Name:    cfg.MCP.ServerName,
		Version: cfg.MCP.ServerVersion,
	}, components.Service, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down MCP server...")
		cancel()
	}()

	if err := mcpServer.Start(ctx); err != nil {
		logger.WithError(err).Error("MCP server failed")
		components.Close()
		os.Exit(1)
	}

	logger.Info("ASCVD risk MCP server stopped")
}
