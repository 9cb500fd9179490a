package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ascvd-risk-mcp-server/internal/domain"
	"github.com/ascvd-risk-mcp-server/internal/middleware"
	"github.com/ascvd-risk-mcp-server/internal/remotesync"
	"github.com/ascvd-risk-mcp-server/internal/service"
)

// Syncer is the remote sync component the API exposes
type Syncer interface {
	Enabled() bool
	SyncOnce(ctx context.Context) (remotesync.Report, error)
	Status(ctx context.Context) (remotesync.Status, error)
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	service       *service.AssessmentService
	syncer        Syncer
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
	upgrader      websocket.Upgrader
	startedAt     time.Time
}

// NewServer creates a new HTTP server instance. syncer may be nil when remote sync is not configured.
func NewServer(configManager domain.ConfigManager, svc *service.AssessmentService, syncer Syncer, logger *logrus.Logger) *Server {
	cfg := configManager.GetConfig()

	if gin.Mode() != gin.TestMode {
		if cfg.Logging.Level == "debug" {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS())
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewClientRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		router.Use(middleware.RateLimit(limiter))
	}

	server := &Server{
		configManager: configManager,
		service:       svc,
		syncer:        syncer,
		logger:        logger,
		router:        router,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		startedAt: time.Now(),
	}

	server.setupRoutes()

	return server
}

// Router returns the underlying gin engine
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")

		var err error
		if cfg.TLSEnabled {
			err = s.server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	timeout := s.configManager.GetServerConfig().RequestTimeout

	v1 := s.router.Group("/api/v1")
	// the websocket outlives any per-request deadline
	v1.GET("/ws", s.handleWebSocket)

	api := v1.Group("", middleware.RequestTimeout(timeout))
	{
		api.POST("/classify", s.handleClassify)
		api.POST("/recommend", s.handleRecommend)
		api.POST("/simulate", s.handleSimulate)
		api.POST("/evaluate", s.handleEvaluate)
		api.GET("/rules", s.handleRules)

		api.POST("/assessments", s.handleCreateAssessment)
		api.GET("/assessments", s.handleListAssessments)
		api.DELETE("/assessments", s.handleClearAssessments)
		api.GET("/assessments/export", s.handleExportAssessments)
		api.POST("/assessments/import", s.handleImportAssessments)
		api.GET("/assessments/:id", s.handleGetAssessment)
		api.POST("/assessments/:id/replay", s.handleReplayAssessment)

		api.GET("/sync/status", s.handleSyncStatus)
		api.POST("/sync", s.handleSync)

		api.POST("/handoff/encode", s.handleHandoffEncode)
		api.POST("/handoff/decode", s.handleHandoffDecode)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   s.configManager.GetConfig().MCP.ServerVersion,
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
		"sync":      s.syncer != nil && s.syncer.Enabled(),
	})
}
