// Package mcp exposes the risk classifier as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/ascvd-risk-mcp-server/internal/service"
)

// Server represents the ASCVD risk MCP server
type Server struct {
	mcpServer *mcp.Server
	service   *service.AssessmentService
	logger    *logrus.Logger
}

// ServerInfo contains MCP server metadata
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// NewServer creates a new MCP server instance with every tool, resource and prompt registered
func NewServer(info ServerInfo, svc *service.AssessmentService, logger *logrus.Logger) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    info.Name,
		Version: info.Version,
	}, nil)

	server := &Server{
		mcpServer: mcpServer,
		service:   svc,
		logger:    logger,
	}
	server.registerTools()
	server.registerResources()
	server.registerPrompts()

	return server
}

// registerTools registers the risk and history tools with the MCP SDK
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolClassifyRisk,
		Description: "Classify 10-year ASCVD risk into LOW, MODERATE, HIGH or VERY_HIGH and report the rule that decided it",
	}, s.handleClassifyRisk)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolRecommendTreatment,
		Description: "LDL-C treatment target and lifestyle advice for a risk tier",
	}, s.handleRecommendTreatment)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolSimulateInterventions,
		Description: "Project how quitting smoking, controlling blood pressure or lowering lipids would change the risk tier",
	}, s.handleSimulateInterventions)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolAssessRisk,
		Description: "Full evaluation (classification, recommendation, projections) saved to the assessment history",
	}, s.handleAssessRisk)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolGetHistory,
		Description: "Saved assessments, most recent first",
	}, s.handleGetHistory)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolClearHistory,
		Description: "Delete every saved assessment",
	}, s.handleClearHistory)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolListRules,
		Description: "The ordered classification rules; the first matching rule decides the tier",
	}, s.handleListRules)

	s.logger.WithField("tool_count", 7).Debug("Registered MCP tools")
}

// Run serves MCP over transport until ctx is cancelled or the client disconnects
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	if err := s.mcpServer.Run(ctx, transport); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Start serves MCP over stdio
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting ASCVD risk MCP server on stdio")
	return s.Run(ctx, &mcp.StdioTransport{})
}
