package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ascvd-risk-mcp-server/internal/domain"
	"github.com/ascvd-risk-mcp-server/internal/service"
)

// Resource URIs
const (
	ResourceRules   = "ascvd://rules"
	ResourceTiers   = "ascvd://tiers"
	ResourceHistory = "ascvd://history/recent"
)

const recentHistoryLimit = 10

// registerResources exposes the rule catalogue, the tier table and recent history as read-only resources
func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         ResourceRules,
		Name:        "classification-rules",
		Description: "Ordered risk classification rules",
		MIMEType:    "application/json",
	}, s.readRules)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         ResourceTiers,
		Name:        "risk-tiers",
		Description: "Risk tiers with display label, color and LDL-C target",
		MIMEType:    "application/json",
	}, s.readTiers)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         ResourceHistory,
		Name:        "recent-assessments",
		Description: "The most recent saved assessments",
		MIMEType:    "application/json",
	}, s.readRecentHistory)
}

// tierResource is one row of the tiers resource
type tierResource struct {
	domain.TierInfo
	Target string `json:"ldl_target"`
}

func (s *Server) readRules(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return jsonResource(ResourceRules, map[string]interface{}{"rules": service.Rules()})
}

func (s *Server) readTiers(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	tiers := make([]tierResource, 0, len(domain.AllTiers()))
	for _, tier := range domain.AllTiers() {
		info := tier.Info()
		tiers = append(tiers, tierResource{TierInfo: info, Target: service.Recommend(info, 0).Target})
	}
	return jsonResource(ResourceTiers, map[string]interface{}{"tiers": tiers})
}

func (s *Server) readRecentHistory(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	records, err := s.service.History(ctx, recentHistoryLimit)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to read history resource")
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return jsonResource(ResourceHistory, HistoryResult{Count: len(records), Assessments: records})
}

func jsonResource(uri string, v interface{}) (*mcp.ReadResourceResult, error) {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode resource %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: "application/json", Text: string(payload)},
		},
	}, nil
}
