package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ascvd-risk-mcp-server/internal/domain"
	"github.com/ascvd-risk-mcp-server/internal/history"
	"github.com/ascvd-risk-mcp-server/internal/service"
)

// Tool names
const (
	ToolClassifyRisk          = "classify_risk"
	ToolRecommendTreatment    = "recommend_treatment"
	ToolSimulateInterventions = "simulate_interventions"
	ToolAssessRisk            = "assess_risk"
	ToolGetHistory            = "get_history"
	ToolClearHistory          = "clear_history"
	ToolListRules             = "list_rules"
)

// RiskInputParams defines the clinical input shared by the risk tools
type RiskInputParams struct {
	Age          int     `json:"age" jsonschema:"age in years, 18 to 100"`
	Gender       string  `json:"gender,omitempty" jsonschema:"male or female, defaults to male"`
	Smoking      bool    `json:"smoking,omitempty" jsonschema:"current smoker"`
	Diabetes     bool    `json:"diabetes,omitempty" jsonschema:"diagnosed diabetes"`
	Hypertension bool    `json:"hypertension,omitempty" jsonschema:"diagnosed hypertension"`
	HasASCVD     bool    `json:"has_ascvd,omitempty" jsonschema:"established atherosclerotic cardiovascular disease"`
	SBP          float64 `json:"sbp" jsonschema:"systolic blood pressure in mmHg"`
	TC           float64 `json:"tc" jsonschema:"total cholesterol in mmol/L"`
	LDL          float64 `json:"ldl" jsonschema:"LDL cholesterol in mmol/L"`
	HDL          float64 `json:"hdl" jsonschema:"HDL cholesterol in mmol/L"`
}

// RecommendParams defines parameters for recommend_treatment
type RecommendParams struct {
	Tier string   `json:"tier" jsonschema:"LOW, MODERATE, HIGH or VERY_HIGH"`
	LDL  *float64 `json:"ldl,omitempty" jsonschema:"current LDL cholesterol in mmol/L; the target is omitted without it"`
}

// HistoryParams defines parameters for get_history
type HistoryParams struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of assessments, all when omitted"`
}

// ClearHistoryParams defines parameters for clear_history
type ClearHistoryParams struct {
	Confirm bool `json:"confirm" jsonschema:"must be true to delete every saved assessment"`
}

// ListRulesParams takes no arguments
type ListRulesParams struct{}

// ClassifyResult is returned by classify_risk
type ClassifyResult struct {
	Classification  domain.ClassificationResult `json:"classification"`
	TierInfo        domain.TierInfo             `json:"tier_info"`
	Rule            service.RuleDescriptor      `json:"rule"`
	RiskFactorCount int                         `json:"risk_factor_count"`
}

// SimulateResult is returned by simulate_interventions
type SimulateResult struct {
	BeforeTier  domain.RiskTier                 `json:"before_tier"`
	Projections []domain.InterventionProjection `json:"projections"`
}

// AssessResult is returned by assess_risk
type AssessResult struct {
	*domain.Assessment
	Warning string `json:"warning,omitempty"`
}

// HistoryResult is returned by get_history
type HistoryResult struct {
	Count       int               `json:"count"`
	Assessments []*history.Record `json:"assessments"`
}

func (p RiskInputParams) clinicalInput() (domain.ClinicalInput, error) {
	gender := domain.Gender(strings.ToLower(strings.TrimSpace(p.Gender)))
	if gender == "" {
		gender = domain.MALE
	}

	input := domain.ClinicalInput{
		Age:          p.Age,
		Gender:       gender,
		Smoking:      p.Smoking,
		Diabetes:     p.Diabetes,
		Hypertension: p.Hypertension,
		HasASCVD:     p.HasASCVD,
		SBP:          p.SBP,
		TC:           p.TC,
		LDL:          p.LDL,
		HDL:          p.HDL,
	}
	if err := domain.ValidateClinicalInput(input); err != nil {
		return domain.ClinicalInput{}, err
	}
	return input, nil
}

// handleClassifyRisk handles the classify_risk tool invocation
func (s *Server) handleClassifyRisk(ctx context.Context, req *mcp.CallToolRequest, params RiskInputParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolClassifyRisk).Info("Tool invoked")

	input, err := params.clinicalInput()
	if err != nil {
		return s.createErrorResult("Invalid clinical input", err), nil, nil
	}

	result := service.Classify(input)
	return s.createJSONResult(ClassifyResult{
		Classification:  result,
		TierInfo:        result.Info(),
		Rule:            service.MatchedRule(input),
		RiskFactorCount: service.RiskFactorCount(input),
	})
}

// handleRecommendTreatment handles the recommend_treatment tool invocation
func (s *Server) handleRecommendTreatment(ctx context.Context, req *mcp.CallToolRequest, params RecommendParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolRecommendTreatment).Info("Tool invoked")

	tier, err := domain.ParseRiskTier(strings.ToUpper(strings.TrimSpace(params.Tier)))
	if err != nil {
		return s.createErrorResult("Invalid tier", err), nil, nil
	}

	ldl := math.NaN()
	if params.LDL != nil {
		ldl = *params.LDL
	}
	return s.createJSONResult(service.Recommend(tier.Info(), ldl))
}

// handleSimulateInterventions handles the simulate_interventions tool invocation
func (s *Server) handleSimulateInterventions(ctx context.Context, req *mcp.CallToolRequest, params RiskInputParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolSimulateInterventions).Info("Tool invoked")

	input, err := params.clinicalInput()
	if err != nil {
		return s.createErrorResult("Invalid clinical input", err), nil, nil
	}

	return s.createJSONResult(SimulateResult{
		BeforeTier:  service.Classify(input).Tier,
		Projections: service.Simulate(input),
	})
}

// handleAssessRisk evaluates the input and saves it to the history
func (s *Server) handleAssessRisk(ctx context.Context, req *mcp.CallToolRequest, params RiskInputParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolAssessRisk).Info("Tool invoked")

	input, err := params.clinicalInput()
	if err != nil {
		return s.createErrorResult("Invalid clinical input", err), nil, nil
	}

	assessment, err := s.service.Assess(ctx, input)
	result := AssessResult{Assessment: assessment}
	if err != nil {
		if !errors.Is(err, domain.ErrPersistence) {
			return s.createErrorResult("Assessment failed", err), nil, nil
		}
		result.Warning = fmt.Sprintf("assessment was not saved: %v", err)
	}
	return s.createJSONResult(result)
}

// handleGetHistory handles the get_history tool invocation
func (s *Server) handleGetHistory(ctx context.Context, req *mcp.CallToolRequest, params HistoryParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolGetHistory).Info("Tool invoked")

	if params.Limit < 0 {
		return s.createErrorResult("Invalid parameters", fmt.Errorf("limit must not be negative")), nil, nil
	}

	records, err := s.service.History(ctx, params.Limit)
	if err != nil {
		return s.createErrorResult("Failed to load history", err), nil, nil
	}
	return s.createJSONResult(HistoryResult{Count: len(records), Assessments: records})
}

// handleClearHistory handles the clear_history tool invocation
func (s *Server) handleClearHistory(ctx context.Context, req *mcp.CallToolRequest, params ClearHistoryParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolClearHistory).Info("Tool invoked")

	if !params.Confirm {
		return s.createErrorResult("Confirmation required", fmt.Errorf("set confirm to true to delete every saved assessment")), nil, nil
	}

	if err := s.service.ClearHistory(ctx); err != nil {
		return s.createErrorResult("Failed to clear history", err), nil, nil
	}
	return s.createJSONResult(map[string]bool{"cleared": true})
}

// handleListRules handles the list_rules tool invocation
func (s *Server) handleListRules(ctx context.Context, req *mcp.CallToolRequest, params ListRulesParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolListRules).Debug("Tool invoked")
	return s.createJSONResult(map[string]interface{}{"rules": service.Rules()})
}

// createJSONResult wraps v in a single JSON text content block
func (s *Server) createJSONResult(v interface{}) (*mcp.CallToolResult, any, error) {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return s.createErrorResult("Failed to encode result", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(payload)},
		},
	}, nil, nil
}

// createErrorResult creates a tool result flagged as an error
func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	text := message
	if err != nil {
		text = fmt.Sprintf("%s: %v", message, err)
	}
	s.logger.WithError(err).Warn(message)

	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
