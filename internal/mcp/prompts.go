package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ascvd-risk-mcp-server/internal/domain"
)

// Prompt names
const (
	PromptExplainAssessment = "explain_assessment"
)

// Prompt audiences
const (
	audiencePatient   = "patient"
	audienceClinician = "clinician"
)

// registerPrompts registers prompts that turn a saved assessment into guided explanations
func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        PromptExplainAssessment,
		Description: "Explain a saved assessment: the deciding rule, the LDL-C target and which interventions would lower the tier",
		Arguments: []*mcp.PromptArgument{
			{Name: "record_id", Description: "ID of a saved assessment", Required: true},
			{Name: "audience", Description: "patient (default) or clinician"},
		},
	}, s.handleExplainAssessment)
}

func (s *Server) handleExplainAssessment(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	var args map[string]string
	if req != nil && req.Params != nil {
		args = req.Params.Arguments
	}

	recordID := strings.TrimSpace(args["record_id"])
	if recordID == "" {
		return nil, fmt.Errorf("record_id is required")
	}
	audience := strings.ToLower(strings.TrimSpace(args["audience"]))
	if audience == "" {
		audience = audiencePatient
	}
	if audience != audiencePatient && audience != audienceClinician {
		return nil, fmt.Errorf("unknown audience %q", audience)
	}

	assessment, err := s.service.Replay(ctx, recordID)
	if err != nil {
		s.logger.WithError(err).WithField("record_id", recordID).Warn("Failed to load assessment for prompt")
		return nil, fmt.Errorf("failed to load assessment %s: %w", recordID, err)
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Explanation of assessment %s for a %s", recordID, audience),
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: renderExplanation(&assessment.Evaluation, audience)}},
		},
	}, nil
}

func renderExplanation(eval *domain.Evaluation, audience string) string {
	var b strings.Builder

	if audience == audienceClinician {
		b.WriteString("Summarize this ASCVD risk assessment for a clinician. Cite the deciding rule and the LDL-C goal, and flag modifiable risk factors.\n\n")
	} else {
		b.WriteString("Explain this heart disease risk assessment to a patient in plain language. Avoid jargon and end with the first concrete step they can take.\n\n")
	}

	in := eval.Input
	fmt.Fprintf(&b, "Patient: %d years, %s\n", in.Age, in.Gender)
	fmt.Fprintf(&b, "Smoking: %t, diabetes: %t, hypertension: %t, established ASCVD: %t\n", in.Smoking, in.Diabetes, in.Hypertension, in.HasASCVD)
	fmt.Fprintf(&b, "SBP %.0f mmHg, TC %.2f mmol/L, LDL-C %.2f mmol/L, HDL-C %.2f mmol/L\n\n", in.SBP, in.TC, in.LDL, in.HDL)

	fmt.Fprintf(&b, "Risk tier: %s (%s)\n", eval.TierInfo.Label, eval.Classification.Tier)
	fmt.Fprintf(&b, "Deciding rule: %s\n", eval.Classification.Reason)
	if eval.Recommendation.Target != "" {
		fmt.Fprintf(&b, "LDL-C target: %s\n", eval.Recommendation.Target)
	}

	b.WriteString("\nAdvice:\n")
	for _, advice := range eval.Recommendation.Advice {
		fmt.Fprintf(&b, "- %s\n", advice)
	}

	if len(eval.Projections) > 0 {
		b.WriteString("\nWhat-if projections:\n")
		for _, p := range eval.Projections {
			fmt.Fprintf(&b, "- %s: %s -> %s\n", p.Label, p.BeforeTier, p.AfterTier)
		}
	}
	return b.String()
}
