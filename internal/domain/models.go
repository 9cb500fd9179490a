package domain

import (
	"time"
)

// ClinicalInput is the set of clinical measurements a classification is computed from.
// It is passed by value; every hypothetical built from it is an independent copy.
type ClinicalInput struct {
	Age          int     `json:"age"`
	Gender       Gender  `json:"gender"`
	Smoking      bool    `json:"smoking"`
	Diabetes     bool    `json:"diabetes"`
	Hypertension bool    `json:"hypertension"` // clinician-confirmed, independent of SBP
	HasASCVD     bool    `json:"has_ascvd"`
	SBP          float64 `json:"sbp"` // systolic blood pressure, mmHg
	TC           float64 `json:"tc"`  // total cholesterol, mmol/L
	LDL          float64 `json:"ldl"` // LDL-C, mmol/L
	HDL          float64 `json:"hdl"` // HDL-C, mmol/L
}

// ClassificationResult is the tier assigned to a ClinicalInput and the rule that produced it
type ClassificationResult struct {
	Tier   RiskTier `json:"tier"`
	Reason string   `json:"reason"`
}

// Info returns the presentation metadata of the classified tier
func (r ClassificationResult) Info() TierInfo {
	return r.Tier.Info()
}

// RecommendationResult is the LDL-C treatment target and lifestyle advice for a tier
type RecommendationResult struct {
	Target string   `json:"target"`
	Advice []string `json:"advice"`
}

// InterventionProjection describes how the tier would change under one hypothetical improvement
type InterventionProjection struct {
	Type        InterventionType `json:"type"`
	Label       string           `json:"label"`
	Description string           `json:"description"`
	BeforeTier  RiskTier         `json:"before_tier"`
	AfterTier   RiskTier         `json:"after_tier"`
}

// Evaluation bundles everything the result screen renders for one input
type Evaluation struct {
	Input          ClinicalInput            `json:"input"`
	Classification ClassificationResult     `json:"classification"`
	TierInfo       TierInfo                 `json:"tier_info"`
	Recommendation RecommendationResult     `json:"recommendation"`
	Projections    []InterventionProjection `json:"projections"`
}

// AssessmentRecord is a persisted evaluation. ID, OwnerID, CreatedAt and Synced are
// assigned by the history store at save time.
type AssessmentRecord struct {
	ID        string               `json:"id"`
	OwnerID   string               `json:"owner_id"`
	Input     ClinicalInput        `json:"input"`
	Result    ClassificationResult `json:"result"`
	CreatedAt time.Time            `json:"created_at"`
	Synced    bool                 `json:"synced"`
}

// Assessment is the outcome of evaluating and saving an input
type Assessment struct {
	Evaluation
	RecordID string `json:"record_id,omitempty"`
	Saved    bool   `json:"saved"`
}
