package service

import (
	"github.com/ascvd-risk-mcp-server/internal/domain"
)

// Guideline thresholds. These encode the stratification flowchart and are not tunable.
const (
	severeLDL       = 4.9 // mmol/L
	severeTC        = 7.2 // mmol/L
	diabetesAge     = 40
	maleRiskAge     = 45
	femaleRiskAge   = 55
	lowHDL          = 1.0 // mmol/L
	hypertensiveSBP = 130 // mmHg
	elevatedLDL     = 3.4 // mmol/L
	elevatedTC      = 5.2 // mmol/L
	manyRiskFactors = 3
	anyRiskFactor   = 1
)

// riskContext is what each rule guard sees: the input and its derived risk-factor count.
type riskContext struct {
	input       domain.ClinicalInput
	riskFactors int
}

func (c riskContext) hypertensive() bool {
	return c.input.Hypertension || c.input.SBP >= hypertensiveSBP
}

// riskRule is one (guard, outcome) step of the stratification flowchart
type riskRule struct {
	ID     string
	Tier   domain.RiskTier
	Reason string
	Guard  func(c riskContext) bool
}

// RuleDescriptor describes a classification rule without its guard
type RuleDescriptor struct {
	Order  int             `json:"order" yaml:"order"`
	ID     string          `json:"id" yaml:"id"`
	Tier   domain.RiskTier `json:"tier" yaml:"tier"`
	Reason string          `json:"reason" yaml:"reason"`
}

// riskRules is evaluated top to bottom; the first rule whose guard matches decides the tier.
// The hypertension branch is flattened: every rule in it repeats the branch guard, so the
// non-hypertension rules below it are reached only when that guard is false.
var riskRules = []riskRule{
	{
		ID:     "ascvd_history",
		Tier:   domain.VERY_HIGH,
		Reason: "Confirmed disease history: established atherosclerotic cardiovascular disease (ASCVD)",
		Guard:  func(c riskContext) bool { return c.input.HasASCVD },
	},
	{
		ID:     "severe_hypercholesterolemia",
		Tier:   domain.HIGH,
		Reason: "Severe hypercholesterolemia (LDL-C ≥ 4.9 mmol/L or TC ≥ 7.2 mmol/L)",
		Guard:  func(c riskContext) bool { return c.input.LDL >= severeLDL || c.input.TC >= severeTC },
	},
	{
		ID:     "diabetes_age",
		Tier:   domain.HIGH,
		Reason: "Diabetes with age ≥ 40",
		Guard:  func(c riskContext) bool { return c.input.Diabetes && c.input.Age >= diabetesAge },
	},
	{
		ID:     "hypertension_elevated_cholesterol",
		Tier:   domain.HIGH,
		Reason: "Hypertension with elevated cholesterol (LDL-C ≥ 3.4 mmol/L or TC ≥ 5.2 mmol/L)",
		Guard: func(c riskContext) bool {
			return c.hypertensive() && (c.input.LDL >= elevatedLDL || c.input.TC >= elevatedTC)
		},
	},
	{
		ID:     "hypertension_many_risk_factors",
		Tier:   domain.HIGH,
		Reason: "Hypertension with ≥3 risk factors",
		Guard:  func(c riskContext) bool { return c.hypertensive() && c.riskFactors >= manyRiskFactors },
	},
	{
		ID:     "hypertension_some_risk_factors",
		Tier:   domain.MODERATE,
		Reason: "Hypertension with 1–2 risk factors",
		Guard:  func(c riskContext) bool { return c.hypertensive() && c.riskFactors >= anyRiskFactor },
	},
	{
		ID:     "isolated_hypertension",
		Tier:   domain.LOW,
		Reason: "Isolated hypertension, few risk factors",
		Guard:  func(c riskContext) bool { return c.hypertensive() },
	},
	{
		ID:     "no_hypertension_many_risk_factors",
		Tier:   domain.MODERATE,
		Reason: "No hypertension but ≥3 risk factors",
		Guard:  func(c riskContext) bool { return c.riskFactors >= manyRiskFactors },
	},
	{
		ID:     "below_threshold",
		Tier:   domain.LOW,
		Reason: "Below moderate/high threshold",
		Guard:  func(riskContext) bool { return true },
	},
}

// Classify assigns a risk tier to the input. It is a pure, total function: the
// final rule always matches, and out-of-range values are evaluated as given.
func Classify(input domain.ClinicalInput) domain.ClassificationResult {
	rule := matchRule(input)
	return domain.ClassificationResult{
		Tier:   rule.Tier,
		Reason: rule.Reason,
	}
}

// MatchedRule returns the descriptor of the rule that decides the input's tier.
func MatchedRule(input domain.ClinicalInput) RuleDescriptor {
	rule := matchRule(input)
	for i := range riskRules {
		if riskRules[i].ID == rule.ID {
			return describe(i)
		}
	}
	return RuleDescriptor{}
}

// Rules returns the classification rules in evaluation order
func Rules() []RuleDescriptor {
	descriptors := make([]RuleDescriptor, len(riskRules))
	for i := range riskRules {
		descriptors[i] = describe(i)
	}
	return descriptors
}

// RiskFactorCount counts the additional risk factors (0-3): age threshold
// (male ≥ 45, female ≥ 55), current smoking, and HDL-C below 1.0 mmol/L.
func RiskFactorCount(input domain.ClinicalInput) int {
	count := 0
	if (input.Gender == domain.MALE && input.Age >= maleRiskAge) ||
		(input.Gender == domain.FEMALE && input.Age >= femaleRiskAge) {
		count++
	}
	if input.Smoking {
		count++
	}
	if input.HDL < lowHDL {
		count++
	}
	return count
}

func matchRule(input domain.ClinicalInput) riskRule {
	c := riskContext{input: input, riskFactors: RiskFactorCount(input)}
	for _, rule := range riskRules {
		if rule.Guard(c) {
			return rule
		}
	}
	// unreachable: the last rule always matches
	return riskRules[len(riskRules)-1]
}

func describe(i int) RuleDescriptor {
	return RuleDescriptor{
		Order:  i + 1,
		ID:     riskRules[i].ID,
		Tier:   riskRules[i].Tier,
		Reason: riskRules[i].Reason,
	}
}
