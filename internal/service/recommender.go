package service

import (
	"github.com/ascvd-risk-mcp-server/internal/domain"
)

// ldlTargets maps each tier to its LDL-C treatment goal
var ldlTargets = map[domain.RiskTier]string{
	domain.VERY_HIGH: "LDL-C <1.4 mmol/L and ≥50% reduction from baseline",
	domain.HIGH:      "LDL-C <1.8 mmol/L and ≥50% reduction from baseline",
	domain.MODERATE:  "LDL-C <2.6 mmol/L",
	domain.LOW:       "LDL-C <3.4 mmol/L",
}

var baseAdvice = []string{
	"Eat a heart-healthy diet: low in salt and saturated fat, rich in vegetables, fruit and whole grains.",
	"Exercise regularly: at least 150 minutes of moderate-intensity aerobic activity per week.",
	"Stop smoking completely and limit alcohol intake.",
}

var intensiveAdvice = []string{
	"Medication: consult your physician about starting or intensifying lipid-lowering therapy (such as statins).",
	"Monitoring: recheck your lipid panel and liver function every 3-6 months.",
}

// Recommend returns the LDL-C target and advice for a classified tier.
// The target is looked up only when ldl is a valid, non-negative measurement;
// its magnitude does not otherwise affect the result.
func Recommend(info domain.TierInfo, ldl float64) domain.RecommendationResult {
	target := ""
	if ldl >= 0 { // false for NaN
		target = ldlTargets[domain.LOW]
		if t, ok := ldlTargets[info.Tier]; ok {
			target = t
		}
	}

	advice := make([]string, 0, len(baseAdvice)+len(intensiveAdvice))
	advice = append(advice, baseAdvice...)
	if info.Tier == domain.HIGH || info.Tier == domain.VERY_HIGH {
		advice = append(advice, intensiveAdvice...)
	}

	return domain.RecommendationResult{
		Target: target,
		Advice: advice,
	}
}
