package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ascvd-risk-mcp-server/internal/domain"
)

func TestRecommend_Targets(t *testing.T) {
	tests := []struct {
		tier       domain.RiskTier
		wantTarget string
		wantAdvice int
	}{
		{domain.VERY_HIGH, "LDL-C <1.4 mmol/L and ≥50% reduction from baseline", 5},
		{domain.HIGH, "LDL-C <1.8 mmol/L and ≥50% reduction from baseline", 5},
		{domain.MODERATE, "LDL-C <2.6 mmol/L", 3},
		{domain.LOW, "LDL-C <3.4 mmol/L", 3},
	}

	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			result := Recommend(tt.tier.Info(), 3.0)
			assert.Equal(t, tt.wantTarget, result.Target)
			assert.Len(t, result.Advice, tt.wantAdvice)
		})
	}
}

func TestRecommend_HighTargetContent(t *testing.T) {
	for _, ldl := range []float64{0, 1.2, 3.0, 9.9} {
		result := Recommend(domain.HIGH.Info(), ldl)
		assert.Contains(t, result.Target, "1.8 mmol/L")
		assert.Contains(t, result.Target, "≥50% reduction")
	}
}

func TestRecommend_Idempotent(t *testing.T) {
	info := domain.VERY_HIGH.Info()
	first := Recommend(info, 2.2)
	second := Recommend(info, 2.2)
	assert.Equal(t, first, second)

	// results do not share backing arrays
	first.Advice[0] = "changed"
	assert.NotEqual(t, "changed", Recommend(info, 2.2).Advice[0])
}

func TestRecommend_AdviceOrder(t *testing.T) {
	result := Recommend(domain.HIGH.Info(), 2.0)

	assert.Contains(t, result.Advice[0], "diet")
	assert.Contains(t, result.Advice[1], "aerobic")
	assert.Contains(t, result.Advice[2], "smoking")
	assert.Contains(t, result.Advice[3], "lipid-lowering therapy")
	assert.Contains(t, result.Advice[4], "liver function")
}

func TestRecommend_InvalidLDL(t *testing.T) {
	tests := []struct {
		name string
		ldl  float64
	}{
		{"NaN", math.NaN()},
		{"negative", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Recommend(domain.HIGH.Info(), tt.ldl)
			assert.Empty(t, result.Target)
			assert.Len(t, result.Advice, 5, "advice does not depend on LDL")
		})
	}
}

func TestRecommend_KeyedByTierNotLabel(t *testing.T) {
	info := domain.TierInfo{Tier: domain.HIGH, Label: "Low risk", Color: "#00b26a"}
	result := Recommend(info, 2.0)

	assert.Contains(t, result.Target, "1.8 mmol/L")
	assert.Len(t, result.Advice, 5)
}
