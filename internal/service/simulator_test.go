package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ascvd-risk-mcp-server/internal/domain"
)

func TestSimulate_NoApplicableProbes(t *testing.T) {
	projections := Simulate(scenarioC())

	require.NotNil(t, projections)
	assert.Empty(t, projections)
}

func TestSimulate_SmokingProjection(t *testing.T) {
	// hypertensive by SBP alone, three risk factors
	input := domain.ClinicalInput{
		Age: 50, Gender: domain.MALE, Smoking: true,
		SBP: 135, TC: 4.5, LDL: 2.0, HDL: 0.9,
	}
	original := input

	projections := Simulate(input)

	require.Len(t, projections, 1)
	p := projections[0]
	assert.Equal(t, domain.INTERVENTION_SMOKING, p.Type)
	assert.Equal(t, domain.HIGH, p.BeforeTier)
	assert.Equal(t, domain.MODERATE, p.AfterTier)
	assert.NotEmpty(t, p.Label)
	assert.NotEmpty(t, p.Description)

	assert.Equal(t, original, input, "input must not be modified")
	assert.True(t, input.Smoking)
}

func TestSimulate_ProbeOrder(t *testing.T) {
	// blood pressure and lipid probes both move the tier
	input := domain.ClinicalInput{
		Age: 60, Gender: domain.FEMALE, Hypertension: true,
		SBP: 150, TC: 5.5, LDL: 3.5, HDL: 1.2,
	}

	projections := Simulate(input)

	require.Len(t, projections, 2)
	assert.Equal(t, domain.INTERVENTION_BLOOD_PRESSURE, projections[0].Type)
	assert.Equal(t, domain.HIGH, projections[0].BeforeTier)
	assert.Equal(t, domain.LOW, projections[0].AfterTier)

	assert.Equal(t, domain.INTERVENTION_LIPIDS, projections[1].Type)
	assert.Equal(t, domain.HIGH, projections[1].BeforeTier)
	assert.Equal(t, domain.MODERATE, projections[1].AfterTier)

	assert.Equal(t, 150.0, input.SBP)
	assert.Equal(t, 3.5, input.LDL)
}

func TestSimulate_ApplicableButUnchanged(t *testing.T) {
	// lipid probe applies but the tier stays LOW
	input := domain.ClinicalInput{
		Age: 60, Gender: domain.FEMALE,
		SBP: 120, TC: 5.0, LDL: 3.0, HDL: 1.2,
	}

	assert.Empty(t, Simulate(input))
}

func TestSimulate_ASCVDNeverImproves(t *testing.T) {
	projections := Simulate(scenarioA())
	assert.Empty(t, projections, "confirmed disease history stays VERY_HIGH under every probe")
}

func TestSimulate_BeforeTierMatchesClassify(t *testing.T) {
	inputs := []domain.ClinicalInput{
		scenarioA(), scenarioB(), scenarioC(),
		{Age: 50, Gender: domain.MALE, Smoking: true, Hypertension: true, SBP: 135, TC: 4.5, LDL: 2.0, HDL: 0.9},
		{Age: 60, Gender: domain.FEMALE, Hypertension: true, SBP: 150, TC: 5.5, LDL: 3.5, HDL: 1.2},
	}

	for _, input := range inputs {
		baseline := Classify(input).Tier
		for _, p := range Simulate(input) {
			assert.Equal(t, baseline, p.BeforeTier)
			assert.NotEqual(t, p.BeforeTier, p.AfterTier)
		}
	}
}
