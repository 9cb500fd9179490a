package domain

import (
	"encoding/json"
	"testing"
)

func TestRiskTierConstants(t *testing.T) {
	tests := []struct {
		name     string
		value    RiskTier
		expected string
	}{
		{"Low", LOW, "LOW"},
		{"Moderate", MODERATE, "MODERATE"},
		{"High", HIGH, "HIGH"},
		{"Very High", VERY_HIGH, "VERY_HIGH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.value) != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, string(tt.value))
			}
		})
	}
}

func TestRiskTierOrdering(t *testing.T) {
	tiers := AllTiers()
	if len(tiers) != 4 {
		t.Fatalf("Expected 4 tiers, got %d", len(tiers))
	}

	for i := 1; i < len(tiers); i++ {
		if tiers[i-1].Rank() >= tiers[i].Rank() {
			t.Errorf("Expected %s to rank below %s", tiers[i-1], tiers[i])
		}
	}

	if RiskTier("SEVERE").Rank() != -1 {
		t.Errorf("Expected unknown tier to rank -1")
	}
}

func TestRiskTierInfo(t *testing.T) {
	tests := []struct {
		tier  RiskTier
		label string
		color string
	}{
		{LOW, "Low risk", "#00b26a"},
		{MODERATE, "Moderate risk", "#ff9800"},
		{HIGH, "High risk", "#f44336"},
		{VERY_HIGH, "Very high risk", "#b71c1c"},
	}

	colors := make(map[string]RiskTier)
	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			info := tt.tier.Info()
			if info.Tier != tt.tier {
				t.Errorf("Expected tier %s, got %s", tt.tier, info.Tier)
			}
			if tt.tier.Label() != tt.label {
				t.Errorf("Expected label %s, got %s", tt.label, tt.tier.Label())
			}
			if tt.tier.Color() != tt.color {
				t.Errorf("Expected color %s, got %s", tt.color, tt.tier.Color())
			}
		})
		if other, dup := colors[tt.color]; dup {
			t.Errorf("Color %s shared by %s and %s", tt.color, other, tt.tier)
		}
		colors[tt.color] = tt.tier
	}
}

func TestRiskTierJSON(t *testing.T) {
	data, err := json.Marshal(ClassificationResult{Tier: VERY_HIGH, Reason: "x"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"tier":"VERY_HIGH","reason":"x"}` {
		t.Errorf("Unexpected JSON: %s", data)
	}

	var tier RiskTier
	if err := json.Unmarshal([]byte(`"MODERATE"`), &tier); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if tier != MODERATE {
		t.Errorf("Expected MODERATE, got %s", tier)
	}

	if err := json.Unmarshal([]byte(`"Moderate risk"`), &tier); err == nil {
		t.Errorf("Expected error when unmarshaling a label instead of a tier name")
	}
}

func TestGenderConstants(t *testing.T) {
	tests := []struct {
		name     string
		value    Gender
		expected string
		valid    bool
	}{
		{"Male", MALE, "male", true},
		{"Female", FEMALE, "female", true},
		{"Unknown", Gender("other"), "other", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value.String() != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, tt.value.String())
			}
			if tt.value.IsValid() != tt.valid {
				t.Errorf("Expected IsValid %v for %s", tt.valid, tt.value)
			}
		})
	}
}

func TestInterventionTypeConstants(t *testing.T) {
	tests := []struct {
		value    InterventionType
		expected string
	}{
		{INTERVENTION_SMOKING, "smoking"},
		{INTERVENTION_BLOOD_PRESSURE, "bloodPressure"},
		{INTERVENTION_LIPIDS, "lipids"},
	}

	for _, tt := range tests {
		if tt.value.String() != tt.expected {
			t.Errorf("Expected %s, got %s", tt.expected, tt.value.String())
		}
	}
}
