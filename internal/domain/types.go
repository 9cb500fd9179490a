// Package domain contains the core entities for ASCVD (atherosclerotic cardiovascular disease)
// risk stratification following the risk assessment flowchart of the Chinese Guideline for Lipid
// Management (2023).
//
// The classifier operates on discrete thresholds and boolean flags. It is not a calibrated risk
// score and never produces a probability.
package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// RiskTier represents the ASCVD risk category assigned to an individual.
// The symbolic name is the canonical identity of a tier; label and color are
// presentation metadata looked up from the tier.
type RiskTier string

const (
	LOW       RiskTier = "LOW"
	MODERATE  RiskTier = "MODERATE"
	HIGH      RiskTier = "HIGH"
	VERY_HIGH RiskTier = "VERY_HIGH"
)

// TierInfo is the presentation record of a tier: the object callers thread from a
// classification result into the recommendation generator.
type TierInfo struct {
	Tier  RiskTier `json:"tier"`
	Label string   `json:"label"`
	Color string   `json:"color"`
}

// tierTable is ordered from lowest to highest risk.
var tierTable = []TierInfo{
	{Tier: LOW, Label: "Low risk", Color: "#00b26a"},
	{Tier: MODERATE, Label: "Moderate risk", Color: "#ff9800"},
	{Tier: HIGH, Label: "High risk", Color: "#f44336"},
	{Tier: VERY_HIGH, Label: "Very high risk", Color: "#b71c1c"},
}

// AllTiers returns every tier in ascending order of risk.
func AllTiers() []RiskTier {
	tiers := make([]RiskTier, len(tierTable))
	for i, info := range tierTable {
		tiers[i] = info.Tier
	}
	return tiers
}

// String returns the symbolic name of the tier
func (t RiskTier) String() string {
	return string(t)
}

// Rank returns the position of the tier in the ordering LOW < MODERATE < HIGH < VERY_HIGH,
// or -1 for an unknown tier.
func (t RiskTier) Rank() int {
	for i, info := range tierTable {
		if info.Tier == t {
			return i
		}
	}
	return -1
}

// IsValid reports whether t is one of the four known tiers.
func (t RiskTier) IsValid() bool {
	return t.Rank() >= 0
}

// Info returns the presentation metadata for the tier. Unknown tiers yield a
// TierInfo carrying only the symbolic name.
func (t RiskTier) Info() TierInfo {
	if rank := t.Rank(); rank >= 0 {
		return tierTable[rank]
	}
	return TierInfo{Tier: t}
}

// Label returns the display label of the tier
func (t RiskTier) Label() string {
	return t.Info().Label
}

// Color returns the display color token of the tier
func (t RiskTier) Color() string {
	return t.Info().Color
}

// ParseRiskTier parses a symbolic tier name.
func ParseRiskTier(s string) (RiskTier, error) {
	tier := RiskTier(s)
	if !tier.IsValid() {
		return "", fmt.Errorf("unknown risk tier: %q", s)
	}
	return tier, nil
}

// UnmarshalJSON rejects unknown tier names.
func (t *RiskTier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	tier, err := ParseRiskTier(s)
	if err != nil {
		return err
	}
	*t = tier
	return nil
}

// Gender represents the biological sex used by the age risk factor
type Gender string

const (
	MALE   Gender = "male"
	FEMALE Gender = "female"
)

// String returns the string representation of Gender
func (g Gender) String() string {
	return string(g)
}

// IsValid reports whether g is male or female
func (g Gender) IsValid() bool {
	return g == MALE || g == FEMALE
}

// InterventionType identifies a modifiable risk factor the simulator can improve
type InterventionType string

const (
	INTERVENTION_SMOKING        InterventionType = "smoking"
	INTERVENTION_BLOOD_PRESSURE InterventionType = "bloodPressure"
	INTERVENTION_LIPIDS         InterventionType = "lipids"
)

// String returns the string representation of InterventionType
func (i InterventionType) String() string {
	return string(i)
}

// Common errors
var (
	ErrNotFound        = errors.New("not found")
	ErrPersistence     = errors.New("persistence failed")
	ErrSyncUnavailable = errors.New("remote sync unavailable")
)
