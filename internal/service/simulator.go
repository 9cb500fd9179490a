package service

import (
	"github.com/ascvd-risk-mcp-server/internal/domain"
)

// Probe values. A probe only applies to inputs that fail its applicability check.
const (
	uncontrolledSBP = 140 // mmHg
	targetSBP       = 120 // mmHg
	lipidProbeLDL   = 2.6 // mmol/L
	loweredLDL      = 2.5 // mmol/L
	loweredTC       = 4.5 // mmol/L
)

// interventionProbe describes one hypothetical lifestyle or treatment change
type interventionProbe struct {
	Type        domain.InterventionType
	Label       string
	Description string
	Applies     func(in domain.ClinicalInput) bool
	Apply       func(in domain.ClinicalInput) domain.ClinicalInput
}

var interventionProbes = []interventionProbe{
	{
		Type:        domain.INTERVENTION_SMOKING,
		Label:       "Quit smoking",
		Description: "Stop smoking completely",
		Applies:     func(in domain.ClinicalInput) bool { return in.Smoking },
		Apply: func(in domain.ClinicalInput) domain.ClinicalInput {
			in.Smoking = false
			return in
		},
	},
	{
		Type:        domain.INTERVENTION_BLOOD_PRESSURE,
		Label:       "Control blood pressure",
		Description: "Bring blood pressure into the normal range (<130/80 mmHg)",
		Applies: func(in domain.ClinicalInput) bool {
			return in.Hypertension || in.SBP >= uncontrolledSBP
		},
		Apply: func(in domain.ClinicalInput) domain.ClinicalInput {
			in.SBP = targetSBP
			in.Hypertension = false
			return in
		},
	},
	{
		Type:        domain.INTERVENTION_LIPIDS,
		Label:       "Lower blood lipids",
		Description: "Bring LDL-C below 2.6 mmol/L",
		Applies:     func(in domain.ClinicalInput) bool { return in.LDL > lipidProbeLDL },
		Apply: func(in domain.ClinicalInput) domain.ClinicalInput {
			in.LDL = loweredLDL
			in.TC = loweredTC
			return in
		},
	},
}

// Simulate projects how the tier would change under each applicable intervention.
// Only probes that move the tier are reported, in the order smoking, blood pressure,
// lipids. Each probe works on its own copy of input; the caller's value is never modified.
func Simulate(input domain.ClinicalInput) []domain.InterventionProjection {
	baseline := Classify(input).Tier
	projections := make([]domain.InterventionProjection, 0, len(interventionProbes))

	for _, probe := range interventionProbes {
		if !probe.Applies(input) {
			continue
		}
		after := Classify(probe.Apply(input)).Tier
		if after == baseline {
			continue
		}
		projections = append(projections, domain.InterventionProjection{
			Type:        probe.Type,
			Label:       probe.Label,
			Description: probe.Description,
			BeforeTier:  baseline,
			AfterTier:   after,
		})
	}

	return projections
}
