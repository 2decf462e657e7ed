package engine

import (
	"math"

	pdp_model "github.com/dev-mohitbeniwal/sentinel/pdp/model"
)

// Dimension weights of the composite trust score.
const (
	identityWeight = 0.30
	deviceWeight   = 0.25
	networkWeight  = 0.25
	behaviorWeight = 0.20
)

// ComputeTrustScore returns the weighted composite trust score in [0,100].
// A missing dimension contributes 0, the most untrusted value.
func ComputeTrustScore(tc pdp_model.TrustContext) int {
	return ScoreBreakdown(tc).Total
}

// ScoreBreakdown returns the per-dimension subscores along with the total.
func ScoreBreakdown(tc pdp_model.TrustContext) pdp_model.ScoreBreakdown {
	tc = tc.Normalize()

	var b pdp_model.ScoreBreakdown
	if tc.Identity != nil {
		b.Identity = tc.Identity.TrustScore
	}
	if tc.Device != nil {
		b.Device = 100 - tc.Device.RiskScore
	}
	if tc.Network != nil {
		b.Network = 100 - tc.Network.RiskScore
	}
	if tc.Behavior != nil {
		b.Behavior = 100 - tc.Behavior.AnomalyScore
	}

	total := float64(b.Identity)*identityWeight +
		float64(b.Device)*deviceWeight +
		float64(b.Network)*networkWeight +
		float64(b.Behavior)*behaviorWeight
	b.Total = pdp_model.ClampScore(int(math.Round(total)))
	return b
}
