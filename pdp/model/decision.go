package model

import "time"

type Decision string

const (
	DecisionAllow     Decision = "ALLOW"
	DecisionDeny      Decision = "DENY"
	DecisionChallenge Decision = "CHALLENGE"
	DecisionMonitor   Decision = "MONITOR"
)

type MonitoringLevel string

const (
	MonitoringNone     MonitoringLevel = "NONE"
	MonitoringBasic    MonitoringLevel = "BASIC"
	MonitoringEnhanced MonitoringLevel = "ENHANCED"
	MonitoringFull     MonitoringLevel = "FULL"
)

var monitoringRank = map[MonitoringLevel]int{
	MonitoringNone:     0,
	MonitoringBasic:    1,
	MonitoringEnhanced: 2,
	MonitoringFull:     3,
}

// Rank orders monitoring levels; unknown levels rank -1.
func (l MonitoringLevel) Rank() int {
	if r, ok := monitoringRank[l]; ok {
		return r
	}
	return -1
}

func (l MonitoringLevel) Valid() bool {
	return l.Rank() >= 0
}

// Requirement challenge types.
const (
	RequirementAdditionalVerification = "ADDITIONAL_VERIFICATION"
	RequirementMFA                    = "MFA"
)

// AccessDecision is the immutable outcome of one evaluation.
type AccessDecision struct {
	RequestID       string          `json:"requestId"`
	Decision        Decision        `json:"decision"`
	Confidence      int             `json:"confidence"`
	RiskScore       int             `json:"riskScore"`
	Requirements    []string        `json:"requirements"`
	MonitoringLevel MonitoringLevel `json:"monitoringLevel"`
	ExpirationTime  time.Time       `json:"expirationTime"`
	Reasoning       []string        `json:"reasoning"`
	Mitigations     []string        `json:"mitigations"`
	MatchedPolicies []string        `json:"matchedPolicies,omitempty"`
	EvaluatedAt     time.Time       `json:"evaluatedAt"`
}

// Allowed reports whether the decision grants access.
func (d AccessDecision) Allowed() bool {
	return d.Decision == DecisionAllow
}
