package model

import "time"

type PolicyEvaluationResult struct {
	PolicyID string
	Matched  bool
	Reason   string
	Priority int
}

// ScoreBreakdown holds the per-dimension subscores behind a trust score.
type ScoreBreakdown struct {
	Identity int `json:"identity"`
	Device   int `json:"device"`
	Network  int `json:"network"`
	Behavior int `json:"behavior"`
	Total    int `json:"total"`
}

// AccessLogEntry is one row of the per-identity access history.
type AccessLogEntry struct {
	RequestID string    `json:"requestId"`
	Resource  string    `json:"resource"`
	Action    Action    `json:"action"`
	Decision  Decision  `json:"decision"`
	RiskScore int       `json:"riskScore"`
	Timestamp time.Time `json:"timestamp"`
}
