// audit/model.go
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	pdp_model "github.com/dev-mohitbeniwal/sentinel/pdp/model"
)

// AuditLog is the record forwarded to the audit sink for every decision.
type AuditLog struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	RequestID       string    `json:"request_id"`
	UserID          string    `json:"user_id"`
	DeviceID        string    `json:"device_id,omitempty"`
	SessionID       string    `json:"session_id,omitempty"`
	ResourceID      string    `json:"resource_id"`
	Action          string    `json:"action"`
	Urgency         string    `json:"urgency,omitempty"`
	Decision        string    `json:"decision"`
	AccessGranted   bool      `json:"access_granted"`
	RiskScore       int       `json:"risk_score"`
	Confidence      int       `json:"confidence"`
	MonitoringLevel string    `json:"monitoring_level"`
	Requirements    []string  `json:"requirements,omitempty"`
	Reasoning       []string  `json:"reasoning,omitempty"`
	Mitigations     []string  `json:"mitigations,omitempty"`
	PolicyIDs       []string  `json:"policy_ids,omitempty"`

	// Set for policy administration records only.
	ChangeDetails json.RawMessage `json:"change_details,omitempty"`
}

// NewAuditLog flattens a request and its decision into an audit record.
func NewAuditLog(request pdp_model.AccessRequest, decision pdp_model.AccessDecision) AuditLog {
	ts := decision.EvaluatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return AuditLog{
		ID:              uuid.New().String(),
		Timestamp:       ts,
		RequestID:       decision.RequestID,
		UserID:          request.Context.UserID(),
		DeviceID:        request.Context.DeviceID(),
		SessionID:       request.Context.SessionID(),
		ResourceID:      request.Resource,
		Action:          string(request.Action),
		Urgency:         string(request.Urgency),
		Decision:        string(decision.Decision),
		AccessGranted:   decision.Allowed(),
		RiskScore:       decision.RiskScore,
		Confidence:      decision.Confidence,
		MonitoringLevel: string(decision.MonitoringLevel),
		Requirements:    append([]string(nil), decision.Requirements...),
		Reasoning:       append([]string(nil), decision.Reasoning...),
		Mitigations:     append([]string(nil), decision.Mitigations...),
		PolicyIDs:       append([]string(nil), decision.MatchedPolicies...),
	}
}
