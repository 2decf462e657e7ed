package model

import "time"

type Action string

const (
	ActionRead    Action = "READ"
	ActionWrite   Action = "WRITE"
	ActionExecute Action = "EXECUTE"
	ActionDelete  Action = "DELETE"
	ActionAdmin   Action = "ADMIN"
)

type Urgency string

const (
	UrgencyLow       Urgency = "LOW"
	UrgencyMedium    Urgency = "MEDIUM"
	UrgencyHigh      Urgency = "HIGH"
	UrgencyEmergency Urgency = "EMERGENCY"
)

// AccessRequest is a single access attempt. It is treated as immutable once
// handed to the engine.
type AccessRequest struct {
	RequestID string       `json:"requestId" yaml:"requestId"`
	Resource  string       `json:"resource" yaml:"resource"`
	Action    Action       `json:"action" yaml:"action"`
	Context   TrustContext `json:"context" yaml:"context"`
	Timestamp time.Time    `json:"timestamp" yaml:"timestamp"`
	Urgency   Urgency      `json:"urgency" yaml:"urgency"`
}

// Order is the orchestration layer's unit of work. Trust signals arrive as
// flat metadata keys and are folded into a TrustContext before evaluation.
type Order struct {
	ID        string            `json:"id"`
	AgentID   string            `json:"agentId"`
	DeviceID  string            `json:"deviceId"`
	SessionID string            `json:"sessionId"`
	Resource  string            `json:"resource"`
	Action    Action            `json:"action"`
	Urgency   Urgency           `json:"urgency"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Order metadata keys understood by ValidateOrderAuthorization.
const (
	MetaIdentityTrustScore     = "identity.trustScore"
	MetaAuthMethod             = "auth.method"
	MetaDeviceRiskScore        = "device.riskScore"
	MetaDeviceComplianceStatus = "device.complianceStatus"
	MetaDeviceFingerprint      = "device.fingerprint"
	MetaNetworkRiskScore       = "network.riskScore"
	MetaNetworkType            = "network.type"
	MetaNetworkGeoLocation     = "network.geoLocation"
	MetaNetworkThreatIntel     = "network.threatIntel"
	MetaNetworkIPAddress       = "network.ipAddress"
	MetaBehaviorAnomalyScore   = "behavior.anomalyScore"
)
