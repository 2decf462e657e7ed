package model

// Event types published on the event bus.
const (
	EventAccessDenied          = "access:denied"
	EventAccessChallenged      = "access:challenged"
	EventTrustDegraded         = "trust:degraded"
	EventSessionReauthRequired = "session:reauth_required"
	EventPolicyAlert           = "policy:alert"
)

// AccessEvent is the payload of access:denied and access:challenged.
type AccessEvent struct {
	Request  AccessRequest
	Decision AccessDecision
}

// SessionEvent is the payload of trust:degraded and session:reauth_required.
type SessionEvent struct {
	SessionID     string
	UserID        string
	DeviceID      string
	TrustScore    int
	PreviousScore int
	HasPrevious   bool
}

// PolicyAlertEvent is published when a matched policy carries an ALERT action.
type PolicyAlertEvent struct {
	PolicyID  string
	RequestID string
	Severity  string
	Message   string
}
