package model

import (
	"strconv"
	"strings"
	"time"
)

type AuthenticationMethod string

const (
	AuthMFA         AuthenticationMethod = "MFA"
	AuthCertificate AuthenticationMethod = "CERTIFICATE"
	AuthBiometric   AuthenticationMethod = "BIOMETRIC"
	AuthToken       AuthenticationMethod = "TOKEN"
)

type ComplianceStatus string

const (
	Compliant         ComplianceStatus = "COMPLIANT"
	NonCompliant      ComplianceStatus = "NON_COMPLIANT"
	ComplianceUnknown ComplianceStatus = "UNKNOWN"
)

type NetworkType string

const (
	NetworkCorporate NetworkType = "CORPORATE"
	NetworkVPN       NetworkType = "VPN"
	NetworkPublic    NetworkType = "PUBLIC"
	NetworkUnknown   NetworkType = "UNKNOWN"
)

type ThreatIntel string

const (
	ThreatClean      ThreatIntel = "CLEAN"
	ThreatSuspicious ThreatIntel = "SUSPICIOUS"
	ThreatMalicious  ThreatIntel = "MALICIOUS"
)

// TrustContext is the snapshot of trust signals taken at evaluation time.
// A nil dimension means the collaborator supplied nothing for it.
type TrustContext struct {
	Identity *IdentityContext `json:"identity,omitempty" yaml:"identity,omitempty"`
	Device   *DeviceContext   `json:"device,omitempty" yaml:"device,omitempty"`
	Network  *NetworkContext  `json:"network,omitempty" yaml:"network,omitempty"`
	Behavior *BehaviorContext `json:"behavior,omitempty" yaml:"behavior,omitempty"`
}

type IdentityContext struct {
	UserID                  string               `json:"userId" yaml:"userId"`
	DeviceID                string               `json:"deviceId" yaml:"deviceId"`
	SessionID               string               `json:"sessionId" yaml:"sessionId"`
	AuthenticationMethod    AuthenticationMethod `json:"authenticationMethod" yaml:"authenticationMethod"`
	AuthenticationTimestamp time.Time            `json:"authenticationTimestamp" yaml:"authenticationTimestamp"`
	TrustScore              int                  `json:"trustScore" yaml:"trustScore"`
}

type DeviceContext struct {
	Fingerprint      string           `json:"fingerprint" yaml:"fingerprint"`
	OSVersion        string           `json:"osVersion" yaml:"osVersion"`
	AppVersion       string           `json:"appVersion" yaml:"appVersion"`
	LastLocation     string           `json:"lastLocation" yaml:"lastLocation"`
	ComplianceStatus ComplianceStatus `json:"complianceStatus" yaml:"complianceStatus"`
	RiskScore        int              `json:"riskScore" yaml:"riskScore"`
}

type NetworkContext struct {
	IPAddress   string      `json:"ipAddress" yaml:"ipAddress"`
	NetworkType NetworkType `json:"networkType" yaml:"networkType"`
	GeoLocation string      `json:"geoLocation" yaml:"geoLocation"`
	ThreatIntel ThreatIntel `json:"threatIntel" yaml:"threatIntel"`
	RiskScore   int         `json:"riskScore" yaml:"riskScore"`
}

type BehaviorContext struct {
	AccessPatterns []string  `json:"accessPatterns,omitempty" yaml:"accessPatterns,omitempty"`
	AnomalyScore   int       `json:"anomalyScore" yaml:"anomalyScore"`
	RiskIndicators []string  `json:"riskIndicators,omitempty" yaml:"riskIndicators,omitempty"`
	LastValidation time.Time `json:"lastValidation" yaml:"lastValidation"`
}

// ClampScore pins a score into [0,100].
func ClampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ParseScore reads a score sent as text. ok is false when the text is empty or
// not an integer; valid values are clamped.
func ParseScore(s string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return ClampScore(v), true
}

// Normalize returns a deep copy with every score clamped into [0,100].
// Out-of-range inputs are corrected, never rejected.
func (tc TrustContext) Normalize() TrustContext {
	out := TrustContext{}
	if tc.Identity != nil {
		id := *tc.Identity
		id.TrustScore = ClampScore(id.TrustScore)
		out.Identity = &id
	}
	if tc.Device != nil {
		d := *tc.Device
		d.RiskScore = ClampScore(d.RiskScore)
		out.Device = &d
	}
	if tc.Network != nil {
		n := *tc.Network
		n.RiskScore = ClampScore(n.RiskScore)
		out.Network = &n
	}
	if tc.Behavior != nil {
		b := *tc.Behavior
		b.AnomalyScore = ClampScore(b.AnomalyScore)
		b.AccessPatterns = dedupe(b.AccessPatterns)
		b.RiskIndicators = dedupe(b.RiskIndicators)
		out.Behavior = &b
	}
	return out
}

// UserID returns the identity's user id or "" when the dimension is missing.
func (tc TrustContext) UserID() string {
	if tc.Identity == nil {
		return ""
	}
	return tc.Identity.UserID
}

func (tc TrustContext) DeviceID() string {
	if tc.Identity == nil {
		return ""
	}
	return tc.Identity.DeviceID
}

func (tc TrustContext) SessionID() string {
	if tc.Identity == nil {
		return ""
	}
	return tc.Identity.SessionID
}

func dedupe(in []string) []string {
	if in == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
