// model/policy.go
package model

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	sentinel_errors "github.com/dev-mohitbeniwal/sentinel/errors"
	pdp_model "github.com/dev-mohitbeniwal/sentinel/pdp/model"
)

type ConditionType string

const (
	ConditionIdentity ConditionType = "IDENTITY"
	ConditionDevice   ConditionType = "DEVICE"
	ConditionNetwork  ConditionType = "NETWORK"
	ConditionBehavior ConditionType = "BEHAVIOR"
	ConditionTime     ConditionType = "TIME"
	ConditionLocation ConditionType = "LOCATION"
)

type Operator string

const (
	OpEquals      Operator = "EQUALS"
	OpNotEquals   Operator = "NOT_EQUALS"
	OpGreaterThan Operator = "GREATER_THAN"
	OpLessThan    Operator = "LESS_THAN"
	OpContains    Operator = "CONTAINS"
	OpRegex       Operator = "REGEX"
)

// Attribute selectors per condition type. The first entry of each list is the
// attribute used when a condition leaves Field empty.
const (
	FieldUserID               = "userId"
	FieldDeviceID             = "deviceId"
	FieldSessionID            = "sessionId"
	FieldAuthenticationMethod = "authenticationMethod"
	FieldTrustScore           = "trustScore"
	FieldComplianceStatus     = "complianceStatus"
	FieldRiskScore            = "riskScore"
	FieldFingerprint          = "fingerprint"
	FieldOSVersion            = "osVersion"
	FieldAppVersion           = "appVersion"
	FieldLastLocation         = "lastLocation"
	FieldNetworkType          = "networkType"
	FieldThreatIntel          = "threatIntel"
	FieldIPAddress            = "ipAddress"
	FieldGeoLocation          = "geoLocation"
	FieldAnomalyScore         = "anomalyScore"
	FieldAccessPatterns       = "accessPatterns"
	FieldRiskIndicators       = "riskIndicators"
	FieldCategory             = "category"
	FieldHour                 = "hour"
	FieldWeekday              = "weekday"
)

var conditionFields = map[ConditionType][]string{
	ConditionIdentity: {FieldUserID, FieldDeviceID, FieldSessionID, FieldAuthenticationMethod, FieldTrustScore},
	ConditionDevice:   {FieldComplianceStatus, FieldRiskScore, FieldFingerprint, FieldOSVersion, FieldAppVersion, FieldLastLocation},
	ConditionNetwork:  {FieldNetworkType, FieldRiskScore, FieldThreatIntel, FieldIPAddress, FieldGeoLocation},
	ConditionBehavior: {FieldAnomalyScore, FieldAccessPatterns, FieldRiskIndicators},
	ConditionTime:     {FieldCategory, FieldHour, FieldWeekday},
	ConditionLocation: {FieldGeoLocation, FieldLastLocation},
}

var operators = map[Operator]struct{}{
	OpEquals: {}, OpNotEquals: {}, OpGreaterThan: {}, OpLessThan: {}, OpContains: {}, OpRegex: {},
}

// DefaultField returns the attribute a condition of type t resolves when no
// Field is given, or "" for an unknown type.
func DefaultField(t ConditionType) string {
	fields, ok := conditionFields[t]
	if !ok {
		return ""
	}
	return fields[0]
}

func (t ConditionType) Valid() bool {
	_, ok := conditionFields[t]
	return ok
}

func (o Operator) Valid() bool {
	_, ok := operators[o]
	return ok
}

// Condition is one predicate of a policy. Weight is advisory metadata and does
// not influence matching.
type Condition struct {
	Type     ConditionType `json:"type"`
	Field    string        `json:"field,omitempty"`
	Operator Operator      `json:"operator"`
	Value    string        `json:"value"`
	Weight   float64       `json:"weight"`

	pattern *regexp.Regexp
}

// Attribute returns the resolved attribute selector.
func (c Condition) Attribute() string {
	if c.Field != "" {
		return c.Field
	}
	return DefaultField(c.Type)
}

// Pattern returns the compiled REGEX pattern, or nil for other operators.
func (c Condition) Pattern() *regexp.Regexp {
	return c.pattern
}

// SecurityPolicy pairs match conditions with ordered actions. Instances held by
// the policy service are never handed out directly; callers get clones.
type SecurityPolicy struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description,omitempty"`
	Priority     int         `json:"priority"`
	Conditions   []Condition `json:"conditions"`
	Actions      []Action    `json:"-"`
	Enabled      bool        `json:"enabled"`
	Version      int         `json:"version"`
	LastModified time.Time   `json:"lastModified"`
}

// Clone returns a deep copy. Compiled patterns are shared; regexp.Regexp is
// safe for concurrent use.
func (p *SecurityPolicy) Clone() *SecurityPolicy {
	if p == nil {
		return nil
	}
	out := *p
	out.Conditions = append([]Condition(nil), p.Conditions...)
	out.Actions = append([]Action(nil), p.Actions...)
	return &out
}

// Compile validates the policy and prepares REGEX patterns. Every problem is
// reported as a *errors.PolicyConfigError.
func (p *SecurityPolicy) Compile() error {
	if p.Name == "" {
		return sentinel_errors.NewPolicyConfigError(p.ID, "name", "cannot be empty")
	}
	if p.Priority < 0 {
		return sentinel_errors.NewPolicyConfigError(p.ID, "priority", "cannot be negative")
	}
	if len(p.Actions) == 0 {
		return sentinel_errors.NewPolicyConfigError(p.ID, "actions", "policy must have at least one action")
	}

	for i := range p.Conditions {
		if err := p.compileCondition(i); err != nil {
			return err
		}
	}

	var hasAllow, hasDeny bool
	for i, action := range p.Actions {
		field := fmt.Sprintf("actions[%d]", i)
		switch a := action.(type) {
		case AllowAction:
			hasAllow = true
		case DenyAction:
			hasDeny = true
		case ChallengeAction:
			if a.ChallengeType == "" {
				return sentinel_errors.NewPolicyConfigError(p.ID, field, "challenge action requires a challenge type")
			}
		case MonitorAction:
			if !a.Level.Valid() || a.Level == pdp_model.MonitoringNone {
				return sentinel_errors.NewPolicyConfigError(p.ID, field, fmt.Sprintf("invalid monitoring level %q", a.Level))
			}
		case LogAction:
		case AlertAction:
			if a.Severity == "" {
				return sentinel_errors.NewPolicyConfigError(p.ID, field, "alert action requires a severity")
			}
		case nil:
			return sentinel_errors.NewPolicyConfigError(p.ID, field, "action cannot be nil")
		default:
			return sentinel_errors.NewPolicyConfigError(p.ID, field, fmt.Sprintf("unsupported action %T", action))
		}
	}
	if hasAllow && hasDeny {
		return sentinel_errors.NewPolicyConfigError(p.ID, "actions", "ALLOW and DENY cannot be combined in one policy")
	}
	return nil
}

func (p *SecurityPolicy) compileCondition(i int) error {
	c := &p.Conditions[i]
	field := fmt.Sprintf("conditions[%d]", i)

	if !c.Type.Valid() {
		return sentinel_errors.NewPolicyConfigError(p.ID, field, fmt.Sprintf("unknown condition type %q", c.Type))
	}
	if !c.Operator.Valid() {
		return sentinel_errors.NewPolicyConfigError(p.ID, field, fmt.Sprintf("unknown operator %q", c.Operator))
	}
	if c.Field != "" && !fieldAllowed(c.Type, c.Field) {
		return sentinel_errors.NewPolicyConfigError(p.ID, field, fmt.Sprintf("field %q is not valid for %s conditions", c.Field, c.Type))
	}
	if c.Weight < 0 || c.Weight > 1 {
		return sentinel_errors.NewPolicyConfigError(p.ID, field, "weight must be within [0,1]")
	}

	switch c.Operator {
	case OpGreaterThan, OpLessThan:
		if _, err := strconv.ParseFloat(c.Value, 64); err != nil {
			return sentinel_errors.NewPolicyConfigError(p.ID, field, fmt.Sprintf("%s requires a numeric value, got %q", c.Operator, c.Value))
		}
	case OpRegex:
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return sentinel_errors.NewPolicyConfigError(p.ID, field, fmt.Sprintf("invalid regex: %v", err))
		}
		c.pattern = re
	}
	return nil
}

func fieldAllowed(t ConditionType, field string) bool {
	for _, f := range conditionFields[t] {
		if f == field {
			return true
		}
	}
	return false
}
