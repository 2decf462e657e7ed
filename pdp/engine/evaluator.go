package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/sentinel/logging"
	"github.com/dev-mohitbeniwal/sentinel/model"
	pdp_model "github.com/dev-mohitbeniwal/sentinel/pdp/model"
)

// Time-of-day categories resolved for TIME conditions.
const (
	TimeBusinessHours = "BUSINESS_HOURS"
	TimeAfterHours    = "AFTER_HOURS"
	TimeWeekend       = "WEEKEND"
)

const (
	businessDayStart = 8
	businessDayEnd   = 18
)

// PolicyEvaluator matches access requests against policies. A policy matches
// when every one of its conditions holds.
type PolicyEvaluator struct {
	now func() time.Time
}

func NewPolicyEvaluator() *PolicyEvaluator {
	return NewPolicyEvaluatorWithClock(time.Now)
}

// NewPolicyEvaluatorWithClock uses now for TIME conditions on requests that
// carry no timestamp.
func NewPolicyEvaluatorWithClock(now func() time.Time) *PolicyEvaluator {
	return &PolicyEvaluator{now: now}
}

// Evaluate returns policyID -> matched for every enabled policy.
func (pe *PolicyEvaluator) Evaluate(request *pdp_model.AccessRequest, policies []*model.SecurityPolicy) map[string]bool {
	results := pe.EvaluateDetailed(request, policies)
	matched := make(map[string]bool, len(results))
	for _, r := range results {
		matched[r.PolicyID] = r.Matched
	}
	return matched
}

// EvaluateDetailed evaluates enabled policies in the given order.
func (pe *PolicyEvaluator) EvaluateDetailed(request *pdp_model.AccessRequest, policies []*model.SecurityPolicy) []pdp_model.PolicyEvaluationResult {
	results := make([]pdp_model.PolicyEvaluationResult, 0, len(policies))
	for _, policy := range policies {
		if policy == nil || !policy.Enabled {
			continue
		}
		results = append(results, pe.evaluatePolicy(request, policy))
	}
	return results
}

func (pe *PolicyEvaluator) evaluatePolicy(request *pdp_model.AccessRequest, policy *model.SecurityPolicy) pdp_model.PolicyEvaluationResult {
	result := pdp_model.PolicyEvaluationResult{
		PolicyID: policy.ID,
		Matched:  true,
		Priority: policy.Priority,
	}

	for i, condition := range policy.Conditions {
		if !pe.evaluateCondition(condition, request) {
			result.Matched = false
			result.Reason = fmt.Sprintf("condition %d (%s %s %s) did not match", i, condition.Type, condition.Operator, condition.Value)
			return result
		}
	}
	result.Reason = "all conditions matched"
	return result
}

// attribute is a resolved request value. Exactly one of the kinds is set.
type attribute struct {
	text     string
	number   float64
	isNumber bool
	set      []string
	isSet    bool
}

func textAttr(s string) attribute  { return attribute{text: s} }
func numberAttr(n int) attribute   { return attribute{text: strconv.Itoa(n), number: float64(n), isNumber: true} }
func setAttr(s []string) attribute { return attribute{set: s, isSet: true} }

func (pe *PolicyEvaluator) evaluateCondition(condition model.Condition, request *pdp_model.AccessRequest) bool {
	attr, ok := pe.resolve(condition, request)
	if !ok {
		return false
	}
	return applyOperator(condition, attr)
}

// resolve maps a condition onto the request. Missing dimensions resolve to
// their worst-case values so deny-style conditions still fire.
func (pe *PolicyEvaluator) resolve(c model.Condition, request *pdp_model.AccessRequest) (attribute, bool) {
	tc := request.Context
	field := c.Attribute()

	switch c.Type {
	case model.ConditionIdentity:
		id := tc.Identity
		if id == nil {
			id = &pdp_model.IdentityContext{}
		}
		switch field {
		case model.FieldUserID:
			return textAttr(id.UserID), true
		case model.FieldDeviceID:
			return textAttr(id.DeviceID), true
		case model.FieldSessionID:
			return textAttr(id.SessionID), true
		case model.FieldAuthenticationMethod:
			return textAttr(string(id.AuthenticationMethod)), true
		case model.FieldTrustScore:
			return numberAttr(pdp_model.ClampScore(id.TrustScore)), true
		}
	case model.ConditionDevice:
		d := tc.Device
		if d == nil {
			d = &pdp_model.DeviceContext{ComplianceStatus: pdp_model.ComplianceUnknown, RiskScore: 100}
		}
		switch field {
		case model.FieldComplianceStatus:
			status := d.ComplianceStatus
			if status == "" {
				status = pdp_model.ComplianceUnknown
			}
			return textAttr(string(status)), true
		case model.FieldRiskScore:
			return numberAttr(pdp_model.ClampScore(d.RiskScore)), true
		case model.FieldFingerprint:
			return textAttr(d.Fingerprint), true
		case model.FieldOSVersion:
			return textAttr(d.OSVersion), true
		case model.FieldAppVersion:
			return textAttr(d.AppVersion), true
		case model.FieldLastLocation:
			return textAttr(d.LastLocation), true
		}
	case model.ConditionNetwork:
		n := tc.Network
		if n == nil {
			n = &pdp_model.NetworkContext{NetworkType: pdp_model.NetworkUnknown, RiskScore: 100}
		}
		switch field {
		case model.FieldNetworkType:
			nt := n.NetworkType
			if nt == "" {
				nt = pdp_model.NetworkUnknown
			}
			return textAttr(string(nt)), true
		case model.FieldRiskScore:
			return numberAttr(pdp_model.ClampScore(n.RiskScore)), true
		case model.FieldThreatIntel:
			return textAttr(string(n.ThreatIntel)), true
		case model.FieldIPAddress:
			return textAttr(n.IPAddress), true
		case model.FieldGeoLocation:
			return textAttr(n.GeoLocation), true
		}
	case model.ConditionBehavior:
		b := tc.Behavior
		if b == nil {
			b = &pdp_model.BehaviorContext{AnomalyScore: 100}
		}
		switch field {
		case model.FieldAnomalyScore:
			return numberAttr(pdp_model.ClampScore(b.AnomalyScore)), true
		case model.FieldAccessPatterns:
			return setAttr(b.AccessPatterns), true
		case model.FieldRiskIndicators:
			return setAttr(b.RiskIndicators), true
		}
	case model.ConditionTime:
		ts := request.Timestamp
		if ts.IsZero() {
			ts = pe.now()
		}
		switch field {
		case model.FieldCategory:
			return textAttr(TimeCategory(ts)), true
		case model.FieldHour:
			return numberAttr(ts.Hour()), true
		case model.FieldWeekday:
			return textAttr(strings.ToUpper(ts.Weekday().String())), true
		}
	case model.ConditionLocation:
		switch field {
		case model.FieldGeoLocation:
			if tc.Network == nil {
				return textAttr(""), true
			}
			return textAttr(tc.Network.GeoLocation), true
		case model.FieldLastLocation:
			if tc.Device == nil {
				return textAttr(""), true
			}
			return textAttr(tc.Device.LastLocation), true
		}
	default:
		logger.Warn("Unknown condition type", zap.String("type", string(c.Type)))
		return attribute{}, false
	}

	logger.Warn("Unknown condition field",
		zap.String("type", string(c.Type)),
		zap.String("field", field))
	return attribute{}, false
}

// applyOperator compares a resolved attribute with the condition value. Set
// attributes use membership for EQUALS, NOT_EQUALS and CONTAINS, and their
// size for GREATER_THAN and LESS_THAN.
func applyOperator(c model.Condition, attr attribute) bool {
	switch c.Operator {
	case model.OpEquals:
		return equals(attr, c.Value)
	case model.OpNotEquals:
		return !equals(attr, c.Value)
	case model.OpGreaterThan, model.OpLessThan:
		want, err := strconv.ParseFloat(c.Value, 64)
		if err != nil {
			return false
		}
		var got float64
		switch {
		case attr.isSet:
			got = float64(len(attr.set))
		case attr.isNumber:
			got = attr.number
		default:
			parsed, err := strconv.ParseFloat(attr.text, 64)
			if err != nil {
				return false
			}
			got = parsed
		}
		if c.Operator == model.OpGreaterThan {
			return got > want
		}
		return got < want
	case model.OpContains:
		if attr.isSet {
			return member(attr.set, c.Value)
		}
		return strings.Contains(attr.text, c.Value)
	case model.OpRegex:
		re := c.Pattern()
		if re == nil {
			return false
		}
		if attr.isSet {
			for _, s := range attr.set {
				if re.MatchString(s) {
					return true
				}
			}
			return false
		}
		return re.MatchString(attr.text)
	default:
		logger.Warn("Unknown condition operator", zap.String("operator", string(c.Operator)))
		return false
	}
}

func equals(attr attribute, value string) bool {
	if attr.isSet {
		return member(attr.set, value)
	}
	if attr.isNumber {
		if want, err := strconv.ParseFloat(value, 64); err == nil {
			return attr.number == want
		}
	}
	return attr.text == value
}

func member(set []string, value string) bool {
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}

// TimeCategory buckets a timestamp into business hours, after hours or
// weekend, in the timestamp's own location.
func TimeCategory(t time.Time) string {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return TimeWeekend
	}
	if h := t.Hour(); h >= businessDayStart && h < businessDayEnd {
		return TimeBusinessHours
	}
	return TimeAfterHours
}
