package engine

import (
	"context"
	"strings"

	"github.com/google/uuid"

	pdp_model "github.com/dev-mohitbeniwal/sentinel/pdp/model"
)

// ValidateOrderAuthorization reports whether an orchestration order may run.
func (e *DecisionEngine) ValidateOrderAuthorization(ctx context.Context, order pdp_model.Order) bool {
	return e.AuthorizeOrder(ctx, order).Allowed()
}

// AuthorizeOrder evaluates an order and returns the full decision.
func (e *DecisionEngine) AuthorizeOrder(ctx context.Context, order pdp_model.Order) pdp_model.AccessDecision {
	return e.EvaluateAccess(ctx, e.RequestFromOrder(order))
}

// RequestFromOrder folds order metadata into an access request. Missing or
// unparseable signals take their worst-case value.
func (e *DecisionEngine) RequestFromOrder(order pdp_model.Order) pdp_model.AccessRequest {
	meta := order.Metadata
	if meta == nil {
		meta = map[string]string{}
	}

	requestID := order.ID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	urgency := pdp_model.Urgency(strings.ToUpper(string(order.Urgency)))
	if urgency == "" {
		urgency = pdp_model.UrgencyLow
	}

	return pdp_model.AccessRequest{
		RequestID: requestID,
		Resource:  order.Resource,
		Action:    order.Action,
		Timestamp: e.now(),
		Urgency:   urgency,
		Context: pdp_model.TrustContext{
			Identity: &pdp_model.IdentityContext{
				UserID:               order.AgentID,
				DeviceID:             order.DeviceID,
				SessionID:            order.SessionID,
				AuthenticationMethod: pdp_model.AuthenticationMethod(strings.ToUpper(meta[pdp_model.MetaAuthMethod])),
				TrustScore:           scoreOr(meta[pdp_model.MetaIdentityTrustScore], 0),
			},
			Device: &pdp_model.DeviceContext{
				Fingerprint:      meta[pdp_model.MetaDeviceFingerprint],
				ComplianceStatus: pdp_model.ComplianceStatus(textOr(meta[pdp_model.MetaDeviceComplianceStatus], string(pdp_model.ComplianceUnknown))),
				RiskScore:        scoreOr(meta[pdp_model.MetaDeviceRiskScore], 100),
			},
			Network: &pdp_model.NetworkContext{
				IPAddress:   meta[pdp_model.MetaNetworkIPAddress],
				NetworkType: pdp_model.NetworkType(textOr(meta[pdp_model.MetaNetworkType], string(pdp_model.NetworkUnknown))),
				GeoLocation: meta[pdp_model.MetaNetworkGeoLocation],
				ThreatIntel: pdp_model.ThreatIntel(strings.ToUpper(meta[pdp_model.MetaNetworkThreatIntel])),
				RiskScore:   scoreOr(meta[pdp_model.MetaNetworkRiskScore], 100),
			},
			Behavior: &pdp_model.BehaviorContext{
				AnomalyScore: scoreOr(meta[pdp_model.MetaBehaviorAnomalyScore], 100),
			},
		},
	}
}

func scoreOr(text string, fallback int) int {
	if v, ok := pdp_model.ParseScore(text); ok {
		return v
	}
	return fallback
}

func textOr(text, fallback string) string {
	if text = strings.ToUpper(strings.TrimSpace(text)); text != "" {
		return text
	}
	return fallback
}
