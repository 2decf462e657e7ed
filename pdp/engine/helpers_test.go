package engine

import (
	"context"
	"sync"
	"time"

	"github.com/dev-mohitbeniwal/sentinel/model"
	pdp_model "github.com/dev-mohitbeniwal/sentinel/pdp/model"
)

var testNow = time.Date(2024, time.January, 2, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type policyList []*model.SecurityPolicy

func (p policyList) ListPolicies(ctx context.Context) ([]*model.SecurityPolicy, error) {
	return p, nil
}

type failingSource struct{ err error }

func (f failingSource) ListPolicies(ctx context.Context) ([]*model.SecurityPolicy, error) {
	return nil, f.err
}

type publishedEvent struct {
	Type    string
	Payload interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (r *recordingPublisher) Publish(ctx context.Context, eventType string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, publishedEvent{Type: eventType, Payload: payload})
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingAudit struct {
	mu        sync.Mutex
	decisions []pdp_model.AccessDecision
}

func (r *recordingAudit) Record(ctx context.Context, request pdp_model.AccessRequest, decision pdp_model.AccessDecision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, decision)
}

// uniformContext builds a context whose composite trust score equals score.
func uniformContext(userID, deviceID, sessionID string, score int) pdp_model.TrustContext {
	return pdp_model.TrustContext{
		Identity: &pdp_model.IdentityContext{
			UserID:               userID,
			DeviceID:             deviceID,
			SessionID:            sessionID,
			AuthenticationMethod: pdp_model.AuthMFA,
			TrustScore:           score,
		},
		Device: &pdp_model.DeviceContext{
			Fingerprint:      "fp-" + deviceID,
			ComplianceStatus: pdp_model.Compliant,
			RiskScore:        100 - score,
		},
		Network: &pdp_model.NetworkContext{
			IPAddress:   "10.0.0.1",
			NetworkType: pdp_model.NetworkCorporate,
			GeoLocation: "US",
			ThreatIntel: pdp_model.ThreatClean,
			RiskScore:   100 - score,
		},
		Behavior: &pdp_model.BehaviorContext{
			AnomalyScore: 100 - score,
		},
	}
}

func trustedContext() pdp_model.TrustContext {
	tc := uniformContext("user1", "deviceA", "session-1", 95)
	tc.Identity.TrustScore = 90
	return tc
}

func newRequest(id string, tc pdp_model.TrustContext) pdp_model.AccessRequest {
	return pdp_model.AccessRequest{
		RequestID: id,
		Resource:  "orders/42",
		Action:    pdp_model.ActionRead,
		Context:   tc,
		Timestamp: testNow,
		Urgency:   pdp_model.UrgencyLow,
	}
}
