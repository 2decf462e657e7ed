package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/sentinel/config"
	"github.com/dev-mohitbeniwal/sentinel/metrics"
	"github.com/dev-mohitbeniwal/sentinel/model"
	"github.com/dev-mohitbeniwal/sentinel/pdp/cache"
	pdp_model "github.com/dev-mohitbeniwal/sentinel/pdp/model"
	"github.com/dev-mohitbeniwal/sentinel/service"
)

type engineFixture struct {
	engine *DecisionEngine
	cache  *cache.TrustCache
	events *recordingPublisher
	audit  *recordingAudit
}

func newFixture(policies PolicySource, opts ...Option) *engineFixture {
	f := &engineFixture{
		cache:  cache.NewTrustCacheWithClock(fixedClock),
		events: &recordingPublisher{},
		audit:  &recordingAudit{},
	}
	opts = append([]Option{
		WithClock(fixedClock),
		WithEvents(f.events),
		WithAuditSink(f.audit),
	}, opts...)
	f.engine = NewDecisionEngine(policies, f.cache, config.EngineConfig{}, opts...)
	return f
}

func denyPolicy(id string) *model.SecurityPolicy {
	return model.NewPolicy(id, id).
		WhenField(model.ConditionIdentity, model.FieldUserID, model.OpEquals, "user1").
		Deny("blocked").
		MustBuild()
}

func TestEvaluateAccess_TrustedRequestIsAllowed(t *testing.T) {
	f := newFixture(policyList{})

	d := f.engine.EvaluateAccess(context.Background(), newRequest("req-a", trustedContext()))

	assert.Equal(t, pdp_model.DecisionAllow, d.Decision)
	assert.InDelta(t, 93, d.Confidence, 1)
	assert.InDelta(t, 7, d.RiskScore, 1)
	assert.Equal(t, 100, d.Confidence+d.RiskScore)
	assert.Equal(t, pdp_model.MonitoringNone, d.MonitoringLevel)
	assert.Empty(t, d.Requirements)
	assert.Equal(t, "req-a", d.RequestID)
	assert.Equal(t, testNow.Add(time.Hour), d.ExpirationTime)
}

func TestEvaluateAccess_NonCompliantDeviceIsDenied(t *testing.T) {
	policy := model.NewPolicy("device-compliance", "DEVICE_COMPLIANCE").
		When(model.ConditionDevice, model.OpNotEquals, string(pdp_model.Compliant)).
		Deny("device is not compliant").
		MustBuild()
	f := newFixture(policyList{policy})

	tc := trustedContext()
	tc.Device.ComplianceStatus = pdp_model.ComplianceUnknown
	d := f.engine.EvaluateAccess(context.Background(), newRequest("req-b", tc))

	assert.Equal(t, pdp_model.DecisionDeny, d.Decision)
	assert.Equal(t, []string{"device-compliance"}, d.MatchedPolicies)
	assert.Contains(t, d.Reasoning[0], "device is not compliant")
}

func TestEvaluateAccess_HighRiskIsDenied(t *testing.T) {
	f := newFixture(policyList{})

	d := f.engine.EvaluateAccess(context.Background(), newRequest("req-c", uniformContext("user1", "deviceA", "", 15)))

	assert.Equal(t, pdp_model.DecisionDeny, d.Decision)
	assert.Equal(t, 85, d.RiskScore)
	assert.Equal(t, 85, d.Confidence)
	assert.Contains(t, d.Reasoning, "high risk score detected")
}

func TestEvaluateAccess_EmergencyOverride(t *testing.T) {
	f := newFixture(policyList{denyPolicy("deny-user1")})

	request := newRequest("req-d", uniformContext("user1", "deviceA", "", 60))
	request.Urgency = pdp_model.UrgencyEmergency
	d := f.engine.EvaluateAccess(context.Background(), request)

	assert.Equal(t, pdp_model.DecisionAllow, d.Decision)
	assert.Equal(t, pdp_model.MonitoringFull, d.MonitoringLevel)
	assert.NotEmpty(t, d.Mitigations)
	assert.Equal(t, 60, d.Confidence)
	assert.Contains(t, d.Reasoning, "emergency override applied")
}

func TestEvaluateAccess_EmergencyNeedsTrustAboveFifty(t *testing.T) {
	f := newFixture(policyList{denyPolicy("deny-user1")})

	request := newRequest("req", uniformContext("user1", "deviceA", "", 50))
	request.Urgency = pdp_model.UrgencyEmergency
	d := f.engine.EvaluateAccess(context.Background(), request)

	assert.Equal(t, pdp_model.DecisionDeny, d.Decision)
	assert.Empty(t, d.Mitigations)
}

func TestEvaluateAccess_RiskBands(t *testing.T) {
	f := newFixture(policyList{})

	t.Run("elevated risk challenges", func(t *testing.T) {
		d := f.engine.EvaluateAccess(context.Background(), newRequest("r1", uniformContext("user1", "deviceA", "", 35)))
		assert.Equal(t, pdp_model.DecisionChallenge, d.Decision)
		assert.Equal(t, []string{pdp_model.RequirementAdditionalVerification}, d.Requirements)
		assert.Contains(t, d.Reasoning, "elevated risk score")
		assert.Equal(t, 65, d.Confidence)
	})

	t.Run("moderate risk is monitored", func(t *testing.T) {
		d := f.engine.EvaluateAccess(context.Background(), newRequest("r2", uniformContext("user1", "deviceA", "", 55)))
		assert.Equal(t, pdp_model.DecisionAllow, d.Decision)
		assert.Equal(t, pdp_model.MonitoringEnhanced, d.MonitoringLevel)
		assert.Contains(t, d.Reasoning, "moderate risk — enhanced monitoring")
	})

	t.Run("risk of exactly forty is plain allow", func(t *testing.T) {
		d := f.engine.EvaluateAccess(context.Background(), newRequest("r3", uniformContext("user1", "deviceA", "", 60)))
		assert.Equal(t, pdp_model.DecisionAllow, d.Decision)
		assert.Equal(t, pdp_model.MonitoringNone, d.MonitoringLevel)
	})
}

func TestEvaluateAccess_DenyIsSticky(t *testing.T) {
	allow := model.NewPolicy("allow-all", "allow-all").Allow().MustBuild()
	challenge := model.NewPolicy("mfa", "mfa").Challenge(pdp_model.RequirementMFA).MustBuild()
	f := newFixture(policyList{denyPolicy("deny-user1"), allow, challenge})

	d := f.engine.EvaluateAccess(context.Background(), newRequest("req", trustedContext()))

	assert.Equal(t, pdp_model.DecisionDeny, d.Decision)
	assert.Equal(t, []string{"deny-user1", "allow-all", "mfa"}, d.MatchedPolicies)
	assert.Equal(t, []string{pdp_model.RequirementMFA}, d.Requirements)
}

func TestEvaluateAccess_ChallengeCollectsRequirements(t *testing.T) {
	mfa := model.NewPolicy("mfa", "mfa").Challenge(pdp_model.RequirementMFA).MustBuild()
	mfaAgain := model.NewPolicy("mfa-2", "mfa-2").Challenge(pdp_model.RequirementMFA).MustBuild()
	cert := model.NewPolicy("cert", "cert").Challenge("CERTIFICATE").MustBuild()
	f := newFixture(policyList{mfa, mfaAgain, cert})

	d := f.engine.EvaluateAccess(context.Background(), newRequest("req", trustedContext()))

	assert.Equal(t, pdp_model.DecisionChallenge, d.Decision)
	assert.Equal(t, []string{pdp_model.RequirementMFA, "CERTIFICATE"}, d.Requirements)
	assert.Equal(t, d.RiskScore, d.Confidence)
}

func TestEvaluateAccess_MonitorOnlyRaises(t *testing.T) {
	full := model.NewPolicy("full", "full").Monitor(pdp_model.MonitoringFull).MustBuild()
	basic := model.NewPolicy("basic", "basic").Monitor(pdp_model.MonitoringBasic).MustBuild()
	f := newFixture(policyList{full, basic})

	d := f.engine.EvaluateAccess(context.Background(), newRequest("req", trustedContext()))

	assert.Equal(t, pdp_model.DecisionAllow, d.Decision)
	assert.Equal(t, pdp_model.MonitoringFull, d.MonitoringLevel)
}

func TestEvaluateAccess_AlertPublishesEvent(t *testing.T) {
	alert := model.NewPolicy("alert", "alert").Alert("HIGH", "watch this").MustBuild()
	f := newFixture(policyList{alert})

	d := f.engine.EvaluateAccess(context.Background(), newRequest("req", trustedContext()))

	assert.Equal(t, pdp_model.DecisionAllow, d.Decision)
	require.Equal(t, []string{pdp_model.EventPolicyAlert}, f.events.types())
	payload := f.events.events[0].Payload.(pdp_model.PolicyAlertEvent)
	assert.Equal(t, "alert", payload.PolicyID)
	assert.Equal(t, "HIGH", payload.Severity)
	assert.Equal(t, "req", payload.RequestID)
}

func TestEvaluateAccess_PublishesDecisionEvents(t *testing.T) {
	mfa := model.NewPolicy("mfa", "mfa").
		WhenField(model.ConditionIdentity, model.FieldUserID, model.OpEquals, "user2").
		Challenge(pdp_model.RequirementMFA).
		MustBuild()
	f := newFixture(policyList{denyPolicy("deny-user1"), mfa})

	f.engine.EvaluateAccess(context.Background(), newRequest("r1", uniformContext("user1", "d", "", 90)))
	f.engine.EvaluateAccess(context.Background(), newRequest("r2", uniformContext("user2", "d", "", 90)))
	f.engine.EvaluateAccess(context.Background(), newRequest("r3", uniformContext("user3", "d", "", 90)))

	assert.Equal(t, []string{pdp_model.EventAccessDenied, pdp_model.EventAccessChallenged}, f.events.types())
	denied := f.events.events[0].Payload.(pdp_model.AccessEvent)
	assert.Equal(t, "r1", denied.Decision.RequestID)
	assert.Equal(t, "user1", denied.Request.Context.UserID())
}

func TestEvaluateAccess_DisabledEqualsRemoved(t *testing.T) {
	disabled := denyPolicy("deny-user1")
	disabled.Enabled = false

	withDisabled := newFixture(policyList{disabled})
	without := newFixture(policyList{})

	request := newRequest("req", trustedContext())
	assert.Equal(t,
		without.engine.EvaluateAccess(context.Background(), request),
		withDisabled.engine.EvaluateAccess(context.Background(), request))
}

func TestEvaluateAccess_IsDeterministic(t *testing.T) {
	f := newFixture(policyList{denyPolicy("deny-user1")})
	request := newRequest("req", trustedContext())

	first := f.engine.EvaluateAccess(context.Background(), request)
	second := f.engine.EvaluateAccess(context.Background(), request)
	assert.Equal(t, first, second)
}

func TestEvaluateAccess_ClampsOutOfRangeScores(t *testing.T) {
	f := newFixture(policyList{})
	tc := uniformContext("user1", "deviceA", "", 100)
	tc.Identity.TrustScore = 500
	tc.Device.RiskScore = -20

	d := f.engine.EvaluateAccess(context.Background(), newRequest("req", tc))

	assert.Equal(t, 100, d.Confidence)
	assert.Equal(t, 0, d.RiskScore)
	assert.Equal(t, 500, tc.Identity.TrustScore)
}

func TestEvaluateAccess_SideEffects(t *testing.T) {
	f := newFixture(policyList{})
	request := newRequest("req", trustedContext())

	d := f.engine.EvaluateAccess(context.Background(), request)

	score, ok := f.cache.Get(pdp_model.CacheKey{IdentityID: "user1", DeviceID: "deviceA"})
	require.True(t, ok)
	assert.Equal(t, d.Confidence, score)

	s, ok := f.engine.Sessions().Get("session-1")
	require.True(t, ok)
	assert.Equal(t, "user1", s.UserID)
	assert.Equal(t, testNow, s.LastSeen)

	history := f.engine.AccessHistory("user1")
	require.Len(t, history, 1)
	assert.Equal(t, "req", history[0].RequestID)
	assert.Equal(t, pdp_model.DecisionAllow, history[0].Decision)

	require.Len(t, f.audit.decisions, 1)
	assert.Equal(t, d, f.audit.decisions[0])
}

func TestEvaluateAccess_FailClosed(t *testing.T) {
	tests := []struct {
		name     string
		source   PolicySource
		opts     []Option
		ctx      func() context.Context
		request  pdp_model.AccessRequest
		reason   string
		recorded bool
	}{
		{
			name:     "scorer panic",
			source:   policyList{},
			opts:     []Option{WithScorer(func(pdp_model.TrustContext) int { panic("boom") })},
			request:  newRequest("req", trustedContext()),
			reason:   "internal evaluation error",
			recorded: true,
		},
		{
			name:     "policy source failure",
			source:   failingSource{err: errors.New("connection refused")},
			request:  newRequest("req", trustedContext()),
			reason:   "internal evaluation error",
			recorded: true,
		},
		{
			name:   "cancelled context",
			source: policyList{},
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			request:  newRequest("req", trustedContext()),
			reason:   "evaluation timeout",
			recorded: true,
		},
		{
			name:    "missing identity",
			source:  policyList{},
			request: newRequest("req", pdp_model.TrustContext{Device: trustedContext().Device}),
			reason:  "missing identity identifier",
		},
		{
			name:     "missing request id",
			source:   policyList{},
			request:  newRequest("", trustedContext()),
			reason:   "missing request identifier",
			recorded: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.source, tt.opts...)
			ctx := context.Background()
			if tt.ctx != nil {
				ctx = tt.ctx()
			}

			d := f.engine.EvaluateAccess(ctx, tt.request)

			assert.Equal(t, pdp_model.DecisionDeny, d.Decision)
			assert.Equal(t, 100, d.RiskScore)
			assert.Equal(t, 0, d.Confidence)
			assert.Equal(t, pdp_model.MonitoringFull, d.MonitoringLevel)
			assert.Equal(t, []string{tt.reason}, d.Reasoning)
			assert.Equal(t, 0, f.cache.Len())
			assert.Equal(t, 0, f.engine.Sessions().Len())
			assert.Equal(t, []string{pdp_model.EventAccessDenied}, f.events.types())
			assert.Len(t, f.audit.decisions, 1)
			assert.Equal(t, tt.recorded, len(f.engine.AccessHistory("user1")) == 1)
		})
	}
}

type panickingAudit struct{}

func (panickingAudit) Record(ctx context.Context, request pdp_model.AccessRequest, decision pdp_model.AccessDecision) {
	panic("sink down")
}

type panickingPublisher struct{ calls int }

func (p *panickingPublisher) Publish(ctx context.Context, eventType string, payload interface{}) {
	p.calls++
	panic("bus down")
}

func TestEvaluateAccess_AuditPanicDoesNotEscape(t *testing.T) {
	f := newFixture(policyList{}, WithAuditSink(panickingAudit{}))

	var d pdp_model.AccessDecision
	require.NotPanics(t, func() {
		d = f.engine.EvaluateAccess(context.Background(), newRequest("req-a", trustedContext()))
	})

	assert.Equal(t, pdp_model.DecisionAllow, d.Decision)
	assert.Equal(t, 1, f.cache.Len())
	assert.Empty(t, f.events.types())
	assert.Len(t, f.engine.AccessHistory("user1"), 1)
}

func TestEvaluateAccess_PublisherPanicDoesNotEscape(t *testing.T) {
	alert := model.NewPolicy("alert", "alert").
		WhenField(model.ConditionIdentity, model.FieldUserID, model.OpEquals, "user1").
		Alert("HIGH", "watch").
		Deny("blocked").
		MustBuild()
	publisher := &panickingPublisher{}
	f := newFixture(policyList{alert}, WithEvents(publisher))

	var d pdp_model.AccessDecision
	require.NotPanics(t, func() {
		d = f.engine.EvaluateAccess(context.Background(), newRequest("req-a", trustedContext()))
	})

	assert.Equal(t, pdp_model.DecisionDeny, d.Decision)
	assert.Equal(t, []string{"alert"}, d.MatchedPolicies)
	assert.Equal(t, 2, publisher.calls)
	assert.Len(t, f.audit.decisions, 1)
}

func TestEvaluateAccess_PanicAfterCacheWriteFailsClosedOnce(t *testing.T) {
	f := newFixture(policyList{}, WithSessions(nil))

	var d pdp_model.AccessDecision
	require.NotPanics(t, func() {
		d = f.engine.EvaluateAccess(context.Background(), newRequest("req-a", trustedContext()))
	})

	assert.Equal(t, pdp_model.DecisionDeny, d.Decision)
	assert.Equal(t, []string{"internal evaluation error"}, d.Reasoning)
	assert.Equal(t, 0, f.cache.Len())
	assert.Equal(t, []string{pdp_model.EventAccessDenied}, f.events.types())
	require.Len(t, f.audit.decisions, 1)
	assert.Equal(t, pdp_model.DecisionDeny, f.audit.decisions[0].Decision)
}

// slowRepository stalls every write until release is closed.
type slowRepository struct {
	entered chan struct{}
	release chan struct{}
}

func (r *slowRepository) wait() error {
	r.entered <- struct{}{}
	<-r.release
	return nil
}

func (r *slowRepository) CreatePolicy(ctx context.Context, p *model.SecurityPolicy) error {
	return r.wait()
}

func (r *slowRepository) UpdatePolicy(ctx context.Context, p *model.SecurityPolicy) error {
	return r.wait()
}

func (r *slowRepository) DeletePolicy(ctx context.Context, id string) error { return r.wait() }

func (r *slowRepository) ListPolicies(ctx context.Context) ([]*model.SecurityPolicy, error) {
	return nil, nil
}

func TestEvaluateAccess_DoesNotWaitForPolicyWrites(t *testing.T) {
	repo := &slowRepository{entered: make(chan struct{}, 1), release: make(chan struct{})}
	policies := service.NewPolicyService(repo, nil)
	f := newFixture(policies)

	writeDone := make(chan error, 1)
	go func() {
		_, err := policies.AddPolicy(context.Background(), denyPolicy("late"))
		writeDone <- err
	}()
	<-repo.entered
	defer func() {
		close(repo.release)
		assert.NoError(t, <-writeDone)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	d := f.engine.EvaluateAccess(ctx, newRequest("req-a", trustedContext()))

	assert.NoError(t, ctx.Err(), "evaluation returned after its deadline")
	assert.Equal(t, pdp_model.DecisionAllow, d.Decision)
	assert.Empty(t, d.MatchedPolicies)
}

func TestEvaluateAccess_AppliesEvaluationTimeout(t *testing.T) {
	slow := slowSource{delay: 50 * time.Millisecond}
	f := &engineFixture{cache: cache.NewTrustCache(), events: &recordingPublisher{}}
	f.engine = NewDecisionEngine(slow, f.cache, config.EngineConfig{EvaluationTimeout: 5 * time.Millisecond}, WithEvents(f.events))

	d := f.engine.EvaluateAccess(context.Background(), newRequest("req", trustedContext()))

	assert.Equal(t, pdp_model.DecisionDeny, d.Decision)
	assert.Equal(t, []string{"evaluation timeout"}, d.Reasoning)
}

type slowSource struct{ delay time.Duration }

func (s slowSource) ListPolicies(ctx context.Context) ([]*model.SecurityPolicy, error) {
	select {
	case <-time.After(s.delay):
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestEvaluateAccess_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	f := newFixture(policyList{}, WithMetrics(m))

	f.engine.EvaluateAccess(context.Background(), newRequest("ok", trustedContext()))
	f.engine.EvaluateAccess(context.Background(), newRequest("", trustedContext()))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.DecisionsTotal.WithLabelValues("ALLOW")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DecisionsTotal.WithLabelValues("DENY")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FailClosedTotal.WithLabelValues("missing request identifier")))
}

func TestEvaluateAccess_ConcurrentRequests(t *testing.T) {
	f := newFixture(policyList{denyPolicy("deny-user1")})

	done := make(chan pdp_model.AccessDecision)
	for i := 0; i < 20; i++ {
		go func(i int) {
			user := "user1"
			if i%2 == 0 {
				user = "user2"
			}
			done <- f.engine.EvaluateAccess(context.Background(), newRequest("req", uniformContext(user, "d", "s-"+user, 90)))
		}(i)
	}

	denied := 0
	for i := 0; i < 20; i++ {
		if d := <-done; d.Decision == pdp_model.DecisionDeny {
			denied++
		}
	}
	assert.Equal(t, 10, denied)
	assert.Equal(t, 2, f.engine.Sessions().Len())
	assert.Len(t, f.engine.AccessHistory("user2"), 10)
}
