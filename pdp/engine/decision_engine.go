package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/sentinel/config"
	sentinel_errors "github.com/dev-mohitbeniwal/sentinel/errors"
	logger "github.com/dev-mohitbeniwal/sentinel/logging"
	"github.com/dev-mohitbeniwal/sentinel/metrics"
	"github.com/dev-mohitbeniwal/sentinel/model"
	"github.com/dev-mohitbeniwal/sentinel/pdp/cache"
	pdp_model "github.com/dev-mohitbeniwal/sentinel/pdp/model"
	"github.com/dev-mohitbeniwal/sentinel/pdp/session"
)

// Risk bands applied when no policy changed the decision.
const (
	highRiskThreshold     = 80
	elevatedRiskThreshold = 60
	moderateRiskThreshold = 40
	emergencyMinTrust     = 50
)

const (
	reasonHighRisk      = "high risk score detected"
	reasonElevatedRisk  = "elevated risk score"
	reasonModerateRisk  = "moderate risk — enhanced monitoring"
	mitigationEmergency = "emergency access logged and will be reviewed"
)

// PolicySource supplies the policy set in store iteration order.
type PolicySource interface {
	ListPolicies(ctx context.Context) ([]*model.SecurityPolicy, error)
}

// AuditSink receives every decision. Implementations must not block.
type AuditSink interface {
	Record(ctx context.Context, request pdp_model.AccessRequest, decision pdp_model.AccessDecision)
}

// EventPublisher delivers decision events to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload interface{})
}

type Option func(*DecisionEngine)

func WithClock(now func() time.Time) Option {
	return func(e *DecisionEngine) { e.now = now }
}

// WithScorer replaces ComputeTrustScore.
func WithScorer(scorer func(pdp_model.TrustContext) int) Option {
	return func(e *DecisionEngine) { e.scorer = scorer }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *DecisionEngine) { e.metrics = m }
}

func WithAuditSink(sink AuditSink) Option {
	return func(e *DecisionEngine) { e.audit = sink }
}

func WithEvents(events EventPublisher) Option {
	return func(e *DecisionEngine) { e.events = events }
}

func WithSessions(sessions *session.Registry) Option {
	return func(e *DecisionEngine) { e.sessions = sessions }
}

// DecisionEngine turns an access request into an access decision. It never
// returns an error: every failure becomes a DENY.
type DecisionEngine struct {
	policies  PolicySource
	evaluator *PolicyEvaluator
	cache     *cache.TrustCache
	sessions  *session.Registry
	accessLog *AccessLog
	audit     AuditSink
	events    EventPublisher
	metrics   *metrics.Metrics
	cfg       config.EngineConfig
	scorer    func(pdp_model.TrustContext) int
	now       func() time.Time
}

func NewDecisionEngine(policies PolicySource, trustCache *cache.TrustCache, cfg config.EngineConfig, opts ...Option) *DecisionEngine {
	if cfg.DecisionTTL <= 0 {
		cfg.DecisionTTL = time.Hour
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Minute
	}
	e := &DecisionEngine{
		policies:  policies,
		cache:     trustCache,
		sessions:  session.NewRegistry(),
		accessLog: NewAccessLog(cfg.AccessLogSize),
		cfg:       cfg,
		scorer:    ComputeTrustScore,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.evaluator = NewPolicyEvaluatorWithClock(e.now)
	return e
}

func (e *DecisionEngine) Sessions() *session.Registry {
	return e.sessions
}

// AccessHistory returns the identity's recent decisions, oldest first.
func (e *DecisionEngine) AccessHistory(userID string) []pdp_model.AccessLogEntry {
	return e.accessLog.History(userID)
}

// EvaluateAccess decides a single request.
func (e *DecisionEngine) EvaluateAccess(ctx context.Context, request pdp_model.AccessRequest) (decision pdp_model.AccessDecision) {
	start := time.Now()
	if ctx == nil {
		ctx = context.Background()
	}
	if e.cfg.EvaluationTimeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, e.cfg.EvaluationTimeout)
			defer cancel()
		}
	}

	// Once the side effects have started they are not run a second time.
	var cached *pdp_model.CacheKey
	recorded := false
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovered panic during access evaluation",
				zap.Any("panic", r),
				zap.String("requestID", request.RequestID),
				zap.ByteString("stack", debug.Stack()))
			if cached != nil {
				e.cache.Delete(*cached)
			}
			if recorded {
				decision = e.denyDecision(request, sentinel_errors.ErrInternalFault, start)
				return
			}
			decision = e.failClosed(ctx, request, sentinel_errors.ErrInternalFault, start)
		}
	}()

	request.Context = request.Context.Normalize()

	if request.RequestID == "" {
		return e.failClosed(ctx, request, sentinel_errors.ErrMissingRequestID, start)
	}
	if request.Context.UserID() == "" {
		return e.failClosed(ctx, request, sentinel_errors.ErrMissingIdentity, start)
	}
	if ctx.Err() != nil {
		return e.failClosed(ctx, request, sentinel_errors.ErrEvaluationTimeout, start)
	}

	policies, err := e.policies.ListPolicies(ctx)
	if err != nil {
		logger.Error("Failed to list policies for evaluation",
			zap.Error(err),
			zap.String("requestID", request.RequestID))
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return e.failClosed(ctx, request, sentinel_errors.ErrEvaluationTimeout, start)
		}
		return e.failClosed(ctx, request, sentinel_errors.ErrInternalFault, start)
	}

	trustScore, decision := e.decide(ctx, &request, policies)

	if ctx.Err() != nil {
		return e.failClosed(ctx, request, sentinel_errors.ErrEvaluationTimeout, start)
	}

	now := decision.EvaluatedAt
	key := pdp_model.CacheKey{IdentityID: request.Context.UserID(), DeviceID: request.Context.DeviceID()}
	cached = &key
	e.cache.Put(key, trustScore, e.cfg.CacheTTL)
	e.sessions.Track(request.Context, now)
	recorded = true
	e.record(ctx, request, decision)

	e.metrics.ObserveDecision(string(decision.Decision), time.Since(start))
	logger.Info("Access evaluated",
		zap.String("requestID", request.RequestID),
		zap.String("userID", key.IdentityID),
		zap.String("resource", request.Resource),
		zap.String("decision", string(decision.Decision)),
		zap.Int("trustScore", trustScore),
		zap.Strings("matchedPolicies", decision.MatchedPolicies))
	return decision
}

// decide runs the decision algorithm. It has no side effects other than
// policy:alert events and LOG action output.
func (e *DecisionEngine) decide(ctx context.Context, request *pdp_model.AccessRequest, policies []*model.SecurityPolicy) (int, pdp_model.AccessDecision) {
	now := e.now()
	trustScore := pdp_model.ClampScore(e.scorer(request.Context))
	riskScore := 100 - trustScore

	d := pdp_model.AccessDecision{
		RequestID:       request.RequestID,
		Decision:        pdp_model.DecisionAllow,
		MonitoringLevel: pdp_model.MonitoringNone,
		Requirements:    []string{},
		Reasoning:       []string{},
		Mitigations:     []string{},
		EvaluatedAt:     now,
	}

	byID := make(map[string]*model.SecurityPolicy, len(policies))
	for _, p := range policies {
		if p != nil {
			byID[p.ID] = p
		}
	}

	for _, result := range e.evaluator.EvaluateDetailed(request, policies) {
		if !result.Matched {
			continue
		}
		policy := byID[result.PolicyID]
		d.MatchedPolicies = append(d.MatchedPolicies, policy.ID)
		for _, action := range policy.Actions {
			e.applyAction(ctx, request, policy, action, &d)
		}
	}

	if d.Decision == pdp_model.DecisionAllow {
		switch {
		case riskScore > highRiskThreshold:
			d.Decision = pdp_model.DecisionDeny
			d.Reasoning = append(d.Reasoning, reasonHighRisk)
		case riskScore > elevatedRiskThreshold:
			d.Decision = pdp_model.DecisionChallenge
			d.Requirements = addRequirement(d.Requirements, pdp_model.RequirementAdditionalVerification)
			d.Reasoning = append(d.Reasoning, reasonElevatedRisk)
		case riskScore > moderateRiskThreshold:
			d.MonitoringLevel = raise(d.MonitoringLevel, pdp_model.MonitoringEnhanced)
			d.Reasoning = append(d.Reasoning, reasonModerateRisk)
		}
	}

	if request.Urgency == pdp_model.UrgencyEmergency && trustScore > emergencyMinTrust {
		d.Decision = pdp_model.DecisionAllow
		d.MonitoringLevel = pdp_model.MonitoringFull
		d.Mitigations = append(d.Mitigations, mitigationEmergency)
		d.Reasoning = append(d.Reasoning, "emergency override applied")
	}

	if d.Decision == pdp_model.DecisionChallenge && len(d.Requirements) == 0 {
		d.Requirements = append(d.Requirements, pdp_model.RequirementAdditionalVerification)
	}

	d.RiskScore = riskScore
	if d.Decision == pdp_model.DecisionAllow {
		d.Confidence = trustScore
	} else {
		d.Confidence = riskScore
	}
	d.ExpirationTime = now.Add(e.cfg.DecisionTTL)
	return trustScore, d
}

func (e *DecisionEngine) applyAction(ctx context.Context, request *pdp_model.AccessRequest, policy *model.SecurityPolicy, action model.Action, d *pdp_model.AccessDecision) {
	switch a := action.(type) {
	case model.AllowAction:
		d.Reasoning = append(d.Reasoning, fmt.Sprintf("policy %s allows access", policy.Name))
	case model.DenyAction:
		d.Decision = pdp_model.DecisionDeny
		msg := fmt.Sprintf("policy %s denies access", policy.Name)
		if a.Reason != "" {
			msg += ": " + a.Reason
		}
		d.Reasoning = append(d.Reasoning, msg)
	case model.ChallengeAction:
		if d.Decision != pdp_model.DecisionDeny {
			d.Decision = pdp_model.DecisionChallenge
		}
		d.Requirements = addRequirement(d.Requirements, a.ChallengeType)
		d.Reasoning = append(d.Reasoning, fmt.Sprintf("policy %s requires %s", policy.Name, a.ChallengeType))
	case model.MonitorAction:
		d.MonitoringLevel = raise(d.MonitoringLevel, a.Level)
		d.Reasoning = append(d.Reasoning, fmt.Sprintf("policy %s requests %s monitoring", policy.Name, a.Level))
	case model.LogAction:
		logger.Info("Policy log action",
			zap.String("policyID", policy.ID),
			zap.String("requestID", request.RequestID),
			zap.String("message", a.Message))
		d.Reasoning = append(d.Reasoning, fmt.Sprintf("policy %s logged the request", policy.Name))
	case model.AlertAction:
		d.Reasoning = append(d.Reasoning, fmt.Sprintf("policy %s raised a %s alert", policy.Name, a.Severity))
		e.publish(ctx, pdp_model.EventPolicyAlert, pdp_model.PolicyAlertEvent{
			PolicyID:  policy.ID,
			RequestID: request.RequestID,
			Severity:  a.Severity,
			Message:   a.Message,
		})
	default:
		logger.Warn("Unknown policy action", zap.String("policyID", policy.ID), zap.Any("action", action))
	}
}

// failClosed builds the DENY returned for faults, timeouts and missing
// identifiers and records it. The trust cache is left untouched.
func (e *DecisionEngine) failClosed(ctx context.Context, request pdp_model.AccessRequest, cause error, start time.Time) pdp_model.AccessDecision {
	d := e.denyDecision(request, cause, start)
	e.record(context.WithoutCancel(ctx), request, d)
	return d
}

func (e *DecisionEngine) denyDecision(request pdp_model.AccessRequest, cause error, start time.Time) pdp_model.AccessDecision {
	now := e.now()
	d := pdp_model.AccessDecision{
		RequestID:       request.RequestID,
		Decision:        pdp_model.DecisionDeny,
		Confidence:      0,
		RiskScore:       100,
		Requirements:    []string{},
		MonitoringLevel: pdp_model.MonitoringFull,
		ExpirationTime:  now.Add(e.cfg.DecisionTTL),
		Reasoning:       []string{cause.Error()},
		Mitigations:     []string{},
		EvaluatedAt:     now,
	}

	logger.Warn("Access denied by fail-closed path",
		zap.String("requestID", request.RequestID),
		zap.String("userID", request.Context.UserID()),
		zap.Error(cause))
	e.metrics.FailClosed(cause.Error())
	e.metrics.ObserveDecision(string(d.Decision), time.Since(start))
	return d
}

// record runs the post-decision side effects shared by both paths.
func (e *DecisionEngine) record(ctx context.Context, request pdp_model.AccessRequest, d pdp_model.AccessDecision) {
	e.accessLog.Record(request.Context.UserID(), pdp_model.AccessLogEntry{
		RequestID: request.RequestID,
		Resource:  request.Resource,
		Action:    request.Action,
		Decision:  d.Decision,
		RiskScore: d.RiskScore,
		Timestamp: d.EvaluatedAt,
	})

	switch d.Decision {
	case pdp_model.DecisionDeny:
		e.publish(ctx, pdp_model.EventAccessDenied, pdp_model.AccessEvent{Request: request, Decision: d})
	case pdp_model.DecisionChallenge:
		e.publish(ctx, pdp_model.EventAccessChallenged, pdp_model.AccessEvent{Request: request, Decision: d})
	}

	if e.audit != nil {
		e.contain("audit", request.RequestID, func() { e.audit.Record(ctx, request, d) })
	}
}

func (e *DecisionEngine) publish(ctx context.Context, eventType string, payload interface{}) {
	if e.events == nil {
		return
	}
	requestID := ""
	switch p := payload.(type) {
	case pdp_model.AccessEvent:
		requestID = p.Request.RequestID
	case pdp_model.PolicyAlertEvent:
		requestID = p.RequestID
	}
	e.contain(eventType, requestID, func() { e.events.Publish(ctx, eventType, payload) })
}

// contain runs a collaborator side effect. A panic is logged and dropped so
// it cannot change a decision that has already been made.
func (e *DecisionEngine) contain(effect, requestID string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovered panic in decision side effect",
				zap.String("effect", effect),
				zap.String("requestID", requestID),
				zap.Any("panic", r))
		}
	}()
	fn()
}

func addRequirement(reqs []string, r string) []string {
	for _, existing := range reqs {
		if existing == r {
			return reqs
		}
	}
	return append(reqs, r)
}

func raise(current, level pdp_model.MonitoringLevel) pdp_model.MonitoringLevel {
	if level.Rank() > current.Rank() {
		return level
	}
	return current
}
