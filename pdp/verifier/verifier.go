// Package verifier re-scores tracked sessions on a schedule and reports
// sessions whose trust has degraded or whose validation has gone stale.
package verifier

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dev-mohitbeniwal/sentinel/config"
	logger "github.com/dev-mohitbeniwal/sentinel/logging"
	"github.com/dev-mohitbeniwal/sentinel/metrics"
	"github.com/dev-mohitbeniwal/sentinel/pdp/cache"
	"github.com/dev-mohitbeniwal/sentinel/pdp/engine"
	pdp_model "github.com/dev-mohitbeniwal/sentinel/pdp/model"
	"github.com/dev-mohitbeniwal/sentinel/pdp/session"
)

// SnapshotStore persists the trust cache between restarts.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, entries map[pdp_model.CacheKey]pdp_model.CacheEntry) error
}

// VerifyReport summarizes one verification tick.
type VerifyReport struct {
	Checked  int
	Degraded int
	Reauth   int
}

// SweepReport summarizes one sweep tick.
type SweepReport struct {
	Evicted   int
	Remaining int
	Pruned    int
	Persisted int
}

type Option func(*ContinuousVerifier)

func WithClock(now func() time.Time) Option {
	return func(v *ContinuousVerifier) { v.now = now }
}

func WithScorer(scorer func(pdp_model.TrustContext) int) Option {
	return func(v *ContinuousVerifier) { v.scorer = scorer }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(v *ContinuousVerifier) { v.metrics = m }
}

func WithSnapshotStore(store SnapshotStore) Option {
	return func(v *ContinuousVerifier) { v.snapshots = store }
}

type ContinuousVerifier struct {
	sessions  *session.Registry
	cache     *cache.TrustCache
	events    engine.EventPublisher
	snapshots SnapshotStore
	metrics   *metrics.Metrics
	cfg       config.EngineConfig
	scorer    func(pdp_model.TrustContext) int
	now       func() time.Time

	scoresMu   sync.Mutex
	lastScores map[string]int

	runMu   sync.Mutex
	cancel  context.CancelFunc
	group   *errgroup.Group
	running bool
}

func NewContinuousVerifier(sessions *session.Registry, trustCache *cache.TrustCache, events engine.EventPublisher, cfg config.EngineConfig, opts ...Option) *ContinuousVerifier {
	if cfg.VerifyInterval <= 0 {
		cfg.VerifyInterval = time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Minute
	}
	if cfg.ReverifyWindow <= 0 {
		cfg.ReverifyWindow = 30 * time.Minute
	}
	if cfg.DegradedThreshold <= 0 {
		cfg.DegradedThreshold = 50
	}
	if cfg.SessionIdleTimeout <= 0 {
		cfg.SessionIdleTimeout = 2 * cfg.ReverifyWindow
	}
	v := &ContinuousVerifier{
		sessions:   sessions,
		cache:      trustCache,
		events:     events,
		cfg:        cfg,
		scorer:     engine.ComputeTrustScore,
		now:        time.Now,
		lastScores: make(map[string]int),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Start launches the verify and sweep loops. Calling Start on a running
// verifier is a no-op.
func (v *ContinuousVerifier) Start(ctx context.Context) {
	v.runMu.Lock()
	defer v.runMu.Unlock()
	if v.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return v.loop(gctx, "verify", v.cfg.VerifyInterval, func(ctx context.Context) { v.VerifyOnce(ctx) })
	})
	g.Go(func() error {
		return v.loop(gctx, "sweep", v.cfg.SweepInterval, func(ctx context.Context) { v.SweepOnce(ctx) })
	})

	v.cancel = cancel
	v.group = g
	v.running = true
	logger.Info("Continuous verifier started",
		zap.Duration("verifyInterval", v.cfg.VerifyInterval),
		zap.Duration("sweepInterval", v.cfg.SweepInterval))
}

// Stop cancels both loops and waits for any in-flight tick to finish.
func (v *ContinuousVerifier) Stop() {
	v.runMu.Lock()
	defer v.runMu.Unlock()
	if !v.running {
		return
	}
	v.cancel()
	if err := v.group.Wait(); err != nil {
		logger.Error("Continuous verifier stopped with error", zap.Error(err))
	}
	v.running = false
	logger.Info("Continuous verifier stopped")
}

func (v *ContinuousVerifier) loop(ctx context.Context, kind string, interval time.Duration, tick func(context.Context)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			v.safeTick(ctx, kind, tick)
		}
	}
}

func (v *ContinuousVerifier) safeTick(ctx context.Context, kind string, tick func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovered panic in verifier tick", zap.String("kind", kind), zap.Any("panic", r))
		}
	}()
	tick(ctx)
	v.metrics.VerifierTick(kind)
}

// VerifyOnce re-scores every tracked session once.
func (v *ContinuousVerifier) VerifyOnce(ctx context.Context) VerifyReport {
	var report VerifyReport
	sessions := v.sessions.Snapshot()
	v.metrics.SessionsTracked(len(sessions))

	for _, s := range sessions {
		if ctx.Err() != nil {
			break
		}
		report.Checked++
		score := v.scorer(s.Context)
		previous, hasPrevious := v.swapScore(s.SessionID, score)
		event := pdp_model.SessionEvent{
			SessionID:     s.SessionID,
			UserID:        s.UserID,
			DeviceID:      s.DeviceID,
			TrustScore:    score,
			PreviousScore: previous,
			HasPrevious:   hasPrevious,
		}

		if score < v.cfg.DegradedThreshold {
			report.Degraded++
			logger.Warn("Session trust degraded",
				zap.String("sessionID", s.SessionID),
				zap.String("userID", s.UserID),
				zap.Int("trustScore", score))
			v.publish(ctx, pdp_model.EventTrustDegraded, event)
			v.metrics.VerifierEvent(pdp_model.EventTrustDegraded)
		}

		now := v.now()
		var lastValidation time.Time
		if s.Context.Behavior != nil {
			lastValidation = s.Context.Behavior.LastValidation
		}
		if now.Sub(lastValidation) > v.cfg.ReverifyWindow {
			report.Reauth++
			logger.Info("Session requires re-authentication",
				zap.String("sessionID", s.SessionID),
				zap.Time("lastValidation", lastValidation))
			v.publish(ctx, pdp_model.EventSessionReauthRequired, event)
			v.metrics.VerifierEvent(pdp_model.EventSessionReauthRequired)
			// The validation clock restarts when re-auth is requested.
			v.sessions.MarkValidated(s.SessionID, now)
		}
	}
	return report
}

func (v *ContinuousVerifier) publish(ctx context.Context, eventType string, event pdp_model.SessionEvent) {
	if v.events != nil {
		v.events.Publish(ctx, eventType, event)
	}
}

func (v *ContinuousVerifier) swapScore(sessionID string, score int) (int, bool) {
	v.scoresMu.Lock()
	defer v.scoresMu.Unlock()
	previous, ok := v.lastScores[sessionID]
	v.lastScores[sessionID] = score
	return previous, ok
}

// SweepOnce evicts expired cache entries, prunes idle sessions and flushes a
// cache snapshot to the snapshot store.
func (v *ContinuousVerifier) SweepOnce(ctx context.Context) SweepReport {
	var report SweepReport
	report.Evicted = v.cache.Sweep()
	report.Remaining = v.cache.Len()
	v.metrics.CacheEvicted(report.Evicted)
	v.metrics.CacheSize(report.Remaining)

	report.Pruned = v.sessions.Prune(v.now().Add(-v.cfg.SessionIdleTimeout))
	if report.Pruned > 0 {
		v.forgetUntracked()
	}

	if v.snapshots != nil {
		snapshot := v.cache.Snapshot()
		if err := v.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
			logger.Error("Failed to persist trust cache snapshot", zap.Error(err))
		} else {
			report.Persisted = len(snapshot)
		}
	}

	logger.Debug("Trust cache swept",
		zap.Int("evicted", report.Evicted),
		zap.Int("remaining", report.Remaining),
		zap.Int("pruned", report.Pruned))
	return report
}

func (v *ContinuousVerifier) forgetUntracked() {
	v.scoresMu.Lock()
	defer v.scoresMu.Unlock()
	for id := range v.lastScores {
		if _, ok := v.sessions.Get(id); !ok {
			delete(v.lastScores, id)
		}
	}
}
