// audit/service.go
package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	sentinel_errors "github.com/dev-mohitbeniwal/sentinel/errors"
	logger "github.com/dev-mohitbeniwal/sentinel/logging"
	"github.com/dev-mohitbeniwal/sentinel/metrics"
	pdp_model "github.com/dev-mohitbeniwal/sentinel/pdp/model"
)

const (
	defaultQueueSize = 1024
	writeTimeout     = 5 * time.Second
)

type Service interface {
	LogAccess(ctx context.Context, log AuditLog) error
	QueryLogs(ctx context.Context, from, to time.Time, userID, resourceID string) ([]AuditLog, error)
}

// AsyncService queues audit records and writes them to the repository from a
// single worker, so a slow sink never blocks a decision.
type AsyncService struct {
	repo    Repository
	queue   chan AuditLog
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewService(repo Repository, queueSize int, m *metrics.Metrics) *AsyncService {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &AsyncService{
		repo:    repo,
		queue:   make(chan AuditLog, queueSize),
		metrics: m,
	}
}

// Start launches the writer. Call once.
func (s *AsyncService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for log := range s.queue {
			s.write(log)
		}
	}()
}

func (s *AsyncService) write(log AuditLog) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.repo.LogAccess(ctx, log); err != nil {
		logger.Error("Failed to write audit log",
			zap.Error(err),
			zap.String("requestID", log.RequestID),
			zap.String("decision", log.Decision))
	}
}

// LogAccess enqueues log without blocking.
func (s *AsyncService) LogAccess(ctx context.Context, log AuditLog) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.metrics.AuditDrop()
		return sentinel_errors.ErrAuditClosed
	}
	select {
	case s.queue <- log:
		return nil
	default:
		s.metrics.AuditDrop()
		return sentinel_errors.ErrAuditQueueFull
	}
}

// Record forwards a decision to the audit sink. Failures are logged only.
func (s *AsyncService) Record(ctx context.Context, request pdp_model.AccessRequest, decision pdp_model.AccessDecision) {
	if err := s.LogAccess(ctx, NewAuditLog(request, decision)); err != nil {
		logger.Warn("Audit record dropped",
			zap.Error(err),
			zap.String("requestID", decision.RequestID))
	}
}

func (s *AsyncService) QueryLogs(ctx context.Context, from, to time.Time, userID, resourceID string) ([]AuditLog, error) {
	return s.repo.QueryLogs(ctx, from, to, userID, resourceID)
}

// Close stops accepting records and waits until the queue is drained or ctx
// is done.
func (s *AsyncService) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
