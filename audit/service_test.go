package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sentinel_errors "github.com/dev-mohitbeniwal/sentinel/errors"
	"github.com/dev-mohitbeniwal/sentinel/metrics"
	pdp_model "github.com/dev-mohitbeniwal/sentinel/pdp/model"
)

var t0 = time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

func sampleRequest() pdp_model.AccessRequest {
	return pdp_model.AccessRequest{
		RequestID: "req-1",
		Resource:  "payroll",
		Action:    pdp_model.ActionRead,
		Context: pdp_model.TrustContext{
			Identity: &pdp_model.IdentityContext{UserID: "user1", DeviceID: "deviceA", SessionID: "session-1"},
		},
	}
}

func sampleDecision() pdp_model.AccessDecision {
	return pdp_model.AccessDecision{
		RequestID:       "req-1",
		Decision:        pdp_model.DecisionChallenge,
		RiskScore:       65,
		Confidence:      65,
		Requirements:    []string{pdp_model.RequirementMFA},
		MonitoringLevel: pdp_model.MonitoringEnhanced,
		Reasoning:       []string{"risky"},
		MatchedPolicies: []string{"p1"},
		EvaluatedAt:     t0,
	}
}

func TestNewAuditLog(t *testing.T) {
	decision := sampleDecision()
	log := NewAuditLog(sampleRequest(), decision)

	assert.NotEmpty(t, log.ID)
	assert.Equal(t, t0, log.Timestamp)
	assert.Equal(t, "req-1", log.RequestID)
	assert.Equal(t, "user1", log.UserID)
	assert.Equal(t, "deviceA", log.DeviceID)
	assert.Equal(t, "session-1", log.SessionID)
	assert.Equal(t, "payroll", log.ResourceID)
	assert.Equal(t, "CHALLENGE", log.Decision)
	assert.False(t, log.AccessGranted)
	assert.Equal(t, []string{"MFA"}, log.Requirements)
	assert.Equal(t, []string{"p1"}, log.PolicyIDs)

	decision.Requirements[0] = "changed"
	assert.Equal(t, "MFA", log.Requirements[0])
}

func TestAsyncService_DrainsOnClose(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, 16, nil)
	svc.Start()

	for i := 0; i < 10; i++ {
		svc.Record(context.Background(), sampleRequest(), sampleDecision())
	}
	require.NoError(t, svc.Close(context.Background()))
	assert.Equal(t, 10, repo.Len())

	err := svc.LogAccess(context.Background(), AuditLog{})
	assert.ErrorIs(t, err, sentinel_errors.ErrAuditClosed)
	assert.NoError(t, svc.Close(context.Background()))
}

func TestAsyncService_QueueFull(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	svc := NewService(NewMemoryRepository(), 1, m)

	require.NoError(t, svc.LogAccess(context.Background(), AuditLog{RequestID: "a"}))
	err := svc.LogAccess(context.Background(), AuditLog{RequestID: "b"})
	assert.ErrorIs(t, err, sentinel_errors.ErrAuditQueueFull)

	svc.Record(context.Background(), sampleRequest(), sampleDecision())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuditDropped))
}

type blockingRepository struct {
	*MemoryRepository
	release chan struct{}
}

func (r *blockingRepository) LogAccess(ctx context.Context, log AuditLog) error {
	<-r.release
	return r.MemoryRepository.LogAccess(ctx, log)
}

func TestAsyncService_CloseHonoursContext(t *testing.T) {
	repo := &blockingRepository{MemoryRepository: NewMemoryRepository(), release: make(chan struct{})}
	svc := NewService(repo, 4, nil)
	svc.Start()
	require.NoError(t, svc.LogAccess(context.Background(), AuditLog{}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.Close(ctx), context.DeadlineExceeded)

	close(repo.release)
	assert.Eventually(t, func() bool { return repo.Len() == 1 }, time.Second, 5*time.Millisecond)
}

type failingRepository struct {
	MemoryRepository
	mu    sync.Mutex
	calls int
}

func (r *failingRepository) LogAccess(ctx context.Context, log AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return errors.New("sink unavailable")
}

func TestAsyncService_WriteFailureDoesNotStopWorker(t *testing.T) {
	repo := &failingRepository{}
	svc := NewService(repo, 4, nil)
	svc.Start()

	require.NoError(t, svc.LogAccess(context.Background(), AuditLog{}))
	require.NoError(t, svc.LogAccess(context.Background(), AuditLog{}))
	require.NoError(t, svc.Close(context.Background()))

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, 2, repo.calls)
}

func TestMemoryRepository_QueryLogs(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	records := []AuditLog{
		{ID: "3", Timestamp: t0.Add(2 * time.Hour), UserID: "user1", ResourceID: "payroll"},
		{ID: "1", Timestamp: t0, UserID: "user1", ResourceID: "payroll"},
		{ID: "2", Timestamp: t0.Add(time.Hour), UserID: "user2", ResourceID: "payroll"},
		{ID: "4", Timestamp: t0.Add(time.Hour), UserID: "user1", ResourceID: "wiki"},
		{ID: "5", Timestamp: t0.Add(48 * time.Hour), UserID: "user1", ResourceID: "payroll"},
	}
	for _, r := range records {
		require.NoError(t, repo.LogAccess(ctx, r))
	}

	ids := func(logs []AuditLog) []string {
		var out []string
		for _, l := range logs {
			out = append(out, l.ID)
		}
		return out
	}

	all, err := repo.QueryLogs(ctx, t0, t0.Add(24*time.Hour), "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "4", "3"}, ids(all))

	byUser, err := repo.QueryLogs(ctx, t0, t0.Add(24*time.Hour), "user1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "4", "3"}, ids(byUser))

	byBoth, err := repo.QueryLogs(ctx, t0, t0.Add(24*time.Hour), "user1", "payroll")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, ids(byBoth))

	none, err := repo.QueryLogs(ctx, t0.Add(-time.Hour), t0.Add(-time.Minute), "", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}
