package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	sentinel_errors "github.com/dev-mohitbeniwal/sentinel/errors"
	logger "github.com/dev-mohitbeniwal/sentinel/logging"
	"github.com/dev-mohitbeniwal/sentinel/model"
)

// Policy lifecycle events.
const (
	EventPolicyCreated = "policy.created"
	EventPolicyUpdated = "policy.updated"
	EventPolicyDeleted = "policy.deleted"
)

// PolicyChangedEvent is the payload of policy.updated. Old is nil for
// policy.created events.
type PolicyChangedEvent struct {
	Old *model.SecurityPolicy
	New *model.SecurityPolicy
}

// PolicyRepository persists policies outside the process.
type PolicyRepository interface {
	CreatePolicy(ctx context.Context, policy *model.SecurityPolicy) error
	UpdatePolicy(ctx context.Context, policy *model.SecurityPolicy) error
	DeletePolicy(ctx context.Context, policyID string) error
	ListPolicies(ctx context.Context) ([]*model.SecurityPolicy, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, eventType string, payload interface{})
}

// PolicyService owns the policy set. Policies keep insertion order, which is
// the order the decision engine applies them in. Priority is stored but not
// used for ordering.
//
// Readers load an immutable snapshot and never wait on a repository write.
// Writers are serialized by writeMu, which is held across the repository call.
type PolicyService struct {
	writeMu sync.Mutex
	set     atomic.Pointer[policySet]

	repo     PolicyRepository
	eventBus eventPublisher
	now      func() time.Time
}

// policySet is never modified after it is published.
type policySet struct {
	byID  map[string]*model.SecurityPolicy
	order []string
}

func (ps *policySet) with(policies ...*model.SecurityPolicy) *policySet {
	next := &policySet{
		byID:  make(map[string]*model.SecurityPolicy, len(ps.byID)+len(policies)),
		order: make([]string, len(ps.order), len(ps.order)+len(policies)),
	}
	copy(next.order, ps.order)
	for id, p := range ps.byID {
		next.byID[id] = p
	}
	for _, p := range policies {
		if _, exists := next.byID[p.ID]; !exists {
			next.order = append(next.order, p.ID)
		}
		next.byID[p.ID] = p
	}
	return next
}

func (ps *policySet) without(policyID string) *policySet {
	next := &policySet{
		byID:  make(map[string]*model.SecurityPolicy, len(ps.byID)),
		order: make([]string, 0, len(ps.order)),
	}
	for _, id := range ps.order {
		if id == policyID {
			continue
		}
		next.order = append(next.order, id)
		next.byID[id] = ps.byID[id]
	}
	return next
}

// NewPolicyService creates an empty store. repo and eventBus may be nil.
func NewPolicyService(repo PolicyRepository, eventBus eventPublisher) *PolicyService {
	s := &PolicyService{
		repo:     repo,
		eventBus: eventBus,
		now:      time.Now,
	}
	s.set.Store(&policySet{byID: make(map[string]*model.SecurityPolicy)})
	return s
}

// prepare validates a new policy and stamps its first version.
func (s *PolicyService) prepare(policy *model.SecurityPolicy, field string) (*model.SecurityPolicy, error) {
	if policy == nil {
		return nil, sentinel_errors.NewPolicyConfigError("", field, "policy cannot be nil")
	}
	p := policy.Clone()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if err := p.Compile(); err != nil {
		return nil, err
	}
	p.Version = 1
	p.LastModified = s.now().UTC()
	return p, nil
}

// AddPolicy validates and stores a new policy. An empty ID is replaced by a
// generated one.
func (s *PolicyService) AddPolicy(ctx context.Context, policy *model.SecurityPolicy) (*model.SecurityPolicy, error) {
	p, err := s.prepare(policy, "policy")
	if err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	current := s.set.Load()
	if _, exists := current.byID[p.ID]; exists {
		s.writeMu.Unlock()
		return nil, fmt.Errorf("policy %s: %w", p.ID, sentinel_errors.ErrPolicyConflict)
	}
	if err := s.persist(ctx, func(repo PolicyRepository) error { return repo.CreatePolicy(ctx, p) }); err != nil {
		s.writeMu.Unlock()
		logger.Error("Error creating policy", zap.Error(err), zap.String("policyID", p.ID))
		return nil, err
	}
	s.set.Store(current.with(p))
	s.writeMu.Unlock()

	s.publish(ctx, EventPolicyCreated, PolicyChangedEvent{New: p.Clone()})
	logger.Info("Policy created successfully", zap.String("policyID", p.ID), zap.String("name", p.Name))
	return p.Clone(), nil
}

// UpdatePolicy replaces the policy stored under policyID. The policy keeps
// its position in the iteration order.
func (s *PolicyService) UpdatePolicy(ctx context.Context, policyID string, policy *model.SecurityPolicy) (*model.SecurityPolicy, error) {
	if policy == nil {
		return nil, sentinel_errors.NewPolicyConfigError(policyID, "policy", "policy cannot be nil")
	}
	p := policy.Clone()
	p.ID = policyID
	if err := p.Compile(); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	current := s.set.Load()
	old, ok := current.byID[policyID]
	if !ok {
		s.writeMu.Unlock()
		return nil, sentinel_errors.ErrPolicyNotFound
	}
	p.Version = old.Version + 1
	p.LastModified = s.now().UTC()
	if err := s.persist(ctx, func(repo PolicyRepository) error { return repo.UpdatePolicy(ctx, p) }); err != nil {
		s.writeMu.Unlock()
		logger.Error("Error updating policy", zap.Error(err), zap.String("policyID", policyID))
		return nil, err
	}
	s.set.Store(current.with(p))
	s.writeMu.Unlock()

	s.publish(ctx, EventPolicyUpdated, PolicyChangedEvent{Old: old.Clone(), New: p.Clone()})
	logger.Info("Policy updated successfully",
		zap.String("policyID", policyID),
		zap.Int("oldVersion", old.Version),
		zap.Int("newVersion", p.Version))
	return p.Clone(), nil
}

// SetPolicyEnabled toggles a policy. A disabled policy is ignored by the
// evaluator exactly as if it had been removed.
func (s *PolicyService) SetPolicyEnabled(ctx context.Context, policyID string, enabled bool) (*model.SecurityPolicy, error) {
	current, ok := s.set.Load().byID[policyID]
	if !ok {
		return nil, sentinel_errors.ErrPolicyNotFound
	}
	p := current.Clone()

	if p.Enabled == enabled {
		return p, nil
	}
	p.Enabled = enabled
	return s.UpdatePolicy(ctx, policyID, p)
}

// RemovePolicy deletes a policy.
func (s *PolicyService) RemovePolicy(ctx context.Context, policyID string) error {
	s.writeMu.Lock()
	current := s.set.Load()
	if _, ok := current.byID[policyID]; !ok {
		s.writeMu.Unlock()
		return sentinel_errors.ErrPolicyNotFound
	}
	if err := s.persist(ctx, func(repo PolicyRepository) error { return repo.DeletePolicy(ctx, policyID) }); err != nil {
		s.writeMu.Unlock()
		logger.Error("Error deleting policy", zap.Error(err), zap.String("policyID", policyID))
		return err
	}
	s.set.Store(current.without(policyID))
	s.writeMu.Unlock()

	s.publish(ctx, EventPolicyDeleted, policyID)
	logger.Info("Policy deleted successfully", zap.String("policyID", policyID))
	return nil
}

// GetPolicy retrieves a copy of a policy by its ID.
func (s *PolicyService) GetPolicy(ctx context.Context, policyID string) (*model.SecurityPolicy, error) {
	p, ok := s.set.Load().byID[policyID]
	if !ok {
		return nil, sentinel_errors.ErrPolicyNotFound
	}
	return p.Clone(), nil
}

// ListPolicies returns copies of all policies in insertion order.
func (s *PolicyService) ListPolicies(ctx context.Context) ([]*model.SecurityPolicy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	current := s.set.Load()
	out := make([]*model.SecurityPolicy, 0, len(current.order))
	for _, id := range current.order {
		out = append(out, current.byID[id].Clone())
	}
	return out, nil
}

// LoadPolicies validates a batch in parallel and then adds it in order. No
// policy is added unless the whole batch is valid and none of its IDs is
// already taken. A repository failure keeps the policies persisted before it.
func (s *PolicyService) LoadPolicies(ctx context.Context, policies []*model.SecurityPolicy) (int, error) {
	prepared := make([]*model.SecurityPolicy, len(policies))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(10)

	for i, policy := range policies {
		i, policy := i, policy
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			p, err := s.prepare(policy, fmt.Sprintf("policies[%d]", i))
			if err != nil {
				return err
			}
			prepared[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("Error validating policy batch", zap.Error(err), zap.Int("count", len(policies)))
		return 0, err
	}

	s.writeMu.Lock()
	current := s.set.Load()
	seen := make(map[string]bool, len(prepared))
	for _, p := range prepared {
		if _, exists := current.byID[p.ID]; exists || seen[p.ID] {
			s.writeMu.Unlock()
			logger.Error("Duplicate policy ID in batch", zap.String("policyID", p.ID))
			return 0, fmt.Errorf("failed to load policy %q: policy %s: %w", p.Name, p.ID, sentinel_errors.ErrPolicyConflict)
		}
		seen[p.ID] = true
	}

	loaded := make([]*model.SecurityPolicy, 0, len(prepared))
	var persistErr error
	for _, p := range prepared {
		p := p
		if err := s.persist(ctx, func(repo PolicyRepository) error { return repo.CreatePolicy(ctx, p) }); err != nil {
			persistErr = fmt.Errorf("failed to load policy %q: %w", p.Name, err)
			break
		}
		loaded = append(loaded, p)
	}
	s.set.Store(current.with(loaded...))
	s.writeMu.Unlock()

	for _, p := range loaded {
		s.publish(ctx, EventPolicyCreated, PolicyChangedEvent{New: p.Clone()})
	}
	if persistErr != nil {
		logger.Error("Error loading policy batch", zap.Error(persistErr), zap.Int("loaded", len(loaded)))
		return len(loaded), persistErr
	}
	logger.Info("Policy batch loaded", zap.Int("count", len(loaded)))
	return len(loaded), nil
}

// Restore fills the store from the repository without writing back. It is
// used once at startup.
func (s *PolicyService) Restore(ctx context.Context) (int, error) {
	if s.repo == nil {
		return 0, nil
	}
	policies, err := s.repo.ListPolicies(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to restore policies: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current := s.set.Load()
	restored := make([]*model.SecurityPolicy, 0, len(policies))
	seen := make(map[string]bool, len(policies))
	for _, p := range policies {
		if err := p.Compile(); err != nil {
			logger.Warn("Skipping stored policy that no longer validates", zap.Error(err), zap.String("policyID", p.ID))
			continue
		}
		if _, exists := current.byID[p.ID]; exists || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		restored = append(restored, p)
	}
	s.set.Store(current.with(restored...))
	return len(restored), nil
}

func (s *PolicyService) persist(ctx context.Context, op func(PolicyRepository) error) error {
	if s.repo == nil {
		return nil
	}
	if err := op(s.repo); err != nil {
		if errors.Is(err, sentinel_errors.ErrDatabaseOperation) {
			return err
		}
		return fmt.Errorf("%w: %v", sentinel_errors.ErrDatabaseOperation, err)
	}
	return nil
}

func (s *PolicyService) publish(ctx context.Context, eventType string, payload interface{}) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(ctx, eventType, payload)
}
