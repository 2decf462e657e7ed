// service/services.go
package service

import (
	"context"

	"github.com/dev-mohitbeniwal/sentinel/audit"
	"github.com/dev-mohitbeniwal/sentinel/model"
	pdp_model "github.com/dev-mohitbeniwal/sentinel/pdp/model"
)

type IPolicyService interface {
	AddPolicy(ctx context.Context, policy *model.SecurityPolicy) (*model.SecurityPolicy, error)
	UpdatePolicy(ctx context.Context, policyID string, policy *model.SecurityPolicy) (*model.SecurityPolicy, error)
	SetPolicyEnabled(ctx context.Context, policyID string, enabled bool) (*model.SecurityPolicy, error)
	RemovePolicy(ctx context.Context, policyID string) error
	GetPolicy(ctx context.Context, policyID string) (*model.SecurityPolicy, error)
	ListPolicies(ctx context.Context) ([]*model.SecurityPolicy, error)
	LoadPolicies(ctx context.Context, policies []*model.SecurityPolicy) (int, error)
}

// IAccessService is the decision surface used by the HTTP layer. The
// decision engine implements it.
type IAccessService interface {
	EvaluateAccess(ctx context.Context, request pdp_model.AccessRequest) pdp_model.AccessDecision
	AuthorizeOrder(ctx context.Context, order pdp_model.Order) pdp_model.AccessDecision
	AccessHistory(userID string) []pdp_model.AccessLogEntry
}

type Services struct {
	Policy IPolicyService
	Access IAccessService
	Audit  audit.Service
}

var _ IPolicyService = (*PolicyService)(nil)
