// dao/policy_dao.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/sentinel/audit"
	sentinel_errors "github.com/dev-mohitbeniwal/sentinel/errors"
	logger "github.com/dev-mohitbeniwal/sentinel/logging"
	"github.com/dev-mohitbeniwal/sentinel/model"
	"github.com/dev-mohitbeniwal/sentinel/util"
)

// PolicyDAO stores security policies as SECURITY_POLICY nodes. Conditions
// and actions are kept as JSON strings in their wire form.
type PolicyDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewPolicyDAO(driver neo4j.Driver, auditService audit.Service) (*PolicyDAO, error) {
	dao := &PolicyDAO{Driver: driver, AuditService: auditService}
	if err := dao.EnsureUniqueConstraint(context.Background()); err != nil {
		return nil, err
	}
	return dao, nil
}

// EnsureUniqueConstraint ensures the unique constraint on the policy ID
func (dao *PolicyDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraint on SecurityPolicy ID")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() {
		if err := session.Close(); err != nil {
			logger.Error("Failed to close Neo4j session", zap.Error(err))
		}
	}()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_security_policy_id IF NOT EXISTS
        FOR (p:SECURITY_POLICY) REQUIRE p.id IS UNIQUE
        `
		if _, err := transaction.Run(query, nil); err != nil {
			return nil, fmt.Errorf("failed to create unique constraint: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to ensure unique constraint on SecurityPolicy ID", zap.Error(err))
		return err
	}
	return nil
}

// CreatePolicy creates a new policy node.
func (dao *PolicyDAO) CreatePolicy(ctx context.Context, policy *model.SecurityPolicy) error {
	start := time.Now()
	if policy.ID == "" {
		policy.ID = uuid.New().String()
	}
	props, err := policyToProps(policy)
	if err != nil {
		return err
	}
	props["createdAt"] = time.Now().UnixNano()

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err = session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		checkResult, err := transaction.Run(`MATCH (p:SECURITY_POLICY {id: $id}) RETURN p.id`, map[string]interface{}{"id": policy.ID})
		if err != nil {
			return nil, sentinel_errors.ErrDatabaseOperation
		}
		if checkResult.Next() {
			return nil, sentinel_errors.ErrPolicyConflict
		}

		query := `
        CREATE (p:SECURITY_POLICY {id: $id})
        SET p += $props
        RETURN p.id AS id
        `
		result, err := transaction.Run(query, map[string]interface{}{"id": policy.ID, "props": props})
		if err != nil {
			return nil, sentinel_errors.ErrDatabaseOperation
		}
		if !result.Next() {
			return nil, sentinel_errors.ErrInternalServer
		}
		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create policy",
			zap.Error(err),
			zap.String("policyID", policy.ID),
			zap.Duration("duration", duration))
		return err
	}
	logger.Info("Policy node created",
		zap.String("policyID", policy.ID),
		zap.Duration("duration", duration))

	dao.auditChange(ctx, "CREATE_POLICY", policy.ID, policy)
	return nil
}

// UpdatePolicy overwrites every stored field except the creation stamp.
func (dao *PolicyDAO) UpdatePolicy(ctx context.Context, policy *model.SecurityPolicy) error {
	start := time.Now()
	props, err := policyToProps(policy)
	if err != nil {
		return err
	}

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err = session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (p:SECURITY_POLICY {id: $id})
        SET p += $props
        RETURN p.id AS id
        `
		result, err := transaction.Run(query, map[string]interface{}{"id": policy.ID, "props": props})
		if err != nil {
			return nil, fmt.Errorf("failed to execute update query: %w", err)
		}
		if !result.Next() {
			return nil, sentinel_errors.ErrPolicyNotFound
		}
		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to update policy",
			zap.Error(err),
			zap.String("policyID", policy.ID),
			zap.Duration("duration", duration))
		return fmt.Errorf("failed to update policy: %w", err)
	}
	logger.Info("Policy node updated",
		zap.String("policyID", policy.ID),
		zap.Int("version", policy.Version),
		zap.Duration("duration", duration))

	dao.auditChange(ctx, "UPDATE_POLICY", policy.ID, policy)
	return nil
}

// DeletePolicy deletes a policy node.
func (dao *PolicyDAO) DeletePolicy(ctx context.Context, policyID string) error {
	start := time.Now()
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		result, err := transaction.Run(`MATCH (p:SECURITY_POLICY {id: $id}) DETACH DELETE p`, map[string]interface{}{"id": policyID})
		if err != nil {
			return nil, fmt.Errorf("failed to execute delete query: %w", err)
		}
		summary, err := result.Consume()
		if err != nil {
			return nil, fmt.Errorf("failed to consume delete result: %w", err)
		}
		if summary.Counters().NodesDeleted() == 0 {
			return nil, sentinel_errors.ErrPolicyNotFound
		}
		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to delete policy",
			zap.Error(err),
			zap.String("policyID", policyID),
			zap.Duration("duration", duration))
		return fmt.Errorf("failed to delete policy: %w", err)
	}
	logger.Info("Policy node deleted",
		zap.String("policyID", policyID),
		zap.Duration("duration", duration))

	dao.auditChange(ctx, "DELETE_POLICY", policyID, nil)
	return nil
}

// ListPolicies returns every stored policy in creation order.
func (dao *PolicyDAO) ListPolicies(ctx context.Context) ([]*model.SecurityPolicy, error) {
	start := time.Now()
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		records, err := transaction.Run(`MATCH (p:SECURITY_POLICY) RETURN p ORDER BY p.createdAt ASC`, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to execute list policies query: %w", err)
		}
		var policies []*model.SecurityPolicy
		for records.Next() {
			node, ok := records.Record().Values[0].(neo4j.Node)
			if !ok {
				return nil, fmt.Errorf("unexpected record value %T", records.Record().Values[0])
			}
			policy, err := policyFromProps(node.Props)
			if err != nil {
				return nil, err
			}
			policies = append(policies, policy)
		}
		return policies, nil
	})
	if err != nil {
		logger.Error("Failed to list policies",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return nil, err
	}

	policies, _ := result.([]*model.SecurityPolicy)
	logger.Info("Policies listed successfully",
		zap.Int("count", len(policies)),
		zap.Duration("duration", time.Since(start)))
	return policies, nil
}

func (dao *PolicyDAO) auditChange(ctx context.Context, action, policyID string, policy *model.SecurityPolicy) {
	if dao.AuditService == nil {
		return
	}
	auditLog := audit.AuditLog{
		ID:            uuid.New().String(),
		Timestamp:     time.Now().UTC(),
		UserID:        util.ActorFromContext(ctx),
		Action:        action,
		ResourceID:    policyID,
		AccessGranted: true,
		PolicyIDs:     []string{policyID},
		ChangeDetails: createChangeDetails(policy),
	}
	if err := dao.AuditService.LogAccess(ctx, auditLog); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}
}

func createChangeDetails(policy *model.SecurityPolicy) json.RawMessage {
	changes := make(map[string]interface{})
	if policy == nil {
		changes["action"] = "deleted"
	} else {
		changes["action"] = "written"
		changes["name"] = policy.Name
		changes["version"] = policy.Version
		changes["enabled"] = policy.Enabled
	}
	changeDetails, _ := json.Marshal(changes)
	return changeDetails
}

// policyToProps flattens a policy into node properties.
func policyToProps(policy *model.SecurityPolicy) (map[string]interface{}, error) {
	doc := model.DocumentFromPolicy(policy)
	conditionsJSON, err := json.Marshal(doc.Conditions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal policy conditions: %w", err)
	}
	actionsJSON, err := json.Marshal(doc.Actions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal policy actions: %w", err)
	}
	return map[string]interface{}{
		"name":         policy.Name,
		"description":  policy.Description,
		"priority":     int64(policy.Priority),
		"enabled":      policy.Enabled,
		"version":      int64(policy.Version),
		"lastModified": policy.LastModified.UTC().Format(time.RFC3339Nano),
		"conditions":   string(conditionsJSON),
		"actions":      string(actionsJSON),
	}, nil
}

// policyFromProps rebuilds and validates a policy from node properties.
func policyFromProps(props map[string]interface{}) (*model.SecurityPolicy, error) {
	id, ok := props["id"].(string)
	if !ok {
		return nil, fmt.Errorf("failed to assert type for policy ID: %v", props["id"])
	}
	name, ok := props["name"].(string)
	if !ok {
		return nil, fmt.Errorf("failed to assert type for policy name: %v", props["name"])
	}
	description, _ := props["description"].(string)
	enabled, ok := props["enabled"].(bool)
	if !ok {
		return nil, fmt.Errorf("failed to assert type for policy enabled: %v", props["enabled"])
	}

	doc := model.PolicyDocument{
		ID:          id,
		Name:        name,
		Description: description,
		Priority:    int(asInt64(props["priority"])),
		Enabled:     &enabled,
		Version:     int(asInt64(props["version"])),
	}
	if conditionsJSON, ok := props["conditions"].(string); ok {
		if err := json.Unmarshal([]byte(conditionsJSON), &doc.Conditions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal policy conditions: %w", err)
		}
	}
	if actionsJSON, ok := props["actions"].(string); ok {
		if err := json.Unmarshal([]byte(actionsJSON), &doc.Actions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal policy actions: %w", err)
		}
	}

	policy, err := doc.ToPolicy()
	if err != nil {
		return nil, err
	}
	if s, ok := props["lastModified"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			policy.LastModified = t
		}
	}
	return policy, nil
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
