// util/notification_service.go

package util

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/sentinel/logging"
	pdp_model "github.com/dev-mohitbeniwal/sentinel/pdp/model"
)

// NotificationService turns security events into structured log records for
// downstream SIEM collection.
type NotificationService struct{}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// Register subscribes the service to every security event on bus.
func (n *NotificationService) Register(bus *EventBus) {
	bus.Subscribe(pdp_model.EventAccessDenied, n.handleAccessEvent)
	bus.Subscribe(pdp_model.EventAccessChallenged, n.handleAccessEvent)
	bus.Subscribe(pdp_model.EventTrustDegraded, n.handleSessionEvent)
	bus.Subscribe(pdp_model.EventSessionReauthRequired, n.handleSessionEvent)
	bus.Subscribe(pdp_model.EventPolicyAlert, n.handlePolicyAlert)
}

func (n *NotificationService) handleAccessEvent(ctx context.Context, event Event) error {
	payload, ok := event.Payload.(pdp_model.AccessEvent)
	if !ok {
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	logger.Info("NOTIFICATION: access decision",
		zap.String("event", event.Type),
		zap.String("requestID", payload.Decision.RequestID),
		zap.String("userID", payload.Request.Context.UserID()),
		zap.String("resource", payload.Request.Resource),
		zap.String("decision", string(payload.Decision.Decision)),
		zap.Int("riskScore", payload.Decision.RiskScore),
		zap.Strings("requirements", payload.Decision.Requirements),
		zap.Strings("reasoning", payload.Decision.Reasoning))
	return nil
}

func (n *NotificationService) handleSessionEvent(ctx context.Context, event Event) error {
	payload, ok := event.Payload.(pdp_model.SessionEvent)
	if !ok {
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	fields := []zap.Field{
		zap.String("event", event.Type),
		zap.String("sessionID", payload.SessionID),
		zap.String("userID", payload.UserID),
		zap.Int("trustScore", payload.TrustScore),
	}
	if payload.HasPrevious {
		fields = append(fields, zap.Int("previousScore", payload.PreviousScore))
	}
	logger.Warn("NOTIFICATION: session verification", fields...)
	return nil
}

func (n *NotificationService) handlePolicyAlert(ctx context.Context, event Event) error {
	payload, ok := event.Payload.(pdp_model.PolicyAlertEvent)
	if !ok {
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	logger.Warn("NOTIFICATION: policy alert",
		zap.String("policyID", payload.PolicyID),
		zap.String("requestID", payload.RequestID),
		zap.String("severity", payload.Severity),
		zap.String("message", payload.Message))
	return nil
}
