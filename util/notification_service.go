// api/util/notification_service.go

package util

import (
	"context"

	"go.uber.org/zap"

	logger "github.com/aegisgov/aegis/api/logging"
	"github.com/aegisgov/aegis/api/model"
)

type NotificationService struct {
	// Delivery backends (queue, mailer) would hang off here.
}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotifyRequestDecided tells the requester their request reached a decision.
func (n *NotificationService) NotifyRequestDecided(ctx context.Context, request model.AccessRequest) error {
	logger.Info("NOTIFICATION: Access request decided",
		zap.String("requestID", request.ID),
		zap.String("requesterID", request.RequesterID),
		zap.String("status", string(request.Status)))
	return nil
}

// NotifyRequestCreated tells organization approvers a request awaits review.
func (n *NotificationService) NotifyRequestCreated(ctx context.Context, request model.AccessRequest) error {
	logger.Info("NOTIFICATION: New access request awaiting review",
		zap.String("requestID", request.ID),
		zap.String("organizationID", request.OrganizationID),
		zap.String("resourceType", request.ResourceType),
		zap.String("resourceID", request.ResourceID))
	return nil
}

// NotifyTemplateChange tells catalog watchers a template changed.
func (n *NotificationService) NotifyTemplateChange(ctx context.Context, changeType string, template model.AccessTemplate) error {
	logger.Info("NOTIFICATION: Access template changed",
		zap.String("changeType", changeType),
		zap.String("templateID", template.ID),
		zap.String("templateName", template.Name))
	return nil
}
