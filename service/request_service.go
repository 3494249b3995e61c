// api/service/request_service.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aegisgov/aegis/api/audit"
	"github.com/aegisgov/aegis/api/dao"
	aegis_errors "github.com/aegisgov/aegis/api/errors"
	logger "github.com/aegisgov/aegis/api/logging"
	"github.com/aegisgov/aegis/api/model"
	"github.com/aegisgov/aegis/api/policy"
	"github.com/aegisgov/aegis/api/util"
)

// IAccessRequestService is the access request workflow: the state machine
// pending -> {approved, rejected, cancelled} plus its audited history.
type IAccessRequestService interface {
	CreateRequest(ctx context.Context, actor model.Identity, organizationID string, input model.CreateAccessRequestInput) (*model.AccessRequest, error)
	ApproveRequest(ctx context.Context, actor model.Identity, organizationID, requestID string, decision model.DecisionInput) (*model.AccessRequest, error)
	RejectRequest(ctx context.Context, actor model.Identity, organizationID, requestID string, decision model.DecisionInput) (*model.AccessRequest, error)
	CancelRequest(ctx context.Context, actor model.Identity, organizationID, requestID string) (*model.AccessRequest, error)
	GetRequest(ctx context.Context, organizationID, requestID string) (*model.AccessRequest, error)
	ListRequests(ctx context.Context, organizationID string, limit, offset int) ([]*model.AccessRequest, error)
	GetRequestHistory(ctx context.Context, organizationID, requestID string) ([]audit.Entry, error)
}

// RequestCache is the slice of the cache layer the workflow touches.
type RequestCache interface {
	GetAccessRequest(ctx context.Context, requestID string) (*model.AccessRequest, error)
	SetAccessRequest(ctx context.Context, request model.AccessRequest) error
}

// AccessRequestService orchestrates policy checks, persistence, and audit
// logging for request transitions.
type AccessRequestService struct {
	requestStore    dao.AccessRequestStore
	templateStore   dao.AccessTemplateStore
	engine          *policy.Engine
	ledger          audit.Ledger
	validationUtil  *util.ValidationUtil
	cache           RequestCache
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

// NewAccessRequestService creates a new instance of AccessRequestService
func NewAccessRequestService(
	requestStore dao.AccessRequestStore,
	templateStore dao.AccessTemplateStore,
	engine *policy.Engine,
	ledger audit.Ledger,
	validationUtil *util.ValidationUtil,
	cache RequestCache,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
) *AccessRequestService {
	service := &AccessRequestService{
		requestStore:    requestStore,
		templateStore:   templateStore,
		engine:          engine,
		ledger:          ledger,
		validationUtil:  validationUtil,
		cache:           cache,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}

	// Set up event subscriptions
	eventBus.Subscribe("request.created", service.handleRequestCreated)
	eventBus.Subscribe("request.decided", service.handleRequestDecided)

	return service
}

func (s *AccessRequestService) handleRequestCreated(ctx context.Context, event util.Event) error {
	request, ok := event.Payload.(model.AccessRequest)
	if !ok {
		logger.Error("Invalid event payload type", zap.Any("payload", event.Payload))
		return nil
	}
	return s.notificationSvc.NotifyRequestCreated(ctx, request)
}

func (s *AccessRequestService) handleRequestDecided(ctx context.Context, event util.Event) error {
	request, ok := event.Payload.(model.AccessRequest)
	if !ok {
		logger.Error("Invalid event payload type", zap.Any("payload", event.Payload))
		return nil
	}
	return s.notificationSvc.NotifyRequestDecided(ctx, request)
}

// CreateRequest validates and persists a new pending request, then records
// the creation in the ledger.
func (s *AccessRequestService) CreateRequest(ctx context.Context, actor model.Identity, organizationID string, input model.CreateAccessRequestInput) (*model.AccessRequest, error) {
	if err := s.validationUtil.ValidateAccessRequestInput(input); err != nil {
		logger.Warn("Invalid access request input", zap.Error(err), zap.String("userID", actor.UserID))
		return nil, aegis_errors.ErrInvalidRequestData
	}

	request := model.AccessRequest{
		OrganizationID: organizationID,
		RequesterID:    actor.UserID,
		ResourceType:   input.ResourceType,
		ResourceID:     input.ResourceID,
		TemplateID:     input.TemplateID,
		Justification:  input.Justification,
	}

	if input.TemplateID != "" {
		template, err := s.templateStore.GetTemplate(ctx, input.TemplateID)
		if err != nil {
			if err == aegis_errors.ErrTemplateNotFound {
				return nil, aegis_errors.ErrInvalidRequestData
			}
			return nil, err
		}
		if template.OrganizationID != organizationID {
			return nil, aegis_errors.ErrInvalidRequestData
		}
		// The version is captured now so history keeps its meaning even
		// after the template is updated.
		request.TemplateVersion = template.Version
	}

	created, err := s.requestStore.CreateRequest(ctx, request)
	if err != nil {
		logger.Error("Error creating access request", zap.Error(err), zap.String("userID", actor.UserID))
		return nil, err
	}

	if err := s.cache.SetAccessRequest(ctx, *created); err != nil {
		logger.Warn("Failed to cache access request", zap.Error(err), zap.String("requestID", created.ID))
	}

	s.logTransition(ctx, created, audit.ActionRequestCreated, actor.UserID, map[string]interface{}{
		"resource_type":    created.ResourceType,
		"resource_id":      created.ResourceID,
		"template_id":      created.TemplateID,
		"template_version": created.TemplateVersion,
		"justification":    created.Justification,
	})

	s.eventBus.Publish(ctx, "request.created", *created)

	logger.Info("Access request created",
		zap.String("requestID", created.ID),
		zap.String("requesterID", actor.UserID))
	return created, nil
}

// ApproveRequest moves a pending request to approved after the policy
// engine clears the transition. A policy violation leaves the request
// untouched, writes a policy_violated ledger entry, and surfaces
// ErrPolicyViolation.
func (s *AccessRequestService) ApproveRequest(ctx context.Context, actor model.Identity, organizationID, requestID string, decision model.DecisionInput) (*model.AccessRequest, error) {
	return s.decide(ctx, actor, organizationID, requestID, policy.ActionApprove, model.StatusApproved, audit.ActionRequestApproved, decision)
}

// RejectRequest moves a pending request to rejected. Rejecting one's own
// request is permitted: it grants no privilege.
func (s *AccessRequestService) RejectRequest(ctx context.Context, actor model.Identity, organizationID, requestID string, decision model.DecisionInput) (*model.AccessRequest, error) {
	return s.decide(ctx, actor, organizationID, requestID, policy.ActionReject, model.StatusRejected, audit.ActionRequestRejected, decision)
}

func (s *AccessRequestService) decide(ctx context.Context, actor model.Identity, organizationID, requestID, action string, to model.RequestStatus, auditAction string, decision model.DecisionInput) (*model.AccessRequest, error) {
	request, err := s.loadScoped(ctx, organizationID, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != model.StatusPending {
		return nil, aegis_errors.ErrInvalidTransition
	}

	if verdict := s.engine.Evaluate(action, request, actor.UserID); !verdict.Allowed {
		s.ledger.LogPolicyViolation(ctx, actor.UserID, organizationID, request.ResourceType, request.ID, verdict.Rule, verdict.Reason)
		logger.Warn("Policy violation on access request transition",
			zap.String("requestID", requestID),
			zap.String("actorID", actor.UserID),
			zap.String("rule", verdict.Rule))
		return nil, aegis_errors.ErrPolicyViolation
	}

	// Conditional update: a concurrent decider that committed first leaves
	// this call with ErrInvalidTransition, never a silent overwrite.
	updated, err := s.requestStore.TransitionRequest(ctx, requestID, to, actor.UserID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetAccessRequest(ctx, *updated); err != nil {
		logger.Warn("Failed to cache access request", zap.Error(err), zap.String("requestID", requestID))
	}

	details := map[string]interface{}{
		"approver_id": actor.UserID,
	}
	if decision.Comment != "" {
		details["comment"] = decision.Comment
	}
	for k, v := range decision.Details {
		details[k] = v
	}
	s.logTransition(ctx, updated, auditAction, actor.UserID, details)

	s.eventBus.Publish(ctx, "request.decided", *updated)

	logger.Info("Access request decided",
		zap.String("requestID", requestID),
		zap.String("status", string(updated.Status)),
		zap.String("approverID", actor.UserID))
	return updated, nil
}

// CancelRequest withdraws a pending request. Only the original requester or
// an organization administrator may cancel.
func (s *AccessRequestService) CancelRequest(ctx context.Context, actor model.Identity, organizationID, requestID string) (*model.AccessRequest, error) {
	request, err := s.loadScoped(ctx, organizationID, requestID)
	if err != nil {
		return nil, err
	}
	if actor.UserID != request.RequesterID && !actor.OrgAdmin {
		logger.Warn("Cancel refused: caller is neither requester nor admin",
			zap.String("requestID", requestID),
			zap.String("actorID", actor.UserID))
		return nil, aegis_errors.ErrForbidden
	}
	if request.Status != model.StatusPending {
		return nil, aegis_errors.ErrInvalidTransition
	}

	updated, err := s.requestStore.TransitionRequest(ctx, requestID, model.StatusCancelled, "", time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetAccessRequest(ctx, *updated); err != nil {
		logger.Warn("Failed to cache access request", zap.Error(err), zap.String("requestID", requestID))
	}

	s.logTransition(ctx, updated, audit.ActionRequestCancelled, actor.UserID, map[string]interface{}{
		"cancelled_by": actor.UserID,
	})

	s.eventBus.Publish(ctx, "request.cancelled", *updated)

	logger.Info("Access request cancelled",
		zap.String("requestID", requestID),
		zap.String("actorID", actor.UserID))
	return updated, nil
}

// GetRequest retrieves a request, trying the cache before the store.
func (s *AccessRequestService) GetRequest(ctx context.Context, organizationID, requestID string) (*model.AccessRequest, error) {
	cached, err := s.cache.GetAccessRequest(ctx, requestID)
	if err == nil && cached != nil && cached.OrganizationID == organizationID {
		return cached, nil
	}

	request, err := s.loadScoped(ctx, organizationID, requestID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetAccessRequest(ctx, *request); err != nil {
		logger.Warn("Failed to cache access request", zap.Error(err), zap.String("requestID", requestID))
	}
	return request, nil
}

// ListRequests retrieves the requests of one organization.
func (s *AccessRequestService) ListRequests(ctx context.Context, organizationID string, limit, offset int) ([]*model.AccessRequest, error) {
	requests, err := s.requestStore.ListRequests(ctx, organizationID, limit, offset)
	if err != nil {
		logger.Error("Error listing access requests",
			zap.Error(err),
			zap.String("organizationID", organizationID))
		return nil, err
	}
	return requests, nil
}

// GetRequestHistory returns the audit trail of one request in causal order.
func (s *AccessRequestService) GetRequestHistory(ctx context.Context, organizationID, requestID string) ([]audit.Entry, error) {
	if _, err := s.loadScoped(ctx, organizationID, requestID); err != nil {
		return nil, err
	}
	return s.ledger.History(ctx, organizationID, requestID)
}

// loadScoped reads a request and hides its existence from other
// organizations.
func (s *AccessRequestService) loadScoped(ctx context.Context, organizationID, requestID string) (*model.AccessRequest, error) {
	request, err := s.requestStore.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.OrganizationID != organizationID {
		return nil, aegis_errors.ErrRequestNotFound
	}
	return request, nil
}

// logTransition submits the ledger entry for a committed transition. The
// write happens strictly after the store commit and its failure never rolls
// the transition back; the ledger counts the gap for alerting.
func (s *AccessRequestService) logTransition(ctx context.Context, request *model.AccessRequest, action, userID string, details map[string]interface{}) {
	result := s.ledger.LogEvent(ctx, audit.Entry{
		UserID:         &userID,
		OrganizationID: request.OrganizationID,
		Action:         action,
		ResourceType:   "access_request",
		ResourceID:     request.ID,
		Details:        details,
	})
	if !result.Logged {
		logger.Warn("Transition committed but audit entry dropped",
			zap.String("requestID", request.ID),
			zap.String("action", action),
			zap.Error(result.Reason))
	}
}
