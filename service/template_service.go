// api/service/template_service.go
package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aegisgov/aegis/api/audit"
	"github.com/aegisgov/aegis/api/dao"
	aegis_errors "github.com/aegisgov/aegis/api/errors"
	logger "github.com/aegisgov/aegis/api/logging"
	"github.com/aegisgov/aegis/api/model"
	"github.com/aegisgov/aegis/api/util"
)

// IAccessTemplateService is the template catalog: named, versioned
// permission bundles that access requests reference.
type IAccessTemplateService interface {
	CreateTemplate(ctx context.Context, actor model.Identity, template model.AccessTemplate) (*model.AccessTemplate, error)
	BulkCreateTemplates(ctx context.Context, actor model.Identity, templates []model.AccessTemplate) ([]string, error)
	UpdateTemplate(ctx context.Context, actor model.Identity, template model.AccessTemplate) (*model.AccessTemplate, error)
	DeleteTemplate(ctx context.Context, actor model.Identity, organizationID, templateID string) error
	GetTemplate(ctx context.Context, organizationID, templateID string) (*model.AccessTemplate, error)
	ListTemplates(ctx context.Context, organizationID string, limit, offset int) ([]*model.AccessTemplate, error)
	GetTemplateUsage(ctx context.Context, organizationID, templateID string) (*model.TemplateUsage, error)
}

// TemplateCache is the slice of the cache layer the catalog touches.
type TemplateCache interface {
	GetTemplate(ctx context.Context, templateID string) (*model.AccessTemplate, error)
	SetTemplate(ctx context.Context, template model.AccessTemplate) error
	DeleteTemplate(ctx context.Context, templateID string) error
}

// AccessTemplateService handles business logic for template operations
type AccessTemplateService struct {
	templateStore   dao.AccessTemplateStore
	ledger          audit.Ledger
	validationUtil  *util.ValidationUtil
	cache           TemplateCache
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

// NewAccessTemplateService creates a new instance of AccessTemplateService
func NewAccessTemplateService(
	templateStore dao.AccessTemplateStore,
	ledger audit.Ledger,
	validationUtil *util.ValidationUtil,
	cache TemplateCache,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
) *AccessTemplateService {
	service := &AccessTemplateService{
		templateStore:   templateStore,
		ledger:          ledger,
		validationUtil:  validationUtil,
		cache:           cache,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}

	// Set up event subscriptions
	eventBus.Subscribe("template.changed", service.handleTemplateChanged)

	return service
}

func (s *AccessTemplateService) handleTemplateChanged(ctx context.Context, event util.Event) error {
	payload, ok := event.Payload.(templateChange)
	if !ok {
		logger.Error("Invalid event payload type", zap.Any("payload", event.Payload))
		return nil
	}

	if err := s.notificationSvc.NotifyTemplateChange(ctx, payload.changeType, payload.template); err != nil {
		logger.Warn("Failed to send template change notification",
			zap.Error(err),
			zap.String("templateID", payload.template.ID))
	}
	return nil
}

type templateChange struct {
	changeType string
	template   model.AccessTemplate
}

// CreateTemplate handles the creation of a new template
func (s *AccessTemplateService) CreateTemplate(ctx context.Context, actor model.Identity, template model.AccessTemplate) (*model.AccessTemplate, error) {
	if err := s.validationUtil.ValidateTemplate(template); err != nil {
		logger.Warn("Invalid template data", zap.Error(err), zap.String("userID", actor.UserID))
		return nil, aegis_errors.ErrInvalidTemplateData
	}

	created, err := s.templateStore.CreateTemplate(ctx, template)
	if err != nil {
		logger.Error("Error creating template", zap.Error(err), zap.String("userID", actor.UserID))
		return nil, err
	}

	if err := s.cache.SetTemplate(ctx, *created); err != nil {
		logger.Warn("Failed to cache template", zap.Error(err), zap.String("templateID", created.ID))
	}

	s.logCatalogAction(ctx, created, audit.ActionTemplateCreated, actor.UserID, map[string]interface{}{
		"name":    created.Name,
		"version": created.Version,
	})

	s.eventBus.Publish(ctx, "template.changed", templateChange{changeType: "created", template: *created})

	logger.Info("Template created successfully",
		zap.String("templateID", created.ID),
		zap.String("userID", actor.UserID))
	return created, nil
}

// BulkCreateTemplates creates multiple templates in parallel
func (s *AccessTemplateService) BulkCreateTemplates(ctx context.Context, actor model.Identity, templates []model.AccessTemplate) ([]string, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(10)
	templateIDs := make([]string, len(templates))

	for i, template := range templates {
		i, template := i, template
		g.Go(func() error {
			created, err := s.CreateTemplate(ctx, actor, template)
			if err != nil {
				return err
			}
			templateIDs[i] = created.ID
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Error in bulk create templates", zap.Error(err), zap.String("userID", actor.UserID))
		return nil, err
	}

	logger.Info("Bulk create templates completed",
		zap.Int("count", len(templateIDs)),
		zap.String("userID", actor.UserID))
	return templateIDs, nil
}

// UpdateTemplate handles updates to an existing template. The store bumps
// the version; past versions referenced by closed requests keep their
// historical meaning through the version captured at request creation.
func (s *AccessTemplateService) UpdateTemplate(ctx context.Context, actor model.Identity, template model.AccessTemplate) (*model.AccessTemplate, error) {
	if err := s.validationUtil.ValidateTemplate(template); err != nil {
		logger.Warn("Invalid template data", zap.Error(err), zap.String("templateID", template.ID))
		return nil, aegis_errors.ErrInvalidTemplateData
	}

	existing, err := s.templateStore.GetTemplate(ctx, template.ID)
	if err != nil {
		return nil, err
	}
	if existing.OrganizationID != template.OrganizationID {
		return nil, aegis_errors.ErrTemplateNotFound
	}

	updated, err := s.templateStore.UpdateTemplate(ctx, template)
	if err != nil {
		logger.Error("Error updating template", zap.Error(err), zap.String("templateID", template.ID))
		return nil, err
	}

	if err := s.cache.SetTemplate(ctx, *updated); err != nil {
		logger.Warn("Failed to update template in cache", zap.Error(err), zap.String("templateID", template.ID))
	}

	s.logCatalogAction(ctx, updated, audit.ActionTemplateUpdated, actor.UserID, map[string]interface{}{
		"name":    updated.Name,
		"version": updated.Version,
	})

	s.eventBus.Publish(ctx, "template.changed", templateChange{changeType: "updated", template: *updated})

	logger.Info("Template updated successfully",
		zap.String("templateID", template.ID),
		zap.Int("version", updated.Version))
	return updated, nil
}

// DeleteTemplate handles the deletion of a template. Deletion is refused
// while any non-terminal request references the template.
func (s *AccessTemplateService) DeleteTemplate(ctx context.Context, actor model.Identity, organizationID, templateID string) error {
	existing, err := s.templateStore.GetTemplate(ctx, templateID)
	if err != nil {
		return err
	}
	if existing.OrganizationID != organizationID {
		return aegis_errors.ErrTemplateNotFound
	}

	if err := s.templateStore.DeleteTemplate(ctx, templateID); err != nil {
		if err != aegis_errors.ErrTemplateInUse {
			logger.Error("Error deleting template", zap.Error(err), zap.String("templateID", templateID))
		}
		return err
	}

	if err := s.cache.DeleteTemplate(ctx, templateID); err != nil {
		logger.Warn("Failed to delete template from cache", zap.Error(err), zap.String("templateID", templateID))
	}

	s.logCatalogAction(ctx, existing, audit.ActionTemplateDeleted, actor.UserID, map[string]interface{}{
		"name":    existing.Name,
		"version": existing.Version,
	})

	s.eventBus.Publish(ctx, "template.changed", templateChange{changeType: "deleted", template: *existing})

	logger.Info("Template deleted successfully",
		zap.String("templateID", templateID),
		zap.String("userID", actor.UserID))
	return nil
}

// GetTemplate retrieves a template by its ID
func (s *AccessTemplateService) GetTemplate(ctx context.Context, organizationID, templateID string) (*model.AccessTemplate, error) {
	cached, err := s.cache.GetTemplate(ctx, templateID)
	if err == nil && cached != nil && cached.OrganizationID == organizationID {
		return cached, nil
	}

	template, err := s.templateStore.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if template.OrganizationID != organizationID {
		return nil, aegis_errors.ErrTemplateNotFound
	}

	if err := s.cache.SetTemplate(ctx, *template); err != nil {
		logger.Warn("Failed to cache template", zap.Error(err), zap.String("templateID", templateID))
	}

	return template, nil
}

// ListTemplates retrieves the templates of one organization
func (s *AccessTemplateService) ListTemplates(ctx context.Context, organizationID string, limit, offset int) ([]*model.AccessTemplate, error) {
	templates, err := s.templateStore.ListTemplates(ctx, organizationID, limit, offset)
	if err != nil {
		logger.Error("Error listing templates",
			zap.Error(err),
			zap.String("organizationID", organizationID))
		return nil, err
	}
	return templates, nil
}

// GetTemplateUsage summarizes the requests referencing a template
func (s *AccessTemplateService) GetTemplateUsage(ctx context.Context, organizationID, templateID string) (*model.TemplateUsage, error) {
	template, err := s.templateStore.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if template.OrganizationID != organizationID {
		return nil, aegis_errors.ErrTemplateNotFound
	}

	usage, err := s.templateStore.GetTemplateUsage(ctx, templateID)
	if err != nil {
		logger.Error("Error computing template usage",
			zap.Error(err),
			zap.String("templateID", templateID))
		return nil, err
	}
	return usage, nil
}

func (s *AccessTemplateService) logCatalogAction(ctx context.Context, template *model.AccessTemplate, action, userID string, details map[string]interface{}) {
	result := s.ledger.LogEvent(ctx, audit.Entry{
		UserID:         &userID,
		OrganizationID: template.OrganizationID,
		Action:         action,
		ResourceType:   "access_template",
		ResourceID:     template.ID,
		Details:        details,
	})
	if !result.Logged {
		logger.Warn("Catalog change committed but audit entry dropped",
			zap.String("templateID", template.ID),
			zap.String("action", action),
			zap.Error(result.Reason))
	}
}
