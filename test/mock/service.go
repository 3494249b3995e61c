// test/mock/service.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/aegisgov/aegis/api/audit"
	"github.com/aegisgov/aegis/api/model"
)

// MockAccessRequestService is a mock implementation of service.IAccessRequestService
type MockAccessRequestService struct {
	mock.Mock
}

func (m *MockAccessRequestService) CreateRequest(ctx context.Context, actor model.Identity, organizationID string, input model.CreateAccessRequestInput) (*model.AccessRequest, error) {
	args := m.Called(ctx, actor, organizationID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessRequest), args.Error(1)
}

func (m *MockAccessRequestService) ApproveRequest(ctx context.Context, actor model.Identity, organizationID, requestID string, decision model.DecisionInput) (*model.AccessRequest, error) {
	args := m.Called(ctx, actor, organizationID, requestID, decision)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessRequest), args.Error(1)
}

func (m *MockAccessRequestService) RejectRequest(ctx context.Context, actor model.Identity, organizationID, requestID string, decision model.DecisionInput) (*model.AccessRequest, error) {
	args := m.Called(ctx, actor, organizationID, requestID, decision)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessRequest), args.Error(1)
}

func (m *MockAccessRequestService) CancelRequest(ctx context.Context, actor model.Identity, organizationID, requestID string) (*model.AccessRequest, error) {
	args := m.Called(ctx, actor, organizationID, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessRequest), args.Error(1)
}

func (m *MockAccessRequestService) GetRequest(ctx context.Context, organizationID, requestID string) (*model.AccessRequest, error) {
	args := m.Called(ctx, organizationID, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessRequest), args.Error(1)
}

func (m *MockAccessRequestService) ListRequests(ctx context.Context, organizationID string, limit, offset int) ([]*model.AccessRequest, error) {
	args := m.Called(ctx, organizationID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.AccessRequest), args.Error(1)
}

func (m *MockAccessRequestService) GetRequestHistory(ctx context.Context, organizationID, requestID string) ([]audit.Entry, error) {
	args := m.Called(ctx, organizationID, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.Entry), args.Error(1)
}

// MockAccessTemplateService is a mock implementation of service.IAccessTemplateService
type MockAccessTemplateService struct {
	mock.Mock
}

func (m *MockAccessTemplateService) CreateTemplate(ctx context.Context, actor model.Identity, template model.AccessTemplate) (*model.AccessTemplate, error) {
	args := m.Called(ctx, actor, template)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessTemplate), args.Error(1)
}

func (m *MockAccessTemplateService) BulkCreateTemplates(ctx context.Context, actor model.Identity, templates []model.AccessTemplate) ([]string, error) {
	args := m.Called(ctx, actor, templates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAccessTemplateService) UpdateTemplate(ctx context.Context, actor model.Identity, template model.AccessTemplate) (*model.AccessTemplate, error) {
	args := m.Called(ctx, actor, template)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessTemplate), args.Error(1)
}

func (m *MockAccessTemplateService) DeleteTemplate(ctx context.Context, actor model.Identity, organizationID, templateID string) error {
	args := m.Called(ctx, actor, organizationID, templateID)
	return args.Error(0)
}

func (m *MockAccessTemplateService) GetTemplate(ctx context.Context, organizationID, templateID string) (*model.AccessTemplate, error) {
	args := m.Called(ctx, organizationID, templateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessTemplate), args.Error(1)
}

func (m *MockAccessTemplateService) ListTemplates(ctx context.Context, organizationID string, limit, offset int) ([]*model.AccessTemplate, error) {
	args := m.Called(ctx, organizationID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.AccessTemplate), args.Error(1)
}

func (m *MockAccessTemplateService) GetTemplateUsage(ctx context.Context, organizationID, templateID string) (*model.TemplateUsage, error) {
	args := m.Called(ctx, organizationID, templateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TemplateUsage), args.Error(1)
}
