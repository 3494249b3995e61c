// test/mock/store.go
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	aegis_errors "github.com/aegisgov/aegis/api/errors"
	"github.com/aegisgov/aegis/api/model"
)

// MemoryRequestStore is an in-memory dao.AccessRequestStore with the same
// conditional-update semantics as the Neo4j DAO: a transition commits only
// while the stored status is still pending.
type MemoryRequestStore struct {
	mu       sync.Mutex
	requests map[string]model.AccessRequest
}

func NewMemoryRequestStore() *MemoryRequestStore {
	return &MemoryRequestStore{requests: make(map[string]model.AccessRequest)}
}

func (s *MemoryRequestStore) CreateRequest(ctx context.Context, request model.AccessRequest) (*model.AccessRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request.ID = uuid.New().String()
	request.Status = model.StatusPending
	request.CreatedAt = time.Now().UTC()
	s.requests[request.ID] = request

	stored := request
	return &stored, nil
}

func (s *MemoryRequestStore) GetRequest(ctx context.Context, requestID string) (*model.AccessRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.requests[requestID]
	if !ok {
		return nil, aegis_errors.ErrRequestNotFound
	}
	stored := request
	return &stored, nil
}

func (s *MemoryRequestStore) TransitionRequest(ctx context.Context, requestID string, to model.RequestStatus, approverID string, decidedAt time.Time) (*model.AccessRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.requests[requestID]
	if !ok {
		return nil, aegis_errors.ErrRequestNotFound
	}
	if request.Status != model.StatusPending {
		return nil, aegis_errors.ErrInvalidTransition
	}

	request.Status = to
	request.ApproverID = approverID
	request.DecidedAt = &decidedAt
	s.requests[requestID] = request

	stored := request
	return &stored, nil
}

func (s *MemoryRequestStore) ListRequests(ctx context.Context, organizationID string, limit, offset int) ([]*model.AccessRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.AccessRequest
	for _, request := range s.requests {
		if request.OrganizationID != organizationID {
			continue
		}
		stored := request
		out = append(out, &stored)
	}
	return out, nil
}

// pendingCountForTemplate backs the template delete guard.
func (s *MemoryRequestStore) pendingCountForTemplate(templateID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, request := range s.requests {
		if request.TemplateID == templateID && request.Status == model.StatusPending {
			count++
		}
	}
	return count
}

// statusCountsForTemplate backs the usage summary.
func (s *MemoryRequestStore) statusCountsForTemplate(templateID string) map[model.RequestStatus]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[model.RequestStatus]int)
	for _, request := range s.requests {
		if request.TemplateID == templateID {
			counts[request.Status]++
		}
	}
	return counts
}

// MemoryTemplateStore is an in-memory dao.AccessTemplateStore. It shares the
// request store so the delete guard sees pending references the same way the
// Neo4j DAO does inside one transaction.
type MemoryTemplateStore struct {
	mu        sync.Mutex
	templates map[string]model.AccessTemplate
	requests  *MemoryRequestStore
}

func NewMemoryTemplateStore(requests *MemoryRequestStore) *MemoryTemplateStore {
	return &MemoryTemplateStore{
		templates: make(map[string]model.AccessTemplate),
		requests:  requests,
	}
}

func (s *MemoryTemplateStore) CreateTemplate(ctx context.Context, template model.AccessTemplate) (*model.AccessTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	template.ID = uuid.New().String()
	template.Version = 1
	template.CreatedAt = time.Now().UTC()
	template.UpdatedAt = template.CreatedAt
	s.templates[template.ID] = template

	stored := template
	return &stored, nil
}

func (s *MemoryTemplateStore) GetTemplate(ctx context.Context, templateID string) (*model.AccessTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	template, ok := s.templates[templateID]
	if !ok {
		return nil, aegis_errors.ErrTemplateNotFound
	}
	stored := template
	return &stored, nil
}

func (s *MemoryTemplateStore) UpdateTemplate(ctx context.Context, template model.AccessTemplate) (*model.AccessTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.templates[template.ID]
	if !ok {
		return nil, aegis_errors.ErrTemplateNotFound
	}

	existing.Name = template.Name
	existing.Grants = template.Grants
	existing.Version++
	existing.UpdatedAt = time.Now().UTC()
	s.templates[template.ID] = existing

	stored := existing
	return &stored, nil
}

func (s *MemoryTemplateStore) DeleteTemplate(ctx context.Context, templateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[templateID]; !ok {
		return aegis_errors.ErrTemplateNotFound
	}
	if s.requests != nil && s.requests.pendingCountForTemplate(templateID) > 0 {
		return aegis_errors.ErrTemplateInUse
	}

	delete(s.templates, templateID)
	return nil
}

func (s *MemoryTemplateStore) ListTemplates(ctx context.Context, organizationID string, limit, offset int) ([]*model.AccessTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.AccessTemplate
	for _, template := range s.templates {
		if template.OrganizationID != organizationID {
			continue
		}
		stored := template
		out = append(out, &stored)
	}
	return out, nil
}

func (s *MemoryTemplateStore) GetTemplateUsage(ctx context.Context, templateID string) (*model.TemplateUsage, error) {
	s.mu.Lock()
	_, ok := s.templates[templateID]
	s.mu.Unlock()
	if !ok {
		return nil, aegis_errors.ErrTemplateNotFound
	}

	usage := &model.TemplateUsage{
		TemplateID: templateID,
		ByStatus:   make(map[model.RequestStatus]int),
	}
	if s.requests != nil {
		for status, count := range s.requests.statusCountsForTemplate(templateID) {
			usage.ByStatus[status] = count
			usage.Total += count
		}
	}
	return usage, nil
}

// NullCache satisfies the service cache interfaces without storing anything.
type NullCache struct{}

func (NullCache) GetAccessRequest(ctx context.Context, requestID string) (*model.AccessRequest, error) {
	return nil, nil
}

func (NullCache) SetAccessRequest(ctx context.Context, request model.AccessRequest) error {
	return nil
}

func (NullCache) GetTemplate(ctx context.Context, templateID string) (*model.AccessTemplate, error) {
	return nil, nil
}

func (NullCache) SetTemplate(ctx context.Context, template model.AccessTemplate) error {
	return nil
}

func (NullCache) DeleteTemplate(ctx context.Context, templateID string) error {
	return nil
}
