// api/util/cache_service.go

package util

import (
	"context"

	"github.com/aegisgov/aegis/api/db"
	"github.com/aegisgov/aegis/api/model"
)

type CacheService struct{}

func NewCacheService() *CacheService {
	return &CacheService{}
}

func (c *CacheService) GetAccessRequest(ctx context.Context, requestID string) (*model.AccessRequest, error) {
	return db.GetCachedAccessRequest(ctx, requestID)
}

func (c *CacheService) SetAccessRequest(ctx context.Context, request model.AccessRequest) error {
	return db.CacheAccessRequest(ctx, &request)
}

func (c *CacheService) GetTemplate(ctx context.Context, templateID string) (*model.AccessTemplate, error) {
	return db.GetCachedTemplate(ctx, templateID)
}

func (c *CacheService) SetTemplate(ctx context.Context, template model.AccessTemplate) error {
	return db.CacheTemplate(ctx, &template)
}

func (c *CacheService) DeleteTemplate(ctx context.Context, templateID string) error {
	return db.DeleteCachedTemplate(ctx, templateID)
}
