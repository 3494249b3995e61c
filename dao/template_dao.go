// api/dao/template_dao.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	aegis_errors "github.com/aegisgov/aegis/api/errors"
	logger "github.com/aegisgov/aegis/api/logging"
	"github.com/aegisgov/aegis/api/model"
)

// AccessTemplateStore is the persistence contract of the template catalog.
type AccessTemplateStore interface {
	CreateTemplate(ctx context.Context, template model.AccessTemplate) (*model.AccessTemplate, error)
	GetTemplate(ctx context.Context, templateID string) (*model.AccessTemplate, error)
	UpdateTemplate(ctx context.Context, template model.AccessTemplate) (*model.AccessTemplate, error)
	DeleteTemplate(ctx context.Context, templateID string) error
	ListTemplates(ctx context.Context, organizationID string, limit, offset int) ([]*model.AccessTemplate, error)
	GetTemplateUsage(ctx context.Context, templateID string) (*model.TemplateUsage, error)
}

type AccessTemplateDAO struct {
	Driver neo4j.Driver
}

func NewAccessTemplateDAO(driver neo4j.Driver) *AccessTemplateDAO {
	dao := &AccessTemplateDAO{Driver: driver}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint", zap.Error(err))
	}
	return dao
}

// EnsureUniqueConstraint ensures the unique constraint on the template ID
func (dao *AccessTemplateDAO) EnsureUniqueConstraint(ctx context.Context) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_access_template_id IF NOT EXISTS
        FOR (t:ACCESS_TEMPLATE) REQUIRE t.id IS UNIQUE
        `
		_, err := transaction.Run(query, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create unique constraint: %w", err)
		}
		return nil, nil
	})
	return err
}

// CreateTemplate creates a new template at version 1.
func (dao *AccessTemplateDAO) CreateTemplate(ctx context.Context, template model.AccessTemplate) (*model.AccessTemplate, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if template.ID == "" {
		template.ID = uuid.New().String()
	}
	template.Version = 1
	template.CreatedAt = time.Now().UTC()
	template.UpdatedAt = template.CreatedAt

	grantsJSON, err := json.Marshal(template.Grants)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal grants: %w", err)
	}

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		checkResult, err := transaction.Run(
			`MATCH (t:ACCESS_TEMPLATE {id: $id}) RETURN t.id`,
			map[string]interface{}{"id": template.ID},
		)
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		if checkResult.Next() {
			return nil, aegis_errors.ErrInvalidTemplateData
		}

		createQuery := `
        CREATE (t:ACCESS_TEMPLATE {
            id: $id,
            organizationId: $organizationId,
            name: $name,
            grants: $grants,
            version: $version,
            createdAt: $createdAt,
            updatedAt: $updatedAt
        })
        RETURN t
        `
		createResult, err := transaction.Run(createQuery, map[string]interface{}{
			"id":             template.ID,
			"organizationId": template.OrganizationID,
			"name":           template.Name,
			"grants":         string(grantsJSON),
			"version":        template.Version,
			"createdAt":      template.CreatedAt.Format(time.RFC3339Nano),
			"updatedAt":      template.UpdatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		if createResult.Next() {
			node, found := createResult.Record().Get("t")
			if !found {
				return nil, aegis_errors.ErrInternalServer
			}
			return parseTemplateNode(node)
		}
		return nil, aegis_errors.ErrInternalServer
	})

	if err != nil {
		logger.Error("Failed to create template",
			zap.Error(err),
			zap.String("templateName", template.Name))
		return nil, err
	}

	created := result.(*model.AccessTemplate)
	logger.Info("Template created successfully", zap.String("templateID", created.ID))
	return created, nil
}

// GetTemplate retrieves a template by its ID
func (dao *AccessTemplateDAO) GetTemplate(ctx context.Context, templateID string) (*model.AccessTemplate, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		readResult, err := transaction.Run(
			`MATCH (t:ACCESS_TEMPLATE {id: $id}) RETURN t`,
			map[string]interface{}{"id": templateID},
		)
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		if readResult.Next() {
			node, found := readResult.Record().Get("t")
			if !found {
				return nil, aegis_errors.ErrInternalServer
			}
			return parseTemplateNode(node)
		}
		return nil, aegis_errors.ErrTemplateNotFound
	})

	if err != nil {
		return nil, err
	}
	return result.(*model.AccessTemplate), nil
}

// UpdateTemplate replaces name and grants, bumping the version inside the
// same transaction so the increment is strict under concurrent updates.
func (dao *AccessTemplateDAO) UpdateTemplate(ctx context.Context, template model.AccessTemplate) (*model.AccessTemplate, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	grantsJSON, err := json.Marshal(template.Grants)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal grants: %w", err)
	}

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (t:ACCESS_TEMPLATE {id: $id})
        SET t.name = $name,
            t.grants = $grants,
            t.version = t.version + 1,
            t.updatedAt = $updatedAt
        RETURN t
        `
		writeResult, err := transaction.Run(query, map[string]interface{}{
			"id":        template.ID,
			"name":      template.Name,
			"grants":    string(grantsJSON),
			"updatedAt": time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		if writeResult.Next() {
			node, found := writeResult.Record().Get("t")
			if !found {
				return nil, aegis_errors.ErrInternalServer
			}
			return parseTemplateNode(node)
		}
		return nil, aegis_errors.ErrTemplateNotFound
	})

	if err != nil {
		logger.Error("Failed to update template",
			zap.Error(err),
			zap.String("templateID", template.ID))
		return nil, err
	}

	updated := result.(*model.AccessTemplate)
	logger.Info("Template updated successfully",
		zap.String("templateID", updated.ID),
		zap.Int("version", updated.Version))
	return updated, nil
}

// DeleteTemplate removes a template unless a non-terminal request still
// references it. The guard and the delete share one transaction so a
// request created concurrently cannot slip between them.
func (dao *AccessTemplateDAO) DeleteTemplate(ctx context.Context, templateID string) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		guardResult, err := transaction.Run(`
        MATCH (r:ACCESS_REQUEST {templateId: $id})
        WHERE r.status = $pending
        RETURN count(r) AS inFlight
        `, map[string]interface{}{
			"id":      templateID,
			"pending": string(model.StatusPending),
		})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		if guardResult.Next() {
			if inFlight, found := guardResult.Record().Get("inFlight"); found {
				if count, ok := inFlight.(int64); ok && count > 0 {
					return nil, aegis_errors.ErrTemplateInUse
				}
			}
		}

		deleteResult, err := transaction.Run(`
        MATCH (t:ACCESS_TEMPLATE {id: $id})
        DELETE t
        RETURN count(t) AS deleted
        `, map[string]interface{}{"id": templateID})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		if deleteResult.Next() {
			if deleted, found := deleteResult.Record().Get("deleted"); found {
				if count, ok := deleted.(int64); ok && count == 0 {
					return nil, aegis_errors.ErrTemplateNotFound
				}
			}
		}
		return nil, nil
	})

	if err != nil {
		if err != aegis_errors.ErrTemplateInUse && err != aegis_errors.ErrTemplateNotFound {
			logger.Error("Failed to delete template",
				zap.Error(err),
				zap.String("templateID", templateID))
		}
		return err
	}

	logger.Info("Template deleted successfully", zap.String("templateID", templateID))
	return nil
}

// ListTemplates retrieves the templates of one organization.
func (dao *AccessTemplateDAO) ListTemplates(ctx context.Context, organizationID string, limit, offset int) ([]*model.AccessTemplate, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		readResult, err := transaction.Run(`
        MATCH (t:ACCESS_TEMPLATE {organizationId: $organizationId})
        RETURN t
        ORDER BY t.name ASC
        SKIP $offset LIMIT $limit
        `, map[string]interface{}{
			"organizationId": organizationID,
			"offset":         offset,
			"limit":          limit,
		})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}

		var templates []*model.AccessTemplate
		for readResult.Next() {
			node, found := readResult.Record().Get("t")
			if !found {
				continue
			}
			template, err := parseTemplateNode(node)
			if err != nil {
				return nil, err
			}
			templates = append(templates, template)
		}
		return templates, nil
	})

	if err != nil {
		logger.Error("Failed to list templates",
			zap.Error(err),
			zap.String("organizationID", organizationID))
		return nil, err
	}
	return result.([]*model.AccessTemplate), nil
}

// GetTemplateUsage counts the requests referencing a template, grouped by
// request status.
func (dao *AccessTemplateDAO) GetTemplateUsage(ctx context.Context, templateID string) (*model.TemplateUsage, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		readResult, err := transaction.Run(`
        MATCH (r:ACCESS_REQUEST {templateId: $id})
        RETURN r.status AS status, count(r) AS total
        `, map[string]interface{}{"id": templateID})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}

		usage := &model.TemplateUsage{
			TemplateID: templateID,
			ByStatus:   map[model.RequestStatus]int{},
		}
		for readResult.Next() {
			record := readResult.Record()
			status, _ := record.Get("status")
			total, _ := record.Get("total")
			statusStr, ok := status.(string)
			if !ok {
				continue
			}
			count, ok := total.(int64)
			if !ok {
				continue
			}
			usage.ByStatus[model.RequestStatus(statusStr)] = int(count)
			usage.Total += int(count)
		}
		return usage, nil
	})

	if err != nil {
		logger.Error("Failed to compute template usage",
			zap.Error(err),
			zap.String("templateID", templateID))
		return nil, err
	}
	return result.(*model.TemplateUsage), nil
}

func parseTemplateNode(value interface{}) (*model.AccessTemplate, error) {
	node, ok := value.(neo4j.Node)
	if !ok {
		return nil, fmt.Errorf("unexpected node type: %T", value)
	}
	props := node.Props

	template := &model.AccessTemplate{
		ID:             stringProp(props, "id"),
		OrganizationID: stringProp(props, "organizationId"),
		Name:           stringProp(props, "name"),
	}
	if v, ok := props["version"].(int64); ok {
		template.Version = int(v)
	}

	if raw := stringProp(props, "grants"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &template.Grants); err != nil {
			return nil, fmt.Errorf("invalid grants on template %s: %w", template.ID, err)
		}
	}

	createdAt, err := time.Parse(time.RFC3339Nano, stringProp(props, "createdAt"))
	if err != nil {
		return nil, fmt.Errorf("invalid createdAt on template %s: %w", template.ID, err)
	}
	template.CreatedAt = createdAt

	updatedAt, err := time.Parse(time.RFC3339Nano, stringProp(props, "updatedAt"))
	if err != nil {
		return nil, fmt.Errorf("invalid updatedAt on template %s: %w", template.ID, err)
	}
	template.UpdatedAt = updatedAt

	return template, nil
}
