// api/dao/request_dao.go
package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	aegis_errors "github.com/aegisgov/aegis/api/errors"
	logger "github.com/aegisgov/aegis/api/logging"
	"github.com/aegisgov/aegis/api/model"
)

// AccessRequestStore is the persistence contract of the request workflow.
type AccessRequestStore interface {
	CreateRequest(ctx context.Context, request model.AccessRequest) (*model.AccessRequest, error)
	GetRequest(ctx context.Context, requestID string) (*model.AccessRequest, error)
	TransitionRequest(ctx context.Context, requestID string, to model.RequestStatus, approverID string, decidedAt time.Time) (*model.AccessRequest, error)
	ListRequests(ctx context.Context, organizationID string, limit, offset int) ([]*model.AccessRequest, error)
}

type AccessRequestDAO struct {
	Driver neo4j.Driver
}

func NewAccessRequestDAO(driver neo4j.Driver) *AccessRequestDAO {
	dao := &AccessRequestDAO{Driver: driver}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint", zap.Error(err))
	}
	return dao
}

// EnsureUniqueConstraint ensures the unique constraint on the request ID
func (dao *AccessRequestDAO) EnsureUniqueConstraint(ctx context.Context) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() {
		if err := session.Close(); err != nil {
			logger.Error("Failed to close Neo4j session", zap.Error(err))
		}
	}()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_access_request_id IF NOT EXISTS
        FOR (r:ACCESS_REQUEST) REQUIRE r.id IS UNIQUE
        `
		_, err := transaction.Run(query, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create unique constraint: %w", err)
		}
		return nil, nil
	})
	return err
}

// CreateRequest creates a new access request node in the pending state.
func (dao *AccessRequestDAO) CreateRequest(ctx context.Context, request model.AccessRequest) (*model.AccessRequest, error) {
	start := time.Now()
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if request.ID == "" {
		request.ID = uuid.New().String()
	}
	request.Status = model.StatusPending
	request.CreatedAt = time.Now().UTC()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		createQuery := `
        CREATE (r:ACCESS_REQUEST {
            id: $id,
            organizationId: $organizationId,
            requesterId: $requesterId,
            resourceType: $resourceType,
            resourceId: $resourceId,
            templateId: $templateId,
            templateVersion: $templateVersion,
            justification: $justification,
            status: $status,
            approverId: "",
            decidedAt: "",
            createdAt: $createdAt
        })
        RETURN r
        `
		parameters := map[string]interface{}{
			"id":              request.ID,
			"organizationId":  request.OrganizationID,
			"requesterId":     request.RequesterID,
			"resourceType":    request.ResourceType,
			"resourceId":      request.ResourceID,
			"templateId":      request.TemplateID,
			"templateVersion": request.TemplateVersion,
			"justification":   request.Justification,
			"status":          string(request.Status),
			"createdAt":       request.CreatedAt.Format(time.RFC3339Nano),
		}
		createResult, err := transaction.Run(createQuery, parameters)
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		if createResult.Next() {
			node, found := createResult.Record().Get("r")
			if !found {
				return nil, aegis_errors.ErrInternalServer
			}
			return parseRequestNode(node)
		}
		return nil, aegis_errors.ErrInternalServer
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create access request",
			zap.Error(err),
			zap.String("requesterID", request.RequesterID),
			zap.Duration("duration", duration))
		return nil, err
	}

	created := result.(*model.AccessRequest)
	logger.Info("Access request created successfully",
		zap.String("requestID", created.ID),
		zap.Duration("duration", duration))
	return created, nil
}

// GetRequest retrieves an access request by its ID
func (dao *AccessRequestDAO) GetRequest(ctx context.Context, requestID string) (*model.AccessRequest, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (r:ACCESS_REQUEST {id: $id})
        RETURN r
        `
		readResult, err := transaction.Run(query, map[string]interface{}{"id": requestID})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		if readResult.Next() {
			node, found := readResult.Record().Get("r")
			if !found {
				return nil, aegis_errors.ErrInternalServer
			}
			return parseRequestNode(node)
		}
		return nil, aegis_errors.ErrRequestNotFound
	})

	if err != nil {
		return nil, err
	}
	return result.(*model.AccessRequest), nil
}

// TransitionRequest moves a pending request into a terminal state. The
// update is conditional on the stored status still being pending, so of two
// racing writers exactly one matches the node and the loser observes
// ErrInvalidTransition rather than silently overwriting.
func (dao *AccessRequestDAO) TransitionRequest(ctx context.Context, requestID string, to model.RequestStatus, approverID string, decidedAt time.Time) (*model.AccessRequest, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (r:ACCESS_REQUEST {id: $id})
        WHERE r.status = $expected
        SET r.status = $status,
            r.approverId = $approverId,
            r.decidedAt = $decidedAt
        RETURN r
        `
		parameters := map[string]interface{}{
			"id":         requestID,
			"expected":   string(model.StatusPending),
			"status":     string(to),
			"approverId": approverID,
			"decidedAt":  decidedAt.Format(time.RFC3339Nano),
		}
		writeResult, err := transaction.Run(query, parameters)
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		if writeResult.Next() {
			node, found := writeResult.Record().Get("r")
			if !found {
				return nil, aegis_errors.ErrInternalServer
			}
			return parseRequestNode(node)
		}

		// No row matched: the request is either gone or no longer pending.
		checkResult, err := transaction.Run(
			`MATCH (r:ACCESS_REQUEST {id: $id}) RETURN r.id`,
			map[string]interface{}{"id": requestID},
		)
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		if checkResult.Next() {
			return nil, aegis_errors.ErrInvalidTransition
		}
		return nil, aegis_errors.ErrRequestNotFound
	})

	if err != nil {
		if err != aegis_errors.ErrInvalidTransition && err != aegis_errors.ErrRequestNotFound {
			logger.Error("Failed to transition access request",
				zap.Error(err),
				zap.String("requestID", requestID),
				zap.String("to", string(to)))
		}
		return nil, err
	}

	updated := result.(*model.AccessRequest)
	logger.Info("Access request transitioned",
		zap.String("requestID", requestID),
		zap.String("status", string(updated.Status)))
	return updated, nil
}

// ListRequests retrieves the requests of one organization, newest first.
func (dao *AccessRequestDAO) ListRequests(ctx context.Context, organizationID string, limit, offset int) ([]*model.AccessRequest, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (r:ACCESS_REQUEST {organizationId: $organizationId})
        RETURN r
        ORDER BY r.createdAt DESC
        SKIP $offset LIMIT $limit
        `
		readResult, err := transaction.Run(query, map[string]interface{}{
			"organizationId": organizationID,
			"offset":         offset,
			"limit":          limit,
		})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}

		var requests []*model.AccessRequest
		for readResult.Next() {
			node, found := readResult.Record().Get("r")
			if !found {
				continue
			}
			request, err := parseRequestNode(node)
			if err != nil {
				return nil, err
			}
			requests = append(requests, request)
		}
		return requests, nil
	})

	if err != nil {
		logger.Error("Failed to list access requests",
			zap.Error(err),
			zap.String("organizationID", organizationID))
		return nil, err
	}
	return result.([]*model.AccessRequest), nil
}

func parseRequestNode(value interface{}) (*model.AccessRequest, error) {
	node, ok := value.(neo4j.Node)
	if !ok {
		return nil, fmt.Errorf("unexpected node type: %T", value)
	}
	props := node.Props

	request := &model.AccessRequest{
		ID:             stringProp(props, "id"),
		OrganizationID: stringProp(props, "organizationId"),
		RequesterID:    stringProp(props, "requesterId"),
		ResourceType:   stringProp(props, "resourceType"),
		ResourceID:     stringProp(props, "resourceId"),
		TemplateID:     stringProp(props, "templateId"),
		Justification:  stringProp(props, "justification"),
		Status:         model.RequestStatus(stringProp(props, "status")),
		ApproverID:     stringProp(props, "approverId"),
	}
	if v, ok := props["templateVersion"].(int64); ok {
		request.TemplateVersion = int(v)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, stringProp(props, "createdAt"))
	if err != nil {
		return nil, fmt.Errorf("invalid createdAt on request %s: %w", request.ID, err)
	}
	request.CreatedAt = createdAt

	if raw := stringProp(props, "decidedAt"); raw != "" {
		decidedAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid decidedAt on request %s: %w", request.ID, err)
		}
		request.DecidedAt = &decidedAt
	}

	return request, nil
}

func stringProp(props map[string]interface{}, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}
