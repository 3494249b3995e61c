// api/controller/request_controller.go
package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	aegis_errors "github.com/aegisgov/aegis/api/errors"
	"github.com/aegisgov/aegis/api/model"
	"github.com/aegisgov/aegis/api/service"
	"github.com/aegisgov/aegis/api/util"
	helper_util "github.com/aegisgov/aegis/api/util/helper"
)

type AccessRequestController struct {
	requestService service.IAccessRequestService
}

func NewAccessRequestController(requestService service.IAccessRequestService) *AccessRequestController {
	return &AccessRequestController{
		requestService: requestService,
	}
}

// RegisterRoutes registers the API routes
func (rc *AccessRequestController) RegisterRoutes(r *gin.RouterGroup) {
	requests := r.Group("/organizations/:orgId/access-requests")
	{
		requests.POST("", rc.CreateRequest)
		requests.GET("", rc.ListRequests)
		requests.GET("/:id", rc.GetRequest)
		requests.POST("/:id/approve", rc.ApproveRequest)
		requests.POST("/:id/reject", rc.RejectRequest)
		requests.POST("/:id/cancel", rc.CancelRequest)
		requests.GET("/:id/history", rc.GetRequestHistory)
	}
}

// CreateRequest endpoint
func (rc *AccessRequestController) CreateRequest(c *gin.Context) {
	actor, ok := util.GetIdentity(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", aegis_errors.ErrUnauthorized)
		return
	}

	var input model.CreateAccessRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid access request data", aegis_errors.ErrInvalidRequestData)
		return
	}

	createdRequest, err := rc.requestService.CreateRequest(c, actor, c.Param("orgId"), input)
	if err != nil {
		rc.respondWithWorkflowError(c, err, "Failed to create access request")
		return
	}

	c.JSON(http.StatusCreated, createdRequest)
}

// GetRequest endpoint
func (rc *AccessRequestController) GetRequest(c *gin.Context) {
	if _, ok := util.GetIdentity(c); !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", aegis_errors.ErrUnauthorized)
		return
	}

	request, err := rc.requestService.GetRequest(c, c.Param("orgId"), c.Param("id"))
	if err != nil {
		rc.respondWithWorkflowError(c, err, "Failed to retrieve access request")
		return
	}

	c.JSON(http.StatusOK, request)
}

// ListRequests endpoint
func (rc *AccessRequestController) ListRequests(c *gin.Context) {
	if _, ok := util.GetIdentity(c); !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", aegis_errors.ErrUnauthorized)
		return
	}

	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", aegis_errors.ErrInvalidPagination)
		return
	}

	requests, err := rc.requestService.ListRequests(c, c.Param("orgId"), limit, offset)
	if err != nil {
		rc.respondWithWorkflowError(c, err, "Failed to list access requests")
		return
	}

	c.JSON(http.StatusOK, requests)
}

// ApproveRequest endpoint
func (rc *AccessRequestController) ApproveRequest(c *gin.Context) {
	rc.decide(c, rc.requestService.ApproveRequest, "Failed to approve access request")
}

// RejectRequest endpoint
func (rc *AccessRequestController) RejectRequest(c *gin.Context) {
	rc.decide(c, rc.requestService.RejectRequest, "Failed to reject access request")
}

func (rc *AccessRequestController) decide(
	c *gin.Context,
	op func(ctx context.Context, actor model.Identity, organizationID, requestID string, decision model.DecisionInput) (*model.AccessRequest, error),
	failureMessage string,
) {
	actor, ok := util.GetIdentity(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", aegis_errors.ErrUnauthorized)
		return
	}

	var decision model.DecisionInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&decision); err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid decision data", aegis_errors.ErrInvalidRequestData)
			return
		}
	}

	updatedRequest, err := op(c, actor, c.Param("orgId"), c.Param("id"), decision)
	if err != nil {
		rc.respondWithWorkflowError(c, err, failureMessage)
		return
	}

	c.JSON(http.StatusOK, updatedRequest)
}

// CancelRequest endpoint
func (rc *AccessRequestController) CancelRequest(c *gin.Context) {
	actor, ok := util.GetIdentity(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", aegis_errors.ErrUnauthorized)
		return
	}

	cancelledRequest, err := rc.requestService.CancelRequest(c, actor, c.Param("orgId"), c.Param("id"))
	if err != nil {
		rc.respondWithWorkflowError(c, err, "Failed to cancel access request")
		return
	}

	c.JSON(http.StatusOK, cancelledRequest)
}

// GetRequestHistory endpoint
func (rc *AccessRequestController) GetRequestHistory(c *gin.Context) {
	if _, ok := util.GetIdentity(c); !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", aegis_errors.ErrUnauthorized)
		return
	}

	history, err := rc.requestService.GetRequestHistory(c, c.Param("orgId"), c.Param("id"))
	if err != nil {
		rc.respondWithWorkflowError(c, err, "Failed to retrieve access request history")
		return
	}

	c.JSON(http.StatusOK, history)
}

func (rc *AccessRequestController) respondWithWorkflowError(c *gin.Context, err error, fallbackMessage string) {
	switch {
	case errors.Is(err, aegis_errors.ErrInvalidRequestData):
		util.RespondWithError(c, http.StatusBadRequest, "Invalid access request data", err)
	case errors.Is(err, aegis_errors.ErrForbidden):
		util.RespondWithError(c, http.StatusForbidden, "Forbidden", err)
	case errors.Is(err, aegis_errors.ErrRequestNotFound):
		util.RespondWithError(c, http.StatusNotFound, "Access request not found", err)
	case errors.Is(err, aegis_errors.ErrInvalidTransition):
		util.RespondWithError(c, http.StatusConflict, "Access request is not pending", err)
	case errors.Is(err, aegis_errors.ErrPolicyViolation):
		util.RespondWithError(c, http.StatusUnprocessableEntity, "Governance policy violated", err)
	case errors.Is(err, aegis_errors.ErrUpstreamUnavailable):
		util.RespondWithError(c, http.StatusBadGateway, "Upstream provider unavailable", err)
	case errors.Is(err, aegis_errors.ErrDatabaseOperation):
		util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
	default:
		util.RespondWithError(c, http.StatusInternalServerError, fallbackMessage, aegis_errors.ErrInternalServer)
	}
}
