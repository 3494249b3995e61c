// api/controller/template_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	aegis_errors "github.com/aegisgov/aegis/api/errors"
	"github.com/aegisgov/aegis/api/model"
	"github.com/aegisgov/aegis/api/service"
	"github.com/aegisgov/aegis/api/util"
	helper_util "github.com/aegisgov/aegis/api/util/helper"
)

type AccessTemplateController struct {
	templateService service.IAccessTemplateService
}

func NewAccessTemplateController(templateService service.IAccessTemplateService) *AccessTemplateController {
	return &AccessTemplateController{
		templateService: templateService,
	}
}

// RegisterRoutes registers the API routes
func (tc *AccessTemplateController) RegisterRoutes(r *gin.RouterGroup) {
	templates := r.Group("/organizations/:orgId/access-templates")
	{
		templates.POST("", tc.CreateTemplate)
		templates.POST("/bulk", tc.BulkCreateTemplates)
		templates.GET("", tc.ListTemplates)
		templates.GET("/:id", tc.GetTemplate)
		templates.PUT("/:id", tc.UpdateTemplate)
		templates.DELETE("/:id", tc.DeleteTemplate)
		templates.GET("/:id/usage", tc.GetTemplateUsage)
	}
}

// CreateTemplate endpoint
func (tc *AccessTemplateController) CreateTemplate(c *gin.Context) {
	actor, ok := util.GetIdentity(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", aegis_errors.ErrUnauthorized)
		return
	}

	var template model.AccessTemplate
	if err := c.ShouldBindJSON(&template); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid template data", aegis_errors.ErrInvalidTemplateData)
		return
	}
	template.OrganizationID = c.Param("orgId")

	createdTemplate, err := tc.templateService.CreateTemplate(c, actor, template)
	if err != nil {
		tc.respondWithCatalogError(c, err, "Failed to create template")
		return
	}

	c.JSON(http.StatusCreated, createdTemplate)
}

// BulkCreateTemplates endpoint
func (tc *AccessTemplateController) BulkCreateTemplates(c *gin.Context) {
	actor, ok := util.GetIdentity(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", aegis_errors.ErrUnauthorized)
		return
	}

	var templates []model.AccessTemplate
	if err := c.ShouldBindJSON(&templates); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid template data", aegis_errors.ErrInvalidTemplateData)
		return
	}
	for i := range templates {
		templates[i].OrganizationID = c.Param("orgId")
	}

	templateIDs, err := tc.templateService.BulkCreateTemplates(c, actor, templates)
	if err != nil {
		tc.respondWithCatalogError(c, err, "Failed to bulk create templates")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"template_ids": templateIDs})
}

// UpdateTemplate endpoint
func (tc *AccessTemplateController) UpdateTemplate(c *gin.Context) {
	actor, ok := util.GetIdentity(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", aegis_errors.ErrUnauthorized)
		return
	}

	var template model.AccessTemplate
	if err := c.ShouldBindJSON(&template); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid template data", aegis_errors.ErrInvalidTemplateData)
		return
	}
	template.ID = c.Param("id")
	template.OrganizationID = c.Param("orgId")

	updatedTemplate, err := tc.templateService.UpdateTemplate(c, actor, template)
	if err != nil {
		tc.respondWithCatalogError(c, err, "Failed to update template")
		return
	}

	c.JSON(http.StatusOK, updatedTemplate)
}

// DeleteTemplate endpoint
func (tc *AccessTemplateController) DeleteTemplate(c *gin.Context) {
	actor, ok := util.GetIdentity(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", aegis_errors.ErrUnauthorized)
		return
	}

	if err := tc.templateService.DeleteTemplate(c, actor, c.Param("orgId"), c.Param("id")); err != nil {
		tc.respondWithCatalogError(c, err, "Failed to delete template")
		return
	}

	c.Status(http.StatusNoContent)
}

// GetTemplate endpoint
func (tc *AccessTemplateController) GetTemplate(c *gin.Context) {
	if _, ok := util.GetIdentity(c); !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", aegis_errors.ErrUnauthorized)
		return
	}

	template, err := tc.templateService.GetTemplate(c, c.Param("orgId"), c.Param("id"))
	if err != nil {
		tc.respondWithCatalogError(c, err, "Failed to retrieve template")
		return
	}

	c.JSON(http.StatusOK, template)
}

// ListTemplates endpoint
func (tc *AccessTemplateController) ListTemplates(c *gin.Context) {
	if _, ok := util.GetIdentity(c); !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", aegis_errors.ErrUnauthorized)
		return
	}

	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", aegis_errors.ErrInvalidPagination)
		return
	}

	templates, err := tc.templateService.ListTemplates(c, c.Param("orgId"), limit, offset)
	if err != nil {
		tc.respondWithCatalogError(c, err, "Failed to list templates")
		return
	}

	c.JSON(http.StatusOK, templates)
}

// GetTemplateUsage endpoint
func (tc *AccessTemplateController) GetTemplateUsage(c *gin.Context) {
	if _, ok := util.GetIdentity(c); !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", aegis_errors.ErrUnauthorized)
		return
	}

	usage, err := tc.templateService.GetTemplateUsage(c, c.Param("orgId"), c.Param("id"))
	if err != nil {
		tc.respondWithCatalogError(c, err, "Failed to analyze template usage")
		return
	}

	c.JSON(http.StatusOK, usage)
}

func (tc *AccessTemplateController) respondWithCatalogError(c *gin.Context, err error, fallbackMessage string) {
	switch {
	case errors.Is(err, aegis_errors.ErrInvalidTemplateData):
		util.RespondWithError(c, http.StatusBadRequest, "Invalid template data", err)
	case errors.Is(err, aegis_errors.ErrTemplateNotFound):
		util.RespondWithError(c, http.StatusNotFound, "Template not found", err)
	case errors.Is(err, aegis_errors.ErrTemplateInUse):
		util.RespondWithError(c, http.StatusConflict, "Template referenced by a non-terminal request", err)
	case errors.Is(err, aegis_errors.ErrDatabaseOperation):
		util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
	default:
		util.RespondWithError(c, http.StatusInternalServerError, fallbackMessage, aegis_errors.ErrInternalServer)
	}
}
