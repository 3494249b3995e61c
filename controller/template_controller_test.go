// api/controller/template_controller_test.go
package controller_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aegisgov/aegis/api/controller"
	aegis_errors "github.com/aegisgov/aegis/api/errors"
	"github.com/aegisgov/aegis/api/model"
	"github.com/aegisgov/aegis/api/test/mock"
	"github.com/aegisgov/aegis/api/util"
)

func newTemplateRouter(svc *mock.MockAccessTemplateService, identity *model.Identity) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if identity != nil {
			util.SetIdentity(c, *identity)
		}
		c.Next()
	})
	api := router.Group("/api/v1")
	controller.NewAccessTemplateController(svc).RegisterRoutes(api)
	return router
}

func TestCreateTemplateEndpoint(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		svc := new(mock.MockAccessTemplateService)
		created := &model.AccessTemplate{ID: "tpl-1", OrganizationID: "org-1", Name: "maintainer", Version: 1}
		svc.On("CreateTemplate", tmock.Anything, testIdentity, tmock.AnythingOfType("model.AccessTemplate")).
			Return(created, nil)

		router := newTemplateRouter(svc, &testIdentity)
		w := performJSON(t, router, http.MethodPost, "/api/v1/organizations/org-1/access-templates", gin.H{
			"name":   "maintainer",
			"grants": []gin.H{{"scope": "repository", "permission": "write"}},
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		var got model.AccessTemplate
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "tpl-1", got.ID)
		assert.Equal(t, 1, got.Version)
	})

	t.Run("InvalidData", func(t *testing.T) {
		svc := new(mock.MockAccessTemplateService)
		svc.On("CreateTemplate", tmock.Anything, testIdentity, tmock.AnythingOfType("model.AccessTemplate")).
			Return(nil, aegis_errors.ErrInvalidTemplateData)

		router := newTemplateRouter(svc, &testIdentity)
		w := performJSON(t, router, http.MethodPost, "/api/v1/organizations/org-1/access-templates", gin.H{
			"name": "",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBulkCreateTemplatesEndpoint(t *testing.T) {
	svc := new(mock.MockAccessTemplateService)
	svc.On("BulkCreateTemplates", tmock.Anything, testIdentity, tmock.AnythingOfType("[]model.AccessTemplate")).
		Return([]string{"tpl-1", "tpl-2"}, nil)

	router := newTemplateRouter(svc, &testIdentity)
	w := performJSON(t, router, http.MethodPost, "/api/v1/organizations/org-1/access-templates/bulk", []gin.H{
		{"name": "maintainer", "grants": []gin.H{{"scope": "repository", "permission": "write"}}},
		{"name": "reader", "grants": []gin.H{{"scope": "repository", "permission": "read"}}},
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	var got map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []string{"tpl-1", "tpl-2"}, got["template_ids"])
}

func TestDeleteTemplateEndpoint(t *testing.T) {
	t.Run("ReferencedByPendingRequest", func(t *testing.T) {
		svc := new(mock.MockAccessTemplateService)
		svc.On("DeleteTemplate", tmock.Anything, testIdentity, "org-1", "tpl-1").
			Return(aegis_errors.ErrTemplateInUse)

		router := newTemplateRouter(svc, &testIdentity)
		w := performJSON(t, router, http.MethodDelete, "/api/v1/organizations/org-1/access-templates/tpl-1", nil)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Deleted", func(t *testing.T) {
		svc := new(mock.MockAccessTemplateService)
		svc.On("DeleteTemplate", tmock.Anything, testIdentity, "org-1", "tpl-1").Return(nil)

		router := newTemplateRouter(svc, &testIdentity)
		w := performJSON(t, router, http.MethodDelete, "/api/v1/organizations/org-1/access-templates/tpl-1", nil)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("NotFound", func(t *testing.T) {
		svc := new(mock.MockAccessTemplateService)
		svc.On("DeleteTemplate", tmock.Anything, testIdentity, "org-1", "missing").
			Return(aegis_errors.ErrTemplateNotFound)

		router := newTemplateRouter(svc, &testIdentity)
		w := performJSON(t, router, http.MethodDelete, "/api/v1/organizations/org-1/access-templates/missing", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestGetTemplateUsageEndpoint(t *testing.T) {
	svc := new(mock.MockAccessTemplateService)
	usage := &model.TemplateUsage{
		TemplateID: "tpl-1",
		Total:      3,
		ByStatus: map[model.RequestStatus]int{
			model.StatusPending:  1,
			model.StatusApproved: 2,
		},
	}
	svc.On("GetTemplateUsage", tmock.Anything, "org-1", "tpl-1").Return(usage, nil)

	router := newTemplateRouter(svc, &testIdentity)
	w := performJSON(t, router, http.MethodGet, "/api/v1/organizations/org-1/access-templates/tpl-1/usage", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var got model.TemplateUsage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 1, got.ByStatus[model.StatusPending])
}

func TestListTemplatesEndpoint(t *testing.T) {
	t.Run("InvalidPagination", func(t *testing.T) {
		svc := new(mock.MockAccessTemplateService)
		router := newTemplateRouter(svc, &testIdentity)

		w := performJSON(t, router, http.MethodGet, "/api/v1/organizations/org-1/access-templates?limit=abc", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "ListTemplates")
	})

	t.Run("Listed", func(t *testing.T) {
		svc := new(mock.MockAccessTemplateService)
		templates := []*model.AccessTemplate{
			{ID: "tpl-1", OrganizationID: "org-1", Name: "maintainer", Version: 2},
		}
		svc.On("ListTemplates", tmock.Anything, "org-1", 10, 0).Return(templates, nil)

		router := newTemplateRouter(svc, &testIdentity)
		w := performJSON(t, router, http.MethodGet, "/api/v1/organizations/org-1/access-templates?limit=10&offset=0", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})
}
