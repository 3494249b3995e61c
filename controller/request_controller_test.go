// api/controller/request_controller_test.go
package controller_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aegisgov/aegis/api/audit"
	"github.com/aegisgov/aegis/api/controller"
	aegis_errors "github.com/aegisgov/aegis/api/errors"
	logger "github.com/aegisgov/aegis/api/logging"
	"github.com/aegisgov/aegis/api/model"
	"github.com/aegisgov/aegis/api/test/mock"
	"github.com/aegisgov/aegis/api/util"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.InitLogger(os.TempDir())
}

var testIdentity = model.Identity{UserID: "alice", InstallationID: "inst-1"}

// newRequestRouter wires the controller behind a stub auth layer that plants
// the given identity, mirroring what the bearer middleware does in
// production.
func newRequestRouter(svc *mock.MockAccessRequestService, identity *model.Identity) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if identity != nil {
			util.SetIdentity(c, *identity)
		}
		c.Next()
	})
	api := router.Group("/api/v1")
	controller.NewAccessRequestController(svc).RegisterRoutes(api)
	return router
}

func performJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateRequestEndpoint(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		svc := new(mock.MockAccessRequestService)
		created := &model.AccessRequest{ID: "req-1", OrganizationID: "org-1", Status: model.StatusPending}
		svc.On("CreateRequest", tmock.Anything, testIdentity, "org-1", tmock.AnythingOfType("model.CreateAccessRequestInput")).
			Return(created, nil)

		router := newRequestRouter(svc, &testIdentity)
		w := performJSON(t, router, http.MethodPost, "/api/v1/organizations/org-1/access-requests", gin.H{
			"resource_type": "repository",
			"resource_id":   "repo-42",
			"justification": "release hotfix",
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		var got model.AccessRequest
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "req-1", got.ID)
		svc.AssertExpectations(t)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		svc := new(mock.MockAccessRequestService)
		router := newRequestRouter(svc, &testIdentity)

		w := performJSON(t, router, http.MethodPost, "/api/v1/organizations/org-1/access-requests", gin.H{
			"resource_type": "repository",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "CreateRequest")
	})

	t.Run("NoIdentity", func(t *testing.T) {
		svc := new(mock.MockAccessRequestService)
		router := newRequestRouter(svc, nil)

		w := performJSON(t, router, http.MethodPost, "/api/v1/organizations/org-1/access-requests", gin.H{
			"resource_type": "repository",
			"resource_id":   "repo-42",
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestApproveRequestEndpoint(t *testing.T) {
	t.Run("PolicyViolation", func(t *testing.T) {
		svc := new(mock.MockAccessRequestService)
		svc.On("ApproveRequest", tmock.Anything, testIdentity, "org-1", "req-1", tmock.AnythingOfType("model.DecisionInput")).
			Return(nil, aegis_errors.ErrPolicyViolation)

		router := newRequestRouter(svc, &testIdentity)
		w := performJSON(t, router, http.MethodPost, "/api/v1/organizations/org-1/access-requests/req-1/approve", nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("AlreadyDecided", func(t *testing.T) {
		svc := new(mock.MockAccessRequestService)
		svc.On("ApproveRequest", tmock.Anything, testIdentity, "org-1", "req-1", tmock.AnythingOfType("model.DecisionInput")).
			Return(nil, aegis_errors.ErrInvalidTransition)

		router := newRequestRouter(svc, &testIdentity)
		w := performJSON(t, router, http.MethodPost, "/api/v1/organizations/org-1/access-requests/req-1/approve", nil)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("ApprovedWithComment", func(t *testing.T) {
		svc := new(mock.MockAccessRequestService)
		approved := &model.AccessRequest{ID: "req-1", Status: model.StatusApproved, ApproverID: "alice"}
		svc.On("ApproveRequest", tmock.Anything, testIdentity, "org-1", "req-1", model.DecisionInput{Comment: "looks good"}).
			Return(approved, nil)

		router := newRequestRouter(svc, &testIdentity)
		w := performJSON(t, router, http.MethodPost, "/api/v1/organizations/org-1/access-requests/req-1/approve", gin.H{
			"comment": "looks good",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})
}

func TestCancelRequestEndpoint(t *testing.T) {
	t.Run("Forbidden", func(t *testing.T) {
		svc := new(mock.MockAccessRequestService)
		svc.On("CancelRequest", tmock.Anything, testIdentity, "org-1", "req-1").
			Return(nil, aegis_errors.ErrForbidden)

		router := newRequestRouter(svc, &testIdentity)
		w := performJSON(t, router, http.MethodPost, "/api/v1/organizations/org-1/access-requests/req-1/cancel", nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestGetRequestEndpoint(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		svc := new(mock.MockAccessRequestService)
		svc.On("GetRequest", tmock.Anything, "org-1", "missing").
			Return(nil, aegis_errors.ErrRequestNotFound)

		router := newRequestRouter(svc, &testIdentity)
		w := performJSON(t, router, http.MethodGet, "/api/v1/organizations/org-1/access-requests/missing", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestListRequestsEndpoint(t *testing.T) {
	t.Run("Listed", func(t *testing.T) {
		svc := new(mock.MockAccessRequestService)
		requests := []*model.AccessRequest{
			{ID: "req-1", OrganizationID: "org-1", Status: model.StatusPending},
			{ID: "req-2", OrganizationID: "org-1", Status: model.StatusApproved},
		}
		svc.On("ListRequests", tmock.Anything, "org-1", 10, 0).Return(requests, nil)

		router := newRequestRouter(svc, &testIdentity)
		w := performJSON(t, router, http.MethodGet, "/api/v1/organizations/org-1/access-requests?limit=10&offset=0", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var got []model.AccessRequest
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "req-1", got[0].ID)
		svc.AssertExpectations(t)
	})

	t.Run("InvalidPagination", func(t *testing.T) {
		svc := new(mock.MockAccessRequestService)
		router := newRequestRouter(svc, &testIdentity)

		w := performJSON(t, router, http.MethodGet, "/api/v1/organizations/org-1/access-requests?offset=abc", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "ListRequests")
	})
}

func TestGetRequestHistoryEndpoint(t *testing.T) {
	svc := new(mock.MockAccessRequestService)
	userID := "alice"
	history := []audit.Entry{
		{ID: "e1", UserID: &userID, Action: audit.ActionRequestCreated, ResourceID: "req-1"},
		{ID: "e2", UserID: &userID, Action: audit.ActionRequestApproved, ResourceID: "req-1"},
	}
	svc.On("GetRequestHistory", tmock.Anything, "org-1", "req-1").Return(history, nil)

	router := newRequestRouter(svc, &testIdentity)
	w := performJSON(t, router, http.MethodGet, "/api/v1/organizations/org-1/access-requests/req-1/history", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var got []audit.Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, audit.ActionRequestCreated, got[0].Action)
}
