// api/middleware/auth_test.go
package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisgov/aegis/api/bridge"
	logger "github.com/aegisgov/aegis/api/logging"
	"github.com/aegisgov/aegis/api/middleware"
	"github.com/aegisgov/aegis/api/util"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.InitLogger(os.TempDir())
}

const authTestSecret = "middleware-test-secret"

func signBearer(t *testing.T, installationID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, bridge.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		InstallationID: installationID,
		OrgAdmin:       true,
	})
	signed, err := token.SignedString([]byte(authTestSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

// newAuthRouter wires BearerAuth in front of a handler that echoes back
// what the middleware attached to the context.
func newAuthRouter(b *bridge.Bridge) *gin.Engine {
	router := gin.New()
	router.Use(middleware.BearerAuth(b))
	router.GET("/protected", func(c *gin.Context) {
		identity, _ := util.GetIdentity(c)
		cred, hasCred := util.GetInstallationCredential(c)
		c.JSON(http.StatusOK, gin.H{
			"user_id":         identity.UserID,
			"installation_id": cred.InstallationID,
			"token":           cred.Token,
			"has_credential":  hasCred,
		})
	})
	return router
}

func TestBearerAuth(t *testing.T) {
	t.Run("AttachesIdentityAndCredential", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"token":      "ghs_installation_token",
				"expires_at": time.Now().Add(time.Hour).Format(time.RFC3339),
			})
		}))
		t.Cleanup(upstream.Close)

		b := bridge.New(authTestSecret, upstream.URL, time.Second, time.Minute)
		router := newAuthRouter(b)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", signBearer(t, "inst-1"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "alice", got["user_id"])
		assert.Equal(t, "inst-1", got["installation_id"])
		assert.Equal(t, "ghs_installation_token", got["token"])
		assert.Equal(t, true, got["has_credential"])
	})

	t.Run("UpstreamExchangeFailureIsBadGateway", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		t.Cleanup(upstream.Close)

		b := bridge.New(authTestSecret, upstream.URL, time.Second, time.Minute)
		router := newAuthRouter(b)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", signBearer(t, "inst-1"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("MissingAuthorizationHeader", func(t *testing.T) {
		var exchanged bool
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			exchanged = true
		}))
		t.Cleanup(upstream.Close)

		b := bridge.New(authTestSecret, upstream.URL, time.Second, time.Minute)
		router := newAuthRouter(b)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, exchanged, "no exchange may happen for an unauthenticated caller")
	})

	t.Run("RejectedTokenSkipsExchange", func(t *testing.T) {
		var exchanged bool
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			exchanged = true
		}))
		t.Cleanup(upstream.Close)

		b := bridge.New(authTestSecret, upstream.URL, time.Second, time.Minute)
		router := newAuthRouter(b)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, exchanged)
	})
}
