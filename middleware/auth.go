// api/middleware/auth.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aegisgov/aegis/api/bridge"
	logger "github.com/aegisgov/aegis/api/logging"
	"github.com/aegisgov/aegis/api/util"
)

// BearerAuth verifies the Authorization header through the identity bridge,
// exchanges the caller's installation for an upstream credential, and
// threads both into the request context. Handlers read them back with
// util.GetIdentity and util.GetInstallationCredential; nothing downstream
// touches the raw token or calls upstream with the caller's own bearer.
func BearerAuth(b *bridge.Bridge) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			logger.Warn("No Authorization token provided", zap.String("path", c.Request.URL.Path))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		identity, err := b.Authenticate(header)
		if err != nil {
			logger.Warn("Bearer token rejected",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		// No governance action can proceed without a valid upstream
		// credential, so an exchange failure fails the whole request.
		cred, err := b.InstallationCredential(c, identity.InstallationID)
		if err != nil {
			logger.Error("Installation credential exchange failed",
				zap.Error(err),
				zap.String("installationID", identity.InstallationID),
				zap.String("path", c.Request.URL.Path))
			c.JSON(http.StatusBadGateway, gin.H{"error": "Upstream provider unavailable"})
			c.Abort()
			return
		}

		util.SetIdentity(c, identity)
		util.SetInstallationCredential(c, cred)
		c.Next()
	}
}
