// api/util/http_util.go
package util

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/aegisgov/aegis/api/logging"
	"github.com/aegisgov/aegis/api/model"
)

const (
	identityKey   = "identity"
	credentialKey = "installationCredential"
)

func RespondWithError(c *gin.Context, code int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	c.JSON(code, gin.H{"error": message})
}

// SetIdentity stores the resolved caller identity on the request context.
// Only the auth middleware writes this key.
func SetIdentity(c *gin.Context, identity model.Identity) {
	c.Set(identityKey, identity)
}

// GetIdentity retrieves the caller identity placed by the auth middleware.
func GetIdentity(c *gin.Context) (model.Identity, bool) {
	value, exists := c.Get(identityKey)
	if !exists {
		return model.Identity{}, false
	}
	identity, ok := value.(model.Identity)
	return identity, ok
}

// SetInstallationCredential stores the exchanged upstream credential on the
// request context, alongside the identity it belongs to.
func SetInstallationCredential(c *gin.Context, cred model.InstallationCredential) {
	c.Set(credentialKey, cred)
}

// GetInstallationCredential retrieves the installation-scoped credential
// placed by the auth middleware. Handlers use it for any downstream call to
// the upstream provider; the caller's own token is never forwarded.
func GetInstallationCredential(c *gin.Context) (model.InstallationCredential, bool) {
	value, exists := c.Get(credentialKey)
	if !exists {
		return model.InstallationCredential{}, false
	}
	cred, ok := value.(model.InstallationCredential)
	return cred, ok
}
