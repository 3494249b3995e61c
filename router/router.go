// api/router/router.go

package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aegisgov/aegis/api/bridge"
	"github.com/aegisgov/aegis/api/controller"
	"github.com/aegisgov/aegis/api/middleware"
)

func SetupRouter(
	controllers *controller.Controllers,
	identityBridge *bridge.Bridge,
	rateLimitRequests int,
	rateLimitDuration time.Duration,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.RateLimiter(rateLimitRequests, rateLimitDuration))
	router.Use(middleware.BearerAuth(identityBridge))

	api := router.Group("/api/v1")

	controllers.Request.RegisterRoutes(api)
	controllers.Template.RegisterRoutes(api)

	return router
}
