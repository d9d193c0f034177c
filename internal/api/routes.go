package api

import (
	"github.com/coinfolio/coinfolio-go/internal/api/handlers"
	"github.com/gin-gonic/gin"
)

// SetupRouter builds the operational HTTP surface. The worker has no
// business-facing endpoints; this router only serves health probes.
func SetupRouter(health *handlers.HealthHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", health.HealthCheck)

	return router
}
