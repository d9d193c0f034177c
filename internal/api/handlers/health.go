package handlers

import (
	"net/http"
	"time"

	"github.com/coinfolio/coinfolio-go/internal/database"
	"github.com/gin-gonic/gin"
)

// HealthHandler exposes the operational health of the worker's backing
// stores.
type HealthHandler struct {
	db    *database.PostgresDB
	redis *database.RedisClient
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *database.PostgresDB, redis *database.RedisClient) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// HealthCheck reports the status of PostgreSQL and Redis.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	status := http.StatusOK
	checks := gin.H{
		"postgres": "ok",
		"redis":    "ok",
	}

	if err := h.db.HealthCheck(ctx); err != nil {
		status = http.StatusServiceUnavailable
		checks["postgres"] = err.Error()
	}
	if err := h.redis.HealthCheck(ctx); err != nil {
		status = http.StatusServiceUnavailable
		checks["redis"] = err.Error()
	}

	c.JSON(status, gin.H{
		"status":    http.StatusText(status),
		"checks":    checks,
		"timestamp": time.Now().UTC(),
	})
}
