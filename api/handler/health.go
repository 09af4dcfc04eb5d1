package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/sitemapper/models"
)

// Version is reported by the health endpoint and the CLI.
var Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
func Health(environment string, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
			Environment: environment,
			Uptime:      time.Since(startTime).Round(time.Second).String(),
			Version:     Version,
		})
	}
}

// NotFound answers unknown routes with the JSON failure envelope.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, models.ErrorResponse{
		Success: false,
		Error:   "not found",
		Code:    models.ErrCodeNotFound,
	})
}
