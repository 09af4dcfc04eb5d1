package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/sitemapper/models"
)

// BodyLimit rejects requests declaring a body larger than maxBytes and caps
// the reader for those that do not declare one.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			abort(c, http.StatusRequestEntityTooLarge, models.ErrCodeRequestTooLarge,
				"request body too large")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
