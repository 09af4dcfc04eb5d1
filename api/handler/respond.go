package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/sitemapper/models"
)

// respondError maps err to its HTTP status and writes the failure envelope.
func respondError(c *gin.Context, err error) {
	c.JSON(models.HTTPStatus(err), models.NewErrorResponse(models.Detail(err)))
}

// respondBindError reports a request body that could not be decoded or
// failed its binding tags. A body cut off by the size cap is a 413.
func respondBindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(c, models.NewServiceError(models.ErrCodeRequestTooLarge, "request body too large", nil))
		return
	}
	respondError(c, models.NewServiceError(models.ErrCodeInvalidInput, err.Error(), nil))
}
