package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"nearby/internal/domain"
	"nearby/internal/services"
)

// respondError maps service errors onto HTTP statuses. Query failures are
// reported as retryable because the store, not the request, was at fault.
// Other users' malformed records never reach here; they are skipped during
// refinement.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, domain.ErrInvalidCoordinate),
		errors.Is(err, domain.ErrInvalidRadius),
		errors.Is(err, services.ErrMissingUserID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "location not found"})
	case errors.Is(err, domain.ErrMalformedRecord):
		// the caller's own stored record; a fresh location update repairs it
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "stored location record is invalid", "reason": err.Error()})
	case errors.Is(err, domain.ErrQueryFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "location store query failed", "retryable": true})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "request cancelled"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func respondBindError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
