package handlers

import (
	"errors"
	"log"
	"net/http"

	"billing-relay/backend/internal/models"
	"billing-relay/backend/internal/services"

	"github.com/gin-gonic/gin"
)

func writeAPIError(c *gin.Context, err error) {
	if err == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	if errors.Is(err, models.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	// Safe typed validation errors (do NOT echo raw processor errors).
	switch {
	case errors.Is(err, services.ErrInvalidPlan):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid plan"})
		return
	case errors.Is(err, services.ErrInvalidMode):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid mode"})
		return
	case errors.Is(err, services.ErrMissingIdentity):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing user identity"})
		return
	case errors.Is(err, services.ErrMissingParameter):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, services.ErrPaymentDeclined):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "payment not completed"})
		return
	case errors.Is(err, services.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	case errors.Is(err, services.ErrSignature):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	case errors.Is(err, services.ErrNotConfigured):
		log.Printf("configuration error: path=%s err=%v", c.Request.URL.Path, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "payment processor not configured"})
		return
	case errors.Is(err, services.ErrUpstream):
		log.Printf("processor error: path=%s err=%v", c.Request.URL.Path, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "payment processor request failed"})
		return
	}

	// Unknown/internal errors: log details, return generic message.
	log.Printf("internal error: path=%s err=%v", c.Request.URL.Path, err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func writeBadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
