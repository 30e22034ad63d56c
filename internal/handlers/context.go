package handlers

import (
	"strings"

	"billing-relay/backend/internal/middleware"
	"billing-relay/backend/internal/services"

	"github.com/gin-gonic/gin"
)

// identityFromContext returns the caller set by the auth middleware, if any.
func identityFromContext(c *gin.Context) (services.Identity, bool) {
	userID := strings.TrimSpace(c.GetString(middleware.ContextUserID))
	if userID == "" {
		return services.Identity{}, false
	}
	return services.Identity{UserID: userID, Email: c.GetString(middleware.ContextEmail)}, true
}

// resolveIdentity prefers token claims. The fallback is only consulted when
// tokens are optional.
func resolveIdentity(c *gin.Context, authRequired bool, fallback services.Identity) services.Identity {
	if id, ok := identityFromContext(c); ok {
		if id.Email == "" {
			id.Email = strings.TrimSpace(fallback.Email)
		}
		return id
	}
	if authRequired {
		return services.Identity{}
	}
	return services.Identity{
		UserID: strings.TrimSpace(fallback.UserID),
		Email:  strings.TrimSpace(fallback.Email),
	}
}
