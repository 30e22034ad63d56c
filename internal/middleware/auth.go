package middleware

import (
	"net/http"
	"strings"

	"billing-relay/backend/internal/auth"
	"billing-relay/backend/internal/config"

	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middleware.
const (
	ContextUserID = "userID"
	ContextEmail  = "email"
)

func RequireAuth(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := auth.ParseAndValidateToken(token, cfg)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		setIdentity(c, claims)
		c.Next()
	}
}

// Identity enforces a token when cfg.AuthRequired is set. Otherwise a valid
// token still sets the identity, and requests without one fall through so
// handlers can take the caller from the request body.
func Identity(cfg config.Config) gin.HandlerFunc {
	if cfg.AuthRequired {
		return RequireAuth(cfg)
	}
	return func(c *gin.Context) {
		if token := TokenFromRequest(c); token != "" && cfg.JWTSecret != "" {
			if claims, err := auth.ParseAndValidateToken(token, cfg); err == nil {
				setIdentity(c, claims)
			}
		}
		c.Next()
	}
}

func setIdentity(c *gin.Context, claims *auth.Claims) {
	c.Set(ContextUserID, claims.UserID)
	if claims.Email != "" {
		c.Set(ContextEmail, claims.Email)
	}
}

// TokenFromRequest reads the session cookie first, then an
// Authorization: Bearer header.
func TokenFromRequest(c *gin.Context) string {
	if v, err := c.Cookie(auth.AuthCookieName); err == nil {
		if t := strings.TrimSpace(v); t != "" {
			return t
		}
	}
	authz := c.GetHeader("Authorization")
	if authz != "" {
		parts := strings.SplitN(authz, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return ""
}
