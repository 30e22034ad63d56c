package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"billing-relay/backend/internal/config"

	"github.com/gin-gonic/gin"
)

// CORS allows credentialed requests from CORS_ALLOWED_ORIGINS, plus any
// loopback origin in development.
func CORS(cfg config.Config) gin.HandlerFunc {
	allowed := map[string]bool{}
	for _, o := range cfg.CORSAllowedOrigins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	dev := cfg.AppEnv == "development"

	return func(c *gin.Context) {
		origin := strings.TrimSpace(c.GetHeader("Origin"))
		if origin == "" {
			c.Next()
			return
		}

		if allowed[origin] || (dev && IsLoopbackOrigin(origin)) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Stripe-Signature")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// IsLoopbackOrigin matches localhost, 127.0.0.1 and ::1 on any port/scheme.
func IsLoopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// OriginAllowed applies the same policy as CORS to websocket upgrades.
func OriginAllowed(cfg config.Config, origin string) bool {
	if origin == "" {
		return true
	}
	if cfg.AppEnv == "development" && IsLoopbackOrigin(origin) {
		return true
	}
	for _, o := range cfg.CORSAllowedOrigins {
		if strings.TrimRight(o, "/") == origin {
			return true
		}
	}
	return false
}
