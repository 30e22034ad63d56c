package handlers

import (
	"net/http"

	"billing-relay/backend/internal/config"
	"billing-relay/backend/internal/middleware"
	"billing-relay/backend/internal/services"
	ws "billing-relay/backend/pkg/websocket"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps are the services the HTTP surface is built from. Metrics and Hub
// are optional.
type Deps struct {
	Checkout    *services.CheckoutService
	Webhooks    *services.WebhookService
	Verify      *services.VerifyService
	Accounts    *services.AccountService
	Hub         *ws.Hub
	StoreDriver string
	Metrics     http.Handler
}

// NewRouter builds the engine with every route, plus JSON 404/405 handlers.
func NewRouter(cfg config.Config, serviceName string, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middleware.CORS(cfg))

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	RegisterBillingRoutes(r.Group("/api/billing"), NewBillingHandler(cfg, deps), cfg)

	if deps.Hub != nil {
		r.GET("/ws/subscription", StatusFeedHandler(deps.Hub, deps.Accounts, cfg))
	}
	return r
}

// RegisterBillingRoutes wires the billing endpoints. The webhook route is
// authenticated by its signature, never by a user token.
func RegisterBillingRoutes(rg *gin.RouterGroup, h *BillingHandler, cfg config.Config) {
	rg.POST("/webhook", h.HandleWebhook)
	rg.GET("/plans", h.ListPlans)
	rg.GET("/config", h.ConfigStatus)
	rg.POST("/verify", h.VerifyPayment)

	user := rg.Group("")
	user.Use(middleware.Identity(cfg))
	user.POST("/checkout", h.CreateCheckout)
	user.POST("/portal", h.CreatePortal)
	user.GET("/me", h.Account)
}
