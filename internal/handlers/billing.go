package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"billing-relay/backend/internal/config"
	"billing-relay/backend/internal/processor"
	"billing-relay/backend/internal/services"

	"github.com/gin-gonic/gin"
)

// maxWebhookBody bounds how much of a webhook delivery is read before the
// signature is checked.
const maxWebhookBody = 64 << 10

type BillingHandler struct {
	cfg      config.Config
	checkout *services.CheckoutService
	webhooks *services.WebhookService
	verify   *services.VerifyService
	accounts *services.AccountService
	driver   string
}

func NewBillingHandler(cfg config.Config, deps Deps) *BillingHandler {
	return &BillingHandler{
		cfg:      cfg,
		checkout: deps.Checkout,
		webhooks: deps.Webhooks,
		verify:   deps.Verify,
		accounts: deps.Accounts,
		driver:   deps.StoreDriver,
	}
}

type checkoutRequest struct {
	Plan       string `json:"plan"`
	Mode       string `json:"mode"`
	UserID     string `json:"userId"`
	Email      string `json:"email" binding:"omitempty,email"`
	SuccessURL string `json:"successUrl" binding:"omitempty,url"`
	CancelURL  string `json:"cancelUrl" binding:"omitempty,url"`
}

type portalRequest struct {
	CustomerID string `json:"customerId"`
	ReturnURL  string `json:"returnUrl" binding:"omitempty,url"`
}

type verifyRequest struct {
	SessionID string `json:"sessionId"`
}

// CreateCheckout starts a hosted checkout (subscription mode) or a
// payment intent (payment mode).
// POST /api/billing/checkout
func (h *BillingHandler) CreateCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "invalid request")
		return
	}

	identity := resolveIdentity(c, h.cfg.AuthRequired, services.Identity{UserID: req.UserID, Email: req.Email})
	res, err := h.checkout.CreateSession(c.Request.Context(), services.CreateSessionInput{
		Plan:       req.Plan,
		Mode:       req.Mode,
		Identity:   identity,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		if errors.Is(err, services.ErrMissingIdentity) && h.cfg.AuthRequired {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CreatePortal returns a billing-portal URL for the customer. Token callers
// may only open the portal for their own customer.
// POST /api/billing/portal
func (h *BillingHandler) CreatePortal(c *gin.Context) {
	var req portalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "invalid request")
		return
	}
	customerID := strings.TrimSpace(req.CustomerID)
	if id, ok := identityFromContext(c); ok && customerID != "" {
		if err := h.accounts.AuthorizeCustomer(c.Request.Context(), id.UserID, customerID); err != nil {
			writeAPIError(c, err)
			return
		}
	}
	url, err := h.checkout.CreatePortalSession(c.Request.Context(), customerID, req.ReturnURL)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// HandleWebhook verifies a processor delivery over the raw body and applies
// it. Verified deliveries are always acknowledged.
// POST /api/billing/webhook
func (h *BillingHandler) HandleWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeBadRequest(c, "payload too large")
			return
		}
		writeBadRequest(c, "failed to read request body")
		return
	}

	outcome, err := h.webhooks.HandleDelivery(c.Request.Context(), payload, c.GetHeader(processor.SignatureHeader))
	if err != nil {
		log.Printf("webhook: rejected remote=%s err=%v", c.ClientIP(), err)
		writeAPIError(c, err)
		return
	}
	c.Header("X-Webhook-Outcome", outcome)
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// VerifyPayment reports whether a checkout session was paid and returns the
// caller's subscription.
// POST /api/billing/verify
func (h *BillingHandler) VerifyPayment(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "invalid request")
		return
	}
	res, err := h.verify.VerifyPayment(c.Request.Context(), req.SessionID)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListPlans returns the price table without processor price ids.
// GET /api/billing/plans
func (h *BillingHandler) ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plans": h.checkout.Plans()})
}

// ConfigStatus reports which integrations are configured.
// GET /api/billing/config
func (h *BillingHandler) ConfigStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stripeConfigured":  h.cfg.StripeConfigured(),
		"webhookConfigured": h.cfg.WebhookConfigured(),
		"authRequired":      h.cfg.AuthRequired,
		"storeDriver":       h.driver,
		"publishableKey":    h.cfg.StripePublishableKey,
		"plans":             h.checkout.Plans(),
	})
}

// Account returns the caller's subscription and payment history.
// GET /api/billing/me
func (h *BillingHandler) Account(c *gin.Context) {
	identity := resolveIdentity(c, h.cfg.AuthRequired, services.Identity{UserID: c.Query("user_id")})
	overview, err := h.accounts.Overview(c.Request.Context(), identity.UserID)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}
