package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"billing-relay/backend/internal/auth"
	"billing-relay/backend/internal/config"
	"billing-relay/backend/internal/middleware"
	"billing-relay/backend/internal/models"
	"billing-relay/backend/internal/services"
	ws "billing-relay/backend/pkg/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	feedTypeConnected = "connected"
	feedTypeSnapshot  = "subscription.snapshot"
	feedTypeUpdated   = "subscription.updated"
)

// SubscriptionFeed publishes webhook-driven subscription changes to the
// owning user's websocket room.
type SubscriptionFeed struct {
	hub *ws.Hub
}

func NewSubscriptionFeed(hub *ws.Hub) *SubscriptionFeed {
	return &SubscriptionFeed{hub: hub}
}

func (f *SubscriptionFeed) SubscriptionChanged(sub *models.Subscription) {
	if f == nil || f.hub == nil || sub == nil || sub.UserID == "" {
		return
	}
	f.hub.Broadcast(ws.UserRoom(sub.UserID), feedTypeUpdated, sub)
}

// StatusFeedHandler upgrades to a push-only websocket bound to the caller.
// Browsers can't set headers on the upgrade, so a token query param is
// accepted alongside the cookie and bearer header.
// GET /ws/subscription
func StatusFeedHandler(hub *ws.Hub, accounts *services.AccountService, cfg config.Config) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return middleware.OriginAllowed(cfg, strings.TrimSpace(r.Header.Get("Origin")))
		},
	}

	return func(c *gin.Context) {
		userID, status, msg := feedIdentity(c, cfg)
		if status != 0 {
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("StatusFeedHandler upgrade failed: remote=%s origin=%q err=%v",
				c.ClientIP(), c.Request.Header.Get("Origin"), err,
			)
			return
		}

		client := ws.NewClient(conn, hub, userID)
		if !hub.Register(client) {
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(time.Second),
			)
			_ = conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()

		_ = sendDirect(client, feedTypeConnected, gin.H{"user_id": userID})
		if accounts != nil {
			if overview, err := accounts.Overview(c.Request.Context(), userID); err == nil {
				_ = sendDirect(client, feedTypeSnapshot, overview)
			} else {
				log.Printf("StatusFeedHandler snapshot failed: user_id=%s err=%v", userID, err)
			}
		}
	}
}

// feedIdentity returns the user the feed is for, or an HTTP status and
// message to reject the upgrade with.
func feedIdentity(c *gin.Context, cfg config.Config) (string, int, string) {
	token := middleware.TokenFromRequest(c)
	if token == "" {
		token = strings.TrimSpace(c.Query("token"))
	}
	if token != "" && cfg.JWTSecret != "" {
		claims, err := auth.ParseAndValidateToken(token, cfg)
		if err == nil {
			return claims.UserID, 0, ""
		}
		if cfg.AuthRequired {
			return "", http.StatusUnauthorized, "invalid token"
		}
	}
	if cfg.AuthRequired {
		return "", http.StatusUnauthorized, "missing token"
	}
	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		return "", http.StatusBadRequest, "user_id is required"
	}
	return userID, 0, ""
}

// sendDirect queues a message for one client; it never blocks.
func sendDirect(c *ws.Client, typ string, payload any) error {
	msg := map[string]any{
		"type":      typ,
		"payload":   payload,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case c.Send <- b:
	default:
		log.Printf("ws send drop: user_id=%s type=%s", c.UserID, typ)
	}
	return nil
}
