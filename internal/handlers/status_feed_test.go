package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"billing-relay/backend/internal/config"
	"billing-relay/backend/internal/processor"
	"billing-relay/backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feedMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readFeed(t *testing.T, conn *websocket.Conn) feedMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg feedMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestStatusFeedPushesSubscriptionUpdates(t *testing.T) {
	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/subscription?user_id=user-1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, feedTypeConnected, readFeed(t, conn).Type)
	assert.Equal(t, feedTypeSnapshot, readFeed(t, conn).Type)

	payload := subscriptionEvent("evt_1", services.EventSubscriptionCreated, "sub_1", "active", `{"user_id":"user-1","plan":"premium"}`)
	w := s.do(http.MethodPost, "/api/billing/webhook", payload, processor.SignatureHeader, signed(payload))
	require.Equal(t, http.StatusOK, w.Code)

	msg := readFeed(t, conn)
	assert.Equal(t, feedTypeUpdated, msg.Type)
	var sub map[string]any
	require.NoError(t, json.Unmarshal(msg.Payload, &sub))
	assert.Equal(t, "sub_1", sub["stripe_subscription_id"])
	assert.Equal(t, "active", sub["status"])
}

func TestStatusFeedRejectsAnonymousCallers(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(http.MethodGet, "/ws/subscription", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	secured := newTestServer(t, func(c *config.Config) { c.AuthRequired = true })
	w = secured.do(http.MethodGet, "/ws/subscription?user_id=user-1", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = secured.do(http.MethodGet, "/ws/subscription?token=garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
