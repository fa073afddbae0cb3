package handlers

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/landsale/backend/internal/auth"
	"github.com/landsale/backend/internal/config"
	"github.com/landsale/backend/internal/events"
	"go.uber.org/zap"
)

// scopeKeys are the payload fields that name the instance an event belongs to.
var scopeKeys = []string{"sale", "collection", "scope"}

type wsClient struct {
	conn  *websocket.Conn
	scope string // пусто: все события
}

type WSHub struct {
	cfg         *config.Config
	subscriber  events.Subscriber
	log         *zap.Logger
	mu          sync.RWMutex
	connections map[common.Address][]*wsClient
}

func NewWSHub(cfg *config.Config, subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		cfg:         cfg,
		subscriber:  subscriber,
		log:         log,
		connections: make(map[common.Address][]*wsClient),
	}
}

func (h *WSHub) Start(ctx context.Context) {
	if err := h.subscriber.Subscribe(ctx, events.StreamLedger, func(event events.Event) {
		h.broadcast(event)
	}); err != nil {
		h.log.Error("ws hub: subscribe failed", zap.Error(err))
	}
}

func (h *WSHub) broadcast(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, clients := range h.connections {
		for _, cl := range clients {
			if !matchesScope(event, cl.scope) {
				continue
			}
			_ = cl.conn.WriteMessage(websocket.TextMessage, data)
		}
	}
}

func matchesScope(event events.Event, scope string) bool {
	if scope == "" {
		return true
	}
	for _, k := range scopeKeys {
		if v, ok := event.Payload[k].(string); ok && strings.EqualFold(v, scope) {
			return true
		}
	}
	return false
}

// WSUpgradeMiddleware checks for websocket upgrade
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// HandleWS streams ledger events. Query: token (required), scope (optional
// sale or collection address).
func (h *WSHub) HandleWS(conn *websocket.Conn) {
	tokenStr := conn.Query("token")
	if tokenStr == "" {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"missing token"}`))
		conn.Close()
		return
	}

	claims, err := auth.ParseJWT(h.cfg.JWTSecret, tokenStr)
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid token"}`))
		conn.Close()
		return
	}

	client := &wsClient{conn: conn}
	if s := conn.Query("scope"); s != "" {
		addr, valid := parseAddress(s)
		if !valid {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid scope"}`))
			conn.Close()
			return
		}
		client.scope = addr.Hex()
	}
	wallet := claims.Wallet()

	h.mu.Lock()
	h.connections[wallet] = append(h.connections[wallet], client)
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		clients := h.connections[wallet]
		for i, cl := range clients {
			if cl == client {
				h.connections[wallet] = append(clients[:i], clients[i+1:]...)
				break
			}
		}
		if len(h.connections[wallet]) == 0 {
			delete(h.connections, wallet)
		}
		h.mu.Unlock()
		conn.Close()
	}()

	// Read loop (keep alive / pings)
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}
}
