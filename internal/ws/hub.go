// Package ws pushes notification events to connected browsers. Each user may
// hold several connections (tabs); events fan out to all of them.
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/mdcollab/backend/internal/models"
	"github.com/mdcollab/backend/pkg/logger"
)

const (
	sendBuffer   = 16
	writeTimeout = 10 * time.Second
)

// client owns its send channel lifecycle: the channel is closed exactly once
// by shutdown, and trySend checks closed under the same lock, so a queued
// send can never race the close.
type client struct {
	userID uuid.UUID
	conn   *websocket.Conn

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

// trySend queues data unless the client is already closed or its buffer is
// full.
func (c *client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// shutdown closes the send channel. Safe to call more than once.
func (c *client) shutdown() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID][]*client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[uuid.UUID][]*client)}
}

// Send delivers the payload to every connection the recipient holds. Slow
// connections are dropped rather than blocking the caller; the store remains
// the source of truth for missed events.
func (h *Hub) Send(recipientID uuid.UUID, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("ws_marshal_failed", err, nil)
		return
	}

	h.mu.RLock()
	conns := h.clients[recipientID]
	h.mu.RUnlock()

	for _, c := range conns {
		if !c.trySend(data) {
			h.unregister(c)
		}
	}
}

// ConnectionCount reports how many connections a user currently holds.
func (h *Hub) ConnectionCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.userID] = append(h.clients[c.userID], c)
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	conns := h.clients[c.userID]
	for i, existing := range conns {
		if existing == c {
			h.clients[c.userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.clients[c.userID]) == 0 {
		delete(h.clients, c.userID)
	}
	h.mu.Unlock()

	c.shutdown()
}

// Handler upgrades an authenticated request into a notification stream. The
// auth middleware must have stored the user in locals before the upgrade.
func (h *Hub) Handler() func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		user, ok := conn.Locals("currentUser").(*models.User)
		if !ok {
			conn.Close()
			return
		}

		c := &client{
			userID: user.ID,
			conn:   conn,
			send:   make(chan []byte, sendBuffer),
		}
		h.register(c)

		logger.InfoWithUser(user.ID.String(), "ws_connected", nil)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for data := range c.send {
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			}
			conn.WriteMessage(websocket.CloseMessage, nil)
		}()

		// Inbound messages are ignored; the read loop only detects disconnect.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		h.unregister(c)
		<-done
		conn.Close()

		logger.InfoWithUser(user.ID.String(), "ws_disconnected", nil)
	}
}
