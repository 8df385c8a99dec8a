package sse

import (
	"sync"

	"github.com/fleetdesk/fleetdesk/internal/domain/notify"
)

// Hub manages event-stream clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*notify.Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*notify.Client),
	}
}

func (h *Hub) Register(client *notify.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ClientID] = client
}

func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		c.Close()
		delete(h.clients, clientID)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) BroadcastToAll(msg *notify.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		trySend(c, msg)
	}
}

func (h *Hub) BroadcastToUser(userID string, msg *notify.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.UserID != nil && *c.UserID == userID {
			trySend(c, msg)
		}
	}
}

func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.Close()
		delete(h.clients, id)
	}
}

// trySend drops the message when the client's buffer is full; slow consumers
// never block a broadcast.
func trySend(c *notify.Client, msg *notify.Message) bool {
	select {
	case c.MessageChan <- msg:
		return true
	default:
		return false
	}
}
