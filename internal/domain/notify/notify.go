package notify

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// StateChange is the fire-and-forget fact emitted after each committed
// workflow transition. Delivery is best-effort; polling remains the
// authoritative freshness mechanism.
type StateChange struct {
	RequestID  uuid.UUID `json:"requestId"`
	Scope      string    `json:"scope"` // request | negotiation | logistics | invoice
	Status     string    `json:"status"`
	ActorID    uuid.UUID `json:"actorId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Message is one server-sent event.
type Message struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewStateChangeMessage wraps a state change for the stream.
func NewStateChangeMessage(change StateChange) *Message {
	data, _ := json.Marshal(change)
	return &Message{
		ID:        uuid.New().String(),
		Event:     "state_changed",
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// Client represents an active event-stream connection.
type Client struct {
	ClientID    string
	UserID      *string
	ConnectedAt time.Time
	MessageChan chan *Message
}

// NewClient creates a stream client with a buffered channel.
func NewClient(clientID string, userID *string) *Client {
	return &Client{
		ClientID:    clientID,
		UserID:      userID,
		ConnectedAt: time.Now().UTC(),
		MessageChan: make(chan *Message, 100),
	}
}

// Close closes the client's message channel.
func (c *Client) Close() {
	close(c.MessageChan)
}

// Broadcaster fans a committed state change out to connected clients.
type Broadcaster interface {
	BroadcastToAll(msg *Message)
	BroadcastToUser(userID string, msg *Message)
}
