package hub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Send pings to the peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound message size.
	maxMessageSize = 8 * 1024
)

// InboundMessage is what a live connection sends us: a chat message for the
// party the connection is subscribed to.
type InboundMessage struct {
	Content    string `json:"content"`
	AuthorName string `json:"author_name,omitempty"`
}

// Client is one live connection viewing a party's channel. A connection
// becomes active only after the owning member has been validated by the
// handler; from then on its lifecycle is governed by the two pumps until the
// peer disconnects or the hub drops it.
type Client struct {
	ID       uuid.UUID
	PartyID  uint
	MemberID *uint
	Conn     *websocket.Conn
	Send     chan []byte

	hub *Hub

	// mu guards closed. The hub closes Send when it drops a client, which can
	// race with the client's own ReadPump calling SendEvent; both sides must
	// agree on whether the channel is still open.
	mu     sync.Mutex
	closed bool
}

// NewClient wraps an upgraded connection for the given party.
func NewClient(h *Hub, conn *websocket.Conn, partyID uint, memberID *uint) *Client {
	return &Client{
		ID:       uuid.New(),
		PartyID:  partyID,
		MemberID: memberID,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		hub:      h,
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// ReadPump reads inbound messages from the peer and hands them to onMessage
// until the peer disconnects. It must run in its own goroutine; on return the
// client is unsubscribed and the connection closed.
func (c *Client) ReadPump(onMessage func(client *Client, msg *InboundMessage) error) {
	defer func() {
		c.hub.Unsubscribe(c.PartyID, c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg InboundMessage
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket read error: %v", err)
			}
			break
		}

		if onMessage == nil {
			continue
		}
		if err := onMessage(c, &msg); err != nil {
			// A bad message is the sender's problem only; the connection
			// stays subscribed.
			c.SendEvent(Event{Type: "error", Payload: map[string]string{"error": err.Error()}})
		}
	}
}

// WritePump drains the send queue to the peer and keeps the connection alive
// with pings. It must run in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the queue.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendEvent queues an event for this client only. Events to a full or already
// closed queue are dropped; the broadcast path handles removing dead clients.
func (c *Client) SendEvent(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}
