package hub

import (
	"encoding/json"
	"log"
	"sync"
)

// Event represents a real-time event to be sent to party viewers.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub is the process-wide registry of live connections, keyed by party.
// It is created at process start and emptied on shutdown; all access to the
// registry goes through its mutex.
type Hub struct {
	parties map[uint]map[*Client]bool
	mu      sync.RWMutex
}

// GlobalHub is the singleton instance of our Hub.
var GlobalHub = NewHub()

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		parties: make(map[uint]map[*Client]bool),
	}
}

// Subscribe adds a client to a party's channel. Subscribing the same client
// twice is a no-op (set semantics).
func (h *Hub) Subscribe(partyID uint, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.parties[partyID]; !ok {
		h.parties[partyID] = make(map[*Client]bool)
	}
	h.parties[partyID][client] = true
}

// Unsubscribe removes a client from a party's channel and closes its send
// queue. When the channel becomes empty the entry itself is dropped so the
// registry never grows without bound.
func (h *Hub) Unsubscribe(partyID uint, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.parties[partyID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			client.closeSend()
			if len(clients) == 0 {
				delete(h.parties, partyID)
			}
		}
	}
}

// Broadcast sends an event to every client subscribed to a party. Delivery is
// independent per client: a client whose send queue is full (disconnected or
// hopelessly slow) is unsubscribed instead of failing the publish for the rest.
func (h *Hub) Broadcast(partyID uint, event Event) {
	messageBytes, err := json.Marshal(event)
	if err != nil {
		log.Printf("hub: failed to encode event %q: %v", event.Type, err)
		return
	}

	var dead []*Client

	h.mu.RLock()
	if clients, ok := h.parties[partyID]; ok {
		for client := range clients {
			select {
			case client.Send <- messageBytes:
			default:
				dead = append(dead, client)
			}
		}
	}
	h.mu.RUnlock()

	for _, client := range dead {
		h.Unsubscribe(partyID, client)
	}
}

// ConnectionCount returns how many clients are subscribed to a party.
func (h *Hub) ConnectionCount(partyID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.parties[partyID])
}

// Shutdown unsubscribes every client and empties the registry.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for partyID, clients := range h.parties {
		for client := range clients {
			client.closeSend()
		}
		delete(h.parties, partyID)
	}
}
