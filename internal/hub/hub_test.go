package hub

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

func newTestClient(h *Hub, partyID uint, buffer int) *Client {
	return &Client{
		ID:      uuid.New(),
		PartyID: partyID,
		Send:    make(chan []byte, buffer),
		hub:     h,
	}
}

func receiveEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case data := <-c.Send:
		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return event
	default:
		t.Fatal("expected a queued event")
	}
	return Event{}
}

func TestSubscribeIsIdempotent(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, 1, 4)

	h.Subscribe(1, c)
	h.Subscribe(1, c)

	if got := h.ConnectionCount(1); got != 1 {
		t.Fatalf("expected 1 connection, got %d", got)
	}

	h.Broadcast(1, Event{Type: "ping"})
	receiveEvent(t, c)
	select {
	case <-c.Send:
		t.Fatal("duplicate subscription delivered the event twice")
	default:
	}
}

func TestUnsubscribeDropsEmptyChannel(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, 7, 4)

	h.Subscribe(7, c)
	h.Unsubscribe(7, c)

	if got := h.ConnectionCount(7); got != 0 {
		t.Fatalf("expected 0 connections, got %d", got)
	}
	if _, ok := h.parties[7]; ok {
		t.Fatal("expected empty channel entry to be removed")
	}
	if _, ok := <-c.Send; ok {
		t.Fatal("expected send queue to be closed")
	}

	// Unsubscribing again must not panic or double-close.
	h.Unsubscribe(7, c)
}

func TestBroadcastDeliversToEverySubscriber(t *testing.T) {
	h := NewHub()
	a := newTestClient(h, 1, 4)
	b := newTestClient(h, 1, 4)
	other := newTestClient(h, 2, 4)

	h.Subscribe(1, a)
	h.Subscribe(1, b)
	h.Subscribe(2, other)

	for i := 0; i < 3; i++ {
		h.Broadcast(1, Event{Type: fmt.Sprintf("event-%d", i)})
	}

	for _, c := range []*Client{a, b} {
		for i := 0; i < 3; i++ {
			event := receiveEvent(t, c)
			if want := fmt.Sprintf("event-%d", i); event.Type != want {
				t.Fatalf("expected %s, got %s", want, event.Type)
			}
		}
	}

	select {
	case <-other.Send:
		t.Fatal("client of another party received the event")
	default:
	}
}

func TestBroadcastUnsubscribesFullClients(t *testing.T) {
	h := NewHub()
	stuck := newTestClient(h, 1, 1)
	healthy := newTestClient(h, 1, 4)

	h.Subscribe(1, stuck)
	h.Subscribe(1, healthy)

	h.Broadcast(1, Event{Type: "first"})
	h.Broadcast(1, Event{Type: "second"}) // stuck's queue is full now

	if got := h.ConnectionCount(1); got != 1 {
		t.Fatalf("expected the stuck client to be dropped, got %d connections", got)
	}

	if event := receiveEvent(t, healthy); event.Type != "first" {
		t.Fatalf("expected first, got %s", event.Type)
	}
	if event := receiveEvent(t, healthy); event.Type != "second" {
		t.Fatalf("expected second, got %s", event.Type)
	}
}

func TestSendEventAfterHubDropsClient(t *testing.T) {
	h := NewHub()

	// Dropped by an explicit unsubscribe: the send queue is closed, but the
	// client's read loop may still report errors. That must be a silent drop,
	// not a panic.
	c := newTestClient(h, 1, 4)
	h.Subscribe(1, c)
	h.Unsubscribe(1, c)
	c.SendEvent(Event{Type: "error"})

	// Dropped by a broadcast to a full queue.
	stuck := newTestClient(h, 2, 1)
	h.Subscribe(2, stuck)
	h.Broadcast(2, Event{Type: "first"})
	h.Broadcast(2, Event{Type: "second"})
	if got := h.ConnectionCount(2); got != 0 {
		t.Fatalf("expected the stuck client to be dropped, got %d connections", got)
	}
	stuck.SendEvent(Event{Type: "error"})
}

func TestSendEventDropsWhenFull(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, 1, 1)

	c.SendEvent(Event{Type: "first"})
	c.SendEvent(Event{Type: "dropped"})

	if event := receiveEvent(t, c); event.Type != "first" {
		t.Fatalf("expected first, got %s", event.Type)
	}
	select {
	case <-c.Send:
		t.Fatal("expected the overflow event to be dropped")
	default:
	}
}

func TestShutdown(t *testing.T) {
	h := NewHub()
	a := newTestClient(h, 1, 4)
	b := newTestClient(h, 2, 4)

	h.Subscribe(1, a)
	h.Subscribe(2, b)
	h.Shutdown()

	if h.ConnectionCount(1) != 0 || h.ConnectionCount(2) != 0 {
		t.Fatal("expected empty registry after shutdown")
	}
	if _, ok := <-a.Send; ok {
		t.Fatal("expected a's send queue to be closed")
	}
	if _, ok := <-b.Send; ok {
		t.Fatal("expected b's send queue to be closed")
	}
}
