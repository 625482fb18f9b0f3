package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"occupancy-status-backend/internal/model"
)

const (
	// sendBufferSize is the per-client outbound message buffer size. A client
	// that falls this far behind is disconnected rather than blocking the
	// broadcast path.
	sendBufferSize = 64

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

// roomsChangedEvent is the single event type pushed to subscribers.
type roomsChangedEvent struct {
	Event      string       `json:"event"`
	ChangeType string       `json:"changeType"`
	Rooms      []model.Room `json:"rooms"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// Hub manages websocket connections and fans roomsChanged events out to all
// of them. Delivery has no acknowledgment: a failed or slow client is dropped
// and the triggering state change is unaffected.
type Hub struct {
	clients map[*client]struct{}
	mu      sync.RWMutex
	closed  bool
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// BroadcastRoomsChanged sends a roomsChanged event to every connected client.
func (h *Hub) BroadcastRoomsChanged(changeType string, rooms []model.Room) {
	data, err := json.Marshal(roomsChangedEvent{
		Event:      "roomsChanged",
		ChangeType: changeType,
		Rooms:      rooms,
	})
	if err != nil {
		log.Printf("Error marshalling roomsChanged event: %v", err)
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.trySend(data) {
			// Buffer full or disconnected; the client is not worth keeping.
			h.unregister(c)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all clients. New connections are rejected afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		close(c.send)
	}
}

// Serve upgrades an HTTP request to a websocket connection and starts the
// client's pumps.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Websocket upgrade failed: %v", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBufferSize)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writePump()
	go c.readPump()
}

// unregister removes a client. Only the goroutine that wins the map delete
// closes the send channel, so concurrent drops cannot double-close.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, existed := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if existed {
		close(c.send)
	}
}

// trySend queues data for the client without blocking. It reports false for a
// full buffer, and absorbs the send-on-closed-channel panic when a concurrent
// unregister closed the channel between the broadcast snapshot and the send.
func (c *client) trySend(data []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// readPump discards inbound frames; clients only listen. It keeps the
// connection's read deadline fresh via pong handling and tears the client
// down when the peer goes away.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
