package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 15 * time.Second
	wsPongTimeout  = 75 * time.Second
	// Must stay comfortably under wsPongTimeout or healthy peers get dropped.
	wsPingInterval = 50 * time.Second
	wsReadLimit    = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The REST layer already answers any origin; the stream does the same.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSMessage is a message sent over WebSocket connections.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// WSClient is one upgraded connection with its outbound queue.
type WSClient struct {
	hub  *WSHub
	conn *websocket.Conn
	send chan WSMessage
}

// WSHub fans plan-progress events out to connected WebSocket clients.
type WSHub struct {
	mu         sync.RWMutex
	clients    map[*WSClient]bool
	broadcast  chan WSMessage
	register   chan *WSClient
	unregister chan *WSClient
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WSMessage, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
	}
}

// Run starts the hub event loop.
func (h *WSHub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			h.drop(c)
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Queue full means the peer stopped reading.
					h.drop(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop removes a client and closes its queue. Callers hold h.mu.
func (h *WSHub) drop(c *WSClient) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast sends a message to all connected WebSocket clients. Messages are
// dropped rather than blocking the sender when the hub is saturated.
func (h *WSHub) Broadcast(msg WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub.
func (h *WSHub) Register(c *WSClient) {
	h.register <- c
}

// Unregister removes a client from the hub.
func (h *WSHub) Unregister(c *WSClient) {
	h.unregister <- c
}

// handleWebSocket upgrades HTTP connections to WebSocket for streaming
// dividend-plan progress updates.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	c := &WSClient{
		hub:  s.wsHub,
		conn: conn,
		send: make(chan WSMessage, 256),
	}
	s.wsHub.Register(c)

	go c.writeLoop()
	go c.readLoop()
}

// readLoop consumes peer messages until the connection drops. It answers the
// small client-side protocol (subscribe, ping) and keeps the read deadline
// advancing on pongs.
func (c *WSClient) readLoop() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(wsReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}

		var msg WSMessage
		if json.Unmarshal(raw, &msg) != nil {
			continue
		}
		switch msg.Type {
		case "subscribe":
			c.send <- WSMessage{Type: "subscribed", Data: msg.Data}
		case "ping":
			c.send <- WSMessage{Type: "pong"}
		}
	}
}

// writeLoop drains the outbound queue onto the connection and keeps the peer
// alive with periodic pings.
func (c *WSClient) writeLoop() {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				// Hub dropped us.
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
