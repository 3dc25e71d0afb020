// Package ws bridges the registry event bus to WebSocket clients so
// dashboards can watch trust, fund, and governance changes live.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/harborfi/vaultguard/internal/domain"
	"github.com/harborfi/vaultguard/internal/events"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 4096

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 256
)

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin is enforced by the CORS middleware in front of the mux.
		return true
	},
}

// client represents a single WebSocket connection.
type client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	kinds map[domain.EventKind]bool
	mu    sync.RWMutex
}

// filterMsg is the JSON message a client sends to narrow the event kinds it
// receives. An empty kind set means all kinds.
type filterMsg struct {
	Action string   `json:"action"` // "filter" or "clear"
	Kinds  []string `json:"kinds"`
}

// Hub manages connected WebSocket clients and fans registry events out to
// them from the event bus.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	bus        domain.EventBus
	mu         sync.RWMutex
	logger     *slog.Logger
	mode       string
	startedAt  time.Time
}

// Config captures runtime metadata sent to clients on connect.
type Config struct {
	Mode      string
	StartedAt time.Time
}

// NewHub creates a hub that subscribes to the registry event channel and
// forwards every event to connected clients.
func NewHub(bus domain.EventBus, logger *slog.Logger, cfg Config) *Hub {
	startedAt := cfg.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		bus:        bus,
		logger:     logger.With(slog.String("component", "ws")),
		mode:       cfg.Mode,
		startedAt:  startedAt,
	}
}

// Run starts the hub's main event loop. It handles client registration,
// unregistration, and broadcasting, and exits when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	go h.pump(ctx)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Info("client connected", slog.Int("total_clients", h.clientCount()))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("client disconnected", slog.Int("total_clients", h.clientCount()))

		case data := <-h.broadcast:
			kind := eventKind(data)
			h.mu.RLock()
			for c := range h.clients {
				if !c.wants(kind) {
					continue
				}
				select {
				case c.send <- data:
				default:
					// Send buffer full; the client is too slow, drop.
					h.logger.Warn("dropping event for slow client")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// pump subscribes to the registry event channel and feeds received payloads
// to the broadcast loop.
func (h *Hub) pump(ctx context.Context) {
	msgCh, err := h.bus.Subscribe(ctx, events.Channel)
	if err != nil {
		h.logger.Error("event subscription failed", slog.String("error", err.Error()))
		return
	}
	h.logger.Info("subscribed to registry events", slog.String("channel", events.Channel))

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgCh:
			if !ok {
				h.logger.Warn("event subscription closed")
				return
			}
			h.broadcast <- data
		}
	}
}

// eventKind peeks at the payload's kind field for client-side filtering.
func eventKind(data []byte) domain.EventKind {
	var ev struct {
		Kind domain.EventKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		return ""
	}
	return ev.Kind
}

// HandleWS upgrades an HTTP request to a WebSocket connection and registers
// the client with the hub.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		kinds: make(map[domain.EventKind]bool),
	}

	h.register <- c
	c.sendHello()

	go c.writePump()
	go c.readPump()
}

// clientCount returns the number of currently connected clients.
func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump reads filter messages from the connection until it closes.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected close", slog.String("error", err.Error()))
			}
			return
		}

		var msg filterMsg
		if err := json.Unmarshal(message, &msg); err == nil {
			c.applyFilter(msg)
		}
	}
}

// applyFilter replaces or clears the client's event-kind filter.
func (c *client) applyFilter(msg filterMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Action {
	case "filter":
		c.kinds = make(map[domain.EventKind]bool, len(msg.Kinds))
		for _, k := range msg.Kinds {
			c.kinds[domain.EventKind(k)] = true
		}
	case "clear":
		c.kinds = make(map[domain.EventKind]bool)
	}
}

// wants reports whether the client's filter admits the event kind. An empty
// filter admits everything.
func (c *client) wants(kind domain.EventKind) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.kinds) == 0 {
		return true
	}
	return c.kinds[kind]
}

// sendHello pushes a small JSON envelope so clients can mark the connection
// healthy before any registry event flows.
func (c *client) sendHello() {
	uptime := int64(time.Since(c.hub.startedAt).Seconds())
	if uptime < 0 {
		uptime = 0
	}

	msg, err := json.Marshal(map[string]any{
		"type": "hello",
		"payload": map[string]any{
			"mode":           c.hub.mode,
			"uptime_seconds": uptime,
			"channel":        events.Channel,
		},
	})
	if err != nil {
		return
	}

	select {
	case c.send <- msg:
	default:
	}
}

// writePump pumps messages from the hub to the WebSocket connection, with
// periodic ping frames for keepalive.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
