// Package ws bridges the Redis signal bus to WebSocket clients so frontends
// can follow claim and pool events live.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/freelanceshield/shieldd/internal/cache/redis"
	"github.com/freelanceshield/shieldd/internal/domain"
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

// defaultChannels are the signal bus channels the hub mirrors.
var defaultChannels = []string{
	redis.ChannelClaims,
	redis.ChannelPool,
}

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS policy is enforced by the HTTP middleware in front of this.
		return true
	},
}

// client represents a single WebSocket connection.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	subs map[string]bool
	mu   sync.RWMutex
}

// subscribeMsg is the JSON message a client sends to manage its channel set.
type subscribeMsg struct {
	Action   string   `json:"action"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// frame is the JSON envelope the hub sends for every bus delivery.
type frame struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans signal bus deliveries out to connected WebSocket clients.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan domain.SignalMessage
	register   chan *client
	unregister chan *client
	bus        domain.SignalBus
	mu         sync.RWMutex
	logger     *slog.Logger
	mode       string
	startedAt  time.Time
}

// NewHub creates a hub over the given signal bus. The mode string is echoed
// in the status frame sent to clients on connect.
func NewHub(bus domain.SignalBus, mode string, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan domain.SignalMessage, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		bus:        bus,
		logger:     logger.With(slog.String("component", "ws_hub")),
		mode:       mode,
		startedAt:  time.Now().UTC(),
	}
}

// Run subscribes to the bus and drives the hub's event loop until the
// context is cancelled. Call in a goroutine.
func (h *Hub) Run(ctx context.Context) error {
	msgCh, err := h.bus.Subscribe(ctx, defaultChannels...)
	if err != nil {
		return err
	}
	go h.pump(ctx, msgCh)

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
			h.logger.Info("client connected",
				slog.Int("total_clients", h.clientCount()),
			)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("client disconnected",
				slog.Int("total_clients", h.clientCount()),
			)

		case msg := <-h.broadcast:
			data, err := json.Marshal(frame{
				Channel: msg.Channel,
				Payload: json.RawMessage(msg.Payload),
			})
			if err != nil {
				continue
			}
			h.mu.RLock()
			for c := range h.clients {
				if !c.isSubscribed(msg.Channel) {
					continue
				}
				select {
				case c.send <- data:
				default:
					// Client's send buffer is full; drop the frame.
					h.logger.Warn("dropping frame for slow client")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// pump forwards bus deliveries into the broadcast loop.
func (h *Hub) pump(ctx context.Context, msgCh <-chan domain.SignalMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgCh:
			if !ok {
				h.logger.Warn("bus subscription closed")
				return
			}
			h.broadcast <- msg
		}
	}
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
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: make(map[string]bool, len(defaultChannels)),
	}
	for _, ch := range defaultChannels {
		c.subs[ch] = true
	}

	h.register <- c
	c.sendInitialStatus()

	go c.writePump()
	go c.readPump()
}

// clientCount returns the number of currently connected clients.
func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump consumes client frames, which only carry subscription management
// requests.
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
				c.hub.logger.Warn("unexpected close error",
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var sub subscribeMsg
		if jsonErr := json.Unmarshal(message, &sub); jsonErr == nil && sub.Action != "" {
			c.handleSubscription(sub)
		}
	}
}

// handleSubscription processes subscribe/unsubscribe requests.
func (c *client) handleSubscription(msg subscribeMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Action {
	case "subscribe":
		for _, ch := range msg.Channels {
			c.subs[ch] = true
		}
	case "unsubscribe":
		for _, ch := range msg.Channels {
			delete(c.subs, ch)
		}
	}
}

// sendInitialStatus pushes a small status frame so clients can mark the
// connection healthy before any claim or pool event arrives.
func (c *client) sendInitialStatus() {
	uptime := int64(time.Since(c.hub.startedAt).Seconds())
	if uptime < 0 {
		uptime = 0
	}

	msg, err := json.Marshal(map[string]any{
		"type": "engine_status",
		"payload": map[string]any{
			"mode":           c.hub.mode,
			"ws_connected":   true,
			"uptime_seconds": uptime,
			"channels":       defaultChannels,
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

// isSubscribed checks whether the client follows the given channel.
func (c *client) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subs[channel]
}

// writePump delivers hub frames and periodic pings to the connection.
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
				// The hub closed the channel.
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
