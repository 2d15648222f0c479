// Package ws bridges the replay engine to browser map clients over
// websockets. The hub implements both rendering collaborator roles: visual
// state updates broadcast to every connected client, and the per-frame
// scheduling primitive the engine's smoothing loop runs on.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-replay/internal/domain"
	"github.com/couchcryptid/hazard-replay/internal/observability"
	"github.com/couchcryptid/hazard-replay/internal/replay"
)

const (
	// frameInterval paces the engine's sub-frame loop at ~30 updates/s.
	frameInterval = 33 * time.Millisecond

	writeWait      = 10 * time.Second
	sendBufferSize = 64
)

// Message is the wire envelope broadcast to clients.
type Message struct {
	Type    string                `json:"type"` // "state", "clear", "frame"
	State   *replay.VisualState   `json:"state,omitempty"`
	Render  *replay.RenderOptions `json:"render,omitempty"`
	Bounds  *domain.Bounds        `json:"bounds,omitempty"`
	Options *replay.FrameOptions  `json:"options,omitempty"`
}

// Hub fans engine output out to connected websocket clients.
type Hub struct {
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}

	// last holds the most recent state message so a newly connected
	// client starts from the current picture instead of a blank map.
	last *Message
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub with no connected clients.
func NewHub(clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		clock:   clock,
		logger:  logger,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The map client is served from the same origin; cross-origin
			// embedding is allowed for local tooling.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// HandleWS upgrades an HTTP request and serves the client until it
// disconnects.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	if h.last != nil {
		if payload, err := json.Marshal(h.last); err == nil {
			c.send <- payload
		}
	}
	h.mu.Unlock()

	h.metrics.RenderClients.Set(float64(count))
	h.logger.Info("render client connected", "remote", r.RemoteAddr, "clients", count)

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards inbound frames; its job is to notice the close.
func (h *Hub) readPump(c *client) {
	defer h.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
	// Hub closed the channel: say goodbye properly.
	c.conn.WriteMessage(websocket.CloseMessage, //nolint:errcheck
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.metrics.RenderClients.Set(float64(count))
		h.logger.Info("render client disconnected", "clients", count)
	}
	c.conn.Close()
}

// broadcast sends a message to every client, dropping clients whose send
// buffer is full rather than letting one stalled connection block the
// frame loop.
func (h *Hub) broadcast(msg *Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.Lock()
	if msg.Type == "state" {
		h.last = msg
	} else if msg.Type == "clear" {
		h.last = nil
	}
	var stalled []*client
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			stalled = append(stalled, c)
		}
	}
	h.mu.Unlock()

	for _, c := range stalled {
		h.logger.Warn("dropping stalled render client")
		h.drop(c)
	}
	return nil
}

// UpdateVisualState broadcasts a new frame to every connected client.
func (h *Hub) UpdateVisualState(state replay.VisualState, opts replay.RenderOptions) error {
	return h.broadcast(&Message{Type: "state", State: &state, Render: &opts})
}

// Clear tells clients to remove all replay layers.
func (h *Hub) Clear() error {
	return h.broadcast(&Message{Type: "clear"})
}

// FrameToRegion tells clients to move their viewport.
func (h *Hub) FrameToRegion(b domain.Bounds, opts replay.FrameOptions) error {
	return h.broadcast(&Message{Type: "frame", Bounds: &b, Options: &opts})
}

// Schedule runs fn once per frame interval until cancelled. The returned
// cancel is idempotent.
func (h *Hub) Schedule(fn func(now time.Time)) (cancel func()) {
	stop := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := h.clock.NewTicker(frameInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.Chan():
				fn(now)
			}
		}
	}()

	return func() {
		once.Do(func() { close(stop) })
	}
}

// ClientCount reports connected render clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client, typically at shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.drop(c)
	}
}
