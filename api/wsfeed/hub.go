// Package wsfeed pushes book events to websocket clients.
package wsfeed

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"matchbook/domain/event"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// DepthSource returns the depth a new client starts from.
type DepthSource func() event.Event

type client struct {
	conn  *websocket.Conn
	send  chan []byte
	kinds map[event.Kind]bool
}

func (c *client) wants(k event.Kind) bool {
	return len(c.kinds) == 0 || c.kinds[k]
}

type message struct {
	kind event.Kind
	data []byte
}

// Hub fans events out to connected clients. Slow clients are dropped
// rather than allowed to stall the engine.
type Hub struct {
	depth DepthSource
	log   *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}

	broadcast chan message
	done      chan struct{}
}

func NewHub(depth DepthSource, log *slog.Logger) *Hub {
	return &Hub{
		depth:     depth,
		log:       log,
		clients:   make(map[*client]struct{}),
		broadcast: make(chan message, 1024),
		done:      make(chan struct{}),
	}
}

// Run routes broadcasts until ctx ends, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return
		case m := <-h.broadcast:
			h.fanOut(m)
		}
	}
}

func (h *Hub) fanOut(m message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.wants(m.kind) {
			continue
		}
		select {
		case c.send <- m.data:
		default:
			h.log.Warn("dropping slow websocket client", "remote", c.conn.RemoteAddr().String())
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Consume queues e for every client. It never blocks the caller.
func (h *Hub) Consume(e event.Event) error {
	b, err := e.Marshal()
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- message{kind: e.Kind, data: b}:
	default:
		h.log.Warn("websocket broadcast queue full", "seq", e.Seq)
	}
	return nil
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request. The optional kinds query parameter
// (comma separated) limits which events the client receives.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", "err", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer), kinds: parseKinds(r.URL.Query().Get("kinds"))}
	if h.depth != nil {
		if b, err := h.depth().Marshal(); err == nil {
			c.send <- b
		}
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
}

func parseKinds(s string) map[event.Kind]bool {
	if s == "" {
		return nil
	}
	kinds := make(map[event.Kind]bool)
	for _, k := range strings.Split(s, ",") {
		kinds[event.Kind(strings.TrimSpace(k))] = true
	}
	return kinds
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// readPump only services control frames; the feed is one-way.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read error", "err", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
