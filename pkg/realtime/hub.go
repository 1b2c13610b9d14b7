// Package realtime pushes change notifications to connected browsers over
// websockets so open dashboards can refresh without polling.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*client]struct{}
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	upgrader   websocket.Upgrader
	logger     *zap.Logger
	done       chan struct{}
	connected  int64

	mu      sync.RWMutex
	running bool
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub initialises a hub. checkOrigin may be nil to accept any origin.
func NewHub(logger *zap.Logger, checkOrigin func(*http.Request) bool) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Clients returns the number of registered connections.
func (h *Hub) Clients() int {
	return int(atomic.LoadInt64(&h.connected))
}

// Run is the hub's event loop; it returns when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.running = false
		h.mu.Unlock()
		close(h.done)
		for c := range h.clients {
			close(c.send)
			delete(h.clients, c)
		}
		atomic.StoreInt64(&h.connected, 0)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			atomic.AddInt64(&h.connected, 1)
			h.logger.Debug("websocket client connected", zap.Int("clients", len(h.clients)))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				atomic.AddInt64(&h.connected, -1)
				h.logger.Debug("websocket client disconnected", zap.Int("clients", len(h.clients)))
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow consumer; it will reconnect and refetch.
					close(c.send)
					delete(h.clients, c)
					atomic.AddInt64(&h.connected, -1)
				}
			}
		}
	}
}

// Broadcast serialises v and queues it for every client. Messages are
// dropped when the hub is not running or its buffer is full since clients
// only need to know that something changed.
func (h *Hub) Broadcast(v interface{}) {
	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if !running {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.Warn("failed to encode websocket message", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("websocket broadcast buffer full, dropping message")
	}
}

// ServeWS upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	case <-r.Context().Done():
		_ = conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// readPump only watches for close frames and pongs; clients never send data.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
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
