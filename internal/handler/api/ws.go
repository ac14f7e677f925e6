package api

import (
	"net/http"
	"sync"

	xlogger "MacroPull/pkg/logger"

	"github.com/gorilla/websocket"
)

// Hub fans monitor updates out to connected WebSocket clients. A slow client
// is dropped rather than allowed to stall the broadcast.
type Hub struct {
	logger   *xlogger.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan any
}

func NewHub(logger *xlogger.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]chan any),
	}
}

// Serve upgrades the connection and writes broadcasts until the client
// disconnects.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	ch := make(chan any, 16)
	h.mu.Lock()
	h.clients[conn] = ch
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("ws client connected", xlogger.Int("clients", n))

	go h.write(conn, ch)
	h.read(conn)
	return nil
}

// Broadcast queues v for every connected client.
func (h *Hub) Broadcast(v any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.clients {
		select {
		case ch <- v:
		default:
			// backpressure: drop the client, not the update
			delete(h.clients, conn)
			close(ch)
			_ = conn.Close()
		}
	}
}

func (h *Hub) write(conn *websocket.Conn, ch chan any) {
	for v := range ch {
		if err := conn.WriteJSON(v); err != nil {
			h.drop(conn)
			return
		}
	}
}

// read drains control frames and detects disconnects.
func (h *Hub) read(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.drop(conn)
			return
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(ch)
	}
	h.mu.Unlock()
	_ = conn.Close()
}
