package broadcast

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"
)

const writeTimeout = 5 * time.Second

// Event is the envelope pushed to every connected client.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
	Time  time.Time   `json:"time"`
}

// Hub fans lifecycle events out to websocket clients. Broadcast is fire and
// forget; a client that cannot keep up is dropped.
type Hub struct {
	Log *logger.Entry

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{
		Log: logger.WithField("component", "broadcast"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: map[*websocket.Conn]bool{},
	}
}

// HandleWS upgrades the request and keeps the connection registered until the
// peer goes away.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.WithError(err).Error("websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.Log.WithField("clients", count).Info("websocket client connected")

	// Clients only listen; the read loop just detects the close.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends the event to every connected client. Never blocks the
// caller on a slow consumer beyond the write timeout.
func (h *Hub) Broadcast(event string, data interface{}) {
	msg := Event{Event: event, Data: data, Time: time.Now().UTC()}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			h.drop(conn)
			continue
		}
		if err := conn.WriteJSON(msg); err != nil {
			h.Log.WithError(err).Debug("dropping dead websocket client")
			h.drop(conn)
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.clients = map[*websocket.Conn]bool{}
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}
