package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restobook/utils"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// DefaultWriteWait bounds a single write to one client.
const DefaultWriteWait = 5 * time.Second

// Hub fans booking events out to connected staff dashboards.
type Hub struct {
	clients   map[*websocket.Conn]uint // conn -> staff user id
	mutex     sync.Mutex
	writeWait time.Duration
}

type Option func(*Hub)

// WithWriteWait sets how long a write may block before the client is dropped.
func WithWriteWait(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.writeWait = d
		}
	}
}

func New(opts ...Option) *Hub {
	h := &Hub{clients: make(map[*websocket.Conn]uint), writeWait: DefaultWriteWait}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) Register(conn *websocket.Conn, userID uint) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[conn] = userID
}

// Unregister drops the connection and closes it.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Publish sends the event to every client. Clients that fail a write are
// disconnected.
func (h *Hub) Publish(event string, data interface{}) {
	h.Broadcast(Message{Event: event, Data: data})
}

func (h *Hub) Broadcast(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling %s message: %v", msg.Event, err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	utils.InfoLogger.WithFields(logrus.Fields{
		"event":   msg.Event,
		"clients": len(h.clients),
	}).Debug("Broadcasting message")

	for conn, userID := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(h.writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			utils.ErrorLogger.Printf("Dropping client of user %d: %v", userID, err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}
