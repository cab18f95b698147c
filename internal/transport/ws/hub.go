package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MsgStateChanged MessageType = "state_changed"
	MsgError        MessageType = "error"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Connection represents one WebSocket connection of a user
type Connection struct {
	UserID string
	Send   chan []byte
}

// NewConnection creates a connection with a buffered send queue
func NewConnection(userID string) *Connection {
	return &Connection{UserID: userID, Send: make(chan []byte, 256)}
}

type broadcastMessage struct {
	UserID string
	Data   []byte
}

// Hub fans wizard updates out to every connection of a user
type Hub struct {
	conns  map[string]map[*Connection]struct{} // userID -> connections
	mu     sync.RWMutex
	logger *zap.Logger

	register   chan *Connection
	unregister chan *Connection
	disconnect chan string
	broadcast  chan broadcastMessage
	done       chan struct{}
	stopOnce   sync.Once
	stopped    chan struct{}
}

// NewHub creates a new WebSocket hub and starts its loop
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		conns:      make(map[string]map[*Connection]struct{}),
		logger:     logger,
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		disconnect: make(chan string),
		broadcast:  make(chan broadcastMessage, 256),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	defer close(h.stopped)
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.conns[conn.UserID] == nil {
				h.conns[conn.UserID] = make(map[*Connection]struct{})
			}
			h.conns[conn.UserID][conn] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("ws connected", zap.String("userId", conn.UserID))

		case conn := <-h.unregister:
			h.mu.Lock()
			h.remove(conn)
			h.mu.Unlock()

		case userID := <-h.disconnect:
			h.mu.Lock()
			for conn := range h.conns[userID] {
				h.remove(conn)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for conn := range h.conns[msg.UserID] {
				select {
				case conn.Send <- msg.Data:
				default:
					// Drop message if buffer full
					h.logger.Warn("ws send buffer full", zap.String("userId", msg.UserID))
				}
			}
			h.mu.RUnlock()

		case <-h.done:
			h.mu.Lock()
			for _, set := range h.conns {
				for conn := range set {
					h.remove(conn)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// remove closes and forgets conn. Caller holds h.mu.
func (h *Hub) remove(conn *Connection) {
	set, ok := h.conns[conn.UserID]
	if !ok {
		return
	}
	if _, ok := set[conn]; !ok {
		return
	}
	delete(set, conn)
	close(conn.Send)
	if len(set) == 0 {
		delete(h.conns, conn.UserID)
	}
	h.logger.Debug("ws disconnected", zap.String("userId", conn.UserID))
}

// Register adds a connection. It reports false once the hub is stopped.
func (h *Hub) Register(conn *Connection) bool {
	select {
	case h.register <- conn:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Connections returns how many connections userID has open
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// BroadcastToUser sends a message to every connection of a user (implements service.Broadcaster)
func (h *Hub) BroadcastToUser(userID string, msgType string, payload interface{}) {
	data, err := encode(MessageType(msgType), payload)
	if err != nil {
		h.logger.Error("ws encode failed", zap.String("type", msgType), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- broadcastMessage{UserID: userID, Data: data}:
	case <-h.done:
	}
}

// DisconnectUser closes every connection of a user (implements service.Broadcaster)
func (h *Hub) DisconnectUser(userID string) {
	select {
	case h.disconnect <- userID:
	case <-h.done:
	}
}

// Stop closes all connections and ends the hub loop
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
	<-h.stopped
}

func encode(t MessageType, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&Message{Type: t, Payload: raw})
}
