// Package ws provides the realtime monitoring channel: students stream into
// their own session feed while proctors and admins watch live violation and
// trust-score updates.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// ClientType distinguishes the monitoring audiences.
type ClientType string

const (
	ClientStudent ClientType = "student"
	ClientProctor ClientType = "proctor"
	ClientAdmin   ClientType = "admin"
)

// Message is the wire format for all hub broadcasts.
type Message struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
}

// Client is one connected websocket peer. Writes go through a buffered send
// channel so a slow peer never blocks a broadcast.
type Client struct {
	ID        string
	Type      ClientType
	SessionID string // session a student client belongs to, or a proctor watches

	conn *websocket.Conn
	send chan []byte
	hub  *Hub
	once sync.Once
}

// Hub tracks connected clients and routes session updates to them. It is the
// in-process counterpart of the Kafka event stream: same payloads, delivered
// to live dashboards instead of downstream consumers.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Register adds a connected peer to the hub and starts its write pump.
func (h *Hub) Register(id string, clientType ClientType, sessionID string, conn *websocket.Conn) *Client {
	client := &Client{
		ID:        id,
		Type:      clientType,
		SessionID: sessionID,
		conn:      conn,
		send:      make(chan []byte, 64),
		hub:       h,
	}

	h.mu.Lock()
	if existing, ok := h.clients[id]; ok {
		existing.close()
	}
	h.clients[id] = client
	h.mu.Unlock()

	if conn != nil {
		go client.writePump()
	}

	h.logger.Info("WebSocket client connected",
		"client_id", id,
		"client_type", clientType,
		"session_id", sessionID)

	return client
}

// Unregister removes a peer and closes its connection.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	client, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	h.mu.Unlock()

	if ok {
		client.close()
		h.logger.Info("WebSocket client disconnected", "client_id", id)
	}
}

// SendToSession delivers a message to the student client of one session and
// to every proctor watching it.
func (h *Hub) SendToSession(sessionID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal hub message", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.SessionID == sessionID {
			client.enqueue(data, h.logger)
		}
	}
}

// BroadcastToProctors delivers a message to every proctor and admin client.
func (h *Hub) BroadcastToProctors(msg Message) {
	h.broadcastToTypes(msg, ClientProctor, ClientAdmin)
}

// BroadcastToAdmins delivers a message to admin clients only.
func (h *Hub) BroadcastToAdmins(msg Message) {
	h.broadcastToTypes(msg, ClientAdmin)
}

func (h *Hub) broadcastToTypes(msg Message, types ...ClientType) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal hub message", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		for _, t := range types {
			if client.Type == t {
				client.enqueue(data, h.logger)
				break
			}
		}
	}
}

// ConnectionCount returns the number of connected clients, optionally
// filtered by type.
func (h *Hub) ConnectionCount(clientType ClientType) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if clientType == "" {
		return len(h.clients)
	}
	count := 0
	for _, client := range h.clients {
		if client.Type == clientType {
			count++
		}
	}
	return count
}

func (c *Client) enqueue(data []byte, logger *slog.Logger) {
	select {
	case c.send <- data:
	default:
		logger.Warn("Dropping message for slow websocket client", "client_id", c.ID)
	}
}

// writePump drains the send channel onto the connection. Channel close and
// enqueue are serialized by the hub lock, so a write failure hands cleanup
// back to Unregister instead of closing the channel directly.
func (c *Client) writePump() {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			go c.hub.Unregister(c.ID)
			return
		}
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}
