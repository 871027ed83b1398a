package websocket

import (
	"encoding/json"
	"sync"

	"github.com/whatthedob/whatthedob-backend/pkg/logger"
)

const sendBufferSize = 256

// Client is one live subscriber to rating updates.
type Client struct {
	Hub       *Hub
	Conn      *Conn
	SessionID string
	Send      chan []byte
}

// NewClient wires a connection to the hub with a buffered send queue.
func NewClient(hub *Hub, conn *Conn, sessionID string) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		SessionID: sessionID,
		Send:      make(chan []byte, sendBufferSize),
	}
}

// Hub fans out every published event to all registered clients.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	stop       chan struct{}

	mu sync.RWMutex
}

// NewHub creates an idle hub; start it with Run.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan []byte, 1024),
		stop:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			logger.Info("WebSocket client registered", map[string]interface{}{
				"session_id":    client.SessionID,
				"total_clients": total,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			remaining := len(h.clients)
			h.mu.Unlock()
			logger.Info("WebSocket client unregistered", map[string]interface{}{
				"session_id":        client.SessionID,
				"remaining_clients": remaining,
			})

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// Slow consumer; drop it rather than stall the hub.
					go h.Unregister(client)
					logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
						"session_id": client.SessionID,
					})
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Stop ends Run and closes every client's send queue.
func (h *Hub) Stop() {
	close(h.stop)
}

// Publish queues event for every connected client. Events are dropped
// when the broadcast queue is full.
func (h *Hub) Publish(event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal event", err, nil)
		return err
	}

	select {
	case h.broadcast <- data:
	default:
		logger.Warn("Broadcast channel full, event dropped", nil)
	}
	return nil
}

// Register adds a client to the fan-out set.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client and closes its send queue.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
