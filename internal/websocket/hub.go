// Package websocket streams run progress events to connected clients.
// Clients subscribe to runs by id; events arrive via the Redis progress
// channel so any engine instance can serve any run's stream.
package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// Client is one connected WebSocket client and the set of runs it
// subscribed to.
type Client struct {
	Conn *websocket.Conn
	Runs map[string]bool
	mu   sync.Mutex
}

// Hub manages WebSocket connections and per-run subscriptions.
type Hub struct {
	clients map[*Client]bool
	runs    map[string]map[*Client]bool
	mu      sync.RWMutex
}

// Message is the envelope for client-to-server messages.
type Message struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		runs:    make(map[string]map[*Client]bool),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
	log.Printf("[WebSocket] Client connected")
}

// Unregister removes a client and all of its run subscriptions.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	for runID := range client.Runs {
		if subs, exists := h.runs[runID]; exists {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.runs, runID)
			}
		}
	}
	delete(h.clients, client)
	if client.Conn != nil {
		client.Conn.Close()
	}
	log.Printf("[WebSocket] Client disconnected")
}

// Subscribe adds a client to a run's stream.
func (h *Hub) Subscribe(client *Client, runID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.runs[runID]; !exists {
		h.runs[runID] = make(map[*Client]bool)
	}
	h.runs[runID][client] = true
	client.Runs[runID] = true
	log.Printf("[WebSocket] Client subscribed to run %s", runID)
}

// Unsubscribe removes a client from a run's stream.
func (h *Hub) Unsubscribe(client *Client, runID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, exists := h.runs[runID]; exists {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.runs, runID)
		}
	}
	delete(client.Runs, runID)
	log.Printf("[WebSocket] Client unsubscribed from run %s", runID)
}

// BroadcastToRun sends an event to every client subscribed to the run.
func (h *Hub) BroadcastToRun(runID, event string, payload any) {
	h.mu.RLock()
	subs, exists := h.runs[runID]
	if !exists {
		h.mu.RUnlock()
		return
	}
	// Copy clients to avoid holding the lock during writes.
	clients := make([]*Client, 0, len(subs))
	for client := range subs {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	data, err := json.Marshal(map[string]any{
		"event":   event,
		"payload": payload,
	})
	if err != nil {
		log.Printf("[WebSocket] Error marshaling message: %v", err)
		return
	}

	for _, client := range clients {
		client.mu.Lock()
		if client.Conn != nil {
			if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("[WebSocket] Error sending broadcast: %v", err)
			}
		}
		client.mu.Unlock()
	}
}

// SendToClient sends an event directly to one client.
func (h *Hub) SendToClient(client *Client, event string, payload any) error {
	if client == nil {
		return fmt.Errorf("client is nil")
	}

	data, err := json.Marshal(map[string]any{
		"event":   event,
		"payload": payload,
	})
	if err != nil {
		return err
	}

	client.mu.Lock()
	defer client.mu.Unlock()

	if client.Conn == nil {
		return fmt.Errorf("connection is nil")
	}
	return client.Conn.WriteMessage(websocket.TextMessage, data)
}
