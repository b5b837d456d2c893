package websocket

import (
	"encoding/json"
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// SubscribePayload is the payload for subscribe/unsubscribe messages.
type SubscribePayload struct {
	RunID string `json:"runId"`
}

// UpgradeMiddleware rejects requests that are not WebSocket upgrades.
func UpgradeMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler returns the connection handler for the run progress stream.
// Browsers cannot set headers on WebSocket requests, so the API key is
// accepted as a query parameter here.
func Handler(hub *Hub, apiKey string) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		if apiKey != "" && c.Query("apiKey") != apiKey {
			c.WriteJSON(map[string]any{
				"event": "error",
				"payload": map[string]string{
					"message": "Authentication required",
				},
			})
			c.Close()
			return
		}

		client := &Client{
			Conn: c,
			Runs: make(map[string]bool),
		}
		hub.Register(client)
		defer hub.Unregister(client)

		if err := hub.SendToClient(client, "connected", nil); err != nil {
			log.Printf("[WebSocket] Error sending connected event: %v", err)
		}

		for {
			_, msgBytes, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[WebSocket] Error reading message: %v", err)
				}
				break
			}

			var msg Message
			if err := json.Unmarshal(msgBytes, &msg); err != nil {
				log.Printf("[WebSocket] Error parsing message: %v", err)
				continue
			}

			switch msg.Event {
			case "subscribe":
				var payload SubscribePayload
				if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.RunID == "" {
					hub.SendToClient(client, "error", map[string]string{
						"message": "Invalid payload",
					})
					continue
				}
				hub.Subscribe(client, payload.RunID)
				hub.SendToClient(client, "subscribed", map[string]string{
					"runId": payload.RunID,
				})

			case "unsubscribe":
				var payload SubscribePayload
				if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.RunID == "" {
					continue
				}
				hub.Unsubscribe(client, payload.RunID)

			default:
				log.Printf("[WebSocket] Unknown event: %s", msg.Event)
			}
		}
	}
}
