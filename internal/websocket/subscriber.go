package websocket

import (
	"context"
	"encoding/json"
	"log"

	"github.com/skylift/skylift/engine/internal/events"
	redisq "github.com/skylift/skylift/engine/internal/redis"
)

// RunSubscriber relays run progress events from the Redis channel into
// the hub so every engine instance serves the same streams.
func RunSubscriber(ctx context.Context, queue *redisq.Client, hub *Hub) {
	pubsub := queue.SubscribeEvents(ctx)
	defer pubsub.Close()

	log.Printf("[WebSocket] Subscribed to Redis channel: %s", redisq.ChannelEvents)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event events.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("[WebSocket] Error parsing progress event: %v", err)
				continue
			}
			if event.RunID == "" {
				continue
			}
			hub.BroadcastToRun(event.RunID, event.Type, event)
		}
	}
}
