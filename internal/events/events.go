// Package events publishes run progress over Redis pub/sub so websocket
// relays in any engine instance can stream them to subscribed clients.
package events

import (
	"context"
	"log"
	"time"

	"github.com/skylift/skylift/engine/internal/orchestrator"
	redisq "github.com/skylift/skylift/engine/internal/redis"
)

// Event types carried on the progress channel.
const (
	TypeServiceStatus = "service_status"
	TypeRunStatus     = "run_status"
)

// Event is one progress message for a run.
type Event struct {
	Type      string                      `json:"type"`
	RunID     string                      `json:"runId"`
	Timestamp time.Time                   `json:"timestamp"`
	Service   *orchestrator.ServiceRecord `json:"service,omitempty"`
	Status    string                      `json:"status,omitempty"`
}

// Publisher emits run progress events. Publishing is best effort: an
// unreachable channel never fails the deployment itself.
type Publisher struct {
	queue *redisq.Client
}

func NewPublisher(queue *redisq.Client) *Publisher {
	return &Publisher{queue: queue}
}

// PublishServiceStatus emits a per-service status transition.
func (p *Publisher) PublishServiceStatus(ctx context.Context, runID string, record orchestrator.ServiceRecord) {
	p.publish(ctx, Event{
		Type:      TypeServiceStatus,
		RunID:     runID,
		Timestamp: time.Now(),
		Service:   &record,
	})
}

// PublishRunStatus emits a run-level status transition.
func (p *Publisher) PublishRunStatus(ctx context.Context, runID, status string) {
	p.publish(ctx, Event{
		Type:      TypeRunStatus,
		RunID:     runID,
		Timestamp: time.Now(),
		Status:    status,
	})
}

func (p *Publisher) publish(ctx context.Context, event Event) {
	if err := p.queue.PublishEvent(ctx, event); err != nil {
		log.Printf("[Events] Warning: failed to publish event for run %s: %v", event.RunID, err)
	}
}
