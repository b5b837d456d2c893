// Package runs exposes the deployment run API: starting runs, reading
// run history, and cancelling runs in flight.
package runs

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/skylift/skylift/engine/internal/events"
	"github.com/skylift/skylift/engine/internal/orchestrator"
)

// Handler serves the run endpoints. Runs execute in the background; the
// cancel registry maps in-flight run ids to their context cancel funcs.
type Handler struct {
	db            *gorm.DB
	orchestrators map[string]*orchestrator.Orchestrator
	events        *events.Publisher

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewHandler(db *gorm.DB, orchestrators map[string]*orchestrator.Orchestrator, publisher *events.Publisher) *Handler {
	return &Handler{
		db:            db,
		orchestrators: orchestrators,
		events:        publisher,
		cancels:       make(map[string]context.CancelFunc),
	}
}

func (h *Handler) registerCancel(runID string, cancel context.CancelFunc) {
	h.mu.Lock()
	h.cancels[runID] = cancel
	h.mu.Unlock()
}

func (h *Handler) dropCancel(runID string) {
	h.mu.Lock()
	delete(h.cancels, runID)
	h.mu.Unlock()
}

func (h *Handler) lookupCancel(runID string) (context.CancelFunc, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cancel, ok := h.cancels[runID]
	return cancel, ok
}
