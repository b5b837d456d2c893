package runs

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/skylift/skylift/engine/internal/models"
	"github.com/skylift/skylift/engine/internal/orchestrator"
	"github.com/skylift/skylift/engine/internal/utils"
	"github.com/skylift/skylift/engine/pkg/response"
)

// CreateRunRequest is the body of POST /api/runs.
type CreateRunRequest struct {
	Environment string           `json:"environment"`
	Provider    string           `json:"provider"`
	Services    []models.Service `json:"services"`
}

const defaultProvider = "ecs"

// CreateRun validates the requested services, records the run, and starts
// it in the background. The response arrives before the run finishes;
// progress streams over the websocket and the run row tracks state.
func (h *Handler) CreateRun(c *fiber.Ctx) error {
	var req CreateRunRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Provider == "" {
		req.Provider = defaultProvider
	}
	orc, ok := h.orchestrators[req.Provider]
	if !ok {
		return response.BadRequest(c, fmt.Sprintf("Unknown provider: %s", req.Provider))
	}
	if err := validateServices(req.Services); err != nil {
		return response.BadRequest(c, err.Error())
	}

	runID := uuid.NewString()
	run := models.DeploymentRun{
		ID:          runID,
		Status:      models.RunStatusPending,
		Environment: req.Environment,
		Provider:    req.Provider,
	}
	if h.db != nil {
		if err := h.db.WithContext(c.Context()).Create(&run).Error; err != nil {
			log.Printf("[Runs] Failed to create run record: %v", err)
			return response.InternalServerError(c, "Failed to create run")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.registerCancel(runID, cancel)

	go h.execute(ctx, runID, orc, req.Services)

	return response.Accepted(c, fiber.Map{
		"runId":  runID,
		"status": models.RunStatusPending,
	})
}

func (h *Handler) execute(ctx context.Context, runID string, orc RunExecutor, services []models.Service) {
	defer h.dropCancel(runID)

	h.setRunStatus(runID, models.RunStatusRunning)
	h.publishRunStatus(ctx, runID, string(models.RunStatusRunning))

	outcome := orc.Run(ctx, runID, services)

	// The recorder already persisted the outcome. Cancellation overrides
	// the failed status so history distinguishes the two.
	status := models.RunStatusCompleted
	if !outcome.Success {
		status = models.RunStatusFailed
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		status = models.RunStatusCancelled
		h.setRunStatus(runID, status)
	}
	h.publishRunStatus(context.WithoutCancel(ctx), runID, string(status))
	log.Printf("[Runs] Run %s finished with status %s", runID, status)
}

// RunExecutor lets tests drive execute without a real orchestrator.
type RunExecutor interface {
	Run(ctx context.Context, runID string, services []models.Service) *orchestrator.Outcome
}

func (h *Handler) setRunStatus(runID string, status models.RunStatus) {
	if h.db == nil {
		return
	}
	if err := h.db.Model(&models.DeploymentRun{}).
		Where("id = ?", runID).
		Update("status", status).Error; err != nil {
		log.Printf("[Runs] Failed to update run %s status: %v", runID, err)
	}
}

func (h *Handler) publishRunStatus(ctx context.Context, runID, status string) {
	if h.events == nil {
		return
	}
	h.events.PublishRunStatus(ctx, runID, status)
}

func validateServices(services []models.Service) error {
	if len(services) == 0 {
		return errors.New("At least one service is required")
	}
	seen := make(map[string]string, len(services))
	for _, svc := range services {
		if svc.Name == "" {
			return errors.New("Service name is required")
		}
		if !svc.Kind.Valid() {
			return fmt.Errorf("Invalid service kind: %s", svc.Kind)
		}
		projectID := utils.ProjectID(svc.Name)
		if projectID == "" {
			return fmt.Errorf("Service name %q contains no usable characters", svc.Name)
		}
		if other, dup := seen[projectID]; dup {
			return fmt.Errorf("Services %q and %q map to the same project id", other, svc.Name)
		}
		seen[projectID] = svc.Name
	}
	return nil
}
