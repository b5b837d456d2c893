package runs

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/skylift/skylift/engine/internal/models"
	"github.com/skylift/skylift/engine/pkg/response"
)

// GetRun returns a single run with its per-service records.
func (h *Handler) GetRun(c *fiber.Ctx) error {
	runID := c.Params("runId")
	if runID == "" {
		return response.BadRequest(c, "Run ID is required")
	}

	var run models.DeploymentRun
	if err := h.db.WithContext(c.Context()).
		Preload("Services").
		Where("id = ?", runID).
		First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Run not found")
		}
		return response.InternalServerError(c, "Failed to fetch run")
	}

	return response.Success(c, run)
}
