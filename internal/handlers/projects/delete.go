package projects

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/skylift/skylift/engine/internal/fleet"
	"github.com/skylift/skylift/engine/pkg/response"
)

// DeleteProject tears down a project's routing, workload, and registry
// resources. Removal is idempotent: deleting a project that is already
// gone succeeds.
func (h *Handler) DeleteProject(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.BadRequest(c, "Project ID is required")
	}

	d, err := h.deployerFor(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	if err := d.Remove(c.Context(), projectID); err != nil {
		if errors.Is(err, fleet.ErrNotFound) {
			return response.NotFound(c, "Project not found")
		}
		log.Printf("[Projects] Failed to remove project %s: %v", projectID, err)
		return response.InternalServerError(c, "Failed to remove project")
	}

	return response.SuccessWithMessage(c, "Project removed", fiber.Map{
		"projectId": projectID,
	})
}
