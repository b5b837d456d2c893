package projects

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/skylift/skylift/engine/pkg/response"
)

// ListProjects returns every managed project the provider is running.
func (h *Handler) ListProjects(c *fiber.Ctx) error {
	d, err := h.deployerFor(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	statuses, err := d.List(c.Context())
	if err != nil {
		log.Printf("[Projects] Failed to list projects: %v", err)
		return response.InternalServerError(c, "Failed to list projects")
	}

	return response.Success(c, fiber.Map{
		"projects": statuses,
		"count":    len(statuses),
	})
}
