// Package projects exposes the deployed project inventory: listing what
// is currently running and tearing projects down.
package projects

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/skylift/skylift/engine/internal/deployer"
)

const defaultProvider = "ecs"

// Handler serves the project endpoints against one deployer per provider.
type Handler struct {
	deployers map[string]*deployer.Deployer
}

func NewHandler(deployers map[string]*deployer.Deployer) *Handler {
	return &Handler{deployers: deployers}
}

func (h *Handler) deployerFor(c *fiber.Ctx) (*deployer.Deployer, error) {
	provider := c.Query("provider", defaultProvider)
	d, ok := h.deployers[provider]
	if !ok {
		return nil, fmt.Errorf("Unknown provider: %s", provider)
	}
	return d, nil
}
