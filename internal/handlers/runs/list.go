package runs

import (
	"github.com/gofiber/fiber/v2"

	"github.com/skylift/skylift/engine/internal/models"
	"github.com/skylift/skylift/engine/pkg/response"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// ListRuns returns run history, newest first.
func (h *Handler) ListRuns(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	query := h.db.WithContext(c.Context()).Model(&models.DeploymentRun{})
	if env := c.Query("environment"); env != "" {
		query = query.Where("environment = ?", env)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch runs")
	}

	var records []models.DeploymentRun
	if err := query.
		Order("createdAt desc").
		Limit(limit).
		Offset(offset).
		Find(&records).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch runs")
	}

	return response.Success(c, fiber.Map{
		"runs":   records,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}
