package runs

import (
	"github.com/gofiber/fiber/v2"

	"github.com/skylift/skylift/engine/pkg/response"
)

// CancelRun requests cancellation of an in-flight run. Services not yet
// started stay pending; the service currently deploying runs to its own
// terminal state before the run settles.
func (h *Handler) CancelRun(c *fiber.Ctx) error {
	runID := c.Params("runId")
	if runID == "" {
		return response.BadRequest(c, "Run ID is required")
	}

	cancel, ok := h.lookupCancel(runID)
	if !ok {
		return response.NotFound(c, "Run not found or already finished")
	}
	cancel()

	return response.SuccessWithMessage(c, "Cancellation requested", fiber.Map{
		"runId": runID,
	})
}
