package routes

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/skylift/skylift/engine/internal/config"
	"github.com/skylift/skylift/engine/internal/handlers/projects"
	"github.com/skylift/skylift/engine/internal/handlers/runs"
	"github.com/skylift/skylift/engine/internal/middleware"
	wshandler "github.com/skylift/skylift/engine/internal/websocket"
)

// Setup registers every route. All /api routes sit behind the API key;
// /health and the websocket upgrade handle auth themselves.
func Setup(app *fiber.App, cfg *config.Config, runsHandler *runs.Handler, projectsHandler *projects.Handler, hub *wshandler.Hub) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// WebSocket run progress stream
	api.Use("/socket", wshandler.UpgradeMiddleware)
	api.Get("/socket", websocket.New(wshandler.Handler(hub, cfg.ApiKey)))

	api.Use(middleware.ApiKeyAuth(cfg.ApiKey))

	runRoutes := api.Group("/runs")
	{
		runRoutes.Post("/", runsHandler.CreateRun)
		runRoutes.Get("/", runsHandler.ListRuns)
		runRoutes.Get("/:runId", runsHandler.GetRun)
		runRoutes.Post("/:runId/cancel", runsHandler.CancelRun)
	}

	projectRoutes := api.Group("/projects")
	{
		projectRoutes.Get("/", projectsHandler.ListProjects)
		projectRoutes.Delete("/:projectId", projectsHandler.DeleteProject)
	}
}
