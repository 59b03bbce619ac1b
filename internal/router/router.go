package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/coursekeep-go/internal/config"
	"github.com/noah-isme/coursekeep-go/internal/handler"
	"github.com/noah-isme/coursekeep-go/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	CourseHandler    *handler.CourseHandler
	ProgressHandler  *handler.ProgressHandler
	DraftHandler     *handler.DraftHandler
	AnalyticsHandler *handler.AnalyticsHandler
	MigrationHandler *handler.MigrationHandler
	Storage          handler.StorageHealth
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Storage))

	if deps.CourseHandler != nil {
		deps.CourseHandler.Register(api.Group("/courses"))
	}

	if deps.ProgressHandler != nil {
		deps.ProgressHandler.Register(api.Group("/progress"))
	}

	if deps.DraftHandler != nil {
		deps.DraftHandler.Register(api.Group("/drafts"))
	}

	if deps.AnalyticsHandler != nil {
		deps.AnalyticsHandler.Register(api.Group("/analytics"))
	}

	if deps.MigrationHandler != nil {
		deps.MigrationHandler.Register(api.Group("/migration"))
	}
}
