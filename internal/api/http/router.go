package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sync-service/internal/api/http/handlers"
	"github.com/spec-kit/sync-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Delta          *handlers.DeltaHandler
	Metrics        *handlers.MetricsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Metrics.Snapshot)

	api := app.Group("/api/v1")
	sync := api.Group("/sync", cfg.AuthMiddleware.Handle)
	sync.Get("/delta", cfg.Delta.Delta)
}
