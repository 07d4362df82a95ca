package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/trading-journal/internal/api/http/handlers"
	"github.com/spec-kit/trading-journal/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health       *handlers.HealthHandler
	Transactions *handlers.TransactionsHandler
	Snapshots    *handlers.SnapshotsHandler
	Settings     *handlers.SettingsHandler
	Admin        *handlers.AdminHandler
	Gate         *auth.Gate
}

// RegisterRoutes wires HTTP routes. Everything under /api passes the gate.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api", cfg.Gate.Handle, auth.RequireAnyRole())
	api.Get("/me", cfg.Settings.Me)

	transactions := api.Group("/transactions")
	transactions.Get("/", cfg.Transactions.List)
	transactions.Post("/", cfg.Transactions.Create)
	transactions.Get("/:id", cfg.Transactions.Get)
	transactions.Put("/:id", cfg.Transactions.Update)
	transactions.Delete("/:id", cfg.Transactions.Delete)

	snapshots := api.Group("/snapshots")
	snapshots.Get("/", cfg.Snapshots.List)
	snapshots.Post("/", cfg.Snapshots.Upload)
	snapshots.Get("/latest", cfg.Snapshots.Latest)
	snapshots.Delete("/:id", cfg.Snapshots.Delete)

	settings := api.Group("/settings")
	settings.Get("/", cfg.Settings.List)
	settings.Put("/:key", cfg.Settings.Put)
	settings.Delete("/:key", cfg.Settings.Delete)

	admin := api.Group("/admin", auth.RequireAdmin())
	admin.Get("/metrics", cfg.Admin.Metrics)
}
