package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bognix/dymek-api/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Markers *handlers.MarkersHandler
	Reports *handlers.ReportsHandler
	Users   *handlers.UsersHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	markers := app.Group("/markers")
	markers.Post("", cfg.Markers.CreateMarker)
	markers.Get("", cfg.Markers.ListMarkers)
	markers.Get("/:id", cfg.Markers.GetMarker)
	markers.Patch("/:id/status", cfg.Markers.UpdateMarkerStatus)

	reports := app.Group("/reports")
	reports.Post("", cfg.Reports.CreateReport)
	reports.Get("", cfg.Reports.ListReports)
	reports.Get("/:id", cfg.Reports.GetReport)
	reports.Get("/:id/markers", cfg.Reports.ListReportMarkers)
	reports.Patch("/:id/status", cfg.Reports.UpdateReportStatus)

	app.Put("/users/:id/token", cfg.Users.UpsertToken)
}
