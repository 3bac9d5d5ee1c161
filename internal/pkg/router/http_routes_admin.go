package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"github.com/devrantukan/spinning-tenant-be-sub001/app/controllers"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/middleware"
)

// registerAdminRoutes installs the operator routes: fiber metrics behind
// basic auth and the internal endpoints behind the service key.
func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	if h.deps.MetricsUser != "" && h.deps.MetricsPassword != "" {
		app.Get("/metrics", basicauth.New(basicauth.Config{
			Users: map[string]string{
				h.deps.MetricsUser: h.deps.MetricsPassword,
			},
		}), monitor.New(monitor.Config{Title: "Spin8 BFF Metrics"}))
	}

	ic := controllers.NewInternalController(h.deps.Backend)
	internal := app.Group("/internal", middleware.ServiceKey(h.deps.ServiceAPIKey))
	internal.Post("/organization/refresh", ic.HandleRefreshOrganization)
}
