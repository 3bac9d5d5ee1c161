package router

import (
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/devrantukan/spinning-tenant-be-sub001/app/controllers"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/middleware"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/oauth"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/session"
)

// HttpRouter holds the non-API routes: health, dashboard login, metrics and
// the service-to-service endpoints.
type HttpRouter struct {
	deps Deps
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session unless one was installed already
	if session.GetSessionStore() == nil {
		session.NewSessionStore()
	}

	// init oauth providers
	if err := oauth.Setup(); err != nil {
		fiberlog.Errorf("[Router] OAuth setup failed, dashboard login disabled: %v", err)
	}

	app.Get("/healthz", controllers.NewHealthController(h.deps.Health...).HandleHealth)

	h.registerPublicRoutes(app)
	h.registerAdminRoutes(app)
}

func NewHttpRouter(deps Deps) *HttpRouter {
	return &HttpRouter{deps: deps}
}

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	oc := controllers.NewOAuthController(h.deps.DashboardURL)
	ac := controllers.NewAuthController(h.deps.Identity, h.deps.RecoveryRedirect)

	auth := app.Group("/auth", corsMiddleware(h.deps.AllowedOrigins))
	auth.Post("/logout", csrfMiddleware(), ac.HandleLogout)
	auth.Get("/:provider", oc.HandleOAuthBegin)
	auth.Get("/:provider/callback", oc.HandleOAuthCallback)
}

// authenticator is shared by both routers.
func (d Deps) authenticator() *middleware.Authenticator {
	return &middleware.Authenticator{Identity: d.Identity, OrganizationID: d.OrganizationID}
}
