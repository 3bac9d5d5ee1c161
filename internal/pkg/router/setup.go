package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/devrantukan/spinning-tenant-be-sub001/app/controllers"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/middleware"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/storage"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// IdentityProvider is the identity surface used by the middleware and the
// auth controller.
type IdentityProvider interface {
	middleware.Identity
	controllers.AuthIdentity
}

type Backend interface {
	controllers.PackageBackend
	controllers.CouponSource
	controllers.OrganizationRefresher
}

type RedemptionFlows interface {
	controllers.RedemptionFlows
	controllers.CouponChecker
}

// Deps is everything the routes are built from.
type Deps struct {
	Identity    IdentityProvider
	Backend     Backend
	Redemptions RedemptionFlows
	Receipts    controllers.Receipts
	Storage     storage.Uploader
	Health      []controllers.HealthCheck
	Captcha     controllers.CaptchaVerifier

	OrganizationID   string
	ServiceAPIKey    string
	FriendPassSecret string
	PhotoMaxSize     int
	RecoveryRedirect string
	DashboardURL     string
	AllowedOrigins   string
	RateLimit        int
	MetricsUser      string
	MetricsPassword  string
}

func InstallRouter(app *fiber.App, deps Deps) {
	// HttpRouter first: it sets up the session store and OAuth providers the
	// API authentication depends on.
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
