package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/devrantukan/spinning-tenant-be-sub001/app/controllers"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/middleware"
)

const defaultRateLimit = 120

// Resources proxied to the main backend. Instructors may read the first
// group; everything else is admin only.
var (
	staffReadable = []string{"classes", "sessions", "bookings", "members"}
	adminOnly     = []string{"instructors", "users"}
)

type ApiRouter struct {
	deps Deps
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	limit := h.deps.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	api := app.Group("/api", corsMiddleware(h.deps.AllowedOrigins), limiter.New(limiter.Config{
		Max:        limit,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited", "message": "too many requests"})
		},
	}))

	ac := controllers.NewAuthController(h.deps.Identity, h.deps.RecoveryRedirect).WithCaptcha(h.deps.Captcha)
	api.Post("/auth/refresh", ac.HandleRefresh)
	api.Post("/auth/password/recover", ac.HandleRecover)
	api.Post("/auth/invite/accept", ac.HandleInviteAccept)

	staff := api.Group("", h.deps.authenticator().RequireStaff, csrfMiddleware())
	admin := middleware.RequireAdmin

	staff.Get("/me", controllers.NewAccountController(h.deps.Backend).HandleMe)

	proxy := controllers.NewProxyController(h.deps.Backend)
	for _, r := range staffReadable {
		staff.Get("/"+r, proxy.Forward(r))
		staff.Get("/"+r+"/:id", proxy.Forward(r))
		registerWrites(staff, r, proxy.Forward(r), admin)
	}
	for _, r := range adminOnly {
		staff.Get("/"+r, admin, proxy.Forward(r))
		staff.Get("/"+r+"/:id", admin, proxy.Forward(r))
		registerWrites(staff, r, proxy.Forward(r), admin)
	}

	pc := controllers.NewPackageController(h.deps.Backend)
	staff.Get("/packages", pc.HandleList)
	staff.Get("/packages/:id", pc.HandleGet)
	staff.Post("/packages", admin, pc.HandleCreate)
	staff.Put("/packages/:id", admin, pc.HandleUpdate)
	staff.Delete("/packages/:id", admin, pc.HandleDelete)

	cc := controllers.NewCouponController(h.deps.Redemptions, h.deps.Backend)
	staff.Post("/coupons/check", cc.HandleCheck)
	staff.Get("/coupons", admin, proxy.Forward("coupons"))
	staff.Get("/coupons/:id", admin, cc.HandleGet)
	registerWrites(staff, "coupons", proxy.Forward("coupons"), admin)

	rc := controllers.NewRedemptionController(h.deps.Redemptions, h.deps.Backend, h.deps.FriendPassSecret)
	staff.Get("/redemptions", rc.HandleList)
	staff.Post("/redemptions/quote", rc.HandleQuote)
	staff.Post("/redemptions/friend-pass/verify", rc.HandleFriendPassVerify)
	staff.Post("/redemptions", admin, rc.HandleRedeem)
	staff.Get("/redemptions/:id", rc.HandleGet)
	staff.Patch("/redemptions/:id/status", admin, rc.HandleUpdateStatus)
	staff.Get("/redemptions/:id/all-access", rc.HandleAllAccess)
	staff.Get("/redemptions/:id/friend-pass", rc.HandleFriendPass)
	staff.Get("/redemptions/:id/friend-pass/qr", rc.HandleFriendPassQR)

	receipts := controllers.NewReceiptController(h.deps.Receipts, h.deps.OrganizationID)
	staff.Get("/receipts", receipts.HandleList)
	staff.Get("/receipts/:id", receipts.HandleGet)
	staff.Get("/receipts/:id/document", receipts.HandleDocument)
	staff.Post("/receipts/:id/resend", admin, receipts.HandleResend)

	uc := controllers.NewUploadController(h.deps.Storage, h.deps.PhotoMaxSize)
	staff.Post("/uploads/photo", admin, uc.HandlePhotoUpload)
}

func registerWrites(g fiber.Router, resource string, h fiber.Handler, admin fiber.Handler) {
	g.Post("/"+resource, admin, h)
	g.Put("/"+resource+"/:id", admin, h)
	g.Patch("/"+resource+"/:id", admin, h)
	g.Delete("/"+resource+"/:id", admin, h)
}

func NewApiRouter(deps Deps) *ApiRouter {
	return &ApiRouter{deps: deps}
}
