package controllers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/identity"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/middleware"
)

type OAuthController struct {
	redirectTo string
}

func NewOAuthController(redirectTo string) *OAuthController {
	if redirectTo == "" {
		redirectTo = "/"
	}
	return &OAuthController{redirectTo: redirectTo}
}

// HandleOAuthCallback completes the provider flow and stores the token pair
// in the dashboard session. Role checks happen on the next API call.
func (oc *OAuthController) HandleOAuthCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "oauth_failed", fmt.Sprintf("OAuth failed: %v", err))
	}

	ses := &identity.Session{
		AccessToken:  u.AccessToken,
		RefreshToken: u.RefreshToken,
		TokenType:    "bearer",
		User:         &identity.User{ID: u.UserID, Email: u.Email},
	}
	if !u.ExpiresAt.IsZero() {
		ses.ExpiresAt = u.ExpiresAt.Unix()
	}
	if err := middleware.StoreSession(c, ses); err != nil {
		fiberlog.Errorf("[OAuth] session save failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "session save failed")
	}

	fiberlog.Infof("[OAuth] %s signed in via %s", u.Email, u.Provider)
	return c.Redirect(oc.redirectTo, fiber.StatusSeeOther)
}

func (oc *OAuthController) HandleOAuthBegin(c *fiber.Ctx) error {
	return gothfiber.BeginAuthHandler(c)
}
