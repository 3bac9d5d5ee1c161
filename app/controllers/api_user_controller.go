package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/backend"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/usercontext"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/utils"
)

// OrganizationSource loads the tenant organization.
type OrganizationSource interface {
	GetOrganization(ctx context.Context, token string) (*backend.Organization, error)
}

type AccountController struct {
	orgs OrganizationSource
}

func NewAccountController(orgs OrganizationSource) *AccountController {
	return &AccountController{orgs: orgs}
}

// HandleMe returns the authenticated staff member and, when reachable, the
// tenant organization.
func (ac *AccountController) HandleMe(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	if !user.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	resp := fiber.Map{"user": user}
	if user.Email != "" {
		resp["avatarUrl"] = utils.GetGravatarURL(user.Email, 0)
	}
	org, err := ac.orgs.GetOrganization(c.UserContext(), user.Token)
	if err != nil {
		fiberlog.Warnf("[API] organization for /me unavailable: %v", err)
	} else {
		resp["organization"] = org
	}
	return c.JSON(resp)
}
