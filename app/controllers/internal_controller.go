package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/backend"
)

type OrganizationRefresher interface {
	RefreshOrganization(ctx context.Context) (*backend.Organization, error)
}

// InternalController serves service-to-service routes guarded by the API key.
type InternalController struct {
	refresher OrganizationRefresher
}

func NewInternalController(r OrganizationRefresher) *InternalController {
	return &InternalController{refresher: r}
}

// HandleRefreshOrganization drops the cached organization and reloads it,
// so a price change on the main backend shows up immediately.
func (ic *InternalController) HandleRefreshOrganization(c *fiber.Ctx) error {
	org, err := ic.refresher.RefreshOrganization(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	fiberlog.Infof("[Internal] organization %s refreshed", org.ID)
	return c.JSON(org)
}
