package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"

	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/backend"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/pricing"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/usercontext"
)

// PackageBackend is the package catalogue surface of the main backend.
type PackageBackend interface {
	OrganizationSource
	Forwarder
	ListPackages(ctx context.Context, token string, query url.Values) ([]pricing.Package, error)
	GetPackage(ctx context.Context, token, id string) (*pricing.Package, error)
}

type PackageController struct {
	backend PackageBackend
}

func NewPackageController(b PackageBackend) *PackageController {
	return &PackageController{backend: b}
}

type packageDisplay struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Savings  string `json:"savings,omitempty"`
	Discount string `json:"discount,omitempty"`
}

// packageView is a package with its derived pricing and display strings.
type packageView struct {
	pricing.Package
	Pricing  *pricing.PackagePricing `json:"pricing"`
	Currency string                  `json:"currency"`
	Display  packageDisplay          `json:"display"`
}

func newPackageView(pkg pricing.Package, org *backend.Organization, locale string) packageView {
	v := packageView{Package: pkg}
	creditPrice := 0.0
	if org != nil {
		creditPrice = org.CreditPrice
		v.Currency = pricing.NormalizeCurrency(org.Currency)
		if locale == "" {
			locale = org.Language
		}
	} else {
		v.Currency = pricing.NormalizeCurrency("")
	}
	v.Pricing = pricing.CalculatePackagePricing(pkg, creditPrice)
	v.Display = packageDisplay{
		Name:    pricing.GetPackageDisplayName(pkg, locale),
		Price:   pricing.FormatPackagePrice(pkg.Price, v.Currency),
		Savings: pricing.GetSavingsDisplay(v.Pricing, v.Currency, locale),
	}
	if v.Pricing != nil && v.Pricing.DiscountPercentage > 0 {
		v.Display.Discount = pricing.FormatDiscountPercentage(v.Pricing.DiscountPercentage)
	}
	return v
}

// organization loads the tenant for pricing. Without it packages are still
// listed, priced against a zero credit rate.
func (pc *PackageController) organization(c *fiber.Ctx) *backend.Organization {
	org, err := pc.backend.GetOrganization(c.UserContext(), usercontext.GetToken(c))
	if err != nil {
		return nil
	}
	return org
}

// HandleList returns the catalogue enriched with pricing.
func (pc *PackageController) HandleList(c *fiber.Ctx) error {
	token := usercontext.GetToken(c)
	pkgs, err := pc.backend.ListPackages(c.UserContext(), token, queryValues(c))
	if err != nil {
		return respondError(c, err)
	}

	org := pc.organization(c)
	locale := c.Query("locale")
	views := make([]packageView, 0, len(pkgs))
	for _, p := range pkgs {
		views = append(views, newPackageView(p, org, locale))
	}
	return c.JSON(views)
}

func (pc *PackageController) HandleGet(c *fiber.Ctx) error {
	pkg, err := pc.backend.GetPackage(c.UserContext(), usercontext.GetToken(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(newPackageView(*pkg, pc.organization(c), c.Query("locale")))
}

type packageRequest struct {
	Code         string              `json:"code,omitempty" validate:"omitempty,max=64"`
	Name         string              `json:"name" validate:"required,max=120"`
	NameEn       *string             `json:"nameEn,omitempty" validate:"omitempty,max=120"`
	Type         pricing.PackageType `json:"type" validate:"required,oneof=SINGLE_RIDE CREDIT_PACK ELITE_30 ALL_ACCESS"`
	Price        float64             `json:"price" validate:"gte=0"`
	Credits      *int                `json:"credits,omitempty" validate:"omitempty,gte=0"`
	Description  string              `json:"description,omitempty"`
	Benefits     []string            `json:"benefits,omitempty"`
	ValidFrom    *time.Time          `json:"validFrom,omitempty"`
	ValidUntil   *time.Time          `json:"validUntil,omitempty"`
	IsActive     *bool               `json:"isActive,omitempty"`
	DisplayOrder int                 `json:"displayOrder"`
}

// write forwards a validated package body. New packages get a slug code
// and start active unless the body says otherwise; updates leave absent
// fields to the backend.
func (pc *PackageController) write(c *fiber.Ctx, method, path string, create bool) error {
	var req packageRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	if req.ValidFrom != nil && req.ValidUntil != nil && req.ValidUntil.Before(*req.ValidFrom) {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "validUntil must not be before validFrom")
	}
	if create {
		if req.Code == "" {
			req.Code = slug.Make(req.Name)
		}
		if req.IsActive == nil {
			active := true
			req.IsActive = &active
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return respondError(c, err)
	}
	resp, err := pc.backend.Forward(c.UserContext(), usercontext.GetToken(c), method, path, nil, body)
	if err != nil {
		return respondError(c, err)
	}
	return relay(c, resp)
}

func (pc *PackageController) HandleCreate(c *fiber.Ctx) error {
	return pc.write(c, http.MethodPost, "/api/packages", true)
}

func (pc *PackageController) HandleUpdate(c *fiber.Ctx) error {
	return pc.write(c, http.MethodPut, "/api/packages/"+url.PathEscape(c.Params("id")), false)
}

func (pc *PackageController) HandleDelete(c *fiber.Ctx) error {
	resp, err := pc.backend.Forward(c.UserContext(), usercontext.GetToken(c), http.MethodDelete, "/api/packages/"+url.PathEscape(c.Params("id")), nil, nil)
	if err != nil {
		return respondError(c, err)
	}
	return relay(c, resp)
}
