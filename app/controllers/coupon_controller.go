package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/pricing"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/usercontext"
)

type CouponChecker interface {
	CheckCoupon(ctx context.Context, token, code, packageID, memberID string) (pricing.CouponCheck, error)
}

// CouponSource reads single coupons from the main backend.
type CouponSource interface {
	OrganizationSource
	GetCoupon(ctx context.Context, token, id string) (*pricing.Coupon, error)
}

type CouponController struct {
	checker CouponChecker
	coupons CouponSource
}

func NewCouponController(checker CouponChecker, coupons CouponSource) *CouponController {
	return &CouponController{checker: checker, coupons: coupons}
}

type couponDisplay struct {
	Discount string `json:"discount,omitempty"`
	Price    string `json:"price,omitempty"`
}

type couponView struct {
	pricing.Coupon
	Display couponDisplay `json:"display"`
}

func newCouponView(cp pricing.Coupon, currency string) couponView {
	v := couponView{Coupon: cp}
	if cp.DiscountType != nil && cp.DiscountValue != nil {
		switch *cp.DiscountType {
		case pricing.DiscountPercentage:
			v.Display.Discount = pricing.FormatDiscountPercentage(*cp.DiscountValue)
		case pricing.DiscountFixedAmount:
			v.Display.Discount = pricing.FormatPackagePrice(*cp.DiscountValue, currency)
		}
	}
	if cp.CustomPrice != nil {
		v.Display.Price = pricing.FormatPackagePrice(*cp.CustomPrice, currency)
	}
	return v
}

// HandleGet returns a coupon with its discount formatted in the studio currency.
func (cc *CouponController) HandleGet(c *fiber.Ctx) error {
	token := usercontext.GetToken(c)
	cp, err := cc.coupons.GetCoupon(c.UserContext(), token, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	currency := pricing.NormalizeCurrency("")
	if org, err := cc.coupons.GetOrganization(c.UserContext(), token); err == nil {
		currency = pricing.NormalizeCurrency(org.Currency)
	} else {
		fiberlog.Warnf("[API] organization for coupon %s unavailable: %v", cp.ID, err)
	}
	return c.JSON(newCouponView(*cp, currency))
}

type couponCheckRequest struct {
	Code      string `json:"code" validate:"required,max=64"`
	PackageID string `json:"packageId" validate:"required"`
	MemberID  string `json:"memberId"`
}

// HandleCheck tells whether a coupon code applies to a package. A rejected
// code is a 200 with valid=false and the reason.
func (cc *CouponController) HandleCheck(c *fiber.Ctx) error {
	var req couponCheckRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	check, err := cc.checker.CheckCoupon(c.UserContext(), usercontext.GetToken(c), req.Code, req.PackageID, req.MemberID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(check)
}
