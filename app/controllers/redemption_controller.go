package controllers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/passcode"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/pricing"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/redemption"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/usercontext"
)

const (
	defaultQRSize = 256
	maxQRSize     = 1024
)

// RedemptionFlows is implemented by redemption.Service.
type RedemptionFlows interface {
	Quote(ctx context.Context, token string, in redemption.QuoteInput) (*redemption.Quote, error)
	Redeem(ctx context.Context, token string, in redemption.RedeemInput) (*redemption.RedeemResult, error)
	AllAccessStatus(ctx context.Context, token, redemptionID string) (*redemption.AllAccessStatus, error)
	FriendPassStatus(ctx context.Context, token, redemptionID string) (*redemption.FriendPassStatus, error)
	UpdateStatus(ctx context.Context, token, redemptionID string, next pricing.RedemptionStatus) (*pricing.PackageRedemption, error)
}

type RedemptionController struct {
	flows    RedemptionFlows
	backend  Forwarder
	qrSecret string
}

func NewRedemptionController(flows RedemptionFlows, b Forwarder, qrSecret string) *RedemptionController {
	return &RedemptionController{flows: flows, backend: b, qrSecret: qrSecret}
}

func (rc *RedemptionController) HandleList(c *fiber.Ctx) error {
	resp, err := rc.backend.Forward(c.UserContext(), usercontext.GetToken(c), http.MethodGet, "/api/package-redemptions", queryValues(c), nil)
	if err != nil {
		return respondError(c, err)
	}
	return relay(c, resp)
}

func (rc *RedemptionController) HandleGet(c *fiber.Ctx) error {
	path := "/api/package-redemptions/" + url.PathEscape(c.Params("id"))
	resp, err := rc.backend.Forward(c.UserContext(), usercontext.GetToken(c), http.MethodGet, path, nil, nil)
	if err != nil {
		return respondError(c, err)
	}
	return relay(c, resp)
}

type quoteRequest struct {
	PackageID  string `json:"packageId" validate:"required"`
	CouponCode string `json:"couponCode" validate:"omitempty,max=64"`
	MemberID   string `json:"memberId"`
	Locale     string `json:"locale" validate:"omitempty,max=16"`
}

// HandleQuote prices a redemption without recording it.
func (rc *RedemptionController) HandleQuote(c *fiber.Ctx) error {
	var req quoteRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	q, err := rc.flows.Quote(c.UserContext(), usercontext.GetToken(c), redemption.QuoteInput{
		PackageID:  req.PackageID,
		CouponCode: req.CouponCode,
		MemberID:   req.MemberID,
		Locale:     req.Locale,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(q)
}

type redeemRequest struct {
	MemberID   string `json:"memberId" validate:"required"`
	PackageID  string `json:"packageId" validate:"required"`
	CouponCode string `json:"couponCode" validate:"omitempty,max=64"`
	Notes      string `json:"notes" validate:"omitempty,max=500"`
	Locale     string `json:"locale" validate:"omitempty,max=16"`
}

// HandleRedeem records the redemption and issues its receipt.
func (rc *RedemptionController) HandleRedeem(c *fiber.Ctx) error {
	var req redeemRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	user := usercontext.GetUserContext(c)
	res, err := rc.flows.Redeem(c.UserContext(), user.Token, redemption.RedeemInput{
		MemberID:   req.MemberID,
		PackageID:  req.PackageID,
		CouponCode: req.CouponCode,
		RedeemedBy: user.UserID,
		Notes:      req.Notes,
		Locale:     req.Locale,
	})
	if err != nil {
		return respondError(c, err)
	}
	fiberlog.Infof("[Redemption] %s redeemed package %s for member %s", user.Email, req.PackageID, req.MemberID)
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (rc *RedemptionController) HandleAllAccess(c *fiber.Ctx) error {
	st, err := rc.flows.AllAccessStatus(c.UserContext(), usercontext.GetToken(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(st)
}

func (rc *RedemptionController) HandleFriendPass(c *fiber.Ctx) error {
	st, err := rc.flows.FriendPassStatus(c.UserContext(), usercontext.GetToken(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(st)
}

// HandleFriendPassQR renders the signed friend pass as a PNG. Only a pass
// that can still be used gets a code.
func (rc *RedemptionController) HandleFriendPassQR(c *fiber.Ctx) error {
	if rc.qrSecret == "" {
		return jsonError(c, fiber.StatusServiceUnavailable, "service_unavailable", "FRIEND_PASS_SECRET is not configured")
	}
	st, err := rc.flows.FriendPassStatus(c.UserContext(), usercontext.GetToken(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if !st.Valid {
		return jsonError(c, fiber.StatusConflict, "conflict", "friend pass is used or expired")
	}

	size := queryInt(c, "size", defaultQRSize)
	if size <= 0 {
		size = defaultQRSize
	}
	if size > maxQRSize {
		size = maxQRSize
	}
	png, err := passcode.FriendPassPNG(st.RedemptionID, rc.qrSecret, size)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(png)
}

type friendPassVerifyRequest struct {
	Payload string `json:"payload" validate:"required,max=256"`
}

// HandleFriendPassVerify checks a scanned friend pass QR code at the front
// desk. A genuine code answers with the pass status; Valid tells whether it
// can still be used.
func (rc *RedemptionController) HandleFriendPassVerify(c *fiber.Ctx) error {
	if rc.qrSecret == "" {
		return jsonError(c, fiber.StatusServiceUnavailable, "service_unavailable", "FRIEND_PASS_SECRET is not configured")
	}
	var req friendPassVerifyRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	id, err := passcode.VerifyFriendPass(req.Payload, rc.qrSecret)
	if err != nil {
		fiberlog.Warnf("[Redemption] rejected friend pass scan by %s", usercontext.GetUserContext(c).Email)
		return respondError(c, err)
	}
	st, err := rc.flows.FriendPassStatus(c.UserContext(), usercontext.GetToken(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(st)
}

type statusRequest struct {
	Status pricing.RedemptionStatus `json:"status" validate:"required,oneof=EXPIRED CANCELLED USED"`
}

// HandleUpdateStatus closes an active redemption.
func (rc *RedemptionController) HandleUpdateStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	red, err := rc.flows.UpdateStatus(c.UserContext(), usercontext.GetToken(c), c.Params("id"), req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(red)
}
