package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/devrantukan/spinning-tenant-be-sub001/app/models"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/receipt"
)

const (
	defaultReceiptPage = 20
	maxReceiptPage     = 100
)

// Receipts is implemented by receipt.Service.
type Receipts interface {
	Get(id string) (*models.Receipt, error)
	List(organizationID string, offset, limit int) ([]models.Receipt, int64, error)
	ListByRedemption(redemptionID string) ([]models.Receipt, error)
	Resend(ctx context.Context, id string) (*models.Receipt, error)
}

type ReceiptController struct {
	receipts       Receipts
	organizationID string
}

func NewReceiptController(receipts Receipts, organizationID string) *ReceiptController {
	return &ReceiptController{receipts: receipts, organizationID: organizationID}
}

// HandleList pages the tenant's receipts, newest first, or lists the
// receipts of one redemption when redemptionId is given.
func (rc *ReceiptController) HandleList(c *fiber.Ctx) error {
	if id := c.Query("redemptionId"); id != "" {
		list, err := rc.receipts.ListByRedemption(id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"items": list, "total": len(list)})
	}

	limit := queryInt(c, "limit", defaultReceiptPage)
	if limit == 0 || limit > maxReceiptPage {
		limit = defaultReceiptPage
	}
	offset := queryInt(c, "offset", 0)

	list, total, err := rc.receipts.List(rc.organizationID, offset, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"items": list, "total": total, "offset": offset, "limit": limit})
}

func (rc *ReceiptController) HandleGet(c *fiber.Ctx) error {
	rec, err := rc.receipts.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rec)
}

// HandleDocument serves the rendered receipt.
func (rc *ReceiptController) HandleDocument(c *fiber.Ctx) error {
	rec, err := rc.receipts.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if rec.HTML == "" {
		return respondError(c, receipt.ErrNoDocument)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(rec.HTML)
}

func (rc *ReceiptController) HandleResend(c *fiber.Ctx) error {
	rec, err := rc.receipts.Resend(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rec)
}
