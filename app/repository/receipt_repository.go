package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/devrantukan/spinning-tenant-be-sub001/app/models"
)

var ErrNotFound = errors.New("record not found")

const maxListLimit = 100

// receiptRepository implements the ReceiptRepository interface
type receiptRepository struct {
	db *gorm.DB
}

// NewReceiptRepository creates a new receipt repository instance
func NewReceiptRepository(db *gorm.DB) ReceiptRepository {
	return &receiptRepository{db: db}
}

func (r *receiptRepository) Create(receipt *models.Receipt) error {
	return r.db.Create(receipt).Error
}

func (r *receiptRepository) Update(receipt *models.Receipt) error {
	return r.db.Save(receipt).Error
}

func (r *receiptRepository) GetByID(id string) (*models.Receipt, error) {
	var receipt models.Receipt
	err := r.db.Where("id = ?", id).First(&receipt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *receiptRepository) ListByRedemptionID(redemptionID string) ([]models.Receipt, error) {
	var receipts []models.Receipt
	err := r.db.Where("redemption_id = ?", redemptionID).Order("created_at DESC").Find(&receipts).Error
	return receipts, err
}

// ListByOrganization returns one page, newest first, plus the total count.
func (r *receiptRepository) ListByOrganization(organizationID string, offset, limit int) ([]models.Receipt, int64, error) {
	offset, limit = clampPage(offset, limit)

	var total int64
	q := r.db.Model(&models.Receipt{}).Where("organization_id = ?", organizationID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var receipts []models.Receipt
	err := r.db.Where("organization_id = ?", organizationID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&receipts).Error
	return receipts, total, err
}

// ListFailedEmails returns receipts whose e-mail failed fewer than maxAttempts
// times, oldest first.
func (r *receiptRepository) ListFailedEmails(maxAttempts, limit int) ([]models.Receipt, error) {
	_, limit = clampPage(0, limit)
	var receipts []models.Receipt
	err := r.db.Where("email_status = ? AND email_attempts < ?", models.ReceiptEmailFailed, maxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&receipts).Error
	return receipts, err
}

func clampPage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	return offset, limit
}
