package repository

import (
	"github.com/devrantukan/spinning-tenant-be-sub001/app/models"
)

// ReceiptRepository defines the interface for receipt-related database operations
type ReceiptRepository interface {
	Create(receipt *models.Receipt) error
	Update(receipt *models.Receipt) error
	GetByID(id string) (*models.Receipt, error)
	ListByRedemptionID(redemptionID string) ([]models.Receipt, error)
	ListByOrganization(organizationID string, offset, limit int) ([]models.Receipt, int64, error)
	ListFailedEmails(maxAttempts, limit int) ([]models.Receipt, error)
}

// Repositories holds all repository instances
type Repositories struct {
	Receipt ReceiptRepository
}
