package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ReceiptEmailPending = "pending"
	ReceiptEmailSent    = "sent"
	ReceiptEmailFailed  = "failed"
	ReceiptEmailSkipped = "skipped"
)

// Receipt indexes a rendered redemption receipt. The redemption itself lives
// in the main backend; this row only records what was sent and where the
// archived copy is.
type Receipt struct {
	ID             string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Number         string     `gorm:"type:varchar(40);uniqueIndex;not null" json:"number"`
	RedemptionID   string     `gorm:"type:varchar(64);not null;index" json:"redemptionId"`
	OrganizationID string     `gorm:"type:varchar(64);not null;index:idx_receipts_org_created,priority:1" json:"organizationId"`
	MemberID       string     `gorm:"type:varchar(64);index" json:"memberId"`
	MemberEmail    string     `gorm:"type:varchar(191)" json:"memberEmail"`
	MemberName     string     `gorm:"type:varchar(191)" json:"memberName"`
	PackageName    string     `gorm:"type:varchar(191)" json:"packageName"`
	CouponCode     string     `gorm:"type:varchar(64)" json:"couponCode,omitempty"`
	RedemptionType string     `gorm:"type:varchar(32)" json:"redemptionType"`
	Currency       string     `gorm:"type:varchar(8);default:'TRY'" json:"currency"`
	OriginalPrice  float64    `gorm:"type:decimal(12,2)" json:"originalPrice"`
	DiscountAmount float64    `gorm:"type:decimal(12,2)" json:"discountAmount"`
	FinalPrice     float64    `gorm:"type:decimal(12,2)" json:"finalPrice"`
	CreditsAdded   int        `gorm:"default:0" json:"creditsAdded"`
	StorageKey     string     `gorm:"type:varchar(255)" json:"storageKey,omitempty"`
	StorageURL     string     `gorm:"type:varchar(512)" json:"storageUrl,omitempty"`
	Subject        string     `gorm:"type:varchar(255)" json:"subject"`
	HTML           string     `gorm:"type:longtext" json:"-"`
	EmailStatus    string     `gorm:"type:varchar(16);default:'pending';index" json:"emailStatus"`
	EmailProvider  string     `gorm:"type:varchar(16)" json:"emailProvider,omitempty"`
	EmailMessageID string     `gorm:"type:varchar(191)" json:"emailMessageId,omitempty"`
	EmailAttempts  int        `gorm:"default:0" json:"emailAttempts"`
	LastError      string     `gorm:"type:text" json:"lastError,omitempty"`
	SentAt         *time.Time `gorm:"type:timestamp;default:null" json:"sentAt,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime;index:idx_receipts_org_created,priority:2" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Receipt) TableName() string {
	return "receipts"
}

// BeforeCreate assigns a UUID when the caller did not.
func (r *Receipt) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}
