package pricing

import "time"

type PackageType string

const (
	PackageSingleRide PackageType = "SINGLE_RIDE"
	PackageCreditPack PackageType = "CREDIT_PACK"
	PackageElite30    PackageType = "ELITE_30"
	PackageAllAccess  PackageType = "ALL_ACCESS"
)

type CouponType string

const (
	CouponDiscount    CouponType = "DISCOUNT"
	CouponPackage     CouponType = "PACKAGE"
	CouponCreditBonus CouponType = "CREDIT_BONUS"
)

type DiscountType string

const (
	DiscountPercentage  DiscountType = "PERCENTAGE"
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT"
)

type RedemptionType string

const (
	RedemptionPackageDirect  RedemptionType = "PACKAGE_DIRECT"
	RedemptionCouponPackage  RedemptionType = "COUPON_PACKAGE"
	RedemptionCouponDiscount RedemptionType = "COUPON_DISCOUNT"
)

type RedemptionStatus string

const (
	StatusActive    RedemptionStatus = "ACTIVE"
	StatusExpired   RedemptionStatus = "EXPIRED"
	StatusCancelled RedemptionStatus = "CANCELLED"
	StatusUsed      RedemptionStatus = "USED"
)

// IsTerminal reports whether no further transition is allowed.
func (s RedemptionStatus) IsTerminal() bool {
	switch s {
	case StatusExpired, StatusCancelled, StatusUsed:
		return true
	default:
		return false
	}
}

// CanTransitionTo allows ACTIVE to move to any terminal status and nothing else.
func (s RedemptionStatus) CanTransitionTo(next RedemptionStatus) bool {
	return s == StatusActive && next.IsTerminal()
}

// BenefitFriendPass is the benefit tag carried by ELITE_30 packages that bundle a friend pass.
const BenefitFriendPass = "friend_pass"

// Package is a sellable catalog entry as returned by the main backend.
type Package struct {
	ID             string      `json:"id"`
	OrganizationID string      `json:"organizationId"`
	Code           string      `json:"code"`
	Name           string      `json:"name"`
	NameEn         *string     `json:"nameEn,omitempty"`
	Type           PackageType `json:"type"`
	Price          float64     `json:"price"`
	Credits        *int        `json:"credits,omitempty"`
	Description    string      `json:"description,omitempty"`
	Benefits       []string    `json:"benefits,omitempty"`
	ValidFrom      *time.Time  `json:"validFrom,omitempty"`
	ValidUntil     *time.Time  `json:"validUntil,omitempty"`
	IsActive       bool        `json:"isActive"`
	DisplayOrder   int         `json:"displayOrder"`
}

// HasBenefit reports whether the package lists the given benefit tag.
func (p Package) HasBenefit(tag string) bool {
	for _, b := range p.Benefits {
		if b == tag {
			return true
		}
	}
	return false
}

// Coupon is a promotional code scoped to an organization. Only the attribute
// group matching CouponType is meaningful; the others are ignored.
type Coupon struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organizationId"`
	Code           string     `json:"code"`
	Name           string     `json:"name"`
	CouponType     CouponType `json:"couponType"`

	// PACKAGE
	PackageID     *string  `json:"packageId,omitempty"`
	CustomPrice   *float64 `json:"customPrice,omitempty"`
	CustomCredits *int     `json:"customCredits,omitempty"`

	// DISCOUNT
	DiscountType         *DiscountType `json:"discountType,omitempty"`
	DiscountValue        *float64      `json:"discountValue,omitempty"`
	ApplicablePackageIDs []string      `json:"applicablePackageIds,omitempty"`

	// CREDIT_BONUS
	BonusCredits *int `json:"bonusCredits,omitempty"`

	ValidFrom               *time.Time `json:"validFrom,omitempty"`
	ValidUntil              *time.Time `json:"validUntil,omitempty"`
	MaxRedemptions          *int       `json:"maxRedemptions,omitempty"`
	MaxRedemptionsPerMember int        `json:"maxRedemptionsPerMember"`
	IsActive                bool       `json:"isActive"`
}

// PackageRedemption is the record of a member acquiring a package.
type PackageRedemption struct {
	ID             string         `json:"id"`
	MemberID       string         `json:"memberId"`
	OrganizationID string         `json:"organizationId"`
	PackageID      *string        `json:"packageId,omitempty"`
	CouponID       *string        `json:"couponId,omitempty"`
	RedemptionType RedemptionType `json:"redemptionType"`
	RedeemedAt     time.Time      `json:"redeemedAt"`
	RedeemedBy     string         `json:"redeemedBy,omitempty"`

	OriginalPrice  float64 `json:"originalPrice"`
	DiscountAmount float64 `json:"discountAmount"`
	FinalPrice     float64 `json:"finalPrice"`

	CreditsAdded       int        `json:"creditsAdded"`
	AllAccessExpiresAt *time.Time `json:"allAccessExpiresAt,omitempty"`
	AllAccessDays      *int       `json:"allAccessDays,omitempty"`

	FriendPassAvailable bool       `json:"friendPassAvailable"`
	FriendPassExpiresAt *time.Time `json:"friendPassExpiresAt,omitempty"`
	FriendPassUsed      bool       `json:"friendPassUsed"`
	FriendPassUsedAt    *time.Time `json:"friendPassUsedAt,omitempty"`
	FriendPassBookingID *string    `json:"friendPassBookingId,omitempty"`

	Status RedemptionStatus `json:"status"`
	Notes  string           `json:"notes,omitempty"`
}

// AllAccessDailyUsage is one usage of an ALL_ACCESS redemption on a calendar day.
type AllAccessDailyUsage struct {
	ID                  string  `json:"id"`
	PackageRedemptionID string  `json:"packageRedemptionId"`
	MemberID            string  `json:"memberId"`
	UsageDate           Date    `json:"usageDate"`
	BookingID           *string `json:"bookingId,omitempty"`
	WasNoShow           bool    `json:"wasNoShow"`
}
