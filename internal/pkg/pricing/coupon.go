package pricing

import (
	"math"
	"time"
)

// Reasons reported by CanApplyCouponToPackage and CheckRedemptionLimits.
const (
	ReasonNotActive        = "Coupon is not active"
	ReasonNotYetValid      = "Coupon not yet valid"
	ReasonExpired          = "Coupon has expired"
	ReasonPackageNotInList = "Coupon does not apply to this package"
	ReasonDifferentPackage = "Coupon is for a different package"
	ReasonLimitReached     = "Coupon redemption limit reached"
	ReasonMemberLimit      = "Member has already used this coupon"
	ReasonNotFound         = "Coupon not found"
)

// RedemptionPrice is the pricing snapshot stored on a redemption.
type RedemptionPrice struct {
	OriginalPrice  float64        `json:"originalPrice"`
	DiscountAmount float64        `json:"discountAmount"`
	FinalPrice     float64        `json:"finalPrice"`
	RedemptionType RedemptionType `json:"redemptionType"`
}

// DiscountResult is the outcome of applying a DISCOUNT coupon to a price.
type DiscountResult struct {
	DiscountAmount float64 `json:"discountAmount"`
	FinalPrice     float64 `json:"finalPrice"`
}

// CouponCheck is the tagged result of an eligibility check. Reason is set
// only when Valid is false.
type CouponCheck struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

func rejected(reason string) CouponCheck {
	return CouponCheck{Valid: false, Reason: reason}
}

// CalculateRedemptionPrice resolves the final price of a package, optionally
// through a coupon. Combinations that carry no price effect (a PACKAGE coupon
// without customPrice, CREDIT_BONUS coupons) are priced as PACKAGE_DIRECT.
func CalculateRedemptionPrice(pkg Package, coupon *Coupon) RedemptionPrice {
	original := pkg.Price
	direct := RedemptionPrice{
		OriginalPrice:  original,
		DiscountAmount: 0,
		FinalPrice:     original,
		RedemptionType: RedemptionPackageDirect,
	}
	if coupon == nil {
		return direct
	}

	switch {
	case coupon.CouponType == CouponDiscount:
		d := CalculateDiscountedPrice(original, *coupon)
		return RedemptionPrice{
			OriginalPrice:  original,
			DiscountAmount: d.DiscountAmount,
			FinalPrice:     d.FinalPrice,
			RedemptionType: RedemptionCouponDiscount,
		}
	case coupon.CouponType == CouponPackage && coupon.CustomPrice != nil:
		custom := *coupon.CustomPrice
		return RedemptionPrice{
			OriginalPrice:  original,
			DiscountAmount: original - custom,
			FinalPrice:     custom,
			RedemptionType: RedemptionCouponPackage,
		}
	default:
		return direct
	}
}

// CalculateDiscountedPrice applies a DISCOUNT coupon. The final price is
// clamped at zero but the discount amount is reported as configured, so
// originalPrice-discountAmount can differ from finalPrice for oversized
// fixed discounts.
func CalculateDiscountedPrice(originalPrice float64, coupon Coupon) DiscountResult {
	value := 0.0
	if coupon.DiscountValue != nil {
		value = *coupon.DiscountValue
	}

	discount := 0.0
	if coupon.DiscountType != nil {
		switch *coupon.DiscountType {
		case DiscountPercentage:
			discount = originalPrice * value / 100
		case DiscountFixedAmount:
			discount = value
		}
	}

	return DiscountResult{
		DiscountAmount: discount,
		FinalPrice:     math.Max(0, originalPrice-discount),
	}
}

// GetCreditsFromPackage returns the credits a redemption grants. ALL_ACCESS
// never grants discrete credits; a coupon's customCredits overrides the
// package credits.
func GetCreditsFromPackage(pkg Package, coupon *Coupon) int {
	if pkg.Type == PackageAllAccess {
		return 0
	}
	if coupon != nil && coupon.CustomCredits != nil {
		return *coupon.CustomCredits
	}
	if pkg.Credits == nil {
		return 0
	}
	return *pkg.Credits
}

// CanApplyCouponToPackage checks whether coupon may be redeemed against pkg
// at instant now. The first failing gate determines the reason.
//
// A PACKAGE coupon without packageId applies to every package.
func CanApplyCouponToPackage(coupon Coupon, pkg Package, now time.Time) CouponCheck {
	if !coupon.IsActive {
		return rejected(ReasonNotActive)
	}
	if coupon.ValidFrom != nil && coupon.ValidFrom.After(now) {
		return rejected(ReasonNotYetValid)
	}
	if coupon.ValidUntil != nil && coupon.ValidUntil.Before(now) {
		return rejected(ReasonExpired)
	}

	switch coupon.CouponType {
	case CouponDiscount:
		if coupon.ApplicablePackageIDs != nil && !containsString(coupon.ApplicablePackageIDs, pkg.ID) {
			return rejected(ReasonPackageNotInList)
		}
	case CouponPackage:
		if coupon.PackageID != nil && *coupon.PackageID != pkg.ID {
			return rejected(ReasonDifferentPackage)
		}
	}

	return CouponCheck{Valid: true}
}

// CheckRedemptionLimits enforces the coupon's global and per-member caps given
// the number of existing redemptions. A nil MaxRedemptions is unlimited; an
// unset per-member cap defaults to one.
func CheckRedemptionLimits(coupon Coupon, totalRedemptions, memberRedemptions int) CouponCheck {
	if coupon.MaxRedemptions != nil && totalRedemptions >= *coupon.MaxRedemptions {
		return rejected(ReasonLimitReached)
	}
	perMember := coupon.MaxRedemptionsPerMember
	if perMember <= 0 {
		perMember = 1
	}
	if memberRedemptions >= perMember {
		return rejected(ReasonMemberLimit)
	}
	return CouponCheck{Valid: true}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
