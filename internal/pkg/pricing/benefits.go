package pricing

import "time"

const (
	DefaultAllAccessDays  = 30
	DefaultFriendPassDays = 30
)

// CalculateAllAccessExpiration adds days calendar days to purchaseDate and
// moves to the last millisecond of that day in purchaseDate's location.
func CalculateAllAccessExpiration(purchaseDate time.Time, days int) time.Time {
	return endOfDay(purchaseDate.AddDate(0, 0, days))
}

// CalculateFriendPassExpiration follows the same end-of-day rule as the
// All-Access window.
func CalculateFriendPassExpiration(purchaseDate time.Time, days int) time.Time {
	return endOfDay(purchaseDate.AddDate(0, 0, days))
}

// CanUseAllAccessToday reports whether an ALL_ACCESS redemption still has its
// usage for the calendar day of now. A no-show usage does not consume the day.
func CanUseAllAccessToday(redemption PackageRedemption, usages []AllAccessDailyUsage, now time.Time) bool {
	if redemption.Status != StatusActive {
		return false
	}
	if redemption.AllAccessExpiresAt == nil {
		return false
	}
	if redemption.AllAccessExpiresAt.Before(startOfDay(now)) {
		return false
	}

	today := DateOf(now)
	for _, u := range usages {
		if u.UsageDate == today && !u.WasNoShow {
			return false
		}
	}
	return true
}

// IsFriendPassValid reports whether the friend pass can still be redeemed at now.
func IsFriendPassValid(redemption PackageRedemption, now time.Time) bool {
	if !redemption.FriendPassAvailable || redemption.FriendPassUsed {
		return false
	}
	if redemption.FriendPassExpiresAt == nil {
		return false
	}
	return !redemption.FriendPassExpiresAt.Before(now)
}

// HasFriendPassBenefit is true only for ELITE_30 packages tagged friend_pass.
func HasFriendPassBenefit(pkg Package) bool {
	return pkg.Type == PackageElite30 && pkg.HasBenefit(BenefitFriendPass)
}

// Grant is the benefit outcome written onto a new redemption.
type Grant struct {
	CreditsAdded        int        `json:"creditsAdded"`
	AllAccessExpiresAt  *time.Time `json:"allAccessExpiresAt,omitempty"`
	AllAccessDays       *int       `json:"allAccessDays,omitempty"`
	FriendPassAvailable bool       `json:"friendPassAvailable"`
	FriendPassExpiresAt *time.Time `json:"friendPassExpiresAt,omitempty"`
}

// GrantFor computes the grant of redeeming pkg (optionally through coupon)
// at purchase time now.
func GrantFor(pkg Package, coupon *Coupon, now time.Time) Grant {
	g := Grant{CreditsAdded: GetCreditsFromPackage(pkg, coupon)}

	if coupon != nil && coupon.CouponType == CouponCreditBonus && coupon.BonusCredits != nil && pkg.Type != PackageAllAccess {
		g.CreditsAdded += *coupon.BonusCredits
	}

	if pkg.Type == PackageAllAccess {
		days := DefaultAllAccessDays
		expires := CalculateAllAccessExpiration(now, days)
		g.AllAccessDays = &days
		g.AllAccessExpiresAt = &expires
	}

	if HasFriendPassBenefit(pkg) {
		expires := CalculateFriendPassExpiration(now, DefaultFriendPassDays)
		g.FriendPassAvailable = true
		g.FriendPassExpiresAt = &expires
	}

	return g
}
