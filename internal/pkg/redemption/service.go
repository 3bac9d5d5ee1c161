package redemption

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/devrantukan/spinning-tenant-be-sub001/app/models"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/backend"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/pricing"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/receipt"
)

var (
	ErrPackageInactive = errors.New("package is not active")
	ErrNotAllAccess    = errors.New("redemption is not an all access pass")
	ErrNoFriendPass    = errors.New("redemption has no friend pass")

	ErrInvalidTransition = errors.New("redemption status transition not allowed")
)

// CouponRejectedError carries the reason a coupon could not be applied.
type CouponRejectedError struct {
	Reason string
}

func (e *CouponRejectedError) Error() string {
	return "coupon rejected: " + e.Reason
}

func IsCouponRejected(err error) bool {
	var rejected *CouponRejectedError
	return errors.As(err, &rejected)
}

// Backend is the subset of the main backend the redemption flows need.
type Backend interface {
	GetOrganization(ctx context.Context, token string) (*backend.Organization, error)
	GetPackage(ctx context.Context, token, id string) (*pricing.Package, error)
	GetCouponByCode(ctx context.Context, token, code string) (*pricing.Coupon, error)
	GetRedemption(ctx context.Context, token, id string) (*pricing.PackageRedemption, error)
	ListRedemptions(ctx context.Context, token string, filter backend.RedemptionFilter) ([]pricing.PackageRedemption, error)
	ListDailyUsages(ctx context.Context, token, redemptionID string) ([]pricing.AllAccessDailyUsage, error)
	CreateRedemption(ctx context.Context, token string, req backend.CreateRedemptionRequest) (*pricing.PackageRedemption, error)
	GetMember(ctx context.Context, token, id string) (*backend.Member, error)
	UpdateRedemptionStatus(ctx context.Context, token, id string, status pricing.RedemptionStatus) (*pricing.PackageRedemption, error)
}

type ReceiptIssuer interface {
	Issue(ctx context.Context, in receipt.IssueInput) (*models.Receipt, error)
}

// Clock returns the current time. Each operation reads it once.
type Clock func() time.Time

type Service struct {
	backend  Backend
	receipts ReceiptIssuer
	clock    Clock
}

// NewService wires the flows. receipts may be nil to disable receipts.
func NewService(b Backend, receipts ReceiptIssuer, clock Clock) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{backend: b, receipts: receipts, clock: clock}
}

type QuoteInput struct {
	PackageID  string
	CouponCode string
	MemberID   string
	Locale     string
}

type QuoteDisplay struct {
	Name          string `json:"name"`
	OriginalPrice string `json:"originalPrice"`
	FinalPrice    string `json:"finalPrice"`
	Savings       string `json:"savings,omitempty"`
}

// Quote is a priced preview of a redemption. Nothing is written.
type Quote struct {
	Package     pricing.Package         `json:"package"`
	Coupon      *pricing.Coupon         `json:"coupon,omitempty"`
	CouponCheck *pricing.CouponCheck    `json:"couponCheck,omitempty"`
	Pricing     *pricing.PackagePricing `json:"pricing"`
	Price       pricing.RedemptionPrice `json:"price"`
	Grant       pricing.Grant           `json:"grant"`
	Currency    string                  `json:"currency"`
	Display     QuoteDisplay            `json:"display"`
}

// Quote prices pkg with the optional coupon. A coupon that does not apply is
// reported in CouponCheck and left out of the price.
func (s *Service) Quote(ctx context.Context, token string, in QuoteInput) (*Quote, error) {
	now := s.clock()

	org, err := s.backend.GetOrganization(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("load organization: %w", err)
	}
	// benefit expiry ends on the studio's calendar day
	now = now.In(org.Location())

	pkg, err := s.backend.GetPackage(ctx, token, in.PackageID)
	if err != nil {
		return nil, fmt.Errorf("load package %s: %w", in.PackageID, err)
	}

	q := &Quote{
		Package:  *pkg,
		Pricing:  pricing.CalculatePackagePricing(*pkg, org.CreditPrice),
		Currency: pricing.NormalizeCurrency(org.Currency),
	}

	var applied *pricing.Coupon
	if code := strings.TrimSpace(in.CouponCode); code != "" {
		coupon, check, err := s.checkCoupon(ctx, token, code, *pkg, in.MemberID, now)
		if err != nil {
			return nil, err
		}
		q.Coupon = coupon
		q.CouponCheck = &check
		if check.Valid {
			applied = coupon
		}
	}

	q.Price = pricing.CalculateRedemptionPrice(*pkg, applied)
	q.Grant = pricing.GrantFor(*pkg, applied, now)

	locale := in.Locale
	if locale == "" {
		locale = org.Language
	}
	q.Display = QuoteDisplay{
		Name:          pricing.GetPackageDisplayName(*pkg, locale),
		OriginalPrice: pricing.FormatPackagePrice(q.Price.OriginalPrice, q.Currency),
		FinalPrice:    pricing.FormatPackagePrice(q.Price.FinalPrice, q.Currency),
		Savings:       pricing.GetSavingsDisplay(q.Pricing, q.Currency, locale),
	}
	return q, nil
}

// CheckCoupon resolves code and tests it against packageID for memberID.
func (s *Service) CheckCoupon(ctx context.Context, token, code, packageID, memberID string) (pricing.CouponCheck, error) {
	now := s.clock()
	pkg, err := s.backend.GetPackage(ctx, token, packageID)
	if err != nil {
		return pricing.CouponCheck{}, fmt.Errorf("load package %s: %w", packageID, err)
	}
	_, check, err := s.checkCoupon(ctx, token, code, *pkg, memberID, now)
	return check, err
}

// checkCoupon returns the coupon (nil when the code is unknown) and its
// eligibility. An unknown code is a rejection, not an error.
func (s *Service) checkCoupon(ctx context.Context, token, code string, pkg pricing.Package, memberID string, now time.Time) (*pricing.Coupon, pricing.CouponCheck, error) {
	coupon, err := s.backend.GetCouponByCode(ctx, token, code)
	if backend.IsNotFound(err) {
		return nil, pricing.CouponCheck{Valid: false, Reason: pricing.ReasonNotFound}, nil
	}
	if err != nil {
		return nil, pricing.CouponCheck{}, fmt.Errorf("load coupon %q: %w", code, err)
	}

	check := pricing.CanApplyCouponToPackage(*coupon, pkg, now)
	if !check.Valid {
		return coupon, check, nil
	}

	total, member, err := s.countRedemptions(ctx, token, coupon.ID, memberID)
	if err != nil {
		return nil, pricing.CouponCheck{}, err
	}
	return coupon, pricing.CheckRedemptionLimits(*coupon, total, member), nil
}

// countRedemptions counts non-cancelled redemptions of a coupon overall and
// for one member. The member count is 0 when memberID is empty.
func (s *Service) countRedemptions(ctx context.Context, token, couponID, memberID string) (int, int, error) {
	all, err := s.backend.ListRedemptions(ctx, token, backend.RedemptionFilter{CouponID: couponID})
	if err != nil {
		return 0, 0, fmt.Errorf("count coupon redemptions: %w", err)
	}
	total, member := 0, 0
	for _, r := range all {
		if r.Status == pricing.StatusCancelled {
			continue
		}
		total++
		if memberID != "" && r.MemberID == memberID {
			member++
		}
	}
	return total, member, nil
}

type RedeemInput struct {
	MemberID   string
	PackageID  string
	CouponCode string
	RedeemedBy string
	Notes      string
	Locale     string
}

type RedeemResult struct {
	Redemption *pricing.PackageRedemption `json:"redemption"`
	Receipt    *models.Receipt            `json:"receipt,omitempty"`
}

// Redeem records a member acquiring a package. The receipt is issued after the
// redemption exists; a receipt failure is logged and does not fail the call.
func (s *Service) Redeem(ctx context.Context, token string, in RedeemInput) (*RedeemResult, error) {
	now := s.clock()

	org, err := s.backend.GetOrganization(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("load organization: %w", err)
	}
	// benefit expiry ends on the studio's calendar day
	now = now.In(org.Location())

	pkg, err := s.backend.GetPackage(ctx, token, in.PackageID)
	if err != nil {
		return nil, fmt.Errorf("load package %s: %w", in.PackageID, err)
	}
	if !pkg.IsActive {
		return nil, ErrPackageInactive
	}

	var coupon *pricing.Coupon
	if code := strings.TrimSpace(in.CouponCode); code != "" {
		c, check, err := s.checkCoupon(ctx, token, code, *pkg, in.MemberID, now)
		if err != nil {
			return nil, err
		}
		if !check.Valid {
			return nil, &CouponRejectedError{Reason: check.Reason}
		}
		coupon = c
	}

	price := pricing.CalculateRedemptionPrice(*pkg, coupon)
	req := backend.CreateRedemptionRequest{
		MemberID:       in.MemberID,
		PackageID:      pkg.ID,
		RedemptionType: price.RedemptionType,
		RedeemedAt:     now,
		RedeemedBy:     in.RedeemedBy,
		OriginalPrice:  price.OriginalPrice,
		DiscountAmount: price.DiscountAmount,
		FinalPrice:     price.FinalPrice,
		Status:         pricing.StatusActive,
		Notes:          in.Notes,
		Grant:          pricing.GrantFor(*pkg, coupon, now),
	}
	if coupon != nil {
		req.CouponID = &coupon.ID
	}

	created, err := s.backend.CreateRedemption(ctx, token, req)
	if err != nil {
		return nil, fmt.Errorf("create redemption: %w", err)
	}
	log.Infof("[Redemption] %s redeemed %s for member %s (%s, final %.2f)",
		in.RedeemedBy, pkg.Code, in.MemberID, price.RedemptionType, price.FinalPrice)

	result := &RedeemResult{Redemption: created}
	result.Receipt = s.issueReceipt(ctx, token, *org, *pkg, coupon, *created, in)
	return result, nil
}

func (s *Service) issueReceipt(ctx context.Context, token string, org backend.Organization, pkg pricing.Package, coupon *pricing.Coupon, red pricing.PackageRedemption, in RedeemInput) *models.Receipt {
	if s.receipts == nil {
		return nil
	}

	member := backend.Member{ID: red.MemberID}
	if m, err := s.backend.GetMember(ctx, token, red.MemberID); err != nil {
		log.Warnf("[Redemption] member %s for receipt: %v", red.MemberID, err)
	} else {
		member = *m
	}

	locale := in.Locale
	if locale == "" {
		locale = member.Language
	}
	if locale == "" {
		locale = org.Language
	}

	rec, err := s.receipts.Issue(ctx, receipt.IssueInput{
		Redemption:   red,
		Package:      pkg,
		Coupon:       coupon,
		Member:       member,
		Organization: org,
		Locale:       locale,
	})
	if err != nil {
		log.Errorf("[Redemption] receipt for %s failed: %v", red.ID, err)
	}
	return rec
}

// UpdateStatus moves an ACTIVE redemption to a terminal status.
func (s *Service) UpdateStatus(ctx context.Context, token, redemptionID string, next pricing.RedemptionStatus) (*pricing.PackageRedemption, error) {
	red, err := s.backend.GetRedemption(ctx, token, redemptionID)
	if err != nil {
		return nil, fmt.Errorf("load redemption %s: %w", redemptionID, err)
	}
	if !red.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, red.Status, next)
	}
	updated, err := s.backend.UpdateRedemptionStatus(ctx, token, redemptionID, next)
	if err != nil {
		return nil, fmt.Errorf("update redemption %s: %w", redemptionID, err)
	}
	log.Infof("[Redemption] %s moved from %s to %s", redemptionID, red.Status, next)
	return updated, nil
}

type AllAccessStatus struct {
	RedemptionID  string                   `json:"redemptionId"`
	Status        pricing.RedemptionStatus `json:"status"`
	ExpiresAt     *time.Time               `json:"expiresAt"`
	DaysRemaining int                      `json:"daysRemaining"`
	UsedToday     bool                     `json:"usedToday"`
	CanUseToday   bool                     `json:"canUseToday"`
}

// AllAccessStatus evaluates the pass on the studio's calendar day.
func (s *Service) AllAccessStatus(ctx context.Context, token, redemptionID string) (*AllAccessStatus, error) {
	now := s.clock()

	red, err := s.backend.GetRedemption(ctx, token, redemptionID)
	if err != nil {
		return nil, fmt.Errorf("load redemption %s: %w", redemptionID, err)
	}
	if red.AllAccessExpiresAt == nil {
		return nil, ErrNotAllAccess
	}
	usages, err := s.backend.ListDailyUsages(ctx, token, redemptionID)
	if err != nil {
		return nil, fmt.Errorf("load daily usages %s: %w", redemptionID, err)
	}
	if org, err := s.backend.GetOrganization(ctx, token); err == nil {
		now = now.In(org.Location())
	} else {
		log.Warnf("[Redemption] organization timezone unavailable, using %s: %v", now.Location(), err)
	}

	st := &AllAccessStatus{
		RedemptionID:  red.ID,
		Status:        red.Status,
		ExpiresAt:     red.AllAccessExpiresAt,
		DaysRemaining: daysUntil(now, *red.AllAccessExpiresAt),
		CanUseToday:   pricing.CanUseAllAccessToday(*red, usages, now),
	}
	today := pricing.DateOf(now)
	for _, u := range usages {
		if u.UsageDate == today && !u.WasNoShow {
			st.UsedToday = true
			break
		}
	}
	return st, nil
}

type FriendPassStatus struct {
	RedemptionID string     `json:"redemptionId"`
	Available    bool       `json:"available"`
	Used         bool       `json:"used"`
	UsedAt       *time.Time `json:"usedAt,omitempty"`
	BookingID    *string    `json:"bookingId,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	Valid        bool       `json:"valid"`
}

func (s *Service) FriendPassStatus(ctx context.Context, token, redemptionID string) (*FriendPassStatus, error) {
	now := s.clock()

	red, err := s.backend.GetRedemption(ctx, token, redemptionID)
	if err != nil {
		return nil, fmt.Errorf("load redemption %s: %w", redemptionID, err)
	}
	if !red.FriendPassAvailable {
		return nil, ErrNoFriendPass
	}
	return &FriendPassStatus{
		RedemptionID: red.ID,
		Available:    red.FriendPassAvailable,
		Used:         red.FriendPassUsed,
		UsedAt:       red.FriendPassUsedAt,
		BookingID:    red.FriendPassBookingID,
		ExpiresAt:    red.FriendPassExpiresAt,
		Valid:        pricing.IsFriendPassValid(*red, now),
	}, nil
}

// daysUntil counts whole calendar days left, with the current day included.
func daysUntil(now, until time.Time) int {
	if until.Before(now) {
		return 0
	}
	return int(math.Ceil(until.Sub(now).Hours() / 24))
}
