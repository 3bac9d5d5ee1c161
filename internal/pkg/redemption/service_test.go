package redemption

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devrantukan/spinning-tenant-be-sub001/app/models"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/backend"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/pricing"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/receipt"
)

type fakeBackend struct {
	org         backend.Organization
	packages    map[string]pricing.Package
	coupons     map[string]pricing.Coupon
	redemptions []pricing.PackageRedemption
	usages      map[string][]pricing.AllAccessDailyUsage
	members     map[string]backend.Member
	created     []backend.CreateRedemptionRequest
	statuses    map[string]pricing.RedemptionStatus
	createErr   error
}

func notFound() error { return &backend.APIError{Status: http.StatusNotFound, Message: "not found"} }

func (f *fakeBackend) GetOrganization(context.Context, string) (*backend.Organization, error) {
	org := f.org
	return &org, nil
}

func (f *fakeBackend) GetPackage(_ context.Context, _ string, id string) (*pricing.Package, error) {
	p, ok := f.packages[id]
	if !ok {
		return nil, notFound()
	}
	return &p, nil
}

func (f *fakeBackend) GetCouponByCode(_ context.Context, _ string, code string) (*pricing.Coupon, error) {
	c, ok := f.coupons[code]
	if !ok {
		return nil, notFound()
	}
	return &c, nil
}

func (f *fakeBackend) GetRedemption(_ context.Context, _ string, id string) (*pricing.PackageRedemption, error) {
	for _, r := range f.redemptions {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, notFound()
}

func (f *fakeBackend) ListRedemptions(_ context.Context, _ string, filter backend.RedemptionFilter) ([]pricing.PackageRedemption, error) {
	var out []pricing.PackageRedemption
	for _, r := range f.redemptions {
		if filter.CouponID != "" && (r.CouponID == nil || *r.CouponID != filter.CouponID) {
			continue
		}
		if filter.MemberID != "" && r.MemberID != filter.MemberID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeBackend) ListDailyUsages(_ context.Context, _ string, id string) ([]pricing.AllAccessDailyUsage, error) {
	return f.usages[id], nil
}

func (f *fakeBackend) CreateRedemption(_ context.Context, _ string, req backend.CreateRedemptionRequest) (*pricing.PackageRedemption, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	pkgID := req.PackageID
	return &pricing.PackageRedemption{
		ID:                  "red-new",
		MemberID:            req.MemberID,
		PackageID:           &pkgID,
		CouponID:            req.CouponID,
		RedemptionType:      req.RedemptionType,
		RedeemedAt:          req.RedeemedAt,
		OriginalPrice:       req.OriginalPrice,
		DiscountAmount:      req.DiscountAmount,
		FinalPrice:          req.FinalPrice,
		CreditsAdded:        req.CreditsAdded,
		AllAccessExpiresAt:  req.AllAccessExpiresAt,
		AllAccessDays:       req.AllAccessDays,
		FriendPassAvailable: req.FriendPassAvailable,
		FriendPassExpiresAt: req.FriendPassExpiresAt,
		Status:              req.Status,
	}, nil
}

func (f *fakeBackend) UpdateRedemptionStatus(_ context.Context, _ string, id string, status pricing.RedemptionStatus) (*pricing.PackageRedemption, error) {
	if f.statuses == nil {
		f.statuses = map[string]pricing.RedemptionStatus{}
	}
	f.statuses[id] = status
	return &pricing.PackageRedemption{ID: id, Status: status}, nil
}

func (f *fakeBackend) GetMember(_ context.Context, _ string, id string) (*backend.Member, error) {
	m, ok := f.members[id]
	if !ok {
		return nil, notFound()
	}
	return &m, nil
}

type fakeIssuer struct {
	inputs []receipt.IssueInput
	err    error
}

func (f *fakeIssuer) Issue(_ context.Context, in receipt.IssueInput) (*models.Receipt, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Receipt{ID: "rcpt-1", RedemptionID: in.Redemption.ID}, nil
}

var testNow = time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string { return &v }
func timePtr(v time.Time) *time.Time { return &v }

func newFixture() *fakeBackend {
	percent := pricing.DiscountPercentage
	return &fakeBackend{
		org: backend.Organization{ID: "org-1", Name: "Spin8", CreditPrice: 100, Currency: "TRY", Language: "tr"},
		packages: map[string]pricing.Package{
			"p-10":  {ID: "p-10", Code: "ten-pack", Name: "10 Ride", Type: pricing.PackageCreditPack, Price: 900, Credits: intPtr(10), IsActive: true},
			"p-aa":  {ID: "p-aa", Code: "all-access", Name: "All Access", Type: pricing.PackageAllAccess, Price: 3000, IsActive: true},
			"p-off": {ID: "p-off", Code: "retired", Name: "Retired", Type: pricing.PackageSingleRide, Price: 150, Credits: intPtr(1)},
		},
		coupons: map[string]pricing.Coupon{
			"YAZ10": {ID: "c-1", Code: "YAZ10", CouponType: pricing.CouponDiscount, DiscountType: &percent, DiscountValue: floatPtr(10), IsActive: true},
			"OLD":   {ID: "c-2", Code: "OLD", CouponType: pricing.CouponDiscount, DiscountType: &percent, DiscountValue: floatPtr(10), IsActive: false},
			"BONUS": {ID: "c-3", Code: "BONUS", CouponType: pricing.CouponCreditBonus, BonusCredits: intPtr(2), IsActive: true, MaxRedemptions: intPtr(1)},
		},
		usages:  map[string][]pricing.AllAccessDailyUsage{},
		members: map[string]backend.Member{"m-1": {ID: "m-1", Email: "ayse@example.com", FirstName: "Ayşe", Language: "en"}},
	}
}

func newTestService(b *fakeBackend, issuer ReceiptIssuer) *Service {
	return NewService(b, issuer, func() time.Time { return testNow })
}

func TestQuoteWithoutCoupon(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFixture(), nil)
	q, err := svc.Quote(context.Background(), "tok", QuoteInput{PackageID: "p-10"})
	require.NoError(t, err)

	require.NotNil(t, q.Pricing)
	assert.Equal(t, 1000.0, q.Pricing.BasePrice)
	assert.Equal(t, 100.0, q.Pricing.DiscountAmount)
	assert.Equal(t, pricing.RedemptionPackageDirect, q.Price.RedemptionType)
	assert.Equal(t, 900.0, q.Price.FinalPrice)
	assert.Equal(t, 10, q.Grant.CreditsAdded)
	assert.Nil(t, q.CouponCheck)
	assert.Equal(t, "TRY", q.Currency)
	assert.NotEmpty(t, q.Display.Savings)
}

func TestQuoteWithCoupon(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFixture(), nil)
	q, err := svc.Quote(context.Background(), "tok", QuoteInput{PackageID: "p-10", CouponCode: " YAZ10 ", MemberID: "m-1"})
	require.NoError(t, err)

	require.NotNil(t, q.CouponCheck)
	assert.True(t, q.CouponCheck.Valid)
	assert.Equal(t, pricing.RedemptionCouponDiscount, q.Price.RedemptionType)
	assert.InDelta(t, 810.0, q.Price.FinalPrice, 0.0001)
}

func TestQuoteRejectedCouponIsNotApplied(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFixture(), nil)
	for code, reason := range map[string]string{
		"OLD":     pricing.ReasonNotActive,
		"MISSING": pricing.ReasonNotFound,
	} {
		q, err := svc.Quote(context.Background(), "tok", QuoteInput{PackageID: "p-10", CouponCode: code})
		require.NoError(t, err)
		require.NotNil(t, q.CouponCheck)
		assert.False(t, q.CouponCheck.Valid)
		assert.Equal(t, reason, q.CouponCheck.Reason)
		assert.Equal(t, pricing.RedemptionPackageDirect, q.Price.RedemptionType)
	}
}

func TestQuoteUnknownPackage(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFixture(), nil)
	_, err := svc.Quote(context.Background(), "tok", QuoteInput{PackageID: "nope"})
	assert.True(t, backend.IsNotFound(err))
}

func TestCheckCouponLimits(t *testing.T) {
	t.Parallel()

	b := newFixture()
	b.redemptions = []pricing.PackageRedemption{
		{ID: "r-1", MemberID: "m-2", CouponID: strPtr("c-3"), Status: pricing.StatusActive},
		{ID: "r-2", MemberID: "m-1", CouponID: strPtr("c-1"), Status: pricing.StatusCancelled},
	}
	svc := newTestService(b, nil)

	check, err := svc.CheckCoupon(context.Background(), "tok", "BONUS", "p-10", "m-1")
	require.NoError(t, err)
	assert.Equal(t, pricing.CouponCheck{Valid: false, Reason: pricing.ReasonLimitReached}, check)

	// cancelled redemptions do not count towards the member limit
	check, err = svc.CheckCoupon(context.Background(), "tok", "YAZ10", "p-10", "m-1")
	require.NoError(t, err)
	assert.True(t, check.Valid)

	b.redemptions = append(b.redemptions, pricing.PackageRedemption{ID: "r-3", MemberID: "m-1", CouponID: strPtr("c-1"), Status: pricing.StatusUsed})
	check, err = svc.CheckCoupon(context.Background(), "tok", "YAZ10", "p-10", "m-1")
	require.NoError(t, err)
	assert.Equal(t, pricing.ReasonMemberLimit, check.Reason)
}

func TestRedeemWithCouponIssuesReceipt(t *testing.T) {
	t.Parallel()

	b := newFixture()
	issuer := &fakeIssuer{}
	svc := newTestService(b, issuer)

	res, err := svc.Redeem(context.Background(), "tok", RedeemInput{MemberID: "m-1", PackageID: "p-10", CouponCode: "YAZ10", RedeemedBy: "admin-1"})
	require.NoError(t, err)

	require.Len(t, b.created, 1)
	req := b.created[0]
	assert.Equal(t, pricing.RedemptionCouponDiscount, req.RedemptionType)
	assert.Equal(t, "c-1", *req.CouponID)
	assert.Equal(t, 900.0, req.OriginalPrice)
	assert.InDelta(t, 90.0, req.DiscountAmount, 0.0001)
	assert.Equal(t, pricing.StatusActive, req.Status)
	assert.Equal(t, testNow, req.RedeemedAt)
	assert.Equal(t, 10, req.CreditsAdded)

	require.NotNil(t, res.Receipt)
	assert.Equal(t, "rcpt-1", res.Receipt.ID)
	require.Len(t, issuer.inputs, 1)
	assert.Equal(t, "en", issuer.inputs[0].Locale)
	assert.Equal(t, "ayse@example.com", issuer.inputs[0].Member.Email)
}

func TestRedeemAllAccessGrant(t *testing.T) {
	t.Parallel()

	b := newFixture()
	svc := newTestService(b, nil)

	res, err := svc.Redeem(context.Background(), "tok", RedeemInput{MemberID: "m-9", PackageID: "p-aa"})
	require.NoError(t, err)
	assert.Nil(t, res.Receipt)

	req := b.created[0]
	assert.Equal(t, 0, req.CreditsAdded)
	require.NotNil(t, req.AllAccessExpiresAt)
	assert.Equal(t, time.Date(2025, 6, 19, 23, 59, 59, 999_000_000, time.UTC), *req.AllAccessExpiresAt)
	assert.Equal(t, 30, *req.AllAccessDays)
}

func TestRedeemRejections(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFixture(), nil)

	_, err := svc.Redeem(context.Background(), "tok", RedeemInput{MemberID: "m-1", PackageID: "p-10", CouponCode: "OLD"})
	var rejected *CouponRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, pricing.ReasonNotActive, rejected.Reason)
	assert.True(t, IsCouponRejected(err))

	_, err = svc.Redeem(context.Background(), "tok", RedeemInput{MemberID: "m-1", PackageID: "p-off"})
	assert.ErrorIs(t, err, ErrPackageInactive)
}

func TestRedeemReceiptFailureDoesNotFail(t *testing.T) {
	t.Parallel()

	b := newFixture()
	svc := newTestService(b, &fakeIssuer{err: errors.New("smtp down")})

	res, err := svc.Redeem(context.Background(), "tok", RedeemInput{MemberID: "m-unknown", PackageID: "p-10"})
	require.NoError(t, err)
	assert.Equal(t, "red-new", res.Redemption.ID)
	assert.Nil(t, res.Receipt)
}

func TestRedeemBackendFailure(t *testing.T) {
	t.Parallel()

	b := newFixture()
	b.createErr = &backend.APIError{Status: http.StatusBadRequest, Message: "member not found"}
	issuer := &fakeIssuer{}
	svc := newTestService(b, issuer)

	_, err := svc.Redeem(context.Background(), "tok", RedeemInput{MemberID: "m-1", PackageID: "p-10"})
	assert.Equal(t, http.StatusBadRequest, backend.StatusOf(err))
	assert.Empty(t, issuer.inputs)
}

func TestAllAccessStatus(t *testing.T) {
	t.Parallel()

	b := newFixture()
	b.redemptions = []pricing.PackageRedemption{
		{ID: "aa-1", Status: pricing.StatusActive, AllAccessExpiresAt: timePtr(time.Date(2025, 5, 22, 23, 59, 59, 0, time.UTC))},
		{ID: "cp-1", Status: pricing.StatusActive, CreditsAdded: 10},
	}
	b.usages["aa-1"] = []pricing.AllAccessDailyUsage{
		{ID: "u-1", UsageDate: pricing.Date{Year: 2025, Month: time.May, Day: 20}, WasNoShow: true},
	}
	svc := newTestService(b, nil)

	st, err := svc.AllAccessStatus(context.Background(), "tok", "aa-1")
	require.NoError(t, err)
	assert.True(t, st.CanUseToday)
	assert.False(t, st.UsedToday)
	assert.Equal(t, 3, st.DaysRemaining)

	b.usages["aa-1"] = append(b.usages["aa-1"], pricing.AllAccessDailyUsage{ID: "u-2", UsageDate: pricing.Date{Year: 2025, Month: time.May, Day: 20}})
	st, err = svc.AllAccessStatus(context.Background(), "tok", "aa-1")
	require.NoError(t, err)
	assert.False(t, st.CanUseToday)
	assert.True(t, st.UsedToday)

	_, err = svc.AllAccessStatus(context.Background(), "tok", "cp-1")
	assert.ErrorIs(t, err, ErrNotAllAccess)
}

func TestFriendPassStatus(t *testing.T) {
	t.Parallel()

	b := newFixture()
	b.redemptions = []pricing.PackageRedemption{
		{ID: "fp-1", FriendPassAvailable: true, FriendPassExpiresAt: timePtr(testNow.Add(24 * time.Hour))},
		{ID: "fp-2", FriendPassAvailable: true, FriendPassUsed: true, FriendPassExpiresAt: timePtr(testNow.Add(24 * time.Hour))},
		{ID: "cp-1"},
	}
	svc := newTestService(b, nil)

	st, err := svc.FriendPassStatus(context.Background(), "tok", "fp-1")
	require.NoError(t, err)
	assert.True(t, st.Valid)

	st, err = svc.FriendPassStatus(context.Background(), "tok", "fp-2")
	require.NoError(t, err)
	assert.False(t, st.Valid)
	assert.True(t, st.Used)

	_, err = svc.FriendPassStatus(context.Background(), "tok", "cp-1")
	assert.ErrorIs(t, err, ErrNoFriendPass)
}

func TestAllAccessExpiresOnStudioCalendar(t *testing.T) {
	t.Parallel()

	b := newFixture()
	b.org.Timezone = "Europe/Istanbul"
	istanbul, err := time.LoadLocation("Europe/Istanbul")
	require.NoError(t, err)

	clock := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	svc := NewService(b, nil, func() time.Time { return clock })

	q, err := svc.Quote(context.Background(), "tok", QuoteInput{PackageID: "p-aa"})
	require.NoError(t, err)
	want := time.Date(2025, 7, 1, 23, 59, 59, 999_000_000, istanbul)
	require.NotNil(t, q.Grant.AllAccessExpiresAt)
	assert.True(t, want.Equal(*q.Grant.AllAccessExpiresAt), "quote expiry %s", q.Grant.AllAccessExpiresAt)

	res, err := svc.Redeem(context.Background(), "tok", RedeemInput{MemberID: "m-9", PackageID: "p-aa"})
	require.NoError(t, err)
	require.NotNil(t, res.Redemption.AllAccessExpiresAt)
	assert.True(t, want.Equal(*res.Redemption.AllAccessExpiresAt), "redeem expiry %s", res.Redemption.AllAccessExpiresAt)
	b.redemptions = append(b.redemptions, *res.Redemption)

	// day 30, 23:00 in Istanbul
	clock = time.Date(2025, 7, 1, 20, 0, 0, 0, time.UTC)
	st, err := svc.AllAccessStatus(context.Background(), "tok", "red-new")
	require.NoError(t, err)
	assert.True(t, st.CanUseToday)

	// day 31, 01:00 in Istanbul
	clock = time.Date(2025, 7, 1, 22, 0, 0, 0, time.UTC)
	st, err = svc.AllAccessStatus(context.Background(), "tok", "red-new")
	require.NoError(t, err)
	assert.False(t, st.CanUseToday)
}

func TestUpdateStatus(t *testing.T) {
	t.Parallel()

	b := newFixture()
	b.redemptions = []pricing.PackageRedemption{
		{ID: "r-active", Status: pricing.StatusActive},
		{ID: "r-used", Status: pricing.StatusUsed},
	}
	svc := newTestService(b, nil)

	red, err := svc.UpdateStatus(context.Background(), "tok", "r-active", pricing.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, pricing.StatusCancelled, red.Status)
	assert.Equal(t, pricing.StatusCancelled, b.statuses["r-active"])

	_, err = svc.UpdateStatus(context.Background(), "tok", "r-used", pricing.StatusActive)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.UpdateStatus(context.Background(), "tok", "r-active", pricing.StatusActive)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Len(t, b.statuses, 1)

	_, err = svc.UpdateStatus(context.Background(), "tok", "missing", pricing.StatusExpired)
	assert.True(t, backend.IsNotFound(err))
}
