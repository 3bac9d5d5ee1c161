package pricing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateExpiration(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("TRT", 3*60*60)
	purchase := time.Date(2025, 1, 31, 9, 30, 0, 0, loc)

	got := CalculateAllAccessExpiration(purchase, 30)
	assert.Equal(t, time.Date(2025, 3, 2, 23, 59, 59, 999_000_000, loc), got)

	fp := CalculateFriendPassExpiration(purchase, 1)
	assert.Equal(t, time.Date(2025, 2, 1, 23, 59, 59, 999_000_000, loc), fp)
}

func TestCanUseAllAccessToday(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 5, 20, 15, 0, 0, 0, time.UTC)
	expires := now.Add(10 * 24 * time.Hour)
	active := PackageRedemption{ID: "r-1", Status: StatusActive, AllAccessExpiresAt: &expires}

	today := DateOf(now)
	yesterday := DateOf(now.AddDate(0, 0, -1))

	t.Run("no usages", func(t *testing.T) {
		t.Parallel()
		assert.True(t, CanUseAllAccessToday(active, nil, now))
	})

	t.Run("used today", func(t *testing.T) {
		t.Parallel()
		usages := []AllAccessDailyUsage{{PackageRedemptionID: "r-1", UsageDate: today}}
		assert.False(t, CanUseAllAccessToday(active, usages, now))
		assert.True(t, CanUseAllAccessToday(active, usages, now.AddDate(0, 0, 1)))
	})

	t.Run("no-show today does not count", func(t *testing.T) {
		t.Parallel()
		usages := []AllAccessDailyUsage{{UsageDate: today, WasNoShow: true}, {UsageDate: yesterday}}
		assert.True(t, CanUseAllAccessToday(active, usages, now))
	})

	t.Run("not active", func(t *testing.T) {
		t.Parallel()
		r := active
		r.Status = StatusCancelled
		assert.False(t, CanUseAllAccessToday(r, nil, now))
	})

	t.Run("no expiry", func(t *testing.T) {
		t.Parallel()
		r := active
		r.AllAccessExpiresAt = nil
		assert.False(t, CanUseAllAccessToday(r, nil, now))
	})

	t.Run("expired before today", func(t *testing.T) {
		t.Parallel()
		r := active
		past := time.Date(2025, 5, 19, 23, 59, 59, 0, time.UTC)
		r.AllAccessExpiresAt = &past
		assert.False(t, CanUseAllAccessToday(r, nil, now))
	})

	t.Run("expiring later today still usable", func(t *testing.T) {
		t.Parallel()
		r := active
		earlier := time.Date(2025, 5, 20, 1, 0, 0, 0, time.UTC)
		r.AllAccessExpiresAt = &earlier
		assert.True(t, CanUseAllAccessToday(r, nil, now))
	})
}

func TestIsFriendPassValid(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 5, 20, 15, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name string
		r    PackageRedemption
		want bool
	}{
		{name: "available", r: PackageRedemption{FriendPassAvailable: true, FriendPassExpiresAt: &future}, want: true},
		{name: "expires exactly now", r: PackageRedemption{FriendPassAvailable: true, FriendPassExpiresAt: &now}, want: true},
		{name: "used", r: PackageRedemption{FriendPassAvailable: true, FriendPassUsed: true, FriendPassExpiresAt: &future}},
		{name: "expired", r: PackageRedemption{FriendPassAvailable: true, FriendPassExpiresAt: &past}},
		{name: "not available", r: PackageRedemption{FriendPassExpiresAt: &future}},
		{name: "no expiry", r: PackageRedemption{FriendPassAvailable: true}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, IsFriendPassValid(tc.r, now))
		})
	}
}

func TestHasFriendPassBenefit(t *testing.T) {
	t.Parallel()

	assert.True(t, HasFriendPassBenefit(Package{Type: PackageElite30, Benefits: []string{"x", BenefitFriendPass}}))
	assert.False(t, HasFriendPassBenefit(Package{Type: PackageElite30}))
	assert.False(t, HasFriendPassBenefit(Package{Type: PackageCreditPack, Benefits: []string{BenefitFriendPass}}))
}

func TestGrantFor(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("credit pack with bonus coupon", func(t *testing.T) {
		t.Parallel()
		g := GrantFor(
			Package{Type: PackageCreditPack, Credits: intPtr(10)},
			&Coupon{CouponType: CouponCreditBonus, BonusCredits: intPtr(2)},
			now,
		)
		assert.Equal(t, 12, g.CreditsAdded)
		assert.Nil(t, g.AllAccessExpiresAt)
		assert.False(t, g.FriendPassAvailable)
	})

	t.Run("all access", func(t *testing.T) {
		t.Parallel()
		g := GrantFor(Package{Type: PackageAllAccess}, nil, now)
		assert.Zero(t, g.CreditsAdded)
		require.NotNil(t, g.AllAccessDays)
		assert.Equal(t, DefaultAllAccessDays, *g.AllAccessDays)
		require.NotNil(t, g.AllAccessExpiresAt)
		assert.Equal(t, time.Date(2025, 7, 1, 23, 59, 59, 999_000_000, time.UTC), *g.AllAccessExpiresAt)
	})

	t.Run("elite with friend pass", func(t *testing.T) {
		t.Parallel()
		g := GrantFor(Package{Type: PackageElite30, Credits: intPtr(30), Benefits: []string{BenefitFriendPass}}, nil, now)
		assert.Equal(t, 30, g.CreditsAdded)
		assert.True(t, g.FriendPassAvailable)
		require.NotNil(t, g.FriendPassExpiresAt)
		assert.True(t, g.FriendPassExpiresAt.After(now))
	})
}

func TestRedemptionStatusTransitions(t *testing.T) {
	t.Parallel()

	for _, next := range []RedemptionStatus{StatusExpired, StatusCancelled, StatusUsed} {
		assert.True(t, StatusActive.CanTransitionTo(next), next)
		assert.False(t, next.CanTransitionTo(StatusActive), next)
		assert.False(t, next.CanTransitionTo(StatusUsed), next)
	}
	assert.False(t, StatusActive.CanTransitionTo(StatusActive))
}

func TestDateJSON(t *testing.T) {
	t.Parallel()

	var u AllAccessDailyUsage
	require.NoError(t, json.Unmarshal([]byte(`{"usageDate":"2025-05-20T00:00:00.000Z"}`), &u))
	assert.Equal(t, Date{Year: 2025, Month: time.May, Day: 20}, u.UsageDate)

	require.NoError(t, json.Unmarshal([]byte(`{"usageDate":"2025-05-21"}`), &u))
	assert.Equal(t, "2025-05-21", u.UsageDate.String())

	b, err := json.Marshal(u.UsageDate)
	require.NoError(t, err)
	assert.JSONEq(t, `"2025-05-21"`, string(b))

	assert.Error(t, json.Unmarshal([]byte(`{"usageDate":"20-05"}`), &u))
}
