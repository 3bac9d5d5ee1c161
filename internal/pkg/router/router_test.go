package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devrantukan/spinning-tenant-be-sub001/app/models"
	"github.com/devrantukan/spinning-tenant-be-sub001/app/repository"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/backend"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/identity"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/pricing"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/redemption"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/session"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/storage"
)

type stubIdentity struct{}

var stubUsers = map[string]identity.User{
	"admin-token":      {ID: "u-1", Email: "owner@spin8.test", Role: identity.RoleOwner, OrganizationID: "org-1"},
	"instructor-token": {ID: "u-2", Email: "coach@spin8.test", Role: identity.RoleInstructor, OrganizationID: "org-1"},
	"member-token":     {ID: "u-3", Email: "rider@spin8.test", Role: identity.RoleMember, OrganizationID: "org-1"},
	"foreign-token":    {ID: "u-4", Email: "other@gym.test", Role: identity.RoleAdmin, OrganizationID: "org-2"},
}

func (stubIdentity) ValidateToken(_ context.Context, token string) (*identity.User, error) {
	u, ok := stubUsers[token]
	if !ok {
		return nil, identity.ErrInvalidToken
	}
	return &u, nil
}

func (stubIdentity) RefreshSession(context.Context, string) (*identity.Session, error) {
	return nil, identity.ErrInvalidToken
}

func (stubIdentity) SendPasswordRecovery(context.Context, string, string) error { return nil }

func (stubIdentity) UpdatePassword(context.Context, string, string) (*identity.User, error) {
	return nil, identity.ErrInvalidToken
}

func (stubIdentity) Redeem(context.Context, identity.InviteToken, string) (*identity.Session, error) {
	return nil, identity.ErrInvalidToken
}

func (stubIdentity) InvalidateToken(context.Context, string) {}

type stubBackend struct {
	forwarded []string
}

func (b *stubBackend) GetOrganization(context.Context, string) (*backend.Organization, error) {
	return &backend.Organization{ID: "org-1", CreditPrice: 100, Currency: "TRY"}, nil
}

func (b *stubBackend) RefreshOrganization(ctx context.Context) (*backend.Organization, error) {
	return b.GetOrganization(ctx, "")
}

func (b *stubBackend) ListPackages(context.Context, string, url.Values) ([]pricing.Package, error) {
	return []pricing.Package{{ID: "p-1", Name: "Tek Sürüş", Type: pricing.PackageSingleRide, Price: 120}}, nil
}

func (b *stubBackend) GetPackage(context.Context, string, string) (*pricing.Package, error) {
	return &pricing.Package{ID: "p-1", Name: "Tek Sürüş", Type: pricing.PackageSingleRide, Price: 120}, nil
}

func (b *stubBackend) GetCoupon(_ context.Context, _ string, id string) (*pricing.Coupon, error) {
	return &pricing.Coupon{ID: id, Code: "YAZ10", CouponType: pricing.CouponDiscount}, nil
}

func (b *stubBackend) Forward(_ context.Context, _, method, path string, _ url.Values, _ []byte) (*backend.Response, error) {
	b.forwarded = append(b.forwarded, method+" "+path)
	return &backend.Response{Status: http.StatusOK, Body: json.RawMessage(`[]`)}, nil
}

type stubFlows struct{}

func (stubFlows) Quote(context.Context, string, redemption.QuoteInput) (*redemption.Quote, error) {
	return &redemption.Quote{Currency: "TRY"}, nil
}

func (stubFlows) Redeem(context.Context, string, redemption.RedeemInput) (*redemption.RedeemResult, error) {
	return &redemption.RedeemResult{Redemption: &pricing.PackageRedemption{ID: "r-1"}}, nil
}

func (stubFlows) AllAccessStatus(context.Context, string, string) (*redemption.AllAccessStatus, error) {
	return nil, redemption.ErrNotAllAccess
}

func (stubFlows) FriendPassStatus(context.Context, string, string) (*redemption.FriendPassStatus, error) {
	return nil, redemption.ErrNoFriendPass
}

func (stubFlows) CheckCoupon(context.Context, string, string, string, string) (pricing.CouponCheck, error) {
	return pricing.CouponCheck{Valid: false, Reason: pricing.ReasonNotFound}, nil
}

func (stubFlows) UpdateStatus(_ context.Context, _ string, id string, next pricing.RedemptionStatus) (*pricing.PackageRedemption, error) {
	return &pricing.PackageRedemption{ID: id, Status: next}, nil
}

type stubReceipts struct{}

func (stubReceipts) Get(string) (*models.Receipt, error) { return nil, repository.ErrNotFound }
func (stubReceipts) List(string, int, int) ([]models.Receipt, int64, error) { return nil, 0, nil }
func (stubReceipts) ListByRedemption(string) ([]models.Receipt, error) { return nil, nil }
func (stubReceipts) Resend(context.Context, string) (*models.Receipt, error) {
	return nil, repository.ErrNotFound
}

func newTestApp(t *testing.T, mutate func(*Deps)) (*fiber.App, *stubBackend) {
	t.Helper()
	t.Setenv("OIDC_CLIENT_ID", "")
	t.Setenv("OIDC_DISCOVERY_URL", "")

	session.SetSessionStore(fibersession.New())
	t.Cleanup(func() { session.SetSessionStore(nil) })

	b := &stubBackend{}
	deps := Deps{
		Identity:        stubIdentity{},
		Backend:         b,
		Redemptions:     stubFlows{},
		Receipts:        stubReceipts{},
		Storage:         storage.None{},
		OrganizationID:  "org-1",
		ServiceAPIKey:   "svc-key",
		MetricsUser:     "ops",
		MetricsPassword: "secret",
		RateLimit:       1000,
	}
	if mutate != nil {
		mutate(&deps)
	}

	app := fiber.New()
	InstallRouter(app, deps)
	return app, b
}

func call(t *testing.T, app *fiber.App, method, target, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestRoleGating(t *testing.T) {
	app, b := newTestApp(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"anonymous", http.MethodGet, "/api/classes", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/classes", "nope", http.StatusUnauthorized},
		{"member", http.MethodGet, "/api/classes", "member-token", http.StatusForbidden},
		{"other organization", http.MethodGet, "/api/classes", "foreign-token", http.StatusForbidden},
		{"instructor reads classes", http.MethodGet, "/api/classes", "instructor-token", http.StatusOK},
		{"instructor reads member", http.MethodGet, "/api/members/m-1", "instructor-token", http.StatusOK},
		{"instructor writes class", http.MethodDelete, "/api/classes/c-1", "instructor-token", http.StatusForbidden},
		{"instructor lists users", http.MethodGet, "/api/users", "instructor-token", http.StatusForbidden},
		{"instructor lists coupons", http.MethodGet, "/api/coupons", "instructor-token", http.StatusForbidden},
		{"instructor reads coupon", http.MethodGet, "/api/coupons/c-1", "instructor-token", http.StatusForbidden},
		{"admin reads coupon", http.MethodGet, "/api/coupons/c-1", "admin-token", http.StatusOK},
		{"admin deletes class", http.MethodDelete, "/api/classes/c-1", "admin-token", http.StatusOK},
		{"admin lists instructors", http.MethodGet, "/api/instructors", "admin-token", http.StatusOK},
		{"instructor packages", http.MethodGet, "/api/packages", "instructor-token", http.StatusOK},
		{"instructor creates package", http.MethodPost, "/api/packages", "instructor-token", http.StatusForbidden},
		{"instructor redeems", http.MethodPost, "/api/redemptions", "instructor-token", http.StatusForbidden},
		{"instructor closes redemption", http.MethodPatch, "/api/redemptions/r-1/status", "instructor-token", http.StatusForbidden},
		{"not all access", http.MethodGet, "/api/redemptions/r-1/all-access", "instructor-token", http.StatusUnprocessableEntity},
		{"missing receipt", http.MethodGet, "/api/receipts/rc-1", "admin-token", http.StatusNotFound},
		{"instructor uploads", http.MethodPost, "/api/uploads/photo?kind=member", "instructor-token", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := call(t, app, tt.method, tt.path, tt.token)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	deletes := 0
	for _, f := range b.forwarded {
		if f == "DELETE /api/classes/c-1" {
			deletes++
		}
	}
	assert.Equal(t, 1, deletes)
}

func TestMeReturnsOrganization(t *testing.T) {
	app, _ := newTestApp(t, nil)

	resp := call(t, app, http.MethodGet, "/api/me", "instructor-token")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		User struct {
			Email        string `json:"email"`
			IsInstructor bool   `json:"isInstructor"`
		} `json:"user"`
		Organization backend.Organization `json:"organization"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "coach@spin8.test", body.User.Email)
	assert.Equal(t, "org-1", body.Organization.ID)
}

func TestPublicAndOperatorRoutes(t *testing.T) {
	app, _ := newTestApp(t, nil)

	assert.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/healthz", "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, call(t, app, http.MethodPost, "/internal/organization/refresh", "").StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/internal/organization/refresh", nil)
	req.Header.Set("X-API-Key", "svc-key")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, http.StatusUnauthorized, call(t, app, http.MethodGet, "/metrics", "").StatusCode)
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("ops", "secret")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, app, http.MethodPost, "/api/auth/refresh", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsDisabledWithoutCredentials(t *testing.T) {
	app, _ := newTestApp(t, func(d *Deps) { d.MetricsUser = "" })
	assert.Equal(t, http.StatusNotFound, call(t, app, http.MethodGet, "/metrics", "").StatusCode)
}

func TestRateLimit(t *testing.T) {
	app, _ := newTestApp(t, func(d *Deps) { d.RateLimit = 2 })

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/api/packages", "admin-token").StatusCode)
	}
	assert.Equal(t, http.StatusTooManyRequests, call(t, app, http.MethodGet, "/api/packages", "admin-token").StatusCode)
}
