package backend

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/pricing"
)

// Organization is the tenant record; CreditPrice is the nominal price of one
// credit used as the pricing baseline.
type Organization struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Email       string  `json:"email,omitempty"`
	CreditPrice float64 `json:"creditPrice"`
	Currency    string  `json:"currency"`
	Language    string  `json:"language,omitempty"`
	Timezone    string  `json:"timezone,omitempty"`
}

// Location resolves the organization timezone, falling back to UTC.
func (o Organization) Location() *time.Location {
	if o.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(o.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type Member struct {
	ID            string `json:"id"`
	UserID        string `json:"userId,omitempty"`
	Email         string `json:"email"`
	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	Phone         string `json:"phone,omitempty"`
	CreditBalance int    `json:"creditBalance"`
	Language      string `json:"language,omitempty"`
}

func (m Member) DisplayName() string {
	name := strings.TrimSpace(m.FirstName + " " + m.LastName)
	if name == "" {
		return m.Email
	}
	return name
}

// RedemptionFilter narrows ListRedemptions; empty fields are not sent.
type RedemptionFilter struct {
	MemberID  string
	CouponID  string
	PackageID string
	Status    pricing.RedemptionStatus
}

func (f RedemptionFilter) values() url.Values {
	q := url.Values{}
	if f.MemberID != "" {
		q.Set("memberId", f.MemberID)
	}
	if f.CouponID != "" {
		q.Set("couponId", f.CouponID)
	}
	if f.PackageID != "" {
		q.Set("packageId", f.PackageID)
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	return q
}

// CreateRedemptionRequest is the body posted to create a redemption.
type CreateRedemptionRequest struct {
	MemberID       string                   `json:"memberId"`
	PackageID      string                   `json:"packageId"`
	CouponID       *string                  `json:"couponId,omitempty"`
	RedemptionType pricing.RedemptionType   `json:"redemptionType"`
	RedeemedAt     time.Time                `json:"redeemedAt"`
	RedeemedBy     string                   `json:"redeemedBy,omitempty"`
	OriginalPrice  float64                  `json:"originalPrice"`
	DiscountAmount float64                  `json:"discountAmount"`
	FinalPrice     float64                  `json:"finalPrice"`
	Status         pricing.RedemptionStatus `json:"status"`
	Notes          string                   `json:"notes,omitempty"`
	pricing.Grant
}

func (c *Client) orgCacheKey() string {
	return "org:" + c.OrganizationID
}

// GetOrganization returns the tenant organization, from cache when possible.
func (c *Client) GetOrganization(ctx context.Context, token string) (*Organization, error) {
	var org Organization
	if found, err := c.Cache.GetJSON(ctx, c.orgCacheKey(), &org); err != nil {
		log.Warnf("[Backend] organization cache read failed: %v", err)
	} else if found {
		return &org, nil
	}
	return c.fetchOrganization(ctx, token)
}

// RefreshOrganization reloads the organization with the service token and
// replaces the cached copy.
func (c *Client) RefreshOrganization(ctx context.Context) (*Organization, error) {
	return c.fetchOrganization(ctx, c.ServiceToken)
}

func (c *Client) fetchOrganization(ctx context.Context, token string) (*Organization, error) {
	var org Organization
	if err := c.call(ctx, token, http.MethodGet, "/api/organizations/"+url.PathEscape(c.OrganizationID), nil, nil, &org); err != nil {
		return nil, err
	}
	if err := c.Cache.SetJSON(ctx, c.orgCacheKey(), org, c.OrgCacheTTL); err != nil {
		log.Warnf("[Backend] organization cache write failed: %v", err)
	}
	return &org, nil
}

func (c *Client) ListPackages(ctx context.Context, token string, query url.Values) ([]pricing.Package, error) {
	var out []pricing.Package
	if err := c.call(ctx, token, http.MethodGet, "/api/packages", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetPackage(ctx context.Context, token, id string) (*pricing.Package, error) {
	var out pricing.Package
	if err := c.call(ctx, token, http.MethodGet, "/api/packages/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCoupon(ctx context.Context, token, id string) (*pricing.Coupon, error) {
	var out pricing.Coupon
	if err := c.call(ctx, token, http.MethodGet, "/api/coupons/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCouponByCode looks a coupon up by its code, case-insensitively.
func (c *Client) GetCouponByCode(ctx context.Context, token, code string) (*pricing.Coupon, error) {
	code = strings.TrimSpace(code)
	var out []pricing.Coupon
	if err := c.call(ctx, token, http.MethodGet, "/api/coupons", url.Values{"code": {code}}, nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if strings.EqualFold(out[i].Code, code) {
			return &out[i], nil
		}
	}
	return nil, &APIError{Status: http.StatusNotFound, Message: "coupon not found"}
}

func (c *Client) GetRedemption(ctx context.Context, token, id string) (*pricing.PackageRedemption, error) {
	var out pricing.PackageRedemption
	if err := c.call(ctx, token, http.MethodGet, "/api/package-redemptions/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListRedemptions(ctx context.Context, token string, filter RedemptionFilter) ([]pricing.PackageRedemption, error) {
	var out []pricing.PackageRedemption
	if err := c.call(ctx, token, http.MethodGet, "/api/package-redemptions", filter.values(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListDailyUsages(ctx context.Context, token, redemptionID string) ([]pricing.AllAccessDailyUsage, error) {
	var out []pricing.AllAccessDailyUsage
	path := "/api/package-redemptions/" + url.PathEscape(redemptionID) + "/daily-usages"
	if err := c.call(ctx, token, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateRedemption(ctx context.Context, token string, req CreateRedemptionRequest) (*pricing.PackageRedemption, error) {
	var out pricing.PackageRedemption
	if err := c.call(ctx, token, http.MethodPost, "/api/package-redemptions", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRedemptionStatus patches the status of a redemption.
func (c *Client) UpdateRedemptionStatus(ctx context.Context, token, id string, status pricing.RedemptionStatus) (*pricing.PackageRedemption, error) {
	var out pricing.PackageRedemption
	body := map[string]pricing.RedemptionStatus{"status": status}
	if err := c.call(ctx, token, http.MethodPatch, "/api/package-redemptions/"+url.PathEscape(id), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetMember(ctx context.Context, token, id string) (*Member, error) {
	var out Member
	if err := c.call(ctx, token, http.MethodGet, "/api/members/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
