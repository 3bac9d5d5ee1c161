package middleware

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/identity"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/session"
	icuser "github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/usercontext"
)

// Identity is the part of the identity client the middleware needs.
type Identity interface {
	ValidateToken(ctx context.Context, token string) (*identity.User, error)
	RefreshSession(ctx context.Context, refreshToken string) (*identity.Session, error)
}

// Authenticator resolves the staff member behind a request.
type Authenticator struct {
	Identity       Identity
	OrganizationID string
}

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// RequireStaff authenticates a bearer token or the dashboard session and
// admits ADMIN, OWNER and INSTRUCTOR users of the tenant organization.
func (a *Authenticator) RequireStaff(c *fiber.Ctx) error {
	token, source := extractToken(c)
	if token == "" {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}

	user, err := a.Identity.ValidateToken(c.UserContext(), token)
	if source == icuser.SourceSession && identity.IsInvalidToken(err) {
		token, user, err = a.refreshSession(c)
	}
	switch {
	case err == nil:
	case identity.IsInvalidToken(err):
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "invalid or expired token")
	case errors.Is(err, identity.ErrNotConfigured):
		return jsonError(c, fiber.StatusServiceUnavailable, "service_unavailable", "identity provider not configured")
	default:
		log.Errorf("[Auth] token validation failed: %v", err)
		return jsonError(c, fiber.StatusBadGateway, "bad_gateway", "identity provider unavailable")
	}

	if !user.IsAdmin() && !user.IsInstructor() {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "staff role required")
	}
	if a.OrganizationID != "" && user.OrganizationID != "" && user.OrganizationID != a.OrganizationID {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "user belongs to another organization")
	}

	icuser.Set(c, icuser.FromUser(*user, token, source))
	return c.Next()
}

// refreshSession trades the session refresh token for a new pair.
func (a *Authenticator) refreshSession(c *fiber.Ctx) (string, *identity.User, error) {
	refresh := session.GetSessionValue(c, icuser.SessionRefreshToken)
	if refresh == "" {
		return "", nil, identity.ErrInvalidToken
	}
	ses, err := a.Identity.RefreshSession(c.UserContext(), refresh)
	if err != nil {
		if errors.Is(err, identity.ErrNotConfigured) {
			return "", nil, err
		}
		log.Infof("[Auth] session refresh rejected: %v", err)
		return "", nil, identity.ErrInvalidToken
	}
	if err := StoreSession(c, ses); err != nil {
		log.Warnf("[Auth] storing refreshed session failed: %v", err)
	}
	user := ses.User
	if user == nil {
		user, err = a.Identity.ValidateToken(c.UserContext(), ses.AccessToken)
		if err != nil {
			return "", nil, err
		}
	}
	return ses.AccessToken, user, nil
}

// StoreSession writes a provider token pair into the dashboard session.
func StoreSession(c *fiber.Ctx, ses *identity.Session) error {
	expiresAt := ses.ExpiresAt
	if expiresAt == 0 && ses.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(ses.ExpiresIn) * time.Second).Unix()
	}
	values := map[string]string{
		icuser.SessionAccessToken:  ses.AccessToken,
		icuser.SessionRefreshToken: ses.RefreshToken,
		icuser.SessionExpiresAt:    strconv.FormatInt(expiresAt, 10),
	}
	if ses.User != nil {
		values[icuser.SessionEmail] = ses.User.Email
	}
	return session.SetSessionValues(c, values)
}

// RequireAdmin must run after RequireStaff.
func RequireAdmin(c *fiber.Ctx) error {
	if !icuser.IsAdmin(c) {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "admin role required")
	}
	return c.Next()
}
