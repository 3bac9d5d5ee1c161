package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/session"
	icuser "github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/usercontext"
)

// extractToken prefers the Authorization header over the dashboard session.
func extractToken(c *fiber.Ctx) (string, string) {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		if tok := strings.TrimSpace(auth[7:]); tok != "" {
			return tok, icuser.SourceBearer
		}
	}
	if tok := session.GetSessionValue(c, icuser.SessionAccessToken); tok != "" {
		return tok, icuser.SourceSession
	}
	return "", ""
}

// RequestToken returns the caller's access token from the header or session.
func RequestToken(c *fiber.Ctx) string {
	tok, _ := extractToken(c)
	return tok
}
