package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/identity"
)

// UserContext represents the authenticated staff member of a request
type UserContext struct {
	UserID         string `json:"userId"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	OrganizationID string `json:"organizationId,omitempty"`
	IsLoggedIn     bool   `json:"isLoggedIn"`
	IsAdmin        bool   `json:"isAdmin"`
	IsInstructor   bool   `json:"isInstructor"`
	Source         string `json:"source,omitempty"`
	Token          string `json:"-"`
}

// FromUser builds the context of a validated identity user.
func FromUser(u identity.User, token, source string) UserContext {
	return UserContext{
		UserID:         u.ID,
		Email:          u.Email,
		Role:           u.Role,
		OrganizationID: u.OrganizationID,
		IsLoggedIn:     true,
		IsAdmin:        u.IsAdmin(),
		IsInstructor:   u.IsInstructor(),
		Source:         source,
		Token:          token,
	}
}

func Set(c *fiber.Ctx, uc UserContext) {
	c.Locals(KeyUserContext, uc)
	c.Locals(KeyFromProtected, uc.IsLoggedIn)
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if uc, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return uc
	}
	return UserContext{}
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// IsAdmin checks if the current user is an admin or owner
func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin
}

// GetUserID returns the current user's ID, or "" if not logged in
func GetUserID(c *fiber.Ctx) string {
	return GetUserContext(c).UserID
}

// GetToken returns the bearer token forwarded to the main backend
func GetToken(c *fiber.Ctx) string {
	return GetUserContext(c).Token
}
