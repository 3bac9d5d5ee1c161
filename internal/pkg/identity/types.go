package identity

import "strings"

// Roles recognised by the dashboard.
const (
	RoleAdmin      = "ADMIN"
	RoleOwner      = "OWNER"
	RoleInstructor = "INSTRUCTOR"
	RoleMember     = "MEMBER"
)

// User is the authenticated principal behind a bearer token.
type User struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	OrganizationID string `json:"organizationId,omitempty"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleOwner
}

func (u User) IsInstructor() bool {
	return u.Role == RoleInstructor
}

// Session is a token pair issued by the provider.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	TokenType    string `json:"token_type"`
	User         *User  `json:"-"`
}

// providerUser is the user object returned by /auth/v1/user and inside sessions.
type providerUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	AppMetadata  map[string]any `json:"app_metadata"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (p providerUser) toUser() *User {
	return &User{
		ID:             p.ID,
		Email:          p.Email,
		Role:           roleFrom(p.AppMetadata, p.UserMetadata),
		OrganizationID: orgFrom(p.AppMetadata, p.UserMetadata),
	}
}

// roleFrom prefers app_metadata (server controlled) over user_metadata.
func roleFrom(app, user map[string]any) string {
	for _, m := range []map[string]any{app, user} {
		if v, ok := m["role"].(string); ok && v != "" {
			return strings.ToUpper(v)
		}
	}
	return ""
}

func orgFrom(app, user map[string]any) string {
	for _, m := range []map[string]any{app, user} {
		for _, k := range []string{"organizationId", "organization_id"} {
			if v, ok := m[k].(string); ok && v != "" {
				return v
			}
		}
	}
	return ""
}
