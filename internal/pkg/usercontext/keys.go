package usercontext

// Shared Locals/session keys used across controllers and middlewares
const (
	KeyUserContext   = "USER_CONTEXT"
	KeyFromProtected = "from_protected"

	SessionAccessToken  = "access_token"
	SessionRefreshToken = "refresh_token"
	SessionExpiresAt    = "expires_at"
	SessionEmail        = "email"
)

// Token sources.
const (
	SourceBearer  = "bearer"
	SourceSession = "session"
)
