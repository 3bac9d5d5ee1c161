package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/identity"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/middleware"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/session"
)

// AuthIdentity is the identity client surface used by the public auth routes.
type AuthIdentity interface {
	RefreshSession(ctx context.Context, refreshToken string) (*identity.Session, error)
	SendPasswordRecovery(ctx context.Context, email, redirectTo string) error
	UpdatePassword(ctx context.Context, accessToken, password string) (*identity.User, error)
	Redeem(ctx context.Context, tok identity.InviteToken, verifier string) (*identity.Session, error)
	InvalidateToken(ctx context.Context, token string)
}

// CaptchaVerifier guards the anonymous e-mail sending route.
type CaptchaVerifier interface {
	Enabled() bool
	Verify(ctx context.Context, token, remoteIP string) error
}

type AuthController struct {
	identity         AuthIdentity
	recoveryRedirect string
	captcha          CaptchaVerifier
}

func NewAuthController(id AuthIdentity, recoveryRedirect string) *AuthController {
	return &AuthController{identity: id, recoveryRedirect: recoveryRedirect}
}

// WithCaptcha requires a captcha token on password recovery when v is enabled.
func (ac *AuthController) WithCaptcha(v CaptchaVerifier) *AuthController {
	ac.captcha = v
	return ac
}

type sessionResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	ExpiresIn    int            `json:"expiresIn"`
	ExpiresAt    int64          `json:"expiresAt,omitempty"`
	User         *identity.User `json:"user,omitempty"`
}

func toSessionResponse(s *identity.Session) sessionResponse {
	return sessionResponse{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresIn:    s.ExpiresIn,
		ExpiresAt:    s.ExpiresAt,
		User:         s.User,
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// HandleRefresh trades a refresh token for a new session.
func (ac *AuthController) HandleRefresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	ses, err := ac.identity.RefreshSession(c.UserContext(), req.RefreshToken)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toSessionResponse(ses))
}

type recoverRequest struct {
	Email      string `json:"email" validate:"required,email"`
	RedirectTo string `json:"redirectTo" validate:"omitempty,url"`
	Captcha    string `json:"captchaToken"`
}

// HandleRecover always answers 202 so the endpoint cannot be used to find accounts.
func (ac *AuthController) HandleRecover(c *fiber.Ctx) error {
	var req recoverRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	if ac.captcha != nil && ac.captcha.Enabled() {
		if err := ac.captcha.Verify(c.UserContext(), req.Captcha, c.IP()); err != nil {
			fiberlog.Infof("[Auth] captcha rejected for recovery: %v", err)
			return jsonError(c, fiber.StatusBadRequest, "captcha_failed", "captcha verification failed")
		}
	}
	redirect := req.RedirectTo
	if redirect == "" {
		redirect = ac.recoveryRedirect
	}
	if err := ac.identity.SendPasswordRecovery(c.UserContext(), req.Email, redirect); err != nil {
		if errors.Is(err, identity.ErrNotConfigured) {
			return respondError(c, err)
		}
		fiberlog.Warnf("[Auth] password recovery for %s failed: %v", req.Email, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "accepted"})
}

type inviteAcceptRequest struct {
	Link         string `json:"link"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenHash    string `json:"tokenHash"`
	Type         string `json:"type" validate:"omitempty,oneof=invite recovery signup"`
	Code         string `json:"code"`
	CodeVerifier string `json:"codeVerifier"`
	Password     string `json:"password" validate:"required,min=8,max=72"`
}

func (r inviteAcceptRequest) token() (identity.InviteToken, error) {
	switch {
	case r.Link != "":
		return identity.ParseInviteLink(r.Link)
	case r.AccessToken != "":
		return identity.InviteToken{Kind: identity.KindAccessToken, AccessToken: r.AccessToken, RefreshToken: r.RefreshToken, Type: r.Type}, nil
	case r.TokenHash != "":
		typ := r.Type
		if typ == "" {
			typ = identity.TypeInvite
		}
		return identity.InviteToken{Kind: identity.KindTokenHash, TokenHash: r.TokenHash, Type: typ}, nil
	case r.Code != "":
		return identity.InviteToken{Kind: identity.KindCode, Code: r.Code}, nil
	}
	return identity.InviteToken{}, identity.ErrNoCredentials
}

// HandleInviteAccept redeems an invitation or recovery credential and sets
// the new password. The resulting session is returned and stored.
func (ac *AuthController) HandleInviteAccept(c *fiber.Ctx) error {
	var req inviteAcceptRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	tok, err := req.token()
	if err != nil {
		return respondError(c, err)
	}

	ses, err := ac.identity.Redeem(c.UserContext(), tok, req.CodeVerifier)
	if err != nil {
		return respondError(c, err)
	}
	user, err := ac.identity.UpdatePassword(c.UserContext(), ses.AccessToken, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	ses.User = user

	if session.GetSessionStore() != nil {
		if err := middleware.StoreSession(c, ses); err != nil {
			fiberlog.Warnf("[Auth] storing invite session failed: %v", err)
		}
	}
	fiberlog.Infof("[Auth] %s accepted %s link", user.Email, tok.Kind)
	return c.JSON(toSessionResponse(ses))
}

// HandleLogout drops the dashboard session and the cached token validation.
func (ac *AuthController) HandleLogout(c *fiber.Ctx) error {
	if token := middleware.RequestToken(c); token != "" {
		ac.identity.InvalidateToken(c.UserContext(), token)
	}
	if err := session.Destroy(c); err != nil {
		fiberlog.Warnf("[Auth] session destroy failed: %v", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
