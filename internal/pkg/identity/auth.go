package identity

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

type sessionResponse struct {
	Session
	User *providerUser `json:"user"`
}

func (r sessionResponse) toSession() (*Session, error) {
	if strings.TrimSpace(r.AccessToken) == "" {
		return nil, errors.New("identity provider returned empty access_token")
	}
	s := r.Session
	if r.User != nil {
		s.User = r.User.toUser()
	}
	return &s, nil
}

// RefreshSession trades a refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, errors.New("refresh token is required")
	}
	q := url.Values{"grant_type": {"refresh_token"}}
	var out sessionResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token", q, "", map[string]string{"refresh_token": refreshToken}, &out); err != nil {
		return nil, err
	}
	return out.toSession()
}

// SendPasswordRecovery asks the provider to e-mail a recovery link that
// lands on redirectTo.
func (c *Client) SendPasswordRecovery(ctx context.Context, email, redirectTo string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email is required")
	}
	var q url.Values
	if redirectTo != "" {
		q = url.Values{"redirect_to": {redirectTo}}
	}
	return c.do(ctx, http.MethodPost, "/auth/v1/recover", q, "", map[string]string{"email": email}, nil)
}

// UpdatePassword sets a new password for the user owning accessToken.
func (c *Client) UpdatePassword(ctx context.Context, accessToken, password string) (*User, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, ErrInvalidToken
	}
	if password == "" {
		return nil, errors.New("password is required")
	}
	var pu providerUser
	if err := c.do(ctx, http.MethodPut, "/auth/v1/user", nil, accessToken, map[string]string{"password": password}, &pu); err != nil {
		return nil, err
	}
	return pu.toUser(), nil
}

// VerifyTokenHash redeems a one-time token_hash (invite, recovery, magiclink).
func (c *Client) VerifyTokenHash(ctx context.Context, otpType, tokenHash string) (*Session, error) {
	if strings.TrimSpace(tokenHash) == "" {
		return nil, errors.New("token_hash is required")
	}
	if otpType == "" {
		otpType = TypeInvite
	}
	var out sessionResponse
	body := map[string]string{"type": otpType, "token_hash": tokenHash}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/verify", nil, "", body, &out); err != nil {
		return nil, err
	}
	return out.toSession()
}

// ExchangeCode completes a PKCE flow.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*Session, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("auth code is required")
	}
	q := url.Values{"grant_type": {"pkce"}}
	body := map[string]string{"auth_code": code, "code_verifier": verifier}
	var out sessionResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token", q, "", body, &out); err != nil {
		return nil, err
	}
	return out.toSession()
}
