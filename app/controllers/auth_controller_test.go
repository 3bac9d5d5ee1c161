package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/identity"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/session"
)

type fakeAuthIdentity struct {
	recoverErr  error
	redeemed    identity.InviteToken
	password    string
	invalidated []string
}

func (f *fakeAuthIdentity) RefreshSession(_ context.Context, refresh string) (*identity.Session, error) {
	if refresh != "r-1" {
		return nil, identity.ErrInvalidToken
	}
	return &identity.Session{AccessToken: "a-2", RefreshToken: "r-2", ExpiresIn: 3600}, nil
}

func (f *fakeAuthIdentity) SendPasswordRecovery(context.Context, string, string) error {
	return f.recoverErr
}

func (f *fakeAuthIdentity) UpdatePassword(_ context.Context, accessToken, password string) (*identity.User, error) {
	f.password = password
	return &identity.User{ID: "u-7", Email: "new@spin8.test", Role: identity.RoleInstructor}, nil
}

func (f *fakeAuthIdentity) Redeem(_ context.Context, tok identity.InviteToken, _ string) (*identity.Session, error) {
	f.redeemed = tok
	return &identity.Session{AccessToken: "invite-access", RefreshToken: "invite-refresh", ExpiresIn: 3600}, nil
}

func (f *fakeAuthIdentity) InvalidateToken(_ context.Context, token string) {
	f.invalidated = append(f.invalidated, token)
}

func newAuthApp(id *fakeAuthIdentity) *fiber.App {
	ac := NewAuthController(id, "https://dash.spin8.test/reset")
	app := fiber.New()
	app.Post("/refresh", ac.HandleRefresh)
	app.Post("/recover", ac.HandleRecover)
	app.Post("/accept", ac.HandleInviteAccept)
	app.Post("/logout", ac.HandleLogout)
	return app
}

func TestHandleRefresh(t *testing.T) {
	app := newAuthApp(&fakeAuthIdentity{})

	resp, err := app.Test(jsonRequest(http.MethodPost, "/refresh", map[string]string{"refreshToken": "r-1"}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body sessionResponse
	decode(t, resp, &body)
	assert.Equal(t, "a-2", body.AccessToken)

	resp, err = app.Test(jsonRequest(http.MethodPost, "/refresh", map[string]string{"refreshToken": "stale"}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(jsonRequest(http.MethodPost, "/refresh", map[string]string{}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleRecoverHidesFailures(t *testing.T) {
	id := &fakeAuthIdentity{recoverErr: &identity.HTTPError{Status: 404, Message: "user not found"}}
	app := newAuthApp(id)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/recover", map[string]string{"email": "ghost@spin8.test"}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	id.recoverErr = identity.ErrNotConfigured
	resp, err = app.Test(jsonRequest(http.MethodPost, "/recover", map[string]string{"email": "ghost@spin8.test"}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = app.Test(jsonRequest(http.MethodPost, "/recover", map[string]string{"email": "not-an-email"}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleInviteAccept(t *testing.T) {
	session.SetSessionStore(fibersession.New())
	defer session.SetSessionStore(nil)

	id := &fakeAuthIdentity{}
	app := newAuthApp(id)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/accept", map[string]string{
		"link":     "https://dash.spin8.test/invite?token_hash=abc&type=invite",
		"password": "bisiklet123",
	}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, identity.KindTokenHash, id.redeemed.Kind)
	assert.Equal(t, "abc", id.redeemed.TokenHash)
	assert.Equal(t, "bisiklet123", id.password)
	assert.NotEmpty(t, resp.Header.Get("Set-Cookie"))

	var body sessionResponse
	decode(t, resp, &body)
	assert.Equal(t, "invite-access", body.AccessToken)
	require.NotNil(t, body.User)
	assert.Equal(t, "new@spin8.test", body.User.Email)
}

func TestHandleInviteAcceptRejects(t *testing.T) {
	app := newAuthApp(&fakeAuthIdentity{})

	tests := []struct {
		name string
		body map[string]string
		code string
	}{
		{"short password", map[string]string{"tokenHash": "abc", "password": "short"}, "validation_failed"},
		{"no credentials", map[string]string{"password": "bisiklet123"}, "invalid_link"},
		{"link error", map[string]string{"link": "https://dash.spin8.test/#error=access_denied&error_description=Link+expired", "password": "bisiklet123"}, "invalid_link"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(jsonRequest(http.MethodPost, "/accept", tt.body), -1)
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var body map[string]any
			decode(t, resp, &body)
			assert.Equal(t, tt.code, body["error"])
		})
	}
}

func TestHandleLogout(t *testing.T) {
	id := &fakeAuthIdentity{}
	app := newAuthApp(id)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Authorization", "Bearer a-1")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{"a-1"}, id.invalidated)
}

type fakeCaptcha struct{}

func (fakeCaptcha) Enabled() bool { return true }

func (fakeCaptcha) Verify(_ context.Context, token, _ string) error {
	if token != "ok" {
		return errors.New("rejected")
	}
	return nil
}

func TestHandleRecoverCaptcha(t *testing.T) {
	ac := NewAuthController(&fakeAuthIdentity{}, "").WithCaptcha(fakeCaptcha{})
	app := fiber.New()
	app.Post("/recover", ac.HandleRecover)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/recover", map[string]string{"email": "a@spin8.test"}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(jsonRequest(http.MethodPost, "/recover", map[string]string{"email": "a@spin8.test", "captchaToken": "ok"}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}
