package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/cache"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/env"
)

var (
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrNotConfigured = errors.New("identity provider is not configured")
)

const defaultTokenCacheTTL = 60 * time.Second

// Client talks to a Supabase-style auth REST API.
type Client struct {
	BaseURL   string
	AnonKey   string
	JWTSecret string
	CacheTTL  time.Duration

	HTTPClient *http.Client
	Cache      cache.Store
}

func NewClientFromEnv() *Client {
	var store cache.Store = cache.Nop{}
	if env.GetEnv("CACHE_HOST", "") != "" {
		store = cache.Default("identity:")
	}
	return &Client{
		BaseURL:   strings.TrimRight(strings.TrimSpace(env.GetEnv("IDENTITY_URL", "")), "/"),
		AnonKey:   strings.TrimSpace(env.GetEnv("IDENTITY_ANON_KEY", "")),
		JWTSecret: strings.TrimSpace(env.GetEnv("IDENTITY_JWT_SECRET", "")),
		CacheTTL:  env.GetEnvDuration("IDENTITY_TOKEN_CACHE_TTL", defaultTokenCacheTTL),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		Cache: store,
	}
}

func (c *Client) configured() bool {
	return c.BaseURL != ""
}

// do sends a JSON request to the auth API and decodes a 2xx body into out.
// 401 and 403 responses map to ErrInvalidToken.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, bearer string, in, out any) error {
	if !c.configured() {
		return ErrNotConfigured
	}

	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.AnonKey != "" {
		req.Header.Set("apikey", c.AnonKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	} else if c.AnonKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.AnonKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrInvalidToken
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("identity %s %s: decode response: %w", method, path, err)
	}
	return nil
}

// HTTPError is a non-auth failure reported by the identity provider.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("identity request failed: status=%d body=%s", e.Status, e.Message)
}

// errorMessage extracts the provider's human readable message when present.
func errorMessage(raw []byte) string {
	var body struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, m := range []string{body.Msg, body.Message, body.ErrorDescription, body.Error} {
			if m != "" {
				return m
			}
		}
	}
	return strings.TrimSpace(string(raw))
}
