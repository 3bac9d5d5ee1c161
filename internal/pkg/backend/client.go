package backend

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

const (
	HeaderOrganizationID = "X-Organization-Id"
	organizationField    = "organizationId"

	defaultTimeout     = 15 * time.Second
	defaultOrgCacheTTL = 15 * time.Minute
	maxResponseBytes   = 4 << 20
)

var (
	ErrNotConfigured    = errors.New("MAIN_BACKEND_URL is not configured")
	ErrResponseTooLarge = errors.New("backend response exceeds 4 MiB")
)

// Client forwards calls to the main backend on behalf of one tenant.
type Client struct {
	BaseURL        string
	OrganizationID string
	// ServiceToken authenticates background refreshes that have no caller.
	ServiceToken string
	OrgCacheTTL  time.Duration

	HTTPClient *http.Client
	Cache      cache.Store
}

// Response is a raw backend answer.
type Response struct {
	Status int
	Body   json.RawMessage
}

func NewClientFromEnv() *Client {
	var store cache.Store = cache.Nop{}
	if env.GetEnv("CACHE_HOST", "") != "" {
		store = cache.Default("backend:")
	}
	return &Client{
		BaseURL:        strings.TrimRight(strings.TrimSpace(env.GetEnv("MAIN_BACKEND_URL", "")), "/"),
		OrganizationID: strings.TrimSpace(env.GetEnv("TENANT_ORGANIZATION_ID", "")),
		ServiceToken:   strings.TrimSpace(env.GetEnv("MAIN_BACKEND_SERVICE_TOKEN", "")),
		OrgCacheTTL:    env.GetEnvDuration("ORG_CACHE_TTL", defaultOrgCacheTTL),
		HTTPClient: &http.Client{
			Timeout: env.GetEnvDuration("MAIN_BACKEND_TIMEOUT", defaultTimeout),
		},
		Cache: store,
	}
}

// Forward sends a request with the tenant organization injected and returns
// whatever the backend answered. Only transport failures are errors.
func (c *Client) Forward(ctx context.Context, token, method, path string, query url.Values, body []byte) (*Response, error) {
	if c.BaseURL == "" {
		return nil, ErrNotConfigured
	}

	q := url.Values{}
	for k, v := range query {
		q[k] = append([]string(nil), v...)
	}

	var reader io.Reader
	switch method {
	case http.MethodGet, http.MethodDelete, http.MethodHead:
		if c.OrganizationID != "" {
			q.Set(organizationField, c.OrganizationID)
		}
	default:
		injected, err := InjectOrganization(body, c.OrganizationID)
		if err != nil {
			return nil, err
		}
		if len(injected) > 0 {
			reader = bytes.NewReader(injected)
		}
	}

	u := c.BaseURL + "/" + strings.TrimLeft(path, "/")
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.OrganizationID != "" {
		req.Header.Set(HeaderOrganizationID, c.OrganizationID)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("backend %s %s: read body: %w", method, path, err)
	}
	if len(raw) > maxResponseBytes {
		return nil, fmt.Errorf("backend %s %s: %w", method, path, ErrResponseTooLarge)
	}
	return &Response{Status: resp.StatusCode, Body: raw}, nil
}

// InjectOrganization sets organizationId on a JSON object body. Empty bodies
// become {"organizationId": ...}; non-object bodies are rejected.
func InjectOrganization(body []byte, organizationID string) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if organizationID == "" {
		return trimmed, nil
	}
	obj := map[string]json.RawMessage{}
	if len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &obj); err != nil || obj == nil {
			return nil, ErrBodyNotObject
		}
	}
	id, _ := json.Marshal(organizationID)
	obj[organizationField] = id
	return json.Marshal(obj)
}

var ErrBodyNotObject = errors.New("request body must be a JSON object")

// call is Forward plus status checking and decoding into out.
func (c *Client) call(ctx context.Context, token, method, path string, query url.Values, in, out any) error {
	var body []byte
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = raw
	}

	resp, err := c.Forward(ctx, token, method, path, query, body)
	if err != nil {
		return err
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return newAPIError(resp)
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(Unwrap(resp.Body), out); err != nil {
		return fmt.Errorf("backend %s %s: decode response: %w", method, path, err)
	}
	return nil
}

// Unwrap strips a {"data": ...} envelope when the backend uses one.
func Unwrap(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err == nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		return envelope.Data
	}
	return raw
}
