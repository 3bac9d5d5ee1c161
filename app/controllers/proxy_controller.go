package controllers

import (
	"context"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/backend"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/usercontext"
)

// Forwarder sends a raw request to the main backend.
type Forwarder interface {
	Forward(ctx context.Context, token, method, path string, query url.Values, body []byte) (*backend.Response, error)
}

// ProxyController passes tenant CRUD straight through to the main backend
// with the caller's token and the tenant organization attached.
type ProxyController struct {
	backend Forwarder
}

func NewProxyController(b Forwarder) *ProxyController {
	return &ProxyController{backend: b}
}

// Forward returns a handler for /api/<resource> and /api/<resource>/:id.
func (pc *ProxyController) Forward(resource string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := "/api/" + resource
		if id := c.Params("id"); id != "" {
			path += "/" + url.PathEscape(id)
		}
		if rest := strings.Trim(c.Params("*"), "/"); rest != "" {
			path += "/" + rest
		}

		resp, err := pc.backend.Forward(c.UserContext(), usercontext.GetToken(c), c.Method(), path, queryValues(c), c.Body())
		if err != nil {
			return respondError(c, err)
		}
		return relay(c, resp)
	}
}

func queryValues(c *fiber.Ctx) url.Values {
	q := url.Values{}
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		q.Add(string(k), string(v))
	})
	return q
}
