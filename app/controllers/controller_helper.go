package controllers

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/devrantukan/spinning-tenant-be-sub001/app/repository"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/backend"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/identity"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/passcode"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/receipt"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/redemption"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/storage"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// errResponseHandled means the error response is already written.
var errResponseHandled = errors.New("response already handled")

func markHandledResponse(err error) error {
	if err != nil {
		return err
	}
	return errResponseHandled
}

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// parseBody decodes the JSON body into dst and validates its struct tags.
// On failure the 400 response is written and errResponseHandled returned.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return markHandledResponse(jsonError(c, fiber.StatusBadRequest, "invalid_request", "request body must be valid JSON"))
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			return markHandledResponse(c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "validation_failed",
				"message": "request body is invalid",
				"fields":  fields,
			}))
		}
		return markHandledResponse(jsonError(c, fiber.StatusBadRequest, "invalid_request", err.Error()))
	}
	return nil
}

// respondError maps a service error to the JSON error response.
func respondError(c *fiber.Ctx, err error) error {
	var (
		rejected *redemption.CouponRejectedError
		apiErr   *backend.APIError
		idErr    *identity.HTTPError
		linkErr  *identity.LinkError
		fiberErr *fiber.Error
	)

	switch {
	case errors.Is(err, errResponseHandled):
		return nil
	case errors.As(err, &rejected):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   "coupon_rejected",
			"message": rejected.Reason,
			"reason":  rejected.Reason,
		})
	case errors.Is(err, redemption.ErrPackageInactive),
		errors.Is(err, redemption.ErrNotAllAccess),
		errors.Is(err, redemption.ErrNoFriendPass):
		return jsonError(c, fiber.StatusUnprocessableEntity, "unprocessable", err.Error())
	case errors.As(err, &apiErr):
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			return jsonError(c, apiErr.Status, codeFor(apiErr.Status), apiErr.Message)
		}
		fiberlog.Errorf("[API] backend error: %v", err)
		return jsonError(c, fiber.StatusBadGateway, "bad_gateway", "main backend unavailable")
	case identity.IsInvalidToken(err):
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "invalid or expired token")
	case errors.As(err, &linkErr):
		return jsonError(c, fiber.StatusBadRequest, "invalid_link", linkErr.Error())
	case errors.Is(err, identity.ErrNoCredentials):
		return jsonError(c, fiber.StatusBadRequest, "invalid_link", err.Error())
	case errors.As(err, &idErr):
		if idErr.Status >= 400 && idErr.Status < 500 {
			return jsonError(c, idErr.Status, codeFor(idErr.Status), idErr.Message)
		}
		fiberlog.Errorf("[API] identity error: %v", err)
		return jsonError(c, fiber.StatusBadGateway, "bad_gateway", "identity provider unavailable")
	case errors.Is(err, backend.ErrNotConfigured),
		errors.Is(err, identity.ErrNotConfigured),
		errors.Is(err, storage.ErrDisabled):
		return jsonError(c, fiber.StatusServiceUnavailable, "service_unavailable", err.Error())
	case errors.Is(err, backend.ErrResponseTooLarge):
		fiberlog.Errorf("[API] %v", err)
		return jsonError(c, fiber.StatusBadGateway, "bad_gateway", "main backend response too large")
	case errors.Is(err, redemption.ErrInvalidTransition):
		return jsonError(c, fiber.StatusConflict, "conflict", err.Error())
	case errors.Is(err, passcode.ErrInvalidPayload):
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_pass", err.Error())
	case errors.Is(err, backend.ErrBodyNotObject):
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, repository.ErrNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, receipt.ErrNoDocument):
		return jsonError(c, fiber.StatusConflict, "conflict", err.Error())
	case errors.Is(err, storage.ErrPhotoTooLarge):
		return jsonError(c, fiber.StatusRequestEntityTooLarge, "too_large", err.Error())
	case errors.Is(err, storage.ErrPhotoUnreadable):
		return jsonError(c, fiber.StatusBadRequest, "invalid_image", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return jsonError(c, fiber.StatusGatewayTimeout, "timeout", "upstream timed out")
	case errors.As(err, &fiberErr):
		return jsonError(c, fiberErr.Code, codeFor(fiberErr.Code), fiberErr.Message)
	}

	fiberlog.Errorf("[API] %s %s failed: %v", c.Method(), c.Path(), err)
	return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "unexpected error")
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "unprocessable"
	case http.StatusTooManyRequests:
		return "rate_limited"
	}
	return strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_")
}

// queryInt reads a non-negative integer query parameter.
func queryInt(c *fiber.Ctx, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

// relay writes a raw backend answer through unchanged.
func relay(c *fiber.Ctx, resp *backend.Response) error {
	c.Status(resp.Status)
	if len(resp.Body) == 0 {
		return nil
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(resp.Body)
}
