package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
)

// ServiceKey guards machine-to-machine routes with the X-API-Key header.
// An empty key rejects every request.
func ServiceKey(key string) fiber.Handler {
	return keyauth.New(keyauth.Config{
		KeyLookup: "header:X-API-Key",
		Validator: func(_ *fiber.Ctx, got string) (bool, error) {
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				return false, keyauth.ErrMissingOrMalformedAPIKey
			}
			return true, nil
		},
		ErrorHandler: func(c *fiber.Ctx, _ error) error {
			return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "invalid service key")
		},
	})
}
