package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck checks one dependency. Required checks turn the service unhealthy.
type HealthCheck struct {
	Name     string
	Required bool
	Check    func(ctx context.Context) error
}

type HealthController struct {
	checks  []HealthCheck
	timeout time.Duration
}

func NewHealthController(checks ...HealthCheck) *HealthController {
	return &HealthController{checks: checks, timeout: 2 * time.Second}
}

// HandleHealth reports "ok", "degraded" (an optional check failed) or
// "unavailable" with 503 (a required check failed).
func (hc *HealthController) HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), hc.timeout)
	defer cancel()

	status := "ok"
	code := fiber.StatusOK
	results := make(map[string]string, len(hc.checks))
	for _, chk := range hc.checks {
		if err := chk.Check(ctx); err != nil {
			results[chk.Name] = err.Error()
			if chk.Required {
				status = "unavailable"
				code = fiber.StatusServiceUnavailable
			} else if status == "ok" {
				status = "degraded"
			}
			continue
		}
		results[chk.Name] = "ok"
	}

	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"checks": results,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
