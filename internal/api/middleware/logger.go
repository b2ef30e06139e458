// Package middleware holds the fiber middleware of the dev webhook server
package middleware

import (
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/meltingprovince/virtualset/internal/api/v1/routes"
	log "github.com/meltingprovince/virtualset/internal/logger"
)

// Logger returns a middleware that logs HTTP requests. Health checks are
// logged at debug level.
func Logger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		// Continue chain
		err := c.Next()

		latency := time.Since(start)
		fields := map[string]interface{}{
			"status":  c.Response().StatusCode(),
			"latency": latency.String(),
			"ip":      c.IP(),
			"method":  c.Method(),
			"path":    c.Path(),
			"handler": c.Route().Name,
		}
		if job := c.Params("id"); job != "" {
			fields["job_id"] = job
		}

		if c.Route().Name == routes.HealthCheck {
			log.DebugWithFields("Request", fields)
		} else {
			log.InfoWithFields("Request", fields)
		}

		return err
	}
}
