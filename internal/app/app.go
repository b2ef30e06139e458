// Package app assembles the dev webhook server
package app

import (
	"errors"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/meltingprovince/virtualset/internal/api/middleware"
	"github.com/meltingprovince/virtualset/internal/api/v1/handlers"
	"github.com/meltingprovince/virtualset/internal/api/v1/routes"
	"github.com/meltingprovince/virtualset/internal/simulator"
	"github.com/meltingprovince/virtualset/internal/types"
)

// Options configures the dev webhook server
type Options struct {
	Simulator   *simulator.Simulator
	RequireAuth bool
}

// NewApp creates the fiber app serving the webhook endpoints
func NewApp(opts Options) *fiber.App {
	sim := opts.Simulator
	if sim == nil {
		sim = simulator.New(simulator.Options{})
	}

	app := fiber.New(fiber.Config{
		AppName:               "vset dev webhook",
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(middleware.Logger())

	routes.RegisterRoutes(app, handlers.NewWebhookHandler(sim, opts.RequireAuth))

	return app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(types.ErrorResponse{
		Error:   "server_error",
		Message: err.Error(),
	})
}
