package test

import (
	"net/http/httptest"
	"time"

	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/meltingprovince/virtualset/internal/api/v1/client"
	"github.com/meltingprovince/virtualset/internal/app"
	"github.com/meltingprovince/virtualset/internal/simulator"
)

// testClientTimeout is the timeout for test webhook requests
const testClientTimeout = 5 * time.Second

// setupServer starts the dev webhook behind an httptest server and points a
// real client at it
func setupServer(env *Environment) {
	env.Simulator = simulator.New(simulator.Options{Step: env.simStep})
	env.App = app.NewApp(app.Options{
		Simulator:   env.Simulator,
		RequireAuth: env.requireAuth,
	})

	// Create test server using adaptor to convert Fiber app to http.Handler
	env.Server = httptest.NewServer(adaptor.FiberApp(env.App))

	c, err := client.NewClient(&client.Options{
		BaseURL: env.Server.URL,
		Timeout: testClientTimeout,
	})
	env.Require().NoError(err, "Failed to create webhook client")
	env.APIClient = c
}
