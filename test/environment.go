package test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/meltingprovince/virtualset/internal/api/v1/client"
	"github.com/meltingprovince/virtualset/internal/auth"
	"github.com/meltingprovince/virtualset/internal/session"
	"github.com/meltingprovince/virtualset/internal/simulator"
	"github.com/meltingprovince/virtualset/internal/types"
)

// TestInitData is the host credential used by the default token provider
const TestInitData = "query_id=test&user=%7B%22id%22%3A42%7D"

// waitTimeout bounds WaitForState
const waitTimeout = 5 * time.Second

// Environment encapsulates all components needed for integration testing.
// It provides a complete test setup with:
//   - Simulated webhook jobs
//   - Real webhook server
//   - Real webhook client
//   - Host token provider
type Environment struct {
	t *testing.T // The testing.T instance for this environment

	// Server components
	Simulator *simulator.Simulator
	App       *fiber.App
	Server    *httptest.Server

	// Client components
	APIClient client.Client
	Tokens    auth.TokenProvider

	simStep     float64
	requireAuth bool

	// Context management
	ctx        context.Context
	cancelFunc context.CancelFunc

	// Cleanup function
	cleanup func()
}

// NewEnvironment creates a new test environment with the given options.
// The environment must be cleaned up after use by calling Cleanup.
func NewEnvironment(t *testing.T, opts ...Option) *Environment {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTestTimeout)

	env := &Environment{
		t:           t,
		ctx:         ctx,
		cancelFunc:  cancel,
		requireAuth: true,
		Tokens:      auth.NewHostProvider(TestInitData, auth.Identity{ID: "42", Username: "tester"}),
	}

	env.cleanup = func() {
		if env.Server != nil {
			env.Server.Close()
		}
		if env.cancelFunc != nil {
			env.cancelFunc()
		}
	}

	for _, opt := range opts {
		opt(env)
	}

	setupServer(env)
	return env
}

// Context returns the environment's context, which is automatically
// canceled when the environment is cleaned up.
func (e *Environment) Context() context.Context {
	return e.ctx
}

// Cleanup tears down the test environment, releasing all resources.
// This should be deferred immediately after creating the environment.
func (e *Environment) Cleanup() {
	if e.cleanup != nil {
		e.cleanup()
	}
}

// Require returns a require.Assertions instance for this environment.
func (e *Environment) Require() *require.Assertions {
	return require.New(e.t)
}

// WithTimeout returns a new context with the specified timeout.
// The returned context is a child of the environment's context.
func (e *Environment) WithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(e.ctx, timeout)
}

// T returns the testing.T instance for this environment.
func (e *Environment) T() *testing.T {
	return e.t
}

// NewSession creates a session against the environment's webhook. It is
// closed on Cleanup.
func (e *Environment) NewSession(opts session.Options) *session.Session {
	s := session.New(e.APIClient, e.Tokens, opts)
	WithCleanupFunc(s.Close)(e)
	return s
}

// WaitForState blocks until s reaches state and returns that snapshot
func (e *Environment) WaitForState(s *session.Session, state session.State) session.Snapshot {
	e.t.Helper()

	var snap session.Snapshot
	e.Require().Eventually(func() bool {
		snap = s.Snapshot()
		return snap.State == state
	}, waitTimeout, 5*time.Millisecond, "session never reached %s", state)
	return snap
}

// Brief returns a brief that passes validation
func Brief() types.Brief {
	return types.Brief{
		ShowType:    "Panel Discussion",
		Mood:        types.MoodModern,
		ColorPreset: "Modern Dark",
		Elements:    []string{"LED Screens", "Glass/Reflections"},
	}
}
