package test

import (
	"context"
	"time"

	"github.com/meltingprovince/virtualset/internal/auth"
)

// DefaultTestTimeout is the default timeout for test environments.
const DefaultTestTimeout = 30 * time.Second

// Option represents a configuration option for the test environment.
type Option func(*Environment)

// WithTimeout returns an option that sets the test environment timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(env *Environment) {
		if env.cancelFunc != nil {
			env.cancelFunc()
		}
		env.ctx, env.cancelFunc = context.WithTimeout(context.Background(), timeout)
	}
}

// WithSimulatorStep sets the progress the simulated webhook adds per status poll.
func WithSimulatorStep(step float64) Option {
	return func(env *Environment) {
		env.simStep = step
	}
}

// WithoutAuth lets the webhook accept requests that carry no token.
func WithoutAuth() Option {
	return func(env *Environment) {
		env.requireAuth = false
	}
}

// WithTokenProvider replaces the default host token provider.
func WithTokenProvider(p auth.TokenProvider) Option {
	return func(env *Environment) {
		env.Tokens = p
	}
}

// WithCleanupFunc returns an option that adds a cleanup function to be
// called when the environment is cleaned up.
func WithCleanupFunc(cleanup func()) Option {
	return func(env *Environment) {
		oldCleanup := env.cleanup
		env.cleanup = func() {
			if cleanup != nil {
				cleanup()
			}
			if oldCleanup != nil {
				oldCleanup()
			}
		}
	}
}
