// Package test provides integration testing infrastructure for the webhook
// client and generation sessions.
//
// An Environment runs the dev webhook (simulator, handlers and routes) behind
// an httptest server and wires a real client and token provider to it, so
// sessions can be driven end to end without the hosted webhook.
//
// Example Usage:
//
//	func TestExample(t *testing.T) {
//	    env := test.NewEnvironment(t, test.WithSimulatorStep(50))
//	    defer env.Cleanup()
//
//	    s := env.NewSession(session.Options{PollInterval: 10 * time.Millisecond})
//	    env.Require().NoError(s.StartGeneration(env.Context(), brief))
//	    env.WaitForState(s, session.StateComplete)
//	}
package test
