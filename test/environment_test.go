package test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meltingprovince/virtualset/internal/api/v1/client"
	"github.com/meltingprovince/virtualset/internal/auth"
	"github.com/meltingprovince/virtualset/internal/events"
	"github.com/meltingprovince/virtualset/internal/session"
	"github.com/meltingprovince/virtualset/internal/types"
)

var fastPolling = session.Options{PollInterval: 10 * time.Millisecond}

func TestNewEnvironment(t *testing.T) {
	env := NewEnvironment(t)
	defer env.Cleanup()

	assert.NotNil(t, env.t, "testing.T should be set")
	assert.NotNil(t, env.Simulator, "simulator should be initialized")
	assert.NotNil(t, env.App, "app should be initialized")
	assert.NotNil(t, env.Server, "server should be initialized")
	assert.NotNil(t, env.APIClient, "webhook client should be initialized")
	assert.Equal(t, auth.KindHost, env.Tokens.Kind())
	assert.True(t, env.requireAuth)
}

func TestEnvironment_Options(t *testing.T) {
	t.Run("custom cleanup function", func(t *testing.T) {
		cleanupCalled := false
		env := NewEnvironment(t, WithCleanupFunc(func() { cleanupCalled = true }))
		env.Cleanup()

		assert.True(t, cleanupCalled, "custom cleanup should be called")
	})

	t.Run("timeout", func(t *testing.T) {
		env := NewEnvironment(t, WithTimeout(50*time.Millisecond))
		defer env.Cleanup()

		<-env.Context().Done()
		assert.ErrorIs(t, env.Context().Err(), context.DeadlineExceeded)
	})

	t.Run("child timeout", func(t *testing.T) {
		env := NewEnvironment(t)
		defer env.Cleanup()

		ctx, cancel := env.WithTimeout(20 * time.Millisecond)
		defer cancel()
		<-ctx.Done()
		assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
		assert.NoError(t, env.Context().Err())
	})

	t.Run("T and Require", func(t *testing.T) {
		env := NewEnvironment(t)
		defer env.Cleanup()

		assert.Same(t, t, env.T())
		assert.IsType(t, &require.Assertions{}, env.Require())
	})
}

func TestGenerationFlow(t *testing.T) {
	env := NewEnvironment(t, WithSimulatorStep(30))
	defer env.Cleanup()

	bus := events.NewBus(events.EventChannelSize)
	progress := make(chan float64, events.EventChannelSize)
	bus.Subscribe(events.EventStatusUpdated, func(_ context.Context, ev events.Event) error {
		progress <- ev.Progress
		return nil
	})
	bus.Start(env.Context())

	opts := fastPolling
	opts.Bus = bus
	s := env.NewSession(opts)

	require.NoError(t, s.StartGeneration(env.Context(), Brief()))
	snap := env.WaitForState(s, session.StateComplete)

	require.NoError(t, snap.Err)
	assert.Equal(t, 100.0, snap.Progress)
	assert.Equal(t, "Final touches", snap.Stage)
	assert.Len(t, snap.Results.Images(), len(types.CameraViews))
	assert.False(t, snap.IsPolling)

	job, ok := env.Simulator.Get(snap.JobID)
	require.True(t, ok)
	assert.Equal(t, "Panel Discussion", job.Brief.ShowType)

	// 30, 60, 90, 100
	require.Eventually(t, func() bool { return len(progress) >= 4 }, time.Second, 5*time.Millisecond)
	last := 0.0
	for len(progress) > 0 {
		p := <-progress
		assert.GreaterOrEqual(t, p, last)
		last = p
	}
}

func TestRevisionFlow(t *testing.T) {
	env := NewEnvironment(t, WithSimulatorStep(50))
	defer env.Cleanup()

	s := env.NewSession(fastPolling)
	require.NoError(t, s.StartGeneration(env.Context(), Brief()))
	first := env.WaitForState(s, session.StateComplete)

	require.NoError(t, s.RequestRevision(env.Context(), types.Revision{
		Fixes: []string{"More contrast", "Add more depth"},
	}))

	during := s.Snapshot()
	assert.NotEqual(t, first.JobID, during.JobID)
	assert.Equal(t, first.JobID, during.PreviousJobID)

	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return snap.State == session.StateComplete && snap.Results.JobID == snap.JobID
	}, waitTimeout, 5*time.Millisecond)

	job, ok := env.Simulator.Get(s.Snapshot().JobID)
	require.True(t, ok)
	assert.Equal(t, first.JobID, job.OriginalJobID)
	assert.Equal(t, []string{"More contrast", "Add more depth"}, job.Fixes)
}

func TestFailedJobFlow(t *testing.T) {
	env := NewEnvironment(t, WithSimulatorStep(10))
	defer env.Cleanup()

	s := env.NewSession(session.Options{PollInterval: 50 * time.Millisecond})
	require.NoError(t, s.StartGeneration(env.Context(), Brief()))
	require.NoError(t, env.Simulator.Fail(s.Snapshot().JobID, "out of GPU quota"))

	snap := env.WaitForState(s, session.StateFailed)
	var failed *session.JobFailedError
	require.True(t, errors.As(snap.Err, &failed))
	assert.Equal(t, "out of GPU quota", failed.Message)
	assert.Nil(t, snap.Results)
}

func TestUnknownJobIsAbandoned(t *testing.T) {
	env := NewEnvironment(t)
	defer env.Cleanup()

	s := env.NewSession(session.Options{
		PollInterval:    5 * time.Millisecond,
		MaxPollFailures: 2,
		MaxPollBackoff:  10 * time.Millisecond,
	})
	require.NoError(t, s.Track(env.Context(), "job_does_not_exist"))

	snap := env.WaitForState(s, session.StateFailed)
	assert.ErrorIs(t, snap.Err, session.ErrPollingAbandoned)
	assert.Equal(t, http.StatusNotFound, client.ErrorCode(snap.Err))
}

func TestDevTokenAccepted(t *testing.T) {
	env := NewEnvironment(t, WithTokenProvider(auth.NewProvider(auth.Negotiate(auth.HostContext{}), false)))
	defer env.Cleanup()

	handle, err := env.APIClient.SubmitBrief(env.Context(), Brief(), auth.DevToken)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusQueued, handle.Status)

	s := env.NewSession(fastPolling)
	require.NoError(t, s.Track(env.Context(), handle.JobID))
	env.WaitForState(s, session.StateComplete)
}

func TestMissingTokenRejected(t *testing.T) {
	env := NewEnvironment(t)
	defer env.Cleanup()

	_, err := env.APIClient.SubmitBrief(env.Context(), Brief(), "")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, client.ErrorCode(err))

	var subErr *client.SubmissionError
	assert.True(t, errors.As(err, &subErr))
	assert.Equal(t, 0, env.Simulator.Len())

	open := NewEnvironment(t, WithoutAuth())
	defer open.Cleanup()

	_, err = open.APIClient.SubmitBrief(open.Context(), Brief(), "")
	require.NoError(t, err)
}
