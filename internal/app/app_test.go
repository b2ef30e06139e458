package app

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meltingprovince/virtualset/internal/api/v1/client"
	"github.com/meltingprovince/virtualset/internal/auth"
	"github.com/meltingprovince/virtualset/internal/session"
	"github.com/meltingprovince/virtualset/internal/simulator"
	"github.com/meltingprovince/virtualset/internal/types"
)

// startServer serves a new app on a random local port
func startServer(t *testing.T, opts Options) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	a := NewApp(opts)
	go func() { _ = a.Listener(ln) }()
	t.Cleanup(func() { _ = a.Shutdown() })

	return "http://" + ln.Addr().String()
}

func TestNewApp_ErrorHandler(t *testing.T) {
	a := NewApp(Options{})

	resp, err := a.Test(httptest.NewRequest(http.MethodGet, "/no-such-route", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionAgainstDevServer(t *testing.T) {
	sim := simulator.New(simulator.Options{Step: 50})
	baseURL := startServer(t, Options{Simulator: sim, RequireAuth: true})

	c, err := client.NewClient(&client.Options{BaseURL: baseURL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	s := session.New(c, auth.NewHostProvider("host-init-data", auth.Identity{ID: "42"}), session.Options{
		PollInterval: 10 * time.Millisecond,
	})
	defer s.Close()

	brief := types.Brief{
		ShowType:    "Talk Show",
		Mood:        types.MoodProfessional,
		ColorPreset: "Corporate Blue",
		Elements:    []string{"City Skyline"},
	}
	require.NoError(t, s.StartGeneration(context.Background(), brief))

	require.Eventually(t, func() bool { return s.Snapshot().State == session.StateComplete }, 5*time.Second, 5*time.Millisecond)
	first := s.Snapshot()
	require.NoError(t, first.Err)
	assert.Len(t, first.Results.Images(), len(types.CameraViews))

	require.NoError(t, s.RequestRevision(context.Background(), types.Revision{
		Fixes: []string{"Make it brighter"},
		Notes: "too dark",
	}))
	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return snap.JobID != first.JobID && snap.State == session.StateComplete
	}, 5*time.Second, 5*time.Millisecond)

	final := s.Snapshot()
	assert.Equal(t, first.JobID, final.PreviousJobID)
	assert.Equal(t, final.JobID, final.Results.JobID)

	job, ok := sim.Get(final.JobID)
	require.True(t, ok)
	assert.Equal(t, first.JobID, job.OriginalJobID)
}

func TestClientRejectedWithoutToken(t *testing.T) {
	baseURL := startServer(t, Options{RequireAuth: true})

	c, err := client.NewClient(&client.Options{BaseURL: baseURL})
	require.NoError(t, err)

	_, err = c.CheckStatus(context.Background(), "job_1", "")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, client.ErrorCode(err))
	assert.Contains(t, err.Error(), "auth token is required")
}
